package orders

const (
	TopicOrderCreated   = "order.created"
	TopicOrderSettled   = "order.settled"
	TopicOrderExpired   = "order.expired"
	TopicOrderCancelled = "order.cancelled"
	TopicPaymentFailed  = "order.payment.failed"
)

// AllTopics is what the worker's status-cache consumer subscribes to.
var AllTopics = []string{
	TopicOrderCreated,
	TopicOrderSettled,
	TopicOrderExpired,
	TopicOrderCancelled,
	TopicPaymentFailed,
}

// Partition key = order id, so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
