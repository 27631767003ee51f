package orders

const (
	TopicOrderCreated      = "purchase.order.created"
	TopicPaymentSucceeded  = "purchase.payment.succeeded"
	TopicPaymentFailed     = "purchase.payment.failed"
	TopicDeliveryRequested = "purchase.delivery.requested"
	TopicDeliveryCompleted = "purchase.delivery.completed"
)

// Partition key = purchase_id, so every event of one purchase stays ordered.
func PartitionKey(purchaseID string) []byte { return []byte(purchaseID) }
