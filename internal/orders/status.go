package orders

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

var validNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:   {PaymentCompleted: true, PaymentFailed: true},
	PaymentCompleted: {},
	PaymentFailed:    {},
}

func CanTransition(from, to PaymentStatus) bool {
	return validNext[from][to]
}

// Terminal reports whether no transition leaves s.
func (s PaymentStatus) Terminal() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

func (s PaymentStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
)
