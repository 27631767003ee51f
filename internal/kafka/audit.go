package kafka

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/segmentio/kafka-go"
)

// AuditFailures is a Producer.OnError that leaves an audit row per lost
// message, keyed by the message key (the purchase id).
func AuditFailures(rec audit.Recorder) func(kafka.Message, error) {
	return func(m kafka.Message, err error) {
		rec.Record(context.Background(), audit.Entry{
			Action:  audit.ActionPublishFailed,
			Outcome: audit.OutcomeFailed,
			Actor:   "kafka",
			Subject: string(m.Key),
			Detail:  fmt.Sprintf("topic=%s event=%s: %v", m.Topic, headerValue(m.Headers, "x-event-type"), err),
		})
	}
}

func headerValue(hs []kafka.Header, key string) string {
	for _, h := range hs {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
