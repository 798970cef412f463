package httpx

import (
	"strconv"
	"time"

	kafkax "github.com/faelmarcondeli/backorder-confirmation/internal/kafka"
	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is the producer surface handlers publish through.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

func publishOrderEvent(p Publisher, service, eventType, traceID string, orderID int64, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      service,
		TraceID:       traceID,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
