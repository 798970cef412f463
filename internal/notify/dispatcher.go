// Package notify reacts to order status changes: it sends the encomenda
// email and schedules the deferred Tiny sync for backordered orders.
package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	kafkax "github.com/faelmarcondeli/backorder-confirmation/internal/kafka"
	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
)

// Deduper tracks (scope, id) pairs that finished processing. Seen and Mark
// are separate so callers mark only after their actions landed; a failed run
// leaves the pair unmarked and the next delivery gets a full pass.
type Deduper interface {
	Seen(ctx context.Context, scope, id string) (bool, error)
	Mark(ctx context.Context, scope, id string) error
}

// Scheduler enqueues the deferred Tiny sync. Reports scheduled=false when a
// job for the order is already pending.
type Scheduler interface {
	ScheduleTinySync(ctx context.Context, orderID int64, delay time.Duration) (bool, error)
}

type Email interface {
	Trigger(ctx context.Context, o *orders.Order) error
}

// Store is the order-store surface the dispatcher reads.
type Store interface {
	orders.BackorderSource
	GetOrder(ctx context.Context, orderID int64) (*orders.Order, error)
	Coupons(ctx context.Context, orderID int64) ([]string, error)
}

type Dispatcher struct {
	Store Store
	Dedup Deduper
	Email Email
	Jobs  Scheduler

	SyncDelay       time.Duration
	SampleCoupon    string // case-insensitive match, e.g. "amostras"
	SampleSkipsSync bool
	TinyConfigured  bool
}

// HandleOrderEvent is the Kafka consumer handler. Only the transition into
// PROCESSING triggers anything; everything else is acknowledged untouched.
// Returning an error keeps the offset uncommitted, so only infrastructure
// failures (DB, Redis, queue) propagate; business no-ops return nil.
func (d *Dispatcher) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Error().Err(err).Msg("dropping malformed event")
		return nil
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		log.Error().Err(err).Str("event_id", env.EventID).Msg("dropping malformed payload")
		return nil
	}
	if p.To != orders.StatusProcessing {
		return nil
	}

	// redelivered envelopes are filtered by event id
	if env.EventID != "" {
		seen, err := d.Dedup.Seen(ctx, "notify", env.EventID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	if err := d.process(ctx, p.OrderID); err != nil {
		return err
	}

	// marked only after every action landed: a mid-run failure leaves the
	// event unmarked, so the uncommitted redelivery gets a full second pass
	if env.EventID != "" {
		if err := d.Dedup.Mark(ctx, "notify", env.EventID); err != nil {
			log.Warn().Err(err).Str("event_id", env.EventID).Msg("could not mark event consumed")
		}
	}
	return nil
}

func (d *Dispatcher) process(ctx context.Context, orderID int64) error {
	has, err := orders.HasBackorder(ctx, d.Store, orderID)
	if err != nil {
		return err
	}
	if !has {
		return nil
	}

	coupons, err := d.Store.Coupons(ctx, orderID)
	if err != nil {
		return err
	}
	sample := d.hasSampleCoupon(coupons)

	if sample {
		log.Info().Int64("order_id", orderID).Msg("sample coupon present, skipping encomenda email")
	} else {
		d.sendEmailOnce(ctx, orderID)
	}

	if sample && d.SampleSkipsSync {
		log.Info().Int64("order_id", orderID).Msg("sample coupon present, skipping tiny sync")
		return nil
	}
	if !d.TinyConfigured {
		log.Error().Int64("order_id", orderID).Msg("tiny api token not set, sync not scheduled")
		return nil
	}

	scheduled, err := d.Jobs.ScheduleTinySync(ctx, orderID, d.SyncDelay)
	if err != nil {
		return err
	}
	if scheduled {
		log.Info().Int64("order_id", orderID).Dur("delay", d.SyncDelay).Msg("tiny sync scheduled")
	} else {
		log.Debug().Int64("order_id", orderID).Msg("tiny sync already pending")
	}
	return nil
}

// sendEmailOnce guards against status re-saves with a per-order dedup key.
// The key is marked only after the delivery succeeded, so a failed send stays
// retryable by the next firing. Email failures are log-only; they never block
// the sync.
func (d *Dispatcher) sendEmailOnce(ctx context.Context, orderID int64) {
	id := strconv.FormatInt(orderID, 10)
	seen, err := d.Dedup.Seen(ctx, "email", id)
	if err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("email dedup check failed")
		return
	}
	if seen {
		return
	}
	o, err := d.Store.GetOrder(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("could not load order for email")
		return
	}
	if err := d.Email.Trigger(ctx, o); err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("encomenda email failed")
		return
	}
	if err := d.Dedup.Mark(ctx, "email", id); err != nil {
		log.Warn().Err(err).Int64("order_id", orderID).Msg("could not mark email sent")
	}
	log.Info().Int64("order_id", orderID).Str("to", o.BillingEmail).Msg("encomenda email sent")
}

func (d *Dispatcher) hasSampleCoupon(coupons []string) bool {
	if d.SampleCoupon == "" {
		return false
	}
	for _, c := range coupons {
		if strings.EqualFold(c, d.SampleCoupon) {
			return true
		}
	}
	return false
}
