package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkax "github.com/faelmarcondeli/backorder-confirmation/internal/kafka"
	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDedup struct{ seen map[string]bool }

func (d *memDedup) Seen(_ context.Context, scope, id string) (bool, error) {
	return d.seen[scope+":"+id], nil
}

func (d *memDedup) Mark(_ context.Context, scope, id string) error {
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.seen[scope+":"+id] = true
	return nil
}

type memStore struct {
	meta         map[string]string
	onBack       bool
	coupons      []string
	couponsFails int // fail this many Coupons calls before recovering
	order        *orders.Order
}

func (s *memStore) Meta(_ context.Context, _ int64, key string) (string, error) {
	return s.meta[key], nil
}
func (s *memStore) AnyItemOnBackorder(_ context.Context, _ int64) (bool, error) {
	return s.onBack, nil
}
func (s *memStore) GetOrder(_ context.Context, _ int64) (*orders.Order, error) {
	return s.order, nil
}
func (s *memStore) Coupons(_ context.Context, _ int64) ([]string, error) {
	if s.couponsFails > 0 {
		s.couponsFails--
		return nil, errors.New("db unavailable")
	}
	return s.coupons, nil
}

type countEmail struct {
	sent  int
	fails int // fail this many deliveries before recovering
}

func (e *countEmail) Trigger(_ context.Context, _ *orders.Order) error {
	if e.fails > 0 {
		e.fails--
		return errors.New("smtp unavailable")
	}
	e.sent++
	return nil
}

type countScheduler struct {
	calls   int
	pending map[int64]bool
	delays  []time.Duration
}

func (s *countScheduler) ScheduleTinySync(_ context.Context, orderID int64, delay time.Duration) (bool, error) {
	s.calls++
	s.delays = append(s.delays, delay)
	if s.pending == nil {
		s.pending = map[int64]bool{}
	}
	if s.pending[orderID] {
		return false, nil
	}
	s.pending[orderID] = true
	return true, nil
}

func statusChanged(orderID int64, from, to orders.Status) kafkago.Message {
	env := orders.Envelope{
		EventID:      uuid.NewString(),
		EventType:    orders.EventOrderStatusChanged,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload:      kafkax.MustMarshal(orders.OrderStatusChangedPayload{OrderID: orderID, From: from, To: to}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func newDispatcher(store *memStore) (*Dispatcher, *countEmail, *countScheduler) {
	email := &countEmail{}
	sched := &countScheduler{}
	d := &Dispatcher{
		Store:          store,
		Dedup:          &memDedup{},
		Email:          email,
		Jobs:           sched,
		SyncDelay:      3 * time.Hour,
		SampleCoupon:   "amostras",
		TinyConfigured: true,
	}
	return d, email, sched
}

func flaggedStore() *memStore {
	return &memStore{
		meta:  map[string]string{orders.MetaHasBackorder: orders.MetaYes},
		order: &orders.Order{ID: 1001, BillingEmail: "cliente@example.com", Status: orders.StatusProcessing},
	}
}

func TestProcessingTriggersEmailAndSync(t *testing.T) {
	d, email, sched := newDispatcher(flaggedStore())

	err := d.HandleOrderEvent(context.Background(), statusChanged(1001, orders.StatusPending, orders.StatusProcessing))
	require.NoError(t, err)

	assert.Equal(t, 1, email.sent)
	assert.Equal(t, 1, sched.calls)
	assert.Equal(t, []time.Duration{3 * time.Hour}, sched.delays)
}

func TestDuplicateFiringIsIdempotent(t *testing.T) {
	d, email, sched := newDispatcher(flaggedStore())
	ctx := context.Background()

	// same envelope redelivered, then the transition re-fired with a new
	// event id: neither may double anything
	msg := statusChanged(1001, orders.StatusPending, orders.StatusProcessing)
	require.NoError(t, d.HandleOrderEvent(ctx, msg))
	require.NoError(t, d.HandleOrderEvent(ctx, msg))
	require.NoError(t, d.HandleOrderEvent(ctx, statusChanged(1001, orders.StatusPending, orders.StatusProcessing)))

	assert.Equal(t, 1, email.sent)
	assert.True(t, sched.pending[1001])
	assert.Len(t, sched.pending, 1)
}

func TestRedeliveryAfterMidRunFailureGetsFullPass(t *testing.T) {
	store := flaggedStore()
	store.couponsFails = 1
	d, email, sched := newDispatcher(store)
	msg := statusChanged(1001, orders.StatusPending, orders.StatusProcessing)

	// infra failure mid-run: the error propagates so the offset stays
	// uncommitted, and the event must not be marked consumed
	require.Error(t, d.HandleOrderEvent(context.Background(), msg))
	assert.Equal(t, 0, email.sent)
	assert.Equal(t, 0, sched.calls)

	// redelivery of the very same envelope runs the whole pass
	require.NoError(t, d.HandleOrderEvent(context.Background(), msg))
	assert.Equal(t, 1, email.sent)
	assert.Equal(t, 1, sched.calls)
}

func TestFailedEmailIsRetriedOnNextFiring(t *testing.T) {
	d, email, sched := newDispatcher(flaggedStore())
	email.fails = 1
	ctx := context.Background()

	// the delivery fails but the handler still succeeds: email is log-only
	require.NoError(t, d.HandleOrderEvent(ctx, statusChanged(1001, orders.StatusPending, orders.StatusProcessing)))
	assert.Equal(t, 0, email.sent)
	assert.Equal(t, 1, sched.calls)

	// a re-fired transition retries the delivery; the dedup key was not
	// consumed by the failed send
	require.NoError(t, d.HandleOrderEvent(ctx, statusChanged(1001, orders.StatusProcessing, orders.StatusProcessing)))
	assert.Equal(t, 1, email.sent)

	// and a third firing does not send again
	require.NoError(t, d.HandleOrderEvent(ctx, statusChanged(1001, orders.StatusProcessing, orders.StatusProcessing)))
	assert.Equal(t, 1, email.sent)
}

func TestSampleCouponSuppressesEmailOnly(t *testing.T) {
	store := flaggedStore()
	store.coupons = []string{"AMOSTRAS"}
	d, email, sched := newDispatcher(store)

	require.NoError(t, d.HandleOrderEvent(context.Background(), statusChanged(1001, orders.StatusPending, orders.StatusProcessing)))

	assert.Equal(t, 0, email.sent)
	assert.Equal(t, 1, sched.calls, "default policy still schedules the sync")
}

func TestSampleCouponSkipsSyncWhenConfigured(t *testing.T) {
	store := flaggedStore()
	store.coupons = []string{"amostras"}
	d, email, sched := newDispatcher(store)
	d.SampleSkipsSync = true

	require.NoError(t, d.HandleOrderEvent(context.Background(), statusChanged(1001, orders.StatusPending, orders.StatusProcessing)))

	assert.Equal(t, 0, email.sent)
	assert.Equal(t, 0, sched.calls)
}

func TestNoBackorderDoesNothing(t *testing.T) {
	store := &memStore{meta: map[string]string{}, onBack: false}
	d, email, sched := newDispatcher(store)

	require.NoError(t, d.HandleOrderEvent(context.Background(), statusChanged(1001, orders.StatusPending, orders.StatusProcessing)))

	assert.Equal(t, 0, email.sent)
	assert.Equal(t, 0, sched.calls)
}

func TestLegacyOrderFallsBackToRescan(t *testing.T) {
	store := flaggedStore()
	store.meta = map[string]string{} // predates the checkout latch
	store.onBack = true
	d, email, sched := newDispatcher(store)

	require.NoError(t, d.HandleOrderEvent(context.Background(), statusChanged(1001, orders.StatusPending, orders.StatusProcessing)))

	assert.Equal(t, 1, email.sent)
	assert.Equal(t, 1, sched.calls)
}

func TestIgnoresOtherTransitionsAndEvents(t *testing.T) {
	d, email, sched := newDispatcher(flaggedStore())
	ctx := context.Background()

	require.NoError(t, d.HandleOrderEvent(ctx, statusChanged(1001, orders.StatusProcessing, orders.StatusCompleted)))
	require.NoError(t, d.HandleOrderEvent(ctx, statusChanged(1001, orders.StatusPending, orders.StatusCancelled)))

	created := orders.Envelope{
		EventID:   uuid.NewString(),
		EventType: orders.EventOrderCreated,
		Payload:   kafkax.MustMarshal(orders.OrderCreatedPayload{OrderID: 1001}),
	}
	require.NoError(t, d.HandleOrderEvent(ctx, kafkago.Message{Value: kafkax.MustMarshal(created)}))

	assert.Equal(t, 0, email.sent)
	assert.Equal(t, 0, sched.calls)
}

func TestMissingTinyTokenSkipsScheduling(t *testing.T) {
	d, email, sched := newDispatcher(flaggedStore())
	d.TinyConfigured = false

	require.NoError(t, d.HandleOrderEvent(context.Background(), statusChanged(1001, orders.StatusPending, orders.StatusProcessing)))

	assert.Equal(t, 1, email.sent, "email is independent of the tiny integration")
	assert.Equal(t, 0, sched.calls)
}

func TestMalformedEventIsDropped(t *testing.T) {
	d, email, sched := newDispatcher(flaggedStore())
	require.NoError(t, d.HandleOrderEvent(context.Background(), kafkago.Message{Value: []byte("{not json")}))
	assert.Equal(t, 0, email.sent)
	assert.Equal(t, 0, sched.calls)
}
