package tiny

import (
	"context"
	"fmt"
	"time"

	"github.com/faelmarcondeli/backorder-confirmation/internal/orders"
	"github.com/rs/zerolog/log"
)

// API is the slice of the Tiny client the workflow needs. Kept as an
// interface so the workflow is testable without a live remote.
type API interface {
	Configured() bool
	SearchOrder(ctx context.Context, orderID int64) (int64, error)
	AddMarker(ctx context.Context, tinyID int64) error
	ChangeStatus(ctx context.Context, tinyID int64, situation string) error
}

// OrderStore is the order-side surface of the workflow: backorder detection
// plus the success write-back.
type OrderStore interface {
	orders.BackorderSource
	SetMeta(ctx context.Context, orderID int64, key, value string) error
	AddNote(ctx context.Context, orderID int64, note string) error
}

// Workflow is the deferred sync for one backordered order:
// resolve remote id (cached) -> attach marker -> persist -> optional status
// walk. Every step is terminal on error; nothing is retried. Local order
// metadata is written only after the marker call succeeded, so a failed run
// leaves the order untouched and a later manual re-trigger starts clean.
type Workflow struct {
	API    API
	Cache  IDCache
	Orders OrderStore

	// CacheTTL matches the scheduling delay, as the remote id is only
	// useful for the lifetime of one deferred run.
	CacheTTL   time.Duration
	StatusWalk bool
}

// Run executes the sync for orderID. Re-running after a successful sync is a
// silent no-op (tiny_marker_sent guard). The returned error is for logging
// and job accounting only; it must never trigger a retry.
func (w *Workflow) Run(ctx context.Context, orderID int64) error {
	if !w.API.Configured() {
		return ErrNotConfigured
	}

	sent, err := w.Orders.Meta(ctx, orderID, orders.MetaTinyMarkerSent)
	if err != nil {
		return fmt.Errorf("read marker flag for order %d: %w", orderID, err)
	}
	if sent != "" {
		log.Debug().Int64("order_id", orderID).Msg("tiny marker already sent")
		return nil
	}

	has, err := orders.HasBackorder(ctx, w.Orders, orderID)
	if err != nil {
		return fmt.Errorf("detect backorder for order %d: %w", orderID, err)
	}
	if !has {
		log.Info().Int64("order_id", orderID).Msg("no backorder items, skipping tiny sync")
		return nil
	}

	tinyID, ok := w.Cache.Get(ctx, orderID)
	if !ok {
		tinyID, err = w.API.SearchOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("resolve tiny id for order %d: %w", orderID, err)
		}
		w.Cache.Set(ctx, orderID, tinyID, w.CacheTTL)
	}

	if err := w.API.AddMarker(ctx, tinyID); err != nil {
		return fmt.Errorf("add marker for order %d (tiny %d): %w", orderID, tinyID, err)
	}

	if err := w.persistSuccess(ctx, orderID, tinyID); err != nil {
		return err
	}
	log.Info().Int64("order_id", orderID).Int64("tiny_id", tinyID).Msg("tiny marker sent")

	if w.StatusWalk {
		w.walkStatus(ctx, orderID, tinyID)
	}
	return nil
}

func (w *Workflow) persistSuccess(ctx context.Context, orderID, tinyID int64) error {
	if err := w.Orders.SetMeta(ctx, orderID, orders.MetaTinyOrderID, fmt.Sprintf("%d", tinyID)); err != nil {
		return fmt.Errorf("persist tiny id for order %d: %w", orderID, err)
	}
	if err := w.Orders.SetMeta(ctx, orderID, orders.MetaTinyMarkerSent, orders.MetaYes); err != nil {
		return fmt.Errorf("persist marker flag for order %d: %w", orderID, err)
	}
	if err := w.Orders.AddNote(ctx, orderID, fmt.Sprintf("Marcador Tiny enviado (ID: %d).", tinyID)); err != nil {
		// the marker is already on the remote order; a lost note is not
		// worth failing the run
		log.Warn().Err(err).Int64("order_id", orderID).Msg("could not add order note")
	}
	return nil
}

// walkStatus moves the remote order through cancelado -> aprovado. The
// marker is already persisted at this point, so failures here are log-only;
// a failed first hop suppresses the second.
func (w *Workflow) walkStatus(ctx context.Context, orderID, tinyID int64) {
	if err := w.API.ChangeStatus(ctx, tinyID, SituationCancelled); err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Int64("tiny_id", tinyID).
			Str("situation", SituationCancelled).Msg("tiny status change failed")
		return
	}
	if err := w.API.ChangeStatus(ctx, tinyID, SituationApproved); err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Int64("tiny_id", tinyID).
			Str("situation", SituationApproved).Msg("tiny status change failed")
	}
}
