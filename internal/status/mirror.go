package status

import (
	"context"
	"log/slog"
	"time"

	"bridgelink/internal/bridge"
	"bridgelink/pkg/document"
)

const snapshotTimeout = 500 * time.Millisecond

// MirroredPusher forwards pushes and records each one in the snapshot
// store, delivered or not.
type MirroredPusher struct {
	next   bridge.Pusher
	store  *SnapshotStore
	logger *slog.Logger
	now    func() time.Time
}

func NewMirroredPusher(next bridge.Pusher, store *SnapshotStore, logger *slog.Logger) *MirroredPusher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirroredPusher{
		next:   next,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (p *MirroredPusher) Push(doc *document.Document) bool {
	delivered := p.next.Push(doc)
	if !p.store.enabled() {
		return delivered
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	rec := PushRecord{Document: doc, Delivered: delivered, At: p.now()}
	if err := p.store.SaveLastPush(ctx, rec); err != nil {
		p.logger.Warn("failed_to_save_push_snapshot", "error", err.Error())
	}
	return delivered
}

// StateSource reports the live bridge state.
type StateSource interface {
	State() bridge.State
}

// RecordState saves the bridge state every interval until ctx is done.
func RecordState(ctx context.Context, source StateSource, store *SnapshotStore, interval time.Duration, logger *slog.Logger) {
	if !store.enabled() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saveCtx, cancel := context.WithTimeout(ctx, snapshotTimeout)
			if err := store.SaveState(saveCtx, source.State()); err != nil {
				logger.Warn("failed_to_save_state_snapshot", "error", err.Error())
			}
			cancel()
		}
	}
}
