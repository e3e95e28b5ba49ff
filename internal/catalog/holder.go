package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Holder publishes the live Index. Reloads build a fresh index and swap the
// pointer; a published index is never modified.
type Holder struct {
	current atomic.Pointer[Index]
	dir     string
	logger  *slog.Logger
}

// NewHolder loads dir and publishes the result.
func NewHolder(dir string, logger *slog.Logger) (*Holder, LoadOutcome) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Holder{dir: dir, logger: logger}
	outcome := h.Reload()
	return h, outcome
}

// Current implements Source.
func (h *Holder) Current() *Index {
	if idx := h.current.Load(); idx != nil {
		return idx
	}
	return FallbackIndex()
}

// Store publishes idx directly. Nil is ignored.
func (h *Holder) Store(idx *Index) {
	if idx != nil {
		h.current.Store(idx)
	}
}

// Reload rebuilds the index from the holder's directory. A fallback result
// does not replace a previously loaded catalog.
func (h *Holder) Reload() LoadOutcome {
	idx, outcome := Load(h.dir, h.logger)
	if outcome.Fallback && h.current.Load() != nil && !h.current.Load().Fallback() {
		h.logger.Warn("catalog reload fell back, keeping previous index", slog.String("reason", outcome.Reason))
		return outcome
	}
	h.current.Store(idx)
	return outcome
}

// Watch reloads the catalog every interval until ctx is done. notify, when
// set, receives the published index after each reload.
func (h *Holder) Watch(ctx context.Context, interval time.Duration, notify func(*Index, LoadOutcome)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			outcome := h.Reload()
			if notify != nil {
				notify(h.Current(), outcome)
			}
		}
	}
}
