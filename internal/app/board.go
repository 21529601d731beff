package service

import (
	"context"
	"sync"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/metrics"
)

// boardHolder keeps the newest computed board. A board whose version is not
// newer than the current one is refused, so a slow recompute can never
// overwrite a fresher result.
type boardHolder struct {
	mu        sync.RWMutex
	board     types.Board
	ready     bool
	listeners []func(types.Board)
}

func (h *boardHolder) Publish(_ context.Context, b types.Board) bool {
	h.mu.Lock()
	if h.ready && b.Version <= h.board.Version {
		h.mu.Unlock()
		metrics.RecordStaleBoardDropped()
		return false
	}
	h.board = b
	h.ready = true
	listeners := h.listeners
	h.mu.Unlock()

	metrics.UpdateBoardVersion(b.Version)
	for _, fn := range listeners {
		fn(b)
	}
	return true
}

func (h *boardHolder) current() (types.Board, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.board, h.ready
}

func (h *boardHolder) subscribe(fn func(types.Board)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}
