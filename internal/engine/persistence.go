package engine

import (
	"github.com/rs/zerolog/log"

	"vellum/internal/book"
	"vellum/internal/persistence"
)

// Snapshot returns the persisted representation of symbol's book.
func (e *Engine) Snapshot(symbol string) persistence.Snapshot {
	s := e.stateFor(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	return persistence.Build(s.book)
}

// Restore replaces symbol's book with the one encoded in snap. On a
// corrupted snapshot the engine logs the failure and leaves symbol with an
// empty book, per spec section 7 — Restore itself still reports the error
// so the caller (the persistence adapter) can surface it upstream.
func (e *Engine) Restore(symbol string, snap persistence.Snapshot) error {
	restored, err := persistence.Restore(symbol, snap)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("snapshot restore failed, continuing with empty book")
		s := e.stateFor(symbol)
		s.mu.Lock()
		s.book = book.New(symbol)
		s.mu.Unlock()
		return err
	}

	s := e.stateFor(symbol)
	s.mu.Lock()
	s.book = restored
	s.mu.Unlock()
	return nil
}
