package catalog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/koustreak/mngr/internal/errs"
	"github.com/koustreak/mngr/internal/logger"
)

// Store holds the current snapshot. Reload replaces it wholesale and only
// when the new load succeeds; readers always see a complete Catalog.
type Store struct {
	q    Querier
	opts LoadOptions
	log  *logger.Logger

	current atomic.Pointer[Catalog]
}

// NewStore creates an empty store. Call Reload before Current.
func NewStore(q Querier, opts LoadOptions, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{q: q, opts: opts, log: log}
}

// Current returns the latest snapshot.
func (s *Store) Current() (*Catalog, error) {
	c := s.current.Load()
	if c == nil {
		return nil, errs.New(errs.ErrKindConfiguration, "catalog has not been loaded")
	}
	return c, nil
}

// Reload loads a fresh snapshot and publishes it. On failure the previous
// snapshot, if any, stays in place.
func (s *Store) Reload(ctx context.Context) (*Catalog, error) {
	start := time.Now()

	c, err := Load(ctx, s.q, s.opts)
	if err != nil {
		s.log.ErrorWith("catalog load failed", err, map[string]interface{}{
			"kind": errs.KindOf(err).String(),
		})
		return nil, err
	}

	s.current.Store(c)
	s.log.InfoWith("catalog loaded", map[string]interface{}{
		"schemas":   len(c.Schemas()),
		"tables":    c.Len(),
		"ambiguous": len(c.Ambiguous()),
		"elapsed":   time.Since(start).String(),
	})
	return c, nil
}
