package catalog

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/koustreak/mngr/internal/errs"
	"github.com/koustreak/mngr/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CurrentBeforeLoad(t *testing.T) {
	s := NewStore(newFixture().db(), publicScope(), nil)

	c, err := s.Current()
	assert.Nil(t, c)
	assert.True(t, errs.IsConfiguration(err))
}

func TestStore_Reload(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: buf})

	f := newFixture()
	s := NewStore(f.db(), publicScope(), log)

	first, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "catalog loaded")

	current, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)

	// a failed reload keeps the previous snapshot
	f.fail = map[string]error{constraintsQuery: errs.New(errs.ErrKindConnectionFailed, "connection reset")}
	c, err := s.Reload(context.Background())
	assert.Nil(t, c)
	assert.True(t, errs.IsConnectionFailed(err))
	assert.Contains(t, buf.String(), "catalog load failed")

	current, err = s.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)

	// a successful reload swaps it
	f.fail = nil
	second, err := s.Reload(context.Background())
	require.NoError(t, err)
	current, _ = s.Current()
	assert.Same(t, second, current)
	assert.NotSame(t, first, second)
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := NewStore(newFixture().db(), publicScope(), logger.Nop())
	_, err := s.Reload(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c, err := s.Current()
				if assert.NoError(t, err) {
					assert.Equal(t, 2, c.Len())
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := s.Reload(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
}
