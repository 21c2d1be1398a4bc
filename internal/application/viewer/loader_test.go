package viewer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-apitrace/internal/core/trace"
	"github.com/penwyp/go-apitrace/internal/testing/fixtures"
)

func waitResult(t *testing.T, l *Loader, gen uint64) LoadResult {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case res := <-l.Results():
			if res.Generation == gen {
				return res
			}
			if res.Trace != nil {
				res.Trace.Close()
			}
		case <-timeout:
			t.Fatalf("no result for generation %d", gen)
		}
	}
}

func TestLoader_Start(t *testing.T) {
	path := fixtures.ScenarioLanes().Write(t)
	l := NewLoader(path, trace.Options{Layout: testLayout}, nil)
	defer l.Close()

	gen := l.Start(context.Background())
	assert.Equal(t, uint64(1), gen)

	res := waitResult(t, l, gen)
	require.NoError(t, res.Err)
	require.NotNil(t, res.Trace)
	defer res.Trace.Close()
	assert.Equal(t, 4, res.Trace.RowCount())
}

func TestLoader_RestartSupersedes(t *testing.T) {
	path := fixtures.ScenarioLanes().Write(t)
	l := NewLoader(path, trace.Options{Layout: testLayout}, nil)

	l.Start(context.Background())
	gen := l.Start(context.Background())
	assert.Equal(t, uint64(2), gen)
	assert.Equal(t, uint64(2), l.Generation())

	res := waitResult(t, l, gen)
	require.NoError(t, res.Err)
	res.Trace.Close()
	assert.NoError(t, l.Close())
}

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "missing.trace"), trace.Options{}, nil)
	defer l.Close()

	res := waitResult(t, l, l.Start(context.Background()))
	assert.Error(t, res.Err)
	assert.Nil(t, res.Trace)
}

func TestLoader_CloseCancels(t *testing.T) {
	path := fixtures.ScenarioLanes().Write(t)
	l := NewLoader(path, trace.Options{Layout: testLayout}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l.Start(ctx)
	assert.NoError(t, l.Close())
	select {
	case res := <-l.Results():
		t.Fatalf("unexpected result after close: %+v", res)
	default:
	}
}

func TestLoader_Progress(t *testing.T) {
	path := fixtures.ScenarioLanes().Write(t)
	var (
		mu   sync.Mutex
		last float64 = -1
	)
	l := NewLoader(path, trace.Options{Layout: testLayout}, func(percent float64) {
		mu.Lock()
		last = percent
		mu.Unlock()
	})
	defer l.Close()

	res := waitResult(t, l, l.Start(context.Background()))
	require.NoError(t, res.Err)
	res.Trace.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.InDelta(t, 100.0, last, 1e-9)
}
