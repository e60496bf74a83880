package detector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lensora/tryon-backend/tryon"
)

func TestEnsureReadyLoadsOnce(t *testing.T) {
	var loads int32
	m := &ModelManager{
		load: func() (*modelSession, error) {
			atomic.AddInt32(&loads, 1)
			time.Sleep(20 * time.Millisecond)
			return &modelSession{}, nil
		},
	}

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.EnsureReady(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&loads); got != 1 {
		t.Errorf("model loaded %d times, want 1", got)
	}
}

func TestEnsureReadyRetriesAfterFailure(t *testing.T) {
	var loads int32
	m := &ModelManager{
		load: func() (*modelSession, error) {
			if atomic.AddInt32(&loads, 1) == 1 {
				return nil, errors.New("model file missing")
			}
			return &modelSession{}, nil
		},
	}

	err := m.EnsureReady(context.Background())
	if tryon.CodeOf(err) != tryon.CodeModelInit {
		t.Fatalf("first call code = %q, want %q", tryon.CodeOf(err), tryon.CodeModelInit)
	}

	// Failure is not cached; the next call retries and succeeds.
	if err := m.EnsureReady(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := atomic.LoadInt32(&loads); got != 2 {
		t.Errorf("model loaded %d times, want 2", got)
	}

	// Loaded state is cached.
	if err := m.EnsureReady(context.Background()); err != nil {
		t.Fatalf("third call failed: %v", err)
	}
	if got := atomic.LoadInt32(&loads); got != 2 {
		t.Errorf("model loaded %d times after cached success, want 2", got)
	}
}

func TestEnsureReadyHonorsCanceledContext(t *testing.T) {
	m := &ModelManager{
		load: func() (*modelSession, error) {
			t.Fatal("load must not run for a canceled context")
			return nil, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.EnsureReady(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
