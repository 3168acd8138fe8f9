package render

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned for a render whose store version was
// overtaken by a newer request before it finished. The caller should
// retry with the newest state.
var ErrSuperseded = errors.New("render superseded by a newer version")

// RenderFunc performs one render. It must honor ctx cancellation.
type RenderFunc func(ctx context.Context) (*Result, error)

// Scheduler serializes the renders of one session. Identical requests
// (same store version and draft flag) in flight at the same time share
// a single render. A request for a newer version cancels every older
// render still running, and results of older versions are discarded.
type Scheduler struct {
	group singleflight.Group

	mu       sync.Mutex
	latest   uint64
	inflight map[string]inflightRender
}

type inflightRender struct {
	version uint64
	cancel  context.CancelFunc
}

// NewScheduler creates an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{inflight: make(map[string]inflightRender)}
}

func renderKey(version uint64, withDraft bool) string {
	return strconv.FormatUint(version, 10) + "/" + strconv.FormatBool(withDraft)
}

// Do runs fn for the given store version unless an identical render is
// already in flight, in which case it waits for that one. Waiting stops
// when ctx is done. The shared render keeps the deadline of the caller
// that started it but not its cancellation; it is otherwise only
// cancelled when it is superseded.
func (s *Scheduler) Do(ctx context.Context, version uint64, withDraft bool, fn RenderFunc) (*Result, error) {
	if !s.admit(version) {
		return nil, ErrSuperseded
	}

	key := renderKey(version, withDraft)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		rctx, cancel := renderContext(ctx)
		defer cancel()

		if !s.register(key, version, cancel) {
			return nil, ErrSuperseded
		}
		defer s.unregister(key)

		return fn(rctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if s.stale(version) {
			return nil, ErrSuperseded
		}
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
				return nil, ErrSuperseded
			}
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	}
}

// renderContext detaches a shared render from the cancellation of the
// caller that started it, keeping the caller's deadline.
func renderContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(base, deadline)
	}
	return context.WithCancel(base)
}

// Latest returns the newest version seen.
func (s *Scheduler) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// admit records version as the newest one and cancels older renders.
// It reports false when version is already stale.
func (s *Scheduler) admit(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if version < s.latest {
		return false
	}
	if version > s.latest {
		s.latest = version
		for key, r := range s.inflight {
			if r.version < version {
				r.cancel()
				delete(s.inflight, key)
			}
		}
	}
	return true
}

func (s *Scheduler) register(key string, version uint64, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if version < s.latest {
		return false
	}
	s.inflight[key] = inflightRender{version: version, cancel: cancel}
	return true
}

func (s *Scheduler) unregister(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
}

func (s *Scheduler) stale(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return version < s.latest
}
