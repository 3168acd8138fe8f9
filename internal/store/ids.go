package store

import (
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"
)

// IDSource mints time-derived annotation ids. Ids are the current Unix
// time in milliseconds, bumped when necessary so that they strictly
// increase; an id is never handed out twice by the same source.
// IDSource is safe for concurrent use.
type IDSource struct {
	clock clockwork.Clock

	mu   sync.Mutex
	last int64
}

// NewIDSource returns an id source reading time from clock.
func NewIDSource(clock clockwork.Clock) *IDSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &IDSource{clock: clock}
}

// Next returns a fresh id.
func (g *IDSource) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.clock.Now().UnixMilli()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	return strconv.FormatInt(n, 10)
}
