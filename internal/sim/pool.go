package sim

import (
	"sync"

	"github.com/san-kum/bodysim/internal/body"
)

// snapshotPool recycles snapshots dropped before they were ever flushed.
// Flushed snapshots are owned by the consumer and never come back.
type snapshotPool struct {
	pool sync.Pool
}

func newSnapshotPool() *snapshotPool {
	return &snapshotPool{
		pool: sync.Pool{
			New: func() any {
				return new(body.Snapshot)
			},
		},
	}
}

func (p *snapshotPool) Get() *body.Snapshot {
	return p.pool.Get().(*body.Snapshot)
}

func (p *snapshotPool) Put(s *body.Snapshot) {
	s.Frame = 0
	s.Time = 0
	p.pool.Put(s)
}
