package recall

import (
	"sync"
	"sync/atomic"
)

// IndexInput is one queued insert.
type IndexInput struct {
	ID   string
	Text string
	Meta Meta
}

// Indexer runs inserts through a background worker pool so bulk
// ingestion does not block callers on embedding or persistence. Items
// become searchable once a worker has stored them.
type Indexer struct {
	e         *Engine
	startOnce sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
	queue     chan IndexInput
	workers   int
	wg        sync.WaitGroup
}

func NewIndexer(e *Engine) *Indexer {
	return &Indexer{
		e:       e,
		queue:   make(chan IndexInput, 1024),
		workers: 4,
	}
}

func (ix *Indexer) Start() {
	ix.startOnce.Do(func() {
		for i := 0; i < ix.workers; i++ {
			ix.wg.Add(1)
			go ix.worker()
		}
	})
}

// Enqueue queues an insert without blocking. Inputs with empty text,
// inputs after Close and inputs that find the queue full are dropped;
// the last case is logged.
func (ix *Indexer) Enqueue(in IndexInput) {
	if in.Text == "" || ix.closed.Load() {
		return
	}
	ix.Start()
	select {
	case ix.queue <- in:
	default:
		// drop when the queue is full, keeping the caller low-latency
		ix.e.logger.Warn("index queue full, dropping item", "id", in.ID)
	}
}

func (ix *Indexer) worker() {
	defer ix.wg.Done()
	for in := range ix.queue {
		if err := ix.e.InsertWithID(in.ID, in.Text, in.Meta); err != nil {
			ix.e.logger.Warn("async insert failed", "id", in.ID, "err", err)
		}
	}
}

// Close stops accepting work and waits for queued inserts to finish.
func (ix *Indexer) Close() {
	ix.closeOnce.Do(func() {
		ix.closed.Store(true)
		close(ix.queue)
		ix.wg.Wait()
	})
}
