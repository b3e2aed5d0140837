// Package worker runs jobs concurrently across keys and strictly in
// submission order within a key.
package worker

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type Job func()

// KeyedQueue starts at most one goroutine per key. Jobs submitted for a key
// that is already running are appended to that key's lane.
type KeyedQueue struct {
	mu    sync.Mutex
	lanes map[int64][]Job
	wg    sync.WaitGroup
}

func NewKeyedQueue() *KeyedQueue {
	return &KeyedQueue{lanes: make(map[int64][]Job)}
}

func (q *KeyedQueue) Submit(key int64, job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if pending, running := q.lanes[key]; running {
		q.lanes[key] = append(pending, job)
		return
	}
	q.lanes[key] = []Job{}
	q.wg.Add(1)
	go q.drain(key, job)
}

func (q *KeyedQueue) drain(key int64, job Job) {
	defer q.wg.Done()
	for job != nil {
		q.run(key, job)
		q.mu.Lock()
		if pending := q.lanes[key]; len(pending) > 0 {
			job = pending[0]
			q.lanes[key] = pending[1:]
		} else {
			delete(q.lanes, key)
			job = nil
		}
		q.mu.Unlock()
	}
}

// run keeps a panicking job from taking down its lane.
func (q *KeyedQueue) run(key int64, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int64("key", key).Interface("panic", r).Msg("job panicked")
		}
	}()
	job()
}

// Pending is the number of jobs waiting behind the running one for key.
func (q *KeyedQueue) Pending(key int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes[key])
}

// Wait blocks until every submitted job has finished. Call it once no more
// jobs are being submitted.
func (q *KeyedQueue) Wait() {
	q.wg.Wait()
}
