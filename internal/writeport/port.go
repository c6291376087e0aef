// Package writeport serializes record writes per (module, date). Writes to
// one key run one at a time in submission order; writes to different keys
// run independently.
package writeport

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Veraticus/guild-ledger/internal/model"
)

// ErrClosed is returned for writes submitted after Close.
var ErrClosed = errors.New("write port is closed")

// Key identifies one stored record.
type Key struct {
	Date   model.Date
	Module model.Module
}

// KeyOf returns the key a record is stored under.
func KeyOf(rec model.Record) Key {
	return Key{Module: rec.Module(), Date: rec.Key()}
}

func (k Key) String() string {
	return string(k.Module) + "/" + k.Date.String()
}

// WriteFunc performs one write.
type WriteFunc func(ctx context.Context) error

type job struct {
	ctx   context.Context
	write WriteFunc
	done  chan error
}

// Port queues writes per key.
type Port struct {
	queues map[Key][]job
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// New returns an open write port.
func New() *Port {
	return &Port{queues: make(map[Key][]job)}
}

// Submit queues a write and returns a channel that receives its result.
// A write whose context is canceled before it starts is not run.
func (p *Port) Submit(ctx context.Context, key Key, write WriteFunc) <-chan error {
	done := make(chan error, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		done <- ErrClosed
		return done
	}
	q, running := p.queues[key]
	p.queues[key] = append(q, job{ctx: ctx, write: write, done: done})
	if !running {
		p.wg.Add(1)
		go p.drain(key)
	}
	p.mu.Unlock()

	return done
}

// Do queues a write and waits for it.
func (p *Port) Do(ctx context.Context, key Key, write WriteFunc) error {
	select {
	case err := <-p.Submit(ctx, key, write):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain runs the queued writes of key until the queue is empty. The key
// stays in the map while its worker runs, so Submit never starts a second
// worker for it.
func (p *Port) drain(key Key) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		q := p.queues[key]
		if len(q) == 0 {
			delete(p.queues, key)
			p.mu.Unlock()
			return
		}
		j := q[0]
		p.queues[key] = q[1:]
		p.mu.Unlock()

		err := j.ctx.Err()
		if err == nil {
			err = j.write(j.ctx)
		}
		if err != nil {
			slog.Debug("queued write failed", "key", key.String(), "error", err)
		}
		j.done <- err
	}
}

// Pending returns the number of writes of key waiting to start.
func (p *Port) Pending(key Key) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queues[key])
}

// Close stops accepting writes and waits for queued ones to finish.
func (p *Port) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
