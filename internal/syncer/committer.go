package syncer

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"globemap/internal/logging"
)

// Committer runs work for committed states only, off the caller's
// goroutine. A commit that arrives while work is pending replaces it.
type Committer[T any] struct {
	name   string
	work   func(ctx context.Context, v T) error
	latest Latest[T]
	kick   chan struct{}
	done   atomic.Uint64
	log    zerolog.Logger
}

func NewCommitter[T any](name string, work func(ctx context.Context, v T) error) *Committer[T] {
	return &Committer[T]{
		name: name,
		work: work,
		kick: make(chan struct{}, 1),
		log:  logging.Component("syncer").With().Str("service", name).Logger(),
	}
}

// Commit records v and wakes the worker. It never blocks.
func (c *Committer[T]) Commit(v T) {
	c.latest.Store(v)
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Processed counts finished work items.
func (c *Committer[T]) Processed() uint64 { return c.done.Load() }

// Serve implements suture.Service.
func (c *Committer[T]) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.kick:
		}
		v, ok := c.latest.Load()
		if !ok {
			continue
		}
		if err := c.work(ctx, v); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn().Err(err).Msg("commit work failed")
		}
		c.done.Add(1)
	}
}

func (c *Committer[T]) String() string { return c.name }
