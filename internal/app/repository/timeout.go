package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sifan077/curto/internal/app/model"
	"github.com/sifan077/curto/internal/app/telemetry"
)

// DefaultTimeout bounds every store call.
const DefaultTimeout = 400 * time.Millisecond

// TimeoutOptions configures WithTimeout.
type TimeoutOptions struct {
	Timeout time.Duration
	Sink    telemetry.Sink
	Logger  *zap.Logger
}

type timedStore struct {
	next    LinkStore
	timeout time.Duration
	sink    telemetry.Sink
	logger  *zap.Logger
}

// WithTimeout wraps next so that each call is abandoned once the timeout
// elapses. An abandoned call may still complete against the backend; its
// result is discarded and the caller gets ErrTimeout. Timeouts and backend
// failures are reported to the sink separately.
func WithTimeout(next LinkStore, opts TimeoutOptions) LinkStore {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &timedStore{
		next:    next,
		timeout: timeout,
		sink:    telemetry.OrNop(opts.Sink),
		logger:  logger,
	}
}

func (s *timedStore) Insert(ctx context.Context, id, targetURL string) (*model.Link, error) {
	link, err := bounded(ctx, s.timeout, func(ctx context.Context) (*model.Link, error) {
		return s.next.Insert(ctx, id, targetURL)
	})
	return link, s.observe(telemetry.OpInsert, id, err)
}

func (s *timedStore) FindByID(ctx context.Context, id string) (*model.Link, error) {
	link, err := bounded(ctx, s.timeout, func(ctx context.Context) (*model.Link, error) {
		return s.next.FindByID(ctx, id)
	})
	return link, s.observe(telemetry.OpFind, id, err)
}

func (s *timedStore) ListAll(ctx context.Context) ([]model.Link, error) {
	links, err := bounded(ctx, s.timeout, func(ctx context.Context) ([]model.Link, error) {
		return s.next.ListAll(ctx)
	})
	return links, s.observe(telemetry.OpList, "", err)
}

func (s *timedStore) IncrementRedirectCount(ctx context.Context, id string) (*model.Link, error) {
	link, err := bounded(ctx, s.timeout, func(ctx context.Context) (*model.Link, error) {
		return s.next.IncrementRedirectCount(ctx, id)
	})
	if err == nil {
		s.logger.Debug("incremented redirect count", zap.String("id", id), zap.Int64("count", link.CountRedirects))
	}
	return link, s.observe(telemetry.OpIncrement, id, err)
}

// observe classifies err, records it and returns the error callers see.
func (s *timedStore) observe(op, id string, err error) error {
	switch {
	case err == nil, errors.Is(err, ErrLinkNotFound):
		return err
	case errors.Is(err, ErrTimeout):
		s.sink.Record(telemetry.Event{Kind: telemetry.StoreTimeout, Op: op, LinkID: id, At: time.Now()})
		s.logger.Warn("store call timed out",
			zap.String("op", op),
			zap.String("id", id),
			zap.Duration("timeout", s.timeout),
		)
		return err
	case errors.Is(err, ErrDuplicateID):
		s.sink.Record(telemetry.Event{Kind: telemetry.DuplicateID, Op: op, LinkID: id, At: time.Now()})
		return err
	default:
		s.sink.Record(telemetry.Event{Kind: telemetry.StoreFailure, Op: op, LinkID: id, At: time.Now()})
		s.logger.Error("store call failed", zap.String("op", op), zap.String("id", id), zap.Error(err))
		return storeFailure(op, err)
	}
}

// bounded runs fn and waits at most d for it. The context passed to fn is
// cancelled when bounded returns.
func bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return r.value, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}
