package storage

import (
	"context"
	"errors"
	"time"

	"github.com/immoshift/immoshift-web/internal/metrics"
)

// instrumented records operation counts and latencies of a Store.
type instrumented struct {
	Store
	m *metrics.Metrics
}

// Instrument wraps s so every operation is observed by m.
func Instrument(s Store, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{Store: s, m: m}
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func (i *instrumented) Put(ctx context.Context, s NavState) error {
	start := time.Now()
	err := i.Store.Put(ctx, s)
	i.m.ObserveStorage("put", status(err), start)
	return err
}

func (i *instrumented) Get(ctx context.Context, token string) (*NavState, error) {
	start := time.Now()
	s, err := i.Store.Get(ctx, token)
	i.m.ObserveStorage("get", status(err), start)
	return s, err
}

func (i *instrumented) Purge(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := i.Store.Purge(ctx)
	i.m.ObserveStorage("purge", status(err), start)
	return n, err
}
