// Package blob stores backup payloads in an object store.
package blob

import (
	"context"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const ContentTypeJSON = "application/json"

var ErrNotFound = errors.New("blob not found")

type Store interface {
	// Put writes data under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns ErrNotFound when key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Remove deletes every key. Missing keys are not an error.
	Remove(ctx context.Context, keys []string) error
}

// Retrying retries Put and Get of the underlying store on transient errors.
type Retrying struct {
	Store    Store
	Attempts uint
}

func NewRetrying(s Store, attempts uint) *Retrying {
	return &Retrying{Store: s, Attempts: attempts}
}

func (r *Retrying) opts(ctx context.Context, op, key string) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(r.Attempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().
				Str("evt.name", "blob.retry").
				Str("op", op).
				Str("key", key).
				Uint("attempt", n+1).
				Err(err).
				Msg("blob operation failed, retrying")
		}),
	}
}

func (r *Retrying) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return retry.Do(func() error {
		return r.Store.Put(ctx, key, data, contentType)
	}, r.opts(ctx, "put", key)...)
}

func (r *Retrying) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := retry.Do(func() error {
		b, err := r.Store.Get(ctx, key)
		if err != nil {
			return err
		}
		data = b
		return nil
	}, r.opts(ctx, "get", key)...)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Retrying) Remove(ctx context.Context, keys []string) error {
	return r.Store.Remove(ctx, keys)
}
