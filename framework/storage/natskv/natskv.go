// Package natskv is a persistence backend on a NATS JetStream key/value
// bucket, plus the module initializer that connects it.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// DefaultTimeout bounds every bucket operation.
const DefaultTimeout = 5 * time.Second

// Service stores persisted values in a JetStream key/value bucket.
type Service struct {
	bucket  jetstream.KeyValue
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout overrides DefaultTimeout. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// New wraps bucket.
func New(bucket jetstream.KeyValue, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{bucket: bucket, timeout: DefaultTimeout, logger: logger.Named("natskv")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) applyTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

// Load returns the value under key. Missing and deleted keys are reported
// as absent.
func (s *Service) Load(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	entry, err := s.bucket.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return string(entry.Value()), true, nil
}

// Save puts value under key, or deletes key when value is nil.
func (s *Service) Save(ctx context.Context, key string, value *string) error {
	ctx, cancel := s.applyTimeout(ctx)
	defer cancel()

	if value == nil {
		if err := s.bucket.Delete(ctx, key); err != nil && !isNotFound(err) {
			return fmt.Errorf("kv delete %s: %w", key, err)
		}
		s.logger.Debug("kv delete", zap.String("key", key))
		return nil
	}

	rev, err := s.bucket.Put(ctx, key, []byte(*value))
	if err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	s.logger.Debug("kv put", zap.String("key", key), zap.Uint64("revision", rev))
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted)
}
