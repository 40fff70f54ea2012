package natskv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/plugin"
	"github.com/km-arc/go-ioc/framework/storage"
)

// Properties read by the module, under component.PersistencePropertyPrefix.
const (
	PropURL     = "persistence.nats.url"
	PropBucket  = "persistence.nats.bucket"
	PropTimeout = "persistence.nats.timeout"
)

// Module is a persistence bridge. When the root opts into persistence it
// connects to NATS, opens the bucket and registers itself under
// component.PersistenceModuleKey and its Service under storage.ServiceKey.
//
// A failed connection is not fatal: the module is still registered, but
// reports itself uninitialized, so entity classes fail with a configuration
// error that points at the persistence.* properties.
type Module struct {
	plugin.BaseModule

	// Bucket, if set, is used instead of connecting.
	Bucket jetstream.KeyValue

	conn        *nats.Conn
	initialized bool
}

// Initialized reports whether the bucket is open.
func (m *Module) Initialized() bool { return m.initialized }

func (m *Module) Initialize(ctx context.Context, r *plugin.Registrar) error {
	root := r.Root()
	if root.Persistence == nil {
		r.Logger().Debug("persistence not enabled; nats module idle")
		return nil
	}
	logger := r.Logger().Named("natskv")

	bucket := m.Bucket
	if bucket == nil {
		kv, err := m.connect(ctx, r, root)
		if err != nil {
			logger.Error("persistence module initialization failed", zap.Error(err))
			return r.Register(component.PersistenceModuleKey, m, container.DataAccess)
		}
		bucket = kv
	}

	var opts []Option
	if raw, ok := r.Property(PropTimeout); ok {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", PropTimeout, err)
		}
		opts = append(opts, WithTimeout(d))
	}

	if err := r.RegisterAs((*storage.Service)(nil), New(bucket, logger, opts...), container.DataAccess); err != nil {
		return err
	}
	m.initialized = true
	logger.Info("persistence module initialized",
		zap.String("bucket", bucket.Bucket()),
		zap.String("entities", root.Persistence.EntityNamespace),
	)
	return r.Register(component.PersistenceModuleKey, m, container.DataAccess)
}

func (m *Module) connect(ctx context.Context, r *plugin.Registrar, root component.Root) (jetstream.KeyValue, error) {
	url := r.Properties().Get(PropURL, nats.DefaultURL)
	name := r.Properties().Get(PropBucket, BucketName(root.Name))

	conn, err := nats.Connect(url, nats.Name(root.Name))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", url, err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.KeyValue(ctx, name)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      name,
			Description: "persisted values of " + root.Name,
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("open bucket %s: %w", name, err)
		}
	}

	m.conn = conn
	r.OnCleanup("natskv.drain", conn.Drain, 100)
	return kv, nil
}

// BucketName derives a valid bucket name from an application name.
func BucketName(app string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, app)
	if name == "" {
		return "preferences"
	}
	return name
}
