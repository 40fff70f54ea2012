// Package providers holds the framework's own module initializers.
//
// The usual list, in order:
//
//	plugin.NewRegistry().AddModule(
//	    &providers.ConfigModule{},
//	    &providers.RoutingModule{},
//	    &providers.InspectModule{},
//	    &providers.ServerModule{},
//	)
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/inspect"
	"github.com/km-arc/go-ioc/framework/metrics"
	"github.com/km-arc/go-ioc/framework/plugin"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ── ConfigModule ──────────────────────────────────────────────────────────────

// ConfigKey is the store key of the Property Table.
const ConfigKey = "config"

// ConfigModule registers the Property Table as a component, so classes can
// inject *config.Properties directly.
//
// Registered keys:
//   - "config"                     → *config.Properties
//   - the *config.Properties type key (alias)
type ConfigModule struct {
	plugin.BaseModule
}

func (m *ConfigModule) Initialize(_ context.Context, r *plugin.Registrar) error {
	props := r.Properties()
	if err := r.Register(ConfigKey, props, container.Default); err != nil {
		return err
	}
	return r.Store().Alias(ConfigKey, container.TypeKey((*config.Properties)(nil)))
}

// ── RoutingModule ─────────────────────────────────────────────────────────────

// RoutingModule registers the HTTP router in the presentation tier.
//
// Registered keys:
//   - "router"                     → *routing.Router
//   - the *routing.Router type key (alias)
type RoutingModule struct {
	plugin.BaseModule
}

func (m *RoutingModule) Initialize(_ context.Context, r *plugin.Registrar) error {
	router := routing.New(r.Logger().Named("http"))
	if err := r.Register(routing.Key, router, container.Presentation); err != nil {
		return err
	}
	return r.Store().Alias(routing.Key, container.TypeKey(router))
}

// ── InspectModule ─────────────────────────────────────────────────────────────

// DefaultInspectPrefix is where InspectModule mounts the inspection API.
const DefaultInspectPrefix = "/_ioc"

// InspectModule mounts the inspection API on the router once every tier is
// initialized. The application's metrics are served with it when present.
type InspectModule struct {
	plugin.BaseModule
	Prefix string // default: "/_ioc"
}

func (m *InspectModule) Initialize(context.Context, *plugin.Registrar) error { return nil }

func (m *InspectModule) Boot(_ context.Context, store *container.Store) error {
	router, ok := container.Resolve[*routing.Router](store, routing.Key)
	if !ok {
		return errors.New("inspect: no router registered; add RoutingModule first")
	}
	var opts []inspect.Option
	if c, ok := container.Resolve[*metrics.Collector](store, metrics.Key); ok {
		opts = append(opts, inspect.WithMetrics(c.Handler()))
	}
	prefix := m.Prefix
	if prefix == "" {
		prefix = DefaultInspectPrefix
	}
	router.Mount(prefix, inspect.New(store, opts...))
	return nil
}

// ── ServerModule ──────────────────────────────────────────────────────────────

// Properties read by ServerModule.
const (
	PropHTTPAddr = "http.addr"
	DefaultAddr  = ":8080"
)

// ServerModule serves the router once the application has booted and
// shuts the server down as the first cleanup task.
type ServerModule struct {
	plugin.BaseModule

	addr     string
	logger   *zap.Logger
	server   *http.Server
	listener net.Listener
}

func (m *ServerModule) Initialize(_ context.Context, r *plugin.Registrar) error {
	m.addr = r.Properties().Get(PropHTTPAddr, DefaultAddr)
	m.logger = r.Logger().Named("http")
	r.OnCleanup("http.shutdown", m.shutdown, 0)
	return nil
}

func (m *ServerModule) Boot(_ context.Context, store *container.Store) error {
	router, ok := container.Resolve[*routing.Router](store, routing.Key)
	if !ok {
		return errors.New("server: no router registered; add RoutingModule first")
	}
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", m.addr, err)
	}
	m.listener = ln
	m.server = &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	m.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Boot.
func (m *ServerModule) Addr() string {
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *ServerModule) shutdown() error {
	if m.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}
