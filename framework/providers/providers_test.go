package providers_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/cleanup"
	"github.com/km-arc/go-ioc/framework/component"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/metrics"
	"github.com/km-arc/go-ioc/framework/plugin"
	"github.com/km-arc/go-ioc/framework/providers"
	"github.com/km-arc/go-ioc/framework/routing"
)

func setup(t *testing.T, props map[string]string) (*plugin.Registrar, *cleanup.Registry) {
	t.Helper()
	cl := cleanup.New(nil)
	return plugin.NewRegistrar(plugin.Deps{
		Store:      container.New(),
		Properties: config.FromMap(props),
		Root:       component.Root{Name: "test"},
		Cleanup:    cl,
	}), cl
}

func TestConfigModule(t *testing.T) {
	r, _ := setup(t, map[string]string{"a": "1"})

	require.NoError(t, (&providers.ConfigModule{}).Initialize(context.Background(), r))

	props, ok := container.Resolve[*config.Properties](r.Store(), container.TypeKey((*config.Properties)(nil)))
	require.True(t, ok)
	assert.Equal(t, "1", props.Get("a", ""))
	assert.True(t, r.Store().Has(providers.ConfigKey))
}

func TestRoutingModule(t *testing.T) {
	r, _ := setup(t, nil)

	require.NoError(t, (&providers.RoutingModule{}).Initialize(context.Background(), r))

	tier, ok := r.Store().TierOf(routing.Key)
	require.True(t, ok)
	assert.Equal(t, container.Presentation, tier)
	_, ok = container.Resolve[*routing.Router](r.Store(), container.TypeKey(&routing.Router{}))
	assert.True(t, ok)
}

func TestInspectModule_NeedsRouter(t *testing.T) {
	r, _ := setup(t, nil)

	assert.Error(t, (&providers.InspectModule{}).Boot(context.Background(), r.Store()))
}

func TestServerModule_ServesAndShutsDown(t *testing.T) {
	ctx := context.Background()
	r, cl := setup(t, map[string]string{providers.PropHTTPAddr: "127.0.0.1:0"})
	require.NoError(t, r.Register(metrics.Key, metrics.New(), container.Default))

	server := &providers.ServerModule{}
	reg := plugin.NewRegistry().AddModule(
		&providers.RoutingModule{},
		&providers.InspectModule{},
		server,
	)
	require.NoError(t, reg.InitializeModules(ctx, r))

	router := container.MustResolve[*routing.Router](r.Store(), routing.Key)
	router.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) })

	require.NoError(t, reg.Boot(ctx, r.Store()))
	require.NotEmpty(t, server.Addr())

	resp, err := http.Get("http://" + server.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	resp, err = http.Get("http://" + server.Addr() + providers.DefaultInspectPrefix + "/components/" + routing.Key)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + server.Addr() + providers.DefaultInspectPrefix + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, cl.Cleanup())
	_, err = http.Get("http://" + server.Addr() + "/ping")
	assert.Error(t, err)
}
