package users_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/app/users"
	"github.com/km-arc/go-ioc/framework/app"
	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/providers"
	"github.com/km-arc/go-ioc/framework/routing"
	"github.com/km-arc/go-ioc/framework/scan"
	"github.com/km-arc/go-ioc/framework/storage"
)

func start(t *testing.T, props map[string]string, persisted map[string]string) *app.Application {
	t.Helper()
	a, err := app.Run(context.Background(),
		app.Root{Name: "users-test", Namespace: "github.com/km-arc/go-ioc/app"},
		app.WithCatalog(scan.NewCatalog(users.Classes()...)),
		app.WithModules(&providers.ConfigModule{}, &providers.RoutingModule{}),
		app.WithProperties(config.FromMap(props)),
		app.WithStorage(storage.NewMemory(persisted)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })
	return a
}

func serve(t *testing.T, a *app.Application, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	router, ok := app.Resolve[*routing.Router](a, routing.Key)
	require.True(t, ok)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	Data []users.User `json:"data"`
}

type oneBody struct {
	Data users.User `json:"data"`
}

func TestUsers_SeedAndList(t *testing.T) {
	a := start(t, map[string]string{"users.seed": "Ada Lovelace <ada@example.com>"}, nil)

	rec := serve(t, a, http.MethodGet, "/api/v1/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Ada Lovelace", body.Data[0].Name)
	assert.Equal(t, "ada@example.com", body.Data[0].Email)
}

func TestUsers_CreateAndShow(t *testing.T) {
	a := start(t, nil, nil)

	rec := serve(t, a, http.MethodPost, "/api/v1/users", `{"name":"Grace","email":"grace@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created oneBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	rec = serve(t, a, http.MethodGet, "/api/v1/users/"+created.Data.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var shown oneBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shown))
	assert.Equal(t, created.Data, shown.Data)

	rec = serve(t, a, http.MethodGet, "/api/v1/users/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsers_CreateValidation(t *testing.T) {
	a := start(t, nil, nil)

	rec := serve(t, a, http.MethodPost, "/api/v1/users", `{"name":"G","email":"nope"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "email")

	rec = serve(t, a, http.MethodPost, "/api/v1/users", `{"name":"Grace","email":"grace@example.com","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsers_PageSizeIsPersisted(t *testing.T) {
	a := start(t, nil, map[string]string{"users.page_size": "1"})

	svc, ok := app.Resolve[*users.Service](a, container.TypeKey((*users.Service)(nil)))
	require.True(t, ok)
	assert.Equal(t, 1, svc.PageSize)

	for _, body := range []string{
		`{"name":"Bea","email":"bea@example.com"}`,
		`{"name":"Abe","email":"abe@example.com"}`,
	} {
		require.Equal(t, http.StatusCreated, serve(t, a, http.MethodPost, "/api/v1/users", body).Code)
	}

	var page listBody
	require.NoError(t, json.Unmarshal(serve(t, a, http.MethodGet, "/api/v1/users?page=2", "").Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Bea", page.Data[0].Name)

	require.NoError(t, a.Store(context.Background(), "users.page_size", 10))
	require.NoError(t, json.Unmarshal(serve(t, a, http.MethodGet, "/api/v1/users", "").Body.Bytes(), &page))
	assert.Len(t, page.Data, 2)
}

func TestUsers_DirectoryAlias(t *testing.T) {
	a := start(t, map[string]string{"users.seed": "Ada <ada@example.com>"}, nil)

	dir, ok := app.Resolve[users.Directory](a, container.TypeKey((*users.Directory)(nil)))
	require.True(t, ok)
	_, err := dir.Find("missing")
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestUsers_BadSeedFailsStartup(t *testing.T) {
	_, err := app.Run(context.Background(),
		app.Root{Name: "users-test"},
		app.WithCatalog(scan.NewCatalog(users.Classes()...)),
		app.WithModules(&providers.ConfigModule{}, &providers.RoutingModule{}),
		app.WithProperties(config.FromMap(map[string]string{"users.seed": "nobody"})),
		app.WithStorage(storage.NewMemory(nil)),
	)
	assert.True(t, app.IsInitializationError(err))
}
