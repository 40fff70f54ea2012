// Package inspect serves a read-only JSON view of a component store.
//
//	GET /components          every primary component
//	GET /components/{key}    one component, by key or alias
//	GET /tiers/{tier}        components of one tier, e.g. /tiers/data-access
//	GET /metrics             Prometheus metrics, when configured
package inspect

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-ioc/framework/container"
	gohttp "github.com/km-arc/go-ioc/framework/http"
)

// Component is the JSON view of one store entry.
type Component struct {
	Key     string   `json:"key"`
	Tier    string   `json:"tier"`
	Type    string   `json:"type"`
	Aliases []string `json:"aliases,omitempty"`
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics serves h under /metrics.
func WithMetrics(h http.Handler) Option {
	return func(ih *Handler) { ih.metrics = h }
}

// Handler is the inspection API.
type Handler struct {
	store   *container.Store
	metrics http.Handler
	mux     chi.Router
}

// New creates the API over store.
func New(store *container.Store, opts ...Option) *Handler {
	h := &Handler{store: store}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Get("/components", h.list)
	r.Get("/components/*", h.show)
	r.Get("/tiers/{tier}", h.tier)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	h.mux = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).Success(h.views(h.store.Entries()))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	key := chi.URLParam(r, "*")
	if !h.store.Has(key) {
		res.NotFound(fmt.Sprintf("No component registered under %q.", key))
		return
	}
	canonical := h.store.Canonical(key)
	inst, _ := h.store.Get(canonical)
	tier, _ := h.store.TierOf(canonical)
	res.Success(h.view(container.Entry{Key: canonical, Tier: tier, Instance: inst}))
}

func (h *Handler) tier(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	tier, err := container.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		res.NotFound(err.Error())
		return
	}
	res.Success(h.views(h.store.ByTier(tier)))
}

func (h *Handler) views(entries []container.Entry) []Component {
	out := make([]Component, 0, len(entries))
	for _, e := range entries {
		out = append(out, h.view(e))
	}
	return out
}

func (h *Handler) view(e container.Entry) Component {
	return Component{
		Key:     e.Key,
		Tier:    e.Tier.String(),
		Type:    fmt.Sprintf("%T", e.Instance),
		Aliases: h.store.Aliases(e.Key),
	}
}
