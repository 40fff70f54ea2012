// Package users is a small three-tier component set run by main: a
// repository, a service on top of it and an HTTP controller.
package users

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/km-arc/go-ioc/framework/component"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/http/validation"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ErrNotFound is returned when no user has the requested ID.
var ErrNotFound = errors.New("user not found")

// User is the stored record.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
}

// Directory looks users up by ID.
type Directory interface {
	Find(id string) (User, error)
}

// ── Repository ────────────────────────────────────────────────────────────────

// Repository keeps users in memory.
type Repository struct {
	mu    sync.RWMutex
	users map[string]User
	order []string

	// Seed is created on Open when set, e.g. "Ada Lovelace <ada@example.com>".
	Seed string `property:"users.seed" default:""`
}

func NewRepository() *Repository {
	return &Repository{}
}

// Open prepares the store.
func (r *Repository) Open() error {
	r.mu.Lock()
	r.users = make(map[string]User)
	r.mu.Unlock()
	if r.Seed == "" {
		return nil
	}
	name, email, ok := splitSeed(r.Seed)
	if !ok {
		return errors.New("users.seed must look like \"Name <email>\"")
	}
	_, err := r.Create(User{Name: name, Email: email})
	return err
}

// Close drops every record.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users, r.order = nil, nil
	return nil
}

func (r *Repository) Create(u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.users == nil {
		return User{}, errors.New("repository is closed")
	}
	u.ID = uuid.NewString()
	r.users[u.ID] = u
	r.order = append(r.order, u.ID)
	return u, nil
}

func (r *Repository) Find(id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// All returns the users in creation order.
func (r *Repository) All() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.users[id])
	}
	return out
}

func splitSeed(s string) (name, email string, ok bool) {
	open := strings.LastIndex(s, "<")
	if open <= 0 || !strings.HasSuffix(s, ">") {
		return "", "", false
	}
	return strings.TrimSpace(s[:open]), s[open+1 : len(s)-1], true
}

// ── Service ───────────────────────────────────────────────────────────────────

// Service pages and validates on top of the repository.
type Service struct {
	repo *Repository

	// PageSize survives restarts through the persistence service.
	PageSize int `persist:"users.page_size" default:"20"`
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Page returns page n (1-based), sorted by name.
func (s *Service) Page(n int) []User {
	all := s.repo.All()
	sort.SliceStable(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	size := s.PageSize
	if size <= 0 {
		size = len(all)
	}
	if n < 1 {
		n = 1
	}
	start := (n - 1) * size
	if start >= len(all) {
		return []User{}
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

func (s *Service) Get(id string) (User, error) {
	return s.repo.Find(id)
}

// Register validates u and stores it.
func (s *Service) Register(u User) (User, error) {
	if err := validation.Default().Check(u); err != nil {
		return User{}, err
	}
	return s.repo.Create(u)
}

// ── Controller ────────────────────────────────────────────────────────────────

// Controller exposes the service under /api/v1/users.
type Controller struct {
	Router  *routing.Router `inject:"router"`
	Service *Service        `inject:""`
}

// Routes registers the endpoints.
func (c *Controller) Routes() {
	c.Router.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/users", c.index)
		api.Get("/users/{id}", c.show)
		api.Post("/users", c.store)
	})
}

func (c *Controller) index(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(gohttp.NewRequest(r).Query("page", "1"))
	if err != nil {
		gohttp.NewResponse(w).Error(http.StatusBadRequest, "page must be a number")
		return
	}
	gohttp.NewResponse(w).Success(c.Service.Page(page))
}

func (c *Controller) show(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	u, err := c.Service.Get(routing.Param(r, "id"))
	if errors.Is(err, ErrNotFound) {
		res.NotFound("User not found.")
		return
	}
	if err != nil {
		res.ServerError()
		return
	}
	res.Success(u)
}

func (c *Controller) store(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	var body User
	err := gohttp.NewRequest(r).BindAndValidate(&body)
	var verr *validation.Errors
	switch {
	case errors.As(err, &verr):
		res.ValidationError(verr)
		return
	case err != nil:
		res.Error(http.StatusBadRequest, err.Error())
		return
	}
	u, err := c.Service.Register(body)
	if err != nil {
		res.ServerError()
		return
	}
	res.Created(u)
}

// ── Classes ───────────────────────────────────────────────────────────────────

// Classes declares the package's components. The repository comes first
// because the service constructor needs it.
func Classes() []*component.Class {
	return []*component.Class{
		component.Of[Repository](component.TagDataAccess).
			WithConstructor(NewRepository).
			WithInit("Open", 1).
			WithDestroy("Close", 10).
			Implementing((*Directory)(nil)),
		component.Of[Service](component.TagBusinessLogic).
			WithConstructor(NewService),
		component.Of[Controller](component.TagPresentation).
			WithInit("Routes", 1),
	}
}
