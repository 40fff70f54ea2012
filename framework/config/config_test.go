package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/km-arc/go-ioc/framework/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "application.properties", "app.name=Demo\napp.port=8000\n# comment\nfeature.enabled=true\n")

	props, err := config.Load(dir, "application.properties")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"app.name", "Demo"},
		{"app.port", "8000"},
		{"feature.enabled", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := props.Lookup(tt.key)
			if !ok {
				t.Fatalf("%s missing", tt.key)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_LaterFilesOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.properties", "app.name=Base\napp.env=local\n")
	writeFile(t, dir, "prod.properties", "app.env=production\n")

	props, err := config.Load(dir, "base.properties", "prod.properties")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if got := props.Get("app.env", ""); got != "production" {
		t.Errorf("app.env: got %q want %q", got, "production")
	}
	if got := props.Get("app.name", ""); got != "Base" {
		t.Errorf("app.name: got %q want %q", got, "Base")
	}
	if props.Len() != 2 {
		t.Errorf("Len: got %d want 2", props.Len())
	}
}

func TestLoad_DollarValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "application.properties", `db.password=pa$word
BASE=http://x
api.url=${BASE}/api
lost.url=http://x/${NOT_DEFINED_HERE}
raw.url='http://x/${HOME}'
esc.url=http://x/\${HOME}
`)

	props, err := config.Load(dir, "application.properties")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"db.password", "pa$word"},
		{"api.url", "http://x/api"},
		{"lost.url", "http://x/"},
		{"raw.url", "http://x/${HOME}"},
		{"esc.url", "http://x/${HOME}"},
	}
	for _, tt := range tests {
		if got := props.Get(tt.key, "<missing>"); got != tt.want {
			t.Errorf("%s: got %q want %q", tt.key, got, tt.want)
		}
	}
}

func TestLoad_KeysOfOneFileSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.properties", "zeta=1\nalpha=2\n")
	writeFile(t, dir, "b.properties", "beta=3\nzeta=4\n")

	props, err := config.Load(dir, "a.properties", "b.properties")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	keys := props.Keys()
	want := []string{"alpha", "zeta", "beta"}
	if len(keys) != len(want) {
		t.Fatalf("got %v want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("got %v want %v", keys, want)
			break
		}
	}
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	_, err := config.Load(t.TempDir(), "nope.properties")

	var loadErr *config.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("want LoadError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("want ErrNotExist in chain, got %v", err)
	}
}

func TestLoad_NoFiles(t *testing.T) {
	props, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if props.Len() != 0 {
		t.Errorf("Len: got %d want 0", props.Len())
	}
}

// ── Get / GetInt / GetBool ───────────────────────────────────────────────────

func TestGet_ReturnsFallback(t *testing.T) {
	props := config.NewProperties()
	if got := props.Get("missing", "fallback"); got != "fallback" {
		t.Errorf("got %q want %q", got, "fallback")
	}
}

func TestGetInt(t *testing.T) {
	props := config.FromMap(map[string]string{"n": "42", "bad": "notanint"})
	if got := props.GetInt("n", 0); got != 42 {
		t.Errorf("got %d want %d", got, 42)
	}
	if got := props.GetInt("bad", 99); got != 99 {
		t.Errorf("got %d want %d", got, 99)
	}
	if got := props.GetInt("missing", 7); got != 7 {
		t.Errorf("got %d want %d", got, 7)
	}
}

func TestGetBool(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		props := config.FromMap(map[string]string{"b": val})
		if !props.GetBool("b", false) {
			t.Errorf("expected true for %q", val)
		}
	}
	props := config.FromMap(map[string]string{"b": "notabool"})
	if props.GetBool("b", true) != true {
		t.Error("expected fallback true")
	}
}

// ── Keys / WithPrefix ────────────────────────────────────────────────────────

func TestKeys_FirstSeenOrder(t *testing.T) {
	props := config.NewProperties()
	props.Set("b", "1")
	props.Set("a", "2")
	props.Set("b", "3")

	keys := props.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("got %v want [b a]", keys)
	}
	if got := props.Get("b", ""); got != "3" {
		t.Errorf("got %q want %q", got, "3")
	}
}

func TestWithPrefix(t *testing.T) {
	props := config.FromMap(map[string]string{
		"persistence.nats.url":    "nats://x",
		"persistence.nats.bucket": "prefs",
		"app.name":                "Demo",
	})

	got := props.WithPrefix("persistence.nats.")
	if len(got) != 2 || got["url"] != "nats://x" || got["bucket"] != "prefs" {
		t.Errorf("got %v", got)
	}
}
