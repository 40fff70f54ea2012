package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/km-arc/go-ioc/framework/http/validation"
)

type signup struct {
	Name     string   `json:"name" validate:"required,min=2,max=10"`
	Email    string   `json:"email" validate:"required,email"`
	Age      int      `json:"age" validate:"gte=18"`
	Role     string   `json:"role,omitempty" validate:"omitempty,oneof=admin user"`
	Password string   `json:"password" validate:"required"`
	Confirm  string   `json:"confirm" validate:"eqfield=Password"`
	Tags     []string `validate:"dive,required"`
}

func valid() signup {
	return signup{Name: "Alice", Email: "alice@example.com", Age: 30, Password: "pw", Confirm: "pw"}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func bag(t *testing.T, s any) *validation.Errors {
	t.Helper()
	err := validation.New().Check(s)
	if err == nil {
		t.Fatalf("expected FAIL, validator PASSED")
	}
	var b *validation.Errors
	if !errors.As(err, &b) {
		t.Fatalf("expected *validation.Errors, got %T: %v", err, err)
	}
	return b
}

func fail(t *testing.T, label, field string, mutate func(*signup)) {
	t.Helper()
	t.Run(label, func(t *testing.T) {
		s := valid()
		mutate(&s)
		if msg := bag(t, &s).First(field); msg == "" {
			t.Errorf("expected error on field %q", field)
		}
	})
}

// ── rules ────────────────────────────────────────────────────────────────────

func TestCheck_Passes(t *testing.T) {
	s := valid()
	if err := validation.New().Check(&s); err != nil {
		t.Errorf("expected PASS, got %v", err)
	}
}

func TestCheck_Rules(t *testing.T) {
	fail(t, "required", "name", func(s *signup) { s.Name = "" })
	fail(t, "min length", "name", func(s *signup) { s.Name = "A" })
	fail(t, "max length", "name", func(s *signup) { s.Name = "Bartholomew Jr" })
	fail(t, "email", "email", func(s *signup) { s.Email = "not-an-email" })
	fail(t, "gte", "age", func(s *signup) { s.Age = 17 })
	fail(t, "oneof", "role", func(s *signup) { s.Role = "root" })
	fail(t, "eqfield", "confirm", func(s *signup) { s.Confirm = "other" })
	fail(t, "dive", "Tags[1]", func(s *signup) { s.Tags = []string{"ok", ""} })
}

func TestCheck_Messages(t *testing.T) {
	s := valid()
	s.Name, s.Age = "", 17
	b := bag(t, &s)

	tests := map[string]string{
		"name": "The name field is required.",
		"age":  "The age must be greater than or equal to 18.",
	}
	for field, want := range tests {
		if got := b.First(field); got != want {
			t.Errorf("%s: got %q want %q", field, got, want)
		}
	}
}

func TestErrors_ErrorString(t *testing.T) {
	s := valid()
	s.Name, s.Email = "", ""
	msg := bag(t, &s).Error()

	if !strings.HasPrefix(msg, "The email") {
		t.Errorf("fields should be sorted, got %q", msg)
	}
	if !strings.Contains(msg, "The name field is required.") {
		t.Errorf("missing name message in %q", msg)
	}
}

func TestCheck_NotAStruct(t *testing.T) {
	err := validation.New().Check("nope")
	if err == nil {
		t.Fatal("expected an error")
	}
	var b *validation.Errors
	if errors.As(err, &b) {
		t.Error("non-struct input should not produce a message bag")
	}
}

func TestDefault_Shared(t *testing.T) {
	if validation.Default() != validation.Default() {
		t.Error("Default should return the same instance")
	}
}
