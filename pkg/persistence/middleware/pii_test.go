package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := NewMockSessionStore()
	mw, err := middleware.NewPIIMiddleware([]string{"^email$", "^age$", "^height_"})
	if err != nil {
		t.Fatalf("NewPIIMiddleware failed: %v", err)
	}
	secure := mw(underlying)

	ctx := context.Background()
	email := "jane@example.com"
	step := 12
	answers := map[string]any{
		"weight-loss-goal": "10-20",
		"age":              map[string]string{"age": "41"},
		"height":           map[string]string{"height_cm": "170", "unit": "metric"},
		"target-zones":     []string{"arms"},
		"email":            email,
	}

	if err := secure.Update(ctx, "s1", domain.SessionUpdate{Answers: answers, CurrentStep: &step, Email: &email}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// The caller's map is not modified.
	if answers["email"] != email {
		t.Error("Middleware modified the original answers!")
	}
	if answers["age"].(map[string]string)["age"] != "41" {
		t.Error("Middleware modified a nested answer!")
	}

	got := underlying.updates[0]
	if got.Answers["weight-loss-goal"] != "10-20" {
		t.Error("Goal shouldn't be masked")
	}
	if got.Answers["email"] != middleware.Mask {
		t.Errorf("Email answer should be masked, got: %v", got.Answers["email"])
	}
	if got.Answers["age"] != middleware.Mask {
		t.Errorf("Age answer should be masked, got: %v", got.Answers["age"])
	}
	height := got.Answers["height"].(map[string]string)
	if height["height_cm"] != middleware.Mask || height["unit"] != "metric" {
		t.Errorf("Nested height field should be masked, got: %v", height)
	}
	if got.Email == nil || *got.Email != middleware.Mask {
		t.Errorf("Email field should be masked, got: %v", got.Email)
	}
	if got.CurrentStep == nil || *got.CurrentStep != 12 {
		t.Error("Current step should pass through")
	}
}

func TestPIIMiddleware_Passthrough(t *testing.T) {
	underlying := NewMockSessionStore()
	mw, err := middleware.NewPIIMiddleware([]string{"password"})
	if err != nil {
		t.Fatal(err)
	}
	secure := mw(underlying)

	id, err := secure.Create(context.Background(), domain.UTM{Source: "ads"})
	if err != nil || id != "mock-session" {
		t.Fatalf("Create should pass through, got %q %v", id, err)
	}

	email := "jane@example.com"
	if err := secure.Update(context.Background(), id, domain.SessionUpdate{Email: &email}); err != nil {
		t.Fatal(err)
	}
	if *underlying.updates[0].Email != email {
		t.Error("Email should not be masked without a matching pattern")
	}
	if underlying.updates[0].Answers != nil {
		t.Error("Nil answers should stay nil")
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"^email$", "(unclosed"}); err == nil {
		t.Fatal("Expected an error for an invalid pattern")
	}
}
