package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    1,
		Role:      "gamemaster",
		SessionID: 3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.Role != "gamemaster" {
		t.Errorf("Role = %q, want %q", got.Role, "gamemaster")
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestIsGamemaster(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Role: "gamemaster"})
	if !IsGamemaster(ctx) {
		t.Error("expected IsGamemaster = true for gamemaster role")
	}
}

func TestIsGamemasterFalse(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Role: "kid"})
	if IsGamemaster(ctx) {
		t.Error("expected IsGamemaster = false for non-gamemaster role")
	}
}

func TestIsGamemasterMissing(t *testing.T) {
	if IsGamemaster(context.Background()) {
		t.Error("expected IsGamemaster = false for missing context")
	}
}
