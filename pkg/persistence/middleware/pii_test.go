package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/scenestack/pkg/adapters/memory"
	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/aretw0/scenestack/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	// Mask keys containing "password" or "ssn"
	secureStore := middleware.NewPIIMiddleware([]string{"password", "ssn"})(underlyingStore)

	ctx := context.Background()
	args := map[string]any{
		"username":      "jdoe",
		"user_password": "secret123",
		"details": map[string]any{
			"address":    "123 St",
			"ssn_number": "999-99-9999",
		},
	}
	snapshot := domain.StackSnapshot{Entries: []domain.EntryRecord{
		{Type: "title", Arg: "plain"},
		{Type: "profile", Arg: args},
	}}

	if err := secureStore.Save(ctx, "pii-slot", snapshot); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The live arguments are untouched
	if args["user_password"] != "secret123" {
		t.Error("Middleware modified the live argument!")
	}

	stored, err := underlyingStore.Load(ctx, "pii-slot")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if stored.Entries[0].Arg != "plain" {
		t.Errorf("Non-map arguments should pass through, got %v", stored.Entries[0].Arg)
	}

	masked := stored.Entries[1].Arg.(map[string]any)
	if masked["username"] != "jdoe" {
		t.Error("Username shouldn't be masked")
	}
	if masked["user_password"] != middleware.Mask {
		t.Errorf("Password should be masked, got: %v", masked["user_password"])
	}
	details := masked["details"].(map[string]any)
	if details["ssn_number"] != middleware.Mask {
		t.Errorf("Nested SSN should be masked, got: %v", details["ssn_number"])
	}
}

func TestChain_Order(t *testing.T) {
	underlyingStore := memory.NewStore()
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{"token"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)

	ctx := context.Background()
	snapshot := domain.StackSnapshot{Entries: []domain.EntryRecord{{Type: "shop", Arg: map[string]any{"token": "abc"}}}}
	if err := store.Save(ctx, "slot", snapshot); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "slot")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := loaded.Entries[0].Arg.(map[string]any)["token"]; got != middleware.Mask {
		t.Errorf("Expected masked token after decryption, got %v", got)
	}
}
