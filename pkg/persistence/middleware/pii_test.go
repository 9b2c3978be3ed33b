package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/pitchpilot/pkg/adapters/memory"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/persistence/middleware"
)

func TestPIIMiddleware(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware([]string{`[\w.+-]+@[\w-]+\.[\w.]+`, `\+?\d[\d -]{7,}\d`})
	if err != nil {
		t.Fatalf("middleware: %v", err)
	}
	store := mw(underlyingStore)

	ctx := context.Background()
	snap := domain.NewSnapshot("pii-session")
	snap.Draft = "Landing page for jane.doe@example.com, call +1 555 010 9999"
	snap.LastError = "rejected request from jane.doe@example.com"
	snap.Active = "<a href=\"mailto:team@example.com\">contact</a>"

	if err := store.Save(ctx, "pii-session", snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if snap.Draft != "Landing page for jane.doe@example.com, call +1 555 010 9999" {
		t.Error("Original snapshot was modified")
	}

	stored, err := underlyingStore.Load(ctx, "pii-session")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if want := "Landing page for ***, call ***"; stored.Draft != want {
		t.Errorf("Expected draft %q, got %q", want, stored.Draft)
	}
	if want := "rejected request from ***"; stored.LastError != want {
		t.Errorf("Expected last error %q, got %q", want, stored.LastError)
	}
	if stored.Active != snap.Active {
		t.Error("Generated content must be stored untouched")
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}

func TestChain(t *testing.T) {
	underlyingStore := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware([]string{`secret`})
	if err != nil {
		t.Fatal(err)
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	store := middleware.Chain(underlyingStore, pii, enc)

	ctx := context.Background()
	snap := domain.NewSnapshot("chain")
	snap.Draft = "a secret page"
	if err := store.Save(ctx, "chain", snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "chain")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Draft != "a *** page" {
		t.Errorf("Expected masking before sealing, got %q", loaded.Draft)
	}
}
