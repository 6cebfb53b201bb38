package genai

import (
	"context"
	"testing"
)

func TestCreateAnswererNoProviders(t *testing.T) {
	a, err := CreateAnswerer(context.Background(), DefaultLLMConfig())
	if err != nil {
		t.Fatalf("CreateAnswerer() error = %v", err)
	}
	if a != nil {
		t.Error("CreateAnswerer() without API keys should return nil (disabled)")
	}
}

func TestCreateAnswererWithGemini(t *testing.T) {
	cfg := DefaultLLMConfig()
	cfg.Gemini.APIKey = "test-key"

	a, err := CreateAnswerer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateAnswerer() error = %v", err)
	}
	if a == nil {
		t.Fatal("CreateAnswerer() returned nil with Gemini configured")
	}
	defer a.Close()

	if a.Provider() != ProviderGemini {
		t.Errorf("Provider() = %s, want gemini", a.Provider())
	}
	if !a.IsEnabled() {
		t.Error("IsEnabled() should be true")
	}
}

func TestCreateAnswererProviderOrder(t *testing.T) {
	cfg := DefaultLLMConfig()
	cfg.Providers = []Provider{ProviderGroq, ProviderGemini}
	cfg.Gemini.APIKey = "gk"
	cfg.Groq.APIKey = "qk"

	a, err := CreateAnswerer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateAnswerer() error = %v", err)
	}
	if a == nil {
		t.Fatal("CreateAnswerer() returned nil")
	}
	defer a.Close()

	if a.Provider() != ProviderGroq {
		t.Errorf("Provider() = %s, want groq (first in configured order)", a.Provider())
	}
}

func TestCreateReformulatorNoProviders(t *testing.T) {
	r, err := CreateReformulator(context.Background(), DefaultLLMConfig())
	if err != nil {
		t.Fatalf("CreateReformulator() error = %v", err)
	}
	if r != nil {
		t.Error("CreateReformulator() without API keys should return nil (disabled)")
	}
}

func TestCreateReformulatorWithCerebras(t *testing.T) {
	cfg := DefaultLLMConfig()
	cfg.Cerebras.APIKey = "test-key"

	r, err := CreateReformulator(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateReformulator() error = %v", err)
	}
	if r == nil {
		t.Fatal("CreateReformulator() returned nil with Cerebras configured")
	}
	defer r.Close()

	if r.Provider() != ProviderCerebras {
		t.Errorf("Provider() = %s, want cerebras", r.Provider())
	}
}
