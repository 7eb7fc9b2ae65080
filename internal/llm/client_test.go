package llm

import (
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		apiKey   string
		wantName string
		wantErr  bool
	}{
		{"anthropic", ProviderAnthropic, "sk-test", "anthropic", false},
		{"openai", ProviderOpenAI, "sk-test", "openai", false},
		{"anthropic without key", ProviderAnthropic, "", "", true},
		{"openai without key", ProviderOpenAI, "", "", true},
		{"unknown provider", Provider("bard"), "sk-test", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.provider, tt.apiKey)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			if c.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", c.Name(), tt.wantName)
			}
		})
	}
}

func TestTotalTokens(t *testing.T) {
	r := &CompletionResponse{TokensIn: 120, TokensOut: 880}
	if r.TotalTokens() != 1000 {
		t.Errorf("TotalTokens() = %d", r.TotalTokens())
	}
}
