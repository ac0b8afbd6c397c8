package llm

import (
	"context"
	"testing"
)

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "openai with key", config: Config{Provider: "openai", APIKey: "sk-test"}, wantErr: false},
		{name: "openai without key", config: Config{Provider: "openai"}, wantErr: true},
		{name: "unknown provider", config: Config{Provider: "abacus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGenerator(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewGenerator() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && g == nil {
				t.Fatalf("NewGenerator() returned nil generator without error")
			}
		})
	}
}

func TestOpenAIGenerator_EmptyPrompt(t *testing.T) {
	g := NewOpenAIGenerator(Config{APIKey: "sk-test"})

	gen, err := g.Generate(context.Background(), "", 128, nil)
	if err != nil {
		t.Fatalf("Generate(\"\") error = %v, want nil", err)
	}
	if gen.Text != "" {
		t.Errorf("Generate(\"\") text = %q, want empty", gen.Text)
	}
}
