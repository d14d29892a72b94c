package provider

import (
	"strings"
	"testing"
)

func Test_Config_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "ollama needs nothing",
			cfg:  Config{Backend: BackendOllama, Model: "llama3"},
		},
		{
			name:    "openai requires api key",
			cfg:     Config{Backend: BackendOpenAI, Model: "gpt-4o"},
			wantErr: "api key",
		},
		{
			name: "openai with api key",
			cfg:  Config{Backend: BackendOpenAI, Model: "gpt-4o", APIKey: "sk-test"},
		},
		{
			name:    "azure requires endpoint",
			cfg:     Config{Backend: BackendAzure, APIKey: "key", AzureDeployment: "dep"},
			wantErr: "base url",
		},
		{
			name:    "azure requires deployment",
			cfg:     Config{Backend: BackendAzure, APIKey: "key", BaseURL: "https://x.openai.azure.com"},
			wantErr: "deployment",
		},
		{
			name: "azure complete",
			cfg: Config{
				Backend:         BackendAzure,
				APIKey:          "key",
				BaseURL:         "https://x.openai.azure.com",
				AzureDeployment: "gpt-4.1",
				AzureAPIVersion: "2024-02-01",
			},
		},
		{
			name:    "bedrock requires model id",
			cfg:     Config{Backend: BackendBedrock, AWSRegion: "us-east-1"},
			wantErr: "model id",
		},
		{
			name:    "gemini requires api key",
			cfg:     Config{Backend: BackendGemini, Model: "gemini-1.5-pro"},
			wantErr: "api key",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "watson"},
			wantErr: "unknown backend",
		},
		{
			name:    "temperature out of range",
			cfg:     Config{Backend: BackendOllama, Temperature: 1.5},
			wantErr: "temperature",
		},
		{
			name:    "negative max tokens",
			cfg:     Config{Backend: BackendOllama, MaxTokens: -1},
			wantErr: "max tokens",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: unexpected error %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate: expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate: error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}
