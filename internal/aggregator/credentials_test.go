package aggregator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marminbh/aggregation-connector/internal/config"
	"github.com/marminbh/aggregation-connector/internal/models"
)

func defaults() config.AggregatorConfig {
	return config.AggregatorConfig{
		BaseURL:      "https://demo.example.org/2.0/",
		ClientID:     "default-client",
		ClientSecret: "default-secret",
		APIVersion:   "v2",
		Name:         "BUDGET_INSIGHT",
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain origin", "https://demo.example.org", "https://demo.example.org/v2/"},
		{"trailing slash", "https://demo.example.org/", "https://demo.example.org/v2/"},
		{"existing path is stripped", "https://demo.example.org/2.0/extra", "https://demo.example.org/v2/"},
		{"port preserved", "http://localhost:8080/api", "http://localhost:8080/v2/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBaseURL(tt.raw, "v2")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeBaseURLRejectsRelative(t *testing.T) {
	_, err := NormalizeBaseURL("demo.example.org/v2", "v2")
	assert.Error(t, err)

	_, err = NormalizeBaseURL("", "v2")
	assert.Error(t, err)
}

func TestResolveCredentialsDefaults(t *testing.T) {
	creds, err := ResolveCredentials(defaults(), nil)
	require.NoError(t, err)

	assert.Equal(t, "https://demo.example.org/v2/", creds.BaseURL)
	assert.Equal(t, "default-client", creds.ClientID)
	assert.Equal(t, "default-secret", creds.ClientSecret)
	assert.False(t, creds.WebhookMode)
}

func TestResolveCredentialsOverrides(t *testing.T) {
	account := &models.ServiceAccount{
		ID: "sa-1",
		Config: json.RawMessage(`{
			"baseUrl": "https://tenant.example.org/anything",
			"clientId": "tenant-client",
			"webhookMode": true
		}`),
	}

	creds, err := ResolveCredentials(defaults(), account)
	require.NoError(t, err)

	assert.Equal(t, "https://tenant.example.org/v2/", creds.BaseURL)
	assert.Equal(t, "tenant-client", creds.ClientID)
	// Secret falls back to the default when not overridden
	assert.Equal(t, "default-secret", creds.ClientSecret)
	assert.True(t, creds.WebhookMode)
}

func TestResolveCredentialsBadConfig(t *testing.T) {
	account := &models.ServiceAccount{
		ID:     "sa-1",
		Config: json.RawMessage(`{not json`),
	}

	_, err := ResolveCredentials(defaults(), account)
	assert.Error(t, err)
}
