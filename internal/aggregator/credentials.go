package aggregator

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/marminbh/aggregation-connector/internal/config"
	"github.com/marminbh/aggregation-connector/internal/models"
)

// Credentials is the resolved aggregator client configuration for one
// service account. BaseURL is always normalized to an absolute origin plus
// the API version path segment, with a trailing slash.
type Credentials struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Name         string
	WebhookMode  bool
}

// configOverrides is the optional aggregator block embedded in a service
// account's free-form config blob
type configOverrides struct {
	BaseURL      string `json:"baseUrl,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	Name         string `json:"name,omitempty"`
	WebhookMode  *bool  `json:"webhookMode,omitempty"`
}

// ResolveCredentials returns the aggregator configuration for a service
// account: the global defaults, with any overrides from the account's
// config blob applied on top. Pure lookup, no side effects.
func ResolveCredentials(defaults config.AggregatorConfig, account *models.ServiceAccount) (Credentials, error) {
	creds := Credentials{
		BaseURL:      defaults.BaseURL,
		ClientID:     defaults.ClientID,
		ClientSecret: defaults.ClientSecret,
		Name:         defaults.Name,
		WebhookMode:  defaults.WebhookMode,
	}

	if account != nil && len(account.Config) > 0 {
		var overrides configOverrides
		if err := json.Unmarshal(account.Config, &overrides); err != nil {
			return Credentials{}, fmt.Errorf("failed to parse service account config: %w", err)
		}
		if overrides.BaseURL != "" {
			creds.BaseURL = overrides.BaseURL
		}
		if overrides.ClientID != "" {
			creds.ClientID = overrides.ClientID
		}
		if overrides.ClientSecret != "" {
			creds.ClientSecret = overrides.ClientSecret
		}
		if overrides.Name != "" {
			creds.Name = overrides.Name
		}
		if overrides.WebhookMode != nil {
			creds.WebhookMode = *overrides.WebhookMode
		}
	}

	normalized, err := NormalizeBaseURL(creds.BaseURL, defaults.APIVersion)
	if err != nil {
		return Credentials{}, err
	}
	creds.BaseURL = normalized

	return creds, nil
}

// NormalizeBaseURL reduces a raw base URL to its absolute origin and
// appends the API version path segment, guaranteeing a trailing slash.
// "https://demo.example.com/2.0/extra" with version "v2" becomes
// "https://demo.example.com/v2/".
func NormalizeBaseURL(raw, version string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("aggregator base URL is empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid aggregator base URL %q: %w", raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("aggregator base URL %q is not absolute", raw)
	}

	if version == "" {
		version = "v2"
	}

	return fmt.Sprintf("%s://%s/%s/", parsed.Scheme, parsed.Host, strings.Trim(version, "/")), nil
}
