package platform

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens are refreshed slightly before their reported expiry
const expiryMargin = 30 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

func (t cachedToken) valid() bool {
	return t.value != "" && time.Now().Before(t.expiresAt.Add(-expiryMargin))
}

// tokenCache caches one OAuth2 client-credentials token per client id
type tokenCache struct {
	mu     sync.Mutex
	tokens map[string]cachedToken
}

func newTokenCache() *tokenCache {
	return &tokenCache{tokens: make(map[string]cachedToken)}
}

// accessToken returns a valid cached token for the credentials, requesting
// a fresh one from the platform when needed
func (c *Client) accessToken(ctx context.Context, creds ClientCredentials) (string, error) {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	if tok, ok := c.cache.tokens[creds.ClientID]; ok && tok.valid() {
		return tok.value, nil
	}

	body := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
	}

	var resp tokenResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/oauth/token", body, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to get platform access token: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("platform returned an empty access token")
	}

	c.cache.tokens[creds.ClientID] = cachedToken{
		value:     resp.AccessToken,
		expiresAt: tokenExpiry(resp),
	}
	return resp.AccessToken, nil
}

// tokenExpiry prefers the expires_in field; when absent it falls back to
// the token's own exp claim (read without signature verification, since we
// only need the timestamp, not trust in it)
func tokenExpiry(resp tokenResponse) time.Time {
	if resp.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(resp.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}

	// No usable expiry at all; keep the token briefly
	return time.Now().Add(time.Minute)
}
