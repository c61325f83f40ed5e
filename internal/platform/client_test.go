package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/httpx"
	"github.com/marminbh/aggregation-connector/internal/models"
)

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, ClientCredentials{ClientID: "own-client", ClientSecret: "own-secret"},
		httpx.NewClient(2*time.Second, zap.NewNop()), zap.NewNop())
}

func TestAccessTokenCached(t *testing.T) {
	var tokenCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&tokenCalls, 1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_credentials", body["grant_type"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok-1",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/v1/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]models.Subscription{})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	creds := ClientCredentials{ClientID: "sa-client", ClientSecret: "sa-secret"}

	_, err := client.GetSubscriptions(context.Background(), creds)
	require.NoError(t, err)
	_, err = client.GetSubscriptions(context.Background(), creds)
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&tokenCalls), "second call must reuse the cached token")
}

func TestPatchEventStatus(t *testing.T) {
	var gotPath, gotStatus string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/v1/subscriptions/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		gotPath = r.URL.Path
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotStatus = body["status"]
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	creds := ClientCredentials{ClientID: "sa-client", ClientSecret: "sa-secret"}

	err := client.PatchEventStatus(context.Background(), creds, "sub-1", "evt-1", models.EventStatusProcessed)
	require.NoError(t, err)

	assert.Equal(t, "/v1/subscriptions/sub-1/events/evt-1", gotPath)
	assert.Equal(t, "PROCESSED", gotStatus)
}

func TestGetServiceAccountsUsesOwnCredentials(t *testing.T) {
	var gotClientID string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotClientID = body["client_id"]
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/v1/service-accounts", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.ServiceAccount{{ID: "sa-1", ClientID: "client-1"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	accounts, err := newTestClient(server.URL).GetServiceAccounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "own-client", gotClientID)
	require.Len(t, accounts, 1)
	assert.Equal(t, "sa-1", accounts[0].ID)
}

func TestTokenExpiryFallsBackToJWTClaim(t *testing.T) {
	// exp far in the future, no expires_in in the response
	resp := tokenResponse{
		// header {"alg":"none"} . payload {"exp": 4102444800} . empty sig
		AccessToken: "eyJhbGciOiJub25lIn0.eyJleHAiOjQxMDI0NDQ4MDB9.",
	}

	expiry := tokenExpiry(resp)
	assert.WithinDuration(t, time.Unix(4102444800, 0), expiry, time.Second)
}

func TestTokenExpiryPrefersExpiresIn(t *testing.T) {
	resp := tokenResponse{AccessToken: "opaque", ExpiresIn: 120}

	expiry := tokenExpiry(resp)
	assert.WithinDuration(t, time.Now().Add(120*time.Second), expiry, 2*time.Second)
}
