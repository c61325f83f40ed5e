package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marminbh/aggregation-connector/internal/httpx"
)

func testClient() *Client {
	return NewClient(httpx.NewClient(2*time.Second, zap.NewNop()), zap.NewNop())
}

func testCreds(baseURL string) Credentials {
	return Credentials{
		BaseURL:      baseURL + "/",
		ClientID:     "agg-client",
		ClientSecret: "agg-secret",
		Name:         "BUDGET_INSIGHT",
	}
}

func TestRedirectURL(t *testing.T) {
	creds := Credentials{
		BaseURL:  "https://demo.example.org/v2/",
		ClientID: "agg-client",
	}

	got := testClient().RedirectURL(creds, "https://cb.example.com/done")
	assert.Equal(t,
		"https://demo.example.org/v2/auth/webview/fr/connect?client_id=agg-client&redirect_uri=https://cb.example.com/done&response_type=code&state=&types=banks",
		got)
}

func TestExchangeCode(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/token/access", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(AccessToken{AccessToken: "permanent", TokenType: "Bearer"})
	}))
	defer server.Close()

	token, err := testClient().ExchangeCode(context.Background(), testCreds(server.URL), "tmp-code")
	require.NoError(t, err)

	assert.Equal(t, "permanent", token)
	assert.Equal(t, "tmp-code", gotBody["code"])
	assert.Equal(t, "agg-client", gotBody["client_id"])
	assert.Equal(t, "agg-secret", gotBody["client_secret"])
}

func TestCreateAnonymousUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/init", r.URL.Path)
		_ = json.NewEncoder(w).Encode(AnonymousUser{AuthToken: "anon-token", Type: "temporary", IDUser: 7})
	}))
	defer server.Close()

	user, err := testClient().CreateAnonymousUser(context.Background(), testCreds(server.URL))
	require.NoError(t, err)

	assert.Equal(t, "anon-token", user.AuthToken)
	assert.Equal(t, int64(7), user.IDUser)
}

func TestGetConnectionsFiltersInactive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me/connections", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(connectionsResponse{Connections: []Connection{
			{ID: 1, Active: true},
			{ID: 2, Active: false},
			{ID: 3, Active: true},
		}})
	}))
	defer server.Close()

	conns, err := testClient().GetConnections(context.Background(), testCreds(server.URL), "tok")
	require.NoError(t, err)

	require.Len(t, conns, 2)
	assert.Equal(t, int64(1), conns[0].ID)
	assert.Equal(t, int64(3), conns[1].ID)
}

func TestGetTransactionsSendsMinDate(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/me/accounts/101/transactions", r.URL.Path)
		gotQuery = r.URL.Query().Get("min_date")
		_ = json.NewEncoder(w).Encode(transactionsResponse{Transactions: []Transaction{
			{ID: 1001, Value: -10},
		}})
	}))
	defer server.Close()

	since := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	txns, err := testClient().GetTransactions(context.Background(), testCreds(server.URL), "tok", 101, since)
	require.NoError(t, err)

	assert.Equal(t, "2026-04-01", gotQuery)
	require.Len(t, txns, 1)
}

func TestUpstreamErrorSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient().GetAccounts(context.Background(), testCreds(server.URL), "bad-token")
	require.Error(t, err)

	var upstream *httpx.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
}
