package merkl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RequestsPerSec = 1000 // no throttling in tests
	return NewClient(cfg)
}

func TestComparativeYield_SumsLiveCampaigns(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xaf5372792a29dc6b296d6ffd4aa3386aff8f9bb2", r.URL.Query().Get("identifier"),
			"vault address is lowercased in the query")
		w.Write([]byte(`[
			{"identifier": "a", "status": "LIVE", "apr": 2.0},
			{"identifier": "b", "status": "PAST", "apr": 9.0},
			{"identifier": "c", "status": "live", "apr": 1.5}
		]`))
	})

	apy, err := c.ComparativeYield(context.Background(), "0xaF5372792a29dC6b296d6FFD4AA3386aff8f9BB2")
	require.NoError(t, err)
	assert.InDelta(t, 0.035, apy, 1e-12, "live campaign APRs sum as fractions")
}

func TestComparativeYield_NoCampaigns(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	apy, err := c.ComparativeYield(context.Background(), "0xabc0000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, 0.0, apy)
}

func TestComparativeYield_HTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	_, err := c.ComparativeYield(context.Background(), "0xabc0000000000000000000000000000000000000")
	assert.Error(t, err)
}
