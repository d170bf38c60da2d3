package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posservice/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseURL:        "sqlite://" + filepath.Join(t.TempDir(), "pos.db"),
		DatabaseMigrate:    true,
		SeedFile:           "../platform/database/testdata/seed.yaml",
		HTTPAddr:           "127.0.0.1:0",
		CORSOrigins:        []string{"http://localhost:5173"},
		UnresolvedPolicy:   "fail-fast",
		ResolveConcurrency: 2,
		EntreeCategoryID:   3,
		BaseCategoryID:     2,
	}
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestContainer_TerminalFlow(t *testing.T) {
	c, err := NewContainerWithConfig(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Shutdown(context.Background()) })
	assert.Nil(t, c.ConsumerService())

	srv := httptest.NewServer(c.HTTPServer().Handler)
	t.Cleanup(srv.Close)
	base := srv.URL + "/terminals/front-1"

	resp := post(t, base+"/meals", map[string]any{"kind": "bowl", "base": "Fried Rice", "entrees": []string{"Orange Chicken"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	post(t, base+"/items", map[string]string{"name": "Veggie Spring Roll"})
	resp = post(t, base+"/items", map[string]string{"name": "Veggie Spring Roll"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var order struct {
		Total string `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	assert.Equal(t, "11.50", order.Total)

	resp = post(t, base+"/pay", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var receipt struct {
		SettlementID string `json:"settlement_id"`
		Receipt      string `json:"receipt"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&receipt))
	assert.NotEmpty(t, receipt.SettlementID)
	assert.Contains(t, receipt.Receipt, "- spring-roll-stock: 2.00 units")
	assert.Contains(t, receipt.Receipt, "Total Paid: $11.50")
}

func TestContainer_CORSPreflight(t *testing.T) {
	c, err := NewContainerWithConfig(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Shutdown(context.Background()) })

	req := httptest.NewRequest(http.MethodOptions, "/terminals/front-1/pay", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	c.HTTPServer().Handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewContainerWithConfig_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unsupported database url", func(c *config.Config) { c.DatabaseURL = "mysql://pos" }},
		{"missing seed file", func(c *config.Config) { c.SeedFile = "testdata/missing.yaml" }},
		{"bad policy", func(c *config.Config) { c.UnresolvedPolicy = "ignore" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := NewContainerWithConfig(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	c, err := NewContainerWithConfig(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { c.Shutdown(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, c) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
