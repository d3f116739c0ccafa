// Package providertest holds helpers for testing provider adapters against
// httptest servers.
package providertest

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"nekodl/pkg/config"
	"nekodl/pkg/gateway"
	"nekodl/pkg/logger"
	"nekodl/pkg/provider"
)

// Deps returns provider dependencies with a quiet logger, no pacing and a
// gateway that retries quickly
func Deps(t *testing.T) provider.Deps {
	t.Helper()
	cfg := config.DefaultConfig().Gateway
	cfg.DefaultRetryAfter = 10 * time.Millisecond
	cfg.MaxRetryAfter = 50 * time.Millisecond

	gw := gateway.NewClient(cfg, logger.NewNopLogger())
	gw.SetProbeDelay(time.Millisecond)
	gw.SetTransientDelay(time.Millisecond)
	t.Cleanup(func() { _ = gw.Close() })

	return provider.Deps{
		Gateway: gw,
		Logger:  logger.NewNopLogger(),
	}
}

// JSON writes v as a JSON response body
func JSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}
