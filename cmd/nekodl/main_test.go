package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"nekodl/pkg/config"
	"nekodl/pkg/provider"
	"nekodl/pkg/ui"
)

func TestExampleConfigIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(exampleConfig), 0644))

	cfg := config.DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestDownloadFlagDefaults(t *testing.T) {
	f := rootCmd.Flags()
	for name, want := range map[string]string{
		"amount":          "1",
		"path":            "./images",
		"provider":        "nekobot",
		"max-retries":     "none",
		"retry-if-exists": "false",
		"nsfw":            "false",
		"view":            "false",
	} {
		flag := f.Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, want, flag.DefValue, name)
	}
	assert.Equal(t, "c", f.Lookup("category").Shorthand)
	assert.Equal(t, "a", f.Lookup("amount").Shorthand)
	assert.Equal(t, "p", f.Lookup("path").Shorthand)
}

func TestProvidersCommand(t *testing.T) {
	var buf bytes.Buffer
	ui.SetOutput(&buf)
	t.Cleanup(func() { ui.SetOutput(os.Stdout) })

	rootCmd.SetArgs([]string{"providers"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())

	out := buf.String()
	for _, name := range registry.Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "required")
	assert.Contains(t, out, "optional")
}

type finalizeCounter struct {
	provider.Provider
	calls int
}

func (f *finalizeCounter) Name() string { return "counter" }
func (f *finalizeCounter) Finalize() error { f.calls++; return nil }

func TestSessionReleasesOnce(t *testing.T) {
	p := &finalizeCounter{}
	s := &session{provider: p}

	s.finalize()
	s.close()
	s.close()
	assert.Equal(t, 1, p.calls)
}

func TestProviderDepsLimiter(t *testing.T) {
	keyring.MockInit()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := config.DefaultConfig()
	deps := providerDeps(cfg, nil)
	require.NotNil(t, deps.Limiter)
	assert.True(t, deps.Limiter.Allow())
	assert.False(t, deps.Limiter.Allow())

	cfg.RateLimit.FetchInterval = 0
	deps = providerDeps(cfg, nil)
	assert.True(t, deps.Limiter.Allow())
	assert.True(t, deps.Limiter.Allow())
	assert.NoError(t, deps.Limiter.Wait(context.Background()))
}
