package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(map[string]string{"GLBVIEW_CACHE_DIR": "/var/cache/glbview"})
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Addr)
	assert.Equal(t, "glb-viewer", cfg.AppID)
	assert.Equal(t, "/", cfg.BasePath)
	assert.Equal(t, 4, cfg.InstallConcurrency)
	assert.Equal(t, uint64(2), cfg.InstallRetries)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, DefaultManifest, cfg.Manifest)
	assert.Empty(t, cfg.Version)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(map[string]string{
		"GLBVIEW_VERSION":   "0.3.0",
		"GLBVIEW_CACHE_DIR": "/tmp/c",
		"GLBVIEW_MANIFEST":  "/index.html,/app.js",
		"GLBVIEW_BASE_PATH": "/viewer",
	})
	require.NoError(t, err)

	assert.Equal(t, "0.3.0", cfg.Version)
	assert.Equal(t, []string{"/index.html", "/app.js"}, cfg.Manifest)
	assert.Equal(t, "glb-viewer-0.3.0", cfg.StoreName())
	assert.Equal(t, "/viewer/", cfg.Root())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(map[string]string{"GLBVIEW_FETCH_TIMEOUT": "soon"})
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		Origin:             "https://viewer.example",
		BasePath:           "/",
		AppID:              "glb-viewer",
		Version:            "0.2.0",
		CacheDir:           "/var/cache/glbview",
		InstallConcurrency: 1,
		MaxEntryBytes:      1,
		MaxShareBytes:      1,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	for name, mutate := range map[string]func(*Config){
		"empty version":    func(c *Config) { c.Version = "" },
		"slash in version": func(c *Config) { c.Version = "1/2" },
		"relative origin":  func(c *Config) { c.Origin = "/just/a/path" },
		"ftp origin":       func(c *Config) { c.Origin = "ftp://viewer.example" },
		"relative cache":   func(c *Config) { c.CacheDir = "cache" },
		"relative base":    func(c *Config) { c.BasePath = "viewer" },
		"zero concurrency": func(c *Config) { c.InstallConcurrency = 0 },
		"zero entry limit": func(c *Config) { c.MaxEntryBytes = 0 },
	} {
		cfg := validConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestResolveManifest(t *testing.T) {
	cfg := validConfig()
	cfg.BasePath = "/viewer"
	cfg.Manifest = []string{
		"./",
		"./index.html",
		"/favicon.ico",
		"https://unpkg.com/three@0.180.0/build/three.module.js",
		" ",
	}

	got, err := cfg.ResolveManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://viewer.example/viewer/",
		"https://viewer.example/viewer/index.html",
		"https://viewer.example/favicon.ico",
		"https://unpkg.com/three@0.180.0/build/three.module.js",
	}, got)
}

func TestRoot(t *testing.T) {
	for in, want := range map[string]string{
		"/":         "/",
		"":          "/",
		"/viewer":   "/viewer/",
		"/viewer/":  "/viewer/",
		"/a//b/../": "/a/",
	} {
		cfg := validConfig()
		cfg.BasePath = in
		assert.Equal(t, want, cfg.Root(), in)
	}
}
