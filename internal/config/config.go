// Package config loads the controller configuration from the environment.
package config

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// DefaultManifest mirrors the application shell and the pinned three.js
// modules it imports.
var DefaultManifest = []string{
	"./",
	"./index.html",
	"./style.css",
	"./app.js",
	"./manifest.json",
	"https://unpkg.com/three@0.180.0/build/three.module.js",
	"https://unpkg.com/three@0.180.0/examples/jsm/controls/OrbitControls.js",
	"https://unpkg.com/three@0.180.0/examples/jsm/loaders/GLTFLoader.js",
}

// Config holds everything needed to run a controller generation.
type Config struct {
	// Addr is the listen address of the server.
	Addr string `env:"GLBVIEW_ADDR" envDefault:"localhost:8080"`
	// Origin is the network location the application shell is fetched from.
	Origin string `env:"GLBVIEW_ORIGIN" envDefault:"http://localhost:8000"`
	// BasePath is the path the application is deployed under. The share
	// target is the root document below it.
	BasePath string `env:"GLBVIEW_BASE_PATH" envDefault:"/"`
	AppID    string `env:"GLBVIEW_APP_ID" envDefault:"glb-viewer"`
	// Version names the generation. Empty means the build version.
	Version  string   `env:"GLBVIEW_VERSION"`
	CacheDir string   `env:"GLBVIEW_CACHE_DIR"`
	Manifest []string `env:"GLBVIEW_MANIFEST" envSeparator:","`

	InstallConcurrency int           `env:"GLBVIEW_INSTALL_CONCURRENCY" envDefault:"4"`
	InstallRetries     uint64        `env:"GLBVIEW_INSTALL_RETRIES" envDefault:"2"`
	FetchTimeout       time.Duration `env:"GLBVIEW_FETCH_TIMEOUT" envDefault:"30s"`
	MaxEntryBytes      int64         `env:"GLBVIEW_MAX_ENTRY_BYTES" envDefault:"268435456"`
	MaxShareBytes      int64         `env:"GLBVIEW_MAX_SHARE_BYTES" envDefault:"268435456"`

	LogLevel  string `env:"GLBVIEW_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GLBVIEW_LOG_FORMAT" envDefault:"text"`
}

// Load parses the configuration from environ, or from the process
// environment when environ is nil.
func Load(environ map[string]string) (Config, error) {
	var cfg Config

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}

	if len(cfg.Manifest) == 0 {
		cfg.Manifest = append([]string(nil), DefaultManifest...)
	}

	if cfg.CacheDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return Config{}, errors.Wrap(err, "locate cache directory")
		}
		cfg.CacheDir = filepath.Join(dir, "glbview")
	}

	return cfg, nil
}

// Validate checks that cfg can be used to run a generation.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Version) == "" {
		return errors.New("version is required")
	}
	if strings.TrimSpace(cfg.AppID) == "" {
		return errors.New("app id is required")
	}
	if strings.ContainsAny(cfg.AppID+cfg.Version, `/\`) {
		return errors.Errorf("app id and version must not contain path separators: %q %q", cfg.AppID, cfg.Version)
	}
	if _, err := cfg.OriginURL(); err != nil {
		return err
	}
	if !filepath.IsAbs(cfg.CacheDir) {
		return errors.Errorf("cache directory %q is not absolute", cfg.CacheDir)
	}
	if !strings.HasPrefix(cfg.BasePath, "/") {
		return errors.Errorf("base path %q must start with /", cfg.BasePath)
	}
	if cfg.InstallConcurrency < 1 {
		return errors.Errorf("install concurrency must be positive, got %d", cfg.InstallConcurrency)
	}
	if cfg.MaxEntryBytes <= 0 || cfg.MaxShareBytes <= 0 {
		return errors.New("size limits must be positive")
	}
	return nil
}

// StoreName returns the name of the store owned by the configured version.
func (cfg Config) StoreName() string {
	return StoreName(cfg.AppID, cfg.Version)
}

// StoreName derives the store name of a generation.
func StoreName(appID, version string) string {
	return appID + "-" + version
}

// OriginURL parses Origin, which must be an absolute http(s) URL.
func (cfg Config) OriginURL() (*url.URL, error) {
	u, err := url.Parse(cfg.Origin)
	if err != nil {
		return nil, errors.Wrapf(err, "parse origin %q", cfg.Origin)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("origin %q is not an absolute http(s) URL", cfg.Origin)
	}
	return u, nil
}

// Root returns the path of the application root document, always with a
// trailing slash.
func (cfg Config) Root() string {
	p := path.Clean("/" + cfg.BasePath)
	if p == "/" {
		return p
	}
	return p + "/"
}

// ResolveManifest returns the manifest as absolute URLs. Relative entries
// are resolved against the origin and base path.
func (cfg Config) ResolveManifest() ([]string, error) {
	origin, err := cfg.OriginURL()
	if err != nil {
		return nil, err
	}
	base := origin.ResolveReference(&url.URL{Path: cfg.Root()})

	out := make([]string, 0, len(cfg.Manifest))
	for _, entry := range cfg.Manifest {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		ref, err := url.Parse(entry)
		if err != nil {
			return nil, errors.Wrapf(err, "parse manifest entry %q", entry)
		}
		out = append(out, base.ResolveReference(ref).String())
	}
	return out, nil
}
