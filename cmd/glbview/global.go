package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/skyline93/glbview/internal/backend"
	"github.com/skyline93/glbview/internal/cache"
	"github.com/skyline93/glbview/internal/config"
	"github.com/skyline93/glbview/internal/controller"
)

// GlobalOptions hold the configuration shared by all commands. Flags
// override the environment.
type GlobalOptions struct {
	Addr       string
	Origin     string
	BasePath   string
	AppVersion string
	CacheDir   string
	LogLevel   string
	LogFormat  string

	cfg config.Config
}

var globalOptions GlobalOptions

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVar(&globalOptions.Addr, "addr", "", "listen `address` (default: $GLBVIEW_ADDR or localhost:8080)")
	f.StringVar(&globalOptions.Origin, "origin", "", "origin `url` the application is fetched from (default: $GLBVIEW_ORIGIN)")
	f.StringVar(&globalOptions.BasePath, "base-path", "", "`path` the application is deployed under (default: $GLBVIEW_BASE_PATH or /)")
	f.StringVar(&globalOptions.AppVersion, "app-version", "", "cache `version` to install (default: $GLBVIEW_VERSION or the build version)")
	f.StringVar(&globalOptions.CacheDir, "cache-dir", "", "cache `directory` (default: $GLBVIEW_CACHE_DIR)")
	f.StringVar(&globalOptions.LogLevel, "log-level", "", "log `level` (default: $GLBVIEW_LOG_LEVEL or info)")
	f.StringVar(&globalOptions.LogFormat, "log-format", "", "log `format`, text or json (default: $GLBVIEW_LOG_FORMAT or text)")
}

// load reads the environment, applies the flags that were set and
// configures logging.
func (opts *GlobalOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}
	opts.apply(cmd.Flags(), &cfg)

	if err := setupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	opts.cfg = cfg
	return nil
}

func (opts *GlobalOptions) apply(flags *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("addr", &cfg.Addr, opts.Addr)
	set("origin", &cfg.Origin, opts.Origin)
	set("base-path", &cfg.BasePath, opts.BasePath)
	set("app-version", &cfg.Version, opts.AppVersion)
	set("cache-dir", &cfg.CacheDir, opts.CacheDir)
	set("log-level", &cfg.LogLevel, opts.LogLevel)
	set("log-format", &cfg.LogFormat, opts.LogFormat)

	if cfg.Version == "" {
		cfg.Version = version
	}
}

func setupLogging(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "log level %q", level)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format %q", format)
	}
	return nil
}

// openGeneration builds the configured controller generation on top of
// the cache directory.
func openGeneration(cfg config.Config) (*cache.Storage, *controller.Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	storage, err := cache.New(cfg.CacheDir)
	if err != nil {
		return nil, nil, err
	}

	opts, err := controller.OptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	be := backend.NewHTTP(backend.Config{Timeout: cfg.FetchTimeout})
	c, err := controller.New(storage, be, opts)
	if err != nil {
		return nil, nil, err
	}
	return storage, c, nil
}

// serverURL returns the absolute URL of p below the application root of
// the server listening on cfg.Addr.
func serverURL(cfg config.Config, p string) string {
	addr := cfg.Addr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + cfg.Root() + p
}
