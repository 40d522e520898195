package cli

import (
	"os"

	"github.com/cockroachdb/errors"

	"github.com/andresharpe/cute-sub002/internal/api"
	"github.com/andresharpe/cute-sub002/internal/bulk"
	"github.com/andresharpe/cute-sub002/internal/config"
	inthttp "github.com/andresharpe/cute-sub002/internal/http"
	"github.com/andresharpe/cute-sub002/internal/metrics"
	"github.com/andresharpe/cute-sub002/internal/progress"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

// ProxyPasswordEnvVar supplies the proxy password without a prompt.
const ProxyPasswordEnvVar = "CUTE_PROXY_PASSWORD"

// configPath returns --config or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file and applies flag overrides and the API key chain.
// Priority: flags > token file > config file > environment > defaults
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}

	cfg.Merge(config.Overrides{
		BaseURL:       apiBaseURL,
		SpaceID:       spaceID,
		Environment:   environment,
		ChunkSize:     chunkSize,
		MaxInFlight:   maxInFlight,
		MaxConcurrent: maxConcurrent,
	})

	key, source, err := config.ResolveAPIKeySource(apiKey, tokenFile, cfg)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = key
	if source != "" {
		GetLogger().Debug().Str("source", source).Msg("API key resolved")
	}

	if inthttp.NeedsProxyPassword(cfg) {
		if pw := os.Getenv(ProxyPasswordEnvVar); pw != "" {
			cfg.ProxyPassword = pw
		} else if interactive() {
			pw, err := newPrompter(os.Stdin, os.Stderr).secret("Proxy password for " + cfg.ProxyUser)
			if err != nil {
				return nil, errors.Wrap(err, "failed to read proxy password")
			}
			cfg.ProxyPassword = pw
		}
	}

	return cfg, nil
}

// runtime is everything a bulk command needs, built from one config.
type runtime struct {
	cfg          *config.Config
	limiter      *ratelimit.Limiter
	client       *api.Client
	metrics      *metrics.Metrics
	orchestrator *bulk.Orchestrator
}

// newRuntime wires the shared limiter, API client and orchestrator.
// Metrics are served only when --metrics-addr is set.
func newRuntime(cfg *config.Config) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid configuration"),
			"run 'cute config init' or pass --space and --api-key")
	}

	log := GetLogger().Zerolog()
	rt := &runtime{
		cfg:     cfg,
		limiter: ratelimit.New(cfg.LimiterConfig()),
	}

	opts := []api.Option{api.WithLogger(log)}
	var rec bulk.Recorder
	if metricsAddr != "" {
		rt.metrics = metrics.New()
		rt.metrics.WatchLimiter(rt.limiter)
		if err := rt.metrics.Serve(GetContext(), metricsAddr, log); err != nil {
			return nil, errors.Wrapf(err, "failed to listen on %s", metricsAddr)
		}
		opts = append(opts, api.WithRequestObserver(rt.metrics.ObserveRequest))
		rec = rt.metrics
	}

	client, err := api.NewClient(cfg, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create API client")
	}
	rt.client = client
	rt.orchestrator = bulk.NewOrchestrator(client, rt.limiter, cfg.BulkOptions(), rec)
	return rt, nil
}

// progressMode maps the output flags onto a progress.Mode.
func progressMode() progress.Mode {
	switch {
	case jsonLogs:
		return progress.ModeLog
	case noProgress:
		return progress.ModeLines
	default:
		return progress.ModeAuto
	}
}
