package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/andresharpe/cute-sub002/internal/config"
)

// NewAPIClient creates the HTTP client used for management API calls.
//
// Key features:
//   - Proxy support (uses ConfigureHTTPClient as base)
//   - Idle pool sized for the per-entry call fan-out
//   - HTTP/2 with runtime toggle (DISABLE_HTTP2 env var)
//   - HTTP/1.1 behind proxies unless FORCE_HTTP2=true
//
// If cfg is nil, proxy settings are read from the environment.
func NewAPIClient(cfg *config.Config) (*nethttp.Client, error) {
	if cfg == nil {
		cfg = config.NewConfig()
		cfg.ProxyMode = ProxyModeSystem
	}

	client, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM negotiator wraps the transport; leave it as built
		return client, nil
	}

	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	// Proxies often mishandle HTTP/2 multiplexing
	disable := os.Getenv("DISABLE_HTTP2") == "true" ||
		(proxyActive(cfg, os.Getenv) && os.Getenv("FORCE_HTTP2") != "true")
	if disable {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	return client, nil
}
