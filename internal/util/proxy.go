package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc builds the transport proxy callback from configuration.
// With neither proxy set it defers to the standard environment
// variables. Hosts matching noProxy, a comma-separated list matched by
// exact name or domain suffix, always connect directly.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// splitNoProxy normalizes a comma-separated bypass list. Leading dots
// are stripped so ".internal" and "internal" mean the same thing.
func splitNoProxy(noProxy string) []string {
	if noProxy == "" {
		return nil
	}

	parts := strings.Split(noProxy, ",")
	entries := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimPrefix(strings.TrimSpace(p), ".")
		if p != "" {
			entries = append(entries, strings.ToLower(p))
		}
	}
	return entries
}

// bypassed reports whether host is covered by a bypass entry
func bypassed(host string, entries []string) bool {
	host = strings.ToLower(host)
	for _, e := range entries {
		if e == "*" || host == e || strings.HasSuffix(host, "."+e) {
			return true
		}
	}
	return false
}
