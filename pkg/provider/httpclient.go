package provider

import (
	"net"
	"net/http"
	"time"
)

// newHTTPClient builds the shared HTTP client for adapters. There is no
// client-level request timeout; each call is bounded by its context.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second, // connect timeout
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{Transport: transport}
}
