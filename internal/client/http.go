package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

// UserAgent is sent with every request.
const UserAgent = "goload/1.0"

// HTTPClient interface defines the contract for HTTP operations
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client wraps a pooled http.Client tuned for many concurrent virtual users
type Client struct {
	client *http.Client
	config *Config
}

// Config contains configuration for the HTTP client
type Config struct {
	Timeout          time.Duration
	Insecure         bool
	MaxIdleConns     int
	MaxIdlePerHost   int
	DisableKeepAlive bool
	ResolveMap       map[string]string // "host:port" -> "ip"
}

// NewClient creates a new HTTP client with the specified configuration
func NewClient(config *Config) *Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdlePerHost,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   config.DisableKeepAlive,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.Insecure,
		},
	}

	if len(config.ResolveMap) > 0 {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if ip, ok := config.ResolveMap[addr]; ok {
				_, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse address %s: %w", addr, err)
				}
				return dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			}
			return dialer.DialContext(ctx, network, addr)
		}
	}

	// Enable HTTP/2 for https targets
	_ = http2.ConfigureTransport(transport)

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		config: config,
	}
}

// Do executes an HTTP request
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}

// CloseIdleConnections releases pooled connections at the end of a run
func (c *Client) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}

// ParseResolveHosts converts --resolve format (host:port:addr) into a map
func ParseResolveHosts(resolveSlice []string) (map[string]string, error) {
	resolveMap := make(map[string]string)
	for _, r := range resolveSlice {
		parts := strings.SplitN(r, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid --resolve format '%s': expected host:port:addr", r)
		}
		host := strings.TrimSpace(parts[0])
		port := strings.TrimSpace(parts[1])
		addr := strings.TrimSpace(parts[2])

		if host == "" || port == "" || addr == "" {
			return nil, fmt.Errorf("invalid --resolve format '%s': host, port, and addr cannot be empty", r)
		}

		resolveMap[host+":"+port] = addr
	}
	return resolveMap, nil
}
