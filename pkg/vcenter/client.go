// Package vcenter provides a wrapper around the govmomi library for vCenter
// sessions: a SOAP login for the inventory API and a REST (vAPI) login for
// content libraries.
package vcenter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/Bibi40k/vmware-template-lifecycle/configs"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/vapi/rest"
)

// Client wraps the govmomi SOAP and REST clients for one run.
type Client struct {
	conn *govmomi.Client
	rest *rest.Client
	user *url.Userinfo
	ctx  context.Context
	mu   sync.Mutex
}

// Config holds vCenter connection parameters.
type Config struct {
	Host     string // vCenter hostname, IP or https URL
	Username string // vCenter username
	Password string // vCenter password
	Port     int    // vCenter port (default: 443)
	Insecure bool   // Skip TLS verification (not recommended for production)
}

// URL builds the SDK endpoint for cfg. Hosts may be given bare or as an
// https URL; plain http is rejected.
func (cfg *Config) URL() (*url.URL, error) {
	port := cfg.Port
	if port == 0 {
		port = configs.Defaults.VCenter.Port
	}

	var vcURL *url.URL
	if strings.Contains(cfg.Host, "://") {
		parsed, err := url.Parse(cfg.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid vCenter URL %q: %w", cfg.Host, err)
		}
		if parsed.Scheme != "https" {
			return nil, fmt.Errorf("unsupported vCenter URL scheme %q (https required)", parsed.Scheme)
		}
		if parsed.Path == "" {
			parsed.Path = "/sdk"
		}
		if parsed.Host == "" {
			return nil, fmt.Errorf("invalid vCenter URL (missing host): %q", cfg.Host)
		}
		if parsed.Port() == "" && cfg.Port != 0 {
			parsed.Host = fmt.Sprintf("%s:%d", parsed.Hostname(), cfg.Port)
		}
		vcURL = parsed
	} else {
		if strings.TrimSpace(cfg.Host) == "" {
			return nil, fmt.Errorf("vCenter host is required")
		}
		vcURL = &url.URL{
			Scheme: "https",
			Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
			Path:   "/sdk",
		}
	}
	vcURL.User = url.UserPassword(cfg.Username, cfg.Password)
	return vcURL, nil
}

// NewClient connects to vCenter and opens both the SOAP and the REST session.
// Returns an error if either login fails.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	vcURL, err := cfg.URL()
	if err != nil {
		return nil, err
	}

	client, err := govmomi.NewClient(ctx, vcURL, cfg.Insecure)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vCenter: %w", err)
	}

	rc := rest.NewClient(client.Client)
	if err := rc.Login(ctx, vcURL.User); err != nil {
		_ = client.Logout(ctx)
		return nil, fmt.Errorf("failed to open vCenter REST session: %w", err)
	}

	return &Client{
		conn: client,
		rest: rc,
		user: vcURL.User,
		// ctx often carries the connect timeout; logout must outlive it.
		ctx: context.WithoutCancel(ctx),
	}, nil
}

// Disconnect closes the REST and SOAP sessions under a fresh connect timeout.
func (c *Client) Disconnect() error {
	ctx, cancel := context.WithTimeout(c.ctx, configs.Defaults.Timeouts.Connect())
	defer cancel()

	var restErr error
	if c.rest != nil {
		if err := c.rest.Logout(ctx); err != nil {
			restErr = fmt.Errorf("vCenter REST logout: %w", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Logout(ctx); err != nil {
			return fmt.Errorf("vCenter logout: %w", err)
		}
	}
	return restErr
}

// REST returns the vAPI client used for content library calls.
func (c *Client) REST() *rest.Client {
	return c.rest
}

// Relogin opens a fresh REST session with the original credentials.
// Used once per call when vCenter reports the session as expired.
func (c *Client) Relogin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rest == nil {
		return fmt.Errorf("vCenter REST session not initialized")
	}
	if err := c.rest.Login(ctx, c.user); err != nil {
		return fmt.Errorf("vCenter REST re-login failed: %w", err)
	}
	return nil
}

// Client returns the underlying govmomi client for advanced operations.
func (c *Client) Client() *govmomi.Client {
	return c.conn
}
