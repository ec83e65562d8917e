// Package inventory is an HTTP client that lists available remote
// versions per (project, platform, arch), grounded on pipg's
// internal/pypi client: functional options, a *slog.Logger field, and a
// context-aware http.Client rather than a bare http.Get.
package inventory

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkgx-run/pkgx/internal/types"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// Client fetches version listings from the distribution server.
type Client struct {
	distURL string
	http    *http.Client
	logger  *slog.Logger
}

// New returns a Client rooted at distURL (e.g. cfg.DistURL()).
func New(distURL string, opts ...Option) *Client {
	c := &Client{
		distURL: distURL,
		http:    &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UnavailableError wraps a non-2xx response or an empty versions file.
type UnavailableError struct {
	URL    string
	Status string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("inventory unavailable at %s: %s", e.URL, e.Status)
}

// Get fetches every published version of req.Project for the current
// platform/arch. Unparseable lines are dropped; an empty result is an
// error.
func (c *Client) Get(ctx context.Context, req types.PackageReq, platform types.Platform, arch types.Arch) ([]types.Version, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/versions.txt", c.distURL, req.Project, platform, arch)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building inventory request for %s: %w", req.Project, err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetching inventory for %s: %w", req.Project, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{URL: url, Status: resp.Status}
	}

	var versions []types.Version
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := types.ParseVersion(line)
		if err != nil {
			c.logger.Debug("dropping unparseable inventory line", "project", req.Project, "line", line)
			continue
		}
		versions = append(versions, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading inventory for %s: %w", req.Project, err)
	}

	if len(versions) == 0 {
		return nil, &UnavailableError{URL: url, Status: "empty versions file"}
	}

	return versions, nil
}

// Select returns the maximum version satisfying req.Constraint, or false
// if none does.
func (c *Client) Select(ctx context.Context, req types.PackageReq, platform types.Platform, arch types.Arch) (types.Version, bool, error) {
	versions, err := c.Get(ctx, req, platform, arch)
	if err != nil {
		return types.Version{}, false, err
	}

	var best *types.Version
	for i := range versions {
		if !req.Constraint.Satisfies(versions[i]) {
			continue
		}
		if best == nil || versions[i].Compare(*best) > 0 {
			best = &versions[i]
		}
	}

	if best == nil {
		return types.Version{}, false, nil
	}
	return *best, true, nil
}
