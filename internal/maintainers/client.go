// Package maintainers fetches the two remote JSON documents that describe
// package-of-record administrators and full maintainer rosters.
package maintainers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultTimeout is used when Client.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// project is the shape of one entry in the admin roster document, modeled on
// the upstream Pagure-style project listing (see
// original_source/src/pagure.rs), simplified per spec: no pagination.
type project struct {
	Projects []struct {
		Name    string `json:"name" validate:"required"`
		Access  struct {
			Owner []string `json:"owner" validate:"required,min=1,dive,required"`
		} `json:"access_users" validate:"required"`
	} `json:"projects" validate:"required"`
}

var validate = validator.New()

// Client fetches the admin and maintainer documents over HTTPS.
type Client struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	AdminURL   string
	RosterURL  string
}

// New constructs a Client with the given URLs and a bounded-timeout HTTP
// client. timeout of zero uses DefaultTimeout.
func New(adminURL, rosterURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
		AdminURL:   adminURL,
		RosterURL:  rosterURL,
	}
}

// result bundles both maps so the two concurrent fetches can be awaited
// together by the caller.
type result struct {
	admins      map[string]string
	maintainers map[string][]string
	err         error
}

// Fetch issues both requests concurrently and returns two maps: package name
// to administrator, and package name to maintainer roster. Each document is
// fetched with a single attempt — failure of either surfaces upward
// immediately; there is no retry here, by design (the refresh cycle retries
// on its next tick).
func (c *Client) Fetch(ctx context.Context) (admins map[string]string, rosters map[string][]string, err error) {
	adminCh := make(chan result, 1)
	rosterCh := make(chan result, 1)

	go func() {
		m, err := c.fetchAdmins(ctx)
		adminCh <- result{admins: m, err: err}
	}()
	go func() {
		m, err := c.fetchRosters(ctx)
		rosterCh <- result{maintainers: m, err: err}
	}()

	adminRes := <-adminCh
	rosterRes := <-rosterCh

	if adminRes.err != nil {
		return nil, nil, fmt.Errorf("maintainers: fetching admin roster: %w", adminRes.err)
	}
	if rosterRes.err != nil {
		return nil, nil, fmt.Errorf("maintainers: fetching maintainer roster: %w", rosterRes.err)
	}

	return adminRes.admins, rosterRes.maintainers, nil
}

// FetchAdmins fetches only the admin roster document, independent of
// FetchRosters — used by the reload coordinator so one document's failure
// never blocks refreshing the other.
func (c *Client) FetchAdmins(ctx context.Context) (map[string]string, error) {
	return c.fetchAdmins(ctx)
}

// FetchRosters fetches only the maintainer roster document, independent of
// FetchAdmins.
func (c *Client) FetchRosters(ctx context.Context) (map[string][]string, error) {
	return c.fetchRosters(ctx)
}

// fetchAdmins flattens the project document to name -> primary administrator.
func (c *Client) fetchAdmins(ctx context.Context) (map[string]string, error) {
	var doc project
	if err := c.getJSON(ctx, c.AdminURL, &doc); err != nil {
		return nil, err
	}

	admins := make(map[string]string, len(doc.Projects))
	for _, p := range doc.Projects {
		if err := validate.Struct(p); err != nil {
			slog.Warn("maintainers: skipping malformed admin roster entry", "name", p.Name, "error", err)
			continue
		}
		admins[p.Name] = p.Access.Owner[0]
	}
	return admins, nil
}

// fetchRosters decodes the maintainer document: package name -> maintainer
// user names, directly.
func (c *Client) fetchRosters(ctx context.Context) (map[string][]string, error) {
	var doc map[string][]string
	if err := c.getJSON(ctx, c.RosterURL, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
