package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/debstat/debstat/pkg/httputil"
	"github.com/debstat/debstat/pkg/semver"
)

const httpTimeout = 10 * time.Second

// DefaultBaseURL is the public archive index service.
const DefaultBaseURL = "https://api.debstat.dev"

// DefaultSuite is the stable suite queried when none is configured.
const DefaultSuite = "stable"

var (
	// ErrNotFound is returned internally when the index has no entry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork covers timeouts, connection errors and 5xx responses.
	ErrNetwork = errors.New("network error")

	// ErrUpstreamDown is returned without a network call while the
	// circuit breaker for an endpoint is open.
	ErrUpstreamDown = errors.New("archive endpoint unavailable")
)

// Client queries the archive index service and classifies the answers.
//
// Each lookup asks the stable suite first and the NEW queue second, then
// applies the classification rules of [classify]. The client retries
// transient failures with exponential backoff, and keeps a circuit breaker
// per endpoint so a dead mirror degrades to fast LookupFailed answers
// instead of a timeout per package.
//
// All methods are safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	suite   string
	agent   string
	retry   httputil.Policy

	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
}

// NewClient creates a Client for the given index service and suite.
// Empty arguments select [DefaultBaseURL] and [DefaultSuite].
func NewClient(baseURL, suite string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if suite == "" {
		suite = DefaultSuite
	}
	return &Client{
		http:     &http.Client{Timeout: httpTimeout},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		suite:    suite,
		agent:    "debstat/1.0 (https://github.com/debstat/debstat)",
		retry:    httputil.DefaultPolicy,
		breakers: make(map[string]*circuit.Breaker),
	}
}

// Suite returns the stable suite this client queries.
func (c *Client) Suite() string { return c.suite }

// suiteEntry is the index's best match for a package in one suite.
type suiteEntry struct {
	Package string `json:"package"`
	Version string `json:"version"`
	Suite   string `json:"suite"`
}

// queueEntry is the index's answer for the NEW queue.
type queueEntry struct {
	Package  string    `json:"package"`
	Version  string    `json:"version"`
	QueuedAt time.Time `json:"queued_at"`
}

// Lookup classifies one (name, version) key against the archive.
func (c *Client) Lookup(ctx context.Context, name, version string) Status {
	if err := validateName(name); err != nil {
		return Status{Kind: LookupFailed, Reason: err.Error()}
	}
	suite, err := c.suiteLookup(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Status{Kind: LookupFailed, Reason: reason(err)}
	}

	if suite != nil {
		st, ok := classifyStable(suite.Version, version)
		if ok {
			return st
		}
	}

	queued, err := c.queueLookup(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Status{Kind: LookupFailed, Reason: reason(err)}
	}
	if queued != nil {
		return Status{
			Kind:           InNewQueue,
			ArchiveVersion: stripRevision(queued.Version),
			QueueAge:       time.Since(queued.QueuedAt),
		}
	}

	if suite != nil {
		archived := stripRevision(suite.Version)
		if cmp, cerr := semver.Compare(archived, version); cerr == nil && cmp > 0 {
			return Status{Kind: Newer, ArchiveVersion: archived}
		}
		return Status{Kind: Outdated, ArchiveVersion: archived}
	}
	return Status{Kind: Missing}
}

// classifyStable decides whether a stable suite entry satisfies the
// requested version. The archive rule is deliberately looser than strict
// semver matching: versions sharing a major (or, below 1.0, a minor) are
// interchangeable for packaging purposes.
func classifyStable(archiveVersion, requested string) (Status, bool) {
	archived := stripRevision(archiveVersion)
	if archived == requested {
		return Status{Kind: InArchive, ArchiveVersion: archived, Exact: true}, true
	}
	if ok, err := semver.Compatible(archived, requested); err == nil && ok {
		if cmp, cerr := semver.Compare(archived, requested); cerr == nil && cmp >= 0 {
			return Status{Kind: InArchive, ArchiveVersion: archived}, true
		}
	}
	return Status{}, false
}

// validateName rejects package names that cannot safely appear in an
// index URL path. Registry naming rules are far stricter than this; the
// point here is only to keep path traversal and junk bytes out of the
// request line.
func validateName(name string) error {
	if name == "" {
		return errors.New("invalid package name: empty")
	}
	if len(name) > 256 {
		return errors.New("invalid package name: too long")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return errors.New("invalid package name: control character")
		}
	}
	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(name, pattern) {
			return fmt.Errorf("invalid package name: contains %q", pattern)
		}
	}
	return nil
}

// stripRevision removes the distribution revision from an archive version
// string: "1.2.3-4" carries upstream 1.2.3.
func stripRevision(v string) string {
	if i := strings.IndexByte(v, '-'); i >= 0 {
		return v[:i]
	}
	return v
}

func (c *Client) suiteLookup(ctx context.Context, name string) (*suiteEntry, error) {
	url := fmt.Sprintf("%s/api/suites/%s/packages/%s", c.baseURL, c.suite, name)
	var entry suiteEntry
	if err := c.get(ctx, url, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) queueLookup(ctx context.Context, name string) (*queueEntry, error) {
	url := fmt.Sprintf("%s/api/queues/new/packages/%s", c.baseURL, name)
	var entry queueEntry
	if err := c.get(ctx, url, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// get performs a GET with retries behind the endpoint's circuit breaker
// and decodes the JSON response into v.
func (c *Client) get(ctx context.Context, url string, v any) error {
	br := c.breaker(endpoint(url))
	if !br.Ready() {
		return ErrUpstreamDown
	}
	// A 404 is a clean miss, not an endpoint failure: it must neither
	// count against the breaker nor be retried.
	var notFound error
	err := br.Call(func() error {
		err := c.retry.Do(ctx, func() error {
			body, err := c.doRequest(ctx, url)
			if err != nil {
				return err
			}
			defer body.Close()
			return json.NewDecoder(body).Decode(v)
		})
		if errors.Is(err, ErrNotFound) {
			notFound = err
			return nil
		}
		return err
	}, 0)
	if err != nil {
		return err
	}
	return notFound
}

func (c *Client) doRequest(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.agent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

// breaker returns the circuit breaker for one endpoint path, creating it
// on first use. Breakers trip after 5 consecutive failures and re-close
// with exponential backoff.
func (c *Client) breaker(key string) *circuit.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if br, ok := c.breakers[key]; ok {
		return br
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 30 * time.Second
	bo.MaxInterval = 5 * time.Minute
	bo.Multiplier = 2.0
	bo.Reset()
	br := circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    bo,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	c.breakers[key] = br
	return br
}

// endpoint groups URLs by the API surface they hit, so NEW queue outages
// do not trip the suite breaker and vice versa.
func endpoint(url string) string {
	if strings.Contains(url, "/api/queues/") {
		return "queues"
	}
	return "suites"
}

func reason(err error) string {
	if errors.Is(err, ErrUpstreamDown) {
		return "endpoint unavailable"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return err.Error()
}
