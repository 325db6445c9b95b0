// Package update tells users when a newer hostswitch release exists.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/OpenGG/hostswitch/internal/hostswitch/storage"
	"github.com/OpenGG/hostswitch/internal/logging"
)

// DefaultInterval is how long a fetched release stays fresh.
const DefaultInterval = 24 * time.Hour

// maxBody bounds the release document read from the feed.
const maxBody = 1 << 20

// State is the cached result of the last release lookup.
type State struct {
	CheckedAt time.Time `json:"checkedAt"`
	Latest    string    `json:"latest"`
}

// Notice compares the running version with the latest release.
type Notice struct {
	Current   string
	Latest    string
	Available bool
}

// Checker looks up the latest release at most once per interval and caches
// the answer on disk.
type Checker struct {
	storage   *storage.Storage
	statePath string
	url       string
	current   string
	client    *http.Client
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a Checker for the running version current.
func New(store *storage.Storage, statePath, url, current string, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Checker{
		storage:   store,
		statePath: statePath,
		url:       url,
		current:   current,
		client:    http.DefaultClient,
		interval:  DefaultInterval,
		now:       time.Now,
		logger:    logger,
	}
}

// SetNow allows overriding the clock for testing.
func (c *Checker) SetNow(now func() time.Time) {
	if now == nil {
		c.now = time.Now
		return
	}
	c.now = now
}

// SetHTTPClient replaces the client used to query the release feed.
func (c *Checker) SetHTTPClient(client *http.Client) {
	c.client = client
}

// Check returns the update notice. The cached state is used while fresh
// unless force is set.
func (c *Checker) Check(ctx context.Context, force bool) (Notice, error) {
	latest := ""
	if st, ok := c.loadState(); ok && !force && c.now().Sub(st.CheckedAt) < c.interval {
		latest = st.Latest
		c.logger.Debug("using cached release", "latest", latest, "checked_at", st.CheckedAt)
	} else {
		fetched, err := c.fetchLatest(ctx)
		if err != nil {
			return Notice{Current: c.current}, err
		}
		latest = fetched
		c.saveState(State{CheckedAt: c.now().UTC(), Latest: latest})
	}
	return Compare(c.current, latest), nil
}

// Compare builds a Notice. Versions that are not valid semver, such as
// development builds, never report an update.
func Compare(current, latest string) Notice {
	n := Notice{Current: current, Latest: latest}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return n
	}
	lat, err := semver.NewVersion(latest)
	if err != nil {
		return n
	}
	n.Available = lat.GreaterThan(cur)
	return n
}

type release struct {
	TagName string `json:"tag_name"`
}

func (c *Checker) fetchLatest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build release request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "hostswitch/"+c.current)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch latest release: unexpected status %s", resp.Status)
	}
	var rel release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&rel); err != nil {
		return "", fmt.Errorf("decode latest release: %w", err)
	}
	tag := strings.TrimSpace(rel.TagName)
	if _, err := semver.NewVersion(tag); err != nil {
		return "", fmt.Errorf("latest release %q is not a version: %w", tag, err)
	}
	return tag, nil
}

func (c *Checker) loadState() (State, bool) {
	data, err := c.storage.ReadFile(c.statePath)
	if err != nil {
		return State{}, false
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		c.logger.Debug("ignoring unreadable update state", "path", c.statePath, "error", err)
		return State{}, false
	}
	return st, true
}

func (c *Checker) saveState(st State) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return
	}
	if err := c.storage.MkdirAll(filepath.Dir(c.statePath)); err != nil {
		c.logger.Debug("cannot cache update state", "error", err)
		return
	}
	if err := c.storage.WriteFile(c.statePath, append(data, '\n')); err != nil {
		c.logger.Debug("cannot cache update state", "error", err)
	}
}
