// Package stats proxies read-only esports statistics from an HTTP JSON
// provider. Responses are cached for a short TTL and provider calls go
// through a circuit breaker.
package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/fraghub/internal/apperr"
	"github.com/geocoder89/fraghub/internal/cache"
	"github.com/geocoder89/fraghub/internal/observability"
	"github.com/goccy/go-json"
)

// NewsLinkPrefix turns the relative news links of the provider into absolute ones.
const NewsLinkPrefix = "https://www.hltv.org/"

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 8 << 20

type Resource string

const (
	Streams       Resource = "streams"
	TeamRanking   Resource = "team_ranking"
	Team          Resource = "team"
	PlayerRanking Resource = "player_ranking"
	Player        Resource = "player"
	Events        Resource = "events"
	Event         Resource = "event"
	News          Resource = "news"
	EventByName   Resource = "event_by_name"
	TeamByName    Resource = "team_by_name"
	PlayerByName  Resource = "player_by_name"
)

var notFoundMessages = map[Resource]string{
	Team:         "Team not found",
	Player:       "Player not found",
	Event:        "Event not found",
	EventByName:  "Event not found",
	TeamByName:   "Team not found",
	PlayerByName: "Player not found",
}

// errUpstreamNotFound marks a 404 from the provider.
var errUpstreamNotFound = errors.New("stats provider: not found")

type Options struct {
	BaseURL    string
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Breaker    BreakerConfig
	Prom       *observability.Prom
	Log        *slog.Logger
}

type Client struct {
	base    string
	http    *http.Client
	cache   *cache.Cache[any]
	breaker *Breaker
	prom    *observability.Prom
	log     *slog.Logger
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		cache:   cache.New[any](opts.CacheTTL),
		breaker: NewBreaker(opts.Breaker, func(err error) bool { return errors.Is(err, errUpstreamNotFound) }),
		prom:    opts.Prom,
		log:     log,
	}
}

func (c *Client) Streams(ctx context.Context) (any, error) {
	return c.fetch(ctx, Streams, "/streams", nil)
}

func (c *Client) TeamRanking(ctx context.Context) (any, error) {
	return c.fetch(ctx, TeamRanking, "/team-ranking", nil)
}

func (c *Client) Team(ctx context.Context, id int) (any, error) {
	return c.fetch(ctx, Team, "/teams/"+strconv.Itoa(id), nil)
}

// PlayerRanking returns the top 50 players.
func (c *Client) PlayerRanking(ctx context.Context) (any, error) {
	return c.fetch(ctx, PlayerRanking, "/player-ranking", url.Values{"filter": {"Top50"}})
}

func (c *Client) Player(ctx context.Context, id int) (any, error) {
	return c.fetch(ctx, Player, "/players/"+strconv.Itoa(id), nil)
}

func (c *Client) Events(ctx context.Context) (any, error) {
	return c.fetch(ctx, Events, "/events", nil)
}

func (c *Client) Event(ctx context.Context, id int) (any, error) {
	return c.fetch(ctx, Event, "/events/"+strconv.Itoa(id), nil)
}

// News returns the news previews with absolute links.
func (c *Client) News(ctx context.Context) (any, error) {
	v, err := c.fetch(ctx, News, "/news", nil)
	if err != nil {
		return nil, err
	}
	return absoluteLinks(v), nil
}

func (c *Client) EventByName(ctx context.Context, name string) (any, error) {
	return c.fetch(ctx, EventByName, "/events/by-name", url.Values{"name": {name}})
}

func (c *Client) TeamByName(ctx context.Context, name string) (any, error) {
	return c.fetch(ctx, TeamByName, "/teams/by-name", url.Values{"name": {name}})
}

func (c *Client) PlayerByName(ctx context.Context, name string) (any, error) {
	return c.fetch(ctx, PlayerByName, "/players/by-name", url.Values{"name": {name}})
}

func (c *Client) fetch(ctx context.Context, res Resource, path string, query url.Values) (any, error) {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	if v, ok := c.cache.Get(target); ok {
		c.prom.CacheLookup(true)
		return v, nil
	}
	c.prom.CacheLookup(false)

	var out any
	start := time.Now()
	status := "error"

	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		code, err := c.get(ctx, target, &out)
		if code != 0 {
			status = strconv.Itoa(code)
		}
		return err
	})

	if errors.Is(err, ErrCircuitOpen) {
		status = "circuit_open"
	}
	c.prom.ObserveUpstream(string(res), status, time.Since(start))

	switch {
	case err == nil:
		c.cache.Set(target, out)
		return out, nil
	case errors.Is(err, errUpstreamNotFound):
		msg, ok := notFoundMessages[res]
		if !ok {
			msg = "Not found"
		}
		return nil, apperr.NotFound(msg)
	case errors.Is(err, ErrCircuitOpen):
		return nil, apperr.Unavailable("Stats provider unavailable")
	default:
		c.log.WarnContext(ctx, "stats_fetch_failed", "resource", string(res), "err", err)
		return nil, apperr.Unavailable("Stats provider unavailable")
	}
}

func (c *Client) get(ctx context.Context, target string, out *any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, errUpstreamNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("stats provider: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("stats provider: decode: %w", err)
	}
	return resp.StatusCode, nil
}

// absoluteLinks returns a copy of a news list with every "link" prefixed.
func absoluteLinks(v any) any {
	items, ok := v.([]any)
	if !ok {
		return v
	}

	out := make([]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			out = append(out, it)
			continue
		}

		cp := make(map[string]any, len(m))
		for k, val := range m {
			cp[k] = val
		}
		if link, ok := cp["link"].(string); ok && !strings.HasPrefix(link, NewsLinkPrefix) {
			cp["link"] = NewsLinkPrefix + strings.TrimPrefix(link, "/")
		}
		out = append(out, cp)
	}
	return out
}
