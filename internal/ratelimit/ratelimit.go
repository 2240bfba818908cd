// Package ratelimit enforces fixed-window call budgets per GraphQL root
// field and caller.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/fraghub/internal/apperr"
	"github.com/geocoder89/fraghub/internal/observability"
)

type Rule struct {
	Max    int
	Window time.Duration
}

// DefaultRules are the per-field budgets.
var DefaultRules = map[string]Rule{
	// stats
	"getStreams":       {Max: 5, Window: time.Minute},
	"getTeamRanking":   {Max: 3, Window: time.Minute},
	"getTeam":          {Max: 10, Window: time.Minute},
	"getPlayerRanking": {Max: 3, Window: time.Minute},
	"getPlayer":        {Max: 10, Window: time.Minute},
	"getEvents":        {Max: 5, Window: time.Minute},
	"getEvent":         {Max: 10, Window: time.Minute},
	"getNews":          {Max: 5, Window: time.Minute},
	"getEventByName":   {Max: 10, Window: time.Minute},
	"getTeamByName":    {Max: 10, Window: time.Minute},
	"getPlayerByName":  {Max: 10, Window: time.Minute},

	// forum
	"getPosts":      {Max: 5, Window: time.Minute},
	"postById":      {Max: 10, Window: time.Minute},
	"createPost":    {Max: 2, Window: time.Minute},
	"createComment": {Max: 3, Window: time.Minute},
	"deletePost":    {Max: 2, Window: time.Minute},
	"deleteComment": {Max: 3, Window: time.Minute},

	// users
	"users":      {Max: 5, Window: time.Minute},
	"userById":   {Max: 10, Window: time.Minute},
	"checkToken": {Max: 1, Window: time.Second},
	"login":      {Max: 5, Window: time.Minute},
	"register":   {Max: 5, Window: time.Minute},
	"updateUser": {Max: 5, Window: time.Minute},
	"deleteUser": {Max: 5, Window: time.Minute},
}

// Decision is the outcome of one counted call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts a call against key and reports whether it fits the rule.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
}

// Guard applies the rule of a field to a caller. A nil Guard allows everything.
type Guard struct {
	limiter Limiter
	rules   map[string]Rule
	prom    *observability.Prom
	log     *slog.Logger
}

func NewGuard(limiter Limiter, rules map[string]Rule, prom *observability.Prom, log *slog.Logger) *Guard {
	if rules == nil {
		rules = DefaultRules
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{limiter: limiter, rules: rules, prom: prom, log: log}
}

// Check counts one call of field by subject. Fields without a rule are not
// limited. Limiter failures let the call through.
func (g *Guard) Check(ctx context.Context, field, subject string) error {
	if g == nil || g.limiter == nil {
		return nil
	}

	rule, ok := g.rules[field]
	if !ok || rule.Max <= 0 {
		return nil
	}

	d, err := g.limiter.Allow(ctx, field+":"+subject, rule)
	if err != nil {
		g.log.WarnContext(ctx, "rate_limit_unavailable", "field", field, "err", err)
		return nil
	}

	if !d.Allowed {
		g.prom.IncRateLimited(field)
		return apperr.RateLimitedFor("Too many requests. Please try again shortly.", d.RetryAfter)
	}
	return nil
}
