// Package contextmgr classifies callers into roles and assembles
// token-budgeted context profiles. Profiles are cached in a read-mostly LRU;
// recomputation happens only on miss or expiry.
package contextmgr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/courtside/courtside/internal/config"
	"github.com/courtside/courtside/internal/telemetry"
	"github.com/courtside/courtside/pkg/models"
)

const defaultCacheSize = 256

// Manager owns the static role definitions and the profile cache.
type Manager struct {
	defs      map[models.Role]models.RoleDefinition
	priority  []models.Role
	maxBudget int
	ttl       time.Duration

	cache   *lru.Cache[string, models.ContextProfile]
	hits    atomic.Uint64
	misses  atomic.Uint64
	version atomic.Uint64

	metrics *telemetry.Metrics
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMetrics attaches the process metrics bundle.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// New builds a Manager from static role definitions and context settings.
func New(defs []models.RoleDefinition, cfg config.ContextConfig, opts ...Option) (*Manager, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, models.ContextProfile](size)
	if err != nil {
		return nil, fmt.Errorf("create profile cache: %w", err)
	}

	m := &Manager{
		defs:      make(map[models.Role]models.RoleDefinition, len(defs)),
		priority:  []models.Role{models.RoleProduction, models.RoleDataScientist, models.RoleAnalyst},
		maxBudget: cfg.MaxTokenBudget,
		ttl:       cfg.TTL,
		cache:     cache,
		now:       time.Now,
	}
	for _, def := range defs {
		m.defs[def.Role] = def
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// LoadContext returns the context profile for a role and hint set. On a
// cache hit within TTL the stored profile is returned unchanged; on a miss
// the profile is assembled greedily over the role's declared segment
// priority, never exceeding the role's token budget.
func (m *Manager) LoadContext(role models.Role, hints map[string]any) (models.ContextProfile, error) {
	def, ok := m.defs[role]
	if !ok {
		return models.ContextProfile{}, models.NewError(models.ErrUnknownRole, "unknown role: %s", role)
	}

	key := m.cacheKey(role, hints)
	now := m.now()

	if profile, ok := m.cache.Get(key); ok && now.Before(profile.ExpiresAt) {
		m.hits.Add(1)
		m.metrics.ObserveContextCache(true)
		return profile, nil
	}
	m.misses.Add(1)
	m.metrics.ObserveContextCache(false)

	profile := m.assemble(def, now)
	m.cache.Add(key, profile)

	log.Debug().
		Str("role", string(role)).
		Int("budget", profile.TokenBudget).
		Int("assembled", profile.AssembledSize).
		Int("segments", len(profile.SelectedSegments)).
		Msg("Context profile assembled")
	return profile, nil
}

// assemble greedily includes segments in declared priority order. Segments
// are atomic: inclusion stops at the first segment that would exceed the
// budget. Deterministic by construction; reproducibility matters more than
// squeezing out the last tokens with a knapsack pass.
func (m *Manager) assemble(def models.RoleDefinition, now time.Time) models.ContextProfile {
	budget := int(float64(m.maxBudget) * def.TokenBudgetFraction)

	var selected []models.Segment
	size := 0
	for _, seg := range def.Segments {
		if size+seg.TokenCost > budget {
			break
		}
		selected = append(selected, seg)
		size += seg.TokenCost
	}

	return models.ContextProfile{
		Role:             def.Role,
		TokenBudget:      budget,
		SelectedSegments: selected,
		AssembledSize:    size,
		CreatedAt:        now,
		ExpiresAt:        now.Add(m.ttl),
	}
}

// Invalidate bumps the role-definition version, which changes every cache
// key and therefore invalidates all stored profiles.
func (m *Manager) Invalidate() {
	m.version.Add(1)
}

// CacheStats returns the hit and miss counters.
func (m *Manager) CacheStats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}

// cacheKey hashes (role, normalized hints, definition version) so that a
// definition change can never serve a stale profile.
func (m *Manager) cacheKey(role models.Role, hints map[string]any) string {
	h := sha256.New()
	fmt.Fprintf(h, "v%d|%s|", m.version.Load(), role)
	h.Write([]byte(normalizeHints(hints)))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeHints renders hints into a canonical "k=v" form: keys sorted,
// values lowercased, list values joined in order.
func normalizeHints(hints map[string]any) string {
	if len(hints) == 0 {
		return ""
	}
	keys := make([]string, 0, len(hints))
	for k := range hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(signalStrings(hints[k]), ";"))
		b.WriteByte('&')
	}
	return b.String()
}

// signalStrings flattens a hint value into lowercased strings.
func signalStrings(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{strings.ToLower(val)}
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			out = append(out, strings.ToLower(s))
		}
		return out
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, signalStrings(item)...)
		}
		return out
	case nil:
		return nil
	default:
		return []string{strings.ToLower(fmt.Sprint(val))}
	}
}
