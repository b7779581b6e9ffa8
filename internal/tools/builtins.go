// Package tools registers the built-in tool set: sample sports data
// loaders, a deterministic scoring model, and the report export writer.
// Handlers here are collaborators; the registry only sees their structured
// results.
package tools

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/courtside/courtside/internal/toolregistry"
	"github.com/courtside/courtside/pkg/models"
	"github.com/courtside/courtside/pkg/permissions"
)

// ReportStore is the in-memory destination for exported reports.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]string
}

func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[string]string)}
}

func (s *ReportStore) put(name, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[name] = body
}

// Get returns a stored report body.
func (s *ReportStore) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.reports[name]
	return body, ok
}

// Len returns the number of stored reports.
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// sampleStats is a small static dataset keyed by lowercased team name.
var sampleStats = map[string]map[string]any{
	"warriors": {"wins": 46, "losses": 21, "points_per_game": 117.8, "streak": "W5"},
	"lakers":   {"wins": 40, "losses": 27, "points_per_game": 114.2, "streak": "L2"},
	"celtics":  {"wins": 51, "losses": 16, "points_per_game": 120.1, "streak": "W3"},
	"nuggets":  {"wins": 44, "losses": 23, "points_per_game": 115.5, "streak": "W1"},
}

var glossary = map[string]string{
	"pace":             "possessions per 48 minutes, a tempo measure",
	"true_shooting":    "shooting efficiency accounting for threes and free throws",
	"net_rating":       "point differential per 100 possessions",
	"usage_rate":       "share of team possessions a player ends while on the floor",
	"effective_fg":     "field goal percentage weighting threes at 1.5x",
	"offensive_rating": "points scored per 100 possessions",
	"defensive_rating": "points allowed per 100 possessions",
	"win_probability":  "model-estimated chance of winning a given matchup",
}

// RegisterBuiltins registers the built-in tool set on reg. The returned
// ReportStore receives everything written through export_write.
func RegisterBuiltins(reg *toolregistry.Registry) (*ReportStore, error) {
	store := NewReportStore()

	builtins := []models.Tool{
		{
			Name:               "stats_load",
			Category:           "data",
			RequiredPermission: permissions.ReadOnly,
			ParamSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"team": map[string]any{"type": "string"},
				},
				"required": []any{"team"},
			},
			Handler: loadStats,
		},
		{
			Name:               "sportsfeed_fetch",
			Category:           "data",
			RequiredPermission: permissions.ReadExecute,
			ParamSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"feed": map[string]any{"type": "string"},
				},
			},
			Handler: fetchFeed,
		},
		{
			Name:               "model_score",
			Category:           "model",
			RequiredPermission: permissions.ReadExecute,
			ParamSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"team":     map[string]any{"type": "string"},
					"opponent": map[string]any{"type": "string"},
				},
				"required": []any{"team"},
			},
			Handler: scoreMatchup,
		},
		{
			Name:               "chart_spec",
			Category:           "visualization",
			RequiredPermission: permissions.ReadExecute,
			ParamSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"metric": map[string]any{"type": "string"},
					"team":   map[string]any{"type": "string"},
				},
				"required": []any{"metric"},
			},
			Handler: buildChartSpec,
		},
		{
			Name:               "glossary_lookup",
			Category:           "education",
			RequiredPermission: permissions.ReadOnly,
			ParamSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"metric": map[string]any{"type": "string"},
				},
				"required": []any{"metric"},
			},
			Handler: lookupGlossary,
		},
		{
			Name:               "export_write",
			Category:           "export",
			RequiredPermission: permissions.ReadExecuteWrite,
			ParamSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"body": map[string]any{"type": "string"},
				},
				"required": []any{"name"},
			},
			Handler: func(params map[string]any) (any, error) {
				name, _ := params["name"].(string)
				body, _ := params["body"].(string)
				store.put(name, body)
				return map[string]any{"name": name, "bytes": len(body)}, nil
			},
		},
	}

	for _, tool := range builtins {
		if err := reg.Register(tool); err != nil {
			return nil, fmt.Errorf("register %s: %w", tool.Name, err)
		}
	}
	return store, nil
}

func loadStats(params map[string]any) (any, error) {
	team, _ := params["team"].(string)
	if stats, ok := sampleStats[strings.ToLower(team)]; ok {
		return stats, nil
	}
	// Unknown teams get league-average numbers rather than an error.
	return map[string]any{"wins": 34, "losses": 33, "points_per_game": 112.0, "streak": "W1"}, nil
}

func fetchFeed(params map[string]any) (any, error) {
	feed, _ := params["feed"].(string)
	if feed == "" {
		feed = "scores"
	}
	return map[string]any{
		"feed":       feed,
		"fetched_at": time.Now().UTC().Format(time.RFC3339),
		"entries": []map[string]any{
			{"home": "Warriors", "away": "Lakers", "status": "scheduled"},
			{"home": "Celtics", "away": "Nuggets", "status": "scheduled"},
		},
	}, nil
}

// scoreMatchup is a stand-in model: a deterministic probability derived
// from the matchup names, stable across calls.
func scoreMatchup(params map[string]any) (any, error) {
	team, _ := params["team"].(string)
	opponent, _ := params["opponent"].(string)

	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(team) + "|" + strings.ToLower(opponent)))
	// Map into [0.25, 0.75] so no matchup looks like a lock.
	prob := 0.25 + float64(h.Sum32()%500)/1000.0
	return prob, nil
}

func buildChartSpec(params map[string]any) (any, error) {
	metric, _ := params["metric"].(string)
	team, _ := params["team"].(string)
	return map[string]any{
		"kind":   "line",
		"metric": metric,
		"team":   team,
		"x":      "game_number",
		"y":      metric,
	}, nil
}

func lookupGlossary(params map[string]any) (any, error) {
	metric, _ := params["metric"].(string)
	if def, ok := glossary[strings.ToLower(metric)]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("no glossary entry for %q", metric)
}
