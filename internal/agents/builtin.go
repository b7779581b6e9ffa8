package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/courtside/courtside/internal/config"
	"github.com/courtside/courtside/pkg/models"
	"github.com/courtside/courtside/pkg/permissions"
)

// Built-in worker set: a closed set of variants routed through an explicit
// static table, never runtime introspection. Their action logic is
// collaborator code and reaches analytics only through registered tools.

// NewPredictionWorker serves game outcome predictions.
func NewPredictionWorker(tools ToolSource) (*Worker, error) {
	caps := []models.Capability{
		{
			Name:                "predict_game",
			Description:         "Predict the outcome of a matchup",
			RequiredPermission:  permissions.ReadExecute,
			RequiredTools:       []string{"stats_load", "model_score"},
			EstimatedDurationMs: 400,
		},
		{
			Name:                "quick_odds",
			Description:         "Low-latency win probability for a single team",
			RequiredPermission:  permissions.ReadExecute,
			RequiredTools:       []string{"model_score"},
			EstimatedDurationMs: 120,
		},
	}
	logic := map[string]ActionFunc{
		"predict_game": predictGame,
		"quick_odds":   quickOdds,
	}
	return New(config.WorkerPrediction, "Prediction", permissions.ReadExecute, caps, logic, tools)
}

// NewInsightWorker produces trend and matchup narratives.
func NewInsightWorker(tools ToolSource) (*Worker, error) {
	caps := []models.Capability{
		{
			Name:                "analyze_trends",
			Description:         "Season trend analysis for a team",
			RequiredPermission:  permissions.ReadOnly,
			RequiredTools:       []string{"stats_load"},
			EstimatedDurationMs: 600,
		},
		{
			Name:                "enrich_prediction",
			Description:         "Contextual enrichment for a prediction",
			RequiredPermission:  permissions.ReadOnly,
			RequiredTools:       []string{"stats_load"},
			EstimatedDurationMs: 300,
		},
	}
	logic := map[string]ActionFunc{
		"analyze_trends":    analyzeTrends,
		"enrich_prediction": enrichPrediction,
	}
	return New(config.WorkerInsight, "Insight", permissions.ReadOnly, caps, logic, tools)
}

// NewGuidanceWorker answers educational questions about metrics and
// modeling practice.
func NewGuidanceWorker(tools ToolSource) (*Worker, error) {
	caps := []models.Capability{
		{
			Name:                "explain_metrics",
			Description:         "Explain an analytics metric in plain language",
			RequiredPermission:  permissions.ReadOnly,
			RequiredTools:       []string{"glossary_lookup"},
			EstimatedDurationMs: 200,
		},
		{
			Name:                "suggest_features",
			Description:         "Suggest model features for a question",
			RequiredPermission:  permissions.ReadOnly,
			EstimatedDurationMs: 150,
		},
	}
	logic := map[string]ActionFunc{
		"explain_metrics":  explainMetrics,
		"suggest_features": suggestFeatures,
	}
	return New(config.WorkerGuidance, "Guidance", permissions.ReadOnly, caps, logic, tools)
}

// NewVisualizationWorker turns team stats and live feeds into chart
// specifications; rendering itself belongs to the caller.
func NewVisualizationWorker(tools ToolSource) (*Worker, error) {
	caps := []models.Capability{
		{
			Name:                "chart_trends",
			Description:         "Build a chart specification for a team metric",
			RequiredPermission:  permissions.ReadExecute,
			RequiredTools:       []string{"stats_load", "chart_spec"},
			EstimatedDurationMs: 250,
		},
		{
			Name:                "live_slate",
			Description:         "Summarize the live game slate from the sports feed",
			RequiredPermission:  permissions.ReadExecute,
			RequiredTools:       []string{"sportsfeed_fetch"},
			EstimatedDurationMs: 200,
		},
	}
	logic := map[string]ActionFunc{
		"chart_trends": chartTrends,
		"live_slate":   liveSlate,
	}
	return New(config.WorkerVisualization, "Visualization", permissions.ReadExecute, caps, logic, tools)
}

// NewExportWorker writes synthesized reports out through the export tool;
// the only write-capable built-in.
func NewExportWorker(tools ToolSource) (*Worker, error) {
	caps := []models.Capability{
		{
			Name:                "export_report",
			Description:         "Persist an analysis report to the report store",
			RequiredPermission:  permissions.ReadExecuteWrite,
			RequiredTools:       []string{"export_write"},
			EstimatedDurationMs: 300,
		},
	}
	logic := map[string]ActionFunc{
		"export_report": exportReport,
	}
	return New(config.WorkerExport, "Export", permissions.ReadExecuteWrite, caps, logic, tools)
}

// ─── Action logic ────────────────────────────────────────────

func predictGame(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error) {
	team := strParam(params, "team", "home")
	opponent := strParam(params, "opponent", "away")

	stats := tools.Execute("stats_load", map[string]any{"team": team})
	if !stats.Success {
		return nil, stats.Error
	}

	score := tools.Execute("model_score", map[string]any{
		"team":     team,
		"opponent": opponent,
	})
	if !score.Success {
		return nil, score.Error
	}

	prob, _ := score.Value.(float64)
	return models.Insight{
		Text:       fmt.Sprintf("%s win probability against %s: %.0f%%", team, opponent, prob*100),
		Confidence: 0.9,
		Facts: map[string]models.Fact{
			"win_probability": {Value: fmt.Sprintf("%.2f", prob), Confidence: 0.9},
		},
	}, nil
}

func quickOdds(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error) {
	team := strParam(params, "team", "home")
	score := tools.Execute("model_score", map[string]any{"team": team, "opponent": "league_average"})
	if !score.Success {
		return nil, score.Error
	}
	prob, _ := score.Value.(float64)
	return models.Insight{
		Text:       fmt.Sprintf("%s quick odds: %.0f%%", team, prob*100),
		Confidence: 0.7,
	}, nil
}

func analyzeTrends(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error) {
	team := strParam(params, "team", "home")
	stats := tools.Execute("stats_load", map[string]any{"team": team})
	if !stats.Success {
		return nil, stats.Error
	}

	summary := fmt.Sprintf("%s season trends: %s", team, renderStats(stats.Value))
	return models.Insight{
		Text:       summary,
		Confidence: 0.8,
		Facts: map[string]models.Fact{
			"team": {Value: team, Confidence: 1.0},
		},
	}, nil
}

func enrichPrediction(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error) {
	team := strParam(params, "team", "home")
	stats := tools.Execute("stats_load", map[string]any{"team": team})
	if !stats.Success {
		return nil, stats.Error
	}
	return models.Insight{
		Text:       fmt.Sprintf("Context for %s: %s", team, renderStats(stats.Value)),
		Confidence: 0.6,
		Facts: map[string]models.Fact{
			"win_probability": {Value: "0.50", Confidence: 0.4},
		},
	}, nil
}

func explainMetrics(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error) {
	metric := strParam(params, "metric", "pace")
	entry := tools.Execute("glossary_lookup", map[string]any{"metric": metric})
	if !entry.Success {
		return nil, entry.Error
	}
	return models.Insight{
		Text:       fmt.Sprintf("%s: %v", metric, entry.Value),
		Confidence: 0.95,
	}, nil
}

func suggestFeatures(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error) {
	topic := strParam(params, "topic", strParam(userCtx, "query", "win prediction"))
	suggestions := []string{"rolling point differential", "rest days", "home/away split"}
	return models.Insight{
		Text:       fmt.Sprintf("Feature ideas for %q: %s", topic, strings.Join(suggestions, ", ")),
		Confidence: 0.5,
	}, nil
}

func chartTrends(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error) {
	team := strParam(params, "team", "home")
	metric := strParam(params, "metric", "points_per_game")

	stats := tools.Execute("stats_load", map[string]any{"team": team})
	if !stats.Success {
		return nil, stats.Error
	}
	spec := tools.Execute("chart_spec", map[string]any{"metric": metric, "team": team})
	if !spec.Success {
		return nil, spec.Error
	}

	return models.Insight{
		Text:       fmt.Sprintf("Chart ready: %s over games for %s", metric, team),
		Confidence: 0.85,
		Facts: map[string]models.Fact{
			"chart_metric": {Value: metric, Confidence: 1.0},
		},
	}, nil
}

func liveSlate(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error) {
	feed := strParam(params, "feed", "scores")
	res := tools.Execute("sportsfeed_fetch", map[string]any{"feed": feed})
	if !res.Success {
		return nil, res.Error
	}

	games := 0
	if payload, ok := res.Value.(map[string]any); ok {
		if entries, ok := payload["entries"].([]map[string]any); ok {
			games = len(entries)
		}
	}
	return models.Insight{
		Text:       fmt.Sprintf("Live %s feed: %d games on the slate", feed, games),
		Confidence: 0.75,
	}, nil
}

func exportReport(ctx context.Context, params, userCtx map[string]any, tools Toolbox) (any, error) {
	name := strParam(params, "report_name", "analysis")
	body := strParam(params, "body", strParam(userCtx, "query", ""))

	res := tools.Execute("export_write", map[string]any{"name": name, "body": body})
	if !res.Success {
		return nil, res.Error
	}
	return models.Insight{
		Text:       fmt.Sprintf("Report %q exported", name),
		Confidence: 1.0,
	}, nil
}

// ─── Helpers ─────────────────────────────────────────────────

func strParam(m map[string]any, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func renderStats(v any) string {
	stats, ok := v.(map[string]any)
	if !ok {
		return fmt.Sprint(v)
	}
	parts := make([]string, 0, len(stats))
	for _, key := range []string{"wins", "losses", "points_per_game", "streak"} {
		if val, ok := stats[key]; ok {
			parts = append(parts, fmt.Sprintf("%s %v", key, val))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
