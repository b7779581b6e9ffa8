package config

import "github.com/courtside/courtside/pkg/models"

// Static role, segment, and routing tables. These are configuration data,
// not computed by the core; deployments may substitute their own tables at
// construction time.

// Signal kinds recognized by role detection.
const (
	SignalQuery    = "query"
	SignalNotebook = "notebook"
	SignalModel    = "model"
)

// DefaultRoles returns the built-in role definitions. Segment lists are in
// declared priority order; context assembly is greedy over that order.
func DefaultRoles() []models.RoleDefinition {
	return []models.RoleDefinition{
		{
			Role:                models.RoleAnalyst,
			TokenBudgetFraction: 0.50,
			DataScope:           "aggregated",
			FocusAreas: []string{
				"trend", "report", "summary", "comparison", "standings",
				"season", "matchup", "analysis",
			},
			Segments: []models.Segment{
				{Name: "team_overview", Weight: 1.0, TokenCost: 2000},
				{Name: "season_trends", Weight: 0.9, TokenCost: 1800},
				{Name: "matchup_history", Weight: 0.8, TokenCost: 1500},
				{Name: "league_context", Weight: 0.6, TokenCost: 1200},
				{Name: "metric_glossary", Weight: 0.3, TokenCost: 800},
			},
			SignalWeights: map[string]float64{
				SignalQuery:    1.0,
				SignalNotebook: 1.5,
				SignalModel:    0.5,
			},
		},
		{
			Role:                models.RoleDataScientist,
			TokenBudgetFraction: 0.75,
			DataScope:           "full",
			FocusAreas: []string{
				"feature", "engineering", "training", "model", "notebook",
				"experiment", "hyperparameter", "xgboost", ".pkl", ".ipynb",
			},
			Segments: []models.Segment{
				{Name: "feature_catalog", Weight: 1.0, TokenCost: 3000},
				{Name: "model_registry", Weight: 0.9, TokenCost: 2500},
				{Name: "training_data_profile", Weight: 0.8, TokenCost: 2500},
				{Name: "evaluation_reports", Weight: 0.7, TokenCost: 2000},
				{Name: "notebook_index", Weight: 0.5, TokenCost: 1500},
			},
			SignalWeights: map[string]float64{
				SignalQuery:    1.0,
				SignalNotebook: 2.0,
				SignalModel:    2.0,
			},
		},
		{
			Role:                models.RoleProduction,
			TokenBudgetFraction: 0.25,
			DataScope:           "minimal",
			FocusAreas: []string{
				"prediction", "predict", "quick", "live", "latency",
				"serve", "odds", "score",
			},
			Segments: []models.Segment{
				{Name: "live_model_snapshot", Weight: 1.0, TokenCost: 1000},
				{Name: "team_form", Weight: 0.8, TokenCost: 800},
				{Name: "injury_report", Weight: 0.6, TokenCost: 600},
			},
			SignalWeights: map[string]float64{
				SignalQuery:    1.0,
				SignalNotebook: 0.5,
				SignalModel:    1.0,
			},
		},
	}
}

// Built-in worker IDs referenced by the routing table.
const (
	WorkerPrediction    = "prediction"
	WorkerInsight       = "insight"
	WorkerGuidance      = "guidance"
	WorkerVisualization = "visualization"
	WorkerExport        = "export"
)

// DefaultRouting returns the built-in query-category → plan-step table.
// Step order within a category is the synthesis order.
func DefaultRouting() models.RoutingTable {
	return models.RoutingTable{
		Categories: map[string][]models.PlanStep{
			"prediction": {
				{WorkerID: WorkerPrediction, Action: "predict_game", Required: true},
				{WorkerID: WorkerInsight, Action: "enrich_prediction", Required: false},
			},
			"analysis": {
				{WorkerID: WorkerInsight, Action: "analyze_trends", Required: true},
				{WorkerID: WorkerGuidance, Action: "explain_metrics", Required: false},
				{WorkerID: WorkerVisualization, Action: "chart_trends", Required: false},
			},
			"visualization": {
				{WorkerID: WorkerVisualization, Action: "chart_trends", Required: true},
				{WorkerID: WorkerVisualization, Action: "live_slate", Required: false},
			},
			"education": {
				{WorkerID: WorkerGuidance, Action: "explain_metrics", Required: true},
				{WorkerID: WorkerGuidance, Action: "suggest_features", Required: false},
			},
			"export": {
				{WorkerID: WorkerInsight, Action: "analyze_trends", Required: true},
				{WorkerID: WorkerExport, Action: "export_report", Required: true, WriteResource: "report_store"},
			},
			"full_report": {
				{WorkerID: WorkerInsight, Action: "analyze_trends", Required: true},
				{WorkerID: WorkerPrediction, Action: "predict_game", Required: true},
				{WorkerID: WorkerExport, Action: "export_report", Required: false, WriteResource: "report_store"},
			},
		},
		KeywordRules: []models.KeywordRule{
			{Keywords: []string{"predict", "odds", "win probability"}, Category: "prediction"},
			{Keywords: []string{"chart", "plot", "visualize", "graph"}, Category: "visualization"},
			{Keywords: []string{"export", "save report", "write out"}, Category: "export"},
			{Keywords: []string{"explain", "teach", "what is", "learn"}, Category: "education"},
		},
		DefaultCategory: "analysis",
	}
}
