package orchestrator

import (
	"strings"

	"github.com/courtside/courtside/pkg/models"
)

// buildPlan resolves a request to an ordered list of plan steps. Resolution
// order: exact QueryType match against a routing category, then keyword
// rules over the free-form query, then the default category.
func (o *Orchestrator) buildPlan(req models.AnalyticsRequest) ([]models.PlanStep, *models.Error) {
	category := o.resolveCategory(req)
	steps, ok := o.routing.Categories[category]
	if !ok {
		return nil, models.NewError(models.ErrInternal, "routing category %s has no steps", category)
	}

	// Every planned worker must exist. A miss here is a configuration
	// error, not a caller error.
	for _, step := range steps {
		if _, ok := o.workers[step.WorkerID]; !ok {
			return nil, models.NewError(models.ErrUnknownWorker, "plan references unknown worker %s", step.WorkerID)
		}
	}

	// Two required steps writing the same resource cannot both hold the
	// exclusive claim the plan promises them.
	writers := make(map[string]string)
	for _, step := range steps {
		if !step.Required || step.WriteResource == "" {
			continue
		}
		if prev, clash := writers[step.WriteResource]; clash {
			return nil, models.NewError(models.ErrDependencyConflict,
				"required steps %s.%s and %s conflict on resource %s",
				step.WorkerID, step.Action, prev, step.WriteResource)
		}
		writers[step.WriteResource] = step.WorkerID + "." + step.Action
	}

	return steps, nil
}

func (o *Orchestrator) resolveCategory(req models.AnalyticsRequest) string {
	if req.QueryType != "" {
		if _, ok := o.routing.Categories[req.QueryType]; ok {
			return req.QueryType
		}
	}

	query := strings.ToLower(req.Query)
	for _, rule := range o.routing.KeywordRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(query, kw) {
				return rule.Category
			}
		}
	}
	return o.routing.DefaultCategory
}
