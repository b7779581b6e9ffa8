package orchestrator

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/courtside/courtside/pkg/models"
)

// synthesize merges worker results into one narrative, walking the plan in
// order so output is deterministic regardless of completion order.
// Duplicate contributions are dropped by normalized content hash; facts
// claimed by more than one worker resolve to the higher-confidence claim.
// Failed optional steps leave an explicit gap note instead of silence.
func (o *Orchestrator) synthesize(plan []models.PlanStep, results []models.AgentResponse) string {
	var parts []string
	seen := make(map[[32]byte]bool)
	facts := make(map[string]models.Fact)

	for i, r := range results {
		if r.Status != models.StatusSuccess {
			if !plan[i].Required {
				parts = append(parts, fmt.Sprintf("(%s enrichment unavailable: %s)", plan[i].WorkerID, gapReason(r.Error)))
			}
			continue
		}

		insight, ok := insightOf(r.Result)
		if !ok {
			continue
		}

		if insight.Text != "" {
			h := sha256.Sum256([]byte(normalize(insight.Text)))
			if !seen[h] {
				seen[h] = true
				parts = append(parts, insight.Text)
			}
		}

		for key, fact := range insight.Facts {
			if prev, clash := facts[key]; clash && prev.Confidence >= fact.Confidence {
				continue
			}
			facts[key] = fact
		}
	}

	if len(facts) > 0 {
		keys := make([]string, 0, len(facts))
		for k := range facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		factParts := make([]string, 0, len(keys))
		for _, k := range keys {
			factParts = append(factParts, fmt.Sprintf("%s=%s", k, facts[k].Value))
		}
		parts = append(parts, "Key facts: "+strings.Join(factParts, ", "))
	}

	return strings.Join(parts, " ")
}

// insightOf extracts the Insight from an action result when the worker
// produced one.
func insightOf(result *models.ActionResult) (models.Insight, bool) {
	if result == nil {
		return models.Insight{}, false
	}
	switch v := result.Value.(type) {
	case models.Insight:
		return v, true
	case *models.Insight:
		if v != nil {
			return *v, true
		}
	case string:
		return models.Insight{Text: v, Confidence: 0.5}, true
	}
	return models.Insight{}, false
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func gapReason(err *models.Error) string {
	if err == nil {
		return "failed"
	}
	return string(err.Code)
}
