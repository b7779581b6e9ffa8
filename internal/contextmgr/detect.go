package contextmgr

import (
	"strings"

	"github.com/courtside/courtside/internal/config"
	"github.com/courtside/courtside/pkg/models"
)

// Hint keys grouped by the signal kind they carry.
var signalKeys = map[string][]string{
	config.SignalQuery:    {"query", "query_type"},
	config.SignalNotebook: {"notebooks", "notebook", "notebook_path"},
	config.SignalModel:    {"models", "model", "model_path"},
}

// DetectRole scores each role by the weighted count of hint signals that
// fall into its declared focus areas and content segments, and returns the
// best match. Ties break toward the most resource-constrained role
// (Production > DataScientist > Analyst); no signals at all defaults to
// Analyst.
func (m *Manager) DetectRole(hints map[string]any) models.Role {
	signals := extractSignals(hints)
	if len(signals) == 0 {
		return models.RoleAnalyst
	}

	best := models.RoleAnalyst
	bestScore := 0.0
	for _, role := range m.priority {
		def, ok := m.defs[role]
		if !ok {
			continue
		}
		score := scoreRole(def, signals)
		if score > bestScore {
			best = role
			bestScore = score
		}
	}
	if bestScore == 0 {
		return models.RoleAnalyst
	}
	return best
}

// signal is one lowercased hint string tagged with its kind.
type signal struct {
	kind string
	text string
}

func extractSignals(hints map[string]any) []signal {
	var signals []signal
	for kind, keys := range signalKeys {
		for _, key := range keys {
			v, ok := hints[key]
			if !ok {
				continue
			}
			for _, text := range signalStrings(v) {
				if text == "" {
					continue
				}
				signals = append(signals, signal{kind: kind, text: text})
			}
		}
	}
	return signals
}

// scoreRole sums, over every signal, the role's weight for that signal kind
// times the number of role keywords the signal contains. Keywords are the
// role's focus areas plus its segment names; weights come from the role
// definition, not from code.
func scoreRole(def models.RoleDefinition, signals []signal) float64 {
	keywords := make([]string, 0, len(def.FocusAreas)+len(def.Segments))
	for _, area := range def.FocusAreas {
		keywords = append(keywords, strings.ToLower(area))
	}
	for _, seg := range def.Segments {
		keywords = append(keywords, strings.ToLower(seg.Name))
	}

	score := 0.0
	for _, sig := range signals {
		matched := 0
		for _, kw := range keywords {
			if strings.Contains(sig.text, kw) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		weight, ok := def.SignalWeights[sig.kind]
		if !ok {
			weight = 1.0
		}
		score += weight * float64(matched)
	}
	return score
}
