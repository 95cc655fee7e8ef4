// Package classify applies a delta-sign decision rule to tournament
// records. The sign convention for "which direction means human" differs
// between observed deployments, so the convention is a required, named
// parameter of the rule rather than a baked-in default: the comparator's
// delta is left exactly as computed and interpreted only here.
package classify

import (
	"errors"
	"fmt"

	"github.com/nikazzio/maxwell-demon/internal/tournament"
)

// ErrUnknownConvention indicates a rule without a valid sign convention.
var ErrUnknownConvention = errors.New("classify: sign convention must be set")

// Convention names the mapping from delta sign to predicted label.
type Convention int

const (
	// PositiveIsHuman predicts human when delta_h exceeds the threshold.
	PositiveIsHuman Convention = iota + 1

	// NegativeIsHuman predicts human when delta_h falls below the
	// negated threshold.
	NegativeIsHuman
)

// Rule is a thresholded sign rule over delta_h.
type Rule struct {
	Convention Convention

	// Threshold shifts the decision boundary away from zero. Zero keeps
	// the pure sign rule.
	Threshold float64
}

// Predict returns the predicted label for one window's delta.
func (r Rule) Predict(deltaH float64) (string, error) {
	switch r.Convention {
	case PositiveIsHuman:
		if deltaH > r.Threshold {
			return tournament.LabelHuman, nil
		}
		return tournament.LabelAI, nil
	case NegativeIsHuman:
		if deltaH < -r.Threshold {
			return tournament.LabelHuman, nil
		}
		return tournament.LabelAI, nil
	default:
		return "", fmt.Errorf("%w (got %d)", ErrUnknownConvention, r.Convention)
	}
}

// Metrics summarizes rule performance over labeled records, with human as
// the positive class.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64

	TruePositives  int
	TrueNegatives  int
	FalsePositives int
	FalseNegatives int
	Samples        int
}

// Evaluate scores the rule against every labeled record. Records with a
// label other than human/ai are skipped.
func Evaluate(records []tournament.Record, rule Rule) (Metrics, error) {
	var m Metrics
	for _, rec := range records {
		if rec.Label != tournament.LabelHuman && rec.Label != tournament.LabelAI {
			continue
		}
		predicted, err := rule.Predict(rec.DeltaH)
		if err != nil {
			return Metrics{}, err
		}

		trueHuman := rec.Label == tournament.LabelHuman
		predHuman := predicted == tournament.LabelHuman
		switch {
		case predHuman && trueHuman:
			m.TruePositives++
		case !predHuman && !trueHuman:
			m.TrueNegatives++
		case predHuman && !trueHuman:
			m.FalsePositives++
		default:
			m.FalseNegatives++
		}
	}

	m.Samples = m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if m.Samples == 0 {
		return m, nil
	}

	m.Accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(m.Samples)
	if den := m.TruePositives + m.FalsePositives; den > 0 {
		m.Precision = float64(m.TruePositives) / float64(den)
	}
	if den := m.TruePositives + m.FalseNegatives; den > 0 {
		m.Recall = float64(m.TruePositives) / float64(den)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}
