package evaluate

import (
	"fmt"
	"log/slog"

	"labwatch/internal/artifact"
	"labwatch/internal/config"
	"labwatch/internal/logging"
	"labwatch/internal/reference"
	"labwatch/internal/score"
)

// Stat keys reported by the policies.
const (
	StatAvgTimeGap                = "avg_time_gap"
	StatNumShots                  = "num_shots"
	StatNumSpaceCorrect           = "num_space_correct"
	StatPercentSpaceCorrect       = "percent_space_correct"
	StatDeviationThresholdPercent = "deviation_threshold_percent"

	StatCreationTime     = "creation_time"
	StatCreationGap      = "creation_gap"
	StatAvgCreationGap   = "avg_creation_gap"
	StatDeviationPercent = "deviation_percent"
	StatTolerancePercent = "tolerance_percent"
	StatHistoryLength    = "history_length"

	StatShotNumber      = "shot_number"
	StatMatch           = "match"
	StatReferenceTime   = "reference_time"
	StatReferenceCounts = "reference_counts"
	StatReferenceFrames = "reference_frames"
)

// Result is the outcome of evaluating one artifact.
type Result struct {
	Accepted bool
	Stats    Stats
}

func reject() Result { return Result{} }

// Policy is one acceptance rule.
type Policy interface {
	Name() string
	Evaluate(a *artifact.Artifact, st *State) Result
}

// State is the mutable evaluation state for one run. It is owned by the
// dispatcher worker and is not safe for concurrent use.
type State struct {
	Score    score.Tracker
	creation map[string][]float64
}

// NewState returns empty run state.
func NewState() *State {
	return &State{creation: make(map[string][]float64)}
}

// CreationHistory returns a copy of the creation times recorded under key.
func (s *State) CreationHistory(key string) []float64 {
	return append([]float64(nil), s.creation[key]...)
}

func (s *State) appendCreation(key string, ts float64) {
	if s.creation == nil {
		s.creation = make(map[string][]float64)
	}
	s.creation[key] = append(s.creation[key], ts)
}

// Params carries the policy thresholds.
type Params struct {
	DeviationRatio    float64
	AcceptancePercent float64
	CreationTolerance float64
}

// ParamsFromConfig reads thresholds from the evaluation config section.
func ParamsFromConfig(cfg config.Evaluation) Params {
	return Params{
		DeviationRatio:    cfg.DeviationRatio,
		AcceptancePercent: cfg.AcceptancePercent,
		CreationTolerance: cfg.CreationTolerance,
	}
}

// NewPolicy builds the named policy. key scopes creation history.
func NewPolicy(name, key string, params Params, ref *reference.Dataset) (Policy, error) {
	switch name {
	case config.PolicySpacing:
		return SpacingPolicy{DeviationRatio: params.DeviationRatio, AcceptancePercent: params.AcceptancePercent}, nil
	case config.PolicyCreation:
		return &CreationPolicy{Key: key, Tolerance: params.CreationTolerance}, nil
	case config.PolicyShot:
		return ShotPolicy{Reference: ref}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// Evaluator applies the policy bound to each category.
type Evaluator struct {
	policies map[string]Policy
	fallback Policy
	logger   *slog.Logger
}

// NewEvaluator binds a policy to every configured category. Categories without
// an explicit policy use the default policy.
func NewEvaluator(cfg *config.Config, ref *reference.Dataset, logger *slog.Logger) (*Evaluator, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	params := ParamsFromConfig(cfg.Evaluation)
	fallback, err := NewPolicy(cfg.Evaluation.DefaultPolicy, "", params, ref)
	if err != nil {
		return nil, err
	}
	ev := &Evaluator{
		policies: make(map[string]Policy, len(cfg.Categories)),
		fallback: fallback,
		logger:   logging.NewComponentLogger(logger, "evaluate"),
	}
	for _, cat := range cfg.Categories {
		policy, err := NewPolicy(cfg.PolicyFor(cat.Name), cat.Name, params, ref)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", cat.Name, err)
		}
		ev.policies[cat.Name] = policy
	}
	return ev, nil
}

// NewEvaluatorWithPolicy applies one policy to every category.
func NewEvaluatorWithPolicy(policy Policy, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Evaluator{
		policies: map[string]Policy{},
		fallback: policy,
		logger:   logging.NewComponentLogger(logger, "evaluate"),
	}
}

// PolicyFor returns the policy bound to category.
func (e *Evaluator) PolicyFor(category string) Policy {
	if p, ok := e.policies[category]; ok {
		return p
	}
	return e.fallback
}

// Evaluate runs category's policy. Artifacts without at least two timestamps
// are rejected with empty stats before any policy runs.
func (e *Evaluator) Evaluate(category string, a *artifact.Artifact, st *State) Result {
	policy := e.PolicyFor(category)
	if a.Len(artifact.KeyTimestamps) < 2 {
		e.logger.Warn("artifact rejected without evaluation",
			logging.String(logging.FieldEventType, "evaluation_failed"),
			logging.String(logging.FieldFile, a.Name()),
			logging.String(logging.FieldPolicy, policy.Name()),
			logging.Int("timestamps", a.Len(artifact.KeyTimestamps)),
			logging.String(logging.FieldErrorHint, "producer must emit a timestamps series with at least two samples"),
			logging.String(logging.FieldImpact, "file counted as rejected"),
		)
		return reject()
	}
	result := policy.Evaluate(a, st)
	verdict := "rejected"
	if result.Accepted {
		verdict = "accepted"
	}
	e.logger.Info("file "+verdict,
		logging.String(logging.FieldFile, a.Name()),
		logging.String(logging.FieldPolicy, policy.Name()),
		logging.String("summary", Summary(result.Stats)),
	)
	return result
}
