package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/airlock-sh/airlock/internal/engine/intent"
	"github.com/airlock-sh/airlock/internal/engine/target"
	"github.com/airlock-sh/airlock/pkg/core/logging"
)

// StagedSuffix names the sidecar file used by staged writes.
const StagedSuffix = ".staged"

// Generator turns intents into execution plans. Generation is pure: it
// reads the policy table and the intent, touches nothing else, and its
// output is immutable.
type Generator struct {
	policy *Policy
	logger *logging.Logger
}

// NewGenerator creates a plan generator bound to one policy pack
func NewGenerator(policy *Policy, logger *logging.Logger) *Generator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if logger == nil {
		logger = logging.New("planner")
	}
	logger.Debug("policy table loaded",
		"version", policy.Version,
		"classes", strings.Join(policy.ClassNames(), ","),
		"rules", len(policy.Rules))
	return &Generator{policy: policy, logger: logger}
}

// Generate produces the execution plan for an intent, or fails with
// intent.ErrUnsupportedVerb or ErrMissingRollback. No artifact exists on
// failure.
func (g *Generator) Generate(in intent.Intent) (Plan, error) {
	if err := in.Validate(); err != nil {
		return Plan{}, err
	}

	steps, err := g.decompose(in)
	if err != nil {
		return Plan{}, err
	}

	p := Plan{
		ID:        uuid.New().String(),
		IntentID:  in.ID,
		Steps:     steps,
		Risk:      RiskLow,
		CreatedAt: time.Now().UTC(),
	}
	for _, s := range steps {
		p.Risk = MaxRisk(p.Risk, s.Risk)
	}

	if err := p.Validate(); err != nil {
		return Plan{}, err
	}

	g.logger.Debug("plan generated",
		"plan_id", p.ID,
		"intent_id", in.ID,
		"verb", in.Verb.String(),
		"steps", len(p.Steps),
		"risk", p.Risk.String())

	return p, nil
}

// decompose maps a verb onto its ordered steps.
func (g *Generator) decompose(in intent.Intent) ([]Step, error) {
	switch in.Verb {
	case intent.VerbRead:
		s, err := g.step(target.OpRead, in.Target, nil,
			[]target.Condition{{Kind: target.CondIsFile, Path: in.Target}}, nil)
		if err != nil {
			return nil, err
		}
		return []Step{s}, nil

	case intent.VerbList:
		s, err := g.step(target.OpList, in.Target, nil,
			[]target.Condition{{Kind: target.CondIsDir, Path: in.Target}}, nil)
		if err != nil {
			return nil, err
		}
		return []Step{s}, nil

	case intent.VerbCreate:
		content := in.Param("content")
		s, err := g.step(target.OpCreate, in.Target, in.Parameters,
			[]target.Condition{
				{Kind: target.CondNotExists, Path: in.Target},
				{Kind: target.CondParentExists, Path: in.Target},
			},
			[]target.Condition{
				{Kind: target.CondContentSHA, Path: in.Target, Value: target.HashContent([]byte(content))},
			})
		if err != nil {
			return nil, err
		}
		return []Step{s}, nil

	case intent.VerbWrite:
		if in.Param("mode") == "staged" {
			return g.stagedWrite(in)
		}
		content := in.Param("content")
		s, err := g.step(target.OpWrite, in.Target, in.Parameters,
			[]target.Condition{{Kind: target.CondParentExists, Path: in.Target}},
			[]target.Condition{
				{Kind: target.CondContentSHA, Path: in.Target, Value: target.HashContent([]byte(content))},
			})
		if err != nil {
			return nil, err
		}
		return []Step{s}, nil

	case intent.VerbDelete:
		s, err := g.step(target.OpDelete, in.Target, nil,
			[]target.Condition{{Kind: target.CondIsFile, Path: in.Target}},
			[]target.Condition{{Kind: target.CondNotExists, Path: in.Target}})
		if err != nil {
			return nil, err
		}
		return []Step{s}, nil

	default:
		return nil, fmt.Errorf("%w: %q", intent.ErrUnsupportedVerb, in.Verb)
	}
}

// stagedWrite decomposes a write into create-sidecar, write-target,
// delete-sidecar. The sidecar proves writability in the target directory
// before the destination is touched.
func (g *Generator) stagedWrite(in intent.Intent) ([]Step, error) {
	staged := in.Target + StagedSuffix
	content := in.Param("content")
	sha := target.HashContent([]byte(content))

	createStaged, err := g.step(target.OpCreate, staged, map[string]string{"content": content},
		[]target.Condition{
			{Kind: target.CondNotExists, Path: staged},
			{Kind: target.CondParentExists, Path: staged},
		},
		[]target.Condition{{Kind: target.CondContentSHA, Path: staged, Value: sha}})
	if err != nil {
		return nil, err
	}

	writeTarget, err := g.step(target.OpWrite, in.Target, map[string]string{"content": content},
		[]target.Condition{{Kind: target.CondParentExists, Path: in.Target}},
		[]target.Condition{{Kind: target.CondContentSHA, Path: in.Target, Value: sha}})
	if err != nil {
		return nil, err
	}

	removeStaged, err := g.step(target.OpDelete, staged, nil,
		[]target.Condition{{Kind: target.CondIsFile, Path: staged}},
		[]target.Condition{{Kind: target.CondNotExists, Path: staged}})
	if err != nil {
		return nil, err
	}

	return []Step{createStaged, writeTarget, removeStaged}, nil
}

// step assembles a single step: risk from the policy table, rollback from
// the op's compensating action.
func (g *Generator) step(op target.Op, path string, params map[string]string, pre, post []target.Condition) (Step, error) {
	risk, err := g.policy.RiskFor(verbForOp(op), path)
	if err != nil {
		return Step{}, err
	}

	rollback, err := target.RevertFor(op, path)
	if err != nil {
		return Step{}, err
	}
	if op.Mutating() && rollback.Kind == target.RevertNone {
		return Step{}, fmt.Errorf("%s %s: %w", op, path, ErrMissingRollback)
	}

	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}

	return Step{
		ID:       uuid.New().String(),
		Op:       op,
		Path:     path,
		Params:   p,
		Risk:     risk,
		Pre:      pre,
		Post:     post,
		Rollback: rollback,
	}, nil
}

// verbForOp maps an operation back to the policy verb it is billed under.
func verbForOp(op target.Op) intent.Verb {
	return intent.Verb(op)
}
