package plan

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/airlock-sh/airlock/internal/engine/intent"
)

// Class groups target paths by prefix for risk classification.
type Class struct {
	Name     string   `yaml:"name"`
	Prefixes []string `yaml:"prefixes"`
}

// Rule assigns a baseline risk to a verb, with optional per-class
// overrides.
type Rule struct {
	Verb      intent.Verb     `yaml:"verb"`
	Risk      Risk            `yaml:"risk"`
	Overrides map[string]Risk `yaml:"overrides,omitempty"`
}

// Policy is the deterministic risk table keyed on (verb, target class).
// Policies are loaded once and treated as frozen afterwards.
type Policy struct {
	Version      int     `yaml:"version"`
	DefaultClass string  `yaml:"default_class"`
	Classes      []Class `yaml:"classes"`
	Rules        []Rule  `yaml:"rules"`
}

// DefaultPolicy returns the built-in policy pack used when no pack file is
// configured. Mutating verbs against system paths are classified UNSAFE;
// the rest follows the baseline read/list LOW, create/write MEDIUM,
// delete HIGH.
func DefaultPolicy() *Policy {
	return &Policy{
		Version:      1,
		DefaultClass: "other",
		Classes: []Class{
			{Name: "system", Prefixes: []string{"/etc", "/usr", "/bin", "/sbin", "/boot", "/lib", "/var/lib"}},
			{Name: "workspace", Prefixes: []string{"/tmp", "/var/tmp"}},
		},
		Rules: []Rule{
			{Verb: intent.VerbRead, Risk: RiskLow},
			{Verb: intent.VerbList, Risk: RiskLow},
			{Verb: intent.VerbCreate, Risk: RiskMedium, Overrides: map[string]Risk{"system": RiskUnsafe}},
			{Verb: intent.VerbWrite, Risk: RiskMedium, Overrides: map[string]Risk{"system": RiskUnsafe}},
			{Verb: intent.VerbDelete, Risk: RiskHigh, Overrides: map[string]Risk{"system": RiskUnsafe}},
		},
	}
}

// LoadPolicy reads a policy pack from a YAML file and validates it.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy pack: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy pack: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy pack %s: %w", path, err)
	}

	return &p, nil
}

// Validate checks that the pack covers every supported verb with valid
// risks, so classification can never fall through at plan time.
func (p *Policy) Validate() error {
	if p.Version != 1 {
		return fmt.Errorf("unsupported policy version %d", p.Version)
	}
	if p.DefaultClass == "" {
		return fmt.Errorf("default_class is required")
	}

	classNames := map[string]bool{p.DefaultClass: true}
	for _, c := range p.Classes {
		if c.Name == "" {
			return fmt.Errorf("class with empty name")
		}
		if len(c.Prefixes) == 0 {
			return fmt.Errorf("class %q has no prefixes", c.Name)
		}
		classNames[c.Name] = true
	}

	covered := map[intent.Verb]bool{}
	for _, r := range p.Rules {
		if !r.Verb.Valid() {
			return fmt.Errorf("rule for unsupported verb %q", r.Verb)
		}
		if covered[r.Verb] {
			return fmt.Errorf("duplicate rule for verb %q", r.Verb)
		}
		if !r.Risk.Valid() {
			return fmt.Errorf("rule for %q has invalid risk %q", r.Verb, r.Risk)
		}
		for class, risk := range r.Overrides {
			if !classNames[class] {
				return fmt.Errorf("rule for %q overrides unknown class %q", r.Verb, class)
			}
			if !risk.Valid() {
				return fmt.Errorf("rule for %q has invalid override risk %q", r.Verb, risk)
			}
		}
		covered[r.Verb] = true
	}

	for _, v := range intent.Verbs() {
		if !covered[v] {
			return fmt.Errorf("no rule for verb %q", v)
		}
	}

	return nil
}

// ClassOf returns the target class for a path. The longest matching prefix
// wins so nested classes behave intuitively.
func (p *Policy) ClassOf(path string) string {
	best := p.DefaultClass
	bestLen := 0
	for _, c := range p.Classes {
		for _, prefix := range c.Prefixes {
			if matchesPrefix(path, prefix) && len(prefix) > bestLen {
				best = c.Name
				bestLen = len(prefix)
			}
		}
	}
	return best
}

// RiskFor returns the policy risk for verb against path.
func (p *Policy) RiskFor(verb intent.Verb, path string) (Risk, error) {
	class := p.ClassOf(path)
	for _, r := range p.Rules {
		if r.Verb != verb {
			continue
		}
		if override, ok := r.Overrides[class]; ok {
			return override, nil
		}
		return r.Risk, nil
	}
	return "", fmt.Errorf("no policy rule for verb %q", verb)
}

// ClassNames returns the declared class names plus the default, sorted.
func (p *Policy) ClassNames() []string {
	names := make([]string, 0, len(p.Classes)+1)
	for _, c := range p.Classes {
		names = append(names, c.Name)
	}
	names = append(names, p.DefaultClass)
	sort.Strings(names)
	return names
}

func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	// Prefix must end on a path boundary: /etc matches /etc/hosts but not /etcetera.
	if len(path) == len(prefix) {
		return true
	}
	return strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}
