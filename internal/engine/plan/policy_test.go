package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/airlock-sh/airlock/internal/engine/intent"
)

func TestDefaultPolicyValid(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("built-in policy invalid: %v", err)
	}
}

func TestClassOf(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		path string
		want string
	}{
		{"/etc/hosts", "system"},
		{"/etc", "system"},
		{"/etcetera/file", "other"},
		{"/tmp/out.txt", "workspace"},
		{"/home/user/doc.txt", "other"},
		{"/var/lib/airlock/audit.db", "system"},
	}

	for _, tt := range tests {
		if got := p.ClassOf(tt.path); got != tt.want {
			t.Errorf("ClassOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRiskForPolicyTable(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		verb intent.Verb
		path string
		want Risk
	}{
		{intent.VerbRead, "/etc/hosts", RiskLow},
		{intent.VerbList, "/tmp", RiskLow},
		{intent.VerbCreate, "/tmp/new.txt", RiskMedium},
		{intent.VerbWrite, "/tmp/out.txt", RiskMedium},
		{intent.VerbDelete, "/tmp/out.txt", RiskHigh},
		{intent.VerbWrite, "/etc/hosts", RiskUnsafe},
		{intent.VerbDelete, "/usr/bin/something", RiskUnsafe},
	}

	for _, tt := range tests {
		got, err := p.RiskFor(tt.verb, tt.path)
		if err != nil {
			t.Errorf("RiskFor(%s, %s): %v", tt.verb, tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("RiskFor(%s, %s) = %s, want %s", tt.verb, tt.path, got, tt.want)
		}
	}
}

func TestRiskOrdering(t *testing.T) {
	if !RiskUnsafe.Exceeds(RiskHigh) || !RiskHigh.Exceeds(RiskMedium) || !RiskMedium.Exceeds(RiskLow) {
		t.Error("risk ordering broken")
	}
	if RiskLow.Exceeds(RiskLow) {
		t.Error("Exceeds must be strict")
	}
	if MaxRisk(RiskMedium, RiskHigh) != RiskHigh {
		t.Error("MaxRisk(medium, high) != high")
	}
	if Risk("GARBAGE").Level() <= RiskUnsafe.Level() {
		t.Error("unknown risk must rank above UNSAFE")
	}
}

func TestLoadPolicyPack(t *testing.T) {
	pack := `
version: 1
default_class: other
classes:
  - name: protected
    prefixes: ["/srv/protected"]
rules:
  - verb: read
    risk: LOW
  - verb: list
    risk: LOW
  - verb: create
    risk: MEDIUM
  - verb: write
    risk: MEDIUM
    overrides:
      protected: UNSAFE
  - verb: delete
    risk: HIGH
`
	path := filepath.Join(t.TempDir(), "pack.yaml")
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}

	risk, err := p.RiskFor(intent.VerbWrite, "/srv/protected/data")
	if err != nil || risk != RiskUnsafe {
		t.Errorf("override risk = %s, %v; want UNSAFE", risk, err)
	}
	risk, _ = p.RiskFor(intent.VerbWrite, "/srv/open/data")
	if risk != RiskMedium {
		t.Errorf("baseline risk = %s, want MEDIUM", risk)
	}
}

func TestLoadPolicyPackRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name string
		pack string
	}{
		{"missing verb", `
version: 1
default_class: other
rules:
  - verb: read
    risk: LOW
`},
		{"bad risk", `
version: 1
default_class: other
rules:
  - {verb: read, risk: MAYBE}
  - {verb: list, risk: LOW}
  - {verb: create, risk: MEDIUM}
  - {verb: write, risk: MEDIUM}
  - {verb: delete, risk: HIGH}
`},
		{"unknown override class", `
version: 1
default_class: other
rules:
  - {verb: read, risk: LOW}
  - {verb: list, risk: LOW}
  - {verb: create, risk: MEDIUM}
  - {verb: write, risk: MEDIUM, overrides: {ghost: UNSAFE}}
  - {verb: delete, risk: HIGH}
`},
		{"bad version", `
version: 7
default_class: other
rules: []
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pack.yaml")
			if err := os.WriteFile(path, []byte(tt.pack), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadPolicy(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadPolicyMissingFile(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
