package plan

// Risk classifies how dangerous a step is. The ordering LOW < MEDIUM <
// HIGH < UNSAFE is load-bearing: the simulator compares against a
// threshold and the plan's overall risk is the maximum over its steps.
type Risk string

const (
	RiskLow    Risk = "LOW"
	RiskMedium Risk = "MEDIUM"
	RiskHigh   Risk = "HIGH"
	RiskUnsafe Risk = "UNSAFE"
)

var riskLevels = map[Risk]int{
	RiskLow:    0,
	RiskMedium: 1,
	RiskHigh:   2,
	RiskUnsafe: 3,
}

// Valid reports whether the risk is a recognized value
func (r Risk) Valid() bool {
	_, ok := riskLevels[r]
	return ok
}

// Level returns the numeric ordering of the risk; unknown risks rank
// highest so a corrupted value can never slip under a threshold.
func (r Risk) Level() int {
	if lvl, ok := riskLevels[r]; ok {
		return lvl
	}
	return riskLevels[RiskUnsafe] + 1
}

// Exceeds reports whether r is strictly riskier than other
func (r Risk) Exceeds(other Risk) bool {
	return r.Level() > other.Level()
}

// MaxRisk returns the riskier of the two
func MaxRisk(a, b Risk) Risk {
	if b.Exceeds(a) {
		return b
	}
	return a
}

func (r Risk) String() string { return string(r) }
