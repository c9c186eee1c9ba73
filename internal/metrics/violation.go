package metrics

// Violation is the fraction of samples whose embedded value falls outside
// its bounds by more than a tolerance.
type Violation struct {
	name       string
	tolerance  float64
	violations int
	samples    int
}

func NewViolation(tolerance float64) *Violation {
	return &Violation{
		name:      "violation_rate",
		tolerance: tolerance,
	}
}

func (v *Violation) Name() string {
	return v.name
}

func (v *Violation) Observe(s Sample) {
	v.samples++
	if excursion(s.Embedded, s.Lower, s.Upper) > v.tolerance {
		v.violations++
	}
}

func (v *Violation) Value() float64 {
	if v.samples == 0 {
		return 0
	}
	return float64(v.violations) / float64(v.samples)
}

func (v *Violation) Reset() {
	v.violations = 0
	v.samples = 0
}

// MaxExcursion is the largest distance of an embedded value from its bounds.
type MaxExcursion struct {
	worst float64
}

func NewMaxExcursion() *MaxExcursion {
	return &MaxExcursion{}
}

func (m *MaxExcursion) Name() string { return "max_excursion" }

func (m *MaxExcursion) Observe(s Sample) {
	m.worst = max(m.worst, excursion(s.Embedded, s.Lower, s.Upper))
}

func (m *MaxExcursion) Value() float64 { return m.worst }

func (m *MaxExcursion) Reset() { m.worst = 0 }
