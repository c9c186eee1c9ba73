package config

import "sort"

var Presets = map[string]func(*Config){
	"quick": func(c *Config) {
		c.Solver.MaxIter = 5000
		c.Solver.Tolerance = 1e-3
		c.Solver.CheckEvery = 100
		c.Sweep.Points = []int{20, 40}
		c.Sweep.K = 6
		c.Sweep.Trials = 3
		c.Dataset.Synthetic.Points = 40
	},
	"paper": func(c *Config) {
		c.Solver.MaxIter = 100000
		c.Solver.Tolerance = 1e-4
		c.Solver.CheckEvery = 1000
		c.Sweep.Points = []int{100, 200, 300, 400, 500}
		c.Sweep.K = 10
		c.Sweep.Trials = 10
		c.Dataset.Synthetic.Points = 500
	},
	"strict": func(c *Config) {
		c.Solver.MaxIter = 500000
		c.Solver.Tolerance = 1e-6
		c.Solver.CheckEvery = 1
		c.Solver.MaxCondition = 1e8
	},
}

// GetPreset returns the defaults with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// Apply layers the named preset over c. It reports whether the preset exists.
func (c *Config) Apply(name string) bool {
	apply, ok := Presets[name]
	if ok {
		apply(c)
	}
	return ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
