package reconcile

// EffectOutcome reports one best-effort side effect
type EffectOutcome struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Err  error  `json:"-"`
}

// Error returns the effect's error message for API payloads
func (o EffectOutcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

type effect struct {
	name string
	run  func() error
}

// runAll executes every effect regardless of earlier failures and collects
// the outcomes, keeping the core transition logic free of try/catch noise
func runAll(effects []effect) []EffectOutcome {
	outcomes := make([]EffectOutcome, 0, len(effects))
	for _, e := range effects {
		err := e.run()
		outcomes = append(outcomes, EffectOutcome{Name: e.name, OK: err == nil, Err: err})
	}
	return outcomes
}
