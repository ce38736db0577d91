package models

// PreferenceVector is the per-turn preference signal derived from a user message
type PreferenceVector struct {
	PricePreference     float64             `json:"price_preference"`
	Specificity         float64             `json:"specificity"`
	DecisionReadiness   float64             `json:"decision_readiness"`
	PreferredAttributes PreferredAttributes `json:"preferred_attributes"`
}

// PreferredAttributes lists the vocabulary terms a message mentions, per category
type PreferredAttributes struct {
	HeadsetType          []string       `json:"headset_type"`
	CoreFunction         []string       `json:"core_function"`
	Brand                []string       `json:"brand"`
	Scenario             []string       `json:"scenario"`
	CoreFunctionStrength map[string]int `json:"core_function_strength"`
}

// IsEmpty reports whether v carries no signal, as with a missing or
// unparseable stored vector.
func (v *PreferenceVector) IsEmpty() bool {
	if v == nil {
		return true
	}
	a := v.PreferredAttributes
	return v.PricePreference == 0 && v.Specificity == 0 && v.DecisionReadiness == 0 &&
		len(a.HeadsetType) == 0 && len(a.CoreFunction) == 0 && len(a.Brand) == 0 && len(a.Scenario) == 0
}
