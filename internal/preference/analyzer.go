package preference

import (
	"math"
	"strings"

	"github.com/xaenox/shopbot-experiment/internal/models"
	"golang.org/x/text/width"
)

// Focus is the attribute category a message is primarily concerned with
type Focus string

const (
	FocusPrice       Focus = "price"
	FocusBrand       Focus = "brand"
	FocusFunction    Focus = "function"
	FocusType        Focus = "type"
	FocusScenario    Focus = "scenario"
	FocusExploration Focus = "exploration"
)

const (
	priceStep            = 0.6
	specificitySaturates = 3.0

	readinessExploration   = 0.3
	readinessConsideration = 0.6
	readinessDecision      = 1.0
)

// Analyzer scores free text into a PreferenceVector using keyword
// membership. Matching is plain substring containment after case and
// width folding, so a short keyword inside a longer unrelated word still
// counts. Analyzer holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	types     keywordSet
	functions keywordSet
	brands    keywordSet
	scenarios keywordSet

	// mid-range terms only feed focus detection; they never shift the price score
	priceLow  keywordSet
	priceHigh keywordSet

	exploration   keywordSet
	consideration keywordSet
	decision      keywordSet

	specific      keywordSet
	priceFocus    keywordSet
	functionFocus keywordSet
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		types:     newKeywordSet(headsetTypes),
		functions: newKeywordSet(coreFunctions),
		brands:    newKeywordSet(brands),
		scenarios: newKeywordSet(scenarios),

		priceLow:  newKeywordSet(priceLowKeywords),
		priceHigh: newKeywordSet(priceHighKeywords),

		exploration:   newKeywordSet(explorationKeywords),
		consideration: newKeywordSet(considerationKeywords),
		decision:      newKeywordSet(decisionKeywords),

		specific:      newKeywordSet(concat(headsetTypes, coreFunctions, brands, attributeNouns)),
		priceFocus:    newKeywordSet(concat(priceLowKeywords, priceMidKeywords, priceHighKeywords, priceFocusExtras)),
		functionFocus: newKeywordSet(concat(coreFunctions, functionFocusExtras)),
	}
}

// PricePreference returns a score in [-1, 1]; negative means cheap-seeking.
func (a *Analyzer) PricePreference(text string) float64 {
	folded := fold(text)
	score := 0.0
	score -= priceStep * float64(a.priceLow.count(folded))
	score += priceStep * float64(a.priceHigh.count(folded))
	return clamp(score, -1, 1)
}

// Specificity returns a score in [0, 1]; three or more attribute mentions saturate.
func (a *Analyzer) Specificity(text string) float64 {
	matches := a.specific.count(fold(text))
	return math.Min(float64(matches)/specificitySaturates, 1)
}

// DecisionReadiness classifies the purchase stage. Text with no stage
// keyword is treated as exploratory.
func (a *Analyzer) DecisionReadiness(text string) float64 {
	folded := fold(text)
	switch {
	case a.decision.any(folded):
		return readinessDecision
	case a.consideration.any(folded):
		return readinessConsideration
	case a.exploration.any(folded):
		return readinessExploration
	}
	return readinessExploration
}

// PreferredAttributes lists the vocabulary terms found in text, in
// vocabulary order, plus a mention count for every function term.
func (a *Analyzer) PreferredAttributes(text string) models.PreferredAttributes {
	folded := fold(text)
	attrs := models.PreferredAttributes{
		HeadsetType:  a.types.matches(folded),
		CoreFunction: a.functions.matches(folded),
		Brand:        a.brands.matches(folded),
		Scenario:     a.scenarios.matches(folded),
	}

	strength := make(map[string]int, len(a.functions.terms))
	for _, term := range a.functions.terms {
		strength[term] = 0
	}
	for _, term := range attrs.CoreFunction {
		strength[term]++
	}
	attrs.CoreFunctionStrength = strength
	return attrs
}

func (a *Analyzer) ComputeVector(text string) models.PreferenceVector {
	return models.PreferenceVector{
		PricePreference:     a.PricePreference(text),
		Specificity:         a.Specificity(text),
		DecisionReadiness:   a.DecisionReadiness(text),
		PreferredAttributes: a.PreferredAttributes(text),
	}
}

// IdentifyFocus returns the first category whose vocabulary appears in
// text, testing price, brand, function, type and scenario in that order.
func (a *Analyzer) IdentifyFocus(text string) Focus {
	folded := fold(text)
	switch {
	case a.priceFocus.any(folded):
		return FocusPrice
	case a.brands.any(folded):
		return FocusBrand
	case a.functionFocus.any(folded):
		return FocusFunction
	case a.types.any(folded):
		return FocusType
	case a.scenarios.any(folded):
		return FocusScenario
	}
	return FocusExploration
}

// Drift measures how far current moved from previous: the Euclidean
// distance over the numeric dimensions combined with the Jaccard distance
// of each attribute category. A missing previous vector yields 0.
func Drift(current, previous *models.PreferenceVector) float64 {
	if previous.IsEmpty() || current == nil {
		return 0
	}

	sum := sq(current.PricePreference-previous.PricePreference) +
		sq(current.Specificity-previous.Specificity) +
		sq(current.DecisionReadiness-previous.DecisionReadiness)

	cur, prev := current.PreferredAttributes, previous.PreferredAttributes
	sum += jaccardDistance(cur.HeadsetType, prev.HeadsetType)
	sum += jaccardDistance(cur.CoreFunction, prev.CoreFunction)
	sum += jaccardDistance(cur.Brand, prev.Brand)
	sum += jaccardDistance(cur.Scenario, prev.Scenario)

	return math.Sqrt(sum)
}

// jaccardDistance is 1 - |a∩b|/|a∪b|, or 0 when both are empty.
func jaccardDistance(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	var inter int
	for k := range setA {
		if _, ok := setB[k]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return 1 - float64(inter)/float64(union)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func sq(x float64) float64 { return x * x }

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}

// fold maps full-width forms to their narrow equivalents and lower-cases.
func fold(s string) string {
	return strings.ToLower(width.Fold.String(s))
}

type keywordSet struct {
	terms  []string
	folded []string
}

func newKeywordSet(terms []string) keywordSet {
	folded := make([]string, len(terms))
	for i, t := range terms {
		folded[i] = fold(t)
	}
	return keywordSet{terms: terms, folded: folded}
}

// count returns how many keywords occur in text (each keyword at most once).
func (k keywordSet) count(text string) int {
	var n int
	for _, kw := range k.folded {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

func (k keywordSet) any(text string) bool {
	for _, kw := range k.folded {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (k keywordSet) matches(text string) []string {
	out := []string{}
	for i, kw := range k.folded {
		if strings.Contains(text, kw) {
			out = append(out, k.terms[i])
		}
	}
	return out
}
