// Package normalize maps the loosely-typed questionnaire payload onto the
// strict request contract the portfolio analysis engine expects.
//
// The multi-step form is lenient: numbers arrive as strings ("34"), optional
// steps may be skipped entirely, and detail fields can hold stale text from a
// toggle the user later flipped back to "no". The engine is the opposite — it
// rejects anything that doesn't match its shape exactly. This package is the
// seam between the two worlds.
//
// Everything here is total: no input, however malformed, produces an error.
// Invalid or missing numbers coerce to 0, strings to "", lists to empty
// slices. A questionnaire must always be submittable.
package normalize

import (
	"math"
	"strconv"
)

// Raw is the questionnaire payload as decoded from JSON — a bag of values
// whose types we don't trust. The accessor methods below are the only way
// values come out of it, and each one is total.
type Raw map[string]any

// Str returns the value as a string, or "" if absent or not a string.
func (r Raw) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the value as a bool, or false if absent or not a bool.
// An unanswered yes/no question means "no".
func (r Raw) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Num returns the value as a finite float64, or 0 if it is absent, not
// numeric, or a string that doesn't parse. JSON numbers decode as float64,
// but the form frequently sends numbers as strings — both are accepted.
func (r Raw) Num(key string) float64 {
	return numOf(r[key])
}

// Int returns the value parsed as an integer, truncating any fraction.
// Substitutes 0 on failure.
func (r Raw) Int(key string) int {
	return int(numOf(r[key]))
}

// Strings returns the value as a string slice. Absent or malformed lists
// become an empty slice; non-string elements are skipped.
func (r Raw) Strings(key string) []string {
	items, _ := r[key].([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Goals returns the goal list, defensively re-shaped: every goal gets its
// three fields with zero-defaults, and a missing list is an empty slice —
// never nil, so it serializes as [] rather than null.
func (r Raw) Goals(key string) []Goal {
	items, _ := r[key].([]any)
	out := make([]Goal, 0, len(items))
	for _, it := range items {
		g, _ := it.(map[string]any)
		raw := Raw(g)
		out = append(out, Goal{
			GoalType:      raw.Str("goal_type"),
			TargetAmount:  raw.Num("target_amount"),
			TimelineYears: raw.Num("timeline_years"),
		})
	}
	return out
}

func numOf(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	// The contract promises finite numbers only.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Goal mirrors one entry of the engine's financial_goals list.
type Goal struct {
	GoalType      string  `json:"goal_type"`
	TargetAmount  float64 `json:"target_amount"`
	TimelineYears float64 `json:"timeline_years"`
}

// Submission is the exact request contract of the analysis engine. Field
// names and shapes are fixed — the engine is strict, so don't rename tags.
type Submission struct {
	Age                     float64  `json:"age"`
	EmploymentStatus        string   `json:"employment_status"`
	AnnualIncome            float64  `json:"annual_income"`
	MaritalStatus           string   `json:"marital_status"`
	Dependents              int      `json:"dependents"`
	FinancialGoals          []Goal   `json:"financial_goals"`
	InvestmentHorizon       string   `json:"investment_horizon"`
	RiskTolerance           string   `json:"risk_tolerance"`
	ComfortWithFluctuations float64  `json:"comfort_with_fluctuations"`
	MonthlyIncome           float64  `json:"monthly_income"`
	MonthlyExpenses         float64  `json:"monthly_expenses"`
	ExistingDebts           string   `json:"existing_debts"`
	EmergencyFundMonths     float64  `json:"emergency_fund_months"`
	InvestmentPreferences   []string `json:"investment_preferences"`
	ManagementStyle         string   `json:"management_style"`
	EthicalCriteria         string   `json:"ethical_criteria"`
	TaxAdvantagedOptions    bool     `json:"tax_advantaged_options"`
	LiquidityNeeds          string   `json:"liquidity_needs"`
	InvestmentKnowledge     string   `json:"investment_knowledge"`
	PreviousInvestments     string   `json:"previous_investments"`
	InvolvementLevel        string   `json:"involvement_level"`
	MajorLifeChanges        bool     `json:"major_life_changes"`
	LifeChangeDetails       string   `json:"life_change_details"`
}

// Normalize converts a raw questionnaire payload into the engine contract.
// It is a pure function and never fails.
//
// CONDITIONAL FIELDS — FIRM INVARIANT:
// Several detail fields are paired with a yes/no flag (debts, emergency fund,
// ethical preferences, liquidity, prior experience, life changes). When the
// flag is false the detail is forced to its ""/0 sentinel NO MATTER what the
// raw payload contains. The form keeps detail text around when a user toggles
// "yes" → "no", and that stale text must not leak into the engine request.
func Normalize(raw Raw) Submission {
	hasDebts := raw.Bool("hasDebts")
	hasEmergencyFund := raw.Bool("hasEmergencyFund")
	hasEthicalPreferences := raw.Bool("hasEthicalPreferences")
	needsLiquidity := raw.Bool("needsLiquidity")
	hasInvestmentExperience := raw.Bool("hasInvestmentExperience")
	planningLifeChanges := raw.Bool("planningLifeChanges")

	sub := Submission{
		Age:                     raw.Num("age"),
		EmploymentStatus:        raw.Str("employmentStatus"),
		AnnualIncome:            raw.Num("annualIncome"),
		MaritalStatus:           raw.Str("maritalStatus"),
		Dependents:              raw.Int("dependents"),
		FinancialGoals:          raw.Goals("selectedGoals"),
		InvestmentHorizon:       raw.Str("investmentHorizon"),
		RiskTolerance:           raw.Str("riskTolerance"),
		ComfortWithFluctuations: raw.Num("riskComfortLevel"),
		MonthlyIncome:           raw.Num("monthlyIncome"),
		MonthlyExpenses:         raw.Num("monthlyExpenses"),
		InvestmentPreferences:   raw.Strings("selectedInvestments"),
		ManagementStyle:         raw.Str("managementStyle"),
		TaxAdvantagedOptions:    raw.Bool("interestedInTaxAdvantaged"),
		InvestmentKnowledge:     raw.Str("investmentKnowledge"),
		InvolvementLevel:        raw.Str("investmentInvolvement"),
		MajorLifeChanges:        planningLifeChanges,
	}

	if hasDebts {
		sub.ExistingDebts = raw.Str("debtDetails")
	}
	if hasEmergencyFund {
		sub.EmergencyFundMonths = raw.Num("emergencyFundMonths")
	}
	if hasEthicalPreferences {
		sub.EthicalCriteria = raw.Str("ethicalPreferences")
	}
	if needsLiquidity {
		sub.LiquidityNeeds = raw.Str("liquidityTimeframe")
	}
	if hasInvestmentExperience {
		sub.PreviousInvestments = raw.Str("investmentExperience")
	}
	if planningLifeChanges {
		sub.LifeChangeDetails = raw.Str("lifeChangesDetails")
	}

	return sub
}
