package model

import (
	"encoding/json"
	"time"
)

// Goal is one entry in the questionnaire's goal list.
// Field names are shared with the analysis engine contract, so they stay
// snake_case on the wire.
type Goal struct {
	GoalType      string  `json:"goal_type"`
	TargetAmount  float64 `json:"target_amount"`
	TimelineYears float64 `json:"timeline_years"`
}

// FormRecord is the persisted questionnaire for one user, together with the
// cached analysis document the portfolio engine returned for it.
//
// There is exactly one record per user (user_id is UNIQUE in the DB). The only
// mutation is a full-replacement upsert: a re-submission overwrites every
// field INCLUDING AnalysisResult — even with null, if the engine call failed
// this time. The record always mirrors the latest submission.
//
// AnalysisResult is json.RawMessage because the engine's document is opaque to
// persistence; only the client renders its inner shape.
type FormRecord struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"userId"`
	Name                string          `json:"name"`
	Phone               string          `json:"phone"`
	Age                 int             `json:"age"`
	EmploymentStatus    string          `json:"employmentStatus"`
	AnnualIncome        float64         `json:"annualIncome"`
	MaritalStatus       string          `json:"maritalStatus"`
	Dependents          int             `json:"dependents"`
	SelectedGoals       []Goal          `json:"selectedGoals"`
	InvestmentHorizon   string          `json:"investmentHorizon"`
	RiskTolerance       string          `json:"riskTolerance"`
	RiskComfortLevel    int             `json:"riskComfortLevel"`
	MonthlyIncome       float64         `json:"monthlyIncome"`
	MonthlyExpenses     float64         `json:"monthlyExpenses"`
	SelectedInvestments []string        `json:"selectedInvestments"`
	ManagementStyle     string          `json:"managementStyle"`
	LifeChangesDetails  string          `json:"lifeChangesDetails"`
	Comments            string          `json:"comments"`
	AnalysisResult      json.RawMessage `json:"api_out_json"` // null until the engine succeeds
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}
