package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/investoai/onboarding-api/internal/apperror"
	"github.com/investoai/onboarding-api/internal/model"
	"github.com/investoai/onboarding-api/internal/repository"
)

// compile-time check that *DB implements repository.FormRepository
var _ repository.FormRepository = (*DB)(nil)

// Upsert inserts the user's questionnaire record, or fully replaces the
// existing one.
//
// We look up the existing row by user_id first (same idiom as user creation):
// on the update path we keep the record's internal id and created_at, and
// overwrite everything else — including api_out_json, even when the new value
// is NULL. "Most-recent submission wins" is the whole contract here.
func (db *DB) Upsert(ctx context.Context, record *model.FormRecord) error {
	goals, err := json.Marshal(record.SelectedGoals)
	if err != nil {
		return fmt.Errorf("sqlite: encoding goals: %w", err)
	}
	investments, err := json.Marshal(record.SelectedInvestments)
	if err != nil {
		return fmt.Errorf("sqlite: encoding investments: %w", err)
	}

	// api_out_json is nullable: no analysis → NULL, not the string "null".
	var analysis sql.NullString
	if len(record.AnalysisResult) > 0 && string(record.AnalysisResult) != "null" {
		analysis = sql.NullString{String: string(record.AnalysisResult), Valid: true}
	}

	var existingID string
	var existingCreatedAt time.Time
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM form_details WHERE user_id = ?`, record.UserID,
	).Scan(&existingID, &existingCreatedAt)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up form for user %s: %w", record.UserID, err)
	}

	now := time.Now().UTC()

	if existingID != "" {
		record.ID = existingID
		record.CreatedAt = existingCreatedAt
		record.UpdatedAt = now

		_, err = db.conn.ExecContext(ctx,
			`UPDATE form_details SET
				name = ?, phone = ?, age = ?, employment_status = ?,
				annual_income = ?, marital_status = ?, dependents = ?,
				selected_goals = ?, investment_horizon = ?, risk_tolerance = ?,
				risk_comfort_level = ?, monthly_income = ?, monthly_expenses = ?,
				selected_investments = ?, management_style = ?,
				life_changes_details = ?, comments = ?, api_out_json = ?,
				updated_at = ?
			 WHERE id = ?`,
			record.Name, record.Phone, record.Age, record.EmploymentStatus,
			record.AnnualIncome, record.MaritalStatus, record.Dependents,
			string(goals), record.InvestmentHorizon, record.RiskTolerance,
			record.RiskComfortLevel, record.MonthlyIncome, record.MonthlyExpenses,
			string(investments), record.ManagementStyle,
			record.LifeChangesDetails, record.Comments, analysis,
			record.UpdatedAt,
			record.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating form %s: %w", record.ID, err)
		}
		return nil
	}

	record.ID = xid.New().String()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO form_details (
			id, user_id, name, phone, age, employment_status, annual_income,
			marital_status, dependents, selected_goals, investment_horizon,
			risk_tolerance, risk_comfort_level, monthly_income, monthly_expenses,
			selected_investments, management_style, life_changes_details,
			comments, api_out_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, record.Name, record.Phone, record.Age,
		record.EmploymentStatus, record.AnnualIncome, record.MaritalStatus,
		record.Dependents, string(goals), record.InvestmentHorizon,
		record.RiskTolerance, record.RiskComfortLevel, record.MonthlyIncome,
		record.MonthlyExpenses, string(investments), record.ManagementStyle,
		record.LifeChangesDetails, record.Comments, analysis,
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting form for user %s: %w", record.UserID, err)
	}

	return nil
}

// GetByUserID retrieves the questionnaire record for a user.
// Returns apperror.ErrNotFound if the user never submitted one.
func (db *DB) GetByUserID(ctx context.Context, userID string) (*model.FormRecord, error) {
	var (
		rec         model.FormRecord
		goals       string
		investments string
		analysis    sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, phone, age, employment_status, annual_income,
			marital_status, dependents, selected_goals, investment_horizon,
			risk_tolerance, risk_comfort_level, monthly_income, monthly_expenses,
			selected_investments, management_style, life_changes_details,
			comments, api_out_json, created_at, updated_at
		 FROM form_details WHERE user_id = ?`,
		userID,
	).Scan(
		&rec.ID, &rec.UserID, &rec.Name, &rec.Phone, &rec.Age,
		&rec.EmploymentStatus, &rec.AnnualIncome, &rec.MaritalStatus,
		&rec.Dependents, &goals, &rec.InvestmentHorizon,
		&rec.RiskTolerance, &rec.RiskComfortLevel, &rec.MonthlyIncome,
		&rec.MonthlyExpenses, &investments, &rec.ManagementStyle,
		&rec.LifeChangesDetails, &rec.Comments, &analysis,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("form record", userID)
		}
		return nil, fmt.Errorf("sqlite: getting form for user %s: %w", userID, err)
	}

	if err := json.Unmarshal([]byte(goals), &rec.SelectedGoals); err != nil {
		return nil, fmt.Errorf("sqlite: decoding goals for user %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(investments), &rec.SelectedInvestments); err != nil {
		return nil, fmt.Errorf("sqlite: decoding investments for user %s: %w", userID, err)
	}
	if analysis.Valid {
		rec.AnalysisResult = json.RawMessage(analysis.String)
	}

	return &rec, nil
}

// HasForm reports whether the user has a questionnaire record.
func (db *DB) HasForm(ctx context.Context, userID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM form_details WHERE user_id = ?`, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking form for user %s: %w", userID, err)
	}
	return count > 0, nil
}
