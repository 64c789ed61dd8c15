package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/investoai/onboarding-api/internal/apperror"
	"github.com/investoai/onboarding-api/internal/model"
)

func createUser(t *testing.T, db *DB) *model.User {
	t.Helper()
	u := &model.User{ClerkID: "user_form", Email: "form@example.com"}
	require.NoError(t, db.Create(context.Background(), u))
	return u
}

func sampleRecord(userID string) *model.FormRecord {
	return &model.FormRecord{
		UserID:           userID,
		Name:             "Jo",
		Age:              34,
		EmploymentStatus: "employed",
		AnnualIncome:     85000,
		SelectedGoals: []model.Goal{
			{GoalType: "retire", TargetAmount: 1000000, TimelineYears: 30},
		},
		RiskTolerance:       "moderate",
		RiskComfortLevel:    7,
		MonthlyIncome:       7000,
		MonthlyExpenses:     4500,
		SelectedInvestments: []string{"stocks", "bonds"},
		ManagementStyle:     "passive",
		AnalysisResult:      json.RawMessage(`{"review_schedule":"quarterly"}`),
	}
}

func TestFormUpsert_InsertThenGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createUser(t, db)

	rec := sampleRecord(u.ID)
	require.NoError(t, db.Upsert(ctx, rec))
	assert.NotEmpty(t, rec.ID)

	got, err := db.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jo", got.Name)
	assert.Equal(t, rec.SelectedGoals, got.SelectedGoals)
	assert.Equal(t, []string{"stocks", "bonds"}, got.SelectedInvestments)
	assert.JSONEq(t, `{"review_schedule":"quarterly"}`, string(got.AnalysisResult))
}

// Upserting twice leaves exactly one record, with the second submission's
// values — including the analysis result, even when the second one is null.
func TestFormUpsert_ReplacesExistingRecord(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createUser(t, db)

	first := sampleRecord(u.ID)
	require.NoError(t, db.Upsert(ctx, first))

	second := sampleRecord(u.ID)
	second.Name = "Jo Updated"
	second.AnalysisResult = nil // engine failed this time
	require.NoError(t, db.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID, "update path keeps the internal id")
	assert.WithinDuration(t, first.CreatedAt, second.CreatedAt, time.Second,
		"created_at preserved across replacement")

	got, err := db.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jo Updated", got.Name)
	assert.Nil(t, got.AnalysisResult,
		"a failed analysis overwrites the previously stored document")
}

func TestFormGetByUserID_Unknown(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByUserID(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestHasForm(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createUser(t, db)

	has, err := db.HasForm(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, db.Upsert(ctx, sampleRecord(u.ID)))

	has, err = db.HasForm(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, has)
}
