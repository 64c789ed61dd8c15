// Package service contains the business logic of the onboarding API.
//
// The layering follows the usual three-tier split: handlers parse HTTP and
// write responses, this package enforces the rules and sequences the work,
// repositories talk to storage. The service knows nothing about HTTP — it
// returns apperror values and the handler translates them to status codes.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/investoai/onboarding-api/internal/apperror"
	"github.com/investoai/onboarding-api/internal/model"
	"github.com/investoai/onboarding-api/internal/normalize"
	"github.com/investoai/onboarding-api/internal/repository"
)

// Analyzer produces a recommendation document for a normalized submission.
// internal/analysis implements it against the real engine; tests substitute
// mocks that succeed, fail, or record what they were sent.
type Analyzer interface {
	Analyze(ctx context.Context, sub normalize.Submission) (json.RawMessage, error)
}

// UserStatus drives the post-sign-in redirect.
type UserStatus struct {
	Exists        bool   `json:"exists"`
	HasFilledForm bool   `json:"hasFilledForm"`
	RedirectTo    string `json:"redirectTo"` // "/form", "/investment-dashboard" or "/"
}

// OnboardingService orchestrates user sync, questionnaire submission and
// status queries.
type OnboardingService struct {
	users    repository.UserRepository
	forms    repository.FormRepository
	analyzer Analyzer
	logger   *slog.Logger

	// Submissions for the same user are serialized: without this, two
	// concurrent submits race at the upsert and interleave their analyze +
	// persist steps. Cross-user submissions still run concurrently.
	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewOnboardingService wires the service with its dependencies.
func NewOnboardingService(users repository.UserRepository, forms repository.FormRepository, analyzer Analyzer, logger *slog.Logger) *OnboardingService {
	return &OnboardingService{
		users:     users,
		forms:     forms,
		analyzer:  analyzer,
		logger:    logger,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// SyncUser finds the user for the given auth-provider id, creating the row on
// first contact. Returns the user and whether it already existed.
//
// Both fields are required — a sync without them is a client bug and must not
// create a half-formed row.
func (s *OnboardingService) SyncUser(ctx context.Context, clerkID, email string) (*model.User, bool, error) {
	clerkID = strings.TrimSpace(clerkID)
	email = strings.TrimSpace(email)

	if clerkID == "" {
		return nil, false, apperror.ValidationFailed("clerkId", "clerkId is required")
	}
	if email == "" {
		return nil, false, apperror.ValidationFailed("email", "email is required")
	}

	user, err := s.users.GetByClerkID(ctx, clerkID)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, fmt.Errorf("syncing user: %w", err)
	}

	user = &model.User{ClerkID: clerkID, Email: email}
	if err := s.users.Create(ctx, user); err != nil {
		// Two concurrent first syncs can race find-then-create; the UNIQUE
		// constraint stops the loser, so a re-read resolves it.
		if existing, getErr := s.users.GetByClerkID(ctx, clerkID); getErr == nil {
			return existing, true, nil
		}
		return nil, false, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("clerkId", clerkID),
	)

	return user, false, nil
}

// CheckUser returns the user for an auth-provider id.
// Returns apperror.ErrNotFound if no such user exists.
func (s *OnboardingService) CheckUser(ctx context.Context, clerkID string) (*model.User, error) {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return nil, apperror.ValidationFailed("clerkId", "clerkId is required")
	}
	return s.users.GetByClerkID(ctx, clerkID)
}

// FormStatus reports whether the user has submitted the questionnaire.
// Returns apperror.ErrNotFound for an unknown user.
func (s *OnboardingService) FormStatus(ctx context.Context, clerkID string) (bool, error) {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return false, apperror.ValidationFailed("clerkId", "clerkId is required")
	}

	user, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return false, err
	}

	has, err := s.forms.HasForm(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("checking form status: %w", err)
	}
	return has, nil
}

// UserStatus resolves where a freshly signed-in user should land. It never
// returns an error: an unknown user goes to the questionnaire, and an
// internal failure degrades to the landing page so sign-in always completes.
func (s *OnboardingService) UserStatus(ctx context.Context, clerkID string) UserStatus {
	user, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return UserStatus{Exists: false, HasFilledForm: false, RedirectTo: "/form"}
		}
		s.logger.Error("user status lookup failed",
			slog.String("clerkId", clerkID),
			slog.String("error", err.Error()),
		)
		return UserStatus{RedirectTo: "/"}
	}

	has, err := s.forms.HasForm(ctx, user.ID)
	if err != nil {
		s.logger.Error("user status form check failed",
			slog.String("clerkId", clerkID),
			slog.String("error", err.Error()),
		)
		return UserStatus{RedirectTo: "/"}
	}

	status := UserStatus{Exists: true, HasFilledForm: has, RedirectTo: "/form"}
	if has {
		status.RedirectTo = "/investment-dashboard"
	}
	return status
}

// SubmitForm runs the submission pipeline for an existing user:
//
//  1. look up the user (unknown → not found, nothing persisted)
//  2. normalize the raw questionnaire (total, never fails)
//  3. ask the analysis engine for a recommendation — BEST EFFORT: any failure
//     is logged and the pipeline continues with a null document. Capturing the
//     form must never be blocked by an analytics outage.
//  4. upsert the record — full replacement, most-recent submission wins. A
//     null document from step 3 overwrites a previously stored analysis; the
//     record always mirrors the latest submission.
//
// Steps run strictly in sequence, and submissions for the same user are
// serialized on a per-user lock. Resubmitting the same form is idempotent.
func (s *OnboardingService) SubmitForm(ctx context.Context, clerkID string, raw normalize.Raw) (*model.FormRecord, error) {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return nil, apperror.ValidationFailed("clerkId", "clerkId is required")
	}
	if raw == nil {
		return nil, apperror.ValidationFailed("formData", "formData is required")
	}

	lock := s.lockFor(clerkID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	sub := normalize.Normalize(raw)

	doc, err := s.analyzer.Analyze(ctx, sub)
	if err != nil {
		s.logger.Warn("analysis engine call failed, persisting form without result",
			slog.String("clerkId", clerkID),
			slog.String("error", err.Error()),
		)
		doc = nil
	}

	record := recordFromRaw(user.ID, raw, doc)
	if err := s.forms.Upsert(ctx, record); err != nil {
		s.logger.Error("failed to persist form",
			slog.String("clerkId", clerkID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("persisting form: %w", err)
	}

	s.logger.Info("form submitted",
		slog.String("clerkId", clerkID),
		slog.String("formId", record.ID),
		slog.Bool("hasAnalysis", record.AnalysisResult != nil),
	)

	return record, nil
}

// InvestmentData returns the stored analysis document for a user.
// Not found covers all three gaps: unknown user, no record, record without a
// successful analysis.
func (s *OnboardingService) InvestmentData(ctx context.Context, clerkID string) (json.RawMessage, error) {
	clerkID = strings.TrimSpace(clerkID)
	if clerkID == "" {
		return nil, apperror.ValidationFailed("clerkId", "clerkId is required")
	}

	user, err := s.users.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	record, err := s.forms.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if record.AnalysisResult == nil {
		return nil, apperror.NotFound("investment data", clerkID)
	}

	return record.AnalysisResult, nil
}

func (s *OnboardingService) lockFor(clerkID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[clerkID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[clerkID] = lock
	}
	return lock
}

// recordFromRaw builds the persisted record from the raw payload, using the
// same total coercions as the normalizer. Unlike the engine contract, the
// record keeps the optional free-text fields verbatim.
func recordFromRaw(userID string, raw normalize.Raw, doc json.RawMessage) *model.FormRecord {
	goals := make([]model.Goal, 0, len(raw.Goals("selectedGoals")))
	for _, g := range raw.Goals("selectedGoals") {
		goals = append(goals, model.Goal{
			GoalType:      g.GoalType,
			TargetAmount:  g.TargetAmount,
			TimelineYears: g.TimelineYears,
		})
	}

	return &model.FormRecord{
		UserID:              userID,
		Name:                raw.Str("name"),
		Phone:               raw.Str("phone"),
		Age:                 raw.Int("age"),
		EmploymentStatus:    raw.Str("employmentStatus"),
		AnnualIncome:        raw.Num("annualIncome"),
		MaritalStatus:       raw.Str("maritalStatus"),
		Dependents:          raw.Int("dependents"),
		SelectedGoals:       goals,
		InvestmentHorizon:   raw.Str("investmentHorizon"),
		RiskTolerance:       raw.Str("riskTolerance"),
		RiskComfortLevel:    raw.Int("riskComfortLevel"),
		MonthlyIncome:       raw.Num("monthlyIncome"),
		MonthlyExpenses:     raw.Num("monthlyExpenses"),
		SelectedInvestments: raw.Strings("selectedInvestments"),
		ManagementStyle:     raw.Str("managementStyle"),
		LifeChangesDetails:  raw.Str("lifeChangesDetails"),
		Comments:            raw.Str("comments"),
		AnalysisResult:      doc,
	}
}
