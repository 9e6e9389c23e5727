package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stocktake/backend/internal/domain/reconcile"
	"github.com/stocktake/backend/internal/domain/shared"
)

// Status represents the lifecycle state of a count session
type Status string

const (
	StatusCreated           Status = "CREATED"
	StatusTemplateGenerated Status = "TEMPLATE_GENERATED"
	StatusProcessing        Status = "PROCESSING"
	StatusCompleted         Status = "COMPLETED"
	StatusFailed            Status = "FAILED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusTemplateGenerated, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusCreated:
		return target == StatusTemplateGenerated || target == StatusFailed
	case StatusTemplateGenerated:
		return target == StatusProcessing || target == StatusFailed
	case StatusProcessing:
		return target == StatusCompleted || target == StatusFailed
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CountSession is the aggregate root for one stock count cycle: the uploaded
// export, the generated count sheet, and the reconciled final file.
type CountSession struct {
	ID            uuid.UUID
	ShortID       string
	Status        Status
	OriginalName  string
	OriginalKey   string
	TemplateKey   string
	FinalKey      string
	InventoryDate *time.Time
	Strategy      reconcile.LotDistributionStrategyType
	QuantityMode  reconcile.QuantityMode
	LineCount     int
	Summary       *reconcile.Summary
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// NewCountSession creates a session in CREATED state for an uploaded export file.
func NewCountSession(originalName string, strategy reconcile.LotDistributionStrategyType, mode reconcile.QuantityMode) (*CountSession, error) {
	if strings.TrimSpace(originalName) == "" {
		return nil, shared.NewDomainError("INVALID_FILENAME", "Original file name cannot be empty")
	}
	id := uuid.New()
	now := time.Now().UTC()
	return &CountSession{
		ID:           id,
		ShortID:      ShortID(id),
		Status:       StatusCreated,
		OriginalName: originalName,
		Strategy:     strategy,
		QuantityMode: mode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ShortID derives the 8-character session identifier used in file keys and URLs.
func ShortID(id uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// MarkTemplateGenerated records the stored count sheet key.
func (s *CountSession) MarkTemplateGenerated(templateKey string, lineCount int) error {
	if !s.Status.CanTransitionTo(StatusTemplateGenerated) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot generate template for session in %s status", s.Status))
	}
	s.Status = StatusTemplateGenerated
	s.TemplateKey = templateKey
	s.LineCount = lineCount
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkProcessing moves the session into the reconciliation phase.
func (s *CountSession) MarkProcessing() error {
	if !s.Status.CanTransitionTo(StatusProcessing) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot process session in %s status", s.Status))
	}
	s.Status = StatusProcessing
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted records the final file key and the run summary.
func (s *CountSession) MarkCompleted(finalKey string, summary reconcile.Summary) error {
	if !s.Status.CanTransitionTo(StatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete session in %s status", s.Status))
	}
	now := time.Now().UTC()
	s.Status = StatusCompleted
	s.FinalKey = finalKey
	s.Summary = &summary
	s.UpdatedAt = now
	s.CompletedAt = &now
	return nil
}

// MarkFailed records a terminal failure with its reason.
func (s *CountSession) MarkFailed(reason string) error {
	if s.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail session in %s status", s.Status))
	}
	now := time.Now().UTC()
	s.Status = StatusFailed
	s.FailureReason = reason
	s.UpdatedAt = now
	s.CompletedAt = &now
	return nil
}

// ExpiredBefore reports whether the session finished before the cutoff and can
// be purged together with its stored files.
func (s *CountSession) ExpiredBefore(cutoff time.Time) bool {
	if !s.Status.IsTerminal() {
		return false
	}
	ref := s.UpdatedAt
	if s.CompletedAt != nil {
		ref = *s.CompletedAt
	}
	return ref.Before(cutoff)
}
