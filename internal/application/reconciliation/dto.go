package reconciliation

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocktake/backend/internal/domain/reconcile"
	"github.com/stocktake/backend/internal/domain/session"
)

// SessionResponse represents a count session in API responses
type SessionResponse struct {
	ID            uuid.UUID          `json:"id"`
	ShortID       string             `json:"short_id"`
	Status        string             `json:"status"`
	OriginalName  string             `json:"original_name"`
	Strategy      string             `json:"strategy"`
	QuantityMode  string             `json:"quantity_mode"`
	LineCount     int                `json:"line_count"`
	InventoryDate *time.Time         `json:"inventory_date,omitempty"`
	Summary       *reconcile.Summary `json:"summary,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
}

// SessionListResponse represents a paginated session list
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// UploadOptions carries per-upload overrides of the configured defaults
type UploadOptions struct {
	Strategy     string `form:"strategy" binding:"omitempty,oneof=FIFO LIFO"`
	QuantityMode string `form:"quantity_mode" binding:"omitempty,oneof=strict lenient"`
}

// CleanupResponse reports how many expired sessions a cleanup pass removed
type CleanupResponse struct {
	Removed int `json:"removed"`
}

// ToSessionResponse converts a domain session to its API representation
func ToSessionResponse(s *session.CountSession) SessionResponse {
	return SessionResponse{
		ID:            s.ID,
		ShortID:       s.ShortID,
		Status:        s.Status.String(),
		OriginalName:  s.OriginalName,
		Strategy:      s.Strategy.String(),
		QuantityMode:  string(s.QuantityMode),
		LineCount:     s.LineCount,
		InventoryDate: s.InventoryDate,
		Summary:       s.Summary,
		FailureReason: s.FailureReason,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		CompletedAt:   s.CompletedAt,
	}
}
