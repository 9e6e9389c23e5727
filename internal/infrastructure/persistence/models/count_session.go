package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stocktake/backend/internal/domain/reconcile"
	"github.com/stocktake/backend/internal/domain/session"
)

// CountSessionModel is the persistence model for the CountSession aggregate root.
type CountSessionModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	ShortID       string    `gorm:"type:varchar(8);not null;uniqueIndex"`
	Status        string    `gorm:"type:varchar(20);not null;index"`
	OriginalName  string    `gorm:"type:varchar(255);not null"`
	OriginalKey   string    `gorm:"type:varchar(512)"`
	TemplateKey   string    `gorm:"type:varchar(512)"`
	FinalKey      string    `gorm:"type:varchar(512)"`
	InventoryDate *time.Time
	Strategy      string     `gorm:"type:varchar(10);not null"`
	QuantityMode  string     `gorm:"type:varchar(10);not null"`
	LineCount     int        `gorm:"not null;default:0"`
	SummaryJSON   []byte     `gorm:"type:jsonb"`
	FailureReason string     `gorm:"type:text"`
	CreatedAt     time.Time  `gorm:"not null;index"`
	UpdatedAt     time.Time  `gorm:"not null"`
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (CountSessionModel) TableName() string {
	return "count_sessions"
}

// ToDomain converts the persistence model to a domain CountSession entity.
func (m *CountSessionModel) ToDomain() (*session.CountSession, error) {
	s := &session.CountSession{
		ID:            m.ID,
		ShortID:       m.ShortID,
		Status:        session.Status(m.Status),
		OriginalName:  m.OriginalName,
		OriginalKey:   m.OriginalKey,
		TemplateKey:   m.TemplateKey,
		FinalKey:      m.FinalKey,
		InventoryDate: m.InventoryDate,
		Strategy:      reconcile.LotDistributionStrategyType(m.Strategy),
		QuantityMode:  reconcile.QuantityMode(m.QuantityMode),
		LineCount:     m.LineCount,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		CompletedAt:   m.CompletedAt,
	}
	if len(m.SummaryJSON) > 0 {
		var summary reconcile.Summary
		if err := json.Unmarshal(m.SummaryJSON, &summary); err != nil {
			return nil, err
		}
		s.Summary = &summary
	}
	return s, nil
}

// FromDomain populates the persistence model from a domain CountSession entity.
func (m *CountSessionModel) FromDomain(s *session.CountSession) error {
	m.ID = s.ID
	m.ShortID = s.ShortID
	m.Status = s.Status.String()
	m.OriginalName = s.OriginalName
	m.OriginalKey = s.OriginalKey
	m.TemplateKey = s.TemplateKey
	m.FinalKey = s.FinalKey
	m.InventoryDate = s.InventoryDate
	m.Strategy = s.Strategy.String()
	m.QuantityMode = string(s.QuantityMode)
	m.LineCount = s.LineCount
	m.FailureReason = s.FailureReason
	m.CreatedAt = s.CreatedAt
	m.UpdatedAt = s.UpdatedAt
	m.CompletedAt = s.CompletedAt
	m.SummaryJSON = nil
	if s.Summary != nil {
		data, err := json.Marshal(s.Summary)
		if err != nil {
			return err
		}
		m.SummaryJSON = data
	}
	return nil
}
