package models

import (
	"github.com/bubblehouse/connector/internal/domain/export"
)

// ExportRecordModel is the persistence model for one export attempt
type ExportRecordModel struct {
	BaseModel
	MessageType string `gorm:"type:varchar(32);not null"`
	MessageBody string `gorm:"type:text;not null"`
	Status      int16  `gorm:"type:smallint;not null;index"`
}

// TableName returns the table name for GORM
func (ExportRecordModel) TableName() string {
	return "bubblehouse_queue_log"
}

// ToDomain converts the persistence model to a domain ExportRecord
func (m *ExportRecordModel) ToDomain() *export.ExportRecord {
	return &export.ExportRecord{
		ID:          m.ID,
		MessageType: export.MessageType(m.MessageType),
		MessageBody: m.MessageBody,
		Status:      export.Status(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ExportRecord
func (m *ExportRecordModel) FromDomain(r *export.ExportRecord) {
	m.ID = r.ID
	m.MessageType = string(r.MessageType)
	m.MessageBody = r.MessageBody
	m.Status = int16(r.Status)
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
}

// ExportRecordModelFromDomain creates a new persistence model from a domain ExportRecord
func ExportRecordModelFromDomain(r *export.ExportRecord) *ExportRecordModel {
	m := &ExportRecordModel{}
	m.FromDomain(r)
	return m
}
