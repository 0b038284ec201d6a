package export

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageType tags what kind of entity an export record carries
type MessageType string

const (
	// MessageTypeOrder marks a record holding a serialized order
	MessageTypeOrder MessageType = "order"
)

// String returns the string representation of MessageType
func (t MessageType) String() string {
	return string(t)
}

// Status is the lifecycle state of an export record.
// The numeric values are persisted as-is.
type Status int16

const (
	// StatusPending is written before the remote call and kept if the call fails
	StatusPending Status = 0
	// StatusSuccess is written once the remote system accepted the payload
	StatusSuccess Status = 1
)

// IsValid returns true if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccess:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSuccess:
		return "SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// ExportType selects the remote operation an export is sent to
type ExportType string

const (
	// ExportTypeOrder creates or updates an order on the remote side
	ExportTypeOrder ExportType = "UpdateOrder"
)

// String returns the string representation of ExportType
func (t ExportType) String() string {
	return string(t)
}

// ExportRecord is the audit entry of one export attempt.
// There is no failed state: an attempt that did not succeed stays PENDING.
type ExportRecord struct {
	ID          uuid.UUID
	MessageType MessageType
	MessageBody string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewExportRecord creates a PENDING record with a fresh identity
func NewExportRecord() *ExportRecord {
	now := time.Now()
	return &ExportRecord{
		ID:        uuid.New(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetMessage sets the type and serialized body of the record
func (r *ExportRecord) SetMessage(messageType MessageType, body []byte) {
	r.MessageType = messageType
	r.MessageBody = string(body)
}

// MarkSuccess moves the record to SUCCESS. Repeated calls are no-ops.
func (r *ExportRecord) MarkSuccess() {
	if r.Status == StatusSuccess {
		return
	}
	r.Status = StatusSuccess
	r.UpdatedAt = time.Now()
}

// IsPending returns true while the record has not been confirmed by the remote side
func (r *ExportRecord) IsPending() bool {
	return r.Status == StatusPending
}

// ExportRecordRepository is the export log store
type ExportRecordRepository interface {
	// Create allocates a new PENDING record. Nothing is written until Save.
	Create() *ExportRecord
	// Save persists the full current state of the record.
	// Failures wrap ErrPersistence.
	Save(ctx context.Context, record *ExportRecord) error
	// FindByID returns the record with the given ID, or ErrRecordNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*ExportRecord, error)
	// FindByStatus returns up to limit records in the given status, oldest first
	FindByStatus(ctx context.Context, status Status, limit int) ([]*ExportRecord, error)
	// CountByStatus returns the number of records per status
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}
