package export

import (
	"errors"

	"github.com/bubblehouse/connector/internal/domain/shared"
)

var (
	// ErrInvalidOrderData indicates the order is missing fields the extractor requires
	ErrInvalidOrderData = errors.New("export: invalid order data")
	// ErrPersistence indicates the export log could not be written
	ErrPersistence = errors.New("export: export log unavailable")
	// ErrTransport indicates the remote system could not be reached or answered with a server error
	ErrTransport = errors.New("export: transport failure")
	// ErrRejected indicates the remote system refused the payload
	ErrRejected = errors.New("export: rejected by remote")
	// ErrRecordNotFound indicates no export record has the requested ID
	ErrRecordNotFound = errors.New("export: record not found")
)

// ErrExportFailed is the only error callers of the export handler receive.
// The specific cause is logged, not returned.
var ErrExportFailed = shared.NewDomainError("EXPORT_FAILED", "Bubblehouse export failed")
