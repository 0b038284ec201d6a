package export

import (
	"context"

	"github.com/bubblehouse/connector/internal/domain/sales"
)

// Extractor converts an order to its external representation
type Extractor interface {
	Extract(order *sales.Order, isDeleted bool) (*OrderPayload, error)
}

// Serializer turns an external representation into the bytes stored in the export log.
// Output must be deterministic.
type Serializer interface {
	Serialize(v any) ([]byte, error)
}

// RemoteExporter pushes a payload to the remote system.
// It returns false for a rejection the remote side reported, and an error
// wrapping ErrTransport when the call itself failed.
type RemoteExporter interface {
	ExportData(ctx context.Context, exportType ExportType, payload any, storeID int64) (bool, error)
}
