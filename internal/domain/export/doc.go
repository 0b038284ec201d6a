// Package export contains the order export bounded context.
// It owns the export audit log (ExportRecord) and defines the ports the
// export handler composes to push one order to Bubblehouse.
//
// Key concepts:
//   - ExportRecord: durable audit entry written before every remote call
//   - OrderExtractor: pure mapping from a storefront order to its external representation
//   - RemoteExporter: port implemented by the Bubblehouse HTTP client
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package export
