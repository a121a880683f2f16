package ovirt

import "context"

// Connection is an open, version-tagged handle to an engine API.
// The caller that opened it owns it and must Close it, also on error paths.
type Connection interface {
	Version() Version
	URL() string
	// Test performs a cheap authenticated call against the API root.
	Test(ctx context.Context) error
	ProductInfo(ctx context.Context) (*ProductInfo, error)
	// Inventory fetches the complete inventory of the engine.
	Inventory(ctx context.Context) (*Inventory, error)
	Close() error
}

// Opener opens connections. *Factory is the production implementation;
// tests inject a mock.
type Opener interface {
	Open(version Version, endpoint Endpoint, creds Credentials, service ServiceRole) (Connection, error)
}

// compile-time interface compliance checks
var (
	_ Opener     = (*Factory)(nil)
	_ Connection = (*v3Connection)(nil)
	_ Connection = (*v4Connection)(nil)
)
