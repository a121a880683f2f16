// Package mocks provides testify-based mock implementations for testing
// without a real oVirt engine.
package mocks

import (
	"context"

	"github.com/agrare/foreman-providers-ovirt/pkg/ovirt"
	"github.com/stretchr/testify/mock"
)

// Connection is a mock for ovirt.Connection.
type Connection struct {
	mock.Mock
}

func (m *Connection) Version() ovirt.Version {
	args := m.Called()
	return args.Get(0).(ovirt.Version)
}

func (m *Connection) URL() string {
	args := m.Called()
	return args.String(0)
}

func (m *Connection) Test(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Connection) ProductInfo(ctx context.Context) (*ovirt.ProductInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ovirt.ProductInfo), args.Error(1)
}

func (m *Connection) Inventory(ctx context.Context) (*ovirt.Inventory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ovirt.Inventory), args.Error(1)
}

func (m *Connection) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Opener is a mock for ovirt.Opener.
type Opener struct {
	mock.Mock
}

func (m *Opener) Open(version ovirt.Version, endpoint ovirt.Endpoint, creds ovirt.Credentials, service ovirt.ServiceRole) (ovirt.Connection, error) {
	args := m.Called(version, endpoint, creds, service)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ovirt.Connection), args.Error(1)
}

// compile-time interface compliance checks
var (
	_ ovirt.Connection = (*Connection)(nil)
	_ ovirt.Opener     = (*Opener)(nil)
)
