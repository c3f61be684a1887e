// Package mocks provides testify-based mock implementations for testing
// without a real vCenter connection.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vmware/govmomi/vapi/rest"
)

// ClientInterface is a mock for vcenter.ClientInterface.
type ClientInterface struct {
	mock.Mock
}

func (m *ClientInterface) REST() *rest.Client {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*rest.Client)
}

func (m *ClientInterface) Relogin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *ClientInterface) Disconnect() error {
	args := m.Called()
	return args.Error(0)
}
