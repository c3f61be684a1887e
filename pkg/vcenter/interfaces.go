package vcenter

import (
	"context"

	"github.com/vmware/govmomi/vapi/rest"
)

// ClientInterface abstracts a vCenter session.
// The real implementation uses govmomi; tests inject a mock.
type ClientInterface interface {
	REST() *rest.Client
	Relogin(ctx context.Context) error
	Disconnect() error
}

// compile-time interface compliance check
var _ ClientInterface = (*Client)(nil)
