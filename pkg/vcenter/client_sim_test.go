package vcenter

import (
	"context"
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi/simulator"
	"github.com/vmware/govmomi/vapi/library"

	_ "github.com/vmware/govmomi/vapi/simulator"
)

func newSimClient(t *testing.T) (*Client, context.Context, func()) {
	t.Helper()

	model := simulator.VPX()
	model.Datacenter = 1
	model.Cluster = 1
	model.Host = 1

	require.NoError(t, model.Create())
	model.Service.RegisterEndpoints = true
	model.Service.TLS = new(tls.Config)
	s := model.Service.NewServer()

	ctx := context.Background()
	u := s.URL
	u.User = simulator.DefaultLogin

	client, err := NewClient(ctx, &Config{
		Host:     u.String(),
		Username: simulator.DefaultLogin.Username(),
		Password: func() string { p, _ := simulator.DefaultLogin.Password(); return p }(),
		Insecure: true,
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = client.Disconnect()
		s.Close()
		model.Remove()
	}

	return client, ctx, cleanup
}

func TestNewClient_OpensRESTSession(t *testing.T) {
	client, ctx, cleanup := newSimClient(t)
	defer cleanup()

	require.NotNil(t, client.Client())
	require.NotNil(t, client.REST())

	// A REST call only succeeds with a live vAPI session.
	_, err := library.NewManager(client.REST()).ListLibraries(ctx)
	require.NoError(t, err)
}

func TestClient_Relogin(t *testing.T) {
	client, ctx, cleanup := newSimClient(t)
	defer cleanup()

	require.NoError(t, client.REST().Logout(ctx))
	require.NoError(t, client.Relogin(ctx))

	_, err := library.NewManager(client.REST()).ListLibraries(ctx)
	require.NoError(t, err)
}

func TestClient_DisconnectAfterConnectContextEnds(t *testing.T) {
	model := simulator.VPX()
	require.NoError(t, model.Create())
	defer model.Remove()
	model.Service.RegisterEndpoints = true
	model.Service.TLS = new(tls.Config)
	s := model.Service.NewServer()
	defer s.Close()

	password, _ := simulator.DefaultLogin.Password()
	cctx, cancel := context.WithCancel(context.Background())
	client, err := NewClient(cctx, &Config{
		Host:     s.URL.String(),
		Username: simulator.DefaultLogin.Username(),
		Password: password,
		Insecure: true,
	})
	require.NoError(t, err)
	cancel()

	require.NoError(t, client.Disconnect())
}
