// Package mocks provides testify-based mock implementations of catalog.Client.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/catalog"
)

// Client is a mock for catalog.Client.
type Client struct {
	mock.Mock
}

func (m *Client) ResolveCatalogID(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *Client) ListCatalogs(ctx context.Context) ([]catalog.CatalogInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.CatalogInfo), args.Error(1)
}

func (m *Client) ListArtifacts(ctx context.Context, catalogID string) ([]catalog.Item, error) {
	args := m.Called(ctx, catalogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Item), args.Error(1)
}

func (m *Client) GetArtifactNotes(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *Client) UpdateArtifactNotes(ctx context.Context, id, notes string) error {
	args := m.Called(ctx, id, notes)
	return args.Error(0)
}

func (m *Client) CopyArtifact(ctx context.Context, id, newName, targetCatalogID, notes string) (string, error) {
	args := m.Called(ctx, id, newName, targetCatalogID, notes)
	return args.String(0), args.Error(1)
}

func (m *Client) DeleteArtifact(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// compile-time interface compliance check
var _ catalog.Client = (*Client)(nil)
