// Package catalog reads and mutates VM templates stored in vCenter content
// libraries. Each library is a catalog; each library item is an artifact
// whose description holds its lifecycle notes.
package catalog

import (
	"context"
)

// Item is a raw library item as returned by the catalog.
type Item struct {
	ID        string
	Name      string
	Notes     string // item description, undecoded
	CatalogID string
	Type      string // "ovf", "vm-template", ...
}

// CatalogInfo describes a content library.
type CatalogInfo struct {
	ID          string
	Name        string
	Type        string
	Description string
}

// Client abstracts content library operations.
// The real implementation uses govmomi; tests inject a mock.
type Client interface {
	ResolveCatalogID(ctx context.Context, name string) (string, error)
	ListCatalogs(ctx context.Context) ([]CatalogInfo, error)
	ListArtifacts(ctx context.Context, catalogID string) ([]Item, error)
	GetArtifactNotes(ctx context.Context, id string) (string, error)
	UpdateArtifactNotes(ctx context.Context, id, notes string) error
	// CopyArtifact creates a copy of id named newName in targetCatalogID,
	// with notes as its description, and returns the new item ID.
	CopyArtifact(ctx context.Context, id, newName, targetCatalogID, notes string) (string, error)
	DeleteArtifact(ctx context.Context, id string) error
}

// compile-time interface compliance check
var _ Client = (*Library)(nil)
