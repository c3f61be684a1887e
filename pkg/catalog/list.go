package catalog

import (
	"context"
	"sort"

	"github.com/vmware/govmomi/vapi/library"
)

// ListCatalogs returns all content libraries visible to the session, sorted by name.
func (l *Library) ListCatalogs(ctx context.Context) ([]CatalogInfo, error) {
	var libs []library.Library
	err := l.call(ctx, "list libraries", func() error {
		var err error
		libs, err = l.api.GetLibraries(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := make([]CatalogInfo, 0, len(libs))
	for _, lib := range libs {
		result = append(result, CatalogInfo{
			ID:          lib.ID,
			Name:        lib.Name,
			Type:        lib.Type,
			Description: deref(lib.Description),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}
