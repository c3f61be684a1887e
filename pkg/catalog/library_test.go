package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vmware/govmomi/vapi/library"
	"golang.org/x/time/rate"

	"github.com/Bibi40k/vmware-template-lifecycle/pkg/vcenter/mocks"
)

var errUnauthorized = errors.New("GET https://vc/api/content/library/item: 401 Unauthorized")

// fakeAPI is an in-memory libraryAPI. Queued errors are returned before any result.
type fakeAPI struct {
	libraries []library.Library
	items     map[string]library.Item
	errs      []error
	calls     int
	updated   []library.Item
	copied    []library.Item
	deleted   []string
}

func (f *fakeAPI) next() error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeAPI) FindLibrary(_ context.Context, search library.Find) ([]string, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	var ids []string
	for _, lib := range f.libraries {
		if lib.Name == search.Name && (search.Type == "" || lib.Type == search.Type) {
			ids = append(ids, lib.ID)
		}
	}
	return ids, nil
}

func (f *fakeAPI) GetLibraries(context.Context) ([]library.Library, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return f.libraries, nil
}

func (f *fakeAPI) GetLibraryItems(_ context.Context, libraryID string) ([]library.Item, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	var out []library.Item
	for _, it := range f.items {
		if it.LibraryID == libraryID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetLibraryItem(_ context.Context, id string) (*library.Item, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	it, ok := f.items[id]
	if !ok {
		return nil, errors.New("GET https://vc/api/content/library/item/" + id + ": 404 Not Found")
	}
	return &it, nil
}

func (f *fakeAPI) UpdateLibraryItem(_ context.Context, item *library.Item) error {
	if err := f.next(); err != nil {
		return err
	}
	f.updated = append(f.updated, *item)
	return nil
}

func (f *fakeAPI) CopyLibraryItem(_ context.Context, _ *library.Item, dst library.Item) (string, error) {
	if err := f.next(); err != nil {
		return "", err
	}
	f.copied = append(f.copied, dst)
	return "copy-1", nil
}

func (f *fakeAPI) DeleteLibraryItem(_ context.Context, item *library.Item) error {
	if err := f.next(); err != nil {
		return err
	}
	f.deleted = append(f.deleted, item.ID)
	return nil
}

func strPtr(s string) *string { return &s }

func newTestLibrary(t *testing.T, api *fakeAPI) (*Library, *mocks.ClientInterface) {
	t.Helper()
	session := new(mocks.ClientInterface)
	session.On("REST").Return(nil)
	l := NewLibrary(session, WithRateLimit(0, 0))
	l.api = api
	return l, session
}

func TestResolveCatalogID(t *testing.T) {
	api := &fakeAPI{libraries: []library.Library{
		{ID: "lib-dev", Name: "dev", Type: "LOCAL"},
		{ID: "lib-prod", Name: "prod", Type: "LOCAL"},
		{ID: "lib-dup-1", Name: "dup", Type: "LOCAL"},
		{ID: "lib-dup-2", Name: "dup", Type: "LOCAL"},
	}}
	l, _ := newTestLibrary(t, api)
	ctx := context.Background()

	id, err := l.ResolveCatalogID(ctx, "prod")
	require.NoError(t, err)
	assert.Equal(t, "lib-prod", id)

	_, err = l.ResolveCatalogID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.ResolveCatalogID(ctx, "dup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestListArtifacts_MapsItems(t *testing.T) {
	api := &fakeAPI{items: map[string]library.Item{
		"i1": {ID: "i1", Name: "web_v1", LibraryID: "lib-dev", Type: "ovf", Description: strPtr(`{"published":"True"}`)},
		"i2": {ID: "i2", Name: "web_v2", LibraryID: "lib-dev", Type: "vm-template"},
		"i3": {ID: "i3", Name: "db_v1", LibraryID: "lib-prod"},
	}}
	l, _ := newTestLibrary(t, api)

	items, err := l.ListArtifacts(context.Background(), "lib-dev")
	require.NoError(t, err)
	require.Len(t, items, 2)

	byID := map[string]Item{}
	for _, it := range items {
		byID[it.ID] = it
	}
	assert.Equal(t, Item{ID: "i1", Name: "web_v1", Notes: `{"published":"True"}`, CatalogID: "lib-dev", Type: "ovf"}, byID["i1"])
	assert.Equal(t, "", byID["i2"].Notes)
}

func TestCall_ReloginOnceOnExpiredSession(t *testing.T) {
	api := &fakeAPI{
		items: map[string]library.Item{"i1": {ID: "i1", LibraryID: "lib", Description: strPtr("x")}},
		errs:  []error{errUnauthorized},
	}
	l, session := newTestLibrary(t, api)
	session.On("Relogin", mock.Anything).Return(nil).Once()

	notes, err := l.GetArtifactNotes(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, "x", notes)
	assert.Equal(t, 2, api.calls)
	session.AssertExpectations(t)
}

func TestCall_SecondExpiryIsReturned(t *testing.T) {
	api := &fakeAPI{errs: []error{errUnauthorized, errUnauthorized}}
	l, session := newTestLibrary(t, api)
	session.On("Relogin", mock.Anything).Return(nil).Once()

	_, err := l.ListArtifacts(context.Background(), "lib")
	assert.ErrorIs(t, err, ErrAuthExpired)
	assert.Equal(t, 2, api.calls)
	session.AssertNumberOfCalls(t, "Relogin", 1)
}

func TestCall_ReloginFailure(t *testing.T) {
	api := &fakeAPI{errs: []error{errUnauthorized}}
	l, session := newTestLibrary(t, api)
	session.On("Relogin", mock.Anything).Return(errors.New("bad credentials")).Once()

	err := l.DeleteArtifact(context.Background(), "i1")
	require.ErrorIs(t, err, ErrAuthExpired)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.Equal(t, 1, api.calls)
}

func TestCall_NoReloginForOtherErrors(t *testing.T) {
	api := &fakeAPI{errs: []error{errors.New("PATCH https://vc/api/content/library/item/i1: 409 Conflict")}}
	l, session := newTestLibrary(t, api)

	err := l.UpdateArtifactNotes(context.Background(), "i1", "{}")
	assert.ErrorIs(t, err, ErrConflict)
	session.AssertNotCalled(t, "Relogin", mock.Anything)
}

func TestCall_CancelledContext(t *testing.T) {
	l, _ := newTestLibrary(t, &fakeAPI{})
	l.limiter = rate.NewLimiter(1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.ListArtifacts(ctx, "lib")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdateArtifactNotes_SendsDescription(t *testing.T) {
	api := &fakeAPI{}
	l, _ := newTestLibrary(t, api)

	require.NoError(t, l.UpdateArtifactNotes(context.Background(), "i1", `{"published":"True"}`))
	require.Len(t, api.updated, 1)
	assert.Equal(t, "i1", api.updated[0].ID)
	assert.Equal(t, `{"published":"True"}`, *api.updated[0].Description)
}

func TestCopyArtifact(t *testing.T) {
	api := &fakeAPI{}
	l, _ := newTestLibrary(t, api)

	id, err := l.CopyArtifact(context.Background(), "src", "app_v5", "lib-prod", `{"published":"False"}`)
	require.NoError(t, err)
	assert.Equal(t, "copy-1", id)
	require.Len(t, api.copied, 1)
	assert.Equal(t, "app_v5", api.copied[0].Name)
	assert.Equal(t, "lib-prod", api.copied[0].LibraryID)
	assert.Equal(t, `{"published":"False"}`, *api.copied[0].Description)
}

func TestCopyArtifact_Failure(t *testing.T) {
	api := &fakeAPI{errs: []error{errors.New("POST https://vc/api/content/library/item: 400 Bad Request")}}
	l, _ := newTestLibrary(t, api)

	_, err := l.CopyArtifact(context.Background(), "src", "app_v5", "lib-prod", "{}")
	assert.ErrorIs(t, err, ErrCopyFailed)

	api.errs = []error{errors.New("POST https://vc/api: 503 Service Unavailable")}
	_, err = l.CopyArtifact(context.Background(), "src", "app_v5", "lib-prod", "{}")
	assert.ErrorIs(t, err, ErrCatalogUnreachable)
	assert.NotErrorIs(t, err, ErrCopyFailed)
}

func TestDeleteArtifact(t *testing.T) {
	api := &fakeAPI{}
	l, _ := newTestLibrary(t, api)

	require.NoError(t, l.DeleteArtifact(context.Background(), "i9"))
	assert.Equal(t, []string{"i9"}, api.deleted)
}

func TestGetArtifactNotes_NotFound(t *testing.T) {
	l, _ := newTestLibrary(t, &fakeAPI{items: map[string]library.Item{}})

	_, err := l.GetArtifactNotes(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCatalogs_SortedByName(t *testing.T) {
	api := &fakeAPI{libraries: []library.Library{
		{ID: "2", Name: "prod", Type: "LOCAL", Description: strPtr("production")},
		{ID: "1", Name: "dev", Type: "LOCAL"},
	}}
	l, _ := newTestLibrary(t, api)

	libs, err := l.ListCatalogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CatalogInfo{
		{ID: "1", Name: "dev", Type: "LOCAL"},
		{ID: "2", Name: "prod", Type: "LOCAL", Description: "production"},
	}, libs)
}
