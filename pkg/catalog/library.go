package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vmware/govmomi/vapi/library"
	"golang.org/x/time/rate"

	"github.com/Bibi40k/vmware-template-lifecycle/configs"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/vcenter"
)

// libraryAPI is the subset of *library.Manager used by Library.
type libraryAPI interface {
	FindLibrary(ctx context.Context, search library.Find) ([]string, error)
	GetLibraries(ctx context.Context) ([]library.Library, error)
	GetLibraryItems(ctx context.Context, libraryID string) ([]library.Item, error)
	GetLibraryItem(ctx context.Context, id string) (*library.Item, error)
	UpdateLibraryItem(ctx context.Context, item *library.Item) error
	CopyLibraryItem(ctx context.Context, src *library.Item, dst library.Item) (string, error)
	DeleteLibraryItem(ctx context.Context, item *library.Item) error
}

// Library is the content library Client backed by a vCenter session.
type Library struct {
	session     vcenter.ClientInterface
	api         libraryAPI
	limiter     *rate.Limiter
	logger      *slog.Logger
	libraryType string
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger used for retries and slow calls.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRateLimit limits catalog calls to rps requests per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(l *Library) {
		if rps <= 0 {
			l.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLibraryType sets the library type used when resolving names (LOCAL, SUBSCRIBED).
func WithLibraryType(t string) Option {
	return func(l *Library) {
		if t != "" {
			l.libraryType = t
		}
	}
}

// NewLibrary returns a Client operating on content libraries through session.
func NewLibrary(session vcenter.ClientInterface, opts ...Option) *Library {
	d := configs.Defaults.Catalog
	l := &Library{
		session:     session,
		api:         library.NewManager(session.REST()),
		limiter:     rate.NewLimiter(rate.Limit(d.RequestsPerSecond), d.Burst),
		logger:      slog.Default(),
		libraryType: d.LibraryType,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// call runs fn under the rate limiter. When vCenter reports the session as
// expired it logs in again and retries fn exactly once.
func (l *Library) call(ctx context.Context, op string, fn func() error) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err := classify(fn())
	if !errors.Is(err, ErrAuthExpired) {
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	l.logger.Warn("catalog session expired, logging in again", "op", op)
	if rerr := l.session.Relogin(ctx); rerr != nil {
		return fmt.Errorf("%s: %w (re-login: %v)", op, err, rerr)
	}
	if werr := l.limiter.Wait(ctx); werr != nil {
		return fmt.Errorf("%s: %w", op, werr)
	}
	if err := classify(fn()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResolveCatalogID returns the ID of the library named name.
func (l *Library) ResolveCatalogID(ctx context.Context, name string) (string, error) {
	var ids []string
	err := l.call(ctx, "find library", func() error {
		var err error
		ids, err = l.api.FindLibrary(ctx, library.Find{Name: name, Type: l.libraryType})
		return err
	})
	if err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("library %q: %w", name, ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("library name %q is ambiguous (%d matches)", name, len(ids))
	}
}

// ListArtifacts returns every item of the library catalogID.
func (l *Library) ListArtifacts(ctx context.Context, catalogID string) ([]Item, error) {
	var raw []library.Item
	err := l.call(ctx, "list library items", func() error {
		var err error
		raw, err = l.api.GetLibraryItems(ctx, catalogID)
		return err
	})
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(raw))
	for _, it := range raw {
		items = append(items, toItem(it, catalogID))
	}
	return items, nil
}

// GetArtifactNotes re-reads the description of a single item.
func (l *Library) GetArtifactNotes(ctx context.Context, id string) (string, error) {
	var it *library.Item
	err := l.call(ctx, "get library item", func() error {
		var err error
		it, err = l.api.GetLibraryItem(ctx, id)
		return err
	})
	if err != nil {
		return "", err
	}
	if it == nil {
		return "", fmt.Errorf("library item %s: %w", id, ErrNotFound)
	}
	return deref(it.Description), nil
}

// UpdateArtifactNotes replaces the description of item id.
func (l *Library) UpdateArtifactNotes(ctx context.Context, id, notes string) error {
	return l.call(ctx, "update library item", func() error {
		return l.api.UpdateLibraryItem(ctx, &library.Item{ID: id, Description: &notes})
	})
}

// CopyArtifact copies item id into targetCatalogID as newName with notes as description.
func (l *Library) CopyArtifact(ctx context.Context, id, newName, targetCatalogID, notes string) (string, error) {
	var newID string
	err := l.call(ctx, "copy library item", func() error {
		var err error
		newID, err = l.api.CopyLibraryItem(ctx, &library.Item{ID: id}, library.Item{
			Name:        newName,
			LibraryID:   targetCatalogID,
			Description: &notes,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ErrCatalogUnreachable) || errors.Is(err, ErrAuthExpired) || ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrCopyFailed, err)
	}
	return newID, nil
}

// DeleteArtifact removes item id from its library.
func (l *Library) DeleteArtifact(ctx context.Context, id string) error {
	return l.call(ctx, "delete library item", func() error {
		return l.api.DeleteLibraryItem(ctx, &library.Item{ID: id})
	})
}

func toItem(it library.Item, catalogID string) Item {
	if it.LibraryID != "" {
		catalogID = it.LibraryID
	}
	return Item{
		ID:        it.ID,
		Name:      it.Name,
		Notes:     deref(it.Description),
		CatalogID: catalogID,
		Type:      it.Type,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
