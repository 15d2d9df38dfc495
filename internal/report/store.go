package report

import (
	"context"
	"database/sql"

	"github.com/erazemk/najdisce/internal/live"
	"github.com/erazemk/najdisce/internal/model"
	"github.com/erazemk/najdisce/internal/store"
)

// Store is the persistence the facade writes through.
type Store interface {
	InsertItem(ctx context.Context, item model.Item, image []byte, mime string) error
	InsertUserItem(ctx context.Context, item model.Item) error
	DeleteItem(ctx context.Context, id string) error
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context, status model.Status) ([]model.Item, error)
	ListUserItems(ctx context.Context, userID string) ([]model.Item, error)
	GetItemImage(ctx context.Context, id string) ([]byte, string, error)
}

// SQLStore implements Store on the SQLite database.
type SQLStore struct {
	DB *sql.DB
}

func (s SQLStore) InsertItem(ctx context.Context, item model.Item, image []byte, mime string) error {
	return store.InsertItem(ctx, s.DB, item, image, mime)
}

func (s SQLStore) InsertUserItem(ctx context.Context, item model.Item) error {
	return store.InsertUserItem(ctx, s.DB, item)
}

func (s SQLStore) DeleteItem(ctx context.Context, id string) error {
	return store.DeleteItem(ctx, s.DB, id)
}

func (s SQLStore) GetItem(ctx context.Context, id string) (*model.Item, error) {
	return store.GetItem(ctx, s.DB, id)
}

func (s SQLStore) ListItems(ctx context.Context, status model.Status) ([]model.Item, error) {
	return store.ListItems(ctx, s.DB, status)
}

func (s SQLStore) ListUserItems(ctx context.Context, userID string) ([]model.Item, error) {
	return store.ListUserItems(ctx, s.DB, userID)
}

func (s SQLStore) GetItemImage(ctx context.Context, id string) ([]byte, string, error) {
	return store.GetItemImage(ctx, s.DB, id)
}

// Loader returns the live view loader backed by st.
func Loader(st Store) live.Loader {
	return func(ctx context.Context, f model.Filter) ([]model.Item, error) {
		return st.ListItems(ctx, f.Status)
	}
}
