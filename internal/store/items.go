package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdisce/internal/model"
)

const itemColumns = `id, name, description, category, status, location, date, image_url, image_hint, user_id, created_at`

// InsertItem writes an item into the global items collection. If image is
// non-empty it is stored alongside the item in the same transaction.
func InsertItem(ctx context.Context, db *sql.DB, item model.Item, image []byte, mime string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, name, description, category, status, location, date, image_url, image_hint, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.Category, item.Status,
		item.Location, item.Date, item.ImageURL, item.ImageHint, item.UserID,
	)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}

	if len(image) > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO item_images (item_id, data, mime) VALUES (?, ?, ?)`,
			item.ID, image, mime,
		)
		if err != nil {
			return fmt.Errorf("inserting item image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item: %w", err)
	}
	return nil
}

// InsertUserItem writes the reporter's own copy of an item, keyed by the
// item's id under the reporting user.
func InsertUserItem(ctx context.Context, db *sql.DB, item model.Item) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO user_items (user_id, id, name, description, category, status, location, date, image_url, image_hint, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM items WHERE id = ?), CURRENT_TIMESTAMP))`,
		item.UserID, item.ID, item.Name, item.Description, item.Category, item.Status,
		item.Location, item.Date, item.ImageURL, item.ImageHint, item.ID,
	)
	if err != nil {
		return fmt.Errorf("inserting user item: %w", err)
	}
	return nil
}

// BackfillUserItems writes the missing reporter copy for every item that has
// none and returns how many were written. A report interrupted between its
// two writes leaves such an item behind; it must only run while no report
// is in flight.
func BackfillUserItems(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO user_items (user_id, id, name, description, category, status, location, date, image_url, image_hint, created_at)
		 SELECT i.user_id, i.id, i.name, i.description, i.category, i.status, i.location, i.date, i.image_url, i.image_hint, i.created_at
		 FROM items i
		 WHERE NOT EXISTS (SELECT 1 FROM user_items u WHERE u.user_id = i.user_id AND u.id = i.id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("backfilling user items: %w", err)
	}
	return res.RowsAffected()
}

// DeleteItem removes an item and its image from the global collection.
// It is only used to undo a report whose user copy could not be written.
func DeleteItem(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_images WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("deleting item image: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item deletion: %w", err)
	}
	return nil
}

// GetItem returns an item from the global collection by ID.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns items from the global collection, newest first. An empty
// status lists every item; any other value is an equality filter, so an
// unknown status simply matches nothing.
func ListItems(ctx context.Context, db *sql.DB, status model.Status) ([]model.Item, error) {
	var rows *sql.Rows
	var err error

	if status != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items WHERE status = ? ORDER BY date DESC, created_at DESC, id`, status,
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+itemColumns+` FROM items ORDER BY date DESC, created_at DESC, id`,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetUserItem returns one of a user's own item copies.
func GetUserItem(ctx context.Context, db *sql.DB, userID, id string) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, name, description, category, status, location, date, image_url, image_hint, user_id, created_at
		 FROM user_items WHERE user_id = ? AND id = ?`, userID, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user item: %w", err)
	}
	return item, nil
}

// ListUserItems returns the item copies reported by a user, newest first.
func ListUserItems(ctx context.Context, db *sql.DB, userID string) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, description, category, status, location, date, image_url, image_hint, user_id, created_at
		 FROM user_items WHERE user_id = ? ORDER BY date DESC, created_at DESC, id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing user items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var image []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM item_images WHERE item_id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	item := &model.Item{}
	err := s.Scan(&item.ID, &item.Name, &item.Description, &item.Category, &item.Status,
		&item.Location, &item.Date, &item.ImageURL, &item.ImageHint, &item.UserID, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}
