package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
//
// credentials belong to the authentication side; users are the profile
// documents. items is the global collection and user_items holds each
// reporter's own copy, keyed by the same item id.
const schema = `
CREATE TABLE IF NOT EXISTS credentials (
    id            TEXT PRIMARY KEY,
    email         TEXT,
    password_hash TEXT,
    anonymous     INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    disabled_at   DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_credentials_email
    ON credentials(email) WHERE email IS NOT NULL;

CREATE TABLE IF NOT EXISTS users (
    id                TEXT PRIMARY KEY REFERENCES credentials(id),
    name              TEXT NOT NULL DEFAULT '',
    email             TEXT NOT NULL DEFAULT '',
    profile_image_url TEXT NOT NULL DEFAULT '',
    is_admin          INTEGER NOT NULL DEFAULT 0,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL,
    category    TEXT NOT NULL CHECK (category IN ('electronics', 'keys', 'wallets', 'bags', 'clothing', 'other')),
    status      TEXT NOT NULL CHECK (status IN ('lost', 'found')),
    location    TEXT NOT NULL,
    date        TEXT NOT NULL,
    image_url   TEXT NOT NULL DEFAULT '',
    image_hint  TEXT NOT NULL DEFAULT '',
    user_id     TEXT NOT NULL,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS item_images (
    item_id TEXT PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
    data    BLOB NOT NULL,
    mime    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_items (
    user_id     TEXT NOT NULL,
    id          TEXT NOT NULL,
    name        TEXT NOT NULL,
    description TEXT NOT NULL,
    category    TEXT NOT NULL,
    status      TEXT NOT NULL,
    location    TEXT NOT NULL,
    date        TEXT NOT NULL,
    image_url   TEXT NOT NULL DEFAULT '',
    image_hint  TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
