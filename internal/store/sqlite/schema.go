package sqlite

import "database/sql"

// Schema creates every table the store needs. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	unique_id     TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL UNIQUE,
	tag           TEXT NOT NULL,
	avatar        TEXT NOT NULL DEFAULT '',
	admin         INTEGER NOT NULL DEFAULT 0,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS servers (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	server_id          TEXT NOT NULL UNIQUE,
	name               TEXT NOT NULL,
	creator_id         INTEGER NOT NULL,
	default_channel_id TEXT NOT NULL DEFAULT '',
	is_public          BOOLEAN NOT NULL DEFAULT 0,
	created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (creator_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS server_members (
	server_id INTEGER NOT NULL,
	user_id   INTEGER NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (server_id, user_id),
	FOREIGN KEY (server_id) REFERENCES servers(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS muted_channels (
	server_id  INTEGER NOT NULL,
	user_id    INTEGER NOT NULL,
	channel_id TEXT NOT NULL,
	PRIMARY KEY (server_id, user_id, channel_id)
);

CREATE TABLE IF NOT EXISTS server_bans (
	server_id  INTEGER NOT NULL,
	user_id    INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (server_id, user_id)
);

CREATE TABLE IF NOT EXISTS server_invites (
	invite_code TEXT PRIMARY KEY,
	server_id   INTEGER NOT NULL,
	creator_id  INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (server_id) REFERENCES servers(id)
);

CREATE TABLE IF NOT EXISTS roles (
	id          TEXT PRIMARY KEY,
	server_id   INTEGER NOT NULL,
	name        TEXT NOT NULL,
	color       TEXT NOT NULL DEFAULT '',
	permissions INTEGER NOT NULL DEFAULT 0,
	position    INTEGER NOT NULL DEFAULT 0,
	is_default  BOOLEAN NOT NULL DEFAULT 0,
	deletable   BOOLEAN NOT NULL DEFAULT 1,
	FOREIGN KEY (server_id) REFERENCES servers(id)
);

CREATE TABLE IF NOT EXISTS channels (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id    TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	server_id     INTEGER,
	owner_id      INTEGER,
	recipient_id  INTEGER,
	last_messaged DATETIME,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (server_id) REFERENCES servers(id),
	FOREIGN KEY (owner_id) REFERENCES users(id),
	FOREIGN KEY (recipient_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id TEXT NOT NULL UNIQUE,
	channel_id TEXT NOT NULL,
	creator_id INTEGER NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	color      TEXT,
	type       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (creator_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS message_mentions (
	message_id TEXT NOT NULL,
	user_id    INTEGER NOT NULL,
	PRIMARY KEY (message_id, user_id)
);

CREATE TABLE IF NOT EXISTS notifications (
	recipient_id    INTEGER NOT NULL,
	channel_id      TEXT NOT NULL,
	server_id       INTEGER,
	sender_id       INTEGER NOT NULL,
	last_message_id TEXT NOT NULL,
	count           INTEGER NOT NULL DEFAULT 1,
	updated_at      DATETIME NOT NULL,
	PRIMARY KEY (recipient_id, channel_id)
);

CREATE TABLE IF NOT EXISTS devices (
	user_id    INTEGER NOT NULL,
	token      TEXT NOT NULL,
	platform   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, token)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_channels_direct_pair ON channels(owner_id, recipient_id);
CREATE INDEX IF NOT EXISTS idx_channels_channel_id ON channels(channel_id);
CREATE INDEX IF NOT EXISTS idx_channels_server ON channels(server_id);
CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_server_members_user ON server_members(user_id);
`

// ApplySchema runs Schema against db. It matches the setup signature of NewWithSetup.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
