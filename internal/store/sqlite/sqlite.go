package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/vovakirdan/wirechat-dispatch/internal/store"
	"github.com/vovakirdan/wirechat-dispatch/internal/utils"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

type scanner interface {
	Scan(dest ...any) error
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema against an in-memory database.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback() //nolint:errcheck // Rollback after Commit is a no-op
}

// ==== UserStore implementation ====

const userColumns = `id, unique_id, username, tag, avatar, admin, password_hash, created_at`

func scanUser(row scanner) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.UniqueID,
		&user.Username,
		&user.Tag,
		&user.Avatar,
		&user.Admin,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// CreateUser creates a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) (*store.User, error) {
	query := `
		INSERT INTO users (unique_id, username, tag, avatar, admin, password_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		user.UniqueID, user.Username, user.Tag, user.Avatar, user.Admin, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByUniqueID retrieves a user by its public identity.
func (s *SQLiteStore) GetUserByUniqueID(ctx context.Context, uniqueID string) (*store.User, error) {
	return s.getUser(ctx, "unique_id = ?", uniqueID)
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

// FindUsersByUniqueIDs looks up many users in one query.
func (s *SQLiteStore) FindUsersByUniqueIDs(ctx context.Context, uniqueIDs []string) ([]*store.User, error) {
	if len(uniqueIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(uniqueIDs))
	for _, id := range uniqueIDs {
		args = append(args, id)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE unique_id IN (` + placeholders(len(args)) + `) ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// ==== ChannelStore implementation ====

const channelColumns = `id, channel_id, name, server_id, recipient_id, last_messaged, created_at`

func (s *SQLiteStore) scanChannel(ctx context.Context, row scanner) (*store.Channel, error) {
	var ch store.Channel
	var serverID, recipientID sql.NullInt64
	var lastMessaged sql.NullTime
	if err := row.Scan(&ch.ID, &ch.ChannelID, &ch.Name, &serverID, &recipientID, &lastMessaged, &ch.CreatedAt); err != nil {
		return nil, err
	}
	if lastMessaged.Valid {
		ch.LastMessaged = &lastMessaged.Time
	}

	if serverID.Valid {
		ch.Kind = store.ChannelKindServer
		srv, err := s.getServer(ctx, "id = ?", serverID.Int64)
		if err != nil {
			return nil, err
		}
		ch.Server = srv
		return &ch, nil
	}

	ch.Kind = store.ChannelKindDirect
	if recipientID.Valid {
		recipient, err := s.GetUserByID(ctx, recipientID.Int64)
		if err != nil {
			return nil, err
		}
		ch.Recipients = []*store.User{recipient}
	}
	return &ch, nil
}

// CreateDirectChannel opens (or returns the existing) direct channel from owner to recipient.
func (s *SQLiteStore) CreateDirectChannel(ctx context.Context, ownerID, recipientID int64) (*store.Channel, error) {
	var channelID string
	err := s.db.QueryRowContext(ctx,
		`SELECT channel_id FROM channels WHERE owner_id = ? AND recipient_id = ?`,
		ownerID, recipientID,
	).Scan(&channelID)
	if err == nil {
		return s.GetChannel(ctx, channelID, ownerID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check existing channel: %w", err)
	}

	// Reuse the id of the recipient's copy so both sides share one message stream.
	err = s.db.QueryRowContext(ctx,
		`SELECT channel_id FROM channels WHERE owner_id = ? AND recipient_id = ?`,
		recipientID, ownerID,
	).Scan(&channelID)
	if errors.Is(err, sql.ErrNoRows) {
		channelID = utils.NewNumericID()
	} else if err != nil {
		return nil, fmt.Errorf("check reverse channel: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(tx)

	insert := `
		INSERT OR IGNORE INTO channels (channel_id, owner_id, recipient_id)
		VALUES (?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insert, channelID, ownerID, recipientID); err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	if ownerID != recipientID {
		if _, err := tx.ExecContext(ctx, insert, channelID, recipientID, ownerID); err != nil {
			return nil, fmt.Errorf("insert reverse channel: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetChannel(ctx, channelID, ownerID)
}

// CreateServerChannel adds a channel to a server.
func (s *SQLiteStore) CreateServerChannel(ctx context.Context, serverID int64, name string) (*store.Channel, error) {
	channelID := utils.NewNumericID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (channel_id, name, server_id) VALUES (?, ?, ?)`,
		channelID, name, serverID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	return s.GetChannel(ctx, channelID, 0)
}

// GetChannel retrieves a channel as seen by viewerID.
func (s *SQLiteStore) GetChannel(ctx context.Context, channelID string, viewerID int64) (*store.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE channel_id = ? AND (server_id IS NOT NULL OR owner_id = ?)
		LIMIT 1
	`
	ch, err := s.scanChannel(ctx, s.db.QueryRowContext(ctx, query, channelID, viewerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query channel: %w", err)
	}
	return ch, nil
}

// ListServerChannels lists all channels of a server.
func (s *SQLiteStore) ListServerChannels(ctx context.Context, serverID int64) ([]*store.Channel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id FROM channels WHERE server_id = ? ORDER BY id`, serverID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	// Collect ids first: nested queries on the single connection would block while rows is open.
	var ids []string
	for rows.Next() {
		var channelID string
		if err := rows.Scan(&channelID); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		ids = append(ids, channelID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	channels := make([]*store.Channel, 0, len(ids))
	for _, id := range ids {
		ch, err := s.GetChannel(ctx, id, 0)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// TouchChannel updates the last-message timestamp of every copy of a channel.
func (s *SQLiteStore) TouchChannel(ctx context.Context, channelID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE channels SET last_messaged = ? WHERE channel_id = ?`, at.UTC(), channelID)
	if err != nil {
		return fmt.Errorf("touch channel: %w", err)
	}
	return nil
}

// ==== ServerStore implementation ====

const serverColumns = `id, server_id, name, creator_id, default_channel_id, is_public, created_at`

func (s *SQLiteStore) getServer(ctx context.Context, where string, args ...any) (*store.Server, error) {
	var srv store.Server
	err := s.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE `+where, args...).Scan(
		&srv.ID,
		&srv.ServerID,
		&srv.Name,
		&srv.CreatorID,
		&srv.DefaultChannelID,
		&srv.Public,
		&srv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("server: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query server: %w", err)
	}
	return &srv, nil
}

// CreateServer creates a server with a default channel and role and adds the creator.
func (s *SQLiteStore) CreateServer(ctx context.Context, name string, creatorID int64, public bool) (*store.Server, error) {
	serverID := utils.NewNumericID()
	channelID := utils.NewNumericID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx,
		`INSERT INTO servers (server_id, name, creator_id, default_channel_id, is_public) VALUES (?, ?, ?, ?, ?)`,
		serverID, name, creatorID, channelID, public,
	)
	if err != nil {
		return nil, fmt.Errorf("insert server: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO channels (channel_id, name, server_id) VALUES (?, 'General', ?)`, channelID, id,
	); err != nil {
		return nil, fmt.Errorf("insert default channel: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO server_members (server_id, user_id) VALUES (?, ?)`, id, creatorID,
	); err != nil {
		return nil, fmt.Errorf("insert creator membership: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO roles (id, server_id, name, is_default, deletable) VALUES (?, ?, 'Online', 1, 0)`,
		utils.NewNumericID(), id,
	); err != nil {
		return nil, fmt.Errorf("insert default role: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.getServer(ctx, "id = ?", id)
}

// GetServerByServerID retrieves a server by its public id.
func (s *SQLiteStore) GetServerByServerID(ctx context.Context, serverID string) (*store.Server, error) {
	return s.getServer(ctx, "server_id = ?", serverID)
}

// GetServerByInvite resolves an invite code to its server.
func (s *SQLiteStore) GetServerByInvite(ctx context.Context, inviteCode string) (*store.Server, error) {
	return s.getServer(ctx, "id = (SELECT server_id FROM server_invites WHERE invite_code = ?)", inviteCode)
}

// CreateInvite stores a new invite code for a server.
func (s *SQLiteStore) CreateInvite(ctx context.Context, serverID, creatorID int64, inviteCode string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO server_invites (invite_code, server_id, creator_id) VALUES (?, ?, ?)`,
		inviteCode, serverID, creatorID,
	)
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

// BanUser bans a user from a server.
func (s *SQLiteStore) BanUser(ctx context.Context, serverID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO server_bans (server_id, user_id) VALUES (?, ?)`, serverID, userID)
	if err != nil {
		return fmt.Errorf("insert ban: %w", err)
	}
	return nil
}

// IsBanned reports whether a user is banned from a server.
func (s *SQLiteStore) IsBanned(ctx context.Context, serverID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM server_bans WHERE server_id = ? AND user_id = ?)`, serverID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check ban: %w", err)
	}
	return exists, nil
}

// AddServerMember adds a member. Returns ErrAlreadyMember on duplicates.
func (s *SQLiteStore) AddServerMember(ctx context.Context, serverID, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO server_members (server_id, user_id) VALUES (?, ?)`, serverID, userID)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrAlreadyMember
	}
	return nil
}

// ListUserServers lists every server a user is a member of.
func (s *SQLiteStore) ListUserServers(ctx context.Context, userID int64) ([]*store.Server, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT server_id FROM server_members WHERE user_id = ? ORDER BY joined_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user servers: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan user server: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	servers := make([]*store.Server, 0, len(ids))
	for _, id := range ids {
		server, err := s.getServer(ctx, "id = ?", id)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return servers, nil
}

// IsServerMember checks membership.
func (s *SQLiteStore) IsServerMember(ctx context.Context, serverID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM server_members WHERE server_id = ? AND user_id = ?)`, serverID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// ListServerMembers lists members with their user records and muted channels.
func (s *SQLiteStore) ListServerMembers(ctx context.Context, serverID int64) ([]*store.ServerMember, error) {
	query := `
		SELECT u.id, u.unique_id, u.username, u.tag, u.avatar, u.admin, u.password_hash, u.created_at, sm.joined_at
		FROM server_members sm
		JOIN users u ON u.id = sm.user_id
		WHERE sm.server_id = ?
		ORDER BY sm.joined_at, u.id
	`
	rows, err := s.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []*store.ServerMember
	byUser := make(map[int64]*store.ServerMember)
	for rows.Next() {
		var u store.User
		m := &store.ServerMember{ServerID: serverID, Member: &u}
		if err := rows.Scan(&u.ID, &u.UniqueID, &u.Username, &u.Tag, &u.Avatar, &u.Admin, &u.PasswordHash, &u.CreatedAt, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
		byUser[u.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	muted, err := s.db.QueryContext(ctx, `SELECT user_id, channel_id FROM muted_channels WHERE server_id = ?`, serverID)
	if err != nil {
		return nil, fmt.Errorf("query muted channels: %w", err)
	}
	defer muted.Close()

	for muted.Next() {
		var userID int64
		var channelID string
		if err := muted.Scan(&userID, &channelID); err != nil {
			return nil, fmt.Errorf("scan muted channel: %w", err)
		}
		if m, ok := byUser[userID]; ok {
			m.MutedChannels = append(m.MutedChannels, channelID)
		}
	}

	return members, muted.Err()
}

// SetChannelMuted mutes or unmutes a server channel for a member.
func (s *SQLiteStore) SetChannelMuted(ctx context.Context, serverID, userID int64, channelID string, muted bool) error {
	query := `DELETE FROM muted_channels WHERE server_id = ? AND user_id = ? AND channel_id = ?`
	if muted {
		query = `INSERT OR IGNORE INTO muted_channels (server_id, user_id, channel_id) VALUES (?, ?, ?)`
	}
	if _, err := s.db.ExecContext(ctx, query, serverID, userID, channelID); err != nil {
		return fmt.Errorf("set channel muted: %w", err)
	}
	return nil
}

// ListRoles lists roles of a server ordered by position.
func (s *SQLiteStore) ListRoles(ctx context.Context, serverID int64) ([]*store.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, server_id, name, color, permissions, position, is_default, deletable
		FROM roles
		WHERE server_id = ?
		ORDER BY position, id
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []*store.Role
	for rows.Next() {
		var r store.Role
		if err := rows.Scan(&r.ID, &r.ServerID, &r.Name, &r.Color, &r.Permissions, &r.Order, &r.Default, &r.Deletable); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, &r)
	}
	return roles, rows.Err()
}

// ==== MessageStore implementation ====

// CreateMessage validates and persists a message, assigning MessageID and CreatedAt.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *store.Message) error {
	if store.TextLength(msg.Body) > store.MaxMessageLength {
		return fmt.Errorf("message body longer than %d: %w", store.MaxMessageLength, store.ErrValidation)
	}
	if msg.Kind == store.MessageKindOrdinary && strings.TrimSpace(msg.Body) == "" {
		return fmt.Errorf("message body is empty: %w", store.ErrValidation)
	}

	messageID := ulid.Make().String()
	createdAt := time.Now().UTC()

	var color sql.NullString
	if msg.Color != "" {
		color = sql.NullString{String: msg.Color, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, `
		INSERT INTO messages (message_id, channel_id, creator_id, body, color, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, messageID, msg.ChannelID, msg.CreatorID, msg.Body, color, msg.Kind, createdAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	for _, userID := range msg.Mentions {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO message_mentions (message_id, user_id) VALUES (?, ?)`, messageID, userID,
		); err != nil {
			return fmt.Errorf("insert mention: %w", err)
		}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	msg.ID = id
	msg.MessageID = messageID
	msg.CreatedAt = createdAt
	return nil
}

// ListMessages returns the newest messages of a channel, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, channelID string, limit int) ([]*store.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, channel_id, creator_id, body, color, type, created_at
		FROM messages
		WHERE channel_id = ?
		ORDER BY message_id DESC
		LIMIT ?
	`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var m store.Message
		var color sql.NullString
		if err := rows.Scan(&m.ID, &m.MessageID, &m.ChannelID, &m.CreatorID, &m.Body, &color, &m.Kind, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Color = color.String
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, m := range messages {
		mentions, err := s.db.QueryContext(ctx, `SELECT user_id FROM message_mentions WHERE message_id = ? ORDER BY user_id`, m.MessageID)
		if err != nil {
			return nil, fmt.Errorf("query mentions: %w", err)
		}
		for mentions.Next() {
			var userID int64
			if err := mentions.Scan(&userID); err != nil {
				mentions.Close()
				return nil, fmt.Errorf("scan mention: %w", err)
			}
			m.Mentions = append(m.Mentions, userID)
		}
		mentions.Close()
	}

	return messages, nil
}

// ==== NotificationStore implementation ====

// UpsertNotifications increments counters for every recipient.
func (s *SQLiteStore) UpsertNotifications(ctx context.Context, n store.NotificationUpsert) error {
	if len(n.RecipientIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(tx)

	query := `
		INSERT INTO notifications (recipient_id, channel_id, server_id, sender_id, last_message_id, count, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(recipient_id, channel_id) DO UPDATE SET
			count = count + 1,
			sender_id = excluded.sender_id,
			last_message_id = excluded.last_message_id,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC()
	for _, recipientID := range n.RecipientIDs {
		if _, err := tx.ExecContext(ctx, query, recipientID, n.ChannelID, n.ServerID, n.SenderID, n.LastMessageID, now); err != nil {
			return fmt.Errorf("upsert notification for %d: %w", recipientID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListNotifications lists a user's unread counters.
func (s *SQLiteStore) ListNotifications(ctx context.Context, recipientID int64) ([]*store.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recipient_id, channel_id, server_id, sender_id, last_message_id, count, updated_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY updated_at DESC
	`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*store.Notification
	for rows.Next() {
		var n store.Notification
		var serverID sql.NullInt64
		if err := rows.Scan(&n.RecipientID, &n.ChannelID, &serverID, &n.SenderID, &n.LastMessageID, &n.Count, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if serverID.Valid {
			n.ServerID = &serverID.Int64
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// ==== DeviceStore implementation ====

// AddDevice registers a push token for a user.
func (s *SQLiteStore) AddDevice(ctx context.Context, userID int64, token, platform string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO devices (user_id, token, platform) VALUES (?, ?, ?)`, userID, token, platform)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// ListDevices lists devices of the given users.
func (s *SQLiteStore) ListDevices(ctx context.Context, userIDs []int64) ([]*store.Device, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(userIDs))
	for _, id := range userIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, token, platform, created_at FROM devices WHERE user_id IN (`+placeholders(len(args))+`) ORDER BY user_id, created_at`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	var devices []*store.Device
	for rows.Next() {
		var d store.Device
		if err := rows.Scan(&d.UserID, &d.Token, &d.Platform, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, &d)
	}
	return devices, rows.Err()
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
