package notification

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lumen-collective/lumenhub-api/internal/logger"
)

// Store is the durable persistence boundary for notification records.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

// PGStore persists notification records to PostgreSQL.
type PGStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPGStore creates a Postgres-backed store.
func NewPGStore(db *sql.DB, log *logger.Logger) *PGStore {
	return &PGStore{
		db:     db,
		logger: log.WithComponent("notification_store"),
	}
}

// Create inserts a new record. The caller assigns ID and CreatedAt.
func (s *PGStore) Create(ctx context.Context, n *Notification) error {
	var relatedKind, relatedID sql.NullString
	if n.RelatedItem != nil {
		relatedKind = sql.NullString{String: string(n.RelatedItem.Kind), Valid: true}
		relatedID = sql.NullString{String: n.RelatedItem.ID, Valid: true}
	}

	query := `
		INSERT INTO notifications (id, recipient, type, content, read, related_kind, related_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		n.ID, n.Recipient, string(n.Type), n.Content, n.Read, relatedKind, relatedID, n.CreatedAt)
	if err != nil {
		s.logger.Error("failed to insert notification",
			slog.String("recipient_id", n.Recipient),
			slog.String("type", string(n.Type)),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

// ListByRecipient returns all notifications for a recipient, newest first.
func (s *PGStore) ListByRecipient(ctx context.Context, recipientID string) ([]Notification, error) {
	query := `
		SELECT id, recipient, type, content, read, related_kind, related_id, created_at
		FROM notifications
		WHERE recipient = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		s.logger.Error("failed to query notifications",
			slog.String("recipient_id", recipientID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		var relatedKind, relatedID sql.NullString
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Type, &n.Content, &n.Read,
			&relatedKind, &relatedID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if relatedKind.Valid && relatedID.Valid {
			n.RelatedItem = &RelatedItem{
				Kind: RelatedKind(relatedKind.String),
				ID:   relatedID.String,
			}
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead flips read to true for a single record, only when the caller is
// its recipient. The ownership check lives in the UPDATE predicate so a
// foreign caller can never mutate the row.
func (s *PGStore) MarkRead(ctx context.Context, id, recipientID string) error {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND recipient = $2
	`

	result, err := s.db.ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a missing record from one owned by someone else.
	var owner string
	err = s.db.QueryRowContext(ctx, `SELECT recipient FROM notifications WHERE id = $1`, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up notification: %w", err)
	}

	return ErrNotOwner
}

// MarkAllRead flips read to true on every unread record of the recipient
// and returns how many rows changed. Other recipients' rows are untouched.
func (s *PGStore) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE recipient = $1 AND read = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected, nil
}

// CountUnread returns the number of unread notifications for a recipient.
func (s *PGStore) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient = $1 AND read = FALSE`,
		recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}
