package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/repo"
)

const messageColumns = `id, sender, receiver, text, original_text, ai_processed, annotation, embedding, delivered, is_read, read_at, created_at`

// messageRepo implements the Message repository on SQLite or PostgreSQL
type messageRepo struct {
	s *SQLStore
}

// NewMessageRepo creates a new Message repository
func NewMessageRepo(s *SQLStore) repo.MessageRepo {
	return &messageRepo{s: s}
}

// newMessageID returns a time-ordered ID so ties on created_at keep insertion order
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Save inserts a new message
func (r *messageRepo) Save(ctx context.Context, msg *domain.Message) error {
	msg.ID = newMessageID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	annotation, err := json.Marshal(msg.Annotation)
	if err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}
	embedding := ""
	if len(msg.Embedding) > 0 {
		b, err := json.Marshal(msg.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding: %w", err)
		}
		embedding = string(b)
	}

	var readAt sql.NullInt64
	if msg.ReadAt != nil {
		readAt = sql.NullInt64{Int64: toMillis(*msg.ReadAt), Valid: true}
	}

	_, err = r.s.db.ExecContext(ctx, r.s.rebind(`
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		msg.ID,
		msg.Sender,
		msg.Receiver,
		msg.Text,
		msg.OriginalText,
		boolToInt(msg.AIProcessed),
		string(annotation),
		embedding,
		boolToInt(msg.Delivered),
		boolToInt(msg.Read),
		readAt,
		toMillis(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// MarkDelivered sets the delivered flag
func (r *messageRepo) MarkDelivered(ctx context.Context, id string) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`UPDATE messages SET delivered = 1 WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to mark delivered: %w", err)
	}
	return nil
}

// GetByID gets a message by ID
func (r *messageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	row := r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+messageColumns+` FROM messages WHERE id = ?`), id)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	return msg, nil
}

// ListBetween lists one page of the conversation, newest first
func (r *messageRepo) ListBetween(ctx context.Context, a, b string, offset, limit int) ([]domain.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, a, b, b, a, limit, offset)
}

// ListSince lists the conversation window starting at since, oldest first
func (r *messageRepo) ListSince(ctx context.Context, a, b string, since time.Time, limit int) ([]domain.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE ((sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)) AND created_at >= ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`, a, b, b, a, toMillis(since), limit)
}

// ListInvolving lists all messages sent or received by userID, newest first
func (r *messageRepo) ListInvolving(ctx context.Context, userID string) ([]domain.Message, error) {
	return r.query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE sender = ? OR receiver = ?
		ORDER BY created_at DESC, id DESC
	`, userID, userID)
}

// MarkRead marks unread messages from sender to receiver as read
func (r *messageRepo) MarkRead(ctx context.Context, receiver, sender string, at time.Time) (int64, error) {
	result, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		UPDATE messages SET is_read = 1, delivered = 1, read_at = ?
		WHERE receiver = ? AND sender = ? AND is_read = 0
	`), toMillis(at), receiver, sender)
	if err != nil {
		return 0, fmt.Errorf("failed to mark read: %w", err)
	}
	return result.RowsAffected()
}

// MarkMessageRead marks a single message as read
func (r *messageRepo) MarkMessageRead(ctx context.Context, id string, at time.Time) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		UPDATE messages SET is_read = 1, delivered = 1, read_at = ?
		WHERE id = ? AND is_read = 0
	`), toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return nil
}

func (r *messageRepo) query(ctx context.Context, query string, args ...interface{}) ([]domain.Message, error) {
	rows, err := r.s.db.QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, *msg)
	}
	return msgs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var (
		msg                          domain.Message
		aiProcessed, delivered, read int
		annotation, embedding        string
		readAt                       sql.NullInt64
		createdAt                    int64
	)
	err := row.Scan(
		&msg.ID, &msg.Sender, &msg.Receiver, &msg.Text, &msg.OriginalText,
		&aiProcessed, &annotation, &embedding, &delivered, &read, &readAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	msg.AIProcessed = aiProcessed != 0
	msg.Delivered = delivered != 0
	msg.Read = read != 0
	msg.CreatedAt = fromMillis(createdAt)
	if readAt.Valid {
		t := fromMillis(readAt.Int64)
		msg.ReadAt = &t
	}
	if err := json.Unmarshal([]byte(annotation), &msg.Annotation); err != nil {
		return nil, fmt.Errorf("decode annotation: %w", err)
	}
	msg.Annotation.Normalize()
	if embedding != "" {
		if err := json.Unmarshal([]byte(embedding), &msg.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
	}
	return &msg, nil
}
