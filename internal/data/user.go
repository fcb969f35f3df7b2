package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chatmate/chatmate/internal/biz/domain"
	"github.com/chatmate/chatmate/internal/biz/repo"
)

const userColumns = `user_id, phone_number, name, password_hash, avatar, is_online, last_seen, created_at`

// userRepo implements the User repository on SQLite or PostgreSQL
type userRepo struct {
	s *SQLStore
}

// NewUserRepo creates a new User repository
func NewUserRepo(s *SQLStore) repo.UserRepo {
	return &userRepo{s: s}
}

// Create inserts a new user
func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		user.UserID,
		user.PhoneNumber,
		user.Name,
		user.PasswordHash,
		user.Avatar,
		boolToInt(user.IsOnline),
		toMillis(user.LastSeen),
		toMillis(user.CreatedAt),
	)
	if err != nil {
		if r.s.isUniqueViolation(err) {
			return repo.ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByIdentifier finds a user by user ID or phone number, preferring the user ID match
func (r *userRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	row := r.s.db.QueryRowContext(ctx, r.s.rebind(`
		SELECT `+userColumns+` FROM users
		WHERE user_id = ? OR phone_number = ?
		ORDER BY CASE WHEN user_id = ? THEN 0 ELSE 1 END
		LIMIT 1
	`), identifier, identifier, identifier)
	return r.scan(row)
}

// FindByUserID finds a user by user ID
func (r *userRepo) FindByUserID(ctx context.Context, userID string) (*domain.User, error) {
	row := r.s.db.QueryRowContext(ctx, r.s.rebind(`SELECT `+userColumns+` FROM users WHERE user_id = ?`), userID)
	return r.scan(row)
}

// SetOnline updates online status and last seen time
func (r *userRepo) SetOnline(ctx context.Context, userID string, online bool, at time.Time) error {
	_, err := r.s.db.ExecContext(ctx, r.s.rebind(`
		UPDATE users SET is_online = ?, last_seen = ? WHERE user_id = ?
	`), boolToInt(online), toMillis(at), userID)
	if err != nil {
		return fmt.Errorf("failed to set online: %w", err)
	}
	return nil
}

func (r *userRepo) scan(row *sql.Row) (*domain.User, error) {
	var (
		user                domain.User
		online              int
		lastSeen, createdAt int64
	)
	err := row.Scan(&user.UserID, &user.PhoneNumber, &user.Name, &user.PasswordHash, &user.Avatar, &online, &lastSeen, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	user.IsOnline = online != 0
	user.LastSeen = fromMillis(lastSeen)
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}
