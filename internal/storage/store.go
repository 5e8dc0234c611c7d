// Package storage persists user accounts and chat history in a local
// SQLite database. Conversation memory stays in internal/chat; this layer
// only records completed exchanges for later retrieval.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Paramfpv/lev/internal/log"
)

var (
	// ErrEmailTaken is returned by Register when the email already has an
	// account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound is returned when a user id does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// User is a registered account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Exchange is one persisted question/answer pair.
type Exchange struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Store wraps the SQLite database.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Open opens (or creates) the database at path and applies pending
// migrations.
func Open(path string, logger log.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrateUp(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Register creates an account and returns its generated id.
func (s *Store) Register(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return User{}, errors.New("email is required")
	}
	if password == "" {
		return User{}, errors.New("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, string(hash), user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies the credentials and returns the account.
func (s *Store) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var (
		user User
		hash string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		email).Scan(&user.ID, &user.Email, &hash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// AppendHistory records one completed exchange for the user.
func (s *Store) AppendHistory(ctx context.Context, userID, question, answer string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (user_id, question, answer, created_at)
		 SELECT id, ?, ?, ? FROM users WHERE id = ?`,
		question, answer, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// History returns the user's persisted exchanges, newest first.
func (s *Store) History(ctx context.Context, userID string) ([]Exchange, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT question, answer, created_at FROM chat_history
		 WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.Question, &e.Answer, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return history, nil
}
