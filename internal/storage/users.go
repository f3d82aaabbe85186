package storage

import (
	"database/sql"
	"fmt"
	"time"
)

type User struct {
	ID           int64
	SnowflakeID  int64
	Level        string
	LastTestDate *time.Time
	TestCount    int
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// TagPreference is one user preference row joined with its tag name.
type TagPreference struct {
	TagID   int64
	TagName string
	Kind    string // "must_include" or "exclude"
}

const (
	PreferenceMustInclude = "must_include"
	PreferenceExclude     = "exclude"
)

// CreateUser inserts a user keyed by its allocator-issued snowflake ID.
func (s *Store) CreateUser(snowflakeID int64) (*User, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		"INSERT INTO users (snowflake_id, created_at, last_active_at) VALUES (?, ?, ?)",
		snowflakeID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &User{
		ID:           id,
		SnowflakeID:  snowflakeID,
		Level:        "Beginner",
		CreatedAt:    now,
		LastActiveAt: now,
	}, nil
}

// GetUserBySnowflakeID fetches a user by snowflake ID. Returns ErrNotFound
// for unknown IDs.
func (s *Store) GetUserBySnowflakeID(snowflakeID int64) (*User, error) {
	row := s.db.QueryRow(
		`SELECT id, snowflake_id, level, last_test_date, test_count, created_at, last_active_at
		 FROM users WHERE snowflake_id = ?`, snowflakeID)

	var u User
	err := row.Scan(&u.ID, &u.SnowflakeID, &u.Level, &u.LastTestDate, &u.TestCount, &u.CreatedAt, &u.LastActiveAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// TouchUserLastActive bumps the user's last-active timestamp.
func (s *Store) TouchUserLastActive(snowflakeID int64) error {
	_, err := s.db.Exec(
		"UPDATE users SET last_active_at = ? WHERE snowflake_id = ?",
		time.Now().UTC(), snowflakeID,
	)
	if err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

// GetUserPreferences returns the user's preference rows with tag names.
func (s *Store) GetUserPreferences(userID int64) ([]TagPreference, error) {
	rows, err := s.db.Query(
		`SELECT p.tag_id, t.name, p.kind
		 FROM user_tag_preferences p JOIN tags t ON t.id = p.tag_id
		 WHERE p.user_id = ?
		 ORDER BY p.kind, t.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	defer rows.Close()

	var prefs []TagPreference
	for rows.Next() {
		var p TagPreference
		if err := rows.Scan(&p.TagID, &p.TagName, &p.Kind); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// ReplacePreferences atomically swaps the user's entire preference set.
// Readers never observe a partially written set: the delete and all inserts
// commit together.
func (s *Store) ReplacePreferences(userID int64, mustInclude, exclude []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM user_tag_preferences WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}

	for _, tagID := range mustInclude {
		if _, err := tx.Exec(
			"INSERT INTO user_tag_preferences (user_id, tag_id, kind) VALUES (?, ?, ?)",
			userID, tagID, PreferenceMustInclude,
		); err != nil {
			return fmt.Errorf("insert must-include preference: %w", err)
		}
	}
	for _, tagID := range exclude {
		if _, err := tx.Exec(
			"INSERT INTO user_tag_preferences (user_id, tag_id, kind) VALUES (?, ?, ?)",
			userID, tagID, PreferenceExclude,
		); err != nil {
			return fmt.Errorf("insert exclude preference: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
