package storage

import (
	"database/sql"
	"fmt"
	"time"
)

type QuestionSet struct {
	ID             int64
	Version        int
	IsActive       bool
	CreatedAt      time.Time
	ActivatedAt    *time.Time
	SourceKeywords string
	Questions      []Question
}

type Question struct {
	ID                 int64
	QuestionSetID      int64
	OrderIndex         int
	Text               string
	OptionsJSON        string
	CorrectOptionIndex int
	TargetLevel        string
	SourceKeyword      string
}

type TestHistory struct {
	ID             int64
	UserID         int64
	QuestionSetID  int64
	TestDate       time.Time
	ResultLevel    string
	CorrectAnswers int
	TotalQuestions int
}

// GetActiveQuestionSet returns the single active question set with its
// questions in order, or ErrNotFound when no set is active.
func (s *Store) GetActiveQuestionSet() (*QuestionSet, error) {
	return s.getQuestionSet("SELECT id, version, is_active, created_at, activated_at, COALESCE(source_keywords, '') FROM question_sets WHERE is_active = 1")
}

// GetQuestionSetByID returns a question set with its questions in order.
func (s *Store) GetQuestionSetByID(id int64) (*QuestionSet, error) {
	return s.getQuestionSet(
		"SELECT id, version, is_active, created_at, activated_at, COALESCE(source_keywords, '') FROM question_sets WHERE id = ?", id)
}

func (s *Store) getQuestionSet(query string, args ...any) (*QuestionSet, error) {
	var qs QuestionSet
	err := s.db.QueryRow(query, args...).Scan(
		&qs.ID, &qs.Version, &qs.IsActive, &qs.CreatedAt, &qs.ActivatedAt, &qs.SourceKeywords)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question set: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT id, question_set_id, order_index, text, options_json, correct_option_index,
		        target_level, COALESCE(source_keyword, '')
		 FROM questions WHERE question_set_id = ? ORDER BY order_index`,
		qs.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuestionSetID, &q.OrderIndex, &q.Text, &q.OptionsJSON,
			&q.CorrectOptionIndex, &q.TargetLevel, &q.SourceKeyword); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		qs.Questions = append(qs.Questions, q)
	}
	return &qs, rows.Err()
}

// CreateQuestionSet stores a new inactive question set with the next
// version number and sequential order indexes.
func (s *Store) CreateQuestionSet(questions []Question, sourceKeywords string) (*QuestionSet, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	if err := tx.QueryRow("SELECT MAX(version) FROM question_sets").Scan(&maxVersion); err != nil {
		return nil, fmt.Errorf("max version: %w", err)
	}
	version := int(maxVersion.Int64) + 1

	res, err := tx.Exec(
		"INSERT INTO question_sets (version, is_active, source_keywords) VALUES (?, 0, ?)",
		version, sourceKeywords,
	)
	if err != nil {
		return nil, fmt.Errorf("insert question set: %w", err)
	}
	setID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert question set: %w", err)
	}

	for i, q := range questions {
		if _, err := tx.Exec(
			`INSERT INTO questions (question_set_id, order_index, text, options_json,
			                        correct_option_index, target_level, source_keyword)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			setID, i, q.Text, q.OptionsJSON, q.CorrectOptionIndex, q.TargetLevel, q.SourceKeyword,
		); err != nil {
			return nil, fmt.Errorf("insert question %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetQuestionSetByID(setID)
}

// ActivateQuestionSet makes the given set the single active one,
// deactivating every other set in the same transaction.
func (s *Store) ActivateQuestionSet(setID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE question_sets SET is_active = 0 WHERE id != ?", setID); err != nil {
		return fmt.Errorf("deactivate sets: %w", err)
	}
	res, err := tx.Exec(
		"UPDATE question_sets SET is_active = 1, activated_at = ? WHERE id = ?",
		time.Now().UTC(), setID,
	)
	if err != nil {
		return fmt.Errorf("activate set: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// RecordTestResult updates the user's level, last-test time, and test count
// and appends the immutable history row as one transaction.
func (s *Store) RecordTestResult(userID, questionSetID int64, correct, total int, level string, testDate time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"UPDATE users SET level = ?, last_test_date = ?, test_count = test_count + 1 WHERE id = ?",
		level, testDate.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("update user level: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(
		`INSERT INTO test_history (user_id, question_set_id, test_date, result_level, correct_answers, total_questions)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, questionSetID, testDate.UTC(), level, correct, total,
	); err != nil {
		return fmt.Errorf("insert test history: %w", err)
	}

	return tx.Commit()
}

// GetTestHistory returns a user's past attempts, most recent first.
func (s *Store) GetTestHistory(userID int64) ([]TestHistory, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, question_set_id, test_date, result_level, correct_answers, total_questions
		 FROM test_history WHERE user_id = ? ORDER BY test_date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get test history: %w", err)
	}
	defer rows.Close()

	var history []TestHistory
	for rows.Next() {
		var h TestHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.QuestionSetID, &h.TestDate, &h.ResultLevel,
			&h.CorrectAnswers, &h.TotalQuestions); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
