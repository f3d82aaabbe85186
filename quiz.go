package ainewshub

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ainewshub/ainewshub/internal/storage"
)

// RetestInterval is the minimum gap between assessments.
const RetestInterval = 7 * 24 * time.Hour

// Score thresholds for level placement.
const (
	advancedThreshold     = 6
	intermediateThreshold = 4
)

// Score counts correct answers. answers maps question order to the chosen
// option index; a missing or out-of-range answer counts as wrong.
func Score(qs []storage.Question, answers map[int64]int) int {
	correct := 0
	for _, q := range qs {
		chosen, ok := answers[q.ID]
		if !ok {
			continue
		}
		if chosen == q.CorrectOptionIndex {
			correct++
		}
	}
	return correct
}

// LevelForScore maps a correct-answer count to a proficiency level.
func LevelForScore(correct int) Level {
	switch {
	case correct >= advancedThreshold:
		return LevelAdvanced
	case correct >= intermediateThreshold:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

// retestEligible reports whether a user who last tested at last may retest
// at now. Seven full days must have elapsed; the seventh day itself is
// eligible.
func retestEligible(last *time.Time, now time.Time) (bool, *time.Time) {
	if last == nil {
		return true, nil
	}
	next := last.Add(RetestInterval)
	if !now.Before(next) {
		return true, nil
	}
	return false, &next
}

// CanRetest reports whether the user may take the assessment and, when
// not, the next eligible time.
func (e *Engine) CanRetest(snowflakeID int64) (*RetestStatus, error) {
	u, err := e.store.GetUserBySnowflakeID(snowflakeID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	ok, next := retestEligible(u.LastTestDate, time.Now().UTC())
	return &RetestStatus{CanRetest: ok, NextEligible: next}, nil
}

// ActiveQuestionSet returns the current assessment with correct answers
// withheld.
func (e *Engine) ActiveQuestionSet() (*QuestionSet, error) {
	set, err := e.store.GetActiveQuestionSet()
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	return questionSetFromInternal(set), nil
}

// SubmitTest scores the user's answers against the active question set,
// enforces the retest gate, and records the result.
func (e *Engine) SubmitTest(snowflakeID int64, answers map[int64]int) (*TestResult, error) {
	u, err := e.store.GetUserBySnowflakeID(snowflakeID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	now := time.Now().UTC()
	if ok, next := retestEligible(u.LastTestDate, now); !ok {
		return nil, fmt.Errorf("%w: retest not available until %s", ErrValidation, next.Format(time.RFC3339))
	}

	set, err := e.store.GetActiveQuestionSet()
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	correct := Score(set.Questions, answers)
	level := LevelForScore(correct)

	if err := e.store.RecordTestResult(u.ID, set.ID, correct, len(set.Questions), string(level), now); err != nil {
		return nil, fmt.Errorf("record result: %w", err)
	}

	e.logger.Info("assessment submitted",
		zap.Int64("snowflake_id", snowflakeID),
		zap.Int("correct", correct),
		zap.String("level", string(level)))

	return &TestResult{
		Level:          level,
		CorrectAnswers: correct,
		TotalQuestions: len(set.Questions),
		TestDate:       now,
	}, nil
}

// decodeOptions parses the stored options JSON. Storage writes this field
// itself, so a decode failure means corruption; surface an empty list
// rather than failing the whole set.
func decodeOptions(optionsJSON string) []string {
	var options []string
	if err := json.Unmarshal([]byte(optionsJSON), &options); err != nil {
		return nil
	}
	return options
}
