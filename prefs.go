package ainewshub

import "fmt"

// Preference list limits.
const (
	MaxMustInclude = 5
	MaxExclude     = 10
)

// SetPreferences validates and atomically replaces the user's entire
// preference set. The lists must respect the size limits, reference only
// existing tags, and share no tag between them.
func (e *Engine) SetPreferences(snowflakeID int64, mustInclude, exclude []int64) error {
	u, err := e.store.GetUserBySnowflakeID(snowflakeID)
	if err != nil {
		return wrapStorageErr(err)
	}

	if len(mustInclude) > MaxMustInclude {
		return fmt.Errorf("%w: at most %d must-include tags, got %d", ErrValidation, MaxMustInclude, len(mustInclude))
	}
	if len(exclude) > MaxExclude {
		return fmt.Errorf("%w: at most %d excluded tags, got %d", ErrValidation, MaxExclude, len(exclude))
	}

	if hasDuplicates(mustInclude) {
		return fmt.Errorf("%w: duplicate tag in must-include list", ErrValidation)
	}
	if hasDuplicates(exclude) {
		return fmt.Errorf("%w: duplicate tag in exclude list", ErrValidation)
	}

	included := make(map[int64]struct{}, len(mustInclude))
	for _, id := range mustInclude {
		included[id] = struct{}{}
	}
	for _, id := range exclude {
		if _, overlap := included[id]; overlap {
			return fmt.Errorf("%w: tag %d appears in both lists", ErrValidation, id)
		}
	}

	all := make([]int64, 0, len(mustInclude)+len(exclude))
	all = append(all, mustInclude...)
	all = append(all, exclude...)
	if len(all) > 0 {
		count, err := e.store.CountTagsByIDs(all)
		if err != nil {
			return fmt.Errorf("verify tags: %w", err)
		}
		if count != len(all) {
			return fmt.Errorf("%w: unknown tag id in preference lists", ErrValidation)
		}
	}

	return e.store.ReplacePreferences(u.ID, mustInclude, exclude)
}

// GetPreferences returns the user's preference lists with tag names.
func (e *Engine) GetPreferences(snowflakeID int64) ([]TagPreference, error) {
	u, err := e.store.GetUserBySnowflakeID(snowflakeID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	prefs, err := e.store.GetUserPreferences(u.ID)
	if err != nil {
		return nil, err
	}

	out := make([]TagPreference, len(prefs))
	for i, p := range prefs {
		out[i] = TagPreference{TagID: p.TagID, TagName: p.TagName, Kind: p.Kind}
	}
	return out, nil
}

func hasDuplicates(ids []int64) bool {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
