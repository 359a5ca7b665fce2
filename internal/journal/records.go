package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/statestore/internal/canon"
)

// Commit is one recorded state change.
type Commit struct {
	ID          string          `json:"id"`
	StoreID     string          `json:"store_id"`
	Seq         int64           `json:"seq"`
	Action      string          `json:"action"`
	State       json.RawMessage `json:"state"`
	Fingerprint string          `json:"fingerprint"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// Failure is one recorded failure.
type Failure struct {
	ID         string    `json:"id"`
	StoreID    string    `json:"store_id"`
	Seq        int64     `json:"seq"`
	Action     string    `json:"action"`
	Code       string    `json:"code"`
	Error      string    `json:"error"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StoreSummary counts rows per store.
type StoreSummary struct {
	StoreID  string `json:"store_id"`
	Commits  int    `json:"commits"`
	Failures int    `json:"failures"`
}

// AppendCommit records state for storeID. The state is stored as canonical
// JSON with its commit fingerprint.
func (j *Journal) AppendCommit(ctx context.Context, storeID, actionName string, state any) (Commit, error) {
	data, err := canon.Marshal(state)
	if err != nil {
		return Commit{}, fmt.Errorf("append commit: %w", err)
	}
	seq, err := j.nextSeq(ctx, storeID)
	if err != nil {
		return Commit{}, fmt.Errorf("append commit: %w", err)
	}

	c := Commit{
		ID:          j.ids(),
		StoreID:     storeID,
		Seq:         seq,
		Action:      actionName,
		State:       data,
		Fingerprint: canon.HashWithDomain(canon.DomainCommit, data),
		RecordedAt:  j.now().UTC(),
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO commits (id, store_id, seq, action, state, fingerprint, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.StoreID,
		c.Seq,
		c.Action,
		string(c.State),
		c.Fingerprint,
		c.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Commit{}, fmt.Errorf("append commit: %w", err)
	}
	return c, nil
}

// AppendFailure records a failure for storeID.
func (j *Journal) AppendFailure(ctx context.Context, storeID, actionName, code string, cause error) (Failure, error) {
	seq, err := j.nextSeq(ctx, storeID)
	if err != nil {
		return Failure{}, fmt.Errorf("append failure: %w", err)
	}

	f := Failure{
		ID:         j.ids(),
		StoreID:    storeID,
		Seq:        seq,
		Action:     actionName,
		Code:       code,
		Error:      cause.Error(),
		RecordedAt: j.now().UTC(),
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO failures (id, store_id, seq, action, code, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		f.ID,
		f.StoreID,
		f.Seq,
		f.Action,
		f.Code,
		f.Error,
		f.RecordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Failure{}, fmt.Errorf("append failure: %w", err)
	}
	return f, nil
}

// Commits returns every commit for storeID in sequence order. Returns an
// empty slice, not nil, when there are none.
func (j *Journal) Commits(ctx context.Context, storeID string) ([]Commit, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, store_id, seq, action, state, fingerprint, recorded_at
		FROM commits
		WHERE store_id = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := []Commit{}
	for rows.Next() {
		var (
			c     Commit
			state string
			at    string
		)
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Seq, &c.Action, &state, &c.Fingerprint, &at); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		c.State = json.RawMessage(state)
		if c.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("scan commit %s: %w", c.ID, err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

// Failures returns every failure for storeID in sequence order.
func (j *Journal) Failures(ctx context.Context, storeID string) ([]Failure, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, store_id, seq, action, code, error, recorded_at
		FROM failures
		WHERE store_id = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []Failure{}
	for rows.Next() {
		var (
			f  Failure
			at string
		)
		if err := rows.Scan(&f.ID, &f.StoreID, &f.Seq, &f.Action, &f.Code, &f.Error, &at); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if f.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("scan failure %s: %w", f.ID, err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

// Stores lists every store with rows in the journal, ordered by ID.
func (j *Journal) Stores(ctx context.Context) ([]StoreSummary, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT store_id,
		       SUM(CASE WHEN kind = 'commit' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN kind = 'failure' THEN 1 ELSE 0 END)
		FROM (
			SELECT store_id, 'commit' AS kind FROM commits
			UNION ALL
			SELECT store_id, 'failure' AS kind FROM failures
		)
		GROUP BY store_id
		ORDER BY store_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	summaries := []StoreSummary{}
	for rows.Next() {
		var s StoreSummary
		if err := rows.Scan(&s.StoreID, &s.Commits, &s.Failures); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stores: %w", err)
	}
	return summaries, nil
}

// Latest returns the newest commit for storeID.
func (j *Journal) Latest(ctx context.Context, storeID string) (Commit, bool, error) {
	var (
		c     Commit
		state string
		at    string
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT id, store_id, seq, action, state, fingerprint, recorded_at
		FROM commits
		WHERE store_id = ?
		ORDER BY seq DESC, id DESC COLLATE BINARY
		LIMIT 1
	`, storeID).Scan(&c.ID, &c.StoreID, &c.Seq, &c.Action, &state, &c.Fingerprint, &at)
	if err == sql.ErrNoRows {
		return Commit{}, false, nil
	}
	if err != nil {
		return Commit{}, false, fmt.Errorf("query latest commit: %w", err)
	}
	c.State = json.RawMessage(state)
	if c.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return Commit{}, false, fmt.Errorf("scan commit %s: %w", c.ID, err)
	}
	return c, true, nil
}

// Verify reports whether the stored fingerprint matches the stored state.
func (c Commit) Verify() bool {
	return canon.HashWithDomain(canon.DomainCommit, c.State) == c.Fingerprint
}

// Decode unmarshals a commit's state.
func Decode[S any](c Commit) (S, error) {
	var s S
	if err := json.Unmarshal(c.State, &s); err != nil {
		return s, fmt.Errorf("decode commit %s: %w", c.ID, err)
	}
	return s, nil
}
