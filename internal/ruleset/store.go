// internal/ruleset/store.go
package ruleset

/*
 * SQL-backed rule set definitions.
 *
 * Definitions are stored as JSON in the rule_sets table and addressed by
 * name. Save upserts: the id and created_at of an existing name survive,
 * description, definition and updated_at are replaced. A definition must
 * compile before it is stored.
 *
 * Timestamps are RFC3339 UTC text on both drivers.
 */

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/linewarden/internal/core/db"
	"github.com/solatis/linewarden/internal/rules"
	"github.com/solatis/linewarden/internal/types"
)

// Record is one stored rule set.
type Record struct {
	ID          types.RuleSetID
	Name        string
	Description string
	Definition  *types.RuleSet
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type row struct {
	ID          string `db:"rule_set_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Definition  string `db:"definition"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

// Store persists rule set definitions.
type Store struct {
	queries *db.Queries
	now     func() time.Time
}

// NewStore creates a store over loaded queries.
func NewStore(q *db.Queries) *Store {
	return &Store{queries: q, now: time.Now}
}

// Save validates def and stores it under def.Name.
func (s *Store) Save(ctx context.Context, def *types.RuleSet) (types.RuleSetID, error) {
	if _, err := rules.Compile(def); err != nil {
		return "", err
	}

	payload, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("failed to encode rule set: %w", err)
	}

	id := types.NewRuleSetID()
	ts := s.now().UTC().Format(time.RFC3339)
	if _, err := s.queries.Exec(ctx, "upsert-rule-set", string(id), def.Name, def.Description, string(payload), ts, ts); err != nil {
		return "", fmt.Errorf("failed to save rule set %q: %w", def.Name, err)
	}

	// On conflict the stored id wins.
	rec, err := s.Get(ctx, def.Name)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Get returns the rule set stored under name.
func (s *Store) Get(ctx context.Context, name string) (*Record, error) {
	var r row
	if err := s.queries.Get(ctx, "get-rule-set-by-name", &r, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", types.ErrRuleSetNotFound, name)
		}
		return nil, fmt.Errorf("failed to get rule set %q: %w", name, err)
	}
	return r.record()
}

// List returns every stored rule set ordered by name.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	var rows []row
	if err := s.queries.Select(ctx, "list-rule-sets", &rows); err != nil {
		return nil, fmt.Errorf("failed to list rule sets: %w", err)
	}

	records := make([]*Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Definitions returns every stored definition, for Registry.Replace.
func (s *Store) Definitions(ctx context.Context) ([]*types.RuleSet, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	defs := make([]*types.RuleSet, len(records))
	for i, rec := range records {
		defs[i] = rec.Definition
	}
	return defs, nil
}

// Delete removes the rule set stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.queries.Exec(ctx, "delete-rule-set-by-name", name)
	if err != nil {
		return fmt.Errorf("failed to delete rule set %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete rule set %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", types.ErrRuleSetNotFound, name)
	}
	return nil
}

func (r row) record() (*Record, error) {
	var def types.RuleSet
	if err := json.Unmarshal([]byte(r.Definition), &def); err != nil {
		return nil, fmt.Errorf("rule set %q: corrupt definition: %w", r.Name, err)
	}
	created, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("rule set %q: invalid created_at: %w", r.Name, err)
	}
	updated, err := time.Parse(time.RFC3339, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("rule set %q: invalid updated_at: %w", r.Name, err)
	}
	return &Record{
		ID:          types.RuleSetID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		Definition:  &def,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}
