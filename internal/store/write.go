package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/syllog/syllog/internal/fact"
)

// PutEntities upserts entities of one type in a single transaction.
// Existing rows are overwritten field-by-field.
func (s *Store) PutEntities(ctx context.Context, entityType string, entities []*Entity) error {
	et, err := s.entityTypeFor(entityType)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return nil
	}

	cols := make([]string, 0, len(et.Fields)+1)
	cols = append(cols, "id")
	for _, f := range et.Fields {
		cols = append(cols, f.Name)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	var updates []string
	for _, f := range et.Fields {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", f.Name, f.Name))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		entityTable(et.Name), strings.Join(cols, ", "), placeholders)
	if len(updates) > 0 {
		query += " ON CONFLICT(id) DO UPDATE SET " + strings.Join(updates, ", ")
	} else {
		query += " ON CONFLICT(id) DO NOTHING"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put entities %s: begin tx: %w", entityType, err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("put entities %s: prepare: %w", entityType, err)
	}
	defer stmt.Close()

	for _, ent := range entities {
		args := make([]any, 0, len(cols))
		args = append(args, ent.Key)
		for _, f := range et.Fields {
			param, err := fieldParam(ent.Fields[f.Name], f)
			if err != nil {
				return fmt.Errorf("put entity %s/%s: %w", entityType, ent.Key, err)
			}
			args = append(args, param)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("put entity %s/%s: %w", entityType, ent.Key, err)
		}
	}

	return tx.Commit()
}

// fieldParam converts a typed field value to its SQL parameter, validating
// the value against the declared kind. A nil value stores NULL.
func fieldParam(v fact.Value, f fact.Field) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case fact.KindInt:
		iv, ok := v.(fact.Int)
		if !ok {
			return nil, fmt.Errorf("field %s: want int, got %T", f.Name, v)
		}
		return int64(iv), nil
	case fact.KindBool:
		bv, ok := v.(fact.Bool)
		if !ok {
			return nil, fmt.Errorf("field %s: want bool, got %T", f.Name, v)
		}
		if bv {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		sv, ok := v.(fact.String)
		if !ok {
			return nil, fmt.Errorf("field %s: want string, got %T", f.Name, v)
		}
		return string(sv), nil
	}
}

// DeleteEntities removes entities by key. Missing keys are ignored.
// Dependent facts are removed by the relation tables' ON DELETE CASCADE.
func (s *Store) DeleteEntities(ctx context.Context, entityType string, keys []string) error {
	et, err := s.entityTypeFor(entityType)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", entityTable(et.Name), placeholders)

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete entities %s: %w", entityType, err)
	}
	return nil
}

// InsertFacts stores facts in a single transaction. Duplicates are silently
// ignored (ON CONFLICT DO NOTHING), so re-inserting an existing fact is a
// no-op rather than an error.
//
// Every fact's relation is checked before any row is written: a fact of an
// inferred relation fails the whole batch with ErrInferredFact.
func (s *Store) InsertFacts(ctx context.Context, facts []fact.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	for _, f := range facts {
		rel, err := s.relationFor(f.Relation)
		if err != nil {
			return err
		}
		if rel.Inferred {
			return &ErrInferredFact{Relation: f.Relation}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert facts: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, f := range facts {
		query := fmt.Sprintf(
			"INSERT INTO %s (subject, object) VALUES (?, ?) ON CONFLICT(subject, object) DO NOTHING",
			relationTable(f.Relation))
		if _, err := tx.ExecContext(ctx, query, f.Subject, f.Object); err != nil {
			return fmt.Errorf("insert fact %s: %w", f, err)
		}
	}

	return tx.Commit()
}

// DeleteFacts removes facts in a single transaction. Deleting a fact that
// does not exist is a no-op. Inferred relations are rejected the same way
// InsertFacts rejects them: there is nothing stored to delete.
func (s *Store) DeleteFacts(ctx context.Context, facts []fact.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	for _, f := range facts {
		rel, err := s.relationFor(f.Relation)
		if err != nil {
			return err
		}
		if rel.Inferred {
			return &ErrInferredFact{Relation: f.Relation}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete facts: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, f := range facts {
		query := fmt.Sprintf("DELETE FROM %s WHERE subject = ? AND object = ?", relationTable(f.Relation))
		if _, err := tx.ExecContext(ctx, query, f.Subject, f.Object); err != nil {
			return fmt.Errorf("delete fact %s: %w", f, err)
		}
	}

	return tx.Commit()
}
