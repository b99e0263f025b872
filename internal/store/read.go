package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/predsql"
)

// Entity is one hydrated row of an entity table.
type Entity struct {
	Type   string
	Key    string
	Fields map[string]fact.Value
}

// FactsByPattern returns the stored facts of a relation matching the given
// subject and object keys. An empty key means "any". Results are ordered by
// (subject, object) so enumeration is deterministic across runs.
//
// Only storable relations have tables; asking for an inferred relation is an
// error (the engine derives those, it never reads them here).
func (s *Store) FactsByPattern(ctx context.Context, relation, subject, object string) ([]fact.Fact, error) {
	rel, err := s.relationFor(relation)
	if err != nil {
		return nil, err
	}
	if rel.Inferred {
		return nil, fmt.Errorf("relation %q is inferred and has no stored facts", relation)
	}

	query := fmt.Sprintf("SELECT subject, object FROM %s", relationTable(rel.Name))
	var conds []string
	var params []any
	if subject != "" {
		conds = append(conds, "subject = ?")
		params = append(params, subject)
	}
	if object != "" {
		conds = append(conds, "object = ?")
		params = append(params, object)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY subject, object"

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query facts %s: %w", relation, err)
	}
	defer rows.Close()

	var facts []fact.Fact
	for rows.Next() {
		var subj, obj string
		if err := rows.Scan(&subj, &obj); err != nil {
			return nil, fmt.Errorf("scan fact %s: %w", relation, err)
		}
		facts = append(facts, fact.Fact{Relation: relation, Subject: subj, Object: obj})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts %s: %w", relation, err)
	}
	return facts, nil
}

// EvaluatePredicate reports whether the entity with the given key satisfies
// the predicate. A nil predicate is vacuously true. The predicate must be
// self-contained (no unresolved variable references); substitute bindings
// with fact.Substitute first.
func (s *Store) EvaluatePredicate(ctx context.Context, entityType, key string, pred fact.Predicate) (bool, error) {
	et, err := s.entityTypeFor(entityType)
	if err != nil {
		return false, err
	}
	if pred == nil {
		return true, nil
	}

	where, params, err := predsql.Compile(pred)
	if err != nil {
		return false, fmt.Errorf("evaluate predicate on %s: %w", entityType, err)
	}

	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE id = ? AND (%s))",
		entityTable(et.Name), where)
	params = append([]any{key}, params...)

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&exists); err != nil {
		return false, fmt.Errorf("evaluate predicate on %s: %w", entityType, err)
	}
	return exists, nil
}

// FilterKeys returns, ordered and deduplicated, the subset of keys whose
// entities satisfy the predicate. Used to pre-filter candidate bindings in a
// single query rather than one EvaluatePredicate round trip per key.
func (s *Store) FilterKeys(ctx context.Context, entityType string, keys []string, pred fact.Predicate) ([]string, error) {
	et, err := s.entityTypeFor(entityType)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	where, params, err := predsql.Compile(pred)
	if err != nil {
		return nil, fmt.Errorf("filter keys %s: %w", entityType, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	query := fmt.Sprintf(
		"SELECT id FROM %s WHERE id IN (%s) AND (%s) ORDER BY id",
		entityTable(et.Name), placeholders, where)

	args := make([]any, 0, len(keys)+len(params))
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, params...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter keys %s: %w", entityType, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan key %s: %w", entityType, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// EntitiesByKeys fetches entities of one type by primary key in a single
// batched query. Missing keys are simply absent from the result map.
func (s *Store) EntitiesByKeys(ctx context.Context, entityType string, keys []string) (map[string]*Entity, error) {
	et, err := s.entityTypeFor(entityType)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return map[string]*Entity{}, nil
	}

	cols := make([]string, 0, len(et.Fields)+1)
	cols = append(cols, "id")
	for _, f := range et.Fields {
		cols = append(cols, f.Name)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE id IN (%s) ORDER BY id",
		strings.Join(cols, ", "), entityTable(et.Name), placeholders)

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch entities %s: %w", entityType, err)
	}
	defer rows.Close()

	out := make(map[string]*Entity, len(keys))
	for rows.Next() {
		ent, err := scanEntity(rows, et)
		if err != nil {
			return nil, err
		}
		out[ent.Key] = ent
	}
	return out, rows.Err()
}

// scanEntity scans one row into an Entity, mapping SQL column values back to
// typed fact values. NULL columns are left absent from Fields.
func scanEntity(rows *sql.Rows, et fact.EntityType) (*Entity, error) {
	var id string
	dests := make([]any, 0, len(et.Fields)+1)
	dests = append(dests, &id)

	strVals := make([]sql.NullString, len(et.Fields))
	intVals := make([]sql.NullInt64, len(et.Fields))
	for i, f := range et.Fields {
		switch f.Kind {
		case fact.KindInt, fact.KindBool:
			dests = append(dests, &intVals[i])
		default:
			dests = append(dests, &strVals[i])
		}
	}

	if err := rows.Scan(dests...); err != nil {
		return nil, fmt.Errorf("scan entity %s: %w", et.Name, err)
	}

	ent := &Entity{Type: et.Name, Key: id, Fields: make(map[string]fact.Value, len(et.Fields))}
	for i, f := range et.Fields {
		switch f.Kind {
		case fact.KindInt:
			if intVals[i].Valid {
				ent.Fields[f.Name] = fact.Int(intVals[i].Int64)
			}
		case fact.KindBool:
			if intVals[i].Valid {
				ent.Fields[f.Name] = fact.Bool(intVals[i].Int64 != 0)
			}
		default:
			if strVals[i].Valid {
				ent.Fields[f.Name] = fact.String(strVals[i].String)
			}
		}
	}
	return ent, nil
}
