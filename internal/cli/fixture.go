package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syllog/syllog/internal/fact"
	"github.com/syllog/syllog/internal/store"
)

// Fixture is the YAML shape consumed by load and retract:
//
//	entities:
//	  Person:
//	    - id: alice
//	      name: "Alice"
//	      age: 42
//	facts:
//	  ParentOf:
//	    - subject: alice
//	      object: bob
//
// Entity ids are optional; a missing id gets a generated key on load.
type Fixture struct {
	Entities map[string][]map[string]any `yaml:"entities"`
	Facts    map[string][]FixtureFact    `yaml:"facts"`
}

// FixtureFact is one subject/object pair of a relation.
type FixtureFact struct {
	Subject string `yaml:"subject"`
	Object  string `yaml:"object"`
}

// ReadFixture parses a fixture file.
func ReadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &fx, nil
}

// FixtureEntities converts a fixture's entity rows to store entities,
// validated against the schema. keyGen supplies keys for rows without an id.
func FixtureEntities(s *fact.Schema, fx *Fixture, keyGen func() string) (map[string][]*store.Entity, error) {
	out := make(map[string][]*store.Entity, len(fx.Entities))
	for typeName, rows := range fx.Entities {
		et, ok := s.Entity(typeName)
		if !ok {
			return nil, fmt.Errorf("fixture references undeclared entity type %q", typeName)
		}
		for i, row := range rows {
			ent := &store.Entity{Type: typeName, Fields: make(map[string]fact.Value, len(row))}
			for name, raw := range row {
				if name == "id" {
					key, ok := raw.(string)
					if !ok {
						return nil, fmt.Errorf("%s[%d]: id must be a string", typeName, i)
					}
					ent.Key = key
					continue
				}
				f, ok := et.FieldNamed(name)
				if !ok {
					return nil, fmt.Errorf("%s[%d]: undeclared field %q", typeName, i, name)
				}
				val, err := fixtureValue(raw, f)
				if err != nil {
					return nil, fmt.Errorf("%s[%d]: %w", typeName, i, err)
				}
				ent.Fields[name] = val
			}
			if ent.Key == "" {
				ent.Key = keyGen()
			}
			out[typeName] = append(out[typeName], ent)
		}
	}
	return out, nil
}

// fixtureValue converts a YAML scalar to a typed field value.
// YAML floats are rejected outright, matching the no-float discipline.
func fixtureValue(raw any, f fact.Field) (fact.Value, error) {
	switch f.Kind {
	case fact.KindInt:
		switch v := raw.(type) {
		case int:
			return fact.Int(v), nil
		case int64:
			return fact.Int(v), nil
		case float64:
			return nil, fmt.Errorf("field %s: float values are forbidden", f.Name)
		default:
			return nil, fmt.Errorf("field %s: want int, got %T", f.Name, raw)
		}
	case fact.KindBool:
		v, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("field %s: want bool, got %T", f.Name, raw)
		}
		return fact.Bool(v), nil
	default:
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: want string, got %T", f.Name, raw)
		}
		return fact.String(v), nil
	}
}

// FixtureFacts converts a fixture's fact rows, validated against the schema.
func FixtureFacts(s *fact.Schema, fx *Fixture) ([]fact.Fact, error) {
	var out []fact.Fact
	for relName, rows := range fx.Facts {
		rel, ok := s.Relation(relName)
		if !ok {
			return nil, fmt.Errorf("fixture references undeclared relation %q", relName)
		}
		if rel.Inferred {
			return nil, fmt.Errorf("relation %q is inferred; inferred facts cannot appear in fixtures", relName)
		}
		for i, row := range rows {
			if row.Subject == "" || row.Object == "" {
				return nil, fmt.Errorf("%s[%d]: subject and object are required", relName, i)
			}
			out = append(out, fact.F(relName, row.Subject, row.Object))
		}
	}
	return out, nil
}
