package fact

import "fmt"

// FieldKind is the storage type of an entity field.
// No float kind - floats are forbidden throughout.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindBool
)

func (k FieldKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Field is one declared field of an entity type.
type Field struct {
	Name string
	Kind FieldKind
}

// EntityType statically declares an entity type: a name plus its typed
// fields. The primary key field "id" is implicit and always present.
type EntityType struct {
	Name   string
	Fields []Field // declaration order, preserved for deterministic DDL
}

// FieldNamed returns the declared field with the given name.
func (t EntityType) FieldNamed(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Relation statically declares a binary fact relation: its name, the entity
// types of its subject and object positions, and its flavor.
//
// Storable relations are persisted by the store; inferred relations exist
// only as rule-evaluation output and may never be stored.
type Relation struct {
	Name     string
	Subject  string // subject entity type name
	Object   string // object entity type name
	Inferred bool
}

// Schema is the registry of declared entity types and relations.
// It replaces runtime type discovery: every relation's subject/object types
// and flavor are declared up front, before any store or engine use.
type Schema struct {
	entities  map[string]EntityType
	relations map[string]Relation

	// declaration order, for deterministic provisioning and reporting
	entityOrder   []string
	relationOrder []string
}

// NewSchema creates an empty schema registry.
func NewSchema() *Schema {
	return &Schema{
		entities:  make(map[string]EntityType),
		relations: make(map[string]Relation),
	}
}

// AddEntity registers an entity type. Duplicate names are rejected, as is a
// declared field named "id" (the implicit primary key).
func (s *Schema) AddEntity(t EntityType) error {
	if t.Name == "" {
		return fmt.Errorf("add entity: empty type name")
	}
	if _, exists := s.entities[t.Name]; exists {
		return fmt.Errorf("add entity: duplicate entity type %q", t.Name)
	}
	seen := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		if f.Name == "id" {
			return fmt.Errorf("add entity %s: field %q is reserved for the primary key", t.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("add entity %s: duplicate field %q", t.Name, f.Name)
		}
		seen[f.Name] = true
	}
	s.entities[t.Name] = t
	s.entityOrder = append(s.entityOrder, t.Name)
	return nil
}

// AddRelation registers a relation. Subject and object entity types must
// already be declared.
func (s *Schema) AddRelation(r Relation) error {
	if r.Name == "" {
		return fmt.Errorf("add relation: empty relation name")
	}
	if _, exists := s.relations[r.Name]; exists {
		return fmt.Errorf("add relation: duplicate relation %q", r.Name)
	}
	if _, ok := s.entities[r.Subject]; !ok {
		return fmt.Errorf("add relation %s: unknown subject entity type %q", r.Name, r.Subject)
	}
	if _, ok := s.entities[r.Object]; !ok {
		return fmt.Errorf("add relation %s: unknown object entity type %q", r.Name, r.Object)
	}
	s.relations[r.Name] = r
	s.relationOrder = append(s.relationOrder, r.Name)
	return nil
}

// Entity returns the entity type descriptor for the given name.
func (s *Schema) Entity(name string) (EntityType, bool) {
	t, ok := s.entities[name]
	return t, ok
}

// Relation returns the relation descriptor for the given name.
func (s *Schema) Relation(name string) (Relation, bool) {
	r, ok := s.relations[name]
	return r, ok
}

// Entities returns all entity types in declaration order.
func (s *Schema) Entities() []EntityType {
	out := make([]EntityType, 0, len(s.entityOrder))
	for _, name := range s.entityOrder {
		out = append(out, s.entities[name])
	}
	return out
}

// Relations returns all relations in declaration order.
func (s *Schema) Relations() []Relation {
	out := make([]Relation, 0, len(s.relationOrder))
	for _, name := range s.relationOrder {
		out = append(out, s.relations[name])
	}
	return out
}

// TermType resolves the entity type of a pattern position.
// pos is "subject" or "object".
func (s *Schema) TermType(relation, pos string) (string, error) {
	r, ok := s.relations[relation]
	if !ok {
		return "", fmt.Errorf("unknown relation %q", relation)
	}
	switch pos {
	case "subject":
		return r.Subject, nil
	case "object":
		return r.Object, nil
	default:
		return "", fmt.Errorf("unknown position %q", pos)
	}
}
