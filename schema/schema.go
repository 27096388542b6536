// Package schema holds the read-only descriptors the rest of the engine
// plans and executes against (spec C6): entities, their fields, the
// indexes declared over them, and their relations to other entities.
// Schema is assembled once, up front, and never mutated at query time -
// the same "declare the shape, then look it up" discipline as the kv
// package's table registry.
package schema

import (
	"github.com/dragginzgame/icydb-core/icyerr"
	"github.com/dragginzgame/icydb-core/value"
)

// FieldDescriptor names one entity field and the value family it holds.
type FieldDescriptor struct {
	Name   string
	Family value.Family
}

// IndexKind distinguishes user-visible indexes from the reverse-relation
// index, which lives in the System namespace (spec §3 "Index").
type IndexKind uint8

const (
	IndexUser IndexKind = iota
	IndexSystem
)

// IndexDescriptor declares one index: an ordered list of component
// fields (the index's arity) plus whether it is unique (spec §3
// "Index").
type IndexDescriptor struct {
	ID         string
	Kind       IndexKind
	Components []FieldDescriptor
	Unique     bool
}

// Arity is the number of components the index's raw keys carry before
// the trailing PK component.
func (d IndexDescriptor) Arity() int { return len(d.Components) }

// RelationDescriptor declares a field that references another entity by
// PK. Strong relations participate in the delete-block check (spec C14);
// weak relations do not.
type RelationDescriptor struct {
	Field        string
	TargetEntity string
	Strong       bool
}

// EntityDescriptor is the full shape of one entity: its namespace tag,
// its PK field, its other fields, the indexes declared over it, and its
// relations to other entities.
type EntityDescriptor struct {
	Name      string
	PK        FieldDescriptor
	Fields    []FieldDescriptor
	Indexes   []IndexDescriptor
	Relations []RelationDescriptor
}

// Field looks up a field descriptor by name, including the PK field.
func (e EntityDescriptor) Field(name string) (FieldDescriptor, bool) {
	if e.PK.Name == name {
		return e.PK, true
	}
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// Index looks up a declared index by id.
func (e EntityDescriptor) Index(id string) (IndexDescriptor, bool) {
	for _, ix := range e.Indexes {
		if ix.ID == id {
			return ix, true
		}
	}
	return IndexDescriptor{}, false
}

// Registry is the read-only set of all entity descriptors known to a
// session, keyed by entity name.
type Registry struct {
	entities map[string]EntityDescriptor
}

// NewRegistry builds a Registry from a set of entity descriptors,
// validating each before accepting it (spec C6 "read-only at query
// time" - invalid schema must be rejected at construction, not
// discovered mid-query).
func NewRegistry(entities []EntityDescriptor) (*Registry, error) {
	r := &Registry{entities: make(map[string]EntityDescriptor, len(entities))}
	for _, e := range entities {
		if err := Validate(e); err != nil {
			return nil, err
		}
		r.entities[e.Name] = e
	}
	for _, e := range entities {
		for _, rel := range e.Relations {
			if _, ok := r.entities[rel.TargetEntity]; !ok {
				return nil, icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "relation target entity not registered").
					WithDetail("entity=" + e.Name + " field=" + rel.Field + " target=" + rel.TargetEntity)
			}
		}
	}
	return r, nil
}

// Entity looks up an entity descriptor by name.
func (r *Registry) Entity(name string) (EntityDescriptor, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// Validate checks an entity descriptor's internal consistency: every
// index component and relation field must name a declared field (or the
// PK), index ids must be unique within the entity, and no field may be
// declared twice. This is the supplemented schema-validation entry point
// (SPEC_FULL.md §4) - the distilled spec assumes schema is already
// well-formed by construction; a from-scratch implementation needs to
// say what "well-formed" means and check it once, rather than letting a
// malformed descriptor surface confusing errors deep in the planner.
func Validate(e EntityDescriptor) error {
	if e.Name == "" {
		return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "entity descriptor missing name")
	}
	if e.PK.Name == "" {
		return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "entity missing PK field").WithDetail("entity=" + e.Name)
	}

	seen := map[string]bool{e.PK.Name: true}
	for _, f := range e.Fields {
		if seen[f.Name] {
			return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "duplicate field name").
				WithDetail("entity=" + e.Name + " field=" + f.Name)
		}
		seen[f.Name] = true
	}

	indexIDs := map[string]bool{}
	for _, ix := range e.Indexes {
		if indexIDs[ix.ID] {
			return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "duplicate index id").
				WithDetail("entity=" + e.Name + " index=" + ix.ID)
		}
		indexIDs[ix.ID] = true
		if len(ix.Components) == 0 {
			return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "index declares no components").
				WithDetail("entity=" + e.Name + " index=" + ix.ID)
		}
		for _, c := range ix.Components {
			if !seen[c.Name] {
				return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "index component references undeclared field").
					WithDetail("entity=" + e.Name + " index=" + ix.ID + " field=" + c.Name)
			}
		}
	}

	for _, rel := range e.Relations {
		if !seen[rel.Field] {
			return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "relation references undeclared field").
				WithDetail("entity=" + e.Name + " field=" + rel.Field)
		}
		if rel.TargetEntity == "" {
			return icyerr.New(icyerr.ClassInvalidInput, icyerr.OriginQuery, "relation missing target entity").
				WithDetail("entity=" + e.Name + " field=" + rel.Field)
		}
	}

	return nil
}
