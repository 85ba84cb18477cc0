// Package registry collects the mapped entities of a schema and the
// relationships declared between them.
//
// A Registry is the input of graph.New. It can be assembled from Go schemas
// (FromSchemas), a YAML description (LoadFile, Parse), a GraphQL SDL
// document (FromSDL), a live database (Inspect, FromRealm) or a static scan
// of a Go schema package (LoadPackage).
package registry

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kassett/relgraph"
)

// Named is implemented by instances that know the entity they belong to,
// for example rows loaded by the SQL loader.
type Named interface {
	EntityName() string
}

// Rel is the relation type of a relationship.
type Rel int

// Relation types.
const (
	Unk Rel = iota // Unknown.
	O2O            // One to one / has one.
	O2M            // One to many / has many.
	M2O            // Many to one (inverse perspective for O2M).
	M2M            // Many to many.
)

// String returns the relation name.
func (r Rel) String() string {
	s := "Unknown"
	switch r {
	case O2O:
		s = "O2O"
	case O2M:
		s = "O2M"
	case M2O:
		s = "M2O"
	case M2M:
		s = "M2M"
	}
	return s
}

// Direction returns the textual direction of the relation. To-many
// relations end in "many".
func (r Rel) Direction() string {
	s := "unknown"
	switch r {
	case O2O:
		s = "one-to-one"
	case O2M:
		s = "one-to-many"
	case M2O:
		s = "many-to-one"
	case M2M:
		s = "many-to-many"
	}
	return s
}

// ParseRel parses either form of a relation name: "O2M", "one-to-many",
// "ONETOMANY" or "one_to_many".
func ParseRel(s string) (Rel, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	switch norm {
	case "o2o", "onetoone":
		return O2O, nil
	case "o2m", "onetomany":
		return O2M, nil
	case "m2o", "manytoone":
		return M2O, nil
	case "m2m", "manytomany":
		return M2M, nil
	case "", "unknown":
		return Unk, nil
	}
	return Unk, fmt.Errorf("registry: unknown relation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Rel) MarshalText() ([]byte, error) {
	return []byte(r.Direction()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rel) UnmarshalText(b []byte) error {
	v, err := ParseRel(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Rel) MarshalYAML() (any, error) {
	return r.Direction(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Rel) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	return r.UnmarshalText([]byte(s))
}

type (
	// Entity is one mapped entity type.
	Entity struct {
		// Name is the entity (type) name.
		Name string `json:"name" yaml:"name" msgpack:"name"`
		// Table holds the storage table of the entity.
		Table string `json:"table,omitempty" yaml:"table,omitempty" msgpack:"table,omitempty"`
		// ID is the primary-key column. Defaults to "id".
		ID string `json:"id,omitempty" yaml:"id,omitempty" msgpack:"id,omitempty"`
		// Comment describes the entity.
		Comment string `json:"comment,omitempty" yaml:"comment,omitempty" msgpack:"comment,omitempty"`
		// Relationships declared on the entity, in declaration order.
		Relationships []*Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty" msgpack:"relationships,omitempty"`
		// Type is the Go model type of the entity instances, if bound.
		Type reflect.Type `json:"-" yaml:"-" msgpack:"-"`
	}

	// Relationship is a declared association from one entity to another.
	Relationship struct {
		// Name is the attribute used to access the related instances.
		Name string `json:"name" yaml:"name" msgpack:"name"`
		// Target is the related entity name.
		Target string `json:"target" yaml:"target" msgpack:"target"`
		// Rel holds the relation type.
		Rel Rel `json:"direction" yaml:"direction" msgpack:"rel"`
		// Inverse reports if the relationship is a back-reference.
		Inverse bool `json:"inverse,omitempty" yaml:"inverse,omitempty" msgpack:"inverse,omitempty"`
		// RefName holds the name of the referenced relationship.
		RefName string `json:"ref,omitempty" yaml:"ref,omitempty" msgpack:"ref,omitempty"`
		// Table holds the relation table. For O2O, O2M and M2O it is the
		// table holding the foreign-key, for M2M the join table.
		Table string `json:"table,omitempty" yaml:"table,omitempty" msgpack:"table,omitempty"`
		// Columns holds the relation column(s). One foreign-key column for
		// O2O, O2M and M2O. For M2M the join table columns referencing the
		// source and the target, in that order.
		Columns []string `json:"columns,omitempty" yaml:"columns,omitempty" msgpack:"columns,omitempty"`
		// OwnFK reports if the foreign-key resides in the source table.
		OwnFK bool `json:"own_fk,omitempty" yaml:"own_fk,omitempty" msgpack:"own_fk,omitempty"`
		// Through names the join entity of an M2M relationship.
		Through string `json:"through,omitempty" yaml:"through,omitempty" msgpack:"through,omitempty"`
		// Skip leaves the relationship out of the graph.
		Skip bool `json:"skip,omitempty" yaml:"skip,omitempty" msgpack:"skip,omitempty"`
		// StructField overrides the model member holding the related instances.
		StructField string `json:"struct_field,omitempty" yaml:"struct_field,omitempty" msgpack:"struct_field,omitempty"`
		// Comment describes the relationship.
		Comment string `json:"comment,omitempty" yaml:"comment,omitempty" msgpack:"comment,omitempty"`
	}
)

// Column returns the first relation column, or an empty string.
func (r *Relationship) Column() string {
	if len(r.Columns) == 0 {
		return ""
	}
	return r.Columns[0]
}

// IDColumn returns the primary-key column of the entity.
func (e *Entity) IDColumn() string {
	if e.ID == "" {
		return "id"
	}
	return e.ID
}

// Relationship returns the relationship with the given attribute name.
func (e *Entity) Relationship(name string) (*Relationship, bool) {
	for _, r := range e.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Registry holds mapped entities in registration order.
type Registry struct {
	entities []*Entity
	byName   map[string]*Entity
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*Entity)}
}

// Add registers the entity. Entity names must be unique.
func (r *Registry) Add(e *Entity) error {
	if e == nil || e.Name == "" {
		return fmt.Errorf("registry: entity without a name")
	}
	if _, ok := r.byName[e.Name]; ok {
		return fmt.Errorf("registry: entity %q registered twice", e.Name)
	}
	r.entities = append(r.entities, e)
	r.byName[e.Name] = e
	return nil
}

// Entity returns the entity registered under name.
func (r *Registry) Entity(name string) (*Entity, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Entities returns the registered entities in registration order.
func (r *Registry) Entities() []*Entity {
	return append([]*Entity(nil), r.entities...)
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	return len(r.entities)
}

// Bind attaches the Go model type of model to the entity, so instances of
// it resolve to the entity node. model may be a value, a pointer or a
// reflect.Type.
func (r *Registry) Bind(name string, model any) error {
	e, ok := r.byName[name]
	if !ok {
		return relgraph.NewNodeNotFoundError(name)
	}
	t, ok := model.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(model)
	}
	if t == nil {
		return fmt.Errorf("registry: cannot bind %q to a nil model", name)
	}
	e.Type = indirect(t)
	return nil
}

// Validate checks that every relationship points to a registered entity.
func (r *Registry) Validate() error {
	var errs []error
	for _, e := range r.entities {
		seen := make(map[string]struct{}, len(e.Relationships))
		for _, rel := range e.Relationships {
			if _, ok := r.byName[rel.Target]; !ok {
				errs = append(errs, fmt.Errorf("registry: relationship %s.%s: %w", e.Name, rel.Name, relgraph.NewNodeNotFoundError(rel.Target)))
			}
			if _, ok := seen[rel.Name]; ok {
				errs = append(errs, fmt.Errorf("registry: relationship %s.%s declared twice", e.Name, rel.Name))
			}
			seen[rel.Name] = struct{}{}
			if rel.Through != "" {
				if _, ok := r.byName[rel.Through]; !ok {
					errs = append(errs, fmt.Errorf("registry: relationship %s.%s through: %w", e.Name, rel.Name, relgraph.NewNodeNotFoundError(rel.Through)))
				}
			}
		}
	}
	return relgraph.NewAggregateError(errs...)
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
