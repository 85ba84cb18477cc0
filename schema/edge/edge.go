package edge

import (
	"errors"
	"reflect"

	"github.com/kassett/relgraph/schema"
)

// A Descriptor for edge configuration.
type Descriptor struct {
	Tag         string                 // struct tag of the accessor in the model.
	Type        string                 // edge (target) type name.
	Name        string                 // edge name, the traversal attribute.
	Field       string                 // edge field (foreign-key column) name.
	RefName     string                 // ref name; inverse only.
	Ref         *Descriptor            // edge reference; to/from of the same type.
	Through     *struct{ N, T string } // through type and name.
	Unique      bool                   // unique edge (to-one).
	Inverse     bool                   // inverse edge.
	StorageKey  *StorageKey            // optional storage-key configuration.
	Annotations []schema.Annotation    // edge annotations.
	Comment     string                 // edge comment.
	Err         error
}

// To defines an association edge.
//
//	edge.To("posts", Post.Type)
//	edge.To("posts", Post{})
func To(name string, t any) *assocBuilder {
	return &assocBuilder{desc: &Descriptor{
		Name: name,
		Type: typ(t),
	}}
}

// From represents a reversed-edge between two vertices that has a back-reference to its source edge.
//
//	edge.From("author", User.Type).Ref("posts")
func From(name string, t any) *inverseBuilder {
	return &inverseBuilder{desc: &Descriptor{
		Name:    name,
		Type:    typ(t),
		Inverse: true,
	}}
}

// assocBuilder is the builder for assoc edges.
type assocBuilder struct {
	desc *Descriptor
}

// Unique sets the edge type to be unique. Basically, it limits the edge to be
// one of the two: one-2-one or many-2-one.
func (b *assocBuilder) Unique() *assocBuilder {
	b.desc.Unique = true
	return b
}

// StructTag defines the struct tag of the accessor in the model.
func (b *assocBuilder) StructTag(s string) *assocBuilder {
	b.desc.Tag = s
	return b
}

// From creates an inverse-edge with the same type.
//
//	edge.To("following", User.Type).From("followers")
func (b *assocBuilder) From(name string) *inverseBuilder {
	return &inverseBuilder{desc: &Descriptor{
		Name:    name,
		Type:    b.desc.Type,
		Inverse: true,
		Ref:     b.desc,
	}}
}

// Field is used to bind an edge (with a foreign-key) to a field in the schema.
//
//	edge.To("owner", User.Type).Field("owner_id").Unique()
func (b *assocBuilder) Field(f string) *assocBuilder {
	b.desc.Field = f
	return b
}

// Through allows setting an "edge schema" to interact explicitly with M2M edges.
//
//	edge.To("friends", User.Type).Through("friendships", Friendship.Type)
func (b *assocBuilder) Through(name string, t any) *assocBuilder {
	b.desc.Through = &struct{ N, T string }{N: name, T: typ(t)}
	return b
}

// Comment used to put annotations on the schema.
func (b *assocBuilder) Comment(c string) *assocBuilder {
	b.desc.Comment = c
	return b
}

// StorageKey sets the storage key of the edge.
//
//	edge.To("groups", Group.Type).
//		StorageKey(edge.Table("user_groups"), edge.Columns("user_id", "group_id"))
func (b *assocBuilder) StorageKey(opts ...StorageOption) *assocBuilder {
	if b.desc.StorageKey == nil {
		b.desc.StorageKey = &StorageKey{}
	}
	for i := range opts {
		opts[i](b.desc.StorageKey)
	}
	return b
}

// Annotations adds a list of annotations to the edge object to be used by
// the registry and the traversal loaders.
//
//	edge.To("pets", Pet.Type).
//		Annotations(edge.Annotation{StructField: "Animals"})
func (b *assocBuilder) Annotations(annotations ...schema.Annotation) *assocBuilder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the relgraph.Descriptor interface.
func (b *assocBuilder) Descriptor() *Descriptor {
	return b.desc
}

// inverseBuilder is the builder for inverse edges.
type inverseBuilder struct {
	desc *Descriptor
}

// Ref sets the referenced-edge of this inverse edge.
func (b *inverseBuilder) Ref(ref string) *inverseBuilder {
	b.desc.RefName = ref
	return b
}

// Unique sets the edge type to be unique. Basically, it limits the edge to be
// one of the two: one-2-one or one-2-many.
func (b *inverseBuilder) Unique() *inverseBuilder {
	b.desc.Unique = true
	return b
}

// StructTag defines the struct tag of the accessor in the model.
func (b *inverseBuilder) StructTag(s string) *inverseBuilder {
	b.desc.Tag = s
	return b
}

// Comment used to put annotations on the schema.
func (b *inverseBuilder) Comment(c string) *inverseBuilder {
	b.desc.Comment = c
	return b
}

// Field is used to bind an edge (with a foreign-key) to a field in the schema.
//
//	edge.From("owner", User.Type).
//		Ref("pets").
//		Unique().
//		Field("owner_id")
func (b *inverseBuilder) Field(f string) *inverseBuilder {
	b.desc.Field = f
	return b
}

// Through allows setting an "edge schema" to interact explicitly with M2M edges.
func (b *inverseBuilder) Through(name string, t any) *inverseBuilder {
	b.desc.Through = &struct{ N, T string }{N: name, T: typ(t)}
	return b
}

// Annotations adds a list of annotations to the edge object.
func (b *inverseBuilder) Annotations(annotations ...schema.Annotation) *inverseBuilder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor implements the relgraph.Descriptor interface.
func (b *inverseBuilder) Descriptor() *Descriptor {
	if b.desc.Ref != nil {
		b.desc.RefName = b.desc.Ref.Name
	}
	return b.desc
}

// StorageKey holds the configuration for edge storage-key.
type StorageKey struct {
	Table   string   // Table or label.
	Symbols []string // Foreign-key constraints.
	Columns []string // Foreign-key columns.
}

// StorageOption allows for setting the storage configuration using functional options.
type StorageOption func(*StorageKey)

// Table sets the table name option for M2M edges.
func Table(name string) StorageOption {
	return func(key *StorageKey) {
		key.Table = name
	}
}

// Symbol sets the symbol/name of the foreign-key constraint for O2O, O2M and M2O edges.
func Symbol(symbol string) StorageOption {
	return func(key *StorageKey) {
		key.Symbols = []string{symbol}
	}
}

// Column sets the foreign-key column name option for O2O, O2M and M2O edges.
func Column(name string) StorageOption {
	return func(key *StorageKey) {
		key.Columns = []string{name}
	}
}

// Columns sets the foreign-key column names option for M2M edges.
// The 1st column defines the name of the "To" edge, and the 2nd defines
// the name of the "From" edge (inverse edge).
func Columns(to, from string) StorageOption {
	return func(key *StorageKey) {
		key.Columns = []string{to, from}
	}
}

var errNoType = errors.New("edge: missing target type")

// typ returns the name of the type the edge points to. It accepts the
// method expression of the target schema (Post.Type) or a value of it.
func typ(t any) string {
	rt := reflect.TypeOf(t)
	if rt == nil {
		return ""
	}
	if rt.Kind() == reflect.Func {
		if rt.NumIn() > 0 {
			return indirect(rt.In(0)).Name()
		}
		return ""
	}
	return indirect(rt).Name()
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// Check reports configuration errors of the descriptor.
func (d *Descriptor) Check() error {
	switch {
	case d.Err != nil:
		return d.Err
	case d.Type == "":
		return errNoType
	case d.Name == "":
		return errors.New("edge: missing edge name")
	}
	if d.Ref != nil {
		return d.Ref.Check()
	}
	return nil
}
