// Package core provides the building blocks of the golem-admin back-office.
// This file defines the model catalog entries: fields, has-many associations
// and the reflection-based builder that derives a Model from a Go struct.
package core

import (
	"fmt"
	"reflect"
	"strings"
)

// FieldType is the admin type of a field. It decides how the field is rendered
// and which filter operators apply to it.
type FieldType string

const (
	TypeText      FieldType = "text"
	TypeTextArea  FieldType = "text_area"
	TypeSlug      FieldType = "slug"
	TypeEmail     FieldType = "email"
	TypeURL       FieldType = "url"
	TypeSelect    FieldType = "select"
	TypeWysiwyg   FieldType = "wysiwyg"
	TypeNumber    FieldType = "number"
	TypeLookup    FieldType = "lookup"
	TypeCheckBox  FieldType = "check_box"
	TypeDate      FieldType = "date"
	TypeDatetime  FieldType = "datetime"
	TypeGeopicker FieldType = "geopicker"
)

// FieldKind groups field types that filter the same way.
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindNumber    FieldKind = "number"
	KindLookup    FieldKind = "lookup"
	KindCheckBox  FieldKind = "check_box"
	KindDate      FieldKind = "date"
	KindDatetime  FieldKind = "datetime"
	KindGeopicker FieldKind = "geopicker"
	KindOpaque    FieldKind = "opaque"
)

// Kind returns the filter kind of the type. Types that are neither
// text-matchable nor one of the typed kinds are opaque and cannot be filtered.
func (t FieldType) Kind() FieldKind {
	switch t {
	case TypeText, TypeTextArea, TypeSlug, TypeEmail, TypeURL, TypeSelect, TypeWysiwyg:
		return KindText
	case TypeNumber:
		return KindNumber
	case TypeLookup:
		return KindLookup
	case TypeCheckBox:
		return KindCheckBox
	case TypeDate:
		return KindDate
	case TypeDatetime:
		return KindDatetime
	case TypeGeopicker:
		return KindGeopicker
	}
	return KindOpaque
}

// FieldSpec describes one field of a model.
type FieldSpec struct {
	Name            string    `yaml:"name"`
	Column          string    `yaml:"column"`
	Type            FieldType `yaml:"type"`
	AssociatedModel string    `yaml:"model"`   // set iff Type is lookup
	Virtual         bool      `yaml:"virtual"` // not persisted, never filterable
	Index           bool      `yaml:"index"`   // shown in listings and CSV exports
}

// Persisted reports whether the field is stored by the backend.
func (f FieldSpec) Persisted() bool {
	return !f.Virtual
}

// Association describes a has-many relationship from a model to a collection
// model. ForeignKey is the column on the collection model that holds the
// owner's identifier.
type Association struct {
	Name       string `yaml:"name"`
	Model      string `yaml:"model"`
	ForeignKey string `yaml:"foreign_key"`
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses "asc" or "desc" (case-insensitive).
func ParseDirection(raw string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(raw))) {
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("%w: direction %q", ErrInvalidSort, raw)
}

// Order returns 1 for ascending and -1 for descending.
func (d Direction) Order() int {
	if d == Desc {
		return -1
	}
	return 1
}

// SortOption is a model's default listing order.
type SortOption struct {
	Field     string    `yaml:"field"`
	Direction Direction `yaml:"direction"`
}

// Model is the catalog entry of one admin model.
type Model struct {
	Name             string        `yaml:"name"`
	Collection       string        `yaml:"collection"`
	Database         string        `yaml:"database"`
	IDField          string        `yaml:"id_field"`
	DisplayField     string        `yaml:"display_field"`
	CoordinatesField string        `yaml:"coordinates_field"`
	CreatedAtField   string        `yaml:"created_at_field"`
	UpdatedAtField   string        `yaml:"updated_at_field"`
	DefaultSort      *SortOption   `yaml:"default_sort"`
	Fields           []FieldSpec   `yaml:"fields"`
	Associations     []Association `yaml:"has_many"`
}

// Field finds a field by name.
func (m *Model) Field(name string) (FieldSpec, bool) {
	for _, field := range m.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// HasPersistedField reports whether the model stores a field with that name.
func (m *Model) HasPersistedField(name string) bool {
	field, ok := m.Field(name)
	return ok && field.Persisted()
}

// Association finds a has-many association by name.
func (m *Model) Association(name string) (Association, bool) {
	for _, association := range m.Associations {
		if association.Name == name {
			return association, true
		}
	}
	return Association{}, false
}

// Column returns the backend column of a field name. The id field and names
// missing from the catalog map onto themselves.
func (m *Model) Column(name string) string {
	if field, ok := m.Field(name); ok {
		return field.Column
	}
	return name
}

// IndexFields returns the fields shown in listings, in catalog order.
// When no field is marked as index, every persisted field is returned.
func (m *Model) IndexFields() []FieldSpec {
	var fieldList []FieldSpec
	for _, field := range m.Fields {
		if field.Index {
			fieldList = append(fieldList, field)
		}
	}
	if len(fieldList) > 0 {
		return fieldList
	}
	for _, field := range m.Fields {
		if field.Persisted() {
			fieldList = append(fieldList, field)
		}
	}
	return fieldList
}

// normalize fills defaults and checks the model's own invariants.
func (m *Model) normalize() error {
	if m.Name == "" {
		return fmt.Errorf("catalog: model without name")
	}
	if m.Collection == "" {
		m.Collection = toSnake(m.Name) + "s"
	}
	if m.IDField == "" {
		m.IDField = "id"
	}
	if m.CoordinatesField == "" {
		m.CoordinatesField = "coordinates"
	}
	if m.CreatedAtField == "" && m.HasPersistedField("created_at") {
		m.CreatedAtField = "created_at"
	}
	if m.UpdatedAtField == "" && m.HasPersistedField("updated_at") {
		m.UpdatedAtField = "updated_at"
	}
	if m.DisplayField == "" {
		if m.HasPersistedField("name") {
			m.DisplayField = "name"
		} else {
			m.DisplayField = m.IDField
		}
	}
	seen := make(map[string]bool, len(m.Fields))
	for i := range m.Fields {
		field := &m.Fields[i]
		if field.Name == "" {
			return fmt.Errorf("catalog: model %s has a field without name", m.Name)
		}
		if seen[field.Name] {
			return fmt.Errorf("catalog: model %s declares field %s twice", m.Name, field.Name)
		}
		seen[field.Name] = true
		if field.Column == "" {
			field.Column = field.Name
		}
		if field.Type == "" {
			field.Type = TypeText
		}
		if field.Type == TypeLookup && field.AssociatedModel == "" {
			return fmt.Errorf("catalog: lookup field %s.%s has no model", m.Name, field.Name)
		}
		if field.Type != TypeLookup && field.AssociatedModel != "" {
			return fmt.Errorf("catalog: field %s.%s names a model but is %s", m.Name, field.Name, field.Type)
		}
	}
	if m.DefaultSort != nil && m.DefaultSort.Direction == "" {
		m.DefaultSort.Direction = Asc
	}
	return nil
}

// ModelOption customizes a Model built by ModelOf.
type ModelOption func(*Model)

// Collection sets the table/collection name.
func Collection(name string) ModelOption {
	return func(m *Model) { m.Collection = name }
}

// Database sets the database (Postgres schema or Mongo database) name.
func Database(name string) ModelOption {
	return func(m *Model) { m.Database = name }
}

// IDField sets the identifier column.
func IDField(column string) ModelOption {
	return func(m *Model) { m.IDField = column }
}

// DisplayField sets the field used to display records of this model in lookups.
func DisplayField(name string) ModelOption {
	return func(m *Model) { m.DisplayField = name }
}

// DefaultSort sets the default listing order.
func DefaultSort(field string, direction Direction) ModelOption {
	return func(m *Model) { m.DefaultSort = &SortOption{Field: field, Direction: direction} }
}

// HasMany declares a has-many association.
func HasMany(name, model, foreignKey string) ModelOption {
	return func(m *Model) {
		m.Associations = append(m.Associations, Association{Name: name, Model: model, ForeignKey: foreignKey})
	}
}

// OverrideField modifies the metadata of a field after reflection.
func OverrideField(name string, opts ...func(*FieldSpec)) ModelOption {
	return func(m *Model) {
		for i := range m.Fields {
			if m.Fields[i].Name == name {
				for _, opt := range opts {
					opt(&m.Fields[i])
				}
				return
			}
		}
		panic("core: OverrideField: field not found: " + name)
	}
}

// ModelOf builds a Model by reflecting on the fields of struct T.
//
// The column comes from the `db` tag (the Go field name when absent). The
// `admin` tag holds the type followed by optional flags:
//
//	type Order struct {
//		ID         string    `db:"id" admin:"-"`
//		Status     string    `db:"status" admin:"text,index"`
//		CustomerID string    `db:"customer_id" admin:"lookup=Customer,index"`
//		Notes      string    `admin:"text_area,virtual"`
//	}
//
// Fields tagged `admin:"-"` are left out of the catalog.
func ModelOf[T any](name string, options ...ModelOption) (*Model, error) {
	var zero T
	structType := reflect.TypeOf(zero)
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("catalog: ModelOf needs a struct, got %s", structType.Kind())
	}

	model := &Model{Name: name}
	for _, sf := range reflect.VisibleFields(structType) {
		if sf.Anonymous || !sf.IsExported() {
			continue
		}
		adminTag := sf.Tag.Get("admin")
		if adminTag == "-" {
			continue
		}
		column := sf.Tag.Get("db")
		if column == "" || column == "-" {
			column = toSnake(sf.Name)
		}
		field := FieldSpec{Name: column, Column: column, Type: inferFieldType(sf.Type)}
		if adminTag != "" {
			partList := strings.Split(adminTag, ",")
			typeName, associated, _ := strings.Cut(partList[0], "=")
			if typeName != "" {
				field.Type = FieldType(typeName)
			}
			field.AssociatedModel = associated
			for _, flag := range partList[1:] {
				switch strings.TrimSpace(flag) {
				case "index":
					field.Index = true
				case "virtual":
					field.Virtual = true
				}
			}
		}
		model.Fields = append(model.Fields, field)
	}

	for _, option := range options {
		option(model)
	}
	if err := model.normalize(); err != nil {
		return nil, err
	}
	return model, nil
}
