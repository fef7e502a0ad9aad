package core

import (
	"fmt"
	"strings"
)

// ResolvedTarget is the outcome of resolving a field path against a root model.
type ResolvedTarget struct {
	Root  *Model    // the model being listed
	Model *Model    // the model that holds Field
	Field FieldSpec // the filtered field
	// JoinKey is the column on Model whose values are Root identifiers.
	// For paths without a dot it is Root's own identifier.
	JoinKey string
	// Display is set for lookup fields: the associated model's display field.
	Display *DisplayTarget
}

// DisplayTarget is the field used to match a lookup by text.
type DisplayTarget struct {
	Model *Model
	Field FieldSpec
}

// CrossCollection reports whether the target lives outside the root model.
func (t ResolvedTarget) CrossCollection() bool {
	return t.Model != t.Root
}

// Resolve resolves field or collection.field against root.
//
// A dotted path goes through the has-many association named collection;
// the association's foreign key becomes the join key.
func (c *Compiler) Resolve(root *Model, fieldPath string) (ResolvedTarget, error) {
	target := ResolvedTarget{Root: root, Model: root, JoinKey: root.IDField}

	fieldName := fieldPath
	if collection, rest, dotted := strings.Cut(fieldPath, "."); dotted {
		if strings.Contains(rest, ".") {
			return ResolvedTarget{}, fmt.Errorf("%w: %s.%s (only one level of association is supported)", ErrUnknownField, root.Name, fieldPath)
		}
		association, model, err := c.catalog.Association(root.Name, collection)
		if err != nil {
			return ResolvedTarget{}, err
		}
		target.Model = model
		target.JoinKey = association.ForeignKey
		fieldName = rest
	}

	field, err := persistedField(target.Model, fieldName)
	if err != nil {
		return ResolvedTarget{}, err
	}
	target.Field = field

	if field.Type == TypeLookup {
		display, err := c.displayTarget(field)
		if err != nil {
			return ResolvedTarget{}, err
		}
		target.Display = display
	}
	return target, nil
}

// displayTarget resolves the display field of the model a lookup points at.
func (c *Compiler) displayTarget(lookup FieldSpec) (*DisplayTarget, error) {
	model, err := c.catalog.Model(lookup.AssociatedModel)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s: %w", ErrUnknownField, lookup.Name, err)
	}
	if _, declared := model.Field(model.DisplayField); !declared && model.DisplayField == model.IDField {
		return &DisplayTarget{Model: model, Field: FieldSpec{Name: model.IDField, Column: model.IDField, Type: TypeText}}, nil
	}
	field, err := persistedField(model, model.DisplayField)
	if err != nil {
		return nil, err
	}
	return &DisplayTarget{Model: model, Field: field}, nil
}

func persistedField(model *Model, name string) (FieldSpec, error) {
	field, ok := model.Field(name)
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, model.Name, name)
	}
	if !field.Persisted() {
		return FieldSpec{}, fmt.Errorf("%w: %s.%s is not persisted", ErrUnknownField, model.Name, name)
	}
	return field, nil
}
