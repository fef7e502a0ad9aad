// Package core provides the building blocks of the golem-admin back-office.
// This file defines Resource, the create/read/update/delete entry point for
// one catalog model.
package core

import (
	"context"
	"fmt"
	"time"
)

// Resource is a repository-like abstraction over one catalog model.
//
// It wraps a Model and a Driver, exposing Find, Create, Update and Destroy
// on map-based documents. Input documents are keyed by field name and are
// checked against the catalog before reaching the driver.
type Resource struct {
	model    *Model
	driver   Driver
	pipeline *Pipeline
	now      func() time.Time
}

// NewResource creates a Resource bound to a model and driver.
//
// Example:
//
//	orders := core.NewResource(orderModel, postgresDriver, pipeline)
func NewResource(model *Model, driver Driver, pipeline *Pipeline) *Resource {
	if pipeline == nil {
		pipeline = &Pipeline{}
	}
	return &Resource{model: model, driver: driver, pipeline: pipeline, now: time.Now}
}

// Model returns the resource's model.
func (r *Resource) Model() *Model {
	return r.model
}

func (r *Resource) byID(id any) *Condition {
	return Field(r.model.IDField).Eq(id)
}

// Find retrieves one document by identifier. It returns ErrNotFound when
// no document matches.
func (r *Resource) Find(ctx context.Context, id string) (Document, error) {
	where := &Where{Condition: r.byID(id)}
	var document Document
	err := r.pipeline.dispatch(ctx, OperationFind, OperationPayload{Model: r.model, Where: where}, func() error {
		var err error
		document, err = r.driver.FindOne(ctx, r.model, where)
		return err
	})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, r.model.Name, id)
	}
	return document, nil
}

// Create inserts a new document.
//
// It sets the created-at and updated-at fields (if the model has them) and
// returns the stored document, including the identifier the driver assigned.
func (r *Resource) Create(ctx context.Context, input Document) (Document, error) {
	document, err := r.permitted(input)
	if err != nil {
		return nil, err
	}
	if id, ok := input[r.model.IDField]; ok {
		document[r.model.IDField] = id
	}
	now := r.now().UTC()
	if r.model.CreatedAtField != "" {
		document[r.model.Column(r.model.CreatedAtField)] = now
	}
	if r.model.UpdatedAtField != "" {
		document[r.model.Column(r.model.UpdatedAtField)] = now
	}

	err = r.pipeline.dispatch(ctx, OperationInsert, OperationPayload{Model: r.model}, func() error {
		return r.driver.Insert(ctx, r.model, document)
	})
	if err != nil {
		return nil, err
	}
	return document, nil
}

// Update applies the permitted fields of input to the document with the
// given identifier and returns the updated document.
func (r *Resource) Update(ctx context.Context, id string, input Document) (Document, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}
	document, err := r.permitted(input)
	if err != nil {
		return nil, err
	}
	changes := Changes(document)
	if r.model.UpdatedAtField != "" {
		changes[r.model.Column(r.model.UpdatedAtField)] = r.now().UTC()
	}
	if len(changes) > 0 {
		condition := r.byID(id)
		err = r.pipeline.dispatch(ctx, OperationUpdate, OperationPayload{Model: r.model, Condition: condition}, func() error {
			return r.driver.Update(ctx, r.model, condition, changes)
		})
		if err != nil {
			return nil, err
		}
	}
	return r.Find(ctx, id)
}

// Destroy removes the document with the given identifier. The existence
// check and the delete run in one transaction.
func (r *Resource) Destroy(ctx context.Context, id string) error {
	return RunTransaction(ctx, r.driver, func(txCtx context.Context) error {
		if _, err := r.Find(txCtx, id); err != nil {
			return err
		}
		condition := r.byID(id)
		return r.pipeline.dispatch(txCtx, OperationDelete, OperationPayload{Model: r.model, Condition: condition}, func() error {
			return r.driver.Delete(txCtx, r.model, condition)
		})
	})
}

// permitted maps input field names onto columns and coerces values to the
// field types. Unknown and virtual fields are rejected.
func (r *Resource) permitted(input Document) (Document, error) {
	document := make(Document, len(input))
	for name, value := range input {
		if name == r.model.IDField {
			continue
		}
		field, err := persistedField(r.model, name)
		if err != nil {
			return nil, err
		}
		coerced, err := coerceInput(field, value)
		if err != nil {
			return nil, err
		}
		document[field.Column] = coerced
	}
	return document, nil
}

// coerceInput converts a decoded JSON value to the Go type the backends
// expect for the field.
func coerceInput(field FieldSpec, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	raw, isString := value.(string)
	switch field.Type.Kind() {
	case KindNumber:
		if isString {
			number, ok := parseNumber(raw)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not a number", ErrInvalidValue, field.Name)
			}
			return number, nil
		}
		if _, ok := value.(float64); !ok {
			return nil, fmt.Errorf("%w: %s is not a number", ErrInvalidValue, field.Name)
		}
	case KindCheckBox:
		if isString {
			return parseCheckBox(raw), nil
		}
		if _, ok := value.(bool); !ok {
			return nil, fmt.Errorf("%w: %s is not a boolean", ErrInvalidValue, field.Name)
		}
	case KindDate:
		if !isString {
			return nil, fmt.Errorf("%w: %s is not a date", ErrInvalidValue, field.Name)
		}
		date, ok := parseDate(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a date", ErrInvalidValue, field.Name)
		}
		return date, nil
	case KindDatetime:
		if !isString {
			return nil, fmt.Errorf("%w: %s is not a timestamp", ErrInvalidValue, field.Name)
		}
		timestamp, ok := parseDatetime(raw, time.UTC)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a timestamp", ErrInvalidValue, field.Name)
		}
		return timestamp, nil
	}
	return value, nil
}
