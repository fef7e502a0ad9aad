package core

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Catalog is the registry of admin models. It is built once at startup and
// read concurrently afterwards; it is never mutated while serving requests.
type Catalog struct {
	modelList   []*Model
	modelByName map[string]*Model
}

// NewCatalog registers the given models and validates cross-model references.
func NewCatalog(models ...*Model) (*Catalog, error) {
	catalog := &Catalog{modelByName: make(map[string]*Model, len(models))}
	for _, model := range models {
		if err := catalog.add(model); err != nil {
			return nil, err
		}
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Catalog) add(model *Model) error {
	if model == nil {
		return fmt.Errorf("catalog: nil model")
	}
	if err := model.normalize(); err != nil {
		return err
	}
	if _, exists := c.modelByName[model.Name]; exists {
		return fmt.Errorf("catalog: model %s registered twice", model.Name)
	}
	c.modelByName[model.Name] = model
	c.modelList = append(c.modelList, model)
	return nil
}

// Validate checks that lookups and associations point at registered models
// and that display fields exist.
func (c *Catalog) Validate() error {
	for _, model := range c.modelList {
		if model.DisplayField != model.IDField {
			if _, ok := model.Field(model.DisplayField); !ok {
				return fmt.Errorf("catalog: model %s display field %s is not declared", model.Name, model.DisplayField)
			}
		}
		for _, field := range model.Fields {
			if field.Type != TypeLookup {
				continue
			}
			if _, ok := c.modelByName[field.AssociatedModel]; !ok {
				return fmt.Errorf("catalog: lookup %s.%s points at unknown model %s", model.Name, field.Name, field.AssociatedModel)
			}
		}
		for _, association := range model.Associations {
			if association.Name == "" || association.ForeignKey == "" {
				return fmt.Errorf("catalog: model %s has an incomplete has_many entry", model.Name)
			}
			if _, ok := c.modelByName[association.Model]; !ok {
				return fmt.Errorf("catalog: association %s.%s points at unknown model %s", model.Name, association.Name, association.Model)
			}
		}
		if model.DefaultSort != nil && !model.HasPersistedField(model.DefaultSort.Field) && model.DefaultSort.Field != model.IDField {
			return fmt.Errorf("catalog: model %s default sort field %s is not persisted", model.Name, model.DefaultSort.Field)
		}
	}
	return nil
}

// Model returns a registered model by name.
func (c *Catalog) Model(name string) (*Model, error) {
	model, ok := c.modelByName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return model, nil
}

// Models returns the registered models sorted by name.
func (c *Catalog) Models() []*Model {
	out := make([]*Model, len(c.modelList))
	copy(out, c.modelList)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Field is the field catalog lookup: the FieldSpec of field on model.
func (c *Catalog) Field(model, field string) (FieldSpec, error) {
	m, err := c.Model(model)
	if err != nil {
		return FieldSpec{}, err
	}
	spec, ok := m.Field(field)
	if !ok {
		return FieldSpec{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, model, field)
	}
	return spec, nil
}

// Association is the association metadata lookup: the has-many association
// named name on model, with the collection model it points at.
func (c *Catalog) Association(model, name string) (Association, *Model, error) {
	m, err := c.Model(model)
	if err != nil {
		return Association{}, nil, err
	}
	association, ok := m.Association(name)
	if !ok {
		return Association{}, nil, fmt.Errorf("%w: %s.%s", ErrAssociationNotFound, model, name)
	}
	target, err := c.Model(association.Model)
	if err != nil {
		return Association{}, nil, err
	}
	return association, target, nil
}

type catalogFile struct {
	Models []*Model `yaml:"models"`
}

// LoadCatalog decodes a YAML catalog:
//
//	models:
//	  - name: Customer
//	    fields:
//	      - {name: name, type: text, index: true}
//	    has_many:
//	      - {name: orders, model: Order, foreign_key: customer_id}
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return NewCatalog(file.Models...)
}

// LoadCatalogFile opens and decodes a YAML catalog file.
func LoadCatalogFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer file.Close()
	return LoadCatalog(file)
}
