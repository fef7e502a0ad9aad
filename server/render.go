package server

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/leandroluk/golem-admin/core"
)

// plainValue converts backend-specific values into JSON and CSV friendly ones.
func plainValue(value any) any {
	switch v := value.(type) {
	case interface{ Hex() string }:
		return v.Hex()
	case [16]byte:
		return uuid.UUID(v).String()
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	}
	return value
}

func plainDocument(document core.Document) map[string]any {
	out := make(map[string]any, len(document))
	for key, value := range document {
		out[key] = plainValue(value)
	}
	return out
}

// displayText is how a record is shown in lookups and exports.
func displayText(model *core.Model, document core.Document) string {
	id := plainValue(document[model.IDField])
	return fmt.Sprintf("%v (id:%v)", plainValue(document[model.Column(model.DisplayField)]), id)
}

// lookupDisplays resolves lookup ids to display texts, fetching each
// associated record once per export.
type lookupDisplays struct {
	compiler *core.Compiler
	pipeline *core.Pipeline
	textByID map[string]string
}

func (l *lookupDisplays) text(ctx context.Context, field core.FieldSpec, id any) (string, error) {
	key := fmt.Sprintf("%s/%v", field.AssociatedModel, plainValue(id))
	if text, ok := l.textByID[key]; ok {
		return text, nil
	}
	model, err := l.compiler.Catalog().Model(field.AssociatedModel)
	if err != nil {
		return "", err
	}
	document, err := core.NewResource(model, l.compiler.Driver(), l.pipeline).Find(ctx, fmt.Sprint(plainValue(id)))
	if err != nil {
		return "", err
	}
	text := displayText(model, document)
	l.textByID[key] = text
	return text, nil
}

// writeCSV writes the index fields of model, one row per document.
func (s *Server) writeCSV(ctx context.Context, w io.Writer, model *core.Model, documents []core.Document) error {
	fieldList := model.IndexFields()
	writer := csv.NewWriter(w)

	header := make([]string, 0, len(fieldList))
	for _, field := range fieldList {
		header = append(header, field.Name)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	displays := &lookupDisplays{compiler: s.compiler, pipeline: s.pipeline, textByID: make(map[string]string)}
	for _, document := range documents {
		row := make([]string, 0, len(fieldList))
		for _, field := range fieldList {
			value := document[field.Column]
			switch {
			case value == nil:
				row = append(row, "")
			case field.Type == core.TypeLookup:
				text, err := displays.text(ctx, field, value)
				if err != nil {
					return err
				}
				row = append(row, text)
			default:
				row = append(row, fmt.Sprint(plainValue(value)))
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
