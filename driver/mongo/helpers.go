package mongo

import (
	"regexp"

	"github.com/leandroluk/golem-admin/core"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// containsRegex matches value anywhere in the field, ignoring case.
func containsRegex(value string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
}

// equalFoldRegex matches the whole field against value, ignoring case.
func equalFoldRegex(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

// holdsObjectIDs reports whether column stores document ids on model: the
// id column itself, _id, or a lookup column.
func holdsObjectIDs(model *core.Model, column string) bool {
	if model == nil {
		return column == "_id"
	}
	if column == "_id" || column == model.IDField {
		return true
	}
	for _, field := range model.Fields {
		if field.Column == column {
			return field.Type == core.TypeLookup
		}
	}
	return false
}

// toObjectID converts hex strings to ObjectIDs and leaves other values alone.
func toObjectID(value any) any {
	if hex, ok := value.(string); ok {
		if id, err := primitive.ObjectIDFromHex(hex); err == nil {
			return id
		}
	}
	return value
}
