package core

import "errors"

var (
	// ErrUnknownModel is returned when a model name is absent from the catalog.
	ErrUnknownModel = errors.New("unknown model")
	// ErrUnknownField is returned when a field path names a field absent from
	// (or not persisted in) the target model.
	ErrUnknownField = errors.New("unknown field")
	// ErrAssociationNotFound is returned when a dotted field path names a
	// has-many association the root model does not declare.
	ErrAssociationNotFound = errors.New("association not found")
	// ErrOperatorNotSupported is returned when an operator is not defined for
	// the resolved field's type.
	ErrOperatorNotSupported = errors.New("operator not supported")
	// ErrGeocode is returned when a geopicker value cannot be turned into coordinates.
	ErrGeocode = errors.New("geocode failed")
	// ErrPlaceNotFound is wrapped by geocoders when a place name matches nothing.
	ErrPlaceNotFound = errors.New("place not found")
	// ErrInvalidSort is returned for an unknown sort direction.
	ErrInvalidSort = errors.New("invalid sort")
	// ErrInvalidValue is returned when a submitted value does not fit its field type.
	ErrInvalidValue = errors.New("invalid value")
	// ErrNotFound is returned when a record addressed by id does not exist.
	ErrNotFound = errors.New("record not found")
)

// IsClientError reports whether err was caused by the request itself
// (bad field path, operator, value, sort or place) rather than by the backend
// or the geocoder.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrAssociationNotFound) ||
		errors.Is(err, ErrOperatorNotSupported) ||
		errors.Is(err, ErrInvalidSort) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrPlaceNotFound)
}
