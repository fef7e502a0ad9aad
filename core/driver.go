package core

import (
	"context"
	"fmt"
)

// Sort represents an ordering rule used in queries.
//
// FieldName specifies which column/field to sort by.
// Order determines the direction: 1 for ascending (ASC), -1 for descending (DESC).
type Sort struct {
	FieldName string
	Order     int // 1 = ASC, -1 = DESC
}

// Where encapsulates filtering and pagination options for queries.
//
// It contains:
//   - Condition: the root filter condition (composed of one or more *Condition).
//   - Limit: maximum number of results to return.
//   - Offset: number of rows to skip.
//   - Sort: list of Sort rules to apply.
type Where struct {
	Condition *Condition
	Limit     int
	Offset    int
	Sort      []Sort
}

// Changes represents a set of field updates, mapping column names to new values.
type Changes map[string]any

// Document is a single record as read from or written to a backend,
// keyed by column name.
type Document map[string]any

// Transaction defines the contract for database transaction management.
//
// Implementations must provide atomic commit and rollback semantics.
type Transaction interface {
	// Commit finalizes the transaction and makes all changes permanent.
	Commit(ctx context.Context) error
	// Rollback reverts the transaction, discarding all changes.
	Rollback(ctx context.Context) error
}

// Backend identifies the expression form a PredicateBuilder produces.
type Backend string

const (
	// BackendRelational renders parameterized SQL conditions.
	BackendRelational Backend = "relational"
	// BackendDocument renders structured filter documents.
	BackendDocument Backend = "document"
)

// Predicate is a backend-native filter fragment. Its String form is meant
// for logs and tests only.
type Predicate interface {
	fmt.Stringer
}

// PredicateBuilder renders backend-neutral conditions into backend-native
// predicates. One implementation exists per backend; the host picks one when
// it opens the driver.
type PredicateBuilder interface {
	// Backend reports which expression form BuildPredicate produces.
	Backend() Backend
	// BuildPredicate renders condition against model. Builders that resolve
	// subqueries eagerly may hit the backend and return its errors.
	BuildPredicate(ctx context.Context, model *Model, condition *Condition) (Predicate, error)
}

// Driver defines the contract for database backends.
//
// Each driver (PostgresDriver, MongoDriver) must implement this interface
// to render predicates, handle basic CRUD operations, transactions, and connectivity.
type Driver interface {
	PredicateBuilder

	// Connect establishes a new connection or validates connectivity.
	Connect(ctx context.Context) error
	// Ping checks if the underlying database is reachable.
	Ping(ctx context.Context) error
	// Close terminates the connection and releases resources.
	Close(ctx context.Context) error

	// Transaction starts a new database transaction.
	Transaction(ctx context.Context) (Transaction, error)

	// Insert persists one or more documents in the collection of model.
	Insert(ctx context.Context, model *Model, documents ...Document) error
	// FindOne retrieves a single document matching the given options, or nil.
	FindOne(ctx context.Context, model *Model, options *Where) (Document, error)
	// FindMany retrieves the documents matching the given options.
	FindMany(ctx context.Context, model *Model, options *Where) ([]Document, error)
	// Update modifies existing documents matching the condition.
	Update(ctx context.Context, model *Model, condition *Condition, changes Changes) error
	// Delete removes documents matching the condition.
	Delete(ctx context.Context, model *Model, condition *Condition) error
	// Count returns the number of documents matching the condition.
	Count(ctx context.Context, model *Model, condition *Condition) (int64, error)
}
