// Package coretest provides an in-memory core.Driver for tests.
//
// The driver evaluates condition trees directly over seeded documents,
// including membership subqueries, so listings can be checked end to end
// without a database.
package coretest

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/leandroluk/golem-admin/core"
)

// BackendMemory identifies predicates built by this driver.
const BackendMemory core.Backend = "memory"

// Predicate wraps the condition evaluated in memory.
type Predicate struct {
	Condition *core.Condition
}

func (p Predicate) String() string {
	return render(p.Condition)
}

// Driver is an in-memory core.Driver. It is safe for concurrent use.
type Driver struct {
	mu          sync.Mutex
	collections map[string][]core.Document
	nextID      int
	reads       int
	// Err, when set, is returned by every read and write.
	Err error
}

var _ core.Driver = (*Driver)(nil)

// NewDriver returns an empty driver.
func NewDriver() *Driver {
	return &Driver{collections: make(map[string][]core.Document)}
}

func collectionKey(model *core.Model) string {
	if model.Database != "" {
		return model.Database + "." + model.Collection
	}
	return model.Collection
}

// Seed stores documents for model as they are, ids included.
func (d *Driver) Seed(model *core.Model, documents ...core.Document) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := collectionKey(model)
	for _, document := range documents {
		d.collections[key] = append(d.collections[key], maps.Clone(document))
	}
}

// Documents returns copies of every stored document of model.
func (d *Driver) Documents(model *core.Model) []core.Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneAll(d.collections[collectionKey(model)])
}

// Reads returns how many find and count calls reached the driver.
func (d *Driver) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

func (d *Driver) Backend() core.Backend {
	return BackendMemory
}

func (d *Driver) BuildPredicate(_ context.Context, _ *core.Model, condition *core.Condition) (core.Predicate, error) {
	return Predicate{Condition: condition}, nil
}

func (d *Driver) Connect(context.Context) error { return nil }

func (d *Driver) Ping(context.Context) error { return d.Err }

func (d *Driver) Close(context.Context) error { return nil }

// Transaction snapshots every collection; Rollback restores the snapshot.
func (d *Driver) Transaction(context.Context) (core.Transaction, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	snapshot := make(map[string][]core.Document, len(d.collections))
	for key, documents := range d.collections {
		snapshot[key] = cloneAll(documents)
	}
	return &transaction{driver: d, snapshot: snapshot}, nil
}

func (d *Driver) Insert(_ context.Context, model *core.Model, documents ...core.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	key := collectionKey(model)
	for _, document := range documents {
		if _, ok := document[model.IDField]; !ok {
			d.nextID++
			document[model.IDField] = "mem-" + strconv.Itoa(d.nextID)
		}
		d.collections[key] = append(d.collections[key], maps.Clone(document))
	}
	return nil
}

func (d *Driver) FindOne(ctx context.Context, model *core.Model, options *core.Where) (core.Document, error) {
	single := core.Where{Limit: 1}
	if options != nil {
		single = *options
		single.Limit = 1
	}
	documents, err := d.FindMany(ctx, model, &single)
	if err != nil || len(documents) == 0 {
		return nil, err
	}
	return documents[0], nil
}

func (d *Driver) FindMany(_ context.Context, model *core.Model, options *core.Where) ([]core.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.Err != nil {
		return nil, d.Err
	}
	if options == nil {
		options = &core.Where{}
	}
	matched, err := d.filter(model, options.Condition)
	if err != nil {
		return nil, err
	}
	sortDocuments(matched, options.Sort)

	if options.Offset > 0 {
		if options.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[options.Offset:]
		}
	}
	if options.Limit > 0 && len(matched) > options.Limit {
		matched = matched[:options.Limit]
	}
	return cloneAll(matched), nil
}

func (d *Driver) Update(_ context.Context, model *core.Model, condition *core.Condition, changes core.Changes) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	matched, err := d.filter(model, condition)
	if err != nil {
		return err
	}
	for _, document := range matched {
		maps.Copy(document, changes)
	}
	return nil
}

func (d *Driver) Delete(_ context.Context, model *core.Model, condition *core.Condition) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return d.Err
	}
	key := collectionKey(model)
	m := matcher{driver: d}
	kept := d.collections[key][:0]
	for _, document := range d.collections[key] {
		ok, err := m.match(document, condition)
		if err != nil {
			return err
		}
		if !ok {
			kept = append(kept, document)
		}
	}
	d.collections[key] = kept
	return nil
}

func (d *Driver) Count(_ context.Context, model *core.Model, condition *core.Condition) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.Err != nil {
		return 0, d.Err
	}
	matched, err := d.filter(model, condition)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// filter returns the stored documents matching condition, in insertion order.
// The caller must hold d.mu.
func (d *Driver) filter(model *core.Model, condition *core.Condition) ([]core.Document, error) {
	m := matcher{driver: d}
	var matched []core.Document
	for _, document := range d.collections[collectionKey(model)] {
		ok, err := m.match(document, condition)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, document)
		}
	}
	return matched, nil
}

func sortDocuments(documents []core.Document, sortList []core.Sort) {
	if len(sortList) == 0 {
		return
	}
	sort.SliceStable(documents, func(i, j int) bool {
		for _, rule := range sortList {
			a, b := documents[i][rule.FieldName], documents[j][rule.FieldName]
			c, ok := compare(a, b)
			if !ok {
				c = compareNil(a, b)
			}
			if c != 0 {
				return c*rule.Order < 0
			}
		}
		return false
	})
}

// compareNil orders nil values first and treats other incomparable values as equal.
func compareNil(a, b any) int {
	switch {
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	}
	return 0
}

func cloneAll(documents []core.Document) []core.Document {
	if documents == nil {
		return nil
	}
	out := make([]core.Document, 0, len(documents))
	for _, document := range documents {
		out = append(out, maps.Clone(document))
	}
	return out
}

type transaction struct {
	driver   *Driver
	snapshot map[string][]core.Document
}

func (t *transaction) Commit(context.Context) error {
	return nil
}

func (t *transaction) Rollback(context.Context) error {
	t.driver.mu.Lock()
	defer t.driver.mu.Unlock()
	t.driver.collections = t.snapshot
	return nil
}

// render prints a condition tree in a compact prefix form, e.g.
// AND(IN_SET(id, orders.user_id, CONTAINS(status, pend)), EQ(active, true)).
func render(condition *core.Condition) string {
	if condition == nil || condition.Operator == nil {
		return "TRUE"
	}
	if condition.IsLogical() {
		partList := make([]string, 0, len(condition.Children))
		for _, child := range condition.Children {
			partList = append(partList, render(child))
		}
		return fmt.Sprintf("%s(%s)", *condition.Operator, strings.Join(partList, ", "))
	}
	if *condition.Operator == core.OpInSet && condition.Subquery != nil {
		return fmt.Sprintf("IN_SET(%s, %s.%s, %s)", condition.FieldName,
			condition.Subquery.Model.Collection, condition.Subquery.Key, render(condition.Subquery.Condition))
	}
	return fmt.Sprintf("%s(%s, %v)", *condition.Operator, condition.FieldName, condition.Value)
}
