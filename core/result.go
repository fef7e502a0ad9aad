package core

import (
	"context"
	"fmt"
	"math"
)

// ResultSet is a lazily evaluated handle over a filtered, sorted listing.
// Nothing reaches the backend until one of its reading methods is called, and
// every call runs the query again.
type ResultSet struct {
	driver   Driver
	pipeline *Pipeline
	query    *Query
}

func newResultSet(driver Driver, pipeline *Pipeline, query *Query) *ResultSet {
	return &ResultSet{driver: driver, pipeline: pipeline, query: query}
}

// Page is one page of a listing.
type Page struct {
	Documents []Document
	Number    int
	PerPage   int
	Total     int64
}

// TotalPages returns the number of pages of the listing.
func (p Page) TotalPages() int {
	if p.PerPage <= 0 {
		return 1
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

// Model returns the root model of the listing.
func (r *ResultSet) Model() *Model {
	return r.query.Model()
}

// Query returns the scope behind the result set.
func (r *ResultSet) Query() *Query {
	return r.query
}

// Predicate renders the listing condition in the backend's native form.
func (r *ResultSet) Predicate(ctx context.Context) (Predicate, error) {
	return r.driver.BuildPredicate(ctx, r.Model(), r.query.Condition())
}

// All fetches every matching document in order.
func (r *ResultSet) All(ctx context.Context) ([]Document, error) {
	return r.find(ctx, r.query.Options())
}

// First fetches the first matching document, or nil.
func (r *ResultSet) First(ctx context.Context) (Document, error) {
	options := r.query.Options()
	var document Document
	err := r.pipeline.dispatch(ctx, OperationFind, OperationPayload{Model: r.Model(), Where: options}, func() error {
		var err error
		document, err = r.driver.FindOne(ctx, r.Model(), options)
		return err
	})
	return document, err
}

// Count returns the number of matching documents.
func (r *ResultSet) Count(ctx context.Context) (int64, error) {
	condition := r.query.Condition()
	var count int64
	err := r.pipeline.dispatch(ctx, OperationCount, OperationPayload{Model: r.Model(), Condition: condition}, func() error {
		var err error
		count, err = r.driver.Count(ctx, r.Model(), condition)
		return err
	})
	return count, err
}

// Page fetches page number (1-based) of perPage documents with the total count.
// Numbers past the last representable offset are clamped to it.
func (r *ResultSet) Page(ctx context.Context, number, perPage int) (Page, error) {
	if number < 1 {
		number = 1
	}
	if perPage < 1 {
		return Page{}, fmt.Errorf("page size must be positive, got %d", perPage)
	}
	if maxNumber := math.MaxInt / perPage; number > maxNumber {
		number = maxNumber
	}
	total, err := r.Count(ctx)
	if err != nil {
		return Page{}, err
	}
	documents, err := r.find(ctx, r.query.Offset((number-1)*perPage).Limit(perPage).Options())
	if err != nil {
		return Page{}, err
	}
	return Page{Documents: documents, Number: number, PerPage: perPage, Total: total}, nil
}

func (r *ResultSet) find(ctx context.Context, options *Where) ([]Document, error) {
	var documents []Document
	err := r.pipeline.dispatch(ctx, OperationFind, OperationPayload{Model: r.Model(), Where: options}, func() error {
		var err error
		documents, err = r.driver.FindMany(ctx, r.Model(), options)
		return err
	})
	return documents, err
}
