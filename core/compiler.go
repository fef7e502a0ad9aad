package core

import (
	"context"
	"log/slog"
)

// Geocoder turns a free-form place name into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (longitude, latitude float64, err error)
}

// ClauseOutcome classifies what became of one filter clause.
type ClauseOutcome string

const (
	ClauseApplied  ClauseOutcome = "applied"
	ClauseDropped  ClauseOutcome = "dropped"
	ClauseRejected ClauseOutcome = "rejected"
)

// Compiler turns listing requests into filtered, sorted result sets.
//
// It holds only configuration; every call builds its conditions from scratch,
// so one Compiler serves concurrent requests without locking.
type Compiler struct {
	catalog  *Catalog
	driver   Driver
	geocoder Geocoder
	pipeline *Pipeline
	logger   *slog.Logger
	observe  func(ClauseOutcome)
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithGeocoder sets the geocoder used by geopicker filters. Without one,
// geopicker filters fail with ErrGeocode.
func WithGeocoder(geocoder Geocoder) CompilerOption {
	return func(c *Compiler) { c.geocoder = geocoder }
}

// WithPipeline routes result set executions through the given middleware pipeline.
func WithPipeline(pipeline *Pipeline) CompilerOption {
	return func(c *Compiler) { c.pipeline = pipeline }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CompilerOption {
	return func(c *Compiler) { c.logger = logger }
}

// WithClauseObserver registers a callback invoked once per compiled clause.
func WithClauseObserver(observe func(ClauseOutcome)) CompilerOption {
	return func(c *Compiler) { c.observe = observe }
}

// NewCompiler creates a Compiler over a catalog and the driver of the
// selected backend.
func NewCompiler(catalog *Catalog, driver Driver, options ...CompilerOption) *Compiler {
	compiler := &Compiler{
		catalog:  catalog,
		driver:   driver,
		pipeline: &Pipeline{},
		logger:   slog.Default(),
		observe:  func(ClauseOutcome) {},
	}
	for _, option := range options {
		option(compiler)
	}
	return compiler
}

// Catalog returns the compiler's catalog.
func (c *Compiler) Catalog() *Catalog {
	return c.catalog
}

// Driver returns the compiler's driver.
func (c *Compiler) Driver() Driver {
	return c.driver
}
