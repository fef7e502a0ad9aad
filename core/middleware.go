// Package core provides the building blocks of the golem-admin back-office.
// This file defines the middleware pipeline, which allows cross-cutting
// concerns (logging, metrics) to be applied to backend operations.
package core

import (
	"context"
	"log/slog"
	"time"
)

// Operation represents the type of backend operation being executed.
type Operation string

const (
	// OperationInsert corresponds to an insert (create) operation.
	OperationInsert Operation = "insert"
	// OperationUpdate corresponds to an update operation.
	OperationUpdate Operation = "update"
	// OperationDelete corresponds to a delete operation.
	OperationDelete Operation = "delete"
	// OperationFind corresponds to a query (find) operation.
	OperationFind Operation = "find"
	// OperationCount corresponds to a count operation.
	OperationCount Operation = "count"
)

// OperationPayload describes the operation passed through the pipeline.
type OperationPayload struct {
	Model     *Model
	Where     *Where
	Condition *Condition
}

// Handler is the function signature executed by the pipeline.
type Handler func(ctx context.Context, op Operation, payload OperationPayload) error

// Middleware is a function that wraps a Handler with additional logic.
// Middlewares follow the decorator pattern.
type Middleware func(next Handler) Handler

// Pipeline is an ordered middleware chain. It is assembled at startup and
// only read afterwards.
type Pipeline struct {
	middlewareList []Middleware
}

// Use appends a middleware to the chain. The first registered middleware is
// the outermost one.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewareList = append(p.middlewareList, mw)
}

// dispatch executes an operation through the middleware chain.
//
// The exec function contains the core logic of the operation and is wrapped
// by the registered middlewares.
func (p *Pipeline) dispatch(ctx context.Context, op Operation, payload OperationPayload, exec func() error) error {
	handler := Handler(func(ctx context.Context, op Operation, payload OperationPayload) error {
		return exec()
	})
	if p != nil {
		for i := len(p.middlewareList) - 1; i >= 0; i-- {
			handler = p.middlewareList[i](handler)
		}
	}
	return handler(ctx, op, payload)
}

// LoggingMiddleware logs every operation with its duration. Failures are
// logged at error level, successes at debug level.
//
// Example:
//
//	pipeline.Use(core.LoggingMiddleware(slog.Default()))
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, op Operation, payload OperationPayload) error {
			start := time.Now()
			err := next(ctx, op, payload)
			attrList := []any{
				slog.String("op", string(op)),
				slog.Duration("took", time.Since(start)),
			}
			if payload.Model != nil {
				attrList = append(attrList, slog.String("model", payload.Model.Name))
			}
			if err != nil {
				logger.ErrorContext(ctx, "backend operation failed", append(attrList, slog.Any("error", err))...)
				return err
			}
			logger.DebugContext(ctx, "backend operation", attrList...)
			return nil
		}
	}
}
