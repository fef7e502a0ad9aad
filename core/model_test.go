package core_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/leandroluk/golem-admin/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceCreate(t *testing.T) {
	t.Parallel()
	s := newShop(t)
	orders := core.NewResource(s.orders, s.driver, nil)

	document, err := orders.Create(context.Background(), core.Document{
		"status":      "new",
		"total":       "12.5",
		"paid":        "true",
		"placed_on":   "2024-02-01",
		"shipped_at":  "2024-02-02T08:30:00Z",
		"customer_id": "c1",
		"user_id":     nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "mem-1", document["id"])
	assert.Equal(t, 12.5, document["total"])
	assert.Equal(t, true, document["paid"])
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), document["placed_on"])
	assert.Equal(t, time.Date(2024, 2, 2, 8, 30, 0, 0, time.UTC), document["shipped_at"])
	assert.Nil(t, document["user_id"])
	assert.IsType(t, time.Time{}, document["created_at"])

	stored, err := orders.Find(context.Background(), "mem-1")
	require.NoError(t, err)
	assert.Equal(t, "new", stored["status"])

	document, err = orders.Create(context.Background(), core.Document{"id": "o-42", "total": 1.0})
	require.NoError(t, err)
	assert.Equal(t, "o-42", document["id"])
	assert.Len(t, s.driver.Documents(s.orders), 2)
}

func TestResourceCreateRejects(t *testing.T) {
	t.Parallel()
	s := newShop(t)
	orders := core.NewResource(s.orders, s.driver, nil)

	tests := []struct {
		name  string
		input core.Document
		want  error
	}{
		{"unknown field", core.Document{"colour": "red"}, core.ErrUnknownField},
		{"virtual field", core.Document{"summary": "x"}, core.ErrUnknownField},
		{"number from text", core.Document{"total": "abc"}, core.ErrInvalidValue},
		{"number from bool", core.Document{"total": true}, core.ErrInvalidValue},
		{"check box from number", core.Document{"paid": 1.0}, core.ErrInvalidValue},
		{"date from number", core.Document{"placed_on": 5.0}, core.ErrInvalidValue},
		{"unreadable date", core.Document{"placed_on": "someday"}, core.ErrInvalidValue},
		{"unreadable timestamp", core.Document{"shipped_at": "later"}, core.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orders.Create(context.Background(), tt.input)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, s.driver.Documents(s.orders))
}

func TestResourceUpdate(t *testing.T) {
	t.Parallel()
	s := newShop(t)
	s.seed()
	orders := core.NewResource(s.orders, s.driver, nil)

	document, err := orders.Update(context.Background(), "o1", core.Document{"status": "cancelled", "total": 11.0})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", document["status"])
	assert.Equal(t, 11.0, document["total"])

	other, err := orders.Find(context.Background(), "o2")
	require.NoError(t, err)
	assert.Equal(t, "paid", other["status"])

	_, err = orders.Update(context.Background(), "o9", core.Document{"status": "x"})
	require.ErrorIs(t, err, core.ErrNotFound)

	_, err = orders.Update(context.Background(), "o1", core.Document{"total": "many"})
	require.ErrorIs(t, err, core.ErrInvalidValue)
}

func TestResourceDestroy(t *testing.T) {
	t.Parallel()
	s := newShop(t)
	s.seed()
	orders := core.NewResource(s.orders, s.driver, nil)

	require.NoError(t, orders.Destroy(context.Background(), "o1"))
	_, err := orders.Find(context.Background(), "o1")
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.Len(t, s.driver.Documents(s.orders), 4)

	require.ErrorIs(t, orders.Destroy(context.Background(), "o1"), core.ErrNotFound)
	assert.Len(t, s.driver.Documents(s.orders), 4)
}

func TestResourceDestroyRollsBack(t *testing.T) {
	t.Parallel()
	s := newShop(t)
	s.seed()

	audit := errors.New("audit log unavailable")
	pipeline := &core.Pipeline{}
	pipeline.Use(func(next core.Handler) core.Handler {
		return func(ctx context.Context, op core.Operation, payload core.OperationPayload) error {
			if err := next(ctx, op, payload); err != nil {
				return err
			}
			if op == core.OperationDelete {
				return audit
			}
			return nil
		}
	})
	orders := core.NewResource(s.orders, s.driver, pipeline)

	require.ErrorIs(t, orders.Destroy(context.Background(), "o2"), audit)
	assert.Len(t, s.driver.Documents(s.orders), 5)
}

func TestPipelineOrder(t *testing.T) {
	t.Parallel()
	s := newShop(t)
	s.seed()

	var calls []string
	record := func(name string) core.Middleware {
		return func(next core.Handler) core.Handler {
			return func(ctx context.Context, op core.Operation, payload core.OperationPayload) error {
				calls = append(calls, name+" before "+string(op))
				err := next(ctx, op, payload)
				calls = append(calls, name+" after "+string(op))
				return err
			}
		}
	}
	pipeline := &core.Pipeline{}
	pipeline.Use(record("outer"))
	pipeline.Use(record("inner"))

	compiler := core.NewCompiler(s.catalog, s.driver, core.WithPipeline(pipeline))
	result, err := compiler.List(context.Background(), core.ListRequest{Model: "Customer"})
	require.NoError(t, err)
	_, err = result.Count(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"outer before count", "inner before count", "inner after count", "outer after count"}, calls)
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()
	s := newShop(t)
	s.seed()

	var buf bytes.Buffer
	pipeline := &core.Pipeline{}
	pipeline.Use(core.LoggingMiddleware(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	customers := core.NewResource(s.customers, s.driver, pipeline)

	_, err := customers.Find(context.Background(), "c1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=\"backend operation\"")
	assert.Contains(t, buf.String(), "op=find")
	assert.Contains(t, buf.String(), "model=Customer")

	buf.Reset()
	s.driver.Err = errors.New("timeout")
	_, err = customers.Find(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "error=timeout")
}

func TestTransactionContext(t *testing.T) {
	t.Parallel()
	s := newShop(t)

	assert.Nil(t, core.TransactionFrom(context.Background()))

	err := core.RunTransaction(context.Background(), s.driver, func(txCtx context.Context) error {
		assert.NotNil(t, core.TransactionFrom(txCtx))
		return nil
	})
	require.NoError(t, err)

	s.seed()
	orders := core.NewResource(s.orders, s.driver, nil)
	abort := errors.New("abort")
	err = core.RunTransaction(context.Background(), s.driver, func(txCtx context.Context) error {
		outer := core.TransactionFrom(txCtx)
		require.NoError(t, core.RunTransaction(txCtx, s.driver, func(innerCtx context.Context) error {
			assert.Same(t, outer, core.TransactionFrom(innerCtx))
			return nil
		}))
		require.NoError(t, orders.Destroy(txCtx, "o1"))
		require.NoError(t, orders.Destroy(txCtx, "o2"))
		return abort
	})
	require.ErrorIs(t, err, abort)
	assert.Len(t, s.driver.Documents(s.orders), 5)

	s.driver.Err = errors.New("no connection")
	err = core.RunTransaction(context.Background(), s.driver, func(context.Context) error {
		t.Fatal("callback must not run without a transaction")
		return nil
	})
	require.EqualError(t, err, "no connection")
}
