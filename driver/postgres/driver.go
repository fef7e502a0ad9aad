// Package postgres implements core.Driver on PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leandroluk/golem-admin/core"
)

// Config holds the pool settings of a PostgresDriver.
type Config struct {
	URL string
	// SearchPath sets the search_path of every pooled connection when non-empty.
	SearchPath string
	MaxConns   int32
}

//region PostgresDriver

type PostgresDriver struct {
	pool *pgxpool.Pool
}

var _ core.Driver = (*PostgresDriver)(nil)

func NewPostgresDriver(ctx context.Context, config Config) (*PostgresDriver, error) {
	poolConfig, err := pgxpool.ParseConfig(config.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.SearchPath != "" {
		poolConfig.ConnConfig.RuntimeParams["search_path"] = config.SearchPath
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	return &PostgresDriver{pool: pool}, nil
}

func (driver *PostgresDriver) exec(ctx context.Context, sqlQuery string, args ...any) error {
	_, err := driver.conn(ctx).Exec(ctx, sqlQuery, args...)
	return err
}

func (driver *PostgresDriver) query(ctx context.Context, sqlQuery string, args ...any) (pgx.Rows, error) {
	return driver.conn(ctx).Query(ctx, sqlQuery, args...)
}

func (driver *PostgresDriver) queryRow(ctx context.Context, sqlQuery string, args ...any) pgx.Row {
	return driver.conn(ctx).QueryRow(ctx, sqlQuery, args...)
}

// buildSelect renders the full SELECT statement for options.
func buildSelect(model *core.Model, options *core.Where, single bool) (string, []any, error) {
	if options == nil {
		options = &core.Where{}
	}
	builder := &conditionBuilder{}
	whereClause, err := builder.build(options.Condition)
	if err != nil {
		return "", nil, err
	}

	sqlQuery := fmt.Sprintf("SELECT * FROM %s WHERE %s", formatTable(model), whereClause)
	if len(options.Sort) > 0 {
		orderPartList := make([]string, 0, len(options.Sort))
		for _, sortItem := range options.Sort {
			direction := "ASC"
			if sortItem.Order < 0 {
				direction = "DESC"
			}
			orderPartList = append(orderPartList, quoteIdentifier(sortItem.FieldName)+" "+direction)
		}
		sqlQuery += " ORDER BY " + strings.Join(orderPartList, ", ")
	}
	if single {
		sqlQuery += " LIMIT 1"
	} else {
		if options.Limit > 0 {
			sqlQuery += fmt.Sprintf(" LIMIT %d", options.Limit)
		}
		if options.Offset > 0 {
			sqlQuery += fmt.Sprintf(" OFFSET %d", options.Offset)
		}
	}
	return sqlQuery, builder.argList, nil
}

func (driver *PostgresDriver) find(ctx context.Context, model *core.Model, options *core.Where, single bool) ([]core.Document, error) {
	sqlQuery, argList, err := buildSelect(model, options, single)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", model.Name, err)
	}
	rowList, err := driver.query(ctx, sqlQuery, argList...)
	if err != nil {
		return nil, err
	}
	mapList, err := pgx.CollectRows(rowList, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	documentList := make([]core.Document, 0, len(mapList))
	for _, row := range mapList {
		documentList = append(documentList, core.Document(row))
	}
	return documentList, nil
}

func (driver *PostgresDriver) Connect(ctx context.Context) error {
	return driver.pool.Ping(ctx)
}

func (driver *PostgresDriver) Ping(ctx context.Context) error {
	return driver.pool.Ping(ctx)
}

func (driver *PostgresDriver) Close(ctx context.Context) error {
	driver.pool.Close()
	return nil
}

func (driver *PostgresDriver) Transaction(ctx context.Context) (core.Transaction, error) {
	tx, err := driver.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &postgresTransaction{tx: tx}, nil
}

// buildInsert renders an INSERT for one document. Columns are sorted so the
// statement text is stable. The id column is returned so database defaults
// (serial, uuid) flow back into the document.
func buildInsert(model *core.Model, document core.Document) (string, []any) {
	columnList := make([]string, 0, len(document))
	for column := range document {
		columnList = append(columnList, column)
	}
	sort.Strings(columnList)

	quotedList := make([]string, 0, len(columnList))
	placeholderList := make([]string, 0, len(columnList))
	valueList := make([]any, 0, len(columnList))
	for i, column := range columnList {
		quotedList = append(quotedList, quoteIdentifier(column))
		placeholderList = append(placeholderList, fmt.Sprintf("$%d", i+1))
		valueList = append(valueList, document[column])
	}

	idColumn := quoteIdentifier(model.IDField)
	if len(columnList) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", formatTable(model), idColumn), nil
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		formatTable(model), strings.Join(quotedList, ", "), strings.Join(placeholderList, ", "), idColumn), valueList
}

func (driver *PostgresDriver) Insert(ctx context.Context, model *core.Model, documents ...core.Document) error {
	for _, document := range documents {
		sqlQuery, valueList := buildInsert(model, document)
		var id any
		if err := driver.queryRow(ctx, sqlQuery, valueList...).Scan(&id); err != nil {
			return err
		}
		document[model.IDField] = id
	}
	return nil
}

func (driver *PostgresDriver) FindOne(ctx context.Context, model *core.Model, options *core.Where) (core.Document, error) {
	documentList, err := driver.find(ctx, model, options, true)
	if err != nil {
		return nil, err
	}
	if len(documentList) == 0 {
		return nil, nil
	}
	return documentList[0], nil
}

func (driver *PostgresDriver) FindMany(ctx context.Context, model *core.Model, options *core.Where) ([]core.Document, error) {
	return driver.find(ctx, model, options, false)
}

// buildUpdate binds the SET values first and the condition after them.
func buildUpdate(model *core.Model, condition *core.Condition, changes core.Changes) (string, []any, error) {
	columnList := make([]string, 0, len(changes))
	for column := range changes {
		columnList = append(columnList, column)
	}
	sort.Strings(columnList)

	builder := &conditionBuilder{}
	setPartList := make([]string, 0, len(columnList))
	for _, column := range columnList {
		setPartList = append(setPartList, quoteIdentifier(column)+" = "+builder.bind(changes[column]))
	}
	whereClause, err := builder.build(condition)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		formatTable(model), strings.Join(setPartList, ", "), whereClause), builder.argList, nil
}

func (driver *PostgresDriver) Update(ctx context.Context, model *core.Model, condition *core.Condition, changes core.Changes) error {
	if len(changes) == 0 {
		return nil
	}
	sqlQuery, argList, err := buildUpdate(model, condition, changes)
	if err != nil {
		return fmt.Errorf("postgres: %s: %w", model.Name, err)
	}
	return driver.exec(ctx, sqlQuery, argList...)
}

func (driver *PostgresDriver) Delete(ctx context.Context, model *core.Model, condition *core.Condition) error {
	builder := &conditionBuilder{}
	whereClause, err := builder.build(condition)
	if err != nil {
		return fmt.Errorf("postgres: %s: %w", model.Name, err)
	}
	sqlQuery := fmt.Sprintf("DELETE FROM %s WHERE %s", formatTable(model), whereClause)
	return driver.exec(ctx, sqlQuery, builder.argList...)
}

func (driver *PostgresDriver) Count(ctx context.Context, model *core.Model, condition *core.Condition) (int64, error) {
	builder := &conditionBuilder{}
	whereClause, err := builder.build(condition)
	if err != nil {
		return 0, fmt.Errorf("postgres: %s: %w", model.Name, err)
	}
	sqlQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", formatTable(model), whereClause)

	var count int64
	if err := driver.queryRow(ctx, sqlQuery, builder.argList...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

//endregion
