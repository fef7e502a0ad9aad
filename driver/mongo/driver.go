// Package mongo implements core.Driver on MongoDB through the official driver.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/leandroluk/golem-admin/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodb "go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds the connection settings of a MongoDriver.
type Config struct {
	URI string
	// Database is used for models that do not name their own.
	Database string
	Timeout  time.Duration
}

//region MongoDriver

type MongoDriver struct {
	client          *mongodb.Client
	defaultDatabase string
}

var _ core.Driver = (*MongoDriver)(nil)

func NewMongoDriver(ctx context.Context, config Config) (*MongoDriver, error) {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := mopt.Client().ApplyURI(config.URI)
	opts.SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	client, err := mongodb.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	return &MongoDriver{client: client, defaultDatabase: config.Database}, nil
}

func (driver *MongoDriver) coll(model *core.Model) (*mongodb.Collection, error) {
	dbName := driver.defaultDatabase
	if model.Database != "" {
		dbName = model.Database
	}
	if dbName == "" {
		return nil, fmt.Errorf("mongo: model %s has no database and no default is configured", model.Name)
	}
	return driver.client.Database(dbName).Collection(model.Collection), nil
}

func (driver *MongoDriver) distinct(ctx context.Context, model *core.Model, key string, filter bson.M) ([]any, error) {
	collection, err := driver.coll(model)
	if err != nil {
		return nil, err
	}
	return collection.Distinct(driver.withSession(ctx), key, filter)
}

func (driver *MongoDriver) buildFilter(ctx context.Context, model *core.Model, condition *core.Condition) (bson.M, error) {
	builder := &filterBuilder{distinct: driver.distinct}
	filter, err := builder.build(ctx, model, condition)
	if err != nil {
		return nil, fmt.Errorf("mongo: %s: %w", model.Name, err)
	}
	return filter, nil
}

// Backend reports the document expression form.
func (driver *MongoDriver) Backend() core.Backend {
	return core.BackendDocument
}

// BuildPredicate renders condition as a filter document. Membership
// conditions run their subquery with Distinct, so this reads the database.
func (driver *MongoDriver) BuildPredicate(ctx context.Context, model *core.Model, condition *core.Condition) (core.Predicate, error) {
	filter, err := driver.buildFilter(ctx, model, condition)
	if err != nil {
		return nil, err
	}
	return Predicate{Filter: filter}, nil
}

func (driver *MongoDriver) Connect(ctx context.Context) error {
	return driver.client.Ping(ctx, nil)
}

func (driver *MongoDriver) Ping(ctx context.Context) error {
	return driver.client.Ping(ctx, nil)
}

func (driver *MongoDriver) Close(ctx context.Context) error {
	return driver.client.Disconnect(ctx)
}

// prepareInsert converts id values and assigns an ObjectID when the model's
// id column is missing.
func prepareInsert(model *core.Model, document core.Document) bson.M {
	if _, ok := document[model.IDField]; !ok {
		document[model.IDField] = primitive.NewObjectID()
	}
	out := make(bson.M, len(document))
	for column, value := range document {
		if holdsObjectIDs(model, column) {
			value = toObjectID(value)
		}
		out[column] = value
	}
	return out
}

func (driver *MongoDriver) Insert(ctx context.Context, model *core.Model, documents ...core.Document) error {
	if len(documents) == 0 {
		return nil
	}
	collection, err := driver.coll(model)
	if err != nil {
		return err
	}
	documentList := make([]any, 0, len(documents))
	for _, document := range documents {
		documentList = append(documentList, prepareInsert(model, document))
	}
	_, err = collection.InsertMany(driver.withSession(ctx), documentList)
	return err
}

func buildFindOptions(options *core.Where, single bool) *mopt.FindOptions {
	findOpts := mopt.Find()
	if len(options.Sort) > 0 {
		sortDoc := bson.D{}
		for _, sortItem := range options.Sort {
			direction := 1
			if sortItem.Order < 0 {
				direction = -1
			}
			sortDoc = append(sortDoc, bson.E{Key: sortItem.FieldName, Value: direction})
		}
		findOpts.SetSort(sortDoc)
	}
	if single {
		findOpts.SetLimit(1)
	} else {
		if options.Limit > 0 {
			findOpts.SetLimit(int64(options.Limit))
		}
		if options.Offset > 0 {
			findOpts.SetSkip(int64(options.Offset))
		}
	}
	return findOpts
}

func (driver *MongoDriver) find(ctx context.Context, model *core.Model, options *core.Where, single bool) ([]core.Document, error) {
	if options == nil {
		options = &core.Where{}
	}
	ctx = driver.withSession(ctx)
	collection, err := driver.coll(model)
	if err != nil {
		return nil, err
	}
	filter, err := driver.buildFilter(ctx, model, options.Condition)
	if err != nil {
		return nil, err
	}

	cursor, err := collection.Find(ctx, filter, buildFindOptions(options, single))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var resultList []core.Document
	for cursor.Next(ctx) {
		var bsonMap bson.M
		if err := cursor.Decode(&bsonMap); err != nil {
			return nil, err
		}
		resultList = append(resultList, core.Document(bsonMap))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return resultList, nil
}

func (driver *MongoDriver) FindOne(ctx context.Context, model *core.Model, options *core.Where) (core.Document, error) {
	documentList, err := driver.find(ctx, model, options, true)
	if err != nil {
		return nil, err
	}
	if len(documentList) == 0 {
		return nil, nil
	}
	return documentList[0], nil
}

func (driver *MongoDriver) FindMany(ctx context.Context, model *core.Model, options *core.Where) ([]core.Document, error) {
	return driver.find(ctx, model, options, false)
}

func (driver *MongoDriver) Update(ctx context.Context, model *core.Model, condition *core.Condition, changes core.Changes) error {
	if len(changes) == 0 {
		return nil
	}
	ctx = driver.withSession(ctx)
	collection, err := driver.coll(model)
	if err != nil {
		return err
	}
	filter, err := driver.buildFilter(ctx, model, condition)
	if err != nil {
		return err
	}
	set := bson.M{}
	for column, value := range changes {
		if holdsObjectIDs(model, column) {
			value = toObjectID(value)
		}
		set[column] = value
	}
	_, err = collection.UpdateMany(ctx, filter, bson.M{"$set": set})
	return err
}

func (driver *MongoDriver) Delete(ctx context.Context, model *core.Model, condition *core.Condition) error {
	ctx = driver.withSession(ctx)
	collection, err := driver.coll(model)
	if err != nil {
		return err
	}
	filter, err := driver.buildFilter(ctx, model, condition)
	if err != nil {
		return err
	}
	_, err = collection.DeleteMany(ctx, filter)
	return err
}

func (driver *MongoDriver) Count(ctx context.Context, model *core.Model, condition *core.Condition) (int64, error) {
	ctx = driver.withSession(ctx)
	collection, err := driver.coll(model)
	if err != nil {
		return 0, err
	}
	filter, err := driver.buildFilter(ctx, model, condition)
	if err != nil {
		return 0, err
	}
	return collection.CountDocuments(ctx, filter)
}

//endregion
