package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "documents"

// MongoStore keeps documents in a MongoDB collection. Commits use
// multi-document transactions, so the deployment must be a replica set.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo connection URI is empty")
	}

	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(20).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (Document, error) {
	var raw bson.M
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}
	return Document(fromBSON(raw).(map[string]interface{})), nil
}

func (s *MongoStore) Exists(ctx context.Context, id string) (bool, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check document %s: %w", id, err)
	}
	return count > 0, nil
}

func (s *MongoStore) ListByType(ctx context.Context, docType string) ([]Document, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"_type": docType}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", docType, err)
	}
	defer cursor.Close(ctx)

	var docs []Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", docType, err)
		}
		docs = append(docs, Document(fromBSON(raw).(map[string]interface{})))
	}
	return docs, cursor.Err()
}

func (s *MongoStore) ListIDs(ctx context.Context, docType, field string, value interface{}) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"_type": docType, field: value}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s ids: %w", docType, err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cursor.Err()
}

func (s *MongoStore) Commit(ctx context.Context, tx *Transaction) error {
	session, err := s.client.StartSession()
	if err != nil {
		return &StoreError{StatusCode: http.StatusServiceUnavailable, Message: "failed to start session", Err: err}
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, m := range tx.Mutations {
			if err := s.applyMutation(sc, m); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return &StoreError{StatusCode: http.StatusInternalServerError, Message: "transaction failed", Err: err}
}

func (s *MongoStore) applyMutation(ctx mongo.SessionContext, m Mutation) error {
	if err := m.validate(); err != nil {
		return &StoreError{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}

	if m.CreateIfNotExists != nil {
		doc := bson.M{}
		for k, v := range m.CreateIfNotExists {
			if k != "_id" {
				doc[k] = v
			}
		}
		_, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": m.CreateIfNotExists.ID()},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		return err
	}

	pipeline := patchPipeline(m.Patch)
	if len(pipeline) == 0 {
		return nil
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": m.Patch.ID}, pipeline)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &StoreError{
			StatusCode: http.StatusConflict,
			Message:    fmt.Sprintf("cannot patch missing document %q", m.Patch.ID),
		}
	}
	return nil
}

// patchPipeline expresses a patch as an update pipeline. Values are wrapped
// in $literal so strings starting with "$" are not read as field paths.
func patchPipeline(p *Patch) mongo.Pipeline {
	var pipeline mongo.Pipeline

	if len(p.Set) > 0 {
		set := bson.D{}
		for k, v := range p.Set {
			if k == "_id" || k == "_type" {
				continue
			}
			set = append(set, bson.E{Key: k, Value: bson.M{"$literal": v}})
		}
		if len(set) > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$set", Value: set}})
		}
	}

	if len(p.SetIfMissing) > 0 {
		set := bson.D{}
		for k, v := range p.SetIfMissing {
			set = append(set, bson.E{Key: k, Value: bson.M{"$ifNull": bson.A{"$" + k, bson.M{"$literal": v}}}})
		}
		pipeline = append(pipeline, bson.D{{Key: "$set", Value: set}})
	}

	if len(p.Unset) > 0 {
		fields := bson.A{}
		for _, k := range p.Unset {
			if k != "_id" && k != "_type" {
				fields = append(fields, k)
			}
		}
		if len(fields) > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$unset", Value: fields}})
		}
	}

	return pipeline
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// fromBSON converts decoded BSON values into plain JSON-shaped values.
func fromBSON(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = fromBSON(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = fromBSON(item)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = fromBSON(item)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case primitive.ObjectID:
		return val.Hex()
	default:
		return val
	}
}
