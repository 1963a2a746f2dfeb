package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var errMalformedID = errors.New("malformed document id")

// MongoStore delegates to a MongoDB database. The client is connected once
// at startup and disconnected by Close.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo dials uri and verifies the deployment answers within timeout.
func ConnectMongo(ctx context.Context, uri, dbName string, timeout time.Duration) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach mongo: %w", err)
	}

	db := client.Database(dbName)
	for coll, field := range uniqueFields {
		_, err = db.Collection(coll).Indexes().CreateOne(pingCtx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create %s %s index: %w", coll, field, err)
		}
	}

	slog.Info("mongo connected", "db", dbName)
	return &MongoStore{client: client, db: db}, nil
}

func (s *MongoStore) Name() string { return "mongo" }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	q, err := toBSONFilter(filter)
	if err != nil {
		return nil, ErrNoDocuments
	}
	var raw bson.M
	if err := c.coll.FindOne(ctx, q).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocuments
		}
		return nil, err
	}
	return fromBSON(raw), nil
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	out := make([]Document, 0)
	q, err := toBSONFilter(filter)
	if err != nil {
		return out, nil
	}
	cursor, err := c.coll.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}
	for _, raw := range raws {
		out = append(out, fromBSON(raw))
	}
	return out, nil
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc Document) (string, error) {
	res, err := c.coll.InsertOne(ctx, toBSON(doc))
	if mongo.IsDuplicateKeyError(err) {
		return "", ErrDuplicate
	}
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

// UpdateOne reports MatchedCount rather than ModifiedCount so a write that
// leaves the document unchanged still counts as found.
func (c *mongoCollection) UpdateOne(ctx context.Context, filter Filter, set Document) (int64, error) {
	q, err := toBSONFilter(filter)
	if err != nil {
		return 0, nil
	}
	res, err := c.coll.UpdateOne(ctx, q, bson.M{"$set": toBSON(set)})
	if mongo.IsDuplicateKeyError(err) {
		return 0, ErrDuplicate
	}
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	q, err := toBSONFilter(filter)
	if err != nil {
		return 0, nil
	}
	res, err := c.coll.DeleteOne(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func toBSONFilter(filter Filter) (bson.M, error) {
	q := bson.M{}
	for k, v := range filter {
		if k != IDField {
			q[k] = v
			continue
		}
		hex, ok := v.(string)
		if !ok {
			return nil, errMalformedID
		}
		oid, err := bson.ObjectIDFromHex(hex)
		if err != nil {
			return nil, errMalformedID
		}
		q["_id"] = oid
	}
	return q, nil
}

func toBSON(doc Document) bson.M {
	out := bson.M{}
	for k, v := range doc {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			if oid, ok := v.(bson.ObjectID); ok {
				doc[IDField] = oid.Hex()
			} else {
				doc[IDField] = fmt.Sprint(v)
			}
			continue
		}
		doc[k] = normalizeBSON(v)
	}
	return doc
}

func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.DateTime:
		return t.Time().UTC()
	case bson.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	default:
		return v
	}
}
