package database

import (
	"context"
	"errors"
)

// Collection names used by the record services.
const (
	Users             = "users"
	Doctors           = "doctors"
	Patients          = "patients"
	Appointments      = "appointments"
	PredictionHistory = "prediction_history"
)

// IDField is the key under which every returned Document carries its
// store-generated identifier. Callers treat the value as opaque.
const IDField = "id"

// uniqueFields names the field each collection keeps unique. Every backend
// rejects a write that would repeat a value with ErrDuplicate.
var uniqueFields = map[string]string{
	Users:    "email",
	Doctors:  "user_id",
	Patients: "user_id",
}

var (
	ErrNoDocuments = errors.New("no documents in result")
	// ErrDuplicate is returned when a unique index rejects the document.
	ErrDuplicate = errors.New("duplicate document")
)

// Document is a schema-flexible record keyed by field name.
type Document map[string]any

// Filter selects documents by exact equality on every listed field.
// An empty filter matches everything.
type Filter map[string]any

// ID returns the document identifier, or "" when absent.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

func (d Document) clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Collection is the CRUD surface over one named collection. Unknown
// collections behave as empty; malformed identifiers resolve to "not found".
type Collection interface {
	// FindOne returns the first match or ErrNoDocuments.
	FindOne(ctx context.Context, filter Filter) (Document, error)
	// Find returns all matches in natural order.
	Find(ctx context.Context, filter Filter) ([]Document, error)
	// InsertOne stores doc and returns the generated identifier.
	InsertOne(ctx context.Context, doc Document) (string, error)
	// UpdateOne sets the given fields on the first match and returns the
	// number of matched documents (0 or 1).
	UpdateOne(ctx context.Context, filter Filter, set Document) (int64, error)
	// DeleteOne removes the first match and returns the number removed.
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
}

// Store hands out collections and owns the backend connection.
type Store interface {
	Collection(name string) Collection
	Name() string
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
