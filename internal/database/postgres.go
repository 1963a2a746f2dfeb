package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// documentRow holds one document of any collection as JSONB.
type documentRow struct {
	ID         string         `gorm:"type:uuid;primaryKey"`
	Collection string         `gorm:"size:64;not null;index"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}

func (documentRow) TableName() string {
	return "documents"
}

// uniqueIndex builds the partial unique index for one collection field.
func uniqueIndex(collection, field string) string {
	return fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_%[1]s_%[2]s
ON documents ((data->>'%[2]s')) WHERE collection = '%[1]s'`, collection, field)
}

// PostgresStore keeps every collection in a single JSONB table.
type PostgresStore struct {
	db *gorm.DB
}

// ConnectPostgres opens the pool, pings it and migrates the documents table.
func ConnectPostgres(ctx context.Context, dsn string, timeout time.Duration) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate documents: %w", err)
	}
	for coll, field := range uniqueFields {
		if err := db.Exec(uniqueIndex(coll, field)).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to create %s %s index: %w", coll, field, err)
		}
	}

	slog.Info("database connected")
	return &PostgresStore{db: db}, nil
}

// DB exposes the pool for other tables (system logs).
func (s *PostgresStore) DB() *gorm.DB { return s.db }

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *PostgresStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) Collection(name string) Collection {
	return &postgresCollection{db: s.db, name: name}
}

type postgresCollection struct {
	db   *gorm.DB
	name string
}

// scope narrows a query to this collection and the filter. It returns false
// when the filter names a malformed id, which can match nothing.
func (c *postgresCollection) scope(tx *gorm.DB, filter Filter) (*gorm.DB, bool) {
	tx = tx.Where("collection = ?", c.name)
	for k, v := range filter {
		if k == IDField {
			id, ok := v.(string)
			if !ok {
				return nil, false
			}
			if _, err := uuid.Parse(id); err != nil {
				return nil, false
			}
			tx = tx.Where("id = ?", id)
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339Nano)
		}
		tx = tx.Where(datatypes.JSONQuery("data").Equals(v, k))
	}
	return tx.Order("created_at ASC, id ASC"), true
}

func (c *postgresCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	q, ok := c.scope(c.db.WithContext(ctx), filter)
	if !ok {
		return nil, ErrNoDocuments
	}
	var row documentRow
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoDocuments
		}
		return nil, err
	}
	return row.document()
}

func (c *postgresCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	out := make([]Document, 0)
	q, ok := c.scope(c.db.WithContext(ctx), filter)
	if !ok {
		return out, nil
	}
	var rows []documentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		doc, err := rows[i].document()
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *postgresCollection) InsertOne(ctx context.Context, doc Document) (string, error) {
	data, err := encodeData(doc)
	if err != nil {
		return "", err
	}
	row := documentRow{
		ID:         uuid.NewString(),
		Collection: c.name,
		Data:       data,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("failed to insert into %s: %w", c.name, err)
	}
	return row.ID, nil
}

func (c *postgresCollection) UpdateOne(ctx context.Context, filter Filter, set Document) (int64, error) {
	var matched int64
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, ok := c.scope(tx, filter)
		if !ok {
			return nil
		}
		var row documentRow
		if err := q.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		doc, err := row.document()
		if err != nil {
			return err
		}
		for k, v := range set {
			doc[k] = v
		}
		data, err := encodeData(doc)
		if err != nil {
			return err
		}
		if err := tx.Model(&documentRow{}).Where("id = ?", row.ID).Update("data", data).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return err
		}
		matched = 1
		return nil
	})
	return matched, err
}

func (c *postgresCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	var deleted int64
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, ok := c.scope(tx, filter)
		if !ok {
			return nil
		}
		var row documentRow
		if err := q.First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		res := tx.Delete(&documentRow{}, "id = ?", row.ID)
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func (r *documentRow) document() (Document, error) {
	doc := Document{}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &doc); err != nil {
			return nil, fmt.Errorf("corrupt document %s: %w", r.ID, err)
		}
	}
	doc[IDField] = r.ID
	return doc, nil
}

func encodeData(doc Document) (datatypes.JSON, error) {
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		body[k] = v
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return datatypes.JSON(b), nil
}
