package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tripforge/itineraryd/pkg/model"
)

// jsonColumn adapts an arbitrary Go value to a gorm/database JSONB column.
type jsonColumn[T any] struct {
	Value T
}

func (j jsonColumn[T]) Value() (driver.Value, error) {
	return json.Marshal(j.Value)
}

func (j *jsonColumn[T]) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported scan source %T for jsonColumn", src)
	}
	return json.Unmarshal(raw, &j.Value)
}

type itineraryRow struct {
	ItineraryID string `gorm:"column:itinerary_id;primaryKey"`
	OwnerID     string `gorm:"column:owner_id"`
	Version     int    `gorm:"column:version"`
	Document    jsonColumn[*model.Itinerary] `gorm:"column:document;type:jsonb"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (itineraryRow) TableName() string { return "itineraries" }

type revisionRow struct {
	ItineraryID string                   `gorm:"column:itinerary_id;primaryKey"`
	Version     int                      `gorm:"column:version;primaryKey"`
	Timestamp   int64                    `gorm:"column:timestamp"`
	Description string                   `gorm:"column:description"`
	Author      string                   `gorm:"column:author"`
	Diff        jsonColumn[*model.Diff]  `gorm:"column:diff;type:jsonb"`
	Snapshot    jsonColumn[*model.Itinerary] `gorm:"column:snapshot;type:jsonb"`
}

func (revisionRow) TableName() string { return "revisions" }

// PostgresStore is the durable Store (C2) implementation, backed by
// Postgres via gorm. It substitutes for the teacher's ent-generated client
// (see DESIGN.md) while keeping the teacher's connection-pool-plus-migration
// bootstrap shape (pkg/store/migrations.go mirrors pkg/database/client.go).
type PostgresStore struct {
	gdb *gorm.DB
	sdb *sql.DB

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewPostgresStore opens a pooled connection, runs embedded migrations, and
// returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, cfg Config) (*PostgresStore, error) {
	sdb, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sdb.SetMaxOpenConns(cfg.MaxOpenConns)
	sdb.SetMaxIdleConns(cfg.MaxIdleConns)
	sdb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sdb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := ensureSchema(ctx, sdb, cfg.Database); err != nil {
		_ = sdb.Close()
		return nil, err
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sdb}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("failed to attach gorm to pool: %w", err)
	}

	return &PostgresStore{gdb: gdb, sdb: sdb, locks: make(map[string]*sync.Mutex)}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error { return s.sdb.Close() }

// DB exposes the underlying *sql.DB for health checks.
func (s *PostgresStore) DB() *sql.DB { return s.sdb }

func (s *PostgresStore) Get(ctx context.Context, itineraryID string) (*model.Itinerary, error) {
	var row itineraryRow
	err := s.gdb.WithContext(ctx).First(&row, "itinerary_id = ?", itineraryID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.NewNotFoundError("itinerary", itineraryID)
		}
		return nil, err
	}
	return row.Document.Value, nil
}

func (s *PostgresStore) Save(ctx context.Context, itinerary *model.Itinerary) error {
	row := itineraryRow{
		ItineraryID: itinerary.ItineraryID,
		OwnerID:     itinerary.OwnerID,
		Version:     itinerary.Version,
		Document:    jsonColumn[*model.Itinerary]{Value: itinerary},
		UpdatedAt:   time.Now(),
	}
	return s.gdb.WithContext(ctx).Save(&row).Error
}

func (s *PostgresStore) Delete(ctx context.Context, itineraryID string) error {
	return s.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&revisionRow{}, "itinerary_id = ?", itineraryID).Error; err != nil {
			return err
		}
		return tx.Delete(&itineraryRow{}, "itinerary_id = ?", itineraryID).Error
	})
}

func (s *PostgresStore) List(ctx context.Context, ownerID string) ([]*model.Itinerary, error) {
	q := s.gdb.WithContext(ctx).Model(&itineraryRow{})
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var rows []itineraryRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Itinerary, len(rows))
	for i, r := range rows {
		out[i] = r.Document.Value
	}
	return out, nil
}

func (s *PostgresStore) AppendRevision(ctx context.Context, revision *model.Revision) error {
	row := revisionRow{
		ItineraryID: revision.ItineraryID,
		Version:     revision.Version,
		Timestamp:   revision.Timestamp,
		Description: revision.Description,
		Author:      string(revision.Author),
		Diff:        jsonColumn[*model.Diff]{Value: revision.Diff},
		Snapshot:    jsonColumn[*model.Itinerary]{Value: revision.Snapshot},
	}
	return s.gdb.WithContext(ctx).Create(&row).Error
}

func (s *PostgresStore) ListRevisions(ctx context.Context, itineraryID string) ([]*model.Revision, error) {
	var rows []revisionRow
	err := s.gdb.WithContext(ctx).
		Where("itinerary_id = ?", itineraryID).
		Order("version ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toRevisions(rows), nil
}

func (s *PostgresStore) GetRevision(ctx context.Context, itineraryID string, version int) (*model.Revision, error) {
	var row revisionRow
	err := s.gdb.WithContext(ctx).
		Where("itinerary_id = ? AND version = ?", itineraryID, version).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, model.NewNotFoundError("revision", itineraryID)
		}
		return nil, err
	}
	revs := toRevisions([]revisionRow{row})
	return revs[0], nil
}

func toRevisions(rows []revisionRow) []*model.Revision {
	out := make([]*model.Revision, len(rows))
	for i, r := range rows {
		out[i] = &model.Revision{
			ItineraryID: r.ItineraryID,
			Version:     r.Version,
			Timestamp:   r.Timestamp,
			Description: r.Description,
			Author:      model.Originator(r.Author),
			Diff:        r.Diff.Value,
			Snapshot:    r.Snapshot.Value,
		}
	}
	return out
}

// Lock mirrors MemoryStore's in-process per-itinerary mutex. Because every
// itineraryd replica owns a disjoint set of in-flight HTTP/agent requests
// only through this process's lock registry, multi-replica deployments
// still need an external coordinator (e.g. a Postgres advisory lock) to
// fully satisfy spec §5 across processes; single-process deployments (the
// common case for this service) get the full guarantee from this mutex
// alone.
func (s *PostgresStore) Lock(_ context.Context, itineraryID string) (unlock func()) {
	s.locksMu.Lock()
	m, ok := s.locks[itineraryID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[itineraryID] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}
