package recorder

import (
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// BackendConfig selects and parameterizes a recorder backend.
type BackendConfig struct {
	// Type is "postgres", "sqlite", or "none".
	Type string
	// DSN is the postgres connection string.
	DSN string
	// SqlitePath is the sqlite database file, ":memory:" for tests.
	SqlitePath string
	// Logger receives connection and fallback events.
	Logger zerolog.Logger
}

// dbBackend stores runs in a relational database via gorm. A failed
// postgres connection falls back to local sqlite so a run is never lost
// to an unreachable server.
type dbBackend struct {
	cfg BackendConfig
	db  *gorm.DB

	mu  sync.Mutex
	run *Run

	lastWrite time.Duration
}

func newDBBackend(cfg BackendConfig) (*dbBackend, error) {
	return &dbBackend{cfg: cfg}, nil
}

// Init connects and migrates the schema.
func (b *dbBackend) Init() error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	b.db = db

	if err := b.db.AutoMigrate(&Run{}, &WrenchRecord{}, &VelocityCmdRecord{}); err != nil {
		return fmt.Errorf("migrating recorder schema: %w", err)
	}
	return nil
}

func (b *dbBackend) connect() (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Discard}

	if b.cfg.Type == "postgres" {
		db, err := gorm.Open(postgres.Open(b.cfg.DSN), gormCfg)
		if err == nil {
			b.cfg.Logger.Info().Msg("recorder connected to postgres")
			return db, nil
		}
		b.cfg.Logger.Error().Err(err).Msg("postgres unavailable, falling back to sqlite")
	}

	path := b.cfg.SqlitePath
	if path == "" {
		path = "hydrosim.db"
	}
	db, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %s: %w", path, err)
	}
	b.cfg.Logger.Info().Str("path", path).Msg("recorder using sqlite")
	return db, nil
}

// Close ends any open run and releases the connection pool.
func (b *dbBackend) Close() error {
	if err := b.EndRun(); err != nil {
		return err
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StartRun opens a run; records attach to it until EndRun.
func (b *dbBackend) StartRun(run *Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := b.db.Create(run).Error; err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	b.run = run
	return nil
}

// EndRun stamps the open run, if any.
func (b *dbBackend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return nil
	}
	now := time.Now()
	b.run.EndedAt = &now
	if err := b.db.Save(b.run).Error; err != nil {
		return fmt.Errorf("ending run: %w", err)
	}
	b.run = nil
	return nil
}

func (b *dbBackend) currentRunID() (uint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return 0, false
	}
	return b.run.ID, true
}

// RecordWrench persists one wrench row. Records outside a run are
// dropped silently; the systems keep ticking whether or not a run is
// open.
func (b *dbBackend) RecordWrench(w *WrenchRecord) error {
	runID, ok := b.currentRunID()
	if !ok {
		return nil
	}
	w.RunID = runID
	start := time.Now()
	err := b.db.Create(w).Error
	b.setLastWrite(time.Since(start))
	return err
}

// RecordVelocityCmd persists one velocity command row.
func (b *dbBackend) RecordVelocityCmd(v *VelocityCmdRecord) error {
	runID, ok := b.currentRunID()
	if !ok {
		return nil
	}
	v.RunID = runID
	start := time.Now()
	err := b.db.Create(v).Error
	b.setLastWrite(time.Since(start))
	return err
}

func (b *dbBackend) setLastWrite(d time.Duration) {
	b.mu.Lock()
	b.lastWrite = d
	b.mu.Unlock()
}

// GetLastDBWriteDuration exposes the last write latency for monitoring.
// Safe to call from the monitor goroutine.
func (b *dbBackend) GetLastDBWriteDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastWrite
}
