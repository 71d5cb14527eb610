package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/vadcompare/pkg/models"
	"github.com/himanishpuri/vadcompare/pkg/utils"
)

// EnvDBPath names the environment variable holding the history database path.
const EnvDBPath = "VADCOMPARE_DB_PATH"

const errDBClientNil = "db client is nil"

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// RunRecord is the persisted form of models.Run.
type RunRecord struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	AudioPath   string `gorm:"index:idx_run_audio"`
	SourceA     string
	SourceB     string
	FrameSize   float64
	Frames      int
	BothVoice   int
	BothSilence int
	AOnly       int
	BOnly       int
	PaddedA     int
	PaddedB     int
	ShiftFrames int
	CreatedAt   time.Time `gorm:"index:idx_run_created"`
}

func (RunRecord) TableName() string { return "runs" }

// PathFromEnv returns the database path from VADCOMPARE_DB_PATH, or "".
func PathFromEnv() string {
	return os.Getenv(EnvDBPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dbPath == "" {
		return nil, errors.New("history database path is empty")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &models.IOError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// one process, one writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RecordRun stores run and returns its ID, generating one if run.ID is empty.
func (c *DBClient) RecordRun(run models.Run) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	if run.ID == "" {
		run.ID = utils.GenerateUUID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	rec := RunRecord(run)
	if err := c.DB.Create(&rec).Error; err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	return rec.ID, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (c *DBClient) ListRuns(limit int) ([]models.Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	q := c.DB.Order("created_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []RunRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]models.Run, len(recs))
	for i, rec := range recs {
		runs[i] = models.Run(rec)
	}
	return runs, nil
}

// GetRun fetches one run by ID.
func (c *DBClient) GetRun(id string) (*models.Run, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rec RunRecord
	if err := c.DB.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	run := models.Run(rec)
	return &run, nil
}

// DeleteRun removes a run by ID.
func (c *DBClient) DeleteRun(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Where("id = ?", id).Delete(&RunRecord{}).Error
}
