package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/bandprint/pkg/models"
)

const DefaultDBFile = "bandprint.sqlite3"
const errDBClientNil = "db client is nil"

// batchSize bounds the number of rows per INSERT statement.
const batchSize = 500

// DBClient is the SQLite catalog and, with the sqlite backend, the
// fingerprint index as well.
type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Song struct {
	ID         uint32 `gorm:"primaryKey;autoIncrement"`
	Title      string `gorm:"index:idx_song_meta,priority:1"`
	Artist     string `gorm:"index:idx_song_meta,priority:2"`
	Path       string
	Checksum   *string `gorm:"type:varchar(16);uniqueIndex:idx_song_checksum"`
	DurationMs int
	CreatedAt  time.Time
}

type Fingerprint struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	Hash   int64  `gorm:"index:idx_hash"`
	SongID uint32 `gorm:"index:idx_song"`
	Time   int
}

func (s Song) toModel() models.Song {
	return models.Song{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		Path:       s.Path,
		DurationMs: s.DurationMs,
	}
}

// NewDBClient opens the database named by BANDPRINT_DB_PATH, falling back to
// DefaultDBFile in the working directory.
func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("BANDPRINT_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Song{}, &Fingerprint{}); err != nil {
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

func (c *DBClient) ok() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

// RegisterSong inserts song unless a song with the same checksum exists, in
// which case the existing ID is returned and created is false.
func (c *DBClient) RegisterSong(ctx context.Context, song models.Song, checksum string) (uint32, bool, error) {
	if err := c.ok(); err != nil {
		return 0, false, err
	}
	db := c.DB.WithContext(ctx)

	var row Song
	if checksum != "" {
		err := db.Where("checksum = ?", checksum).First(&row).Error
		if err == nil {
			return row.ID, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, fmt.Errorf("querying existing song: %w", err)
		}
	}

	row = Song{
		Title:      song.Title,
		Artist:     song.Artist,
		Path:       song.Path,
		DurationMs: song.DurationMs,
	}
	if checksum != "" {
		row.Checksum = &checksum
	}
	if err := db.Create(&row).Error; err != nil {
		if checksum != "" && isConstraintViolation(err) {
			var existing Song
			if fetchErr := db.Where("checksum = ?", checksum).First(&existing).Error; fetchErr != nil {
				return 0, false, fmt.Errorf("fetching song after constraint violation: %w", fetchErr)
			}
			return existing.ID, false, nil
		}
		return 0, false, fmt.Errorf("creating song: %w", err)
	}
	return row.ID, true, nil
}

func isConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "constraint failed")
}

func (c *DBClient) GetSong(ctx context.Context, songID uint32) (models.Song, error) {
	if err := c.ok(); err != nil {
		return models.Song{}, err
	}
	var row Song
	err := c.DB.WithContext(ctx).First(&row, songID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Song{}, songNotFound(songID)
	}
	if err != nil {
		return models.Song{}, fmt.Errorf("querying song %d: %w", songID, err)
	}
	return row.toModel(), nil
}

func (c *DBClient) SongName(ctx context.Context, songID uint32) (string, error) {
	song, err := c.GetSong(ctx, songID)
	if err != nil {
		return "", err
	}
	return song.Name(), nil
}

func (c *DBClient) ListSongs(ctx context.Context) ([]models.Song, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	var rows []Song
	if err := c.DB.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	out := make([]models.Song, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (c *DBClient) CountSongs(ctx context.Context) (int64, error) {
	if err := c.ok(); err != nil {
		return 0, err
	}
	var n int64
	if err := c.DB.WithContext(ctx).Model(&Song{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting songs: %w", err)
	}
	return n, nil
}

// RemoveSong deletes the song row only.
func (c *DBClient) RemoveSong(ctx context.Context, songID uint32) error {
	if err := c.ok(); err != nil {
		return err
	}
	res := c.DB.WithContext(ctx).Where("id = ?", songID).Delete(&Song{})
	if res.Error != nil {
		return fmt.Errorf("deleting song %d: %w", songID, res.Error)
	}
	if res.RowsAffected == 0 {
		return songNotFound(songID)
	}
	return nil
}

// DeleteSongByID removes a song and its fingerprints in one transaction.
func (c *DBClient) DeleteSongByID(ctx context.Context, songID uint32) error {
	if err := c.ok(); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", songID).Delete(&Fingerprint{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", songID).Delete(&Song{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return songNotFound(songID)
		}
		return nil
	})
}

func (c *DBClient) Store(ctx context.Context, entries []Entry) error {
	if err := c.ok(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	rows := make([]Fingerprint, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Fingerprint{Hash: e.Hash, SongID: e.Point.SongID, Time: e.Point.Time})
	}
	if err := c.DB.WithContext(ctx).CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("batch insert fingerprints: %w", err)
	}
	return nil
}

func (c *DBClient) Lookup(ctx context.Context, hash int64) ([]models.DataPoint, error) {
	if err := c.ok(); err != nil {
		return nil, err
	}
	var rows []Fingerprint
	err := c.DB.WithContext(ctx).
		Where("hash = ?", hash).
		Order("song_id, time").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}
	out := make([]models.DataPoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.DataPoint{SongID: r.SongID, Time: r.Time})
	}
	return out, nil
}

func (c *DBClient) DeleteFingerprints(ctx context.Context, songID uint32) error {
	if err := c.ok(); err != nil {
		return err
	}
	if err := c.DB.WithContext(ctx).Where("song_id = ?", songID).Delete(&Fingerprint{}).Error; err != nil {
		return fmt.Errorf("deleting fingerprints of song %d: %w", songID, err)
	}
	return nil
}

func (c *DBClient) Count(ctx context.Context) (int64, error) {
	if err := c.ok(); err != nil {
		return 0, err
	}
	var n int64
	if err := c.DB.WithContext(ctx).Model(&Fingerprint{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting fingerprints: %w", err)
	}
	return n, nil
}
