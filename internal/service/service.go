package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/bandprint/internal/audio"
	"github.com/himanishpuri/bandprint/internal/fingerprint"
	"github.com/himanishpuri/bandprint/internal/match"
	"github.com/himanishpuri/bandprint/internal/storage"
	"github.com/himanishpuri/bandprint/pkg/models"
)

// Recognizer builds the fingerprint index and answers recognition queries
// against it.
type Recognizer struct {
	cfg         Config
	log         Logger
	bands       fingerprint.Bands
	transformer *fingerprint.Transformer
	aggregator  *match.Aggregator
	index       storage.FingerprintStore
	catalog     storage.Catalog
	closers     []io.Closer
}

// IndexResult reports the outcome of indexing one file.
type IndexResult struct {
	Path    string
	SongID  uint32
	Created bool // false when the content was already indexed
	Err     error
}

func New(opts ...Option) (*Recognizer, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	bands, err := fingerprint.NewBands(cfg.Bands)
	if err != nil {
		return nil, err
	}
	transformer, err := fingerprint.NewTransformer(cfg.ChunkSize, 0)
	if err != nil {
		return nil, err
	}
	if bands.Len() < fingerprint.HashWidth {
		return nil, fmt.Errorf("%w: band table has %d bands, hashing needs %d",
			models.ErrConfiguration, bands.Len(), fingerprint.HashWidth)
	}
	if bands.High() > transformer.Bins() {
		return nil, fmt.Errorf("%w: band table reaches bin %d but frames have %d bins",
			models.ErrConfiguration, bands.High(), transformer.Bins())
	}

	r := &Recognizer{
		cfg:         cfg,
		log:         cfg.Logger,
		bands:       bands,
		transformer: transformer,
		index:       cfg.Index,
		catalog:     cfg.Catalog,
	}
	if err := r.openBackends(); err != nil {
		r.Close()
		return nil, err
	}
	r.aggregator = match.NewAggregator(r.index, cfg.FuzzFactor, cfg.Workers)
	return r, nil
}

// openBackends fills in whatever the caller did not inject.
func (r *Recognizer) openBackends() error {
	if r.cfg.Backend == BackendMemory {
		mem := storage.NewMemoryIndex()
		if r.index == nil {
			r.index = mem
		}
		if r.catalog == nil {
			r.catalog = mem
		}
		return nil
	}

	if r.catalog == nil || (r.index == nil && r.cfg.Backend == BackendSQLite) {
		db, err := r.openCatalog()
		if err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}
		r.closers = append(r.closers, db)
		if r.catalog == nil {
			r.catalog = db
		}
		if r.index == nil && r.cfg.Backend == BackendSQLite {
			r.index = db
		}
	}

	if r.index == nil {
		idx, err := storage.OpenBadgerIndex(r.cfg.BadgerDir)
		if err != nil {
			return fmt.Errorf("opening index: %w", err)
		}
		r.closers = append(r.closers, idx)
		r.index = idx
	}
	return nil
}

// openCatalog opens DBPath, or BANDPRINT_DB_PATH when DBPath is empty.
func (r *Recognizer) openCatalog() (*storage.DBClient, error) {
	if r.cfg.DBPath == "" {
		return storage.NewDBClient()
	}
	return storage.NewDBClientWithPath(r.cfg.DBPath)
}

// Close releases the backends the recognizer opened itself.
func (r *Recognizer) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// SampleRate is the rate raw audio passed to Recognize must have.
func (r *Recognizer) SampleRate() int { return r.cfg.SampleRate }

// SliceDuration is the play time covered by one time slice.
func (r *Recognizer) SliceDuration() time.Duration {
	return r.transformer.SliceDuration(r.cfg.SampleRate)
}

// keyPoints runs the transform and the extractor over raw audio.
func (r *Recognizer) keyPoints(ctx context.Context, raw []byte) ([]fingerprint.KeyPoints, error) {
	frames, err := r.transformer.Transform(raw)
	if err != nil {
		return nil, err
	}
	return fingerprint.ExtractKeyPointsParallel(ctx, frames, r.bands, r.cfg.Workers)
}

// Recognize identifies raw audio (16-bit little-endian mono PCM at
// SampleRate). The result is ordered by score descending, ties by song ID.
// Silence, or audio shorter than one slice, yields an empty list.
func (r *Recognizer) Recognize(ctx context.Context, raw []byte) ([]models.MatchResult, error) {
	start := time.Now()

	rows, err := r.keyPoints(ctx, raw)
	if err != nil {
		return nil, err
	}
	audible := 0
	for _, row := range rows {
		if !row.IsSilent() {
			audible++
		}
	}
	r.log.Debugf("Query has %d slices, %d audible", len(rows), audible)
	if audible == 0 {
		return []models.MatchResult{}, nil
	}

	scores, err := r.aggregator.Score(ctx, rows)
	if err != nil {
		return nil, err
	}
	r.log.Debugf("Found %d candidate songs", len(scores))

	match.SortScores(scores)
	values := make([]int, len(scores))
	for i, s := range scores {
		values[i] = s.Score
	}
	prominence := match.Prominence(values)

	if r.cfg.MaxResults > 0 && len(scores) > r.cfg.MaxResults {
		scores = scores[:r.cfg.MaxResults]
	}
	ranked, err := match.Rank(ctx, scores, r.catalog)
	if err != nil {
		return nil, err
	}

	slice := r.SliceDuration()
	results := make([]models.MatchResult, 0, len(ranked))
	for i, m := range ranked {
		song, err := r.catalog.GetSong(ctx, m.SongID)
		if err != nil {
			return nil, fmt.Errorf("resolving song %d: %w", m.SongID, err)
		}
		results = append(results, models.MatchResult{
			SongID:     m.SongID,
			Title:      song.Title,
			Artist:     song.Artist,
			Score:      m.Score,
			Offset:     m.Offset,
			OffsetMs:   (time.Duration(m.Offset) * slice).Milliseconds(),
			Confidence: confidence(m.Score, audible),
			Prominence: prominence[i],
		})
	}

	if len(results) > 0 {
		r.log.Infof("Best match %q (score %d) in %v", ranked[0].Name, ranked[0].Score, time.Since(start).Round(time.Millisecond))
	} else {
		r.log.Infof("No match in %v", time.Since(start).Round(time.Millisecond))
	}
	return results, nil
}

// RecognizeFile decodes an audio file and recognizes it.
func (r *Recognizer) RecognizeFile(ctx context.Context, path string) ([]models.MatchResult, error) {
	r.log.Infof("Matching audio: %s", path)
	raw, err := r.decode(ctx, path)
	if err != nil {
		return nil, err
	}
	return r.Recognize(ctx, raw)
}

func (r *Recognizer) decode(ctx context.Context, path string) ([]byte, error) {
	return audio.Decode(ctx, path, audio.DecodeConfig{
		SampleRate: r.cfg.SampleRate,
		TempDir:    r.cfg.TempDir,
	})
}

// confidence is the share of audible query slices that landed on the best
// offset, as a percentage.
func confidence(score, audible int) float64 {
	if audible == 0 {
		return 0
	}
	c := float64(score) / float64(audible) * 100
	return math.Min(c, 100)
}

// AddSong decodes an audio file and indexes it. An empty title or artist
// is taken from the file's tags; an untagged file is titled after its name.
func (r *Recognizer) AddSong(ctx context.Context, path, title, artist string) (uint32, bool, error) {
	raw, err := r.decode(ctx, path)
	if err != nil {
		return 0, false, err
	}
	if title == "" || artist == "" {
		tags := audio.ReadTags(path)
		if title == "" {
			title = tags.Title
		}
		if artist == "" {
			artist = tags.Artist
		}
	}
	return r.AddSongPCM(ctx, raw, models.Song{Title: title, Artist: artist, Path: path})
}

// AddSongPCM indexes raw audio under the given metadata. Content that is
// already indexed returns the existing ID with created false.
func (r *Recognizer) AddSongPCM(ctx context.Context, raw []byte, song models.Song) (uint32, bool, error) {
	if song.Title == "" {
		return 0, false, fmt.Errorf("%w: song title is required", models.ErrInput)
	}
	r.log.Infof("Processing song: %s", song.Name())

	rows, err := r.keyPoints(ctx, raw)
	if err != nil {
		return 0, false, err
	}
	entries := make([]storage.Entry, 0, len(rows))
	for t, row := range rows {
		if row.IsSilent() {
			continue
		}
		hash, err := fingerprint.Hash(row, r.cfg.FuzzFactor)
		if err != nil {
			return 0, false, fmt.Errorf("slice %d: %w", t, err)
		}
		entries = append(entries, storage.Entry{Hash: hash, Point: models.DataPoint{Time: t}})
	}
	r.log.Debugf("Extracted %d slices, %d fingerprints", len(rows), len(entries))

	song.DurationMs = audio.DurationMs(raw, r.cfg.SampleRate)
	songID, created, err := r.catalog.RegisterSong(ctx, song, storage.Checksum(raw))
	if err != nil {
		return 0, false, fmt.Errorf("%w: registering song: %w", models.ErrIndex, err)
	}
	if !created {
		r.log.Infof("Song already indexed as ID=%d", songID)
		return songID, false, nil
	}

	for i := range entries {
		entries[i].Point.SongID = songID
	}
	if err := r.index.Store(ctx, entries); err != nil {
		storeErr := fmt.Errorf("%w: storing fingerprints: %w", models.ErrIndex, err)
		// roll back with a fresh context: ctx may be the reason Store failed
		if rbErr := r.rollback(context.WithoutCancel(ctx), songID); rbErr != nil {
			return 0, false, errors.Join(storeErr, rbErr)
		}
		return 0, false, storeErr
	}

	r.log.Infof("Successfully added song ID=%d (%d fingerprints)", songID, len(entries))
	return songID, true, nil
}

// rollback undoes a half-indexed song. A catalog row left behind would make
// the same audio look indexed forever, so every failure is reported.
func (r *Recognizer) rollback(ctx context.Context, songID uint32) error {
	var errs []error
	if err := r.index.DeleteFingerprints(ctx, songID); err != nil {
		r.log.Errorf("Rollback of song ID=%d: deleting fingerprints: %v", songID, err)
		errs = append(errs, fmt.Errorf("rolling back fingerprints of song %d: %w", songID, err))
	}
	if err := r.catalog.RemoveSong(ctx, songID); err != nil {
		r.log.Errorf("Rollback of song ID=%d: removing catalog entry: %v", songID, err)
		errs = append(errs, fmt.Errorf("rolling back catalog entry of song %d: %w", songID, err))
	}
	return errors.Join(errs...)
}

// IndexFiles adds every path with up to Workers files in flight. A failing
// file is reported in its IndexResult and does not stop the others; only
// cancellation aborts the batch. onDone, if set, is called once per file
// from the worker goroutines.
func (r *Recognizer) IndexFiles(ctx context.Context, paths []string, onDone func(IndexResult)) ([]IndexResult, error) {
	results := make([]IndexResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			id, created, err := r.AddSong(gctx, path, "", "")
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.log.Warnf("Skipping %s: %v", path, err)
			}
			results[i] = IndexResult{Path: path, SongID: id, Created: created, Err: err}
			if onDone != nil {
				onDone(results[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// IndexDirectory indexes every audio file below dir.
func (r *Recognizer) IndexDirectory(ctx context.Context, dir string, onDone func(IndexResult)) ([]IndexResult, error) {
	paths, err := audio.FindAudioFiles(dir)
	if err != nil {
		return nil, err
	}
	r.log.Infof("Indexing %d files from %s", len(paths), dir)
	return r.IndexFiles(ctx, paths, onDone)
}

func (r *Recognizer) GetSong(ctx context.Context, songID uint32) (models.Song, error) {
	return r.catalog.GetSong(ctx, songID)
}

func (r *Recognizer) ListSongs(ctx context.Context) ([]models.Song, error) {
	return r.catalog.ListSongs(ctx)
}

// DeleteSong removes a song and its fingerprints.
func (r *Recognizer) DeleteSong(ctx context.Context, songID uint32) error {
	if _, err := r.catalog.GetSong(ctx, songID); err != nil {
		return err
	}
	// one database holds both: delete in a single transaction
	if db, ok := r.catalog.(*storage.DBClient); ok && r.index == storage.FingerprintStore(db) {
		if err := db.DeleteSongByID(ctx, songID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return err
			}
			return fmt.Errorf("%w: %w", models.ErrIndex, err)
		}
		r.log.Infof("Deleted song ID=%d", songID)
		return nil
	}
	if err := r.index.DeleteFingerprints(ctx, songID); err != nil {
		return fmt.Errorf("%w: %w", models.ErrIndex, err)
	}
	if err := r.catalog.RemoveSong(ctx, songID); err != nil {
		return err
	}
	r.log.Infof("Deleted song ID=%d", songID)
	return nil
}

func (r *Recognizer) Stats(ctx context.Context) (models.Stats, error) {
	songs, err := r.catalog.CountSongs(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	fps, err := r.index.Count(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%w: %w", models.ErrIndex, err)
	}
	return models.Stats{Songs: songs, Fingerprints: fps}, nil
}
