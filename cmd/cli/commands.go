package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/himanishpuri/bandprint/internal/audio"
	"github.com/himanishpuri/bandprint/internal/service"
	"github.com/himanishpuri/bandprint/pkg/logger"
	"github.com/himanishpuri/bandprint/pkg/models"
	"github.com/himanishpuri/bandprint/pkg/utils"
)

// interruptible returns a context canceled on Ctrl-C.
func interruptible(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// splitArgs separates leading positional arguments from trailing flags, so
// both "add song.mp3 -title x" and "add -title x song.mp3" work.
func splitArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for len(args) > 0 {
		if strings.HasPrefix(args[0], "-") {
			if err := fs.Parse(args); err != nil {
				return nil, err
			}
			args = fs.Args()
			continue
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
	return positional, nil
}

func handleIndex(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: bandprint index <dir>")
	}
	dir := args[0]

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	files, err := findFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No audio files found in %s\n", dir)
		return nil
	}

	ctx, cancel := interruptible(0)
	defer cancel()

	// keep log lines from tearing the progress bar
	log := logger.GetLogger()
	level := log.Level()
	log.SetLevel(logger.ERROR)
	defer log.SetLevel(level)

	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("Indexing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)

	start := time.Now()
	results, err := svc.IndexFiles(ctx, files, func(service.IndexResult) { bar.Increment() })
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	if err != nil {
		return fmt.Errorf("indexing interrupted: %w", err)
	}

	var added, known, failed int
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "  skipped %s: %v\n", res.Path, res.Err)
		case res.Created:
			added++
		default:
			known++
		}
	}
	fmt.Printf("\nIndexed %s files in %v: %s new, %s already known, %s failed\n",
		humanize.Comma(int64(len(results))), time.Since(start).Round(time.Millisecond),
		humanize.Comma(int64(added)), humanize.Comma(int64(known)), humanize.Comma(int64(failed)))
	return nil
}

func handleAdd(args []string) error {
	addCmd := flag.NewFlagSet("add", flag.ContinueOnError)
	title := addCmd.String("title", "", "Song title (default: from tags or file name)")
	artist := addCmd.String("artist", "", "Artist name (default: from tags)")
	positional, err := splitArgs(addCmd, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return errors.New("usage: bandprint add <audio_file> [-title <title>] [-artist <artist>]")
	}
	audioPath := positional[0]

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := interruptible(5 * time.Minute)
	defer cancel()

	songID, created, err := svc.AddSong(ctx, audioPath, *title, *artist)
	if err != nil {
		return fmt.Errorf("failed to add song: %w", err)
	}
	song, err := svc.GetSong(ctx, songID)
	if err != nil {
		return err
	}

	if created {
		fmt.Println("Successfully added song to the index")
	} else {
		fmt.Println("Song was already indexed")
	}
	fmt.Printf("   ID:       %d\n", song.ID)
	fmt.Printf("   Title:    %s\n", song.Title)
	fmt.Printf("   Artist:   %s\n", song.Artist)
	fmt.Printf("   Duration: %s\n", formatDuration(song.DurationMs))
	return nil
}

func handleMatch(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: bandprint match <audio_file>")
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := interruptible(2 * time.Minute)
	defer cancel()

	results, err := svc.RecognizeFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to match: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No matches found")
		return nil
	}

	for i, r := range results {
		name := models.Song{Title: r.Title, Artist: r.Artist}.Name()
		fmt.Printf("%d. %s\n", i+1, models.RankedMatch{SongID: r.SongID, Name: name, Score: r.Score, Offset: r.Offset})
		fmt.Printf("   ID: %d | Confidence: %.1f%% | Prominence: %+.2f | Offset: %dms\n",
			r.SongID, r.Confidence, r.Prominence, r.OffsetMs)
	}
	return nil
}

func handleList() error {
	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	songs, err := svc.ListSongs(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list songs: %w", err)
	}
	if len(songs) == 0 {
		fmt.Println("No songs in the index")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tARTIST\tDURATION")
	for _, s := range songs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Title, s.Artist, formatDuration(s.DurationMs))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%s song(s)\n", humanize.Comma(int64(len(songs))))
	return nil
}

func handleStats() error {
	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	stats, err := svc.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Songs:        %s\n", humanize.Comma(stats.Songs))
	fmt.Printf("Fingerprints: %s\n", humanize.Comma(stats.Fingerprints))
	if stats.Songs > 0 {
		fmt.Printf("Per song:     %s\n", humanize.Comma(stats.Fingerprints/stats.Songs))
	}
	if fi, err := os.Stat(dbPath); err == nil {
		fmt.Printf("Catalog:      %s (%s)\n", dbPath, humanize.Bytes(uint64(fi.Size())))
	}
	if backend == string(service.BackendBadger) {
		fmt.Printf("Index:        %s (%s)\n", badgerDir, humanize.Bytes(utils.DirSize(badgerDir)))
	}
	return nil
}

func handleDelete(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: bandprint delete <song_id>")
	}
	songID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid song ID: %w", err)
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx := context.Background()
	song, err := svc.GetSong(ctx, uint32(songID))
	if err != nil {
		return err
	}
	if err := svc.DeleteSong(ctx, song.ID); err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}

	fmt.Println("Successfully deleted song:")
	fmt.Printf("   ID:     %d\n", song.ID)
	fmt.Printf("   Title:  %s\n", song.Title)
	fmt.Printf("   Artist: %s\n", song.Artist)
	return nil
}

func formatDuration(ms int) string {
	if ms <= 0 {
		return "-"
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// findFiles accepts a directory or a single audio file.
func findFiles(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}
	return audio.FindAudioFiles(path)
}
