package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/bandprint/internal/audio"
	"github.com/himanishpuri/bandprint/internal/service"
	"github.com/himanishpuri/bandprint/internal/storage"
	"github.com/himanishpuri/bandprint/pkg/logger"
)

// Global flags
var (
	dbPath     string
	backend    string
	badgerDir  string
	tempDir    string
	sampleRate int
	workers    int
	maxResults int
	verbose    bool
)

func registerFlags() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("BANDPRINT_DB_PATH", storage.DefaultDBFile), "Path to the SQLite catalog")
	flag.StringVar(&backend, "backend", getEnvOrDefault("BANDPRINT_INDEX_BACKEND", string(service.BackendSQLite)), "Fingerprint index backend: sqlite or badger")
	flag.StringVar(&badgerDir, "badger", getEnvOrDefault("BANDPRINT_BADGER_DIR", storage.DefaultBadgerDir), "Badger index directory (badger backend)")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("BANDPRINT_TEMP_DIR", os.TempDir()), "Directory for temporary audio conversion files")
	flag.IntVar(&sampleRate, "rate", getEnvIntOrDefault("BANDPRINT_SAMPLE_RATE", audio.DefaultSampleRate), "Audio sample rate for processing")
	flag.IntVar(&workers, "workers", getEnvIntOrDefault("BANDPRINT_WORKERS", runtime.NumCPU()), "Parallel workers for extraction, matching and indexing")
	flag.IntVar(&maxResults, "limit", 10, "Maximum number of matches to report (0 = all)")
	flag.BoolVar(&verbose, "v", false, "Verbose (debug) logging")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// createService creates a recognizer with the configured options
func createService() (*service.Recognizer, error) {
	b, err := service.ParseBackend(backend)
	if err != nil {
		return nil, err
	}
	return service.New(
		service.WithDBPath(dbPath),
		service.WithIndexBackend(b),
		service.WithBadgerDir(badgerDir),
		service.WithTempDir(tempDir),
		service.WithSampleRate(sampleRate),
		service.WithWorkers(workers),
		service.WithMaxResults(maxResults),
		service.WithLogger(logger.GetLogger().With("recognizer")),
	)
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	registerFlags()
	flag.Usage = printUsage
	flag.Parse()

	log := logger.GetLogger()
	if verbose {
		log.SetLevel(logger.DEBUG)
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]
	log.Debugf("Executing command: %s", command)

	var err error
	switch command {
	case "index":
		err = handleIndex(rest)
	case "add":
		err = handleAdd(rest)
	case "match":
		err = handleMatch(rest)
	case "list":
		err = handleList()
	case "stats":
		err = handleStats()
	case "delete":
		err = handleDelete(rest)
	case "render":
		err = handleRender(rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		log.Debugf("%s failed: %v", command, err)
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Println(`
  _                     _            _       _
 | |__   __ _ _ __   __| |_ __  _ __(_)_ __ | |_
 | '_ \ / _' | '_ \ / _' | '_ \| '__| | '_ \| __|
 | |_) | (_| | | | | (_| | |_) | |  | | | | | |_
 |_.__/ \__,_|_| |_|\__,_| .__/|_|  |_|_| |_|\__|
                         |_|
          Audio Fingerprinting CLI Tool`)
}

func printUsage() {
	printBanner()
	fmt.Println("\nUsage:")
	fmt.Println("  bandprint [global-options] index <dir>")
	fmt.Println("  bandprint [global-options] add <audio_file> [-title <title>] [-artist <artist>]")
	fmt.Println("  bandprint [global-options] match <audio_file>")
	fmt.Println("  bandprint [global-options] list")
	fmt.Println("  bandprint [global-options] stats")
	fmt.Println("  bandprint [global-options] delete <song_id>")
	fmt.Println("  bandprint [global-options] render <wav_file> <png_file> [-width 2048] [-height 512]")
	fmt.Println("\nGlobal Options:")
	flag.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  bandprint index ~/Music")
	fmt.Println("  bandprint -backend badger match recording.wav")
}
