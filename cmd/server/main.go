package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/bandprint/internal/audio"
	"github.com/himanishpuri/bandprint/internal/service"
	"github.com/himanishpuri/bandprint/internal/storage"
	"github.com/himanishpuri/bandprint/pkg/logger"
)

var (
	port           int
	dbPath         string
	backend        string
	badgerDir      string
	tempDir        string
	sampleRate     int
	workers        int
	maxResults     int
	allowedOrigins string
)

func registerFlags() {
	flag.IntVar(&port, "port", getEnvIntOrDefault("BANDPRINT_PORT", 8080), "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("BANDPRINT_DB_PATH", storage.DefaultDBFile), "Path to the SQLite catalog")
	flag.StringVar(&backend, "backend", getEnvOrDefault("BANDPRINT_INDEX_BACKEND", string(service.BackendSQLite)), "Fingerprint index backend: sqlite, badger or memory")
	flag.StringVar(&badgerDir, "badger", getEnvOrDefault("BANDPRINT_BADGER_DIR", storage.DefaultBadgerDir), "Badger index directory (badger backend)")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("BANDPRINT_TEMP_DIR", os.TempDir()), "Temporary directory")
	flag.IntVar(&sampleRate, "rate", getEnvIntOrDefault("BANDPRINT_SAMPLE_RATE", audio.DefaultSampleRate), "Audio sample rate")
	flag.IntVar(&workers, "workers", getEnvIntOrDefault("BANDPRINT_WORKERS", runtime.NumCPU()), "Parallel workers for extraction and matching")
	flag.IntVar(&maxResults, "limit", getEnvIntOrDefault("BANDPRINT_MAX_RESULTS", 10), "Maximum matches per response (0 = all)")
	flag.StringVar(&allowedOrigins, "origins", getEnvOrDefault("BANDPRINT_ALLOWED_ORIGINS", "*"), "Comma-separated list of allowed CORS origins (use * for all)")
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

func parseOrigins(s string) []string {
	if s == "*" {
		return []string{"*"}
	}
	origins := strings.Split(s, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	registerFlags()
	flag.Parse()

	log := logger.GetLogger()

	b, err := service.ParseBackend(backend)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	svc, err := service.New(
		service.WithDBPath(dbPath),
		service.WithIndexBackend(b),
		service.WithBadgerDir(badgerDir),
		service.WithTempDir(tempDir),
		service.WithSampleRate(sampleRate),
		service.WithWorkers(workers),
		service.WithMaxResults(maxResults),
		service.WithLogger(log.With("recognizer")),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer svc.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		Backend:        string(b),
		TempDir:        tempDir,
		SampleRate:     sampleRate,
		AllowedOrigins: parseOrigins(allowedOrigins),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := NewServer(svc, config, log.With("http"))
	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		svc.Close()
		os.Exit(1)
	}
}
