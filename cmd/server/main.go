//go:build !js && !wasm

package main

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/himanishpuri/soundmark/pkg/logger"
	"github.com/himanishpuri/soundmark/pkg/soundmark"
	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	_ = godotenv.Load()

	defaultPort, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		defaultPort = 8080
	}

	var (
		port           int
		dbPath         string
		backendName    string
		allowedOrigins string
	)
	flag.IntVar(&port, "port", defaultPort, "HTTP server port (env: PORT)")
	flag.StringVar(&dbPath, "db", os.Getenv("SOUNDMARK_DB_PATH"), "Database file or directory (env: SOUNDMARK_DB_PATH)")
	flag.StringVar(&backendName, "backend", getEnvOrDefault("SOUNDMARK_BACKEND", "sqlite"), "Storage backend: sqlite or badger")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
	flag.Parse()

	log := logger.GetLogger()

	backend, err := soundmark.ParseBackend(backendName)
	if err != nil {
		log.Fatalf("%v", err)
	}

	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	opts := []soundmark.Option{soundmark.WithBackend(backend)}
	if dbPath != "" {
		opts = append(opts, soundmark.WithDBPath(dbPath))
	}
	service, err := soundmark.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %+v", xerrors.New(err))
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           port,
		Backend:        backend,
		DBPath:         dbPath,
		AllowedOrigins: origins,
	})
	if err := server.Start(); err != nil {
		log.Errorf("Server failed: %+v", xerrors.New(err))
	}
}
