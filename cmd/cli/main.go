package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/himanishpuri/soundmark/pkg/logger"
	"github.com/himanishpuri/soundmark/pkg/soundmark"
	"github.com/joho/godotenv"
)

// Global flags
var (
	dbPath  string
	backend string
	workers int
	verbose bool
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

// createService creates a new soundmark service with configured options
func createService() (soundmark.Service, error) {
	b, err := soundmark.ParseBackend(backend)
	if err != nil {
		return nil, err
	}

	opts := []soundmark.Option{
		soundmark.WithBackend(b),
		soundmark.WithWorkers(workers),
		soundmark.WithProgress(os.Stderr),
	}
	if dbPath != "" {
		opts = append(opts, soundmark.WithDBPath(dbPath))
	}
	return soundmark.NewService(opts...)
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	flag.StringVar(&dbPath, "db", os.Getenv("SOUNDMARK_DB_PATH"),
		"Database file (sqlite) or directory (badger) (env: SOUNDMARK_DB_PATH)")
	flag.StringVar(&backend, "backend", getEnvOrDefault("SOUNDMARK_BACKEND", "sqlite"),
		"Storage backend: sqlite or badger (env: SOUNDMARK_BACKEND)")
	flag.IntVar(&workers, "workers", getEnvIntOrDefault("SOUNDMARK_WORKERS", runtime.NumCPU()),
		"Parallel decoders for index (env: SOUNDMARK_WORKERS)")
	flag.BoolVar(&verbose, "v", false, "Debug logging with caller locations")
	flag.Usage = printUsage
	flag.Parse()

	log := logger.GetLogger()
	if verbose {
		log.SetLevel(logger.DEBUG)
		log.SetShowCaller(true)
	}

	printBanner()

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
	case "search":
		err = handleSearch(rest)
	case "list":
		err = handleList(rest)
	case "delete":
		err = handleDelete(rest)
	case "stats":
		err = handleStats(rest)
	case "probe":
		err = handleProbe(rest)
	case "spectrogram":
		err = handleSpectrogram(rest)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("\n❌ %s failed: %v\n", command, err)
		log.Errorf("%s failed: %v", command, err)
		os.Exit(1)
	}
}

func printBanner() {
	banner := `
 ___  ___  _   _ _ __   __| |_ __ ___   __ _ _ __| | __
/ __|/ _ \| | | | '_ \ / _' | '_ ' _ \ / _' | '__| |/ /
\__ \ (_) | |_| | | | | (_| | | | | | | (_| | |  |   <
|___/\___/ \__,_|_| |_|\__,_|_| |_| |_|\__,_|_|  |_|\_\

           Audio Fingerprinting CLI Tool
`
	fmt.Println(banner)
}

func printUsage() {
	fmt.Println("soundmark - Audio Fingerprinting CLI")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  -db <path>         Database file or directory (env: SOUNDMARK_DB_PATH)")
	fmt.Println("  -backend <name>    sqlite or badger (env: SOUNDMARK_BACKEND, default: sqlite)")
	fmt.Println("  -workers <n>       Parallel decoders for index (env: SOUNDMARK_WORKERS, default: CPU count)")
	fmt.Println("  -v                 Debug logging")
	fmt.Println("\nUsage:")
	fmt.Println("  soundmark [global-options] index <dir>")
	fmt.Println("  soundmark [global-options] add [-title <title>] <audio_file>")
	fmt.Println("  soundmark [global-options] search [-n <count>] <audio_file>")
	fmt.Println("  soundmark [global-options] list")
	fmt.Println("  soundmark [global-options] delete <song_id>")
	fmt.Println("  soundmark [global-options] stats")
	fmt.Println("  soundmark probe <audio_file>")
	fmt.Println("  soundmark spectrogram [-out <path>] [-width <px>] [-height <px>] <audio_file|dir>")
	fmt.Println("\nExamples:")
	fmt.Println("  # Index a folder of songs")
	fmt.Println("  soundmark -db library.sqlite3 index ./music")
	fmt.Println()
	fmt.Println("  # Identify a recording, top 3")
	fmt.Println("  soundmark -db library.sqlite3 search -n 3 clip.wav")
	fmt.Println()
	fmt.Println("  # Same, on the key-value store")
	fmt.Println("  soundmark -backend badger -db ./library.badger search clip.mp3")
}
