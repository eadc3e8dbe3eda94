package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/himanishpuri/soundmark/pkg/logger"
	"github.com/himanishpuri/soundmark/pkg/soundmark"
	"github.com/himanishpuri/soundmark/pkg/soundmark/audio"
	"github.com/himanishpuri/soundmark/pkg/soundmark/fingerprint"
	"github.com/himanishpuri/soundmark/pkg/utils"
)

// parseArgs parses fs and requires exactly one positional argument.
func parseArgs(fs *flag.FlagSet, args []string, usage string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("usage: soundmark %s", usage)
	}
	return fs.Arg(0), nil
}

func handleIndex(args []string) error {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("index", flag.ExitOnError)
	dir, err := parseArgs(fs, args, "index <dir>")
	if err != nil {
		return err
	}

	fmt.Println("🔧 Initializing service...")
	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("🎵 Indexing %s...\n", dir)
	start := time.Now()
	report, err := svc.IndexDirectory(ctx, dir)
	if err != nil {
		return err
	}

	fmt.Printf("\n✅ Indexed %d song(s), %d fingerprints in %s\n",
		len(report.Indexed), report.Fingerprints, time.Since(start).Round(time.Millisecond))
	for _, song := range report.Indexed {
		fmt.Printf("   %4d  %s\n", song.ID, song.Title)
	}
	if len(report.Skipped) > 0 {
		fmt.Printf("\n⏭  Skipped %d file(s):\n", len(report.Skipped))
		for _, sk := range report.Skipped {
			fmt.Printf("   %s (%s)\n", filepath.Base(sk.Path), sk.Reason)
		}
	}
	log.Infof("Index of %s complete", dir)
	return nil
}

func handleAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	title := fs.String("title", "", "Song title (default: file name)")
	path, err := parseArgs(fs, args, "add [-title <title>] <audio_file>")
	if err != nil {
		return err
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Println("🎵 Processing audio file...")
	songID, err := svc.AddSong(ctx, path, *title)
	if err != nil {
		return err
	}

	song, err := svc.GetSongByID(ctx, songID)
	if err != nil {
		return err
	}
	fmt.Println("\n✅ Song is in the database!")
	fmt.Printf("   ID:       %d\n", song.ID)
	fmt.Printf("   Title:    %s\n", song.Title)
	fmt.Printf("   Duration: %s\n", formatDuration(song.DurationMs))
	if n, err := svc.FingerprintCount(ctx, songID); err == nil {
		fmt.Printf("   Hashes:   %d\n", n)
	}
	return nil
}

func handleSearch(args []string) error {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	n := fs.Int("n", 5, "Number of results to show")
	path, err := parseArgs(fs, args, "search [-n <count>] <audio_file>")
	if err != nil {
		return err
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("🔍 Analyzing audio file...")
	results, err := svc.Search(ctx, path, *n)
	if errors.Is(err, soundmark.ErrEmptyQuery) {
		fmt.Println("\n❌ Clip is too short or too quiet to fingerprint")
		return nil
	}
	if err != nil {
		return err
	}

	log.Infof("Search complete: found %d results", len(results))
	if len(results) == 0 {
		fmt.Println("\n❌ No matches found in database")
		return nil
	}

	fmt.Printf("\n✅ Found %d match(es)!\n\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %q (ID: %d)  score %d\n", i+1, r.Title, r.SongID, r.Score)
	}
	return nil
}

func handleList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	songs, err := svc.ListSongs(context.Background())
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		fmt.Println("📭 No songs in database")
		return nil
	}

	fmt.Printf("📚 Found %d song(s):\n\n", len(songs))
	for _, song := range songs {
		fmt.Printf("%4d  %-40s %8s  %s\n", song.ID, song.Title, formatDuration(song.DurationMs), song.Checksum)
	}
	return nil
}

func handleDelete(args []string) error {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	arg, err := parseArgs(fs, args, "delete <song_id>")
	if err != nil {
		return err
	}
	songID, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid song ID %q: %w", arg, err)
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx := context.Background()
	song, err := svc.GetSongByID(ctx, uint32(songID))
	if err != nil {
		return err
	}
	if err := svc.DeleteSong(ctx, song.ID); err != nil {
		return err
	}

	fmt.Printf("✅ Deleted song %d (%s)\n", song.ID, song.Title)
	log.Infof("Deleted song ID=%d (%s)", song.ID, song.Title)
	return nil
}

func handleStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := createService()
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	st, err := svc.Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Songs:        %d\n", st.Songs)
	fmt.Printf("Fingerprints: %d\n", st.Fingerprints)
	return nil
}

func handleProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	path, err := parseArgs(fs, args, "probe <audio_file>")
	if err != nil {
		return err
	}

	meta, err := audio.Probe(path)
	if err != nil {
		return err
	}
	fmt.Printf("File:        %s\n", meta.Filename)
	fmt.Printf("Format:      %s\n", meta.Format)
	fmt.Printf("Duration:    %.2fs\n", meta.DurationSec)
	fmt.Printf("Sample rate: %d Hz\n", meta.SampleRate)
	fmt.Printf("Channels:    %d\n", meta.Channels)
	fmt.Printf("Bit depth:   %d\n", meta.BitDepth)
	return nil
}

// handleSpectrogram renders one file to a PNG, or every supported file of
// a directory into an output directory.
func handleSpectrogram(args []string) error {
	log := logger.GetLogger()

	fs := flag.NewFlagSet("spectrogram", flag.ExitOnError)
	out := fs.String("out", "", "Output PNG (file input) or directory (dir input)")
	width := fs.Int("width", fingerprint.DefaultRenderOptions.Width, "Image width in pixels")
	height := fs.Int("height", fingerprint.DefaultRenderOptions.Height, "Image height in pixels")
	in, err := parseArgs(fs, args, "spectrogram [-out <path>] [-width <px>] [-height <px>] <audio_file|dir>")
	if err != nil {
		return err
	}
	opts := fingerprint.RenderOptions{Width: *width, Height: *height}

	info, err := os.Stat(in)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		dst := *out
		if dst == "" {
			dst = utils.TitleFromPath(in) + ".png"
		}
		return renderFile(in, dst, opts)
	}

	outDir := *out
	if outDir == "" {
		outDir = "spectrograms"
	}
	if err := utils.MakeDir(outDir); err != nil {
		return err
	}
	files, err := utils.ListAudioFiles(in)
	if err != nil {
		return err
	}
	for _, f := range files {
		dst := filepath.Join(outDir, utils.TitleFromPath(f)+".png")
		if err := renderFile(f, dst, opts); err != nil {
			log.Warnf("Skipping %s: %v", f, err)
		}
	}
	return nil
}

func renderFile(src, dst string, opts fingerprint.RenderOptions) error {
	s, err := audio.Decode(src)
	if err != nil {
		return err
	}
	if err := fingerprint.RenderPNG(s, dst, opts); err != nil {
		return err
	}
	fmt.Printf("🖼  %s -> %s\n", src, dst)
	return nil
}

func formatDuration(ms int) string {
	sec := ms / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
