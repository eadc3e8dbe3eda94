package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SupportedAudioExtensions lists the containers the decoder can read.
var SupportedAudioExtensions = []string{".wav", ".mp3"}

// MakeDir creates a directory with all parent directories
func MakeDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// IsSupportedAudio reports whether path has a decodable audio extension.
func IsSupportedAudio(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedAudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// TitleFromPath derives a song title from a file name: "dir/My Song.mp3" -> "My Song".
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListAudioFiles returns the supported audio files directly inside dir,
// sorted by name. Subdirectories are not traversed.
func ListAudioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsSupportedAudio(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
