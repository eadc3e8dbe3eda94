package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/himanishpuri/soundmark/pkg/logger"
	"github.com/himanishpuri/soundmark/pkg/models"
	"github.com/himanishpuri/soundmark/pkg/soundmark"
	"github.com/himanishpuri/soundmark/pkg/utils"
	"github.com/mdobak/go-xerrors"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service soundmark.Service
	config  *ServerConfig
	log     soundmark.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Backend        soundmark.Backend
	DBPath         string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service soundmark.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().WithPrefix("http:"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// errBadUpload marks a malformed multipart request.
var errBadUpload = errors.New("bad upload")

// respondServiceError maps a service error kind to a status code. Server
// side failures are logged with a stack trace.
func (s *Server) respondServiceError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadUpload):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrSongNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrEmptyQuery), errors.Is(err, models.ErrContractViolation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	}

	if status == http.StatusInternalServerError {
		s.log.Errorf("%s failed: %+v", op, xerrors.New(err))
	} else {
		s.log.Warnf("%s rejected: %v", op, err)
	}
	s.respondError(w, status, fmt.Sprintf("%s: %v", op, err))
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "soundmark API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":             "GET /health",
			"metrics":            "GET /api/health/metrics",
			"songs":              "GET /api/songs",
			"addSong":            "POST /api/songs",
			"getSong":            "GET /api/songs/{id}",
			"deleteSong":         "DELETE /api/songs/{id}",
			"searchFile":         "POST /api/search",
			"searchFingerprints": "POST /api/search/fingerprints",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondServiceError(w, "metrics", err)
		return
	}

	p := s.service.Pipeline()
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:           "healthy",
		Backend:          string(s.config.Backend),
		DatabasePath:     s.config.DBPath,
		SongCount:        st.Songs,
		FingerprintCount: st.Fingerprints,
		Pipeline: PipelineDTO{
			DownsampleFactor: p.DownsampleFactor,
			WindowSize:       int(p.WindowSize),
			Overlap:          p.Overlap,
			NeighborhoodSize: p.NeighborhoodSize,
		},
	})
}

// handleListSongs handles GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := s.service.ListSongs(r.Context())
	if err != nil {
		s.respondServiceError(w, "list songs", err)
		return
	}

	dtos := make([]SongDTO, len(songs))
	for i, song := range songs {
		dtos[i] = toSongDTO(song)
	}
	s.respondJSON(w, http.StatusOK, ListSongsResponse{
		Songs: dtos,
		Count: len(dtos),
	})
}

func songIDFromPath(r *http.Request) (uint32, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid song ID %q", r.PathValue("id"))
	}
	return uint32(id), nil
}

// handleGetSong handles GET /api/songs/{id}
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	songID, err := songIDFromPath(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	song, err := s.service.GetSongByID(r.Context(), songID)
	if err != nil {
		s.respondServiceError(w, "get song", err)
		return
	}
	n, err := s.service.FingerprintCount(r.Context(), songID)
	if err != nil {
		s.respondServiceError(w, "get song", err)
		return
	}

	dto := toSongDTO(*song)
	dto.Fingerprints = n
	s.respondJSON(w, http.StatusOK, dto)
}

// handleDeleteSong handles DELETE /api/songs/{id}
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	songID, err := songIDFromPath(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.DeleteSong(r.Context(), songID); err != nil {
		s.respondServiceError(w, "delete song", err)
		return
	}

	s.respondJSON(w, http.StatusOK, DeleteSongResponse{
		Message: "Song deleted successfully",
		ID:      songID,
	})
}

// saveUpload copies the "audio" form file to a temp file that keeps the
// upload's extension, which the decoder dispatches on. The caller removes it.
func (s *Server) saveUpload(r *http.Request, maxBytes int64) (path, name string, err error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return "", "", fmt.Errorf("%w: failed to parse form data: %w", errBadUpload, err)
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", "", fmt.Errorf("%w: audio file is required: %w", errBadUpload, err)
	}
	defer file.Close()

	if !utils.IsSupportedAudio(header.Filename) {
		return "", "", fmt.Errorf("%w: %s", models.ErrUnsupportedFormat, header.Filename)
	}

	out, err := os.CreateTemp("", "soundmark_upload_*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(out.Name())
		return "", "", fmt.Errorf("failed to save uploaded file: %w", err)
	}
	return out.Name(), header.Filename, nil
}

// handleAddSong handles POST /api/songs (multipart file upload)
func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	path, name, err := s.saveUpload(r, 100<<20)
	if err != nil {
		s.respondServiceError(w, "upload", err)
		return
	}
	defer os.Remove(path)

	title := r.FormValue("title")
	if title == "" {
		title = utils.TitleFromPath(name)
	}

	songID, err := s.service.AddSong(ctx, path, title)
	if err != nil {
		s.respondServiceError(w, "add song", err)
		return
	}
	song, err := s.service.GetSongByID(ctx, songID)
	if err != nil {
		s.respondServiceError(w, "add song", err)
		return
	}

	s.log.Infof("Added song %q (ID: %d)", song.Title, song.ID)
	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message: "Song added successfully",
		Song:    toSongDTO(*song),
	})
}

// rankParam reads the optional "rank" query/form value.
func rankParam(r *http.Request) (int, error) {
	v := r.FormValue("rank")
	if v == "" {
		return DefaultRank, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid rank %q", v)
	}
	return n, nil
}

func toMatchDTOs(results []models.RankingResult) []MatchResultDTO {
	dtos := make([]MatchResultDTO, len(results))
	for i, m := range results {
		dtos[i] = MatchResultDTO{
			SongID: m.SongID,
			Title:  m.Title,
			Score:  m.Score,
		}
	}
	return dtos
}

// handleSearch handles POST /api/search (multipart file upload)
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	path, name, err := s.saveUpload(r, 50<<20)
	if err != nil {
		s.respondServiceError(w, "upload", err)
		return
	}
	defer os.Remove(path)

	rank, err := rankParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Searching with uploaded file: %s", name)
	results, err := s.service.Search(ctx, path, rank)
	if err != nil {
		s.respondServiceError(w, "search", err)
		return
	}

	matches := toMatchDTOs(results)
	s.respondJSON(w, http.StatusOK, SearchResponse{
		Matches: matches,
		Count:   len(matches),
	})
}

// handleSearchFingerprints handles POST /api/search/fingerprints (WASM clients)
func (s *Server) handleSearchFingerprints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req SearchFingerprintsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Warnf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Rank == 0 {
		req.Rank = DefaultRank
	}

	if len(req.Fingerprints) >= FingerprintWarningThreshold {
		s.log.Warnf("Large fingerprint batch received: %d", len(req.Fingerprints))
	}
	s.log.Infof("Searching %d fingerprints from client", len(req.Fingerprints))

	results, err := s.service.SearchFingerprints(ctx, req.ToFingerprints(), req.Rank)
	if err != nil {
		s.respondServiceError(w, "search", err)
		return
	}

	matches := toMatchDTOs(results)
	s.respondJSON(w, http.StatusOK, SearchResponse{
		Matches: matches,
		Count:   len(matches),
	})
}
