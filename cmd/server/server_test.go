package main

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/himanishpuri/soundmark/pkg/logger"
	"github.com/himanishpuri/soundmark/pkg/soundmark"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	svc, err := soundmark.NewService(
		soundmark.WithDBPath(filepath.Join(t.TempDir(), "server.sqlite3")),
		soundmark.WithLogger(logger.Discard()),
	)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	srv := NewServer(svc, &ServerConfig{Backend: soundmark.BackendSQLite, AllowedOrigins: []string{"*"}})
	srv.log = logger.Discard()
	return srv, srv.setupRoutes()
}

// toneWAV returns a 16-bit mono 44.1 kHz WAV with a few steady tones.
func toneWAV(t *testing.T, seconds float64) []byte {
	t.Helper()

	const rate = 44100
	n := int(seconds * rate)
	data := make([]int, n)
	for i := range data {
		x := float64(i) / rate
		v := math.Sin(2*math.Pi*320*x) + math.Sin(2*math.Pi*650*x) + math.Sin(2*math.Pi*1300*x)
		if (i/(rate/5))%2 == 1 {
			v += math.Sin(2 * math.Pi * 2100 * x)
		}
		data[i] = int(v / 4 * 20000)
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create WAV: %v", err)
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("Failed to write WAV: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to close encoder: %v", err)
	}
	f.Close()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read WAV: %v", err)
	}
	return b
}

func multipartRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", rec.Code)
	}

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/health/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/health/metrics = %d", rec.Code)
	}
	m := decode[MetricsResponse](t, rec)
	if m.Backend != "sqlite" || m.SongCount != 0 || m.Pipeline.WindowSize != 1024 || m.Pipeline.NeighborhoodSize != 5 {
		t.Errorf("Unexpected metrics: %+v", m)
	}
}

func TestSongLifecycle(t *testing.T) {
	_, h := newTestServer(t)
	clip := toneWAV(t, 3)

	rec := do(h, multipartRequest(t, "/api/songs", "tones.wav", clip, map[string]string{"title": "Tones"}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/songs = %d: %s", rec.Code, rec.Body.String())
	}
	added := decode[AddSongResponse](t, rec)
	if added.Song.Title != "Tones" || added.Song.ID == 0 || added.Song.DurationMs != 3000 {
		t.Errorf("Unexpected song: %+v", added.Song)
	}

	rec = do(h, httptest.NewRequest(http.MethodGet, "/api/songs", nil))
	list := decode[ListSongsResponse](t, rec)
	if list.Count != 1 {
		t.Fatalf("Expected 1 song, got %+v", list)
	}

	rec = do(h, multipartRequest(t, "/api/search?rank=3", "query.wav", clip, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/search = %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[SearchResponse](t, rec)
	if res.Count != 1 || res.Matches[0].SongID != added.Song.ID || res.Matches[0].Score <= 0 {
		t.Errorf("Unexpected search result: %+v", res)
	}

	id := "/api/songs/" + strconv.FormatUint(uint64(added.Song.ID), 10)
	rec = do(h, httptest.NewRequest(http.MethodGet, id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d", id, rec.Code)
	}
	if got := decode[SongDTO](t, rec); got.Fingerprints == 0 {
		t.Errorf("Expected fingerprint count in %+v", got)
	}
	if rec := do(h, httptest.NewRequest(http.MethodDelete, id, nil)); rec.Code != http.StatusOK {
		t.Errorf("DELETE %s = %d", id, rec.Code)
	}
	if rec := do(h, httptest.NewRequest(http.MethodGet, id, nil)); rec.Code != http.StatusNotFound {
		t.Errorf("GET %s after delete = %d, want 404", id, rec.Code)
	}
}

func TestSearchFingerprints(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"fingerprints":`, http.StatusBadRequest},
		{"empty", `{"fingerprints":[]}`, http.StatusBadRequest},
		{"negative rank", `{"fingerprints":[{"address":1}],"rank":-1}`, http.StatusBadRequest},
		{"no matches", `{"fingerprints":[{"address":1,"anchor_address":2,"anchor_time":3}]}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/search/fingerprints", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := do(h, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestBadRequests(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"bad id", httptest.NewRequest(http.MethodGet, "/api/songs/abc", nil), http.StatusBadRequest},
		{"missing song", httptest.NewRequest(http.MethodDelete, "/api/songs/42", nil), http.StatusNotFound},
		{"no form", httptest.NewRequest(http.MethodPost, "/api/songs", nil), http.StatusBadRequest},
		{"unsupported upload", multipartRequest(t, "/api/search", "clip.flac", []byte("fLaC"), nil), http.StatusUnsupportedMediaType},
		{"wrong method", httptest.NewRequest(http.MethodPut, "/api/songs", nil), http.StatusMethodNotAllowed},
		{"unknown path", httptest.NewRequest(http.MethodGet, "/api/nope", nil), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(h, tt.req); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCORS(t *testing.T) {
	h := corsMiddleware([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/songs", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := do(h, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("Preflight: %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/songs", nil)
	req.Header.Set("Origin", "https://other.example")
	rec = do(h, req)
	if rec.Code != http.StatusTeapot || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("Foreign origin: %d %v", rec.Code, rec.Header())
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := getClientIP(req); got != "10.0.0.1" {
		t.Errorf("RemoteAddr: got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	if got := getClientIP(req); got != "1.2.3.4" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}
}
