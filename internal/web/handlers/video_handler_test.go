package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"VideoCoach-admin/internal/models"
)

type stubVideoStore struct {
	mu     sync.Mutex
	videos map[int64]*models.Video
	nextID int64
}

func newStubVideoStore(videos ...*models.Video) *stubVideoStore {
	s := &stubVideoStore{videos: make(map[int64]*models.Video), nextID: 100}
	for _, v := range videos {
		s.videos[v.ID] = v
	}
	return s
}

func (s *stubVideoStore) FindOrCreateVideo(userID int64, videoURL string) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if videoURL != "" {
		for _, v := range s.videos {
			if v.UserID == userID && v.VideoURL.String == videoURL {
				return v, nil
			}
		}
	}
	s.nextID++
	v := &models.Video{
		ID:       s.nextID,
		UserID:   userID,
		VideoURL: sql.NullString{String: videoURL, Valid: videoURL != ""},
		Status:   models.StatusPending,
	}
	s.videos[v.ID] = v
	return v, nil
}

func (s *stubVideoStore) GetVideoByID(videoID int64) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "動画", ID: videoID}
	}
	return v, nil
}

func (s *stubVideoStore) ListVideosByUser(userID int64) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Video
	for _, v := range s.videos {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *stubVideoStore) UpdateVideo(videoID int64, update models.VideoUpdate) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[videoID]
	if !ok {
		return nil, &models.NotFoundError{Resource: "動画", ID: videoID}
	}
	if update.Status != nil {
		v.Status = *update.Status
	}
	if update.YouTubeURL != nil {
		v.YouTubeURL = sql.NullString{String: *update.YouTubeURL, Valid: true}
	}
	return v, nil
}

func (s *stubVideoStore) FindStuckPendingVideos(time.Duration, int) ([]models.Video, error) {
	return nil, nil
}

type stubStarter struct {
	started []int64
	err     error
}

func (s *stubStarter) StartAnalysis(videoID int64) error {
	if s.err != nil {
		return s.err
	}
	s.started = append(s.started, videoID)
	return nil
}

func authedRequest(method, target string, body string, userID int64) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

func TestCreateVideoFromYouTubeURL(t *testing.T) {
	store := newStubVideoStore()
	starter := &stubStarter{}
	h := NewVideoHandler(store, starter)

	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/videos",
		`{"youtubeUrl":"https://www.youtube.com/watch?v=abc123"}`, 10))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var video models.Video
	if err := json.Unmarshal(w.Body.Bytes(), &video); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if video.YouTubeURL.String != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("youtube url = %s", video.YouTubeURL.String)
	}
	if len(starter.started) != 1 {
		t.Fatalf("analysis should start once, got %v", starter.started)
	}
}

func TestCreateVideoDuplicateYouTubeURLReturnsExisting(t *testing.T) {
	url := "https://www.youtube.com/watch?v=abc123"
	store := newStubVideoStore(&models.Video{
		ID: 1, UserID: 10, Status: models.StatusCompleted,
		YouTubeURL: sql.NullString{String: url, Valid: true},
	})
	starter := &stubStarter{}
	h := NewVideoHandler(store, starter)

	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/videos", `{"youtubeUrl":"`+url+`"}`, 10))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for existing record", w.Code)
	}
	if len(starter.started) != 0 {
		t.Fatal("existing record must not restart analysis")
	}
}

func TestCreateVideoRejectsNonYouTubeURL(t *testing.T) {
	h := NewVideoHandler(newStubVideoStore(), &stubStarter{})
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/videos",
		`{"youtubeUrl":"https://example.com/watch?v=abc"}`, 10))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateVideoRejectsEmptyBody(t *testing.T) {
	h := NewVideoHandler(newStubVideoStore(), &stubStarter{})
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/videos", `{}`, 10))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetVideoForbiddenForOtherUser(t *testing.T) {
	store := newStubVideoStore(&models.Video{ID: 1, UserID: 10, Status: models.StatusPending})
	h := NewVideoHandler(store, &stubStarter{})

	r := authedRequest(http.MethodGet, "/videos/1", "", 99)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.Get(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestGetVideoNotFound(t *testing.T) {
	h := NewVideoHandler(newStubVideoStore(), &stubStarter{})
	r := authedRequest(http.MethodGet, "/videos/42", "", 10)
	r.SetPathValue("id", "42")
	w := httptest.NewRecorder()
	h.Get(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateVideoReanalyzeConflict(t *testing.T) {
	store := newStubVideoStore(&models.Video{ID: 1, UserID: 10, Status: models.StatusAnalyzing})
	starter := &stubStarter{err: &models.ConflictError{Message: "分析中です"}}
	h := NewVideoHandler(store, starter)

	r := authedRequest(http.MethodPatch, "/videos/1", `{"reanalyze":true}`, 10)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.Update(w, r)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestUpdateVideoReanalyzeAccepted(t *testing.T) {
	store := newStubVideoStore(&models.Video{ID: 1, UserID: 10, Status: models.StatusError})
	starter := &stubStarter{}
	h := NewVideoHandler(store, starter)

	r := authedRequest(http.MethodPatch, "/videos/1", `{"reanalyze":true}`, 10)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.Update(w, r)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	if len(starter.started) != 1 {
		t.Fatalf("analysis should start once, got %v", starter.started)
	}
}

func TestListVideosRequiresSession(t *testing.T) {
	h := NewVideoHandler(newStubVideoStore(), &stubStarter{})
	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/videos", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestIsValidYouTubeURL(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=abc",
		"https://youtube.com/watch?v=abc",
		"https://m.youtube.com/watch?v=abc",
		"https://youtu.be/abc",
		"https://www.youtube.com/shorts/abc",
	}
	invalid := []string{
		"https://example.com/watch?v=abc",
		"https://www.youtube.com/watch",
		"ftp://youtube.com/watch?v=abc",
		"not a url",
		"https://youtu.be/",
	}
	for _, u := range valid {
		if !isValidYouTubeURL(u) {
			t.Errorf("isValidYouTubeURL(%q) = false, want true", u)
		}
	}
	for _, u := range invalid {
		if isValidYouTubeURL(u) {
			t.Errorf("isValidYouTubeURL(%q) = true, want false", u)
		}
	}
}
