package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"VideoCoach-admin/internal/models"

	"golang.org/x/oauth2"
)

type fakeStarter struct {
	started []int64
	err     error
}

func (s *fakeStarter) StartAnalysis(videoID int64) error {
	s.started = append(s.started, videoID)
	return s.err
}

func newPublishFixture(t *testing.T) (*fakeVideoStore, *fakeBlobStorage, *fakePublisher, *fakeStarter, *PublishService) {
	t.Helper()
	blob := newFakeBlobStorage()
	url, _ := blob.Store([]byte("movie-bytes"), "sample.mp4")
	store := newFakeVideoStore(&models.Video{
		ID:       1,
		UserID:   10,
		Status:   models.StatusPending,
		VideoURL: sql.NullString{String: url, Valid: true},
	})
	publisher := &fakePublisher{id: "yt123"}
	starter := &fakeStarter{}
	tokens := &fakeTokens{token: &oauth2.Token{AccessToken: "at"}}
	svc, err := NewPublishService(store, blob, tokens, publisher, starter)
	if err != nil {
		t.Fatalf("NewPublishService: %v", err)
	}
	return store, blob, publisher, starter, svc
}

func TestPublishSuccess(t *testing.T) {
	store, blob, publisher, starter, svc := newPublishFixture(t)

	video, err := svc.Publish(context.Background(), 10, 1, "面談練習", "説明文")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got, want := video.YouTubeURL.String, "https://www.youtube.com/watch?v=yt123"; got != want {
		t.Fatalf("youtube url = %s, want %s", got, want)
	}
	if video.Status != models.StatusPending {
		t.Fatalf("status = %s, want pending", video.Status)
	}
	if video.YouTubeTitle.String != "面談練習" {
		t.Fatalf("title = %s", video.YouTubeTitle.String)
	}
	if string(publisher.req.Data) != "movie-bytes" {
		t.Fatal("uploaded bytes should come from blob storage")
	}
	if len(blob.gone) != 1 {
		t.Fatalf("blob should be deleted after publish, gone=%v", blob.gone)
	}
	if len(starter.started) != 1 || starter.started[0] != 1 {
		t.Fatalf("analysis should start for video 1, got %v", starter.started)
	}

	stored, _ := store.GetVideoByID(1)
	if stored.YouTubeURL.String == "" {
		t.Fatal("youtube url should be persisted")
	}
}

func TestPublishRejectsOtherUser(t *testing.T) {
	_, _, _, _, svc := newPublishFixture(t)

	_, err := svc.Publish(context.Background(), 99, 1, "t", "d")
	var permErr *models.PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func TestPublishRejectsAlreadyPublished(t *testing.T) {
	store, _, _, _, svc := newPublishFixture(t)
	url := "https://www.youtube.com/watch?v=old"
	if _, err := store.UpdateVideo(1, models.VideoUpdate{YouTubeURL: &url}); err != nil {
		t.Fatalf("UpdateVideo: %v", err)
	}

	_, err := svc.Publish(context.Background(), 10, 1, "t", "d")
	var valErr *models.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPublishFailurePersistsError(t *testing.T) {
	store, _, publisher, starter, svc := newPublishFixture(t)
	publisher.id = ""
	publisher.err = &models.PublishError{Message: "アップロード失敗", Attempts: 3, Cause: errors.New("backend error")}

	_, err := svc.Publish(context.Background(), 10, 1, "t", "d")
	var pubErr *models.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}

	video, _ := store.GetVideoByID(1)
	if video.Status != models.StatusError {
		t.Fatalf("status = %s, want error", video.Status)
	}
	if !video.ErrorMessage.Valid {
		t.Fatal("error message should be persisted")
	}
	if len(starter.started) != 0 {
		t.Fatal("analysis must not start after failed publish")
	}
}

func TestPublishTokenFailure(t *testing.T) {
	blob := newFakeBlobStorage()
	url, _ := blob.Store([]byte("x"), "v.mp4")
	store := newFakeVideoStore(&models.Video{
		ID:       1,
		UserID:   10,
		Status:   models.StatusPending,
		VideoURL: sql.NullString{String: url, Valid: true},
	})
	tokens := &fakeTokens{err: &models.AuthError{Message: "トークンなし"}}
	svc, err := NewPublishService(store, blob, tokens, &fakePublisher{}, &fakeStarter{})
	if err != nil {
		t.Fatalf("NewPublishService: %v", err)
	}

	_, err = svc.Publish(context.Background(), 10, 1, "t", "d")
	var authErr *models.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	video, _ := store.GetVideoByID(1)
	if video.Status != models.StatusPending {
		t.Fatalf("status should stay pending before upload starts, got %s", video.Status)
	}
}
