package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tubecast/pkg/logger"
)

func newTestClient(baseURL string) *Client {
	c := New("test-key", 5*time.Second, logger.New("error"))
	c.baseURL = baseURL
	return c
}

func TestLatestVideo(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantNil  bool
		wantID   string
		wantLink string
	}{
		{
			name:   "single result",
			status: http.StatusOK,
			body: `{"items":[{"id":{"videoId":"abc123"},"snippet":{
				"title":"Launch day",
				"publishedAt":"2025-06-01T12:00:00Z",
				"thumbnails":{"high":{"url":"http://img.example/abc123.jpg"}}}}]}`,
			wantID:   "abc123",
			wantLink: "https://www.youtube.com/watch?v=abc123",
		},
		{
			name:    "empty result set",
			status:  http.StatusOK,
			body:    `{"items":[]}`,
			wantNil: true,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `{}`,
			wantNil: true,
		},
		{
			name:    "malformed response",
			status:  http.StatusOK,
			body:    `{"items":`,
			wantNil: true,
		},
		{
			name:    "item without video id",
			status:  http.StatusOK,
			body:    `{"items":[{"id":{},"snippet":{"title":"x"}}]}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("channelId"); got != "chan1" {
					t.Errorf("channelId = %q, want chan1", got)
				}
				if got := r.URL.Query().Get("maxResults"); got != "1" {
					t.Errorf("maxResults = %q, want 1", got)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			video := newTestClient(srv.URL).LatestVideo(context.Background(), "chan1")

			if tt.wantNil {
				if video != nil {
					t.Fatalf("LatestVideo = %+v, want nil", video)
				}
				return
			}
			if video == nil {
				t.Fatal("LatestVideo = nil, want record")
			}
			if video.VideoID != tt.wantID {
				t.Errorf("VideoID = %q, want %q", video.VideoID, tt.wantID)
			}
			if video.Link != tt.wantLink {
				t.Errorf("Link = %q, want %q", video.Link, tt.wantLink)
			}
			if video.Title != "Launch day" {
				t.Errorf("Title = %q, want Launch day", video.Title)
			}
		})
	}
}

func TestLatestVideoUnreachableHost(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	if video := c.LatestVideo(context.Background(), "chan1"); video != nil {
		t.Fatalf("LatestVideo = %+v, want nil", video)
	}
}

func TestThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xFF, 0xD8, 0xFF})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	data := c.Thumbnail(context.Background(), srv.URL+"/thumb.jpg")
	if len(data) != 3 {
		t.Fatalf("Thumbnail length = %d, want 3", len(data))
	}

	if data := c.Thumbnail(context.Background(), ""); data != nil {
		t.Errorf("Thumbnail with empty URL = %v, want nil", data)
	}
}

func TestThumbnailFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if data := c.Thumbnail(context.Background(), srv.URL+"/missing.jpg"); data != nil {
		t.Fatalf("Thumbnail = %v, want nil", data)
	}
}
