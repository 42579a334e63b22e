package notify

import (
	"strings"
	"testing"

	"tubecast/internal/models"
)

func TestCompose(t *testing.T) {
	video := &models.VideoRecord{
		VideoID: "abc123",
		Title:   "Launch day",
		Link:    "https://www.youtube.com/watch?v=abc123",
	}

	msg := Compose(video)

	if !strings.Contains(msg.Text, video.Title) {
		t.Errorf("text missing title: %q", msg.Text)
	}
	if !strings.Contains(msg.Text, video.Link) {
		t.Errorf("text missing link: %q", msg.Text)
	}
	if !strings.Contains(msg.Caption, video.Title) {
		t.Errorf("caption missing title: %q", msg.Caption)
	}
	if !strings.Contains(msg.Caption, video.Link) {
		t.Errorf("caption missing link: %q", msg.Caption)
	}

	// Deterministic: same input, same output.
	if again := Compose(video); again != msg {
		t.Errorf("Compose not deterministic: %+v vs %+v", again, msg)
	}
}
