// Package notify renders the outbound notification content for a video.
package notify

import (
	"fmt"

	"tubecast/internal/models"
)

// Message is one round of notification content: the announcement text and
// the caption attached to the thumbnail image.
type Message struct {
	Text    string
	Caption string
}

// Compose renders the notification for a video. Pure string templating,
// no side effects.
func Compose(video *models.VideoRecord) Message {
	return Message{
		Text: fmt.Sprintf(
			"🚨 *New video on the channel!*\n\n🎬 *%s*\n\n👉 Watch now: %s\n\n📢 *Share it with everyone!* 🙏",
			video.Title, video.Link,
		),
		Caption: fmt.Sprintf("🆕 *%s*\n\n🎥 Watch: %s", video.Title, video.Link),
	}
}
