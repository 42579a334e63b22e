// Package youtube looks up the latest published video of a channel and
// fetches its thumbnail. Every failure is absorbed here; callers only ever
// see "no video" or "no thumbnail".
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tubecast/internal/models"
	"tubecast/pkg/logger"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3/search"

// thumbnails larger than this are rejected rather than buffered.
const maxThumbnailBytes = 8 << 20

// Client fetches latest-video metadata from the YouTube Data API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// New creates a client using the given API key.
func New(apiKey string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// searchResponse mirrors the subset of the search endpoint response we use.
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string    `json:"title"`
			PublishedAt time.Time `json:"publishedAt"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// LatestVideo returns the most recently published video of the channel, or
// nil when the lookup fails or the channel has no videos.
func (c *Client) LatestVideo(ctx context.Context, channelID string) *models.VideoRecord {
	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("channelId", channelID)
	query.Set("order", "date")
	query.Set("part", "snippet")
	query.Set("type", "video")
	query.Set("maxResults", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		c.log.Error("Failed to build video lookup request: %v", err)
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Video lookup failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("Video lookup returned status %d", resp.StatusCode)
		return nil
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.log.Error("Failed to parse video lookup response: %v", err)
		return nil
	}

	if len(parsed.Items) == 0 {
		c.log.Info("No videos found for channel %s", channelID)
		return nil
	}

	item := parsed.Items[0]
	if item.ID.VideoID == "" {
		c.log.Error("Video lookup returned an item without a video id")
		return nil
	}

	return &models.VideoRecord{
		VideoID:      item.ID.VideoID,
		Title:        item.Snippet.Title,
		ThumbnailURL: item.Snippet.Thumbnails.High.URL,
		Link:         fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.ID.VideoID),
		PublishedAt:  item.Snippet.PublishedAt,
	}
}

// Thumbnail downloads the thumbnail image, or returns nil so callers fall
// back to a text-only send.
func (c *Client) Thumbnail(ctx context.Context, thumbnailURL string) []byte {
	if thumbnailURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbnailURL, nil)
	if err != nil {
		c.log.Error("Failed to build thumbnail request: %v", err)
		return nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("Thumbnail download failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error("Thumbnail download returned status %d", resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes))
	if err != nil {
		c.log.Error("Failed to read thumbnail body: %v", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	return data
}
