package dispatch

import (
	"encoding/json"

	"rssd/models"
)

const embedColor = 4963212

// PayloadBuilder turns a feed item into the sink-specific wire
// payload. Implementations must be pure: no I/O, no state.
type PayloadBuilder interface {
	Build(feed string, item models.Item) ([]byte, error)
}

type webhookEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Color       int    `json:"color"`
}

type webhookPayload struct {
	Content string         `json:"content"`
	TTS     bool           `json:"tts"`
	Embeds  []webhookEmbed `json:"embeds"`
}

// WebhookPayloadBuilder builds Discord-compatible webhook embeds.
type WebhookPayloadBuilder struct{}

func (WebhookPayloadBuilder) Build(feed string, item models.Item) ([]byte, error) {
	title := item.Title
	if title == "" {
		title = "<title not specified>"
	}
	description := item.Summary
	if description == "" {
		description = "<description not specified>"
	}

	return json.Marshal(webhookPayload{
		Embeds: []webhookEmbed{
			{
				Title:       title,
				Description: description,
				URL:         item.Link,
				Color:       embedColor,
			},
		},
	})
}
