package photoshoot

import (
	"fmt"
	"time"
)

// Shot is one generated image with the metadata it was produced from. The JSON
// shape is what portfolio stores persist.
type Shot struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt"`
	Style     Style     `json:"style"`
	ShotType  ShotType  `json:"shotType"`
	Backend   Backend   `json:"backend,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ShotID derives the artifact identity from the batch it belongs to.
func ShotID(batchID string, style Style, shot ShotType) string {
	return fmt.Sprintf("%s-%s-%s", batchID, style.Key(), shot.Key())
}

// Image decodes the shot's data URL.
func (s Shot) Image() (Image, error) {
	return ParseDataURL(s.URL)
}

func (s Shot) Caption() string {
	return fmt.Sprintf("%s · %s style", s.ShotType, s.Style)
}
