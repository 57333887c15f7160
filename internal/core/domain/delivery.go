package domain

import (
	"errors"
	"strings"
)

// DeliveryMode discriminates the two content shapes a reader can produce.
type DeliveryMode string

const (
	DeliveryModeDigital  DeliveryMode = "digital"
	DeliveryModePhysical DeliveryMode = "physical"
)

// Validator verdicts. The delivery transition is gated on Validate returning nil.
var (
	ErrMissingMode       = errors.New("delivery content: no mode selected")
	ErrIncompleteContent = errors.New("delivery content: not complete enough to send")
)

// DeliveryContent is the discriminated union of the two reading shapes.
// Exactly one of Digital/Physical is set, matching Mode.
type DeliveryContent struct {
	Mode     DeliveryMode     `json:"mode"`
	Digital  *DigitalReading  `json:"digital,omitempty"`
	Physical *PhysicalReading `json:"physical,omitempty"`
}

// DigitalReading is a card spread interpreted online.
type DigitalReading struct {
	SpreadName string `json:"spread_name"`
	Cards      []Card `json:"cards"`
}

// Card is one drawn card with its interpretation.
type Card struct {
	CardID         string  `json:"card_id"`
	Name           string  `json:"name"`
	Position       string  `json:"position"`
	Interpretation string  `json:"interpretation"`
	AudioURL       *string `json:"audio_url,omitempty"`
}

// PhysicalReading documents a reading performed with physical materials.
type PhysicalReading struct {
	ReadingTitle string    `json:"reading_title"`
	Sections     []Section `json:"sections"`
}

// Section is one documented step of a physical reading.
type Section struct {
	Title          string  `json:"title"`
	PhotoURL       *string `json:"photo_url,omitempty"`
	AudioURL       *string `json:"audio_url,omitempty"`
	Interpretation string  `json:"interpretation"`
}

// Validate decides whether the content is complete enough to deliver.
// It is the single place where "good enough to send" is decided; pure and
// side-effect free.
func (c *DeliveryContent) Validate() error {
	if c == nil || c.Mode == "" {
		return ErrMissingMode
	}

	switch c.Mode {
	case DeliveryModeDigital:
		if c.Digital == nil || len(c.Digital.Cards) == 0 {
			return ErrIncompleteContent
		}
		for _, card := range c.Digital.Cards {
			if nonBlank(card.Interpretation) || hasURL(card.AudioURL) {
				return nil
			}
		}
		return ErrIncompleteContent

	case DeliveryModePhysical:
		if c.Physical == nil || len(c.Physical.Sections) == 0 {
			return ErrIncompleteContent
		}
		for _, section := range c.Physical.Sections {
			if hasURL(section.PhotoURL) || hasURL(section.AudioURL) || nonBlank(section.Interpretation) {
				return nil
			}
		}
		return ErrIncompleteContent

	default:
		return ErrMissingMode
	}
}

func nonBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

func hasURL(u *string) bool {
	return u != nil && strings.TrimSpace(*u) != ""
}
