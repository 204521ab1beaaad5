package domain

import (
	"time"

	"github.com/google/uuid"
)

// SoundCue names the audio asset played alongside a spoken alert.
type SoundCue string

const (
	CueEEWWarning          SoundCue = "EEWWarning"
	CueEEWForecast         SoundCue = "EEWForecast"
	CueEEWCancel           SoundCue = "EEWCancel"
	CueScalePrompt         SoundCue = "ScalePrompt"
	CueDestination         SoundCue = "Destination"
	CueScaleAndDestination SoundCue = "ScaleAndDestination"
	CueDetailScale         SoundCue = "DetailScale"
	CueForeign             SoundCue = "Foreign"
	CueEarthquake          SoundCue = "Other"
	CueTsunami             SoundCue = "Tsunami"
	CueTsunamiCancel       SoundCue = "Tsunamicancel"
	CueObservation         SoundCue = "Observation"
	CueSeismicWarning      SoundCue = "SeismicWarning"
)

// Alert is a composed announcement ready for dispatch.
type Alert struct {
	ID         string     `json:"id"`
	Class      EventClass `json:"class"`
	Text       string     `json:"text"`
	Cue        SoundCue   `json:"cue"`
	Source     string     `json:"source,omitempty"`
	ComposedAt time.Time  `json:"composed_at"`
}

// NewAlert stamps an alert with a fresh id and the current time.
func NewAlert(class EventClass, text string, cue SoundCue) Alert {
	return Alert{
		ID:         uuid.NewString(),
		Class:      class,
		Text:       text,
		Cue:        cue,
		ComposedAt: clock.Now(),
	}
}
