package domain

import (
	"encoding/json"
)

// wolfxEEW is the subset of the wolfx jma_eew message the service reads.
// "Magunitude" is spelled that way upstream.
type wolfxEEW struct {
	Type         string     `json:"type"`
	IsWarn       looseValue `json:"isWarn"`
	IsFinal      looseValue `json:"isFinal"`
	IsCancel     looseValue `json:"isCancel"`
	Serial       looseValue `json:"Serial"`
	MaxIntensity looseValue `json:"MaxIntensity"`
	Hypocenter   looseValue `json:"Hypocenter"`
	Depth        looseValue `json:"Depth"`
	Magunitude   looseValue `json:"Magunitude"`
	Magnitude    looseValue `json:"Magnitude"`
}

func normalizeEEW(body []byte) ([]Event, error) {
	if err := requireJSON(body, '{'); err != nil {
		return nil, err
	}
	var msg wolfxEEW
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}

	switch msg.Type {
	case "heartbeat", "pong":
		return nil, nil
	}

	if msg.IsCancel.Bool() {
		return []Event{EEWUpdate{IsCancel: true}}, nil
	}

	magnitude := msg.Magunitude
	if !magnitude.set {
		magnitude = msg.Magnitude
	}

	return []Event{EEWUpdate{
		IsWarn:       msg.IsWarn.Bool(),
		IsFinal:      msg.IsFinal.Bool(),
		Serial:       msg.Serial.Int(),
		MaxIntensity: msg.MaxIntensity.String(),
		Hypocenter:   msg.Hypocenter.String(),
		DepthKm:      msg.Depth.Float(),
		Magnitude:    magnitude.Float(),
	}}, nil
}
