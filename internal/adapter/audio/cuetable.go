package audio

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"sync"

	"github.com/couchcryptid/quake-alert/internal/domain"
	"gopkg.in/yaml.v3"
)

// defaultFiles is the built-in cue -> file table. EEWCancel has no sound.
var defaultFiles = map[domain.SoundCue]string{
	domain.CueEEWWarning:          "Eewwarning.mp3",
	domain.CueEEWForecast:         "Eewforecast.mp3",
	domain.CueTsunami:             "Tsunami.mp3",
	domain.CueTsunamiCancel:       "Tsunamicancel.mp3",
	domain.CueScalePrompt:         "ScalePrompt.mp3",
	domain.CueDestination:         "Destination.mp3",
	domain.CueScaleAndDestination: "Earthquake.mp3",
	domain.CueDetailScale:         "Earthquake.mp3",
	domain.CueForeign:             "Foreign.mp3",
	domain.CueEarthquake:          "Earthquake.mp3",
	domain.CueObservation:         "Observation.mp3",
	domain.CueSeismicWarning:      "SeismicWarning.mp3",
}

// CueTable maps sound cues to file names. It is safe for concurrent use and
// can be swapped wholesale while the player is running.
type CueTable struct {
	mu    sync.RWMutex
	files map[domain.SoundCue]string
}

// NewCueTable returns a table holding the built-in defaults.
func NewCueTable() *CueTable {
	return &CueTable{files: maps.Clone(defaultFiles)}
}

// Lookup returns the file for a cue. ok is false when the cue has no sound.
func (t *CueTable) Lookup(cue domain.SoundCue) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.files[cue]
	return f, ok && f != ""
}

// Replace swaps in a new table.
func (t *CueTable) Replace(files map[domain.SoundCue]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = maps.Clone(files)
}

// Len returns the number of mapped cues.
func (t *CueTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.files)
}

// cueFile is the YAML layout:
//
//	sounds:
//	  EEWWarning: Eewwarning.mp3
//	  EEWCancel: Cancel.wav
//	  Foreign: ""          # silence a cue
type cueFile struct {
	Sounds map[string]string `yaml:"sounds"`
}

// LoadCueTable reads a YAML override file and merges it over the defaults.
func LoadCueTable(path string) (map[domain.SoundCue]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cue table: %w", err)
	}
	// An empty file is usually a save caught halfway.
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("cue table %s is empty", path)
	}

	var f cueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse cue table %s: %w", path, err)
	}

	files := maps.Clone(defaultFiles)
	for cue, file := range f.Sounds {
		files[domain.SoundCue(cue)] = file
	}
	return files, nil
}
