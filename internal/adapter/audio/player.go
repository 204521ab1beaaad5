// Package audio plays the sound cue that precedes each spoken alert.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

const targetSampleRate = beep.SampleRate(48000)

// output is the sound device. The real one is the beep speaker.
type output interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Init(sr beep.SampleRate, bufferSize int) error {
	return speaker.Init(sr, bufferSize)
}

func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }

// Player implements dispatch.CuePlayer. Files are MP3 or WAV under dir.
type Player struct {
	dir    string
	table  *CueTable
	logger *slog.Logger
	out    output

	mu          sync.Mutex
	initialized bool
}

// NewPlayer creates a Player reading files from dir. The speaker is opened on
// first use so a machine without a sound device can still start.
func NewPlayer(dir string, table *CueTable, logger *slog.Logger) *Player {
	return &Player{
		dir:    dir,
		table:  table,
		logger: logger,
		out:    speakerOutput{},
	}
}

// Play plays the file mapped to cue and returns when playback finishes or ctx
// ends. A cue without a mapping is silently skipped.
func (p *Player) Play(ctx context.Context, cue domain.SoundCue) error {
	name, ok := p.table.Lookup(cue)
	if !ok {
		p.logger.Debug("no sound for cue", "cue", cue)
		return nil
	}
	path := filepath.Join(p.dir, name)

	streamer, format, err := decodeStreamer(path)
	if err != nil {
		return err
	}
	defer streamer.Close()

	if err := p.ensureSpeakerInitialized(); err != nil {
		return err
	}

	done := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: beep.Resample(3, format.SampleRate, targetSampleRate, streamer)}
	p.out.Play(beep.Seq(ctrl, beep.Callback(func() { close(done) })))
	p.logger.Debug("playing cue", "cue", cue, "path", path)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// Detach the stream so the speaker stops reading the file.
		p.out.Lock()
		ctrl.Streamer = nil
		p.out.Unlock()
		return fmt.Errorf("play %s: %w", name, ctx.Err())
	}
}

func (p *Player) ensureSpeakerInitialized() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := p.out.Init(targetSampleRate, targetSampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	p.initialized = true
	return nil
}

// decodeStreamer opens path as MP3, falling back to WAV.
func decodeStreamer(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open sound: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err == nil {
		return streamer, format, nil
	}

	// MP3 decode failure leaves the file offset undefined.
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open sound: %w", err)
	}

	streamer, format, err = wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return streamer, format, nil
}
