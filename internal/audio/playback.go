package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
)

// Playback is a file-backed audio session. The chain is
// decoded stream -> optional loop -> analysis tap -> pause control -> speaker.
// The decoder owns the backing file and closes it with the stream.
type Playback struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	tap      *tap
	analyser *Analyser
	window   []float32

	mu      sync.Mutex
	started bool
	playing bool
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// OpenPlayback decodes the audio file at path and prepares the playback
// chain. Nothing reaches the speaker until Play is called in response to a
// user gesture.
func OpenPlayback(path string, loop bool) (*Playback, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		_ = f.Close()
		return nil, fmt.Errorf("audio: unsupported file type %q", ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("audio: decode %s: %w", filepath.Base(path), err)
	}

	var src beep.Streamer = streamer
	if loop {
		src = beep.Loop(-1, streamer)
	}
	t := newTap(src)

	return &Playback{
		streamer: streamer,
		format:   format,
		ctrl:     &beep.Ctrl{Streamer: t},
		tap:      t,
		analyser: NewAnalyser(),
		window:   make([]float32, fftSize),
	}, nil
}

// Play starts playback on the first call (initializing the speaker) and
// resumes it afterwards.
func (p *Playback) Play() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("audio: session is closed")
	}
	first := !p.started
	if first {
		bufSize := p.format.SampleRate.N(time.Second / 20)
		if err := speaker.Init(p.format.SampleRate, bufSize); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("audio: speaker init: %w", err)
		}
		p.started = true
	}
	p.playing = true
	p.mu.Unlock()

	if first {
		done := beep.Callback(func() {
			p.mu.Lock()
			p.playing = false
			p.mu.Unlock()
		})
		speaker.Play(beep.Seq(p.ctrl, done))
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause suspends playback; the analysis tap stops refreshing and dependent
// visuals hold their last state.
func (p *Playback) Pause() {
	p.mu.Lock()
	if !p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.playing = false
	p.mu.Unlock()

	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
}

// Active reports whether the session is currently producing sound.
func (p *Playback) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && p.playing && !p.closed
}

// FrequencyData refreshes and returns the magnitude snapshot for the current
// frame. The slice is reused; treat it as read-only until the next call.
func (p *Playback) FrequencyData() []byte {
	return p.analyser.Process(p.tap.snapshot(p.window))
}

// Close tears the session down: playback stops and the decoded stream is
// released, taking the backing file with it. Safe to call from every exit
// path; the work runs exactly once.
func (p *Playback) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		started := p.started
		p.closed = true
		p.playing = false
		p.mu.Unlock()

		if started {
			speaker.Lock()
			speaker.Clear()
			speaker.Unlock()
		}
		p.closeErr = p.streamer.Close()
	})
	return p.closeErr
}
