package scene

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/eiannone/keyboard"

	"github.com/nqnqxp/extendedRealities-Xiona/internal/audio"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/loudness"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/snowfield"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/visual"
)

// ErrDisplayClosed is returned by a Renderer when the user closes the
// display; the frame loop treats it as a clean shutdown request.
var ErrDisplayClosed = errors.New("display closed")

// Renderer consumes the frame's output: the particle position buffer (valid
// for read-only access until the next frame) and the mapped visual
// parameters.
type Renderer interface {
	RenderFrame(positions []float32, p visual.Parameters, loudnessLevel, fps float64) error
	Close() error
}

// Config configures the scene runtime.
type Config struct {
	ParticleCount int
	AreaSize      float64
	ColumnHeight  float64
	WindX         float64
	WindZ         float64
	Mapper        visual.Mapper
	TargetFPS     float64
	Seed          int64
	Synthetic     bool // drive loudness from a generator instead of a session
	ProfilePath   string
	Log           *log.Logger
}

type inputEvent int

const (
	inputEventGesture inputEvent = iota
	inputEventQuit
)

// Scene ties the loudness extractor, the parameter mapper, the particle
// field, and a renderer into one per-frame pipeline.
type Scene struct {
	cfg       Config
	field     *snowfield.Field
	extractor *loudness.Extractor
	mapper    visual.Mapper
	session   audio.Session // may be nil
	synth     *syntheticTap
	renderer  Renderer
	profiler  *profiler
	log       *log.Logger

	last        time.Time
	fps         float64
	inputEvents chan inputEvent
	statLast    time.Time
}

// New constructs the scene. session and renderer may be nil; a nil session
// with Synthetic disabled leaves the loudness state frozen at 0 and the
// field falling at its base speed.
func New(cfg Config, session audio.Session, renderer Renderer) (*Scene, error) {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 60
	}
	if cfg.Log == nil {
		cfg.Log = log.New(os.Stderr, "", log.LstdFlags)
	}
	if (cfg.Mapper == visual.Mapper{}) {
		cfg.Mapper = visual.DefaultMapper()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	field, err := snowfield.New(snowfield.Config{
		Count:    cfg.ParticleCount,
		AreaSize: cfg.AreaSize,
		Height:   cfg.ColumnHeight,
		Rand:     rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		return nil, err
	}
	field.SetWind(cfg.WindX, cfg.WindZ)

	s := &Scene{
		cfg:       cfg,
		field:     field,
		extractor: loudness.New(),
		mapper:    cfg.Mapper,
		session:   session,
		renderer:  renderer,
		profiler:  newProfiler(cfg.ProfilePath, cfg.Log),
		log:       cfg.Log,
	}
	if cfg.Synthetic && session == nil {
		s.synth = newSyntheticTap(seed)
		s.log.Println("no audio session, using synthetic loudness")
	}
	return s, nil
}

// Field exposes the particle field, mainly for renderers that need its
// dimensions for projection.
func (s *Scene) Field() *snowfield.Field {
	return s.field
}

// Loudness returns the current rolling loudness state.
func (s *Scene) Loudness() float64 {
	return s.extractor.Value()
}

// Run drives the scene at the configured frame rate until the context is
// cancelled, the user quits, or the display closes. All held resources are
// released before it returns.
func (s *Scene) Run(ctx context.Context) error {
	frameDuration := time.Duration(float64(time.Second) / s.cfg.TargetFPS)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()
	s.startInputListener(inputCtx)

	s.last = time.Now()
	s.statLast = s.last

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-s.inputEvents:
			if !ok {
				s.inputEvents = nil
				continue
			}
			switch evt {
			case inputEventGesture:
				s.togglePlayback()
			case inputEventQuit:
				return nil
			}
		case <-ticker.C:
			if err := s.step(); err != nil {
				if errors.Is(err, ErrDisplayClosed) {
					return nil
				}
				return err
			}
		}
	}
}

// Close releases the audio session, the renderer, and the profiler. Safe to
// call after Run returned for any reason.
func (s *Scene) Close() error {
	var first error
	if s.session != nil {
		if err := s.session.Close(); err != nil {
			first = err
		}
	}
	if s.renderer != nil {
		if err := s.renderer.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := s.profiler.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

func (s *Scene) step() error {
	now := time.Now()
	delta := now.Sub(s.last).Seconds()
	if delta <= 0 {
		delta = 1.0 / s.cfg.TargetFPS
	}
	s.last = now
	s.fps = 1.0 / delta

	err := s.Step(delta)

	if now.Sub(s.statLast) >= 10*time.Second {
		s.statLast = now
		s.log.Printf("fps=%.1f loudness=%.3f particles=%d", s.fps, s.extractor.Value(), s.field.Count())
	}
	return err
}

// Step advances the scene by delta seconds. Order within the frame is fixed:
// loudness extraction (only while a session is active), parameter mapping,
// field advancement, then rendering. An inactive session leaves the rolling
// loudness untouched so visuals settle on their last appearance instead of
// snapping to silence.
func (s *Scene) Step(delta float64) error {
	s.profiler.beginFrame()

	level := s.extractor.Value()
	if s.session != nil && s.session.Active() {
		level = s.extractor.SampleFrame(s.session.FrequencyData())
	} else if s.synth != nil {
		level = s.extractor.SampleFrame(s.synth.Next(delta))
	}
	s.profiler.mark("extract")

	p := s.mapper.Map(level)
	s.profiler.mark("map")

	s.field.Advance(delta, p.FallSpeed)
	s.profiler.mark("advance")

	var err error
	if s.renderer != nil {
		err = s.renderer.RenderFrame(s.field.Positions(), p, level, s.fps)
	}
	s.profiler.mark("render")
	s.profiler.endFrame()
	return err
}

// togglePlayback reacts to the user gesture: the first one starts the
// session, later ones flip pause. A start failure is logged and the frame
// loop keeps running without audio.
func (s *Scene) togglePlayback() {
	if s.session == nil {
		return
	}
	if s.session.Active() {
		s.session.Pause()
		s.log.Println("playback paused")
		return
	}
	if err := s.session.Play(); err != nil {
		s.log.Printf("playback failed to start: %v", err)
		return
	}
	s.log.Println("playback started")
}

func (s *Scene) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		s.log.Printf("keyboard input disabled: %v", err)
		s.inputEvents = nil
		return
	}

	events := make(chan inputEvent, 16)
	s.inputEvents = events

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer close(events)
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			switch {
			case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC:
				events <- inputEventQuit
				return
			case char == 'q' || char == 'Q':
				events <- inputEventQuit
				return
			case key == keyboard.KeySpace:
				select {
				case events <- inputEventGesture:
				default:
				}
			}
		}
	}()
}

// String summarizes the configuration for startup logging.
func (c Config) String() string {
	return fmt.Sprintf("particles=%d area=%.0f height=%.0f fps=%.0f",
		c.ParticleCount, c.AreaSize, c.ColumnHeight, c.TargetFPS)
}
