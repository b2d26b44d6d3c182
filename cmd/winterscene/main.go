package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ncruces/zenity"
	"golang.org/x/term"

	"github.com/nqnqxp/extendedRealities-Xiona/internal/audio"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/render"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/scene"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/web"
)

func main() {
	var (
		musicPath  = flag.String("music", "", "Audio file to play (wav/mp3/flac); empty opens a file picker")
		loop       = flag.Bool("loop", true, "Loop the audio file")
		live       = flag.Bool("live", false, "React to a live input device instead of a file")
		deviceName = flag.String("audio-device", "", "Optional PortAudio device name (substring match)")
		listDevs   = flag.Bool("list-audio-devices", false, "List available audio input devices and exit")
		noAudio    = flag.Bool("no-audio", false, "Run with synthetic loudness (for testing)")
		particles  = flag.Int("particles", 6000, "Number of snow particles")
		area       = flag.Float64("area", 240, "Diameter of the snowfall disc")
		height     = flag.Float64("height", 90, "Height of the fall column")
		windX      = flag.Float64("wind-x", 0, "Horizontal drift along X, units per second")
		windZ      = flag.Float64("wind-z", 0, "Horizontal drift along Z, units per second")
		targetFPS  = flag.Float64("fps", 60, "Target frames per second")
		width      = flag.Int("width", 1280, "Window width")
		winHeight  = flag.Int("window-height", 720, "Window height")
		maskRes    = flag.Int("mask-res", 64, "Particle sprite resolution in pixels")
		backend    = flag.String("renderer", "auto", "Render backend (auto|sdl|web|both|none)")
		webAddr    = flag.String("web-addr", ":8990", "Listen address for the web renderer")
		profile    = flag.String("profile", "", "Write per-frame timing CSV to this path")
		seed       = flag.Int64("seed", 0, "Particle scatter seed (0 = time-based)")
		debug      = flag.Bool("debug", false, "Enable verbose logging")
	)

	flag.Parse()

	if *particles <= 0 {
		log.Fatalf("particles must be positive (got %d)", *particles)
	}
	if *area <= 0 || *height <= 0 {
		log.Fatalf("invalid field dimensions: area=%.1f height=%.1f", *area, *height)
	}
	if *targetFPS <= 0 {
		log.Fatalf("fps must be positive (got %.2f)", *targetFPS)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(os.Stdout, "[winterscene] ", log.LstdFlags)
	if !*debug {
		logger.SetOutput(os.Stderr)
		logger.SetFlags(0)
	}

	needPortAudio := *live || *listDevs
	if needPortAudio {
		if err := audio.Initialize(); err != nil {
			logger.Fatalf("failed to initialize PortAudio: %v", err)
		}
		defer audio.Terminate()
	}

	if *listDevs {
		devices, err := audio.ListDevices()
		if err != nil {
			logger.Fatalf("list devices: %v", err)
		}
		fmt.Printf("\n=== Audio Input Devices ===\n\n")
		for _, dev := range devices {
			if dev.MaxInput == 0 {
				continue
			}
			markers := ""
			if dev.IsDefaultInput {
				markers += " (default)"
			}
			fmt.Printf("- %s [%s]%s\n    inputs:%d outputs:%d sample:%.0f Hz\n",
				dev.Name, dev.HostAPI, markers, dev.MaxInput, dev.MaxOutput, dev.DefaultSampleHz)
		}
		if dev, err := audio.AutoDetectDevice(); err == nil && dev != nil {
			fmt.Printf("\nAuto-detected input: %s (%.0f Hz, %d channels)\n",
				dev.Name, dev.DefaultSampleRate, dev.MaxInputChannels)
		}
		return
	}

	session := openSession(*live, *noAudio, *musicPath, *loop, *deviceName, logger)

	renderer, err := buildRenderer(*backend, renderSettings{
		width:       *width,
		height:      *winHeight,
		maskRes:     *maskRes,
		fieldRadius: *area / 2,
		fieldHeight: *height,
		webAddr:     *webAddr,
		log:         logger,
	})
	if err != nil {
		logger.Fatalf("failed to create renderer: %v", err)
	}

	cfg := scene.Config{
		ParticleCount: *particles,
		AreaSize:      *area,
		ColumnHeight:  *height,
		WindX:         *windX,
		WindZ:         *windZ,
		TargetFPS:     *targetFPS,
		Seed:          *seed,
		Synthetic:     *noAudio,
		ProfilePath:   *profile,
		Log:           logger,
	}

	sc, err := scene.New(cfg, session, renderer)
	if err != nil {
		logger.Fatalf("failed to create scene: %v", err)
	}
	defer func() {
		if err := sc.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "cleanup error: %v\n", err)
		}
	}()

	logger.Printf("scene ready: %s", cfg)
	if session != nil && term.IsTerminal(int(os.Stdin.Fd())) {
		logger.Println("press SPACE to start playback, Q or ESC to quit")
	}

	if err := sc.Run(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nExiting...")
			return
		}
		logger.Fatalf("runtime error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
}

// openSession builds the audio session for the chosen mode. Audio failures
// are not fatal: the scene runs silent and the user sees why.
func openSession(live, noAudio bool, musicPath string, loop bool, deviceName string, logger *log.Logger) audio.Session {
	if noAudio {
		return nil
	}

	if live {
		capture, err := audio.OpenCapture(audio.CaptureConfig{DeviceName: deviceName})
		if err != nil {
			logger.Printf("live capture unavailable, continuing without audio: %v", err)
			return nil
		}
		return capture
	}

	path := musicPath
	if path == "" {
		picked, err := zenity.SelectFile(
			zenity.Title("Pick a track for the winter scene"),
			zenity.FileFilter{
				Name:     "Audio files",
				Patterns: []string{"*.wav", "*.mp3", "*.flac"},
			},
		)
		if err != nil {
			if !errors.Is(err, zenity.ErrCanceled) {
				logger.Printf("file picker failed: %v", err)
			}
			logger.Println("no track selected, continuing without audio")
			return nil
		}
		path = picked
	}

	playback, err := audio.OpenPlayback(path, loop)
	if err != nil {
		logger.Printf("cannot open %q, continuing without audio: %v", path, err)
		return nil
	}
	logger.Printf("loaded %s", path)
	return playback
}

type renderSettings struct {
	width       int
	height      int
	maskRes     int
	fieldRadius float64
	fieldHeight float64
	webAddr     string
	log         *log.Logger
}

func buildRenderer(backend string, s renderSettings) (scene.Renderer, error) {
	opts := render.Options{
		Width:          s.width,
		Height:         s.height,
		FieldRadius:    s.fieldRadius,
		FieldHeight:    s.fieldHeight,
		MaskResolution: s.maskRes,
	}

	newWeb := func() *web.Server {
		srv := web.NewServer(web.Config{
			Addr:           s.webAddr,
			MaskResolution: s.maskRes,
			FieldRadius:    s.fieldRadius,
			FieldHeight:    s.fieldHeight,
			Log:            s.log,
		})
		srv.Start()
		return srv
	}

	switch backend {
	case "auto":
		if render.SupportsSDL() {
			return render.NewPointRenderer(opts)
		}
		s.log.Println("SDL backend not built in, falling back to web renderer")
		return newWeb(), nil
	case "sdl":
		return render.NewPointRenderer(opts)
	case "web":
		return newWeb(), nil
	case "both":
		sdlRend, err := render.NewPointRenderer(opts)
		if err != nil {
			return nil, err
		}
		return render.Multi{sdlRend, newWeb()}, nil
	case "none":
		return render.Null{}, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q (want auto, sdl, web, both or none)", backend)
	}
}
