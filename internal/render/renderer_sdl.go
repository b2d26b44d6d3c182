//go:build sdl

package render

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/nqnqxp/extendedRealities-Xiona/internal/scene"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/sprite"
	"github.com/nqnqxp/extendedRealities-Xiona/internal/visual"
)

// PointRenderer draws the particle field as additive soft discs in an SDL
// window. Glow intensity modulates sprite brightness, which the additive
// blend turns into a cheap bloom.
type PointRenderer struct {
	opts   Options
	cam    camera
	window *sdl.Window
	rend   *sdl.Renderer
	sprite *sdl.Texture
	frames int
	closed bool
}

// NewPointRenderer opens the window and uploads the shared soft mask as the
// particle sprite.
func NewPointRenderer(opts Options) (*PointRenderer, error) {
	opts.applyDefaults()

	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("render: init sdl: %w", err)
	}
	window, err := sdl.CreateWindow(
		opts.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(opts.Width), int32(opts.Height),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("render: create window: %w", err)
	}
	rend, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
		return nil, fmt.Errorf("render: create renderer: %w", err)
	}

	r := &PointRenderer{
		opts:   opts,
		cam:    newCamera(opts),
		window: window,
		rend:   rend,
	}
	if err := r.uploadSprite(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *PointRenderer) uploadSprite() error {
	mask, err := sprite.GenerateMask(r.opts.MaskResolution)
	if err != nil {
		return err
	}
	res := int32(r.opts.MaskResolution)
	tex, err := r.rend.CreateTexture(
		sdl.PIXELFORMAT_ABGR8888,
		sdl.TEXTUREACCESS_STATIC,
		res, res,
	)
	if err != nil {
		return fmt.Errorf("render: create sprite texture: %w", err)
	}
	if err := tex.Update(nil, mask.Pix, mask.Stride); err != nil {
		tex.Destroy()
		return fmt.Errorf("render: upload sprite: %w", err)
	}
	if err := tex.SetBlendMode(sdl.BLENDMODE_ADD); err != nil {
		tex.Destroy()
		return fmt.Errorf("render: sprite blend mode: %w", err)
	}
	r.sprite = tex
	return nil
}

func (r *PointRenderer) RenderFrame(positions []float32, p visual.Parameters, level, fps float64) error {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch event.(type) {
		case *sdl.QuitEvent:
			return scene.ErrDisplayClosed
		}
	}

	if err := r.rend.SetDrawColor(4, 8, 20, 255); err != nil {
		return err
	}
	if err := r.rend.Clear(); err != nil {
		return err
	}

	mod := glowByte(p.GlowIntensity)
	_ = r.sprite.SetColorMod(mod, mod, mod)

	w := float64(r.opts.Width)
	h := float64(r.opts.Height)
	for i := 0; i < len(positions); i += 3 {
		sx, sy, depth := r.cam.project(float64(positions[i]), float64(positions[i+1]), float64(positions[i+2]))
		size := p.ParticleSize * depth
		if size < 1 {
			size = 1
		}
		if sx < -size || sx > w+size || sy < -size || sy > h+size {
			continue
		}
		half := float32(size / 2)
		dst := sdl.FRect{
			X: float32(sx) - half,
			Y: float32(sy) - half,
			W: float32(size),
			H: float32(size),
		}
		if err := r.rend.CopyF(r.sprite, nil, &dst); err != nil {
			return err
		}
	}

	r.frames++
	if r.frames%30 == 0 {
		r.window.SetTitle(fmt.Sprintf("%s | %.0f fps | loudness %.2f", r.opts.Title, fps, level))
	}
	r.rend.Present()
	return nil
}

// Close destroys the SDL resources; safe to call more than once.
func (r *PointRenderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.sprite != nil {
		r.sprite.Destroy()
		r.sprite = nil
	}
	if r.rend != nil {
		r.rend.Destroy()
		r.rend = nil
	}
	if r.window != nil {
		r.window.Destroy()
		r.window = nil
	}
	sdl.QuitSubSystem(sdl.INIT_VIDEO)
	return nil
}

// SupportsSDL reports whether this build carries the SDL backend.
func SupportsSDL() bool { return true }
