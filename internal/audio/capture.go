package audio

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// inputStream is the slice of the PortAudio stream surface the session
// drives. *portaudio.Stream satisfies it.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
}

// Capture is a live-input audio session backed by a PortAudio stream,
// typically a microphone or a loopback/monitor device. The stream callback
// mixes input down to mono into a ring buffer that the analyser reads from
// the frame loop.
type Capture struct {
	stream     inputStream
	sampleRate float64
	channels   int
	device     *portaudio.DeviceInfo
	analyser   *Analyser
	window     []float32

	mu      sync.RWMutex
	ring    []float32
	next    int
	started bool
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// CaptureConfig controls how a Capture session is created.
type CaptureConfig struct {
	DeviceName string // substring match; empty picks the best input device
	Channels   int
}

// OpenCapture opens a PortAudio input stream on the requested device. Like
// file playback, the stream does not start until Play is called.
func OpenCapture(cfg CaptureConfig) (*Capture, error) {
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	device, err := findDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		sampleRate: device.DefaultSampleRate,
		channels:   cfg.Channels,
		device:     device,
		analyser:   NewAnalyser(),
		window:     make([]float32, fftSize),
		ring:       make([]float32, ringSize),
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      c.sampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, c.process)
	if err != nil {
		return nil, fmt.Errorf("audio: open stream: %w", err)
	}
	c.stream = stream
	return c, nil
}

// Play starts (or restarts) the input stream. The mutex is released before
// the stream call: Start and Stop block until the PortAudio callback drains,
// and the callback takes the same mutex.
func (c *Capture) Play() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("audio: session is closed")
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("audio: start stream: %w", err)
	}

	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	return nil
}

// Pause stops the input stream; Play resumes it. Like Play, the stream call
// happens outside the mutex so the draining callback can still acquire it.
func (c *Capture) Pause() {
	c.mu.Lock()
	if !c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.mu.Unlock()

	if err := c.stream.Stop(); err != nil && !isInvalidStreamState(err) {
		c.mu.Lock()
		c.started = true
		c.mu.Unlock()
	}
}

// Active reports whether the stream is currently delivering samples.
func (c *Capture) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started && !c.closed
}

// FrequencyData refreshes and returns the magnitude snapshot for the current
// frame. The slice is reused; treat it as read-only until the next call.
func (c *Capture) FrequencyData() []byte {
	return c.analyser.Process(c.snapshot(c.window))
}

// SampleRate returns the device sample rate.
func (c *Capture) SampleRate() float64 {
	return c.sampleRate
}

// Device returns the PortAudio device backing the session.
func (c *Capture) Device() *portaudio.DeviceInfo {
	return c.device
}

// Close stops and closes the stream exactly once.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		started := c.started
		c.started = false
		c.closed = true
		c.mu.Unlock()

		if started {
			if err := c.stream.Stop(); err != nil && !isInvalidStreamState(err) {
				c.closeErr = err
			}
		}
		if err := c.stream.Close(); err != nil && c.closeErr == nil {
			c.closeErr = err
		}
	})
	return c.closeErr
}

// process is the PortAudio callback: mono mixdown into the ring buffer.
func (c *Capture) process(in []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channels <= 1 {
		for _, s := range in {
			c.push(s)
		}
		return
	}
	for i := 0; i+c.channels <= len(in); i += c.channels {
		sum := float32(0)
		for ch := 0; ch < c.channels; ch++ {
			sum += in[i+ch]
		}
		c.push(sum / float32(c.channels))
	}
}

func (c *Capture) push(s float32) {
	c.ring[c.next] = s
	c.next++
	if c.next >= len(c.ring) {
		c.next = 0
	}
}

// snapshot copies the most recent len(dst) ring samples in chronological order.
func (c *Capture) snapshot(dst []float32) []float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := len(dst)
	if n > len(c.ring) {
		n = len(c.ring)
		dst = dst[:n]
	}
	start := c.next - n
	if start < 0 {
		start += len(c.ring)
	}
	first := copy(dst, c.ring[start:])
	copy(dst[first:], c.ring[:n-first])
	return dst
}

func findDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" {
		return findDeviceByName(name)
	}

	if dev, err := portaudio.DefaultInputDevice(); err == nil && dev != nil && dev.MaxInputChannels > 0 {
		return dev, nil
	}
	if host, err := portaudio.DefaultHostApi(); err == nil && host != nil {
		if host.DefaultInputDevice != nil && host.DefaultInputDevice.MaxInputChannels > 0 {
			return host.DefaultInputDevice, nil
		}
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}
	if candidate := pickBestDevice(devices); candidate != nil {
		return candidate, nil
	}
	return nil, fmt.Errorf("audio: no suitable input device found")
}

func findDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}

	name = strings.ToLower(name)
	for _, device := range devices {
		if device.MaxInputChannels == 0 {
			continue
		}
		if strings.Contains(strings.ToLower(device.Name), name) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("audio: device %q not found", name)
}

// pickBestDevice prefers defaults, then loopback-style devices that carry
// what is actually playing rather than a bare microphone.
func pickBestDevice(devices []*portaudio.DeviceInfo) *portaudio.DeviceInfo {
	type scored struct {
		dev   *portaudio.DeviceInfo
		score int
	}
	keywords := []string{"monitor", "loopback", "mix", "stereo mix", "what u hear"}

	defaultInputIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultInputIndex = def.Index
	}

	var results []scored
	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}
		score := d.MaxInputChannels
		if d.Index == defaultInputIndex {
			score += 50
		}
		lower := strings.ToLower(d.Name)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score += 20
				break
			}
		}
		results = append(results, scored{dev: d, score: score})
	}
	if len(results) == 0 {
		return nil
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return strings.ToLower(results[i].dev.Name) < strings.ToLower(results[j].dev.Name)
		}
		return results[i].score > results[j].score
	})
	return results[0].dev
}

// isInvalidStreamState reports whether err stems from stopping an already
// stopped stream.
func isInvalidStreamState(err error) bool {
	if err == nil {
		return false
	}
	const invalidStateMsg = "PaErrorCode -9986"
	return strings.Contains(err.Error(), invalidStateMsg)
}

// AutoDetectDevice returns the best available input device PortAudio can find.
func AutoDetectDevice() (*portaudio.DeviceInfo, error) {
	return findDevice("")
}
