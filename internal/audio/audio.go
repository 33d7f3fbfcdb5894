// Package audio analyzes an audio stream into frequency bins for the
// visualization bars.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/wav"

	"github.com/tomz197/swarmship/internal/loop/config"
)

// SampleRate is the rate of the synthesized source.
const SampleRate = beep.SampleRate(44100)

// Byte scaling follows the browser analyser defaults.
const (
	minDecibels = -100.0
	maxDecibels = -30.0
	smoothing   = 0.8
)

// ErrSourceEnded is recorded when a non-looping source runs dry.
var ErrSourceEnded = errors.New("audio source ended")

// NewToneSource returns an endless chord of sine tones.
func NewToneSource(sr beep.SampleRate, freqs ...float64) (beep.Streamer, error) {
	if len(freqs) == 0 {
		freqs = []float64{110, 440, 1320, 3520}
	}
	tones := make([]beep.Streamer, 0, len(freqs))
	for _, f := range freqs {
		tone, err := generators.SineTone(sr, f)
		if err != nil {
			return nil, fmt.Errorf("sine tone %.0fHz: %w", f, err)
		}
		tones = append(tones, tone)
	}
	return beep.Mix(tones...), nil
}

// looped restarts a seekable stream from the beginning when it ends.
type looped struct {
	s beep.StreamSeekCloser
}

func (l *looped) Stream(samples [][2]float64) (int, bool) {
	n, ok := l.s.Stream(samples)
	if n < len(samples) {
		if err := l.s.Seek(0); err != nil {
			return n, n > 0
		}
		m, _ := l.s.Stream(samples[n:])
		n += m
	}
	return n, ok || n > 0
}

func (l *looped) Err() error {
	return l.s.Err()
}

// OpenWAV decodes a WAV file into a looping stream. The returned closer
// releases the file.
func OpenWAV(path string) (beep.Streamer, beep.Format, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, nil, fmt.Errorf("open audio file: %w", err)
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, nil, fmt.Errorf("decode wav: %w", err)
	}
	return &looped{s: s}, format, s.Close, nil
}

// Analyzer turns a stream into byte magnitudes per frequency bin.
type Analyzer struct {
	src    beep.Streamer
	rate   beep.SampleRate
	logger *log.Logger

	frame  [][2]float64
	window []float64
	smooth []float64

	mu       sync.RWMutex
	bins     []uint8
	disabled bool
	err      error
}

// NewAnalyzer creates an analyzer over src sampled at rate.
func NewAnalyzer(src beep.Streamer, rate beep.SampleRate, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}
	n := config.SpectrumFFTSize
	return &Analyzer{
		src:    src,
		rate:   rate,
		logger: logger.WithPrefix("audio"),
		frame:  make([][2]float64, n),
		window: blackman(n),
		smooth: make([]float64, config.SpectrumBins),
		bins:   make([]uint8, config.SpectrumBins),
	}
}

// Disabled returns an analyzer that never produces bins.
func Disabled(reason error, logger *log.Logger) *Analyzer {
	a := NewAnalyzer(nil, SampleRate, logger)
	a.disable(reason)
	return a
}

// Spectrum returns a copy of the latest bins. It is empty once the source failed.
func (a *Analyzer) Spectrum() []uint8 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.disabled {
		return nil
	}
	out := make([]uint8, len(a.bins))
	copy(out, a.bins)
	return out
}

// Err returns the reason the analyzer was disabled, if any.
func (a *Analyzer) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

func (a *Analyzer) disable(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.disabled {
		return
	}
	a.disabled = true
	a.err = err
	a.logger.Error("audio source failed, spectrum disabled", "err", err)
}

// Update consumes samples worth of audio and analyzes the last frame.
// It reports false once the analyzer is disabled.
func (a *Analyzer) Update(samples int) bool {
	a.mu.RLock()
	disabled := a.disabled
	a.mu.RUnlock()
	if disabled || a.src == nil {
		return false
	}

	size := len(a.frame)
	if samples < size {
		samples = size
	}

	// Whole frames only, so the analyzed frame is contiguous
	for read := 0; read < samples; {
		n, ok := a.src.Stream(a.frame)
		if err := a.src.Err(); err != nil {
			a.disable(err)
			return false
		}
		if !ok || n < size {
			a.disable(ErrSourceEnded)
			return false
		}
		read += n
	}

	a.analyze()
	return true
}

// analyze computes windowed DFT magnitudes of the frame and stores them as
// bytes on the decibel scale.
func (a *Analyzer) analyze() {
	size := len(a.frame)
	bins := len(a.smooth)
	out := make([]uint8, bins)

	for k := 0; k < bins; k++ {
		var re, im float64
		for i, s := range a.frame {
			v := (s[0] + s[1]) / 2 * a.window[i]
			angle := 2 * math.Pi * float64(k*i) / float64(size)
			re += v * math.Cos(angle)
			im -= v * math.Sin(angle)
		}
		mag := math.Hypot(re, im) / float64(size)
		a.smooth[k] = smoothing*a.smooth[k] + (1-smoothing)*mag

		db := -math.MaxFloat64
		if a.smooth[k] > 0 {
			db = 20 * math.Log10(a.smooth[k])
		}
		scaled := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
		out[k] = uint8(math.Max(0, math.Min(255, scaled)))
	}

	a.mu.Lock()
	a.bins = out
	a.mu.Unlock()
}

// Run analyzes the source every interval, consuming the matching amount of
// audio, until ctx ends or the source fails.
func (a *Analyzer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	samples := a.rate.N(interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.Update(samples) {
				return
			}
		}
	}
}

func blackman(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	}
	return w
}
