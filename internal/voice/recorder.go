// Package voice persists captured utterances as WAV samples. The sample
// directory doubles as the training corpus for voice cloning, so files are
// written in the plain 16-bit PCM layout every trainer ingests.
package voice

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	gowav "github.com/go-audio/wav"
	"github.com/spf13/afero"
	"github.com/zenwerk/go-wave"

	"github.com/markizano/asthralios/pkg/audio"
)

// Recorder writes finished utterances into a sample directory and reads them
// back. One Recorder owns one directory; concurrent Saves are safe only with
// distinct timestamps, which the wall clock guarantees.
type Recorder struct {
	fsys afero.Fs
	dir  string
	now  func() time.Time
	log  *slog.Logger
}

// Option is a functional option for Recorder.
type Option func(*Recorder)

// WithFs replaces the default OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(r *Recorder) { r.fsys = fsys }
}

// WithClock replaces the wall clock used for sample filenames.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Recorder) { r.log = log }
}

// NewRecorder creates a recorder rooted at dir, creating it if needed.
func NewRecorder(dir string, opts ...Option) (*Recorder, error) {
	if dir == "" {
		return nil, fmt.Errorf("voice: sample directory must not be empty")
	}
	r := &Recorder{
		fsys: afero.NewOsFs(),
		dir:  dir,
		now:  time.Now,
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	if err := r.fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("voice: create sample directory: %w", err)
	}
	return r, nil
}

// Save writes the utterance as a mono 16-bit WAV and returns the filename
// (relative to the sample directory).
func (r *Recorder) Save(utt audio.Utterance) (string, error) {
	if len(utt.Samples) == 0 {
		return "", fmt.Errorf("voice: refusing to save an empty utterance")
	}
	if utt.SampleRate <= 0 {
		return "", fmt.Errorf("voice: utterance sample rate must be positive, got %d", utt.SampleRate)
	}

	name := fmt.Sprintf("utterance-%s.wav", r.now().UTC().Format("20060102T150405.000000000"))
	f, err := r.fsys.Create(filepath.Join(r.dir, name))
	if err != nil {
		return "", fmt.Errorf("voice: create sample file: %w", err)
	}

	w, err := wave.NewWriter(wave.WriterParam{
		Out:           f,
		Channel:       1,
		SampleRate:    utt.SampleRate,
		BitsPerSample: 16,
	})
	if err != nil {
		f.Close()
		return "", fmt.Errorf("voice: create wav writer: %w", err)
	}
	if _, err := w.WriteSample16(int16FromFloat32(utt.Samples)); err != nil {
		w.Close()
		return "", fmt.Errorf("voice: write samples: %w", err)
	}
	// Closing the writer finalizes the header and closes the file.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("voice: close wav writer: %w", err)
	}

	r.log.Debug("utterance saved",
		"file", name,
		"duration", utt.Duration(),
		"sample_rate", utt.SampleRate,
	)
	return name, nil
}

// Load reads a sample by filename and returns it as an utterance.
func (r *Recorder) Load(name string) (audio.Utterance, error) {
	f, err := r.fsys.Open(filepath.Join(r.dir, name))
	if err != nil {
		return audio.Utterance{}, fmt.Errorf("voice: open sample: %w", err)
	}
	defer f.Close()

	dec := gowav.NewDecoder(f)
	if !dec.IsValidFile() {
		return audio.Utterance{}, fmt.Errorf("voice: %s is not a wav file", name)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.Utterance{}, fmt.Errorf("voice: decode sample: %w", err)
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / 32768.0
	}
	return audio.Utterance{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
	}, nil
}

// List returns the sample filenames in the directory, sorted by name. The
// timestamped naming makes that chronological order.
func (r *Recorder) List() ([]string, error) {
	infos, err := afero.ReadDir(r.fsys, r.dir)
	if err != nil {
		return nil, fmt.Errorf("voice: read sample directory: %w", err)
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".wav") {
			continue
		}
		names = append(names, info.Name())
	}
	return names, nil
}

// int16FromFloat32 converts normalized samples to signed 16-bit, clamping
// values outside [-1, 1].
func int16FromFloat32(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		out[i] = int16(v * 32767)
	}
	return out
}
