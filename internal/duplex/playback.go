package duplex

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/markizano/asthralios/pkg/audio"
)

// playbackItem is one synthesized clip queued for the playback worker,
// tagged with the generation of the Speak call that produced it. done is
// invoked exactly once when the clip has been played, discarded, or drained
// at shutdown.
type playbackItem struct {
	clip  audio.Clip
	gen   uint64
	total int // number of clips in this generation
	done  func()
}

// playbackWorker owns the playback device. It pulls synthesized clips from its
// input channel and writes them to the device in ordinal order, holding
// out-of-order arrivals in a small reordering map so a reply's paragraphs are
// always heard in written order even when a later paragraph finishes synthesis
// first.
//
// Interruption: flushGen carries the newest cancelled generation. Items of a
// generation at or below it are discarded instead of played, and a clip being
// written is cut off between chunks, so a barge-in silences queued speech
// within one chunk duration.
type playbackWorker struct {
	dev      audio.Device
	in       chan playbackItem
	format   audio.Format
	flushGen atomic.Uint64

	// chunk is the samples-per-channel written to the device per call,
	// bounding how long an interrupt can lag behind a long clip.
	chunk int
}

// run pulls clips until the context is cancelled. Returns nil on clean
// shutdown; a device write failure is fatal and returned as-is.
func (w *playbackWorker) run(ctx context.Context) error {
	conv := audio.FormatConverter{Target: w.format}

	// Reordering state. gen is the generation currently being played, next the
	// next expected ordinal within it. pending holds clips that arrived ahead
	// of their turn, keyed by generation then ordinal.
	var (
		gen     uint64
		next    int
		pending = map[uint64]map[int]playbackItem{}
		idle    = true
	)

	// Every queued item must resolve its done callback exactly once, or a
	// Wait on the controller would hang after shutdown.
	defer func() {
		for {
			select {
			case item := <-w.in:
				item.done()
			default:
				for _, m := range pending {
					for _, item := range m {
						item.done()
					}
				}
				return
			}
		}
	}()

	discardStale := func() {
		cut := w.flushGen.Load()
		for g, m := range pending {
			if g > cut {
				continue
			}
			for _, item := range m {
				item.done()
			}
			delete(pending, g)
		}
		if gen <= cut {
			idle = true
		}
	}

	// adoptOldest points gen at the oldest pending generation. Generations
	// always play oldest first, whichever one's clips happened to arrive
	// while the worker sat idle.
	adoptOldest := func() {
		idle = true
		for g := range pending {
			if idle || g < gen {
				gen = g
				idle = false
			}
		}
		next = 0
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case item := <-w.in:
			if item.gen <= w.flushGen.Load() {
				item.done()
				continue
			}
			if _, ok := pending[item.gen]; !ok {
				pending[item.gen] = map[int]playbackItem{}
			}
			pending[item.gen][item.clip.Ordinal] = item

			// Flush in order as far as arrivals allow.
			for {
				discardStale()
				if idle {
					adoptOldest()
					if idle {
						break
					}
				}
				item, ok := pending[gen][next]
				if !ok {
					break
				}
				delete(pending[gen], next)

				err := w.play(ctx, &conv, item)
				item.done()
				if err != nil {
					return err
				}

				next++
				if next >= item.total {
					delete(pending, gen)
					idle = true
				}
			}
		}
	}
}

// play writes one clip to the device in chunk-sized frames, converting it to
// the device format first. The write is abandoned between chunks when the
// clip's generation has been flushed or the context cancelled; an abandoned
// clip is not an error.
func (w *playbackWorker) play(ctx context.Context, conv *audio.FormatConverter, item playbackItem) error {
	frame := conv.Convert(audio.Frame{
		Samples:    item.clip.Samples,
		SampleRate: item.clip.SampleRate,
		Channels:   1,
	})

	start := time.Now()
	step := w.chunk * w.format.Channels
	for off := 0; off < len(frame.Samples); off += step {
		if ctx.Err() != nil || item.gen <= w.flushGen.Load() {
			slog.Debug("playback cut short",
				"ordinal", item.clip.Ordinal,
				"played", time.Since(start),
			)
			return nil
		}
		end := min(off+step, len(frame.Samples))
		err := w.dev.Write(ctx, audio.Frame{
			Samples:    frame.Samples[off:end],
			SampleRate: w.format.SampleRate,
			Channels:   w.format.Channels,
		})
		if err != nil {
			if errors.Is(err, audio.ErrDeviceClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
	return nil
}
