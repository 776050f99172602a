package duplex

import (
	"context"
	"errors"
	"log/slog"

	"github.com/markizano/asthralios/pkg/audio"
)

// captureWorker owns the capture device and one segmenter. It runs on its own
// goroutine so the conversation loop never blocks on a device read, pushing
// finished utterances onto the bounded out channel.
//
// Backpressure: when out is full the worker blocks. Audio that was already
// captured and segmented is user speech and must not be dropped — capture
// pauses instead.
type captureWorker struct {
	dev audio.Device
	seg *Segmenter
	out chan audio.Utterance
}

// run reads frames until the context is cancelled or the device closes.
// Returns nil on clean shutdown; a device or classifier failure is returned
// as-is and is fatal to the pipeline.
func (w *captureWorker) run(ctx context.Context) error {
	defer close(w.out)

	for {
		frame, err := w.dev.Read(ctx)
		if err != nil {
			if errors.Is(err, audio.ErrDeviceClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		utt, err := w.seg.Push(frame)
		if err != nil {
			return err
		}
		if utt == nil {
			continue
		}

		slog.Debug("utterance complete",
			"duration", utt.Duration(),
			"trailing_silence", utt.TrailingSilence,
		)

		select {
		case w.out <- *utt:
		case <-ctx.Done():
			return nil
		}
	}
}
