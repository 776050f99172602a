package vad

// Event is the voice activity detection result for a single audio frame.
type Event struct {
	// Speech reports whether the frame's probability exceeded the session's
	// speech threshold.
	Speech bool

	// Probability is the speech probability score (0.0–1.0).
	Probability float64
}
