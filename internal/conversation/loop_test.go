package conversation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/markizano/asthralios/internal/conversation"
	"github.com/markizano/asthralios/pkg/audio"
)

// fakeAudio stands in for the duplex controller: utterances are pushed by the
// test, speaks and interrupts are recorded.
type fakeAudio struct {
	mu         sync.Mutex
	utts       chan audio.Utterance
	spoken     []string
	interrupts int
	err        error
	closeOnce  sync.Once
}

func newFakeAudio() *fakeAudio {
	return &fakeAudio{utts: make(chan audio.Utterance, 4)}
}

func (f *fakeAudio) Listen() <-chan audio.Utterance { return f.utts }

func (f *fakeAudio) Speak(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeAudio) Interrupt() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interrupts++
	return len(f.spoken) > 0
}

func (f *fakeAudio) Wait(context.Context) error { return nil }

func (f *fakeAudio) Stop() error {
	f.closeOnce.Do(func() { close(f.utts) })
	return f.Err()
}

func (f *fakeAudio) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeAudio) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeAudio) interruptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interrupts
}

// push delivers an utterance as if the capture worker segmented it.
func (f *fakeAudio) push() {
	f.utts <- audio.Utterance{Samples: make([]float32, 160), SampleRate: 16000}
}

// fakeSTT returns scripted transcriptions in order.
type fakeSTT struct {
	mu    sync.Mutex
	texts []string
	errs  []error
	calls int
}

func (f *fakeSTT) Transcribe(context.Context, []float32, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.texts) {
		return f.texts[i], nil
	}
	return "", nil
}

// fakeLLM maps heard text to replies.
type fakeLLM struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	calls   int
}

func (f *fakeLLM) Converse(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if reply, ok := f.replies[text]; ok {
		return reply, nil
	}
	return "Understood.", nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newLoop(t *testing.T, a *fakeAudio, stt *fakeSTT, llm *fakeLLM, opts ...conversation.Option) *conversation.Loop {
	t.Helper()
	l, err := conversation.New(conversation.Config{
		Audio:       a,
		Transcriber: stt,
		Dialoguer:   llm,
		Language:    "en",
	}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func runLoop(t *testing.T, l *conversation.Loop, ctx context.Context) error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not terminate")
		return nil
	}
}

func TestGreetingSpokenBeforeListening(t *testing.T) {
	a := newFakeAudio()
	stt := &fakeSTT{texts: []string{"that's all for today"}}
	llm := &fakeLLM{replies: map[string]string{"that's all for today": "Goodbye."}}
	l := newLoop(t, a, stt, llm)

	a.push()
	if err := runLoop(t, l, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	spoken := a.spokenTexts()
	if len(spoken) == 0 || spoken[0] != "Good morning." {
		t.Fatalf("spoken = %v, want greeting first", spoken)
	}
	if l.State() != conversation.StateTerminated {
		t.Errorf("state = %v, want terminated", l.State())
	}
}

func TestFarewellSpeaksOnceAndTerminates(t *testing.T) {
	a := newFakeAudio()
	stt := &fakeSTT{texts: []string{"goodbye asthralios"}}
	llm := &fakeLLM{replies: map[string]string{"goodbye asthralios": "Goodbye, sir."}}
	l := newLoop(t, a, stt, llm)

	a.push()
	if err := runLoop(t, l, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	spoken := a.spokenTexts()
	want := []string{"Good morning.", "Goodbye."}
	if len(spoken) != len(want) || spoken[0] != want[0] || spoken[1] != want[1] {
		t.Fatalf("spoken = %v, want %v", spoken, want)
	}

	// The utterance channel is closed: no further listening happens.
	if _, ok := <-a.utts; ok {
		t.Error("audio pipeline still delivering after termination")
	}
}

func TestPauseSleepsWithoutSpeaking(t *testing.T) {
	a := newFakeAudio()
	stt := &fakeSTT{texts: []string{"take a break"}}
	llm := &fakeLLM{replies: map[string]string{"take a break": "pause for 60 seconds"}}

	var slept time.Duration
	ctx, cancel := context.WithCancel(context.Background())
	l := newLoop(t, a, stt, llm, conversation.WithSleeper(func(_ context.Context, d time.Duration) {
		slept = d
		cancel()
	}))

	a.push()
	if err := runLoop(t, l, ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if slept != 60*time.Second {
		t.Errorf("slept %v, want 60s", slept)
	}
	// Only the greeting was spoken: a pause turn produces no reply audio.
	if spoken := a.spokenTexts(); len(spoken) != 1 {
		t.Errorf("spoken = %v, want greeting only", spoken)
	}
}

func TestNewUtteranceInterruptsPlayback(t *testing.T) {
	a := newFakeAudio()
	stt := &fakeSTT{texts: []string{"tell me a story", "goodbye"}}
	llm := &fakeLLM{replies: map[string]string{
		"tell me a story": "Once upon a time, there was a very long story.",
		"goodbye":         "Goodbye.",
	}}
	l := newLoop(t, a, stt, llm)

	a.push()
	a.push()
	if err := runLoop(t, l, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := a.interruptCount(); got < 2 {
		t.Errorf("interrupts = %d, want one per utterance", got)
	}
	spoken := a.spokenTexts()
	if len(spoken) != 3 {
		t.Fatalf("spoken = %v, want greeting, story, farewell", spoken)
	}
}

func TestEmptyTranscriptionSkipsDialogue(t *testing.T) {
	a := newFakeAudio()
	stt := &fakeSTT{texts: []string{"   ", "goodbye"}}
	llm := &fakeLLM{replies: map[string]string{"goodbye": "Goodbye."}}
	l := newLoop(t, a, stt, llm)

	a.push()
	a.push()
	if err := runLoop(t, l, context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := llm.callCount(); got != 1 {
		t.Errorf("dialogue calls = %d, want 1 (blank transcription skipped)", got)
	}
}

func TestCollaboratorFailureSkipsTurn(t *testing.T) {
	a := newFakeAudio()
	stt := &fakeSTT{
		errs:  []error{errors.New("asr offline"), nil},
		texts: []string{"", "goodbye"},
	}
	llm := &fakeLLM{replies: map[string]string{"goodbye": "Goodbye."}}
	l := newLoop(t, a, stt, llm)

	a.push()
	a.push()
	if err := runLoop(t, l, context.Background()); err != nil {
		t.Fatalf("collaborator failure must not kill the loop: %v", err)
	}
	if l.State() != conversation.StateTerminated {
		t.Errorf("state = %v, want terminated", l.State())
	}
}

func TestPipelineFailureTerminatesLoop(t *testing.T) {
	a := newFakeAudio()
	a.err = errors.New("capture device lost")
	stt := &fakeSTT{}
	llm := &fakeLLM{}
	l := newLoop(t, a, stt, llm)

	// Capture dies: the channel closes without a farewell.
	a.closeOnce.Do(func() { close(a.utts) })

	err := runLoop(t, l, context.Background())
	if err == nil {
		t.Fatal("expected pipeline failure to surface from Run")
	}
	if !errors.Is(err, a.err) {
		t.Errorf("Run error %v does not wrap device error", err)
	}
}
