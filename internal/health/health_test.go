package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	llmmock "github.com/markizano/asthralios/pkg/provider/llm/mock"
	ttsmock "github.com/markizano/asthralios/pkg/provider/tts/mock"
)

// probeMux mounts the handler's routes and returns the decoded response for
// one request.
func probeMux(t *testing.T, h *Handler, path string) (int, report) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var rep report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	return rec.Code, rep
}

func TestHealthzAliveEvenWithFailingCollaborators(t *testing.T) {
	h := New(
		CheckTTS(&ttsmock.Provider{ListVoicesErr: errors.New("refused")}),
		CheckLLM(&llmmock.Provider{CompleteErr: errors.New("model not loaded")}),
	)

	code, rep := probeMux(t, h, "/healthz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if rep.Status != "ok" {
		t.Errorf("body status = %q, want ok", rep.Status)
	}
}

func TestReadyzAllCollaboratorsHealthy(t *testing.T) {
	h := New(
		CheckTTS(&ttsmock.Provider{}),
		CheckLLM(&llmmock.Provider{Reply: "ok"}),
		CheckMemory(fakePinger{}),
	)

	code, rep := probeMux(t, h, "/readyz")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want %d (checks: %v)", code, http.StatusOK, rep.Checks)
	}
	for _, name := range []string{"tts", "llm", "memory"} {
		if rep.Checks[name] != "ok" {
			t.Errorf("check %q = %q, want ok", name, rep.Checks[name])
		}
	}
}

func TestReadyzNamesTheFailingCollaborator(t *testing.T) {
	h := New(
		CheckTTS(&ttsmock.Provider{}),
		CheckMemory(fakePinger{err: errors.New("connection reset")}),
	)

	code, rep := probeMux(t, h, "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if rep.Status != "fail" {
		t.Errorf("body status = %q, want fail", rep.Status)
	}
	if rep.Checks["tts"] != "ok" {
		t.Errorf("tts check = %q, want ok", rep.Checks["tts"])
	}
	if rep.Checks["memory"] != "fail: health: memory store: connection reset" {
		t.Errorf("memory check = %q, want the wrapped ping error", rep.Checks["memory"])
	}
}

func TestReadyzWithoutCheckersIsReady(t *testing.T) {
	code, rep := probeMux(t, New(), "/readyz")
	if code != http.StatusOK || rep.Status != "ok" {
		t.Errorf("got %d/%q, want 200/ok", code, rep.Status)
	}
}

func TestReadyzPassesCancellationToProbes(t *testing.T) {
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
