package sentinel_test

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/markizano/asthralios/internal/sentinel"
	llmmock "github.com/markizano/asthralios/pkg/provider/llm/mock"
)

const cleanVerdict = `{"ok": true, "filename": "main.go", "issues": []}`

const dirtyVerdict = `{
  "ok": false,
  "filename": "main.go",
  "issues": [{
    "name": "hardcoded credential",
    "severity": "critical",
    "category": "secrets",
    "cwe": ["CWE-798"],
    "cve": [],
    "owasp": ["A07:2021"],
    "lines": [12, 12],
    "snippet": "password := \"hunter2\"",
    "explanation": "A password is embedded in the source.",
    "remediation": "Load the credential from the environment.",
    "proposed_fix": "-password := \"hunter2\"\n+password := os.Getenv(\"DB_PASSWORD\")",
    "references": ["https://cwe.mitre.org/data/definitions/798.html"],
    "confidence": 0.95
  }]
}`

func newChecker(t *testing.T, fsys afero.Fs, provider *llmmock.Provider) *sentinel.Checker {
	t.Helper()
	c, err := sentinel.NewChecker(provider, sentinel.WithFs(fsys))
	if err != nil {
		t.Fatalf("NewChecker: %v", err)
	}
	return c
}

func TestCheckFileParsesFindings(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "src/main.go", []byte("package main"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	provider := &llmmock.Provider{Reply: dirtyVerdict}
	c := newChecker(t, fsys, provider)

	report, err := c.CheckFile(context.Background(), "src/main.go")
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if report.OK {
		t.Error("report.OK = true, want false")
	}
	if report.Filename != "src/main.go" {
		t.Errorf("filename = %q, want the reviewed path", report.Filename)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(report.Issues))
	}
	issue := report.Issues[0]
	if issue.Severity != sentinel.SeverityCritical || issue.Category != "secrets" {
		t.Errorf("issue = %+v", issue)
	}
	if issue.Lines != [2]int{12, 12} {
		t.Errorf("lines = %v", issue.Lines)
	}

	// The prompt must carry the file content.
	call := provider.Calls()[0]
	if len(call) != 2 {
		t.Fatalf("prompt has %d messages, want 2", len(call))
	}
	if !strings.Contains(call[1].Content, "package main") {
		t.Error("user prompt missing file content")
	}
}

func TestCheckFileToleratesCodeFences(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "main.go", []byte("package main"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	provider := &llmmock.Provider{Reply: "```json\n" + cleanVerdict + "\n```"}
	c := newChecker(t, fsys, provider)

	report, err := c.CheckFile(context.Background(), "main.go")
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if !report.OK {
		t.Error("report.OK = false, want true")
	}
}

func TestCheckFileRejectsInvalidSeverity(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "main.go", []byte("package main"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	verdict := strings.Replace(dirtyVerdict, `"critical"`, `"catastrophic"`, 1)
	c := newChecker(t, fsys, &llmmock.Provider{Reply: verdict})

	if _, err := c.CheckFile(context.Background(), "main.go"); err == nil {
		t.Fatal("expected error for invalid severity")
	}
}

func TestCheckWalksOnlyConfiguredExtensions(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, path := range []string{"a/one.go", "a/two.py", "a/three.rb", "a/notes.md"} {
		if err := afero.WriteFile(fsys, path, []byte("code"), 0o644); err != nil {
			t.Fatalf("write %q: %v", path, err)
		}
	}
	provider := &llmmock.Provider{Reply: cleanVerdict}
	c := newChecker(t, fsys, provider)

	reports, err := c.Check(context.Background(), "a")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("reports = %d, want 2 (.go and .py only)", len(reports))
	}
}

func TestCheckSkipsFailedReviews(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, path := range []string{"a/one.go", "a/two.go"} {
		if err := afero.WriteFile(fsys, path, []byte("code"), 0o644); err != nil {
			t.Fatalf("write %q: %v", path, err)
		}
	}
	provider := &llmmock.Provider{Replies: []string{"not json at all", cleanVerdict}}
	c := newChecker(t, fsys, provider)

	reports, err := c.Check(context.Background(), "a")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("reports = %d, want 1 (bad verdict skipped)", len(reports))
	}
}

func TestNewCheckerValidation(t *testing.T) {
	if _, err := sentinel.NewChecker(nil); err == nil {
		t.Fatal("expected error for nil provider")
	}
}
