// Package sentinel reviews source code with a language model.
//
// A [Checker] walks a source tree, sends each file to the model with a
// structured-review prompt, and parses the JSON verdict into [Report] values.
package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/markizano/asthralios/internal/observe"
	"github.com/markizano/asthralios/pkg/provider/llm"
)

// defaultExtensions are the file types reviewed when none are configured.
var defaultExtensions = []string{".go", ".py"}

// Checker runs structured code reviews through a language model.
type Checker struct {
	provider llm.Provider
	fsys     afero.Fs
	exts     []string
	log      *slog.Logger
}

// Option is a functional option for Checker.
type Option func(*Checker)

// WithFs replaces the filesystem sources are read from.
func WithFs(fsys afero.Fs) Option {
	return func(c *Checker) { c.fsys = fsys }
}

// WithExtensions replaces the reviewed file extensions (with leading dots).
func WithExtensions(exts ...string) Option {
	return func(c *Checker) {
		if len(exts) > 0 {
			c.exts = exts
		}
	}
}

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Checker) { c.log = log }
}

// NewChecker constructs a Checker reviewing through provider.
func NewChecker(provider llm.Provider, opts ...Option) (*Checker, error) {
	if provider == nil {
		return nil, fmt.Errorf("sentinel: provider must not be nil")
	}
	c := &Checker{
		provider: provider,
		fsys:     afero.NewOsFs(),
		exts:     defaultExtensions,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Check walks root and reviews every matching file. Files the model cannot
// review are logged and skipped; the walk itself failing is an error.
func (c *Checker) Check(ctx context.Context, root string) ([]Report, error) {
	var reports []Report
	err := afero.Walk(c.fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("sentinel: walk %q: %w", path, err)
		}
		if info.IsDir() || !slices.Contains(c.exts, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		report, err := c.CheckFile(ctx, path)
		if err != nil {
			c.log.Error("review failed, skipping file", "path", path, "error", err)
			return nil
		}
		reports = append(reports, report)
		return nil
	})
	return reports, err
}

// CheckFile reviews a single file.
func (c *Checker) CheckFile(ctx context.Context, path string) (Report, error) {
	var report Report
	err := observe.WithSpan(ctx, "review "+path, func(ctx context.Context) error {
		var err error
		report, err = c.reviewFile(ctx, path)
		return err
	})
	return report, err
}

func (c *Checker) reviewFile(ctx context.Context, path string) (Report, error) {
	code, err := afero.ReadFile(c.fsys, path)
	if err != nil {
		return Report{}, fmt.Errorf("sentinel: read %q: %w", path, err)
	}
	c.log.Info("examining code", "path", path)

	reply, err := c.provider.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf(userPromptFmt, path, code)},
	})
	if err != nil {
		return Report{}, fmt.Errorf("sentinel: review %q: %w", path, err)
	}

	report, err := parseReport(reply)
	if err != nil {
		return Report{}, fmt.Errorf("sentinel: parse verdict for %q: %w", path, err)
	}
	// Models occasionally echo a shortened filename; the path we sent wins.
	report.Filename = path
	return report, nil
}

// parseReport decodes the model's JSON verdict, tolerating markdown code
// fences around the object.
func parseReport(reply string) (Report, error) {
	text := strings.TrimSpace(reply)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	var report Report
	if err := json.Unmarshal([]byte(text), &report); err != nil {
		return Report{}, fmt.Errorf("decode json: %w", err)
	}
	for i, issue := range report.Issues {
		if !issue.Severity.IsValid() {
			return Report{}, fmt.Errorf("issue %d has invalid severity %q", i, issue.Severity)
		}
	}
	return report, nil
}
