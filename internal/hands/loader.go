package hands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// supportedExts maps a file extension to the content type recorded on its
// chunks. Files with other extensions are skipped during ingestion.
var supportedExts = map[string]string{
	".txt":  "text",
	".md":   "markdown",
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".csv":  "csv",
	".html": "html",
	".htm":  "html",
}

// loadFile reads path from fsys and converts it to plain text.
// Returns the text, the content type, and whether the extension is supported.
func loadFile(fsys afero.Fs, path string) (string, string, bool, error) {
	contentType, ok := supportedExts[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", "", false, nil
	}

	raw, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", "", true, fmt.Errorf("hands: read %q: %w", path, err)
	}

	var text string
	switch contentType {
	case "yaml":
		text, err = yamlToText(raw)
	case "json":
		text, err = jsonToText(raw)
	case "csv":
		text, err = csvToText(raw)
	case "html":
		text = htmlToText(raw)
	default:
		text = string(raw)
	}
	if err != nil {
		return "", "", true, fmt.Errorf("hands: load %q: %w", path, err)
	}
	return text, contentType, true, nil
}

// yamlToText parses YAML and re-encodes it as JSON, which embeds better than
// indentation-significant source.
func yamlToText(raw []byte) (string, error) {
	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("parse yaml: %w", err)
	}
	out, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode yaml as json: %w", err)
	}
	return string(out), nil
}

// jsonToText validates and compacts the JSON document.
func jsonToText(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	return buf.String(), nil
}

// csvToText renders each record as "header: value" lines, one blank line
// between records, so column meaning survives chunking.
func csvToText(raw []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}

	var sb strings.Builder
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv: %w", err)
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		for i, field := range record {
			name := fmt.Sprintf("column%d", i+1)
			if i < len(header) {
				name = header[i]
			}
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(field)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// htmlToText extracts the visible text of an HTML document, skipping script
// and style elements.
func htmlToText(raw []byte) string {
	tok := html.NewTokenizer(bytes.NewReader(raw))
	var (
		sb   strings.Builder
		skip int
	)
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(sb.String())
		case html.StartTagToken:
			if name, _ := tok.TagName(); isSkippedTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := tok.TagName(); isSkippedTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if text := strings.TrimSpace(string(tok.Text())); text != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(text)
			}
		}
	}
}

func isSkippedTag(name []byte) bool {
	return bytes.Equal(name, []byte("script")) || bytes.Equal(name, []byte("style"))
}
