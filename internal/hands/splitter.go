package hands

import "strings"

// splitText breaks text into chunks of at most chunkSize runes with overlap
// runes carried between consecutive chunks. Paragraph boundaries are
// preferred: paragraphs are packed into chunks and only paragraphs longer
// than chunkSize are cut mid-text.
func splitText(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		return []string{text}
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		runes := []rune(para)
		if len(runes) <= chunkSize {
			pieces = append(pieces, para)
			continue
		}
		for start := 0; start < len(runes); start += chunkSize - overlap {
			end := start + chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			pieces = append(pieces, string(runes[start:end]))
			if end == len(runes) {
				break
			}
		}
	}

	// Pack small paragraphs together so chunks stay near chunkSize.
	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, piece := range pieces {
		if cur.Len() > 0 && cur.Len()+2+len(piece) > chunkSize {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(piece)
	}
	flush()
	return chunks
}
