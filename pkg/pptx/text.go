package pptx

import "strings"

// ExtractText joins the run text of a text shape in paragraph-then-run order.
// Runs holding only whitespace are dropped, every other run is followed by a
// single space and the result is trimmed, so runs "Hello", " " and "World"
// give "Hello World". A blank result means the shape carries no significant
// text.
func ExtractText(shape *TextShape) string {
	if shape == nil {
		return ""
	}

	var sb strings.Builder
	for _, p := range shape.Paragraphs {
		for _, run := range p.Runs {
			if strings.TrimSpace(run) == "" {
				continue
			}
			sb.WriteString(run)
			sb.WriteByte(' ')
		}
	}

	return strings.TrimSpace(sb.String())
}
