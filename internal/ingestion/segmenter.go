package ingestion

import "strings"

// Segment is one paragraph of document text with the section it belongs to.
type Segment struct {
	Section string
	Text    string
}

// Lines shorter than this are artifacts of extraction (page numbers,
// stray headers) and carry no matchable content.
const minSegmentLength = 20

// Segmenter splits raw document text into section-tagged paragraphs.
type Segmenter struct{}

// NewSegmenter creates a Segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Segment splits text into paragraphs. A heading line (see
// ExtractSection) closes the current paragraph and sets the section for
// the ones that follow; a blank line closes the current paragraph.
// Segments below the minimum length are dropped.
func (s *Segmenter) Segment(text string) []Segment {
	var segments []Segment
	var buffer strings.Builder
	currentSection := ""

	flush := func() {
		content := strings.TrimSpace(buffer.String())
		buffer.Reset()
		if len(content) < minSegmentLength {
			return
		}
		segments = append(segments, Segment{Section: currentSection, Text: content})
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			continue
		}

		if sec := ExtractSection(trimmed); sec != nil {
			flush()
			currentSection = sec.Number
			continue
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(trimmed)
	}

	flush()
	return segments
}
