package ingestion

import (
	"regexp"
	"strings"
)

// Part-level headings in the languages the document corpus uses
// (English, Finnish, French, German, Spanish).
var partPattern = regexp.MustCompile(`(?i)^\s*(Part|OSA|PARTIE|TEIL|PARTE|SECTION)\s+([\dA-Z]+)\s*[-:]?\s*(.*)$`)

// Numeric hierarchical headings, e.g. "1.1" or "1.4.1".
var numericPattern = regexp.MustCompile(`^\s*(\d+\.\d+(?:\.\d+)?)\s+(.+)$`)

// SectionInfo describes a heading line found in the document text.
type SectionInfo struct {
	Number string
	Title  string
	Depth  int
	Parent string
	IsPart bool
}

// ExtractSection parses a line as a section heading. It recognizes
// Part-level headings ("Part 2", "OSA 1") and numeric headings up to
// three levels ("1.4.1"). Returns nil when the line is not a heading.
func ExtractSection(text string) *SectionInfo {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if m := partPattern.FindStringSubmatch(trimmed); m != nil {
		keyword := normalizeKeyword(m[1])
		return &SectionInfo{
			Number: keyword + " " + m[2],
			Title:  strings.TrimSpace(m[3]),
			Depth:  0,
			IsPart: true,
		}
	}

	if m := numericPattern.FindStringSubmatch(trimmed); m != nil {
		number := m[1]
		depth := strings.Count(number, ".")
		if depth > 2 {
			// Fourth level and deeper is noise, not structure.
			return nil
		}

		return &SectionInfo{
			Number: number,
			Title:  strings.TrimSpace(m[2]),
			Depth:  depth,
			Parent: parentNumber(number),
		}
	}

	return nil
}

func parentNumber(number string) string {
	if i := strings.LastIndex(number, "."); i > 0 {
		return number[:i]
	}
	return ""
}

func normalizeKeyword(keyword string) string {
	lower := strings.ToLower(keyword)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
