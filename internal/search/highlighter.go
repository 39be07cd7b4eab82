package search

import (
	"sort"
	"strings"
)

// Highlight wraps every case-insensitive occurrence of the keywords in content with mark.
// Overlapping matches are merged; longer keywords win at the same position.
func Highlight(content string, keywords []string, mark func(string) string) string {
	if content == "" || len(keywords) == 0 || mark == nil {
		return content
	}
	lower := strings.ToLower(content)
	// Offsets found in lower must be valid in content.
	if len(lower) != len(content) {
		return content
	}

	type span struct{ start, end int }
	var spans []span
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		for from := 0; from < len(lower); {
			i := strings.Index(lower[from:], kw)
			if i < 0 {
				break
			}
			spans = append(spans, span{from + i, from + i + len(kw)})
			from += i + len(kw)
		}
	}
	if len(spans) == 0 {
		return content
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var b strings.Builder
	pos := 0
	cur := spans[0]
	flush := func(s span) {
		b.WriteString(content[pos:s.start])
		b.WriteString(mark(content[s.start:s.end]))
		pos = s.end
	}
	for _, s := range spans[1:] {
		if s.start <= cur.end {
			if s.end > cur.end {
				cur.end = s.end
			}
			continue
		}
		flush(cur)
		cur = s
	}
	flush(cur)
	b.WriteString(content[pos:])
	return b.String()
}
