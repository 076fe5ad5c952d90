package markdown

import "strings"

// Tokenize scans one line left to right. At each position bold (**) is tried
// before italic (*), then inline code (`), then the literal character. A
// delimiter only opens a span when its closing delimiter exists later on the
// line; otherwise it stays literal. Empty spans are dropped.
func Tokenize(line string) []Span {
	var (
		spans []Span
		text  strings.Builder
	)
	emit := func(kind SpanKind, payload string) {
		if payload == "" {
			return
		}
		if text.Len() > 0 {
			spans = append(spans, Span{Kind: SpanText, Text: text.String()})
			text.Reset()
		}
		spans = append(spans, Span{Kind: kind, Text: payload})
	}

	for i := 0; i < len(line); {
		rest := line[i:]
		switch {
		case strings.HasPrefix(rest, "**"):
			end := strings.Index(rest[2:], "**")
			if end < 0 {
				// unterminated bold stays literal as a whole, so the second
				// star can not open an italic span
				text.WriteString("**")
				i += 2
				continue
			}
			emit(SpanBold, rest[2:2+end])
			i += 2 + end + 2
		case rest[0] == '*':
			end := strings.IndexByte(rest[1:], '*')
			if end < 0 {
				text.WriteByte('*')
				i++
				continue
			}
			emit(SpanItalic, rest[1:1+end])
			i += 1 + end + 1
		case rest[0] == '`':
			end := strings.IndexByte(rest[1:], '`')
			if end < 0 {
				text.WriteByte('`')
				i++
				continue
			}
			emit(SpanCode, rest[1:1+end])
			i += 1 + end + 1
		default:
			text.WriteByte(rest[0])
			i++
		}
	}
	if text.Len() > 0 {
		spans = append(spans, Span{Kind: SpanText, Text: text.String()})
	}
	return spans
}

// PlainText concatenates the payloads of spans.
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}
