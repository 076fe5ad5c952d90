package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []Span
	}{
		{"plain", "hello world", []Span{{SpanText, "hello world"}}},
		{"empty", "", nil},
		{"bold", "a **b** c", []Span{{SpanText, "a "}, {SpanBold, "b"}, {SpanText, " c"}}},
		{"italic", "*x*", []Span{{SpanItalic, "x"}}},
		{"code", "run `go test` now", []Span{{SpanText, "run "}, {SpanCode, "go test"}, {SpanText, " now"}}},
		{"unterminated bold", "**bold", []Span{{SpanText, "**bold"}}},
		{"unterminated italic", "2 * 3", []Span{{SpanText, "2 * 3"}}},
		{"unterminated code", "a ` b", []Span{{SpanText, "a ` b"}}},
		{"bold before italic", "**a*b**", []Span{{SpanBold, "a*b"}}},
		{"empty bold dropped", "a****b", []Span{{SpanText, "ab"}}},
		{"empty code dropped", "``", nil},
		{"mixed", "**b** and *i* and `c`", []Span{
			{SpanBold, "b"}, {SpanText, " and "}, {SpanItalic, "i"}, {SpanText, " and "}, {SpanCode, "c"},
		}},
		{"code keeps stars", "`**x**`", []Span{{SpanCode, "**x**"}}},
		{"unicode", "héllo **wörld**", []Span{{SpanText, "héllo "}, {SpanBold, "wörld"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.line))
		})
	}
}

func TestTokenizeNeverEmitsEmptySpans(t *testing.T) {
	for _, line := range []string{"****", "**", "*", "``", "** **", "*a**b*", "***x***", "`a``b`"} {
		for _, s := range Tokenize(line) {
			require.NotEmpty(t, s.Text, "line %q", line)
		}
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "a b c", PlainText(Tokenize("a **b** `c`")))
}
