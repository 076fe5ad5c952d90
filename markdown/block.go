// Package markdown turns raw, possibly incomplete message text into a block
// and inline render model. Parsing is total: malformed input degrades to
// literal text.
package markdown

import "encoding/json"

type SpanKind int

const (
	SpanText SpanKind = iota
	SpanBold
	SpanItalic
	SpanCode
)

var spanKindNames = [...]string{"text", "bold", "italic", "code"}

func (k SpanKind) String() string {
	if int(k) < len(spanKindNames) {
		return spanKindNames[k]
	}
	return "unknown"
}

func (k SpanKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Span is one inline token of a line.
type Span struct {
	Kind SpanKind `json:"type"`
	Text string   `json:"text"`
}

type BlockKind int

const (
	BlockHeading BlockKind = iota
	BlockParagraph
	BlockList
	BlockQuote
	BlockCode
	BlockHorizontalRule
)

var blockKindNames = [...]string{"heading", "paragraph", "list", "quote", "code", "horizontal_rule"}

func (k BlockKind) String() string {
	if int(k) < len(blockKindNames) {
		return blockKindNames[k]
	}
	return "unknown"
}

// Block is the closed set of block variants produced by Parse. Consumers
// switch on the concrete type.
type Block interface {
	Kind() BlockKind
}

type Heading struct {
	Level int
	Spans []Span
}

type Paragraph struct {
	Lines [][]Span
}

type List struct {
	Ordered bool
	Items   [][]Span
}

type Quote struct {
	Lines [][]Span
}

type Code struct {
	Language string
	Text     string
}

type HorizontalRule struct{}

func (Heading) Kind() BlockKind        { return BlockHeading }
func (Paragraph) Kind() BlockKind      { return BlockParagraph }
func (List) Kind() BlockKind           { return BlockList }
func (Quote) Kind() BlockKind          { return BlockQuote }
func (Code) Kind() BlockKind           { return BlockCode }
func (HorizontalRule) Kind() BlockKind { return BlockHorizontalRule }

func (b Heading) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Level int    `json:"level"`
		Spans []Span `json:"spans"`
	}{b.Kind().String(), b.Level, nonNilSpans(b.Spans)})
}

func (b Paragraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string   `json:"type"`
		Lines [][]Span `json:"lines"`
	}{b.Kind().String(), nonNilLines(b.Lines)})
}

func (b List) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string   `json:"type"`
		Ordered bool     `json:"ordered"`
		Items   [][]Span `json:"items"`
	}{b.Kind().String(), b.Ordered, nonNilLines(b.Items)})
}

func (b Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string   `json:"type"`
		Lines [][]Span `json:"lines"`
	}{b.Kind().String(), nonNilLines(b.Lines)})
}

func (b Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Language string `json:"language"`
		Text     string `json:"text"`
	}{b.Kind().String(), b.Language, b.Text})
}

func (b HorizontalRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{b.Kind().String()})
}

func nonNilSpans(spans []Span) []Span {
	if spans == nil {
		return []Span{}
	}
	return spans
}

func nonNilLines(lines [][]Span) [][]Span {
	res := make([][]Span, len(lines))
	for i, l := range lines {
		res[i] = nonNilSpans(l)
	}
	return res
}
