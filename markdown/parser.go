package markdown

import (
	"strings"
)

type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingParagraph
	pendingList
	pendingQuote
)

// parser holds the state of a single Parse call. Nothing survives between
// calls.
type parser struct {
	blocks []Block

	pending pendingKind
	ordered bool
	lines   [][]Span

	inFence    bool
	fence      string
	language   string
	fenceLines []string
}

// Parse converts message content into blocks in one forward pass. It is a
// pure function and never fails; an unterminated fence is closed at the end
// of input so partially streamed code still renders.
func Parse(content string) []Block {
	p := &parser{blocks: []Block{}}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if content == "" {
		return p.blocks
	}
	for _, line := range strings.Split(content, "\n") {
		p.line(line)
	}
	if p.inFence {
		// the newline that ends the last streamed line is not code yet
		if n := len(p.fenceLines); n > 0 && p.fenceLines[n-1] == "" {
			p.fenceLines = p.fenceLines[:n-1]
		}
		p.closeFence()
	}
	p.flush()
	return p.blocks
}

func (p *parser) line(line string) {
	trimmed := strings.TrimSpace(line)

	if p.inFence {
		if strings.HasPrefix(trimmed, p.fence) {
			p.closeFence()
			return
		}
		p.fenceLines = append(p.fenceLines, line)
		return
	}

	if trimmed == "" {
		p.flush()
		return
	}

	if strings.HasPrefix(trimmed, "```") {
		p.flush()
		p.openFence(trimmed)
		return
	}

	if isHorizontalRule(trimmed) {
		p.flush()
		p.blocks = append(p.blocks, HorizontalRule{})
		return
	}

	if level, text, ok := parseHeading(trimmed); ok {
		p.flush()
		p.blocks = append(p.blocks, Heading{Level: level, Spans: Tokenize(text)})
		return
	}

	if ordered, text, ok := parseListItem(trimmed); ok {
		if p.pending != pendingList {
			p.flush()
			p.pending = pendingList
			p.ordered = ordered
		}
		p.lines = append(p.lines, Tokenize(text))
		return
	}

	if strings.HasPrefix(trimmed, ">") {
		text := strings.TrimPrefix(trimmed, ">")
		text = strings.TrimPrefix(text, " ")
		if p.pending != pendingQuote {
			p.flush()
			p.pending = pendingQuote
		}
		p.lines = append(p.lines, Tokenize(text))
		return
	}

	if p.pending != pendingParagraph {
		p.flush()
		p.pending = pendingParagraph
	}
	p.lines = append(p.lines, Tokenize(trimmed))
}

func (p *parser) openFence(trimmed string) {
	n := 0
	for n < len(trimmed) && trimmed[n] == '`' {
		n++
	}
	p.inFence = true
	p.fence = trimmed[:n]
	p.language = strings.TrimSpace(trimmed[n:])
	p.fenceLines = nil
}

func (p *parser) closeFence() {
	p.blocks = append(p.blocks, Code{
		Language: p.language,
		Text:     strings.Join(p.fenceLines, "\n"),
	})
	p.inFence = false
	p.fence = ""
	p.language = ""
	p.fenceLines = nil
}

// flush closes the paragraph, list or quote being accumulated.
func (p *parser) flush() {
	switch p.pending {
	case pendingParagraph:
		p.blocks = append(p.blocks, Paragraph{Lines: p.lines})
	case pendingList:
		p.blocks = append(p.blocks, List{Ordered: p.ordered, Items: p.lines})
	case pendingQuote:
		p.blocks = append(p.blocks, Quote{Lines: p.lines})
	}
	p.pending = pendingNone
	p.ordered = false
	p.lines = nil
}

func isHorizontalRule(trimmed string) bool {
	if len(trimmed) < 3 {
		return false
	}
	c := trimmed[0]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	for i := 1; i < len(trimmed); i++ {
		if trimmed[i] != c {
			return false
		}
	}
	return true
}

func parseHeading(trimmed string) (int, string, bool) {
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level == len(trimmed) || !isSpace(trimmed[level]) {
		return 0, "", false
	}
	return level, strings.TrimSpace(trimmed[level:]), true
}

// parseListItem matches "- ", "* ", "+ " and "N. " prefixes.
func parseListItem(trimmed string) (ordered bool, text string, ok bool) {
	if len(trimmed) >= 2 && strings.IndexByte("-*+", trimmed[0]) >= 0 && isSpace(trimmed[1]) {
		return false, strings.TrimSpace(trimmed[2:]), true
	}
	digits := 0
	for digits < len(trimmed) && trimmed[digits] >= '0' && trimmed[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits+1 < len(trimmed) && trimmed[digits] == '.' && isSpace(trimmed[digits+1]) {
		return true, strings.TrimSpace(trimmed[digits+2:]), true
	}
	return false, "", false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
