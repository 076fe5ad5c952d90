// Package render draws the block model and rendered paths for terminals.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go_branch_chat/markdown"
	"go_branch_chat/models"
	"go_branch_chat/services"
)

type Styles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Meta      lipgloss.Style
	Heading   lipgloss.Style
	Bold      lipgloss.Style
	Italic    lipgloss.Style
	Code      lipgloss.Style
	CodeBlock lipgloss.Style
	Quote     lipgloss.Style
	Rule      lipgloss.Style
	Notice    lipgloss.Style
}

func DefaultStyles() *Styles {
	return &Styles{
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#005F87", Dark: "#5FAFFF"}),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#AF005F", Dark: "#DD7090"}),
		System:    lipgloss.NewStyle().Faint(true),
		Meta:      lipgloss.NewStyle().Faint(true),
		Heading:   lipgloss.NewStyle().Bold(true).Underline(true),
		Bold:      lipgloss.NewStyle().Bold(true),
		Italic:    lipgloss.NewStyle().Italic(true),
		Code:      lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5F5F00", Dark: "#DDDD77"}),
		CodeBlock: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}),
		Quote: lipgloss.NewStyle().Border(lipgloss.ThickBorder(), false, false, false, true).PaddingLeft(1).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}),
		Rule:   lipgloss.NewStyle().Faint(true),
		Notice: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
	}
}

type Renderer struct {
	styles *Styles
	width  int
}

func NewRenderer(styles *Styles, width int) *Renderer {
	if styles == nil {
		styles = DefaultStyles()
	}
	if width <= 0 {
		width = 80
	}
	return &Renderer{styles: styles, width: width}
}

func (r *Renderer) Spans(spans []markdown.Span) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case markdown.SpanBold:
			b.WriteString(r.styles.Bold.Render(s.Text))
		case markdown.SpanItalic:
			b.WriteString(r.styles.Italic.Render(s.Text))
		case markdown.SpanCode:
			b.WriteString(r.styles.Code.Render(s.Text))
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func (r *Renderer) lines(lines [][]markdown.Span) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, r.Spans(l))
	}
	return strings.Join(out, "\n")
}

// Block renders a single block.
func (r *Renderer) Block(block markdown.Block) string {
	switch b := block.(type) {
	case markdown.Heading:
		return r.styles.Heading.Render(strings.Repeat("#", b.Level) + " " + r.Spans(b.Spans))
	case markdown.Paragraph:
		return r.lines(b.Lines)
	case markdown.List:
		items := make([]string, 0, len(b.Items))
		for i, item := range b.Items {
			marker := "•"
			if b.Ordered {
				marker = fmt.Sprintf("%d.", i+1)
			}
			items = append(items, marker+" "+r.Spans(item))
		}
		return strings.Join(items, "\n")
	case markdown.Quote:
		return r.styles.Quote.Render(r.lines(b.Lines))
	case markdown.Code:
		body := b.Text
		if b.Language != "" {
			body = r.styles.Meta.Render(b.Language) + "\n" + body
		}
		return r.styles.CodeBlock.Render(body)
	case markdown.HorizontalRule:
		return r.styles.Rule.Render(strings.Repeat("─", r.width))
	default:
		return ""
	}
}

func (r *Renderer) Blocks(blocks []markdown.Block) string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, r.Block(b))
	}
	return strings.Join(out, "\n\n")
}

// Node renders one message with its header and footer.
func (r *Renderer) Node(n services.RenderedNode) string {
	var header string
	switch n.Role {
	case models.RoleUser:
		header = r.styles.User.Render("You")
	case models.RoleAssistant:
		header = r.styles.Assistant.Render("Assistant")
	default:
		header = r.styles.System.Render("System")
	}
	if n.VariantTotal > 1 {
		header += " " + r.styles.Meta.Render("‹"+n.VariantLabel+"›")
	}
	if n.Streaming {
		header += " " + r.styles.Meta.Render("…")
	}

	parts := []string{header}
	if body := r.Blocks(n.Blocks); body != "" {
		parts = append(parts, body)
	}
	if n.StopText != "" && n.StopReason != models.StopReasonDone && n.StopReason != models.StopReasonStop {
		parts = append(parts, r.styles.Meta.Render("["+n.StopText+"]"))
	}
	return strings.Join(parts, "\n")
}

// Path renders every message of a path. System messages are skipped.
func (r *Renderer) Path(nodes []services.RenderedNode) string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Role == models.RoleSystem {
			continue
		}
		out = append(out, r.Node(n))
	}
	return strings.Join(out, "\n\n")
}

func (r *Renderer) Notice(text string) string {
	return r.styles.Notice.Render("! " + text)
}
