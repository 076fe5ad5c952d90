package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"go_branch_chat/markdown"
	"go_branch_chat/models"
	"go_branch_chat/services"
)

func TestBlocks(t *testing.T) {
	r := NewRenderer(nil, 10)
	out := r.Blocks(markdown.Parse("# Title\n\n1. one\n2. **two**\n\n> quoted\n\n---\n\n```go\nfmt.Println()\n```"))

	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "1. one")
	assert.Contains(t, out, "2. two")
	assert.Contains(t, out, "quoted")
	assert.Contains(t, out, strings.Repeat("─", 10))
	assert.Contains(t, out, "fmt.Println()")
	assert.Contains(t, out, "go")
}

func TestBulletList(t *testing.T) {
	r := NewRenderer(nil, 0)
	out := r.Block(markdown.List{Items: [][]markdown.Span{{{Kind: markdown.SpanText, Text: "a"}}}})
	assert.Equal(t, "• a", out)
}

func TestPathSkipsSystemAndShowsVariants(t *testing.T) {
	r := NewRenderer(nil, 40)
	nodes := []services.RenderedNode{
		{ConversationNode: models.ConversationNode{ID: "r", Role: models.RoleSystem, Content: "secret prompt"}},
		{
			ConversationNode: models.ConversationNode{ID: "u", Role: models.RoleUser, Content: "hi"},
			Blocks:           markdown.Parse("hi"),
			VariantTotal:     2,
			VariantLabel:     "2/2",
		},
		{
			ConversationNode: models.ConversationNode{ID: "a", Role: models.RoleAssistant, Content: "partial", StopReason: models.StopReasonUserStopped},
			Blocks:           markdown.Parse("partial"),
			VariantTotal:     1,
			VariantLabel:     "1/1",
			StopText:         models.StopReasonUserStopped.Text(),
		},
	}
	out := r.Path(nodes)
	assert.NotContains(t, out, "secret prompt")
	assert.Contains(t, out, "2/2")
	assert.NotContains(t, out, "1/1")
	assert.Contains(t, out, "[Stopped by user]")
}

func TestHeadingKeepsInlineStyles(t *testing.T) {
	styles := DefaultStyles()
	styles.Heading = lipgloss.NewStyle()
	styles.Bold = lipgloss.NewStyle().Transform(strings.ToUpper)
	r := NewRenderer(styles, 0)

	out := r.Block(markdown.Heading{Level: 2, Spans: []markdown.Span{
		{Kind: markdown.SpanText, Text: "Title "},
		{Kind: markdown.SpanBold, Text: "bold"},
	}})
	assert.Equal(t, "## Title BOLD", out)
}
