package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TranscriptKeyGenerator builds date-partitioned object keys for exported
// conversations: <prefix>/<yyyy>/<mm>/<dd>/<short-uuid>_<title>.md
type TranscriptKeyGenerator struct {
	prefix     string
	maxNameLen int
	now        func() time.Time
}

func NewTranscriptKeyGenerator(prefix string) *TranscriptKeyGenerator {
	return &TranscriptKeyGenerator{
		prefix:     strings.Trim(prefix, "/"),
		maxNameLen: 50,
		now:        time.Now,
	}
}

var (
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_\-.]`)
	runs        = regexp.MustCompile(`[_\-.]{2,}`)
)

func (g *TranscriptKeyGenerator) Key(title string) string {
	now := g.now().UTC()
	uid := uuid.New().String()[:8]
	return fmt.Sprintf("%s/%s/%s_%s.md", g.prefix, now.Format("2006/01/02"), uid, g.CleanName(title))
}

// CleanName reduces a title to a safe file name stem.
func (g *TranscriptKeyGenerator) CleanName(title string) string {
	name := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = runs.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_-.")

	if len(name) > g.maxNameLen {
		name = name[:g.maxNameLen]
		for len(name) > 0 && !utf8.ValidString(name) {
			name = name[:len(name)-1]
		}
	}
	if name == "" {
		name = "conversation"
	}
	return name
}
