package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTranscriptKey(t *testing.T) {
	g := NewTranscriptKeyGenerator("/transcripts/")
	g.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	key := g.Key("My first chat?")
	assert.True(t, strings.HasPrefix(key, "transcripts/2024/03/09/"), key)
	assert.True(t, strings.HasSuffix(key, "_My_first_chat.md"), key)
}

func TestCleanName(t *testing.T) {
	g := NewTranscriptKeyGenerator("t")
	assert.Equal(t, "conversation", g.CleanName("  ??  "))
	assert.Equal(t, "a_b", g.CleanName("a / b"))
	assert.Equal(t, "日本語", g.CleanName("日本語"))
	long := g.CleanName(strings.Repeat("é", 40))
	assert.LessOrEqual(t, len(long), 50)
	assert.True(t, strings.HasPrefix(long, "é"))
}
