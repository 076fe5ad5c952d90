package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_branch_chat/models"
)

func TestLocalPublisherDeliversInOrder(t *testing.T) {
	p := NewLocalPublisher()
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := p.Subscribe(ctx)
	require.NoError(t, err)

	for _, d := range []string{"Hel", "lo!"} {
		require.NoError(t, p.Publish(ctx, &models.ChatEvent{Type: models.EventDelta, Delta: d}))
	}

	var got []string
	for len(got) < 2 {
		select {
		case ev := <-ch:
			require.NotNil(t, ev)
			assert.Equal(t, models.EventDelta, ev.Type)
			assert.False(t, ev.Timestamp.IsZero())
			got = append(got, ev.Delta)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, []string{"Hel", "lo!"}, got)
}

func TestLocalPublisherWithoutSubscribers(t *testing.T) {
	p := NewLocalPublisher()
	defer p.Close()
	assert.NoError(t, p.Publish(context.Background(), &models.ChatEvent{Type: models.EventNotice}))
}
