package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversByType(t *testing.T) {
	hub := NewHub()
	refreshCh := hub.Subscribe(TypePriceRefreshCompleted, 2)
	goalCh := hub.Subscribe(TypeGoalCompleted, 2)

	hub.Publish(Event{Type: TypePriceRefreshCompleted, UserID: 1})
	hub.Publish(Event{Type: TypeGoalCompleted, UserID: 2})

	select {
	case e := <-refreshCh:
		assert.Equal(t, int64(1), e.UserID)
	default:
		t.Fatal("expected a refresh event")
	}

	select {
	case e := <-goalCh:
		assert.Equal(t, int64(2), e.UserID)
	default:
		t.Fatal("expected a goal event")
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(TypeGoalProgressUpdated, 1)

	hub.Publish(Event{Type: TypeGoalProgressUpdated})
	hub.Publish(Event{Type: TypeGoalProgressUpdated}) // buffer full, dropped

	require.Len(t, ch, 1)
}

func TestHubPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	hub.Publish(Event{Type: TypePriceRefreshCompleted})
}
