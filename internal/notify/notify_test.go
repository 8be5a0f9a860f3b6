package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_FanOutAndUnsubscribe(t *testing.T) {
	hub := NewHub(10)
	var got []Notification
	unsubscribe := hub.Subscribe(func(n Notification) { got = append(got, n) })

	hub.Notify(Notification{Level: LevelSuccess, Op: "toggle favorite", Message: "saved"})
	unsubscribe()
	hub.Notify(Notification{Level: LevelError, Op: "toggle favorite", Message: "failed"})

	assert.Len(t, got, 1)
	assert.Equal(t, "saved", got[0].Message)
	assert.False(t, got[0].At.IsZero())
}

func TestHub_RecentKeepsTail(t *testing.T) {
	hub := NewHub(2)
	hub.Notify(Notification{Message: "a"})
	hub.Notify(Notification{Message: "b"})
	hub.Notify(Notification{Message: "c"})

	recent := hub.Recent(0)
	assert.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Message)
	assert.Equal(t, "c", recent[1].Message)

	assert.Equal(t, "c", hub.Recent(1)[0].Message)
}
