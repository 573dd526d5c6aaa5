package main

import (
	"testing"
	"time"

	"duetmenu/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindNotices(t *testing.T) {
	bus := events.NewEventBus()
	notices := events.NewNoticeLog(10)
	bindNotices(bus, notices)

	require.NoError(t, bus.PublishJSON(events.EventCartLineAdded, events.DishEventPayload{
		DishID: "1",
		Name:   "爱心煎蛋",
		Price:  2.3,
	}))
	require.NoError(t, bus.PublishJSON(events.EventOrderSubmitted, events.OrderEventPayload{
		OrderID:   "1756400000000",
		Total:     12.5,
		LineCount: 2,
		Delivered: true,
		Timestamp: time.Now(),
	}))
	require.NoError(t, bus.PublishJSON(events.EventNotificationFailed, events.OrderEventPayload{
		OrderID: "1756400000000",
	}))

	got := notices.List()
	require.Len(t, got, 3)
	// Newest first.
	assert.Contains(t, got[0].Message, "微信提醒发送失败")
	assert.Contains(t, got[1].Message, "已提交")
	assert.Contains(t, got[1].Message, "¥12.50")
	assert.Contains(t, got[2].Message, "爱心煎蛋")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "17564000", shortID("1756400000000"))
	assert.Equal(t, "abc", shortID("abc"))
}
