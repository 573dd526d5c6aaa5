package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"duetmenu/internal/events"
	"duetmenu/internal/models"
	"duetmenu/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddDishAccumulatesQuantity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.cart.AddDish(ctx, "1")
		require.NoError(t, err)
	}

	lines := f.cart.Lines(ctx)
	require.Len(t, lines, 1)
	assert.Equal(t, "1", lines[0].DishID)
	assert.Equal(t, 4, lines[0].Quantity)
}

func TestCartService_AddDishUnknown(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.cart.AddDish(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.cart.Lines(context.Background()))
}

func TestCartService_SnapshotsSurviveCatalogEdits(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	line, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "爱心煎蛋", line.DishName)
	assert.Equal(t, 0.50, line.Price)

	_, err = f.catalog.Update(ctx, "1", models.DishFields{Name: strPtr("改名"), Price: f64Ptr(9.99)})
	require.NoError(t, err)

	lines := f.cart.Lines(ctx)
	require.Len(t, lines, 1)
	assert.Equal(t, "爱心煎蛋", lines[0].DishName)
	assert.Equal(t, 0.50, lines[0].Price)
	assert.Equal(t, 0.50, f.cart.Total())
}

func TestCartService_ChangeQuantity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	line, err := f.cart.AddDish(ctx, "2")
	require.NoError(t, err)

	require.NoError(t, f.cart.ChangeQuantity(ctx, line.ID, 2))
	lines := f.cart.Lines(ctx)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)

	// Dropping to zero or below removes the line entirely.
	require.NoError(t, f.cart.ChangeQuantity(ctx, line.ID, -3))
	assert.Empty(t, f.cart.Lines(ctx))
}

func TestCartService_ChangeQuantityUnknownLineIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)

	require.NoError(t, f.cart.ChangeQuantity(ctx, 999999, -5))
	assert.Len(t, f.cart.Lines(ctx), 1)
}

func TestCartService_NoNonPositiveQuantityPersisted(t *testing.T) {
	st := store.NewMemoryStore()
	f := newFixture(t, st)
	ctx := context.Background()

	line, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, f.cart.ChangeQuantity(ctx, line.ID, -1))

	raw, err := st.Get(ctx, models.KeyCart)
	require.NoError(t, err)

	var persisted []models.CartLine
	if raw != nil {
		require.NoError(t, json.Unmarshal(raw, &persisted))
	}
	for _, l := range persisted {
		assert.GreaterOrEqual(t, l.Quantity, 1)
	}
	assert.Empty(t, persisted)
}

func TestCartService_Remove(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	line, err := f.cart.AddDish(ctx, "4")
	require.NoError(t, err)
	require.NoError(t, f.cart.ChangeQuantity(ctx, line.ID, 4))

	require.NoError(t, f.cart.Remove(ctx, line.ID))
	assert.Empty(t, f.cart.Lines(ctx))

	// Removing again is a no-op.
	assert.NoError(t, f.cart.Remove(ctx, line.ID))
}

func TestCartService_TotalIsOrderIndependent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// 0.80 + 3×0.50 = 2.30
	_, err := f.cart.AddDish(ctx, "2") // 0.80
	require.NoError(t, err)

	line1, err := f.cart.AddDish(ctx, "1") // 0.50
	require.NoError(t, err)
	require.NoError(t, f.cart.ChangeQuantity(ctx, line1.ID, 2))

	assert.InDelta(t, 2.30, f.cart.Total(), 1e-9)
}

func TestCartService_SubmitEmptyCart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.cart.Submit(ctx)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, res)
	assert.Empty(t, f.history.List(ctx))
}

func TestCartService_SubmitHappyPath(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	_, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)
	_, err = f.cart.AddDish(ctx, "1")
	require.NoError(t, err)
	wantTotal := f.cart.Total()

	res, err := f.cart.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Equal(t, wantTotal, res.Record.Total)
	require.Len(t, res.Record.Items, 1)
	assert.Equal(t, 2, res.Record.Items[0].Quantity)

	assert.Empty(t, f.cart.Lines(ctx))
	history := f.history.List(ctx)
	require.Len(t, history, 1)
	assert.Equal(t, res.Record.ID, history[0].ID)

	f.notifier.AssertNumberOfCalls(t, "Send", 1)
}

func TestCartService_SubmitCompletesWhenNotificationFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("transport error"))

	// Two lines, quantities 1 and 3, prices 0.80 and 0.50 → total 2.30.
	_, err := f.cart.AddDish(ctx, "2")
	require.NoError(t, err)
	line, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, f.cart.ChangeQuantity(ctx, line.ID, 2))

	res, err := f.cart.Submit(ctx)
	require.NoError(t, err)
	assert.False(t, res.Delivered)
	assert.InDelta(t, 2.30, res.Record.Total, 1e-9)

	assert.Empty(t, f.cart.Lines(ctx))
	require.Len(t, f.history.List(ctx), 1)

	// Exactly one attempt: no retry on failure.
	f.notifier.AssertNumberOfCalls(t, "Send", 1)
}

func TestCartService_SubmitHistoryNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	_, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)
	first, err := f.cart.Submit(ctx)
	require.NoError(t, err)

	_, err = f.cart.AddDish(ctx, "2")
	require.NoError(t, err)
	second, err := f.cart.Submit(ctx)
	require.NoError(t, err)

	history := f.history.List(ctx)
	require.Len(t, history, 2)
	assert.Equal(t, second.Record.ID, history[0].ID)
	assert.Equal(t, first.Record.ID, history[1].ID)
}

func TestCartService_SubmitAssignsDistinctIDs(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	// Back-to-back submissions land within the same millisecond; each
	// record must still get its own id.
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		_, err := f.cart.AddDish(ctx, "1")
		require.NoError(t, err)

		result, err := f.cart.Submit(ctx)
		require.NoError(t, err)
		assert.False(t, seen[result.Record.ID], "id %q assigned twice", result.Record.ID)
		seen[result.Record.ID] = true
	}

	require.Len(t, f.history.List(ctx), 5)
	require.Len(t, seen, 5)
}

func TestCartService_SubmitHistoryWriteFailureLeavesCart(t *testing.T) {
	flaky := &flakyStore{Store: store.NewMemoryStore(), failKeys: map[string]bool{}}
	f := newFixture(t, flaky)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	_, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)

	flaky.failKeys[models.KeyHistory] = true

	_, err = f.cart.Submit(ctx)
	require.Error(t, err)

	// Submission did not complete: cart untouched, history untouched.
	assert.Len(t, f.cart.Lines(ctx), 1)
	assert.Empty(t, f.history.List(ctx))
}

func TestCartService_SubmitCartWriteFailureRollsBackHistory(t *testing.T) {
	flaky := &flakyStore{Store: store.NewMemoryStore(), failKeys: map[string]bool{}}
	f := newFixture(t, flaky)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything).Return(nil)

	_, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)

	flaky.failKeys[models.KeyCart] = true

	_, err = f.cart.Submit(ctx)
	require.Error(t, err)

	assert.Len(t, f.cart.Lines(ctx), 1)
	assert.Empty(t, f.history.List(ctx))
}

func TestCartService_ScenarioAddTwiceThenEmpty(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)
	line, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)

	lines := f.cart.Lines(ctx)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.InDelta(t, 1.00, f.cart.Total(), 1e-9)

	require.NoError(t, f.cart.ChangeQuantity(ctx, line.ID, -2))
	assert.Empty(t, f.cart.Lines(ctx))

	_, err = f.cart.Submit(ctx)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCartService_RoundTrip(t *testing.T) {
	st := store.NewMemoryStore()
	f := newFixture(t, st)
	ctx := context.Background()

	_, err := f.cart.AddDish(ctx, "1")
	require.NoError(t, err)
	_, err = f.cart.AddDish(ctx, "2")
	require.NoError(t, err)
	want := f.cart.Lines(ctx)

	logger := zerolog.Nop()
	fresh := NewCartService(st, f.catalog, f.history, f.notifier, events.NewEventBus(), &logger)
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, want, fresh.Lines(ctx))
}
