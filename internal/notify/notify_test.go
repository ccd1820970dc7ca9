package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []Email
	err   error
	block chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, e Email) (string, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, e)
	return "msg-1", nil
}

func (f *fakeSender) Sent() []Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Email(nil), f.sent...)
}

func testConfig() Config {
	return Config{
		From:              "Inventory <alerts@shop.test>",
		FallbackRecipient: "fallback@shop.test",
		DashboardURL:      "https://pos.shop.test/dashboard",
		Workers:           1,
		QueueSize:         4,
		DrainOnShutdown:   true,
	}
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityOf(decimal.Zero))
	assert.Equal(t, SeverityCritical, SeverityOf(decimal.NewFromInt(-2)))
	assert.Equal(t, SeverityHigh, SeverityOf(decimal.NewFromInt(3)))
	assert.Equal(t, SeverityHigh, SeverityOf(decimal.RequireFromString("4.5")))
	assert.Equal(t, SeverityMedium, SeverityOf(decimal.NewFromInt(5)))
	assert.Equal(t, SeverityMedium, SeverityOf(decimal.NewFromInt(9)))
}

func TestRecipientFallsBack(t *testing.T) {
	n := New(testConfig(), &fakeSender{}, zap.NewNop())
	defer n.Close(context.Background())

	assert.Equal(t, "a@shop.test", n.Recipient("a@shop.test"))
	assert.Equal(t, "fallback@shop.test", n.Recipient(""))
	assert.Equal(t, "fallback@shop.test", n.Recipient("  "))
}

func TestNotifyLowStockComposesEmail(t *testing.T) {
	sender := &fakeSender{}
	n := New(testConfig(), sender, zap.NewNop())
	defer n.Close(context.Background())

	ok := n.NotifyLowStock(context.Background(), "Coffee <Beans>", decimal.NewFromInt(3), "Alpha", "")
	require.True(t, ok)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	e := sent[0]
	assert.Equal(t, []string{"fallback@shop.test"}, e.To)
	assert.Equal(t, "Inventory <alerts@shop.test>", e.From)
	assert.Equal(t, "Low stock alert: Coffee <Beans> (3 units left)", e.Subject)
	assert.Contains(t, e.HTML, "Coffee &lt;Beans&gt;")
	assert.Contains(t, e.HTML, "URGENCY: HIGH")
	assert.Contains(t, e.HTML, "#f59e0b")
	assert.Contains(t, e.HTML, "https://pos.shop.test/dashboard")
}

func TestNotifyLowStockFailureReturnsFalse(t *testing.T) {
	n := New(testConfig(), &fakeSender{err: errors.New("provider down")}, zap.NewNop())
	defer n.Close(context.Background())

	assert.False(t, n.NotifyLowStock(context.Background(), "Tea", decimal.Zero, "Alpha", "x@shop.test"))
}

func TestNotifyLowStockReport(t *testing.T) {
	sender := &fakeSender{}
	n := New(testConfig(), sender, zap.NewNop())
	defer n.Close(context.Background())

	assert.False(t, n.NotifyLowStockReport(context.Background(), nil, "Alpha", ""))

	items := []LowStockItem{
		{Name: "Tea", Stock: decimal.Zero},
		{Name: "Milk", Stock: decimal.NewFromInt(7)},
	}
	require.True(t, n.NotifyLowStockReport(context.Background(), items, "Alpha", "boss@shop.test"))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Stock report: 2 products low on stock", sent[0].Subject)
	assert.Contains(t, sent[0].HTML, "Tea")
	assert.Contains(t, sent[0].HTML, "Milk")
	assert.Contains(t, sent[0].HTML, "#ef4444")
}

func TestScheduleSendsAfterDelay(t *testing.T) {
	sender := &fakeSender{}
	cfg := testConfig()
	cfg.Delay = 20 * time.Millisecond
	n := New(cfg, sender, zap.NewNop())

	start := time.Now()
	n.Schedule(Alert{Product: "Tea", Stock: decimal.NewFromInt(2), Store: "Alpha", Email: "a@shop.test"})
	require.NoError(t, n.Close(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), cfg.Delay)
	require.Len(t, sender.Sent(), 1)
	assert.Equal(t, []string{"a@shop.test"}, sender.Sent()[0].To)
}

func TestScheduleDropsWhenQueueFull(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	cfg := testConfig()
	cfg.QueueSize = 1
	n := New(cfg, sender, zap.NewNop())

	// The first alert occupies the worker, the second fills the queue.
	n.Schedule(Alert{Product: "one"})
	require.Eventually(t, func() bool { return len(n.queue) == 0 }, time.Second, 5*time.Millisecond)
	n.Schedule(Alert{Product: "two"})
	n.Schedule(Alert{Product: "three"})

	close(sender.block)
	require.NoError(t, n.Close(context.Background()))
	assert.Len(t, sender.Sent(), 2)
}

func TestCloseWithoutDrainDropsPending(t *testing.T) {
	sender := &fakeSender{}
	cfg := testConfig()
	cfg.DrainOnShutdown = false
	cfg.Delay = time.Hour
	n := New(cfg, sender, zap.NewNop())

	n.Schedule(Alert{Product: "Tea"})
	n.Schedule(Alert{Product: "Milk"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, n.Close(ctx))
	assert.Empty(t, sender.Sent())

	// Scheduling after close is a logged no-op.
	assert.NotPanics(t, func() { n.Schedule(Alert{Product: "late"}) })
}
