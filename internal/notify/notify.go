// Package notify sends low-stock alert emails. Sends happen on a small worker
// pool so a sale never waits on the email provider.
package notify

import (
	"context"
	"html/template"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Config struct {
	From              string
	FallbackRecipient string
	DashboardURL      string
	Delay             time.Duration
	Workers           int
	QueueSize         int
	DrainOnShutdown   bool
	// Threshold is the stock level shown as recommended in the alert.
	Threshold int
}

// Email is one outgoing message.
type Email struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender delivers an email and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, e Email) (string, error)
}

// Alert is a scheduled single-product notification.
type Alert struct {
	ProductID uuid.UUID
	Product   string
	Stock     decimal.Decimal
	Store     string
	Email     string
}

// LowStockItem is one row of the multi-product report.
type LowStockItem struct {
	Name  string          `json:"name"`
	Stock decimal.Decimal `json:"stock"`
}

type Notifier struct {
	cfg    Config
	sender Sender
	log    *zap.Logger

	queue  chan Alert
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	sleep  func(ctx context.Context, d time.Duration) bool
}

// New starts the worker pool. Call Close to stop it.
func New(cfg Config, sender Sender, log *zap.Logger) *Notifier {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 10
	}
	n := &Notifier{
		cfg:    cfg,
		sender: sender,
		log:    log.Named("notify"),
		queue:  make(chan Alert, cfg.QueueSize),
		stop:   make(chan struct{}),
		sleep:  sleepCtx,
	}
	for i := 0; i < cfg.Workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
	return n
}

// Recipient returns email, or the configured fallback when it is blank.
func (n *Notifier) Recipient(email string) string {
	if strings.TrimSpace(email) == "" {
		return n.cfg.FallbackRecipient
	}
	return email
}

// NotifyLowStock sends one alert and waits for the provider. It reports
// success and never returns an error.
func (n *Notifier) NotifyLowStock(ctx context.Context, product string, stock decimal.Decimal, store, email string) bool {
	to := n.Recipient(email)
	sev := SeverityOf(stock)

	html, err := renderAlert(alertView{
		Product:      product,
		Store:        store,
		Stock:        stock.String(),
		Threshold:    n.cfg.Threshold,
		DashboardURL: n.cfg.DashboardURL,
		Severity:     sev,
	})
	if err != nil {
		n.log.Error("render low stock alert", zap.String("product", product), zap.Error(err))
		return false
	}

	id, err := n.sender.Send(ctx, Email{
		From:    n.cfg.From,
		To:      []string{to},
		Subject: "Low stock alert: " + product + " (" + stock.String() + " units left)",
		HTML:    html,
	})
	if err != nil {
		n.log.Warn("low stock alert not sent",
			zap.String("to", to),
			zap.String("product", product),
			zap.Error(err))
		return false
	}
	n.log.Info("low stock alert sent",
		zap.String("to", to),
		zap.String("product", product),
		zap.String("stock", stock.String()),
		zap.String("severity", sev.Label),
		zap.String("message_id", id))
	return true
}

// NotifyLowStockReport sends a single summary of several low-stock products.
func (n *Notifier) NotifyLowStockReport(ctx context.Context, items []LowStockItem, store, email string) bool {
	if len(items) == 0 {
		return false
	}
	to := n.Recipient(email)

	rows := make([]reportRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, reportRow{Name: it.Name, Stock: it.Stock.String(), Color: template.CSS(SeverityOf(it.Stock).Color)})
	}
	html, err := renderReport(reportView{Store: store, Count: len(items), Rows: rows})
	if err != nil {
		n.log.Error("render low stock report", zap.Error(err))
		return false
	}

	_, err = n.sender.Send(ctx, Email{
		From:    n.cfg.From,
		To:      []string{to},
		Subject: "Stock report: " + strconv.Itoa(len(items)) + " products low on stock",
		HTML:    html,
	})
	if err != nil {
		n.log.Warn("low stock report not sent", zap.String("to", to), zap.Error(err))
		return false
	}
	n.log.Info("low stock report sent", zap.String("to", to), zap.Int("products", len(items)))
	return true
}
