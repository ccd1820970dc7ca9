package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go-store-pos/internal/apperr"
	"go-store-pos/internal/audit"
	"go-store-pos/internal/auth"
	"go-store-pos/internal/models"
	"go-store-pos/internal/notify"
	"go-store-pos/internal/testutil"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ledgerTestContext struct {
	t        *testing.T
	db       *gorm.DB
	svc      *Service
	alerts   *recordedAlerts
	actor    auth.Actor
	store    models.Store
	products map[string]models.Product
	sale     models.Sale
	err      error
}

func (c *ledgerTestContext) reset() {
	c.db = testutil.NewDB(c.t)
	c.alerts = &recordedAlerts{}
	c.svc = NewService(c.db, c.alerts, audit.NewRecorder(c.db, zap.NewNop()), Options{}, zap.NewNop())
	c.products = map[string]models.Product{}
	c.sale = models.Sale{}
	c.err = nil
}

func (c *ledgerTestContext) aStoreWithACashier(name string) error {
	tn := testutil.SeedTenant(c.t, c.db, name)
	c.store = tn.Store
	c.actor = auth.Actor{UserID: tn.Cashier.ID, StoreID: tn.Store.ID}
	return nil
}

func (c *ledgerTestContext) aProduct(name string, stock, priceSale, priceBuy int) error {
	c.products[name] = testutil.SeedProduct(c.t, c.db, c.store, name, int64(stock), int64(priceSale), int64(priceBuy))
	return nil
}

func (c *ledgerTestContext) sell(items []LineItem, payment string) {
	c.sale, c.err = c.svc.CreateSale(context.Background(), c.actor, CreateSaleRequest{Items: items, PaymentMethod: payment})
}

func (c *ledgerTestContext) item(name string, qty int) (LineItem, error) {
	p, ok := c.products[name]
	if !ok {
		return LineItem{}, fmt.Errorf("unknown product %q", name)
	}
	return line(p, int64(qty)), nil
}

func (c *ledgerTestContext) theCashierSells(qty int, name string, subtotal int, payment string) error {
	it, err := c.item(name, qty)
	if err != nil {
		return err
	}
	it.Subtotal = decimal.NewFromInt(int64(subtotal))
	c.sell([]LineItem{it}, payment)
	return nil
}

func (c *ledgerTestContext) theCashierSellsNothing(payment string) error {
	c.sell(nil, payment)
	return nil
}

func (c *ledgerTestContext) theCashierSold(qty int, name string) error {
	it, err := c.item(name, qty)
	if err != nil {
		return err
	}
	c.sell([]LineItem{it}, "cash")
	return c.err
}

func (c *ledgerTestContext) theCashierSoldTwo(qtyA int, nameA string, qtyB int, nameB string) error {
	a, err := c.item(nameA, qtyA)
	if err != nil {
		return err
	}
	b, err := c.item(nameB, qtyB)
	if err != nil {
		return err
	}
	c.sell([]LineItem{a, b}, "cash")
	return c.err
}

func (c *ledgerTestContext) theCashierCancelsTheSale() error {
	return c.svc.CancelSale(context.Background(), c.actor, c.sale.ID)
}

func (c *ledgerTestContext) theCashierEditsTheSale(state, payment string) error {
	_, c.err = c.svc.EditSale(context.Background(), c.actor, c.sale.ID, EditSaleRequest{
		PaymentMethod: payment,
		State:         statePtr(state == "active"),
	})
	return nil
}

func (c *ledgerTestContext) succeeds() error {
	return c.err
}

func (c *ledgerTestContext) failsWith(kind error) func() error {
	return func() error {
		if !errors.Is(c.err, kind) {
			return fmt.Errorf("expected %v, got %v", kind, c.err)
		}
		return nil
	}
}

func (c *ledgerTestContext) productHasStock(name string, want int) error {
	p, ok := c.products[name]
	if !ok {
		return fmt.Errorf("unknown product %q", name)
	}
	if got := testutil.Stock(c.t, c.db, p); !got.Equal(decimal.NewFromInt(int64(want))) {
		return fmt.Errorf("%s stock is %s, want %d", name, got, want)
	}
	return nil
}

func (c *ledgerTestContext) theSaleTotalIs(total, items int) error {
	var s models.Sale
	if err := c.db.First(&s, "id = ?", c.sale.ID).Error; err != nil {
		return err
	}
	if !s.Total.Equal(decimal.NewFromInt(int64(total))) || !s.Items.Equal(decimal.NewFromInt(int64(items))) {
		return fmt.Errorf("sale total %s items %s, want %d and %d", s.Total, s.Items, total, items)
	}
	return nil
}

func (c *ledgerTestContext) alertsRaisedFor(n int, name, severity string) error {
	alerts := c.alerts.All()
	if len(alerts) != n {
		return fmt.Errorf("%d alerts raised, want %d", len(alerts), n)
	}
	for _, a := range alerts {
		if a.Product != name {
			return fmt.Errorf("alert for %q, want %q", a.Product, name)
		}
		if got := notify.SeverityOf(a.Stock).Label; got != severity {
			return fmt.Errorf("severity %q, want %q", got, severity)
		}
	}
	return nil
}

func (c *ledgerTestContext) noAlertRaised() error {
	if n := len(c.alerts.All()); n != 0 {
		return fmt.Errorf("%d alerts raised, want none", n)
	}
	return nil
}

func (c *ledgerTestContext) movementsRecorded(n int, action string) error {
	var got int64
	if err := c.db.Model(&models.Movement{}).Where("action = ?", action).Count(&got).Error; err != nil {
		return err
	}
	if got != int64(n) {
		return fmt.Errorf("%d %s movements, want %d", got, action, n)
	}
	return nil
}

func (c *ledgerTestContext) noSaleExists() error {
	if n := testutil.Count(c.t, c.db, &models.Sale{}); n != 0 {
		return fmt.Errorf("%d sales exist", n)
	}
	return nil
}

func initializeScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		tc := &ledgerTestContext{t: t}

		ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
			tc.reset()
			return ctx, nil
		})

		ctx.Step(`^a store "([^"]*)" with a cashier$`, tc.aStoreWithACashier)
		ctx.Step(`^a product "([^"]*)" with stock (\d+), sale price (\d+) and buy price (\d+)$`, tc.aProduct)
		ctx.Step(`^the cashier sells (\d+) of "([^"]*)" for (\d+) paid with "([^"]*)"$`, tc.theCashierSells)
		ctx.Step(`^the cashier sells nothing paid with "([^"]*)"$`, tc.theCashierSellsNothing)
		ctx.Step(`^the cashier sold (\d+) of "([^"]*)" and (\d+) of "([^"]*)"$`, tc.theCashierSoldTwo)
		ctx.Step(`^the cashier sold (\d+) of "([^"]*)"$`, tc.theCashierSold)
		ctx.Step(`^the cashier cancels the sale$`, tc.theCashierCancelsTheSale)
		ctx.Step(`^the cashier edits the sale to (cancelled|active) paid with "([^"]*)"$`, tc.theCashierEditsTheSale)

		ctx.Step(`^the (?:sale|edit) succeeds$`, tc.succeeds)
		ctx.Step(`^the sale fails with a validation error$`, tc.failsWith(apperr.ErrValidation))
		ctx.Step(`^the edit fails with an invalid transition error$`, tc.failsWith(apperr.ErrInvalidTransition))
		ctx.Step(`^"([^"]*)" has stock (-?\d+)$`, tc.productHasStock)
		ctx.Step(`^the sale total is (\d+) with (\d+) items$`, tc.theSaleTotalIs)
		ctx.Step(`^(\d+) low-stock alerts? (?:was|were) raised for "([^"]*)" with severity "([^"]*)"$`, tc.alertsRaisedFor)
		ctx.Step(`^no low-stock alert was raised$`, tc.noAlertRaised)
		ctx.Step(`^(\d+) "([^"]*)" movements? (?:was|were) recorded$`, tc.movementsRecorded)
		ctx.Step(`^no sale exists$`, tc.noSaleExists)
	}
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
