package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go-store-pos/internal/audit"
	"go-store-pos/internal/auth"
	"go-store-pos/internal/catalog"
	"go-store-pos/internal/database"
	"go-store-pos/internal/ledger"
	"go-store-pos/internal/models"
	"go-store-pos/internal/notify"
	"go-store-pos/internal/testutil"
	"go-store-pos/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type alertSink struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (s *alertSink) Schedule(a notify.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, a)
}

type reportSink struct {
	items []notify.LowStockItem
	store string
	email string
}

func (r *reportSink) NotifyLowStockReport(_ context.Context, items []notify.LowStockItem, store, email string) bool {
	r.items, r.store, r.email = items, store, email
	return true
}

type cannedAssistant struct {
	reply string
	err   error
}

func (a cannedAssistant) Ask(context.Context, auth.Actor, string) (string, error) {
	return a.reply, a.err
}

type server struct {
	t       *testing.T
	db      *gorm.DB
	router  *gin.Engine
	h       *Handler
	tokens  *auth.Tokens
	alerts  *alertSink
	reports *reportSink
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()
	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	alerts := &alertSink{}
	reports := &reportSink{}
	recorder := audit.NewRecorder(db, log)
	h := &Handler{
		DB:       db,
		Users:    users.NewService(db, tokens, log),
		Catalog:  catalog.NewService(db, alerts, recorder, 10, log),
		Ledger:   ledger.NewService(db, alerts, recorder, ledger.Options{LowStockThreshold: 10}, log),
		Reports:  database.NewReports(db, 10),
		Notifier: reports,
		Log:      log,
	}
	r := gin.New()
	h.Routes(r, tokens, true)
	return &server{t: t, db: db, router: r, h: h, tokens: tokens, alerts: alerts, reports: reports}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) token(u models.User) string {
	s.t.Helper()
	tok, err := s.tokens.Issue(auth.Actor{UserID: u.ID, StoreID: u.StoreID, IsAdmin: u.IsAdmin})
	require.NoError(s.t, err)
	return tok
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestBootstrapStoreThroughSuperAdmin(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/register", "", LoginRequest{Username: "root", Password: "rootpw"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/login", "", LoginRequest{Username: "root", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/login", "", LoginRequest{Username: "root", Password: "rootpw"})
	require.Equal(t, http.StatusOK, w.Code)
	var sess users.Session
	decodeBody(t, w, &sess)
	require.True(t, sess.SuperAdmin)

	w = s.do(http.MethodPost, "/api/super/stores", sess.Token, users.StoreInput{Name: "Corner Shop"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var store models.Store
	decodeBody(t, w, &store)

	w = s.do(http.MethodPost, "/api/super/admins", sess.Token, map[string]any{
		"store_id": store.ID,
		"username": "boss",
		"password": "s3cret!",
		"name":     "Jane Doe",
		"email":    "boss@shop.test",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/login", "", LoginRequest{Username: "boss", Password: "s3cret!"})
	require.Equal(t, http.StatusOK, w.Code)
	var admin users.Session
	decodeBody(t, w, &admin)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "Corner Shop", admin.StoreName)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/super/stores", admin.Token, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/products", sess.Token, nil).Code)
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	alpha := testutil.SeedTenant(t, s.db, "Alpha")
	beta := testutil.SeedTenant(t, s.db, "Beta")
	coffee := testutil.SeedProduct(t, s.db, alpha.Store, "Coffee", 12, 1000, 600)
	cashier := s.token(alpha.Cashier)

	w := s.do(http.MethodPost, "/api/sales", cashier, map[string]any{"items": []any{}, "payment_method": "cash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/sales", cashier, map[string]any{
		"items":          []map[string]any{{"product_id": coffee.ID, "quantity": 5, "subtotal": 5000}},
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Sale models.Sale `json:"sale"`
	}
	decodeBody(t, w, &created)
	assert.Equal(t, "5000", created.Sale.Total.String())
	assert.Equal(t, "7", testutil.Stock(t, s.db, coffee).String())
	require.Len(t, s.alerts.alerts, 1)
	assert.Equal(t, "Coffee", s.alerts.alerts[0].Product)

	saleURL := "/api/sales/" + created.Sale.ID.String()

	w = s.do(http.MethodGet, saleURL, cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail ledger.SaleDetail
	decodeBody(t, w, &detail)
	require.Len(t, detail.Lines, 1)
	assert.Equal(t, "Coffee", detail.Lines[0].ProductName)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, saleURL, s.token(beta.Admin), nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/sales/not-a-uuid", cashier, nil).Code)

	w = s.do(http.MethodGet, "/api/sales?state=true", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Sale
	decodeBody(t, w, &list)
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, saleURL+"/cancel", cashier, nil).Code)
	assert.Equal(t, "12", testutil.Stock(t, s.db, coffee).String())
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, saleURL+"/cancel", cashier, nil).Code)

	w = s.do(http.MethodPut, saleURL, cashier, map[string]any{"payment_method": "card", "state": true})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/movements?type=sale", s.token(alpha.Admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []audit.HistoryRow
	decodeBody(t, w, &rows)
	assert.Len(t, rows, 2)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/movements?from=yesterday", cashier, nil).Code)
}

func TestEditSalePaymentOnlyOverHTTP(t *testing.T) {
	s := newServer(t)
	alpha := testutil.SeedTenant(t, s.db, "Alpha")
	coffee := testutil.SeedProduct(t, s.db, alpha.Store, "Coffee", 12, 1000, 600)
	cashier := s.token(alpha.Cashier)

	w := s.do(http.MethodPost, "/api/sales", cashier, map[string]any{
		"items":          []map[string]any{{"product_id": coffee.ID, "quantity": 5, "subtotal": 5000}},
		"payment_method": "cash",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Sale models.Sale `json:"sale"`
	}
	decodeBody(t, w, &created)

	w = s.do(http.MethodPut, "/api/sales/"+created.Sale.ID.String(), cashier, map[string]any{"payment_method": "card"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var edited models.Sale
	decodeBody(t, w, &edited)
	assert.True(t, edited.State)
	assert.Equal(t, "card", edited.PaymentMethod)
	assert.Equal(t, "7", testutil.Stock(t, s.db, coffee).String())
}

func TestAdminOnlyRoutes(t *testing.T) {
	s := newServer(t)
	alpha := testutil.SeedTenant(t, s.db, "Alpha")
	admin, cashier := s.token(alpha.Admin), s.token(alpha.Cashier)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/categories", cashier, categoryRequest{Name: "Drinks"}).Code)
	w := s.do(http.MethodPost, "/api/categories", admin, categoryRequest{Name: "Drinks"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cat models.Category
	decodeBody(t, w, &cat)

	body := map[string]any{
		"name":        "Tea",
		"description": "Green tea",
		"category_id": cat.ID,
		"price_sale":  800,
		"price_buy":   400,
		"stock":       20,
	}
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/products", cashier, body).Code)

	w = s.do(http.MethodPost, "/api/products", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Product
	decodeBody(t, w, &p)

	body["stock"] = 4
	w = s.do(http.MethodPut, "/api/products/"+p.ID.String(), admin, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, s.alerts.alerts, 1, "stock dropped under the threshold")

	body["image"] = "%%%"
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/api/products/"+p.ID.String(), admin, body).Code)

	w = s.do(http.MethodGet, "/api/products", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list catalog.ProductList
	decodeBody(t, w, &list)
	assert.Equal(t, 1, list.Low)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodGet, "/api/products/"+p.ID.String()+"/image", cashier, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/products/"+p.ID.String(), admin, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/users", cashier, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/users", admin, nil).Code)
}

func TestReportsAndLowStockEmail(t *testing.T) {
	s := newServer(t)
	alpha := testutil.SeedTenant(t, s.db, "Alpha")
	testutil.SeedProduct(t, s.db, alpha.Store, "Milk", 3, 900, 500)
	testutil.SeedProduct(t, s.db, alpha.Store, "Rice", 50, 700, 300)
	admin := s.token(alpha.Admin)

	w := s.do(http.MethodGet, "/api/reports/dashboard", s.token(alpha.Cashier), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d database.Dashboard
	decodeBody(t, w, &d)
	assert.Equal(t, int64(2), d.Products)
	assert.Equal(t, int64(1), d.LowStock)

	w = s.do(http.MethodGet, "/api/reports/sales-per-day?days=3", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var days []database.Point
	decodeBody(t, w, &days)
	assert.Len(t, days, 3)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/reports/product-sales", admin, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/reports/product-sales?product_id="+uuid.NewString(), admin, nil).Code)

	w = s.do(http.MethodPost, "/api/reports/low-stock-email", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, s.reports.items, 1)
	assert.Equal(t, "Milk", s.reports.items[0].Name)
	assert.Equal(t, "Alpha", s.reports.store)
	assert.Equal(t, "alpha-admin@shop.test", s.reports.email)
}

func TestAskAI(t *testing.T) {
	s := newServer(t)
	alpha := testutil.SeedTenant(t, s.db, "Alpha")
	admin := s.token(alpha.Admin)
	q := AskRequest{Message: "what is low?"}

	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodPost, "/api/ask", admin, q).Code)

	s.h.Assistant = cannedAssistant{reply: "Milk is low."}
	w := s.do(http.MethodPost, "/api/ask", admin, q)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reply":"Milk is low."}`, w.Body.String())

	s.h.Assistant = cannedAssistant{err: errors.New("quota")}
	assert.Equal(t, http.StatusBadGateway, s.do(http.MethodPost, "/api/ask", admin, q).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/ask", admin, map[string]string{}).Code)
}
