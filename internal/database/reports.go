package database

import (
	"context"
	"sort"
	"time"

	"go-store-pos/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reports answers the BI questions for one store at a time. Only active
// sales count towards revenue.
type Reports struct {
	db        *gorm.DB
	threshold decimal.Decimal
	now       func() time.Time
}

func NewReports(db *gorm.DB, lowStockThreshold int) *Reports {
	if lowStockThreshold <= 0 {
		lowStockThreshold = 10
	}
	return &Reports{db: db, threshold: decimal.NewFromInt(int64(lowStockThreshold)), now: time.Now}
}

// Point is one entry of a chart series.
type Point struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
	Count int64           `json:"count"`
}

type ProductSales struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type CategorySales struct {
	Category string          `json:"category"`
	Quantity decimal.Decimal `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type StockItem struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Stock decimal.Decimal `json:"stock"`
}

type InventoryStatus struct {
	Available int64           `json:"available"`
	Low       int64           `json:"low"`
	Out       int64           `json:"out"`
	Value     decimal.Decimal `json:"value"`
}

type Period struct {
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int64           `json:"count"`
}

type Comparison struct {
	Current  Period  `json:"current"`
	Previous Period  `json:"previous"`
	Change   float64 `json:"change_pct"`
}

type Dashboard struct {
	Products       int64           `json:"products"`
	OutOfStock     int64           `json:"out_of_stock"`
	LowStock       int64           `json:"low_stock"`
	InventoryValue decimal.Decimal `json:"inventory_value"`

	Sales          int64           `json:"sales"`
	ActiveSales    int64           `json:"active_sales"`
	CancelledSales int64           `json:"cancelled_sales"`
	Revenue        decimal.Decimal `json:"revenue"`
	RevenueMonth   decimal.Decimal `json:"revenue_month"`
	RevenueWeek    decimal.Decimal `json:"revenue_week"`
	RevenueToday   decimal.Decimal `json:"revenue_today"`
	AverageTicket  decimal.Decimal `json:"average_ticket"`
	UtilityMonth   decimal.Decimal `json:"utility_month"`

	Users      int64 `json:"users"`
	Categories int64 `json:"categories"`

	TopProducts []ProductSales `json:"top_products"`
	LatestSales []models.Sale  `json:"latest_sales"`
	Critical    []StockItem    `json:"critical"`
}

// storeSales scopes a query on the sales table to the store.
func (r *Reports) storeSales(ctx context.Context, storeID uuid.UUID) *gorm.DB {
	db := r.db.WithContext(ctx)
	return db.Model(&models.Sale{}).Where("sales.id IN (?)", StoreSaleIDs(db, storeID))
}

func (r *Reports) activeProducts(ctx context.Context, storeID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("store_id = ? AND active = ?", storeID, true)
}

func today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// revenueSince sums active sale totals dated on or after from.
func (r *Reports) revenueSince(ctx context.Context, storeID uuid.UUID, from *time.Time) (decimal.Decimal, error) {
	q := r.storeSales(ctx, storeID).Where("sales.state = ?", true)
	if from != nil {
		q = q.Where("sales.date >= ?", *from)
	}
	return sum(q, "sales.total")
}

type sumRow struct {
	Total decimal.Decimal
}

// sum runs SUM(column) on q, treating no rows as zero.
func sum(q *gorm.DB, column string) (decimal.Decimal, error) {
	var out sumRow
	err := q.Select("COALESCE(SUM(" + column + "), 0) AS total").Scan(&out).Error
	return out.Total, err
}

func (r *Reports) DashboardSummary(ctx context.Context, storeID uuid.UUID) (Dashboard, error) {
	var d Dashboard
	now := r.now()
	day := today(now)
	week := day.AddDate(0, 0, -6)
	month := monthStart(now)

	inv, err := r.InventoryStatus(ctx, storeID)
	if err != nil {
		return d, err
	}
	d.Products = inv.Available + inv.Low + inv.Out
	d.LowStock = inv.Low
	d.OutOfStock = inv.Out
	d.InventoryValue = inv.Value

	if err := r.storeSales(ctx, storeID).Count(&d.Sales).Error; err != nil {
		return d, err
	}
	if err := r.storeSales(ctx, storeID).Where("sales.state = ?", true).Count(&d.ActiveSales).Error; err != nil {
		return d, err
	}
	d.CancelledSales = d.Sales - d.ActiveSales

	if d.Revenue, err = r.revenueSince(ctx, storeID, nil); err != nil {
		return d, err
	}
	if d.RevenueMonth, err = r.revenueSince(ctx, storeID, &month); err != nil {
		return d, err
	}
	if d.RevenueWeek, err = r.revenueSince(ctx, storeID, &week); err != nil {
		return d, err
	}
	if d.RevenueToday, err = r.revenueSince(ctx, storeID, &day); err != nil {
		return d, err
	}
	if d.ActiveSales > 0 {
		d.AverageTicket = d.Revenue.DivRound(decimal.NewFromInt(d.ActiveSales), 2)
	}

	d.UtilityMonth, err = sum(r.storeSales(ctx, storeID).Where("sales.state = ? AND sales.date >= ?", true, month), "sales.utility")
	if err != nil {
		return d, err
	}

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Where("store_id = ? AND active = ?", storeID, true).Count(&d.Users).Error; err != nil {
		return d, err
	}
	if err := db.Model(&models.Category{}).Where("store_id = ?", storeID).Count(&d.Categories).Error; err != nil {
		return d, err
	}

	if d.TopProducts, err = r.TopProducts(ctx, storeID, 5); err != nil {
		return d, err
	}
	err = r.storeSales(ctx, storeID).
		Order("sales.date DESC").
		Limit(5).
		Find(&d.LatestSales).Error
	if err != nil {
		return d, err
	}
	if d.Critical, err = r.LowStock(ctx, storeID, 5); err != nil {
		return d, err
	}
	return d, nil
}

// dailyTotals loads active sales dated within [from, to] as (date, total) pairs.
func (r *Reports) dailyTotals(ctx context.Context, storeID uuid.UUID, from, to time.Time, productID *uuid.UUID) ([]Point, error) {
	type row struct {
		Date  time.Time
		Total decimal.Decimal
	}
	var rows []row

	q := r.storeSales(ctx, storeID).Where("sales.state = ? AND sales.date >= ? AND sales.date <= ?", true, from, to)
	if productID != nil {
		q = q.Select("sales.date AS date, sale_items.quantity AS total").
			Joins("JOIN sale_items ON sale_items.sale_id = sales.id").
			Where("sale_items.product_id = ?", *productID)
	} else {
		q = q.Select("sales.date AS date, sales.total AS total")
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(rows))
	for _, rw := range rows {
		points = append(points, Point{Label: rw.Date.Format("2006-01-02"), Value: rw.Total, Count: 1})
	}
	return points, nil
}

// bucket sums points by label into the given ordered labels.
func bucket(labels []string, points []Point, key func(string) string) []Point {
	idx := make(map[string]int, len(labels))
	out := make([]Point, len(labels))
	for i, l := range labels {
		idx[l] = i
		out[i] = Point{Label: l, Value: decimal.Zero}
	}
	for _, p := range points {
		if i, ok := idx[key(p.Label)]; ok {
			out[i].Value = out[i].Value.Add(p.Value)
			out[i].Count += p.Count
		}
	}
	return out
}

// SalesPerDay returns one point per day for the last n days, oldest first.
func (r *Reports) SalesPerDay(ctx context.Context, storeID uuid.UUID, days int) ([]Point, error) {
	return r.perDay(ctx, storeID, days, nil)
}

// ProductSalesByDate is SalesPerDay for the quantity of a single product.
func (r *Reports) ProductSalesByDate(ctx context.Context, storeID, productID uuid.UUID, days int) ([]Point, error) {
	return r.perDay(ctx, storeID, days, &productID)
}

func (r *Reports) perDay(ctx context.Context, storeID uuid.UUID, days int, productID *uuid.UUID) ([]Point, error) {
	if days <= 0 {
		days = 7
	}
	end := today(r.now())
	start := end.AddDate(0, 0, -(days - 1))

	points, err := r.dailyTotals(ctx, storeID, start, end, productID)
	if err != nil {
		return nil, err
	}
	labels := make([]string, days)
	for i := range labels {
		labels[i] = start.AddDate(0, 0, i).Format("2006-01-02")
	}
	return bucket(labels, points, func(l string) string { return l }), nil
}

// SalesPerMonth returns one point per month for the last n months, oldest first.
func (r *Reports) SalesPerMonth(ctx context.Context, storeID uuid.UUID, months int) ([]Point, error) {
	if months <= 0 {
		months = 6
	}
	end := monthStart(r.now())
	start := end.AddDate(0, -(months - 1), 0)

	points, err := r.dailyTotals(ctx, storeID, start, today(r.now()), nil)
	if err != nil {
		return nil, err
	}
	labels := make([]string, months)
	for i := range labels {
		labels[i] = start.AddDate(0, i, 0).Format("2006-01")
	}
	return bucket(labels, points, func(l string) string { return l[:7] }), nil
}

// TopProducts ranks products by quantity sold in active sales.
func (r *Reports) TopProducts(ctx context.Context, storeID uuid.UUID, limit int) ([]ProductSales, error) {
	if limit <= 0 {
		limit = 10
	}
	type row struct {
		ProductID uuid.UUID
		Name      string
		Quantity  decimal.Decimal
		PriceSale int64
	}
	var rows []row
	err := r.storeSales(ctx, storeID).
		Select("sale_items.product_id, products.name, SUM(sale_items.quantity) AS quantity, products.price_sale").
		Joins("JOIN sale_items ON sale_items.sale_id = sales.id").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Where("sales.state = ?", true).
		Group("sale_items.product_id, products.name, products.price_sale").
		Order("quantity DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]ProductSales, 0, len(rows))
	for _, rw := range rows {
		out = append(out, ProductSales{
			ProductID: rw.ProductID,
			Name:      rw.Name,
			Quantity:  rw.Quantity,
			Revenue:   rw.Quantity.Mul(decimal.NewFromInt(rw.PriceSale)),
		})
	}
	return out, nil
}

// SalesByCategory groups sold quantities by the product's category label.
func (r *Reports) SalesByCategory(ctx context.Context, storeID uuid.UUID) ([]CategorySales, error) {
	type row struct {
		Category  string
		Quantity  decimal.Decimal
		PriceSale int64
	}
	var rows []row
	err := r.storeSales(ctx, storeID).
		Select("products.category, sale_items.quantity, products.price_sale").
		Joins("JOIN sale_items ON sale_items.sale_id = sales.id").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Where("sales.state = ?", true).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byCat := map[string]*CategorySales{}
	for _, rw := range rows {
		c, ok := byCat[rw.Category]
		if !ok {
			c = &CategorySales{Category: rw.Category}
			byCat[rw.Category] = c
		}
		c.Quantity = c.Quantity.Add(rw.Quantity)
		c.Revenue = c.Revenue.Add(rw.Quantity.Mul(decimal.NewFromInt(rw.PriceSale)))
	}
	out := make([]CategorySales, 0, len(byCat))
	for _, c := range byCat {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// InventoryStatus counts active products by stock level and values the
// stock at buy price.
func (r *Reports) InventoryStatus(ctx context.Context, storeID uuid.UUID) (InventoryStatus, error) {
	var products []models.Product
	err := r.activeProducts(ctx, storeID).
		Select("id, stock, price_buy").
		Find(&products).Error
	if err != nil {
		return InventoryStatus{}, err
	}

	var s InventoryStatus
	for _, p := range products {
		switch {
		case p.Stock.Sign() <= 0:
			s.Out++
		case p.Stock.LessThan(r.threshold):
			s.Low++
		default:
			s.Available++
		}
		if p.Stock.IsPositive() {
			s.Value = s.Value.Add(p.Stock.Mul(decimal.NewFromInt(p.PriceBuy)))
		}
	}
	return s, nil
}

// LowStock lists active products under the threshold, lowest first.
func (r *Reports) LowStock(ctx context.Context, storeID uuid.UUID, limit int) ([]StockItem, error) {
	q := r.activeProducts(ctx, storeID).
		Select("id, name, stock").
		Where("stock < ?", r.threshold).
		Order("stock ASC, name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var items []StockItem
	if err := q.Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// PeriodComparison compares this month so far with the whole previous month.
func (r *Reports) PeriodComparison(ctx context.Context, storeID uuid.UUID) (Comparison, error) {
	now := r.now()
	cur := monthStart(now)
	prev := cur.AddDate(0, -1, 0)

	var c Comparison
	var err error
	if c.Current, err = r.period(ctx, storeID, cur, today(now)); err != nil {
		return c, err
	}
	if c.Previous, err = r.period(ctx, storeID, prev, cur.AddDate(0, 0, -1)); err != nil {
		return c, err
	}
	if !c.Previous.Revenue.IsZero() {
		c.Change, _ = c.Current.Revenue.Sub(c.Previous.Revenue).
			Div(c.Previous.Revenue).
			Mul(decimal.NewFromInt(100)).
			Round(2).
			Float64()
	}
	return c, nil
}

// Revenue totals active sales dated between from and to, both days included.
func (r *Reports) Revenue(ctx context.Context, storeID uuid.UUID, from, to time.Time) (Period, error) {
	return r.period(ctx, storeID, today(from), today(to))
}

func (r *Reports) period(ctx context.Context, storeID uuid.UUID, from, to time.Time) (Period, error) {
	p := Period{From: from, To: to}
	q := func() *gorm.DB {
		return r.storeSales(ctx, storeID).Where("sales.state = ? AND sales.date >= ? AND sales.date <= ?", true, from, to)
	}
	var err error
	if p.Revenue, err = sum(q(), "sales.total"); err != nil {
		return p, err
	}
	if err := q().Count(&p.Count).Error; err != nil {
		return p, err
	}
	return p, nil
}
