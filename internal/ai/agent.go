// Package ai is the store assistant: a Gemini chat that answers questions
// about one store's inventory and sales through read-only tools.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-store-pos/internal/auth"
	"go-store-pos/internal/catalog"
	"go-store-pos/internal/database"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// maxToolRounds bounds how many tool calls one question may chain.
const maxToolRounds = 5

// Inventory lists a store's products.
type Inventory interface {
	ListProducts(ctx context.Context, actor auth.Actor, search string) (catalog.ProductList, error)
}

type Assistant struct {
	client    *genai.Client
	model     string
	inventory Inventory
	reports   *database.Reports
	log       *zap.Logger
	now       func() time.Time
}

func NewAssistant(ctx context.Context, apiKey, model string, inventory Inventory, reports *database.Reports, log *zap.Logger) (*Assistant, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Assistant{
		client:    client,
		model:     model,
		inventory: inventory,
		reports:   reports,
		log:       log,
		now:       time.Now,
	}, nil
}

func (a *Assistant) Close() error {
	return a.client.Close()
}

func (a *Assistant) prompt(message string) string {
	return fmt.Sprintf(`SYSTEM: Today is %s. You are the assistant of a retail store's point of sale.

RULES:
1. If the user asks for PRICE, COST, STOCK or DETAILS of a product, call 'check_inventory'
   and read the result to answer. Prices are whole currency units.
2. For sales or revenue in a date range use 'get_sales_report'.
3. For best sellers use 'get_top_products'. For products running out use 'get_low_stock'.
4. You cannot change data. If asked to, explain that changes are made in the POS screens.

USER: %s`, a.now().Format("2006-01-02"), message)
}

var tools = []*genai.Tool{
	{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "check_inventory",
				Description: "Get the store's product list with ID, name, category, sale price, buy price, stock and stock status.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"search": {Type: genai.TypeString, Description: "Optional name or category filter"},
					},
				},
			},
			{
				Name:        "get_sales_report",
				Description: "Get total revenue and number of completed sales for a date range.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
						"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
					},
					Required: []string{"start_date", "end_date"},
				},
			},
			{
				Name:        "get_top_products",
				Description: "Get the best selling products by quantity.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"limit": {Type: genai.TypeInteger, Description: "How many products to return"},
					},
				},
			},
			{
				Name:        "get_low_stock",
				Description: "Get the products whose stock is below the low-stock threshold, lowest first.",
			},
		},
	},
}

// Ask answers one question for the actor's store.
func (a *Assistant) Ask(ctx context.Context, actor auth.Actor, message string) (string, error) {
	model := a.client.GenerativeModel(a.model)
	model.Tools = tools
	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(a.prompt(message)))
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return printResponse(resp), nil
		}
		replies := make([]genai.Part, 0, len(calls))
		for _, fc := range calls {
			a.log.Debug("assistant tool call", zap.String("tool", fc.Name))
			replies = append(replies, genai.FunctionResponse{
				Name:     fc.Name,
				Response: a.call(ctx, actor, fc),
			})
		}
		if resp, err = session.SendMessage(ctx, replies...); err != nil {
			return "", fmt.Errorf("send tool result: %w", err)
		}
	}
	return printResponse(resp), nil
}

// call runs one tool. Failures are reported back to the model as an error field.
func (a *Assistant) call(ctx context.Context, actor auth.Actor, fc genai.FunctionCall) map[string]any {
	var (
		out any
		err error
	)
	switch fc.Name {
	case "check_inventory":
		search, _ := fc.Args["search"].(string)
		out, err = a.checkInventory(ctx, actor, search)
	case "get_sales_report":
		start, _ := fc.Args["start_date"].(string)
		end, _ := fc.Args["end_date"].(string)
		out, err = a.salesReport(ctx, actor, start, end)
	case "get_top_products":
		limit := 5
		if v, ok := fc.Args["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}
		out, err = a.reports.TopProducts(ctx, actor.StoreID, limit)
	case "get_low_stock":
		out, err = a.reports.LowStock(ctx, actor.StoreID, 0)
	default:
		err = fmt.Errorf("unknown tool %q", fc.Name)
	}
	if err != nil {
		a.log.Warn("assistant tool failed", zap.String("tool", fc.Name), zap.Error(err))
		return map[string]any{"error": err.Error()}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"result": string(b)}
}

type inventoryItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	PriceSale int64  `json:"price_sale"`
	PriceBuy  int64  `json:"price_buy"`
	Stock     string `json:"stock"`
	Status    string `json:"status"`
}

func (a *Assistant) checkInventory(ctx context.Context, actor auth.Actor, search string) ([]inventoryItem, error) {
	list, err := a.inventory.ListProducts(ctx, actor, search)
	if err != nil {
		return nil, err
	}
	items := make([]inventoryItem, 0, len(list.Products))
	for _, p := range list.Products {
		items = append(items, inventoryItem{
			ID:        p.ID.String(),
			Name:      p.Name,
			Category:  p.Category,
			PriceSale: p.PriceSale,
			PriceBuy:  p.PriceBuy,
			Stock:     p.Stock.String(),
			Status:    p.Status,
		})
	}
	return items, nil
}

func (a *Assistant) salesReport(ctx context.Context, actor auth.Actor, start, end string) (database.Period, error) {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return database.Period{}, errors.New("dates must be in YYYY-MM-DD format")
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return database.Period{}, errors.New("dates must be in YYYY-MM-DD format")
	}
	return a.reports.Revenue(ctx, actor.StoreID, from, to)
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

func printResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I could not find an answer."
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I could not find an answer."
}
