package notify

import "github.com/shopspring/decimal"

// Severity only changes how an alert looks.
type Severity struct {
	Label string
	Color string
}

var (
	SeverityCritical = Severity{Label: "critical", Color: "#ef4444"}
	SeverityHigh     = Severity{Label: "high", Color: "#f59e0b"}
	SeverityMedium   = Severity{Label: "medium", Color: "#3b82f6"}
)

var five = decimal.NewFromInt(5)

func SeverityOf(stock decimal.Decimal) Severity {
	switch {
	case stock.Sign() <= 0:
		return SeverityCritical
	case stock.LessThan(five):
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
