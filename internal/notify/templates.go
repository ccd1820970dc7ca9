package notify

import (
	"bytes"
	"html/template"
	"strings"
)

type alertView struct {
	Product      string
	Store        string
	Stock        string
	Threshold    int
	DashboardURL string
	Severity     Severity
}

type reportRow struct {
	Name  string
	Stock string
	Color template.CSS
}

type reportView struct {
	Store string
	Count int
	Rows  []reportRow
}

var alertTmpl = template.Must(template.New("alert").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"css":   func(s string) template.CSS { return template.CSS(s) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body { font-family: 'Segoe UI', Tahoma, sans-serif; background-color: #f3f4f6; margin: 0; padding: 20px; }
.container { max-width: 600px; margin: 0 auto; background-color: white; border-radius: 12px; overflow: hidden; }
.header { background: {{css .Severity.Color}}; color: white; padding: 30px; text-align: center; }
.content { padding: 30px; }
.row { display: flex; justify-content: space-between; padding: 10px 0; border-bottom: 1px solid #e5e7eb; }
.value { color: {{css .Severity.Color}}; font-weight: bold; }
.button { display: inline-block; background-color: {{css .Severity.Color}}; color: white; padding: 14px 30px; text-decoration: none; border-radius: 8px; }
.footer { background-color: #f9fafb; padding: 20px; text-align: center; color: #6b7280; font-size: 14px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Low Stock Alert</h1>
    <div>URGENCY: {{upper .Severity.Label}}</div>
  </div>
  <div class="content">
    <p><strong>Attention:</strong> this product is below the recommended stock level.</p>
    <div class="row"><span>Product</span><span>{{.Product}}</span></div>
    <div class="row"><span>Store</span><span>{{.Store}}</span></div>
    <div class="row"><span>Current stock</span><span class="value">{{.Stock}} units</span></div>
    <div class="row"><span>Recommended stock</span><span>{{.Threshold}}+ units</span></div>
    <h3>Suggested actions</h3>
    <ul>
      <li>Review recent sales of the product</li>
      <li>Contact the supplier for a new order</li>
      <li>Update the system once the order is placed</li>
    </ul>
    {{if .DashboardURL}}<p style="text-align: center;"><a class="button" href="{{.DashboardURL}}">Open dashboard</a></p>{{end}}
  </div>
  <div class="footer">
    <p><strong>Inventory Management System</strong></p>
    <p>This message was generated automatically by the alert system.</p>
  </div>
</div>
</body>
</html>`))

var reportTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body { font-family: Arial, sans-serif; background-color: #f3f4f6; padding: 20px; }
.container { max-width: 600px; margin: 0 auto; background: white; border-radius: 12px; }
.header { background: #ef4444; color: white; padding: 30px; text-align: center; border-radius: 12px 12px 0 0; }
.content { padding: 30px; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th { background-color: #f9fafb; padding: 12px; text-align: left; }
td { padding: 12px; border-bottom: 1px solid #e5e7eb; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Low Stock Report</h1>
    <p>Several products need attention</p>
  </div>
  <div class="content">
    <h3>Store: {{.Store}}</h3>
    <p><strong>{{.Count}} products</strong> are low or out of stock:</p>
    <table>
      <thead><tr><th>Product</th><th style="text-align: center;">Stock</th></tr></thead>
      <tbody>
      {{range .Rows}}<tr><td>{{.Name}}</td><td style="text-align: center; font-weight: bold; color: {{.Color}};">{{.Stock}}</td></tr>
      {{end}}</tbody>
    </table>
    <p style="color: #6b7280; font-size: 14px;">Please review the inventory and place the necessary orders.</p>
  </div>
</div>
</body>
</html>`))

func renderAlert(v alertView) (string, error) {
	var buf bytes.Buffer
	if err := alertTmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderReport(v reportView) (string, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
