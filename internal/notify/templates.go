package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"jerseyprint/internal/domain"
)

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}

var webhookBody = template.Must(template.New("webhook").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    h2 { color: #3b82f6; border-bottom: 2px solid #3b82f6; padding-bottom: 10px; }
    .label { font-weight: bold; color: #555; }
  </style>
</head>
<body>
  <div class="container">
    <h2>New Custom Order Received</h2>
    <p><span class="label">Order ID:</span> {{.ID}}</p>
    <p><span class="label">Product:</span> {{.Product.Name}}</p>
    <p><span class="label">Price:</span> {{money .Product.Price}}</p>
    <p><span class="label">Total:</span> {{money .Totals.Total}}</p>
{{- with .Customization}}
    <h3>Customization Details</h3>
    {{- if .Name}}
    <p><span class="label">Name:</span> {{.Name}}</p>
    {{- end}}
    {{- if .Number}}
    <p><span class="label">Number:</span> {{.Number}}</p>
    {{- end}}
    {{- if .TextColor}}
    <p><span class="label">Text Color:</span> {{.TextColor}}</p>
    {{- end}}
{{- end}}
    <h3>Customer Information</h3>
    <p><span class="label">Name:</span> {{.Billing.CustomerName}}</p>
    <p><span class="label">Email:</span> {{.Billing.Email}}</p>
    <p><span class="label">Phone:</span> {{.Billing.Phone}}</p>
    <p><span class="label">Address:</span> {{.Billing.FullAddress}}</p>
{{- if .Images.BackURL}}
    <p><a href="{{.Images.BackURL}}">Back artwork</a></p>
{{- end}}
{{- if .Images.FrontURL}}
    <p><a href="{{.Images.FrontURL}}">Front view</a></p>
{{- end}}
    <p><em>This is an automated notification from the Custom Orders system.</em></p>
  </div>
</body>
</html>
`))

var mailBody = template.Must(template.New("mail").Funcs(funcs).Parse(`<h2>New Custom Order</h2>
<p><strong>Product:</strong> {{orDash .Product.Name}} ({{money .Product.Price}})</p>
<p><strong>Customization:</strong> {{with .Customization}}Name on back: {{orDash .Name}}, Number: {{orDash .Number}}, Text color: {{orDash .TextColor}}{{else}}No customization{{end}}</p>
<hr />
<h3>Billing</h3>
<p><strong>Name:</strong> {{orDash .Billing.CustomerName}}</p>
<p><strong>Email:</strong> {{orDash .Billing.Email}}</p>
<p><strong>Phone:</strong> {{orDash .Billing.Phone}}</p>
<p><strong>Address:</strong> {{orDash .Billing.FullAddress}}</p>
`))

func render(t *template.Template, order domain.Order) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, order); err != nil {
		return "", fmt.Errorf("render %s body: %w", t.Name(), err)
	}
	return buf.String(), nil
}
