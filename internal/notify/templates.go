package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#333">
{{template "content" .}}
<p style="color:#888;font-size:12px">{{.Store}}</p>
</body></html>`))

var contents = map[Kind]string{
	KindWelcome: `<h2>Welcome, {{.Name}}!</h2>
<p>Your account has been created. You can now place orders and follow them from your account page.</p>`,

	KindOrderConfirmation: `<h2>Thank you for your order, {{.Name}}</h2>
<p>Order <strong>{{.Order.OrderNumber}}</strong> has been received and is <strong>{{.Order.Status}}</strong>.</p>
<table cellpadding="4">
{{range .Order.Items}}<tr><td>{{.ProductName}}{{if .Size}} ({{.Size}}){{end}}</td><td>x{{.Quantity}}</td><td>{{.Price}}</td></tr>
{{end}}<tr><td>Delivery ({{.Order.DeliveryType}})</td><td></td><td>{{.Order.DeliveryFee}}</td></tr>
<tr><td><strong>Total</strong></td><td></td><td><strong>{{.Order.TotalPrice}} {{.Order.Currency}}</strong></td></tr>
</table>
<p>Shipping to: {{.Order.ShippingAddress}}</p>`,

	KindStatusUpdate: `<h2>Your order {{.Order.OrderNumber}} is now {{.Order.Status}}</h2>
{{if .Order.TrackingNumber}}<p>Tracking number: <strong>{{.Order.TrackingNumber}}</strong></p>{{end}}
<p>Thank you for shopping with us.</p>`,

	KindAdminNewUser: `<h2>New customer registered</h2>
<p>{{.Name}} &lt;{{.Email}}&gt; just created an account.</p>`,

	KindAdminNewOrder: `<h2>New order {{.Order.OrderNumber}}</h2>
<p>Customer: {{.Order.CustomerName}} &lt;{{.Order.CustomerEmail}}&gt;</p>
<p>Payment: {{.Order.PaymentType}}, total {{.Order.TotalPrice}} {{.Order.Currency}}, {{len .Order.Items}} line item(s).</p>`,

	KindPasswordReset: `<h2>Reset your password</h2>
<p>Hi {{.Name}}, use the link below to choose a new password. It expires in one hour and can be used once.</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not ask for this you can ignore this email.</p>`,

	KindCustom: `<div>{{.Body}}</div>`,
}

var bodies = func() map[Kind]*template.Template {
	out := make(map[Kind]*template.Template, len(contents))
	for k, src := range contents {
		t := template.Must(layout.Clone())
		template.Must(t.New("content").Parse(src))
		out[k] = t
	}
	return out
}()

func subject(kind Kind, m Message) string {
	switch kind {
	case KindWelcome:
		return "Welcome to " + m.Store
	case KindOrderConfirmation:
		return fmt.Sprintf("Order %s confirmed", m.Order.OrderNumber)
	case KindStatusUpdate:
		return fmt.Sprintf("Order %s: %s", m.Order.OrderNumber, m.Order.Status)
	case KindAdminNewUser:
		return "New customer: " + m.Email
	case KindAdminNewOrder:
		return fmt.Sprintf("New order %s", m.Order.OrderNumber)
	case KindPasswordReset:
		return "Password reset"
	default:
		return m.Subject
	}
}

// render produces the subject and HTML body of kind for m.
func render(kind Kind, m Message) (Mail, error) {
	t, ok := bodies[kind]
	if !ok {
		return Mail{}, fmt.Errorf("unknown notification kind %q", kind)
	}
	if m.Order == nil && needsOrder(kind) {
		return Mail{}, fmt.Errorf("%s requires an order", kind)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", m); err != nil {
		return Mail{}, fmt.Errorf("render %s: %w", kind, err)
	}
	text := m.Body
	if kind != KindCustom {
		text = ""
	}
	return Mail{To: m.To, Subject: strings.TrimSpace(subject(kind, m)), HTML: buf.String(), Text: text}, nil
}

func needsOrder(k Kind) bool {
	return k == KindOrderConfirmation || k == KindStatusUpdate || k == KindAdminNewOrder
}
