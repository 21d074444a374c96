// Package notify sends transactional email without blocking the request
// that triggered it. Each notification is rendered and delivered once in
// its own goroutine; failures are logged and never reported back.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/storefront-orders/internal/model"
)

// Kind selects the template.
type Kind string

const (
	KindWelcome           Kind = "welcome"
	KindOrderConfirmation Kind = "order_confirmation"
	KindStatusUpdate      Kind = "status_update"
	KindAdminNewUser      Kind = "admin_new_user"
	KindAdminNewOrder     Kind = "admin_new_order"
	KindPasswordReset     Kind = "password_reset"
	KindCustom            Kind = "custom"
)

// Message carries the template data. Which fields matter depends on the
// kind: Order for order kinds, Link for password resets, Subject and Body
// for custom mail. Admin kinds ignore To and go to the admin address.
type Message struct {
	To      string
	Name    string
	Email   string
	Order   *model.Order
	Link    string
	Subject string
	Body    string
	Store   string
}

// Dispatcher renders and sends notifications asynchronously.
type Dispatcher struct {
	mailer     Mailer
	adminEmail string
	store      string
	timeout    time.Duration
	wg         sync.WaitGroup
}

func NewDispatcher(m Mailer, adminEmail, storeName string) *Dispatcher {
	return &Dispatcher{mailer: m, adminEmail: adminEmail, store: storeName, timeout: 30 * time.Second}
}

// Dispatch returns immediately. The email is sent on a separate
// goroutine with one attempt.
func (d *Dispatcher) Dispatch(kind Kind, msg Message) {
	if kind == KindAdminNewUser || kind == KindAdminNewOrder {
		msg.To = d.adminEmail
	}
	if msg.To == "" {
		slog.Debug("notification skipped, no recipient", "kind", kind)
		return
	}
	if msg.Store == "" {
		msg.Store = d.store
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.send(kind, msg)
	}()
}

func (d *Dispatcher) send(kind Kind, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("notification panicked", "kind", kind, "panic", r)
		}
	}()
	m, err := render(kind, msg)
	if err != nil {
		slog.Error("notification render failed", "kind", kind, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.mailer.Send(ctx, m); err != nil {
		slog.Error("notification send failed", "kind", kind, "to", m.To, "error", err)
		return
	}
	slog.Info("notification sent", "kind", kind, "to", m.To)
}

// Wait blocks until every dispatched notification has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }
