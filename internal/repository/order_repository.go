package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/storefront-orders/internal/model"
)

// OrderRepo provides persistence for orders and their line items.
// Line items are stored in order_items; each carries the unit price
// that was current when the order was placed. All timestamps are UTC.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, order_number, user_id, customer_name, customer_email, customer_phone,
	shipping_address, payment_type, delivery_type, delivery_fee, status, tracking_number,
	total_price, currency, delivery_date, send_email, payment_ref, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var (
		o          model.Order
		userID     sql.NullInt64
		tracking   sql.NullString
		deliveryAt sql.NullTime
		paymentRef sql.NullString
	)
	if err := row.Scan(&o.ID, &o.OrderNumber, &userID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.PaymentType, &o.DeliveryType, &o.DeliveryFee, &o.Status, &tracking,
		&o.TotalPrice, &o.Currency, &deliveryAt, &o.SendEmail, &paymentRef, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := uint64(userID.Int64)
		o.UserID = &id
	}
	if tracking.Valid {
		t := tracking.String
		o.TrackingNumber = &t
	}
	if deliveryAt.Valid {
		d := deliveryAt.Time
		o.DeliveryDate = &d
	}
	if paymentRef.Valid {
		p := paymentRef.String
		o.PaymentRef = &p
	}
	o.Items = []model.OrderItem{}
	return &o, nil
}

// Create inserts the order and all of its items in a single
// transaction, then reloads the order so that generated ids and
// timestamps are populated on o.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO orders (order_number, user_id, customer_name, customer_email, customer_phone,
		shipping_address, payment_type, delivery_type, delivery_fee, status, total_price, currency,
		delivery_date, send_email) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, o.OrderNumber, o.UserID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddress, o.PaymentType, o.DeliveryType, o.DeliveryFee, o.Status, o.TotalPrice, o.Currency,
		o.DeliveryDate, o.SendEmail)
	if err != nil {
		if isDuplicate(err) {
			return ErrOrderNumberTaken
		}
		return fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	if err := createItemsTx(ctx, tx, o.ID, o.Items); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	saved, err := r.GetByID(ctx, o.ID)
	if err != nil {
		return err
	}
	*o = *saved
	return nil
}

// createItemsTx inserts all line items with a single multi-row
// statement inside the caller's transaction.
func createItemsTx(ctx context.Context, tx *sql.Tx, orderID uint64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `INSERT INTO order_items (order_id, product_id, quantity, price, size) VALUES `
	args := make([]any, 0, len(items)*5)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, orderID, it.ProductID, it.Quantity, it.Price, it.Size)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// GetByID returns an order with its items, or ErrNotFound.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.attachItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByPaymentRef returns the order that issued the given payment
// reference. Every attempt is kept in payment_attempts, so references
// from superseded attempts still resolve.
func (r *OrderRepo) GetByPaymentRef(ctx context.Context, ref string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+
		" FROM orders WHERE id = (SELECT order_id FROM payment_attempts WHERE reference = ?)", ref))
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.attachItems(ctx, []*model.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns every order placed by a user, newest first.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}
	return r.collect(ctx, rows)
}

// List returns one page of orders filtered by status (empty = all)
// together with the total number of matching orders.
func (r *OrderRepo) List(ctx context.Context, f model.OrderFilter) ([]model.Order, int, error) {
	where, args := "", []any{}
	if f.Status != "" {
		where, args = " WHERE status = ?", append(args, f.Status)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	limit, offset := pageBounds(f.Page, f.Limit)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders, err := r.collect(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepo) collect(ctx context.Context, rows *sql.Rows) ([]model.Order, error) {
	defer rows.Close()
	ptrs := make([]*model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(ptrs))
	for _, o := range ptrs {
		out = append(out, *o)
	}
	return out, nil
}

// attachItems loads the line items of all given orders with one query.
func (r *OrderRepo) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	index := make(map[uint64]*model.Order, len(orders))
	ids := make([]any, 0, len(orders))
	for _, o := range orders {
		index[o.ID] = o
		ids = append(ids, o.ID)
	}
	q := `SELECT oi.id, oi.order_id, oi.product_id, COALESCE(p.name, ''), oi.quantity, oi.price, oi.size, oi.created_at
	      FROM order_items oi
	      LEFT JOIN products p ON p.id = oi.product_id
	      WHERE oi.order_id IN (` + placeholders(len(ids)) + `)
	      ORDER BY oi.order_id, oi.id`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.Price, &it.Size, &it.CreatedAt); err != nil {
			return err
		}
		if o, ok := index[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

// UpdateStatus moves an order from `from` to `to`, optionally setting
// the tracking number. The update only applies while the stored status
// is still `from`; if another writer got there first ErrConflict is
// returned (ErrNotFound when the order is gone).
func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.OrderStatus, tracking *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, tracking_number = COALESCE(?, tracking_number) WHERE id = ? AND status = ?`,
		to, tracking, id, from)
	if err != nil {
		return fmt.Errorf("update order %d status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// SetTracking updates only the tracking number.
func (r *OrderRepo) SetTracking(ctx context.Context, id uint64, tracking string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE orders SET tracking_number = ? WHERE id = ?`, tracking, id); err != nil {
		return fmt.Errorf("update order %d tracking: %w", id, err)
	}
	return nil
}

// SetPaymentRef records the reference of a new payment attempt. The
// order keeps the latest reference in payment_ref and every reference
// is appended to payment_attempts in the same transaction. It only
// applies while the order is still awaiting payment.
func (r *OrderRepo) SetPaymentRef(ctx context.Context, id uint64, ref string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	applied, err := addPaymentAttemptTx(ctx, tx, id, ref)
	if err != nil || !applied {
		_ = tx.Rollback()
		if err != nil {
			return err
		}
		return r.missingOrConflict(ctx, id)
	}
	return tx.Commit()
}

func addPaymentAttemptTx(ctx context.Context, tx *sql.Tx, id uint64, ref string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET payment_ref = ? WHERE id = ? AND status = ?`, ref, id, model.StatusPendingPayment)
	if err != nil {
		return false, fmt.Errorf("update order %d payment ref: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payment_attempts (order_id, reference) VALUES (?, ?)`, id, ref); err != nil {
		if isDuplicate(err) {
			return false, fmt.Errorf("payment reference %q reused: %w", ref, ErrConflict)
		}
		return false, fmt.Errorf("record payment attempt for order %d: %w", id, err)
	}
	return true, nil
}

func (r *OrderRepo) missingOrConflict(ctx context.Context, id uint64) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&one)
	if err != nil {
		return notFound(err)
	}
	return ErrConflict
}
