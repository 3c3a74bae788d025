package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
)

type Repo struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func Connect(ctx context.Context, dsn string) *pgxpool.Pool {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		panic(err)
	}
	if err := pool.Ping(ctx); err != nil {
		panic(err)
	}
	return pool
}

// EnsureSchema creates the tables on a fresh database. Existing tables are
// left alone.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id           BIGSERIAL PRIMARY KEY,
			telegram_id  BIGINT NOT NULL UNIQUE,
			name         TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			language     TEXT NOT NULL DEFAULT 'uz',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS categories (
			id         BIGSERIAL PRIMARY KEY,
			name       TEXT NOT NULL,
			image_path TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS products (
			id          BIGSERIAL PRIMARY KEY,
			category_id BIGINT NOT NULL REFERENCES categories(id),
			name        TEXT NOT NULL,
			price       BIGINT NOT NULL,
			image_path  TEXT NOT NULL DEFAULT '',
			detail      TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS orders (
			id          BIGSERIAL PRIMARY KEY,
			user_id     BIGINT NOT NULL REFERENCES users(id),
			status      TEXT NOT NULL DEFAULT 'pending',
			total_price BIGINT NOT NULL,
			comment     TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS order_items (
			id           BIGSERIAL PRIMARY KEY,
			order_id     BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id   BIGINT NOT NULL REFERENCES products(id),
			product_name TEXT NOT NULL,
			quantity     INT NOT NULL,
			unit_price   BIGINT NOT NULL,
			total_price  BIGINT NOT NULL
		);
	`)
	return err
}

// UpsertUser inserts a user keyed by telegram id, or refreshes the name,
// phone and language of an existing row. The stored row is returned either
// way.
func (r *Repo) UpsertUser(ctx context.Context, telegramID int64, name, phone string, language domain.Language) (*domain.Profile, error) {
	var p domain.Profile
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (telegram_id, name, phone_number, language)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (telegram_id) DO UPDATE SET
		  name=EXCLUDED.name,
		  phone_number=EXCLUDED.phone_number,
		  language=EXCLUDED.language
		RETURNING id, telegram_id, name, phone_number, language, created_at
	`, telegramID, name, phone, language).Scan(
		&p.ID, &p.TelegramID, &p.Name, &p.PhoneNumber, &p.Language, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) UserByTelegramID(ctx context.Context, telegramID int64) (*domain.Profile, error) {
	var p domain.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, telegram_id, name, phone_number, language, created_at
		FROM users WHERE telegram_id=$1
	`, telegramID).Scan(
		&p.ID, &p.TelegramID, &p.Name, &p.PhoneNumber, &p.Language, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, image_path FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ImagePath); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// Products lists products, optionally narrowed to one category. categoryID
// zero means no filter.
func (r *Repo) Products(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	q := `SELECT id, category_id, name, price, image_path, detail FROM products`
	args := []any{}
	if categoryID > 0 {
		q += ` WHERE category_id=$1`
		args = append(args, categoryID)
	}
	q += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Price, &p.ImagePath, &p.Detail); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CreateOrder writes the order and its item snapshots in one transaction.
// Unit prices and the grand total come from the products table at insert
// time; the client never supplies prices.
func (r *Repo) CreateOrder(ctx context.Context, userID int64, items []domain.OrderItemInput, comment string) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order must have at least one item")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o := domain.Order{
		UserID:  userID,
		Status:  domain.OrderPending,
		Comment: comment,
	}
	for _, in := range items {
		var name string
		var price int64
		err := tx.QueryRow(ctx, `SELECT name, price FROM products WHERE id=$1`, in.ProductID).Scan(&name, &price)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", in.ProductID, domain.ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		qty := in.Quantity
		if qty < 1 {
			qty = 1
		}
		o.Items = append(o.Items, domain.OrderItem{
			ProductID:   in.ProductID,
			ProductName: name,
			Quantity:    qty,
			UnitPrice:   price,
			TotalPrice:  price * int64(qty),
		})
		o.TotalPrice += price * int64(qty)
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, status, total_price, comment)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at, updated_at
	`, o.UserID, o.Status, o.TotalPrice, o.Comment).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	for i := range o.Items {
		it := &o.Items[i]
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id
		`, o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.TotalPrice)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range o.Items {
		if err := br.QueryRow().Scan(&o.Items[i].ID); err != nil {
			br.Close()
			return nil, err
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) OrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, status, total_price, comment, created_at, updated_at
		FROM orders WHERE id=$1
	`, id).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalPrice, &o.Comment, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.orderItems(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

func (r *Repo) OrdersByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return r.listOrders(ctx, `
		SELECT id, user_id, status, total_price, comment, created_at, updated_at
		FROM orders WHERE user_id=$1
		ORDER BY created_at DESC
	`, userID)
}

// Orders lists all orders, optionally filtered by status.
func (r *Repo) Orders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if status == "" {
		return r.listOrders(ctx, `
			SELECT id, user_id, status, total_price, comment, created_at, updated_at
			FROM orders ORDER BY created_at DESC
		`)
	}
	return r.listOrders(ctx, `
		SELECT id, user_id, status, total_price, comment, created_at, updated_at
		FROM orders WHERE status=$1
		ORDER BY created_at DESC
	`, status)
}

func (r *Repo) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now() WHERE id=$1
	`, id, status)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return r.OrderByID(ctx, id)
}

func (r *Repo) listOrders(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []int64
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalPrice, &o.Comment, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *Repo) orderItems(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, total_price
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[int64][]domain.OrderItem)
	for rows.Next() {
		var orderID int64
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], it)
	}
	return items, rows.Err()
}
