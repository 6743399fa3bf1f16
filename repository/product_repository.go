package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pricefinder/models"
)

// ErrProductNotFound is returned when no product has the requested id.
var ErrProductNotFound = errors.New("product not found")

const (
	productColumns = `id, name, description, source, url, price, last_updated, created_at`
	// defaultHistoryLimit applies when a caller asks for no limit.
	defaultHistoryLimit = 50
)

// editableColumns maps editable product fields to their columns.
var editableColumns = map[string]string{
	models.FieldName:        "name",
	models.FieldDescription: "description",
	models.FieldSource:      "source",
	models.FieldURL:         "url",
	models.FieldPrice:       "price",
}

// ProductRepository stores products and their price history in Postgres.
type ProductRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewProductRepository creates a repository over db.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Source, &p.URL,
		&p.Price, &p.LastUpdated, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// Add stores a new product. When the product has a price it is also written to
// the price history under strategy.
func (r *ProductRepository) Add(ctx context.Context, p *models.Product, strategy string) (*models.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add product: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.now()
	query := `
		INSERT INTO products (name, description, source, url, price, last_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + productColumns

	stored, err := scanProduct(tx.QueryRowContext(ctx, query,
		p.Name, p.Description, p.Source, p.URL, p.Price, now,
	))
	if err != nil {
		return nil, fmt.Errorf("add product: %w", err)
	}

	if stored.Price.Valid {
		if err := insertHistory(ctx, tx, stored.ID, stored.Price.Float64, strategy, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add product: %w", err)
	}
	return stored, nil
}

// List returns every product, oldest first.
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Get returns the product with id.
func (r *ProductRepository) Get(ctx context.Context, id int) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// UpdatePrice sets the product price, refreshes last_updated and appends the
// price to the history.
func (r *ProductRepository) UpdatePrice(ctx context.Context, id int, price float64, strategy string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update price: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.now()
	res, err := tx.ExecContext(ctx,
		`UPDATE products SET price = $2, last_updated = $3 WHERE id = $1`, id, price, now)
	if err != nil {
		return fmt.Errorf("update price of product %d: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if err := insertHistory(ctx, tx, id, price, strategy, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update price: %w", err)
	}
	return nil
}

// UpdateField sets a single editable field and refreshes last_updated.
func (r *ProductRepository) UpdateField(ctx context.Context, id int, field string, value any) error {
	column, ok := editableColumns[field]
	if !ok {
		return fmt.Errorf("field %q is not editable", field)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET `+column+` = $2, last_updated = $3 WHERE id = $1`, id, value, r.now())
	if err != nil {
		return fmt.Errorf("update %s of product %d: %w", field, id, err)
	}
	return requireRow(res)
}

// Delete removes a product and its history.
func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return requireRow(res)
}

// History returns the most recent prices of a product, newest first.
func (r *ProductRepository) History(ctx context.Context, id, limit int) ([]models.PriceHistory, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, price, strategy, checked_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY checked_at DESC, id DESC
		LIMIT $2`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("get price history: %w", err)
	}
	defer rows.Close()

	history := []models.PriceHistory{}
	for rows.Next() {
		var h models.PriceHistory
		if err := rows.Scan(&h.ID, &h.ProductID, &h.Price, &h.Strategy, &h.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get price history: %w", err)
	}
	return history, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, id int, price float64, strategy string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO price_history (product_id, price, strategy, checked_at) VALUES ($1, $2, $3, $4)`,
		id, price, strategy, at)
	if err != nil {
		return fmt.Errorf("add price history: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}
