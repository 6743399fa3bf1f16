package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricefinder/models"
)

var fixedNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (*ProductRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewProductRepository(db)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "source", "url", "price", "last_updated", "created_at"})
}

func TestAddWithPriceRecordsHistory(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("Kettle", "Steel", "Shop", "https://shop.test/k", 39.0, fixedNow).
		WillReturnRows(productRows().AddRow(1, "Kettle", "Steel", "Shop", "https://shop.test/k", 39.0, fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_history")).
		WithArgs(1, 39.0, "selector", fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	p, err := repo.Add(context.Background(), &models.Product{
		Name: "Kettle", Description: "Steel", Source: "Shop", URL: "https://shop.test/k",
		Price: sql.NullFloat64{Float64: 39, Valid: true},
	}, "selector")

	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
	assert.True(t, p.HasPrice())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddWithoutPriceSkipsHistory(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("Kettle", "", "", "https://shop.test/k", nil, fixedNow).
		WillReturnRows(productRows().AddRow(2, "Kettle", "", "", "https://shop.test/k", nil, fixedNow, fixedNow))
	mock.ExpectCommit()

	p, err := repo.Add(context.Background(), &models.Product{Name: "Kettle", URL: "https://shop.test/k"}, "")

	require.NoError(t, err)
	assert.False(t, p.HasPrice())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).WillReturnError(errors.New("duplicate"))
	mock.ExpectRollback()

	_, err := repo.Add(context.Background(), &models.Product{Name: "Kettle", URL: "u"}, "")

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products ORDER BY id")).
		WillReturnRows(productRows().
			AddRow(1, "Kettle", "", "Shop", "https://shop.test/k", 39.0, fixedNow, fixedNow).
			AddRow(2, "Toaster", "", "Shop", "https://shop.test/t", nil, fixedNow, fixedNow))

	products, err := repo.List(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.InDelta(t, 39, products[0].Price.Float64, 0)
	assert.False(t, products[1].HasPrice())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = $1")).
		WithArgs(7).
		WillReturnRows(productRows())

	_, err := repo.Get(context.Background(), 7)

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePrice(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET price = $2, last_updated = $3 WHERE id = $1")).
		WithArgs(3, 12.5, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_history")).
		WithArgs(3, 12.5, "semantic", fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdatePrice(context.Background(), 3, 12.5, "semantic"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePriceMissingProduct(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET price")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdatePrice(context.Background(), 3, 12.5, "semantic")

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateField(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET description = $2, last_updated = $3 WHERE id = $1")).
		WithArgs(4, "Brushed steel", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateField(context.Background(), 4, models.FieldDescription, "Brushed steel"))
	assert.Error(t, repo.UpdateField(context.Background(), 4, "id", 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = $1")).
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.ErrorIs(t, repo.Delete(context.Background(), 6), ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM price_history")).
		WithArgs(1, defaultHistoryLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "price", "strategy", "checked_at"}).
			AddRow(2, 1, 37.5, "selector", fixedNow).
			AddRow(1, 1, 39.0, "manual", fixedNow.Add(-time.Hour)))

	history, err := repo.History(context.Background(), 1, 0)

	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.InDelta(t, 37.5, history[0].Price, 0)
	assert.Equal(t, "manual", history[1].Strategy)
	assert.NoError(t, mock.ExpectationsWereMet())
}
