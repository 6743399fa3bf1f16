package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"pricefinder/logger"
	"pricefinder/models"
	"pricefinder/scraper"
)

// StrategyManual labels prices entered by a user.
const StrategyManual = "manual"

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid input")

// ProductStore persists products and their price history.
type ProductStore interface {
	Add(ctx context.Context, p *models.Product, strategy string) (*models.Product, error)
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id int) (*models.Product, error)
	UpdatePrice(ctx context.Context, id int, price float64, strategy string) error
	UpdateField(ctx context.Context, id int, field string, value any) error
	Delete(ctx context.Context, id int) error
	History(ctx context.Context, id, limit int) ([]models.PriceHistory, error)
}

// PriceResolver resolves product prices from pages.
type PriceResolver interface {
	ResolveURL(ctx context.Context, url, productName string) scraper.Resolution
	ResolveHTML(ctx context.Context, url, html, productName string) scraper.Resolution
	ValidateURL(ctx context.Context, url string) error
}

// RefreshObserver is told about completed refresh runs.
type RefreshObserver interface {
	ObserveRefresh(updated int)
}

// ProductService implements the product operations on top of a store and a
// price resolver.
type ProductService struct {
	store    ProductStore
	resolver PriceResolver
	observer RefreshObserver
	log      logger.Logger

	// refreshMu keeps refresh runs from overlapping; pages are processed one
	// at a time.
	refreshMu sync.Mutex
}

// NewProductService creates a product service. observer may be nil.
func NewProductService(store ProductStore, resolver PriceResolver, observer RefreshObserver, log logger.Logger) *ProductService {
	return &ProductService{store: store, resolver: resolver, observer: observer, log: log}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// AddProduct resolves the price of a new product and stores it. When no price
// is found the caller's manual price is used; without one the product is
// stored without a price and reported as manual_required.
func (s *ProductService) AddProduct(ctx context.Context, req models.AddProductRequest) (*models.AddProductResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	product := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Source:      strings.TrimSpace(req.Source),
		URL:         strings.TrimSpace(req.URL),
	}

	res := s.resolver.ResolveURL(ctx, product.URL, product.Name)

	var status, strategy string
	switch {
	case res.Resolved:
		product.Price = sql.NullFloat64{Float64: res.Price, Valid: true}
		status, strategy = models.PriceStatusResolved, res.Strategy
	case req.Price != nil:
		product.Price = sql.NullFloat64{Float64: *req.Price, Valid: true}
		status, strategy = models.PriceStatusManual, StrategyManual
	default:
		status = models.PriceStatusManualRequired
	}

	stored, err := s.store.Add(ctx, product, strategy)
	if err != nil {
		return nil, err
	}

	s.log.Info("Product added",
		logger.Int("product_id", stored.ID),
		logger.String("name", stored.Name),
		logger.String("price_status", status),
	)
	return &models.AddProductResponse{Product: stored, PriceStatus: status, Strategy: strategy}, nil
}

// List returns all products.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.store.List(ctx)
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, id int) (*models.Product, error) {
	return s.store.Get(ctx, id)
}

// Delete removes a product.
func (s *ProductService) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Product deleted", logger.Int("product_id", id))
	return nil
}

// History returns recent prices of a product.
func (s *ProductService) History(ctx context.Context, id, limit int) ([]models.PriceHistory, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.History(ctx, id, limit)
}

// EditProduct changes a single field. A new url must load in a rendering
// session; a new price must be a non-negative number.
func (s *ProductService) EditProduct(ctx context.Context, id int, req models.EditProductRequest) (*models.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(req.Value)
	var value any = trimmed
	switch req.Field {
	case models.FieldURL:
		if err := s.resolver.ValidateURL(ctx, trimmed); err != nil {
			return nil, invalid(fmt.Errorf("url cannot be loaded: %w", err))
		}
	case models.FieldPrice:
		price, err := req.PriceValue()
		if err != nil {
			return nil, invalid(err)
		}
		value = price
	}

	if err := s.store.UpdateField(ctx, id, req.Field, value); err != nil {
		return nil, err
	}
	s.log.Info("Product edited", logger.Int("product_id", id), logger.String("field", req.Field))
	return s.store.Get(ctx, id)
}

// RefreshProduct resolves the current price of one product.
func (s *ProductService) RefreshProduct(ctx context.Context, id int) (models.RefreshResult, error) {
	product, err := s.store.Get(ctx, id)
	if err != nil {
		return models.RefreshResult{}, err
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refresh(ctx, product)
}

// Refresh resolves the current price of the selected products, or of every
// product when ids is empty. Unknown ids fail the call before any page is
// loaded.
func (s *ProductService) Refresh(ctx context.Context, ids []int) (*models.RefreshSummary, error) {
	products, err := s.selectProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	summary := &models.RefreshSummary{Total: len(products), Results: make([]models.RefreshResult, 0, len(products))}
	for i := range products {
		if ctx.Err() != nil {
			s.log.Warn("Refresh cancelled", logger.Int("remaining", len(products)-i))
			break
		}
		result, err := s.refresh(ctx, &products[i])
		if err != nil {
			s.log.Error("Failed to store refreshed price",
				logger.Int("product_id", products[i].ID),
				logger.Error(err),
			)
		}
		if result.Updated {
			summary.Updated++
		}
		summary.Results = append(summary.Results, result)
	}

	if s.observer != nil {
		s.observer.ObserveRefresh(summary.Updated)
	}
	s.log.Info("Refresh finished", logger.Int("updated", summary.Updated), logger.Int("total", summary.Total))
	return summary, nil
}

func (s *ProductService) selectProducts(ctx context.Context, ids []int) ([]models.Product, error) {
	if len(ids) == 0 {
		return s.store.List(ctx)
	}

	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", id, err)
		}
		products = append(products, *p)
	}
	return products, nil
}

// refresh keeps the stored price when the page yields none.
func (s *ProductService) refresh(ctx context.Context, product *models.Product) (models.RefreshResult, error) {
	result := models.RefreshResult{ProductID: product.ID, Name: product.Name}

	res := s.resolver.ResolveURL(ctx, product.URL, product.Name)
	result.Strategy = res.Strategy
	if !res.Resolved {
		s.log.Info("Price not found, keeping existing price", logger.Int("product_id", product.ID))
		return result, nil
	}

	if err := s.store.UpdatePrice(ctx, product.ID, res.Price, res.Strategy); err != nil {
		return result, err
	}

	price := res.Price
	result.Updated = true
	result.Price = &price
	s.log.Info("Price updated",
		logger.Int("product_id", product.ID),
		logger.Float64("price", price),
		logger.String("strategy", res.Strategy),
	)
	return result, nil
}

// Extract resolves a price without storing anything. Supplied HTML is used
// as is; otherwise the url is loaded.
func (s *ProductService) Extract(ctx context.Context, req models.ExtractRequest) (scraper.Resolution, error) {
	if strings.TrimSpace(req.URL) == "" && strings.TrimSpace(req.HTML) == "" {
		return scraper.Resolution{}, invalid(errors.New("url or html is required"))
	}
	if req.HTML != "" {
		return s.resolver.ResolveHTML(ctx, req.URL, req.HTML, req.ProductName), nil
	}
	return s.resolver.ResolveURL(ctx, req.URL, req.ProductName), nil
}
