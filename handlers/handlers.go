package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"pricefinder/logger"
	"pricefinder/models"
	"pricefinder/repository"
	"pricefinder/scraper"
	"pricefinder/services"
)

const (
	serviceName         = "pricefinder"
	defaultHistoryLimit = 50
)

// ProductService is the set of product operations the API exposes.
type ProductService interface {
	AddProduct(ctx context.Context, req models.AddProductRequest) (*models.AddProductResponse, error)
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id int) (*models.Product, error)
	Delete(ctx context.Context, id int) error
	History(ctx context.Context, id, limit int) ([]models.PriceHistory, error)
	EditProduct(ctx context.Context, id int, req models.EditProductRequest) (*models.Product, error)
	RefreshProduct(ctx context.Context, id int) (models.RefreshResult, error)
	Refresh(ctx context.Context, ids []int) (*models.RefreshSummary, error)
	Extract(ctx context.Context, req models.ExtractRequest) (scraper.Resolution, error)
}

// TaskQueue runs bulk refreshes in the background.
type TaskQueue interface {
	Submit(ids []int) (models.RefreshTask, error)
	Get(id string) (models.RefreshTask, bool)
	Stats() models.TaskStats
}

// Handlers serves the product API.
type Handlers struct {
	products ProductService
	tasks    TaskQueue
	log      logger.Logger
}

// NewHandlers creates the API handlers.
func NewHandlers(products ProductService, tasks TaskQueue, log logger.Logger) *Handlers {
	return &Handlers{products: products, tasks: tasks, log: log}
}

// RegisterRoutes mounts the health check and the /api/v1 routes on r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/products", h.AddProduct).Methods(http.MethodPost)
	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/refresh", h.RefreshProducts).Methods(http.MethodPost)
	api.HandleFunc("/products/refresh-async", h.RefreshProductsAsync).Methods(http.MethodPost)
	api.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", h.EditProduct).Methods(http.MethodPatch)
	api.HandleFunc("/products/{id:[0-9]+}", h.DeleteProduct).Methods(http.MethodDelete)
	api.HandleFunc("/products/{id:[0-9]+}/refresh", h.RefreshProduct).Methods(http.MethodPost)
	api.HandleFunc("/products/{id:[0-9]+}/history", h.GetPriceHistory).Methods(http.MethodGet)
	api.HandleFunc("/extract", h.Extract).Methods(http.MethodPost)
	api.HandleFunc("/tasks/stats", h.GetTaskStats).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskId}", h.GetTaskStatus).Methods(http.MethodGet)
}

// HealthCheck returns a simple health check response.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   serviceName,
	})
}

// AddProduct adds a product and resolves its first price.
func (h *Handlers) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req models.AddProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.products.AddProduct(r.Context(), req)
	if err != nil {
		h.fail(w, err, "Failed to add product")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListProducts returns all products.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to list products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct returns one product.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Failed to get product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// EditProduct changes one field of a product.
func (h *Handlers) EditProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req models.EditProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.products.EditProduct(r.Context(), id, req)
	if err != nil {
		h.fail(w, err, "Failed to edit product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product and its history.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		h.fail(w, err, "Failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

// RefreshProduct resolves the current price of one product.
func (h *Handlers) RefreshProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	result, err := h.products.RefreshProduct(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Failed to refresh product")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RefreshProducts resolves the current price of the selected products, or of
// all products when the body is empty or lists no ids.
func (h *Handlers) RefreshProducts(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRefresh(w, r)
	if !ok {
		return
	}

	summary, err := h.products.Refresh(r.Context(), req.IDs)
	if err != nil {
		h.fail(w, err, "Failed to refresh products")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// RefreshProductsAsync queues a bulk refresh and returns the task.
func (h *Handlers) RefreshProductsAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRefresh(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.Submit(req.IDs)
	if err != nil {
		h.log.Warn("Failed to queue refresh", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Refresh queue is full")
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

// GetTaskStatus returns the state of a refresh task.
func (h *Handlers) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := h.tasks.Get(mux.Vars(r)["taskId"])
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// GetTaskStats returns refresh task counts.
func (h *Handlers) GetTaskStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.tasks.Stats())
}

// GetPriceHistory returns recent prices of a product.
func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}

	history, err := h.products.History(r.Context(), id, limit)
	if err != nil {
		h.fail(w, err, "Failed to get price history")
		return
	}
	if history == nil {
		history = []models.PriceHistory{}
	}
	writeJSON(w, http.StatusOK, history)
}

// Extract resolves a price for a url or supplied html without storing it.
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	var req models.ExtractRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.products.Extract(r.Context(), req)
	if err != nil {
		h.fail(w, err, "Failed to extract price")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeRefresh accepts an empty body as a refresh of every product.
func decodeRefresh(w http.ResponseWriter, r *http.Request) (models.RefreshRequest, bool) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	return req, true
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// fail maps service errors to status codes. Unexpected errors are logged and
// reported with msg only.
func (h *Handlers) fail(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	default:
		h.log.Error(msg, logger.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
