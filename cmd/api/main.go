package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/dacardenas/tenis-store/internal/config"
	"github.com/dacardenas/tenis-store/internal/database"
	"github.com/dacardenas/tenis-store/internal/models"
	"github.com/dacardenas/tenis-store/internal/proofs"
	"github.com/dacardenas/tenis-store/internal/store"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	if err := cfg.Storage.Validate(); err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	s3Client, err := proofs.NewClient(context.Background(), cfg.Storage.Region)
	if err != nil {
		log.Fatalf("Build storage client: %v", err)
	}
	storage := proofs.NewStorage(s3Client, cfg.Storage.Bucket, cfg.Storage.Region)

	mux := http.NewServeMux()

	mux.HandleFunc("/products", handleProducts(db))
	mux.HandleFunc("/products/novelties", handleNovelties(db))
	mux.HandleFunc("/products/", handleProductByID(db))
	mux.HandleFunc("/variants", handleVariants(db))
	mux.HandleFunc("/variants/available", handleAvailableVariants(db))
	mux.HandleFunc("/variants/price-range", handleVariantsByPriceRange(db))
	mux.HandleFunc("/variants/discounted", handleDiscountedVariants(db))
	mux.HandleFunc("/variants/", handleVariantByID(db))
	mux.HandleFunc("/orders", handleOrders(db))
	mux.HandleFunc("/orders/", handleOrderByID(db))
	mux.HandleFunc("/proofs", handleProofs(storage))
	mux.HandleFunc("/proofs/status", handleProofStatus(storage))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func handleProducts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name  string  `json:"name"`
				Brand string  `json:"brand"`
				Price float64 `json:"price"`
				Stock int     `json:"stock"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			price := decimal.NewFromFloat(req.Price)
			product, err := store.CreateProduct(ctx, db, req.Name, req.Brand, price, req.Stock)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}

			respondJSON(w, http.StatusCreated, product)

		case http.MethodGet:
			var (
				products []models.Product
				err      error
			)
			if brand := r.URL.Query().Get("brand"); brand != "" {
				products, err = store.ListProductsByBrand(ctx, db, brand)
			} else {
				products, err = store.ListActiveProducts(ctx, db)
			}
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}

			respondJSON(w, http.StatusOK, products)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleNovelties(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit < 1 || limit > 50 {
			limit = 8
		}

		products, err := store.ListNovelties(r.Context(), db, limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, products)
	}
}

func handleProductByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		idStr := r.URL.Path[len("/products/"):]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		switch r.Method {
		case http.MethodGet:
			product, err := store.GetProduct(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, product)

		case http.MethodPatch, http.MethodPut:
			var req struct {
				Name   *string  `json:"name"`
				Brand  *string  `json:"brand"`
				Price  *float64 `json:"price"`
				Stock  *int     `json:"stock"`
				Active *bool    `json:"active"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			upd := models.ProductUpdate{
				Name:   req.Name,
				Brand:  req.Brand,
				Stock:  req.Stock,
				Active: req.Active,
			}
			if req.Price != nil {
				price := decimal.NewFromFloat(*req.Price)
				upd.Price = &price
			}

			product, err := store.UpdateProduct(ctx, db, id, upd)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, product)

		case http.MethodDelete:
			if err := store.DeleteProduct(ctx, db, id); err != nil {
				respondStoreError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleVariants(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				ProductID int64   `json:"product_id"`
				Size      string  `json:"size"`
				Price     float64 `json:"price"`
				Discount  float64 `json:"discount"`
				Stock     int     `json:"stock"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			variant, err := store.CreateVariant(ctx, db, req.ProductID, req.Size,
				decimal.NewFromFloat(req.Price), decimal.NewFromFloat(req.Discount), req.Stock)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}

			respondJSON(w, http.StatusCreated, variant)

		case http.MethodGet:
			productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Missing or invalid product_id")
				return
			}

			variants, err := store.ListVariantsByProduct(ctx, db, productID)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}

			respondJSON(w, http.StatusOK, variants)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleAvailableVariants(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Missing or invalid product_id")
			return
		}

		variants, err := store.ListAvailableVariants(r.Context(), db, productID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, variants)
	}
}

func handleVariantsByPriceRange(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		min, errMin := decimal.NewFromString(r.URL.Query().Get("min"))
		max, errMax := decimal.NewFromString(r.URL.Query().Get("max"))
		if errMin != nil || errMax != nil {
			respondError(w, http.StatusBadRequest, "Missing or invalid min/max")
			return
		}

		variants, err := store.ListVariantsByPriceRange(r.Context(), db, min, max)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, variants)
	}
}

func handleDiscountedVariants(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variants, err := store.ListDiscountedVariants(r.Context(), db)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, variants)
	}
}

func handleVariantByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rest := r.URL.Path[len("/variants/"):]
		idStr, sub, _ := strings.Cut(rest, "/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid variant ID")
			return
		}

		// PUT /variants/{id}/stock overwrites the stock count outright.
		if sub == "stock" {
			if r.Method != http.MethodPut {
				respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			var req struct {
				Stock int `json:"stock"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			if err := store.SetVariantStock(ctx, db, id, req.Stock); err != nil {
				respondStoreError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if sub != "" {
			respondError(w, http.StatusNotFound, "Not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			variant, err := store.GetVariant(ctx, db, id)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, variant)

		case http.MethodPatch, http.MethodPut:
			var req struct {
				Size     *string  `json:"size"`
				Price    *float64 `json:"price"`
				Discount *float64 `json:"discount"`
				Stock    *int     `json:"stock"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			upd := models.VariantUpdate{Size: req.Size, Stock: req.Stock}
			if req.Price != nil {
				price := decimal.NewFromFloat(*req.Price)
				upd.Price = &price
			}
			if req.Discount != nil {
				discount := decimal.NewFromFloat(*req.Discount)
				upd.Discount = &discount
			}

			variant, err := store.UpdateVariant(ctx, db, id, upd)
			if err != nil {
				respondStoreError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, variant)

		case http.MethodDelete:
			if err := store.DeleteVariant(ctx, db, id); err != nil {
				respondStoreError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleOrders(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				CustomerName  string `json:"customer_name"`
				CustomerEmail string `json:"customer_email"`
				CustomerPhone string `json:"customer_phone"`
				Address       string `json:"address"`
				PaymentMethod string `json:"payment_method"`
				ProofURL      string `json:"proof_url"`
				Items         []struct {
					ProductID int64 `json:"product_id"`
					Quantity  int   `json:"quantity"`
				} `json:"items"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			var items []store.OrderItemRequest
			for _, item := range req.Items {
				items = append(items, store.OrderItemRequest{
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
				})
			}

			order, err := store.CreateOrder(ctx, db, store.CreateOrderRequest{
				CustomerName:  req.CustomerName,
				CustomerEmail: req.CustomerEmail,
				CustomerPhone: req.CustomerPhone,
				Address:       req.Address,
				PaymentMethod: req.PaymentMethod,
				ProofURL:      req.ProofURL,
				Items:         items,
			})
			if err != nil {
				respondStoreError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, order)

		case http.MethodGet:
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			if limit < 1 || limit > 100 {
				limit = 20
			}

			result, err := store.ListOrdersCursor(ctx, db, r.URL.Query().Get("cursor"), limit)
			if err != nil {
				respondError(w, http.StatusInternalServerError, err.Error())
				return
			}

			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleOrderByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := r.URL.Path[len("/orders/"):]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}

		order, err := store.GetOrder(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, order)
	}
}

func handleProofs(storage *proofs.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			if err := r.ParseMultipartForm(proofs.MaxFileSize + (1 << 20)); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid multipart body")
				return
			}

			orderID, err := strconv.ParseInt(r.FormValue("order_id"), 10, 64)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Missing or invalid order_id")
				return
			}
			uploaderID := r.FormValue("uploader_id")
			if uploaderID == "" {
				respondError(w, http.StatusBadRequest, "Missing uploader_id")
				return
			}

			file, header, err := r.FormFile("file")
			if err != nil {
				respondError(w, http.StatusBadRequest, "Missing file")
				return
			}
			defer file.Close()

			contentType := header.Header.Get("Content-Type")
			if v := proofs.ValidateFile(header.Filename, contentType, header.Size); !v.Valid {
				respondJSON(w, http.StatusUnprocessableEntity, v)
				return
			}

			url, err := storage.Upload(ctx, uploaderID, orderID, header.Filename, contentType, file)
			if err != nil {
				respondStorageError(w, err)
				return
			}

			respondJSON(w, http.StatusCreated, map[string]string{"url": url})

		case http.MethodDelete:
			proofURL := r.URL.Query().Get("url")
			if proofURL == "" {
				respondError(w, http.StatusBadRequest, "Missing url")
				return
			}

			if err := storage.Delete(ctx, proofURL); err != nil {
				if errors.Is(err, proofs.ErrUnrecognizedURL) {
					respondError(w, http.StatusBadRequest, err.Error())
					return
				}
				respondStorageError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleProofStatus(storage *proofs.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		availability, err := storage.Probe(r.Context())
		if err != nil {
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"storage": availability.String()})
	}
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrVariantNotFound),
		errors.Is(err, database.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInsufficientStock):
		respondError(w, http.StatusConflict, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, proofs.ErrStorageUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, proofs.ErrStorageForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
