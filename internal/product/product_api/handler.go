package product_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mango-store/internal/apperr"
	"mango-store/internal/auth"
	"mango-store/internal/logger"
	"mango-store/internal/models"
	"mango-store/internal/product"
	"mango-store/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ProductService *product.ProductService
	Logger         *logger.Logger
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	status := apperr.HTTPStatus(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		detail = "internal server error"
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(utils.ErrorResponse(http.StatusText(status), detail))
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode response: %v", err))
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.ProductService.List(r.Context())
	if err != nil {
		h.respondError(w, "List", err)
		return
	}
	h.respondJSON(w, http.StatusOK, products)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	products, err := h.ProductService.ListMine(r.Context(), id)
	if err != nil {
		h.respondError(w, "ListMine", err)
		return
	}
	h.respondJSON(w, http.StatusOK, products)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	p, err := h.ProductService.Get(r.Context(), productID)
	if err != nil {
		h.respondError(w, "Get", err)
		return
	}
	h.respondJSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.ProductService.Create(r.Context(), id, &p)
	if err != nil {
		h.respondError(w, "Create", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	productID := chi.URLParam(r, "productId")

	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.ProductService.Update(r.Context(), id, productID, &p)
	if err != nil {
		h.respondError(w, "Update", err)
		return
	}
	h.respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	productID := chi.URLParam(r, "productId")

	if err := h.ProductService.Delete(r.Context(), id, productID); err != nil {
		h.respondError(w, "Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
