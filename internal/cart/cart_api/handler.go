package cart_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mango-store/internal/apperr"
	"mango-store/internal/auth"
	"mango-store/internal/cart"
	"mango-store/internal/logger"
	"mango-store/internal/models"
	"mango-store/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	CartService *cart.CartService
	Logger      *logger.Logger
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

func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, cartModel *models.Cart, token string, status int) {
	view, err := h.CartService.View(r.Context(), cartModel, token)
	if err != nil {
		h.respondError(w, "respondCart", err)
		return
	}

	if token != "" {
		// Anonymous shoppers echo this back as their bearer credential.
		w.Header().Set("X-Cart-Token", token)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(view); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode cart response: %v", err))
	}
}

// GetCart returns the caller's cart, creating it lazily on first access.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	cartModel, token, err := h.CartService.GetOrCreate(r.Context(), id)
	if err != nil {
		h.respondError(w, "GetCart", err)
		return
	}

	h.respondCart(w, r, cartModel, token, http.StatusOK)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	var req models.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cartModel, token, err := h.CartService.AddItem(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "AddItem", err)
		return
	}

	h.respondCart(w, r, cartModel, token, http.StatusOK)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	itemID := chi.URLParam(r, "itemId")

	var req models.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cartModel, token, err := h.CartService.UpdateItem(r.Context(), id, itemID, req)
	if err != nil {
		h.respondError(w, "UpdateItem", err)
		return
	}

	h.respondCart(w, r, cartModel, token, http.StatusOK)
}

// ListAllCarts is the admin view of every open cart.
func (h *Handler) ListAllCarts(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	carts, err := h.CartService.ListAll(r.Context(), id)
	if err != nil {
		h.respondError(w, "ListAllCarts", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(carts); err != nil {
		h.Logger.Error("API", fmt.Sprintf("failed to encode carts response: %v", err))
	}
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	itemID := chi.URLParam(r, "itemId")

	cartModel, err := h.CartService.RemoveItem(r.Context(), id, itemID)
	if err != nil {
		h.respondError(w, "RemoveItem", err)
		return
	}

	h.respondCart(w, r, cartModel, "", http.StatusOK)
}
