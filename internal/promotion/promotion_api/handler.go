package promotion_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mango-store/internal/apperr"
	"mango-store/internal/auth"
	"mango-store/internal/logger"
	"mango-store/internal/models"
	"mango-store/internal/promotion"
	"mango-store/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	PromotionService *promotion.PromotionService
	Logger           *logger.Logger
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

// ---------------- PROMOTIONS ----------------

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.PromotionService.List(r.Context())
	if err != nil {
		h.respondError(w, "List", err)
		return
	}
	h.respondJSON(w, http.StatusOK, promotions)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	promotionID := chi.URLParam(r, "promotionId")

	p, err := h.PromotionService.Get(r.Context(), promotionID)
	if err != nil {
		h.respondError(w, "Get", err)
		return
	}
	h.respondJSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	var p models.Promotion
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.PromotionService.Create(r.Context(), id, &p)
	if err != nil {
		h.respondError(w, "Create", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	promotionID := chi.URLParam(r, "promotionId")

	var p models.Promotion
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.PromotionService.Update(r.Context(), id, promotionID, &p)
	if err != nil {
		h.respondError(w, "Update", err)
		return
	}
	h.respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	promotionID := chi.URLParam(r, "promotionId")

	if err := h.PromotionService.Delete(r.Context(), id, promotionID); err != nil {
		h.respondError(w, "Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- PROMOTION TYPES ----------------

func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.PromotionService.ListTypes(r.Context())
	if err != nil {
		h.respondError(w, "ListTypes", err)
		return
	}
	h.respondJSON(w, http.StatusOK, types)
}

func (h *Handler) GetType(w http.ResponseWriter, r *http.Request) {
	typeID := chi.URLParam(r, "typeId")

	t, err := h.PromotionService.GetType(r.Context(), typeID)
	if err != nil {
		h.respondError(w, "GetType", err)
		return
	}
	h.respondJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	var t models.PromotionType
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.PromotionService.CreateType(r.Context(), id, &t)
	if err != nil {
		h.respondError(w, "CreateType", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateType(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	typeID := chi.URLParam(r, "typeId")

	var t models.PromotionType
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.PromotionService.UpdateType(r.Context(), id, typeID, &t)
	if err != nil {
		h.respondError(w, "UpdateType", err)
		return
	}
	h.respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteType(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	typeID := chi.URLParam(r, "typeId")

	if err := h.PromotionService.DeleteType(r.Context(), id, typeID); err != nil {
		h.respondError(w, "DeleteType", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
