package order_api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mango-store/internal/apperr"
	"mango-store/internal/auth"
	"mango-store/internal/logger"
	"mango-store/internal/models"
	"mango-store/internal/order"
	"mango-store/internal/utils"

	"github.com/go-chi/chi/v5"
)

// maxSlipBytes caps the uploaded payment slip; slips are stored inline.
const maxSlipBytes = 5 << 20

type Handler struct {
	OrderService *order.OrderService
	Logger       *logger.Logger
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

// readSlip pulls the optional payment_slip file out of a multipart form.
// A missing file is not an error; checkout without a slip is the
// pay-later path.
func (h *Handler) readSlip(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxSlipBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperr.InvalidInput("invalid multipart form: %v", err)
	}

	file, _, err := r.FormFile("payment_slip")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.InvalidInput("invalid payment_slip upload: %v", err)
	}
	defer file.Close()

	slip, err := io.ReadAll(io.LimitReader(file, maxSlipBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read payment slip: %w", err)
	}
	if len(slip) > maxSlipBytes {
		return nil, apperr.InvalidInput("payment slip exceeds %d bytes", maxSlipBytes)
	}
	return slip, nil
}

// Checkout converts the caller's cart into orders. Accepts an optional
// payment_slip multipart file for the pay-now path.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	slip, err := h.readSlip(r)
	if err != nil {
		h.respondError(w, "Checkout", err)
		return
	}

	resp, err := h.OrderService.Checkout(r.Context(), id, slip)
	if err != nil {
		h.respondError(w, "Checkout", err)
		return
	}
	h.respondJSON(w, http.StatusCreated, resp)
}

// UploadSlip attaches a payment slip to a pending order, splitting a
// multi-vendor order into per-vendor paid orders.
func (h *Handler) UploadSlip(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	slip, err := h.readSlip(r)
	if err != nil {
		h.respondError(w, "UploadSlip", err)
		return
	}

	resp, err := h.OrderService.UploadSlip(r.Context(), id, orderID, slip)
	if err != nil {
		h.respondError(w, "UploadSlip", err)
		return
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) QRPayments(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	payments, err := h.OrderService.QRPayments(r.Context(), id, orderID)
	if err != nil {
		h.respondError(w, "QRPayments", err)
		return
	}
	h.respondJSON(w, http.StatusOK, payments)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	orderModel, err := h.OrderService.Get(r.Context(), id, orderID)
	if err != nil {
		h.respondError(w, "GetOrder", err)
		return
	}
	h.respondJSON(w, http.StatusOK, orderModel)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	orderModel, err := h.OrderService.Cancel(r.Context(), id, orderID)
	if err != nil {
		h.respondError(w, "Cancel", err)
		return
	}
	h.respondJSON(w, http.StatusOK, utils.SuccessResponse("order cancelled, stock restored", orderModel))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	orderModel, err := h.OrderService.UpdateStatus(r.Context(), id, orderID, req.Status)
	if err != nil {
		h.respondError(w, "UpdateStatus", err)
		return
	}
	h.respondJSON(w, http.StatusOK, orderModel)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	orders, err := h.OrderService.ListMine(r.Context(), id)
	if err != nil {
		h.respondError(w, "ListMine", err)
		return
	}
	h.respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) ListVendorOrders(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	orders, err := h.OrderService.ListForVendor(r.Context(), id)
	if err != nil {
		h.respondError(w, "ListVendorOrders", err)
		return
	}
	h.respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	orders, err := h.OrderService.ListAll(r.Context(), id)
	if err != nil {
		h.respondError(w, "ListAllOrders", err)
		return
	}
	h.respondJSON(w, http.StatusOK, orders)
}
