package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/hodl-ledger/internal/api/httpx"
	"github.com/baharkarakas/hodl-ledger/internal/api/validate"
	"github.com/baharkarakas/hodl-ledger/internal/models"
	"github.com/baharkarakas/hodl-ledger/internal/services"
)

type TransferHandler struct {
	Svc *services.TransferService
}

func NewTransferHandler(svc *services.TransferService) *TransferHandler {
	return &TransferHandler{Svc: svc}
}

type transferReq struct {
	ID        string          `json:"id,omitempty"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp int64           `json:"timestamp"`
}

// Create queues a transfer for the ledger and answers 202 with its record.
// The Idempotency-Key header, when present, becomes the transfer id.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transferReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", err.Error())
		return
	}
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" {
		if req.ID != "" && req.ID != key {
			httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid input",
				validate.Errs{{Field: "id", Msg: "does not match Idempotency-Key"}})
			return
		}
		req.ID = key
	}

	t, err := h.Svc.Submit(r.Context(), models.Transfer{
		ID:        req.ID,
		From:      req.From,
		To:        req.To,
		Amount:    req.Amount,
		Timestamp: req.Timestamp,
	})
	if errors.Is(err, services.ErrShuttingDown) {
		httpx.WriteError(w, http.StatusServiceUnavailable, "shutting_down", err.Error(), nil)
		return
	}
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, t)
}

func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		httpx.WriteErr(w, validate.Errs{{Field: "account", Msg: "required"}})
		return
	}
	limit, offset := httpx.Page(r, 50, 500)
	txs, err := h.Svc.ListByAccount(r.Context(), account, limit, offset)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, txs)
}
