package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/hodl-ledger/internal/api/httpx"
	"github.com/baharkarakas/hodl-ledger/internal/api/validate"
	"github.com/baharkarakas/hodl-ledger/internal/services"
)

type AccountHandler struct {
	Svc *services.ScoreService
}

func NewAccountHandler(svc *services.ScoreService) *AccountHandler {
	return &AccountHandler{Svc: svc}
}

type metricResp struct {
	Account string          `json:"account"`
	At      int64           `json:"at"`
	Metric  decimal.Decimal `json:"metric"`
}

type ratioResp struct {
	Account string `json:"account"`
	Against string `json:"against"`
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Ratio   string `json:"ratio"` // exactly RatioPrecision fractional digits
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r, 50, 500)
	accts, err := h.Svc.Accounts(r.Context(), limit, offset)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, accts)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.Svc.Account(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *AccountHandler) Checkpoints(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r, 100, 1000)
	cps, err := h.Svc.Checkpoints(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cps)
}

func (h *AccountHandler) Metric(w http.ResponseWriter, r *http.Request) {
	at, ferr := httpx.Int64Param(r, "at")
	if ferr != nil {
		httpx.WriteErr(w, validate.Errs{*ferr})
		return
	}
	id := chi.URLParam(r, "id")
	m, err := h.Svc.MetricAt(r.Context(), id, at)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, metricResp{Account: id, At: at, Metric: m})
}

func (h *AccountHandler) Ratio(w http.ResponseWriter, r *http.Request) {
	var errs validate.Errs
	start, ferr := httpx.Int64Param(r, "start")
	errs.Add(ferr)
	end, ferr := httpx.Int64Param(r, "end")
	errs.Add(ferr)
	if len(errs) > 0 {
		httpx.WriteErr(w, errs)
		return
	}

	id := chi.URLParam(r, "id")
	against := r.URL.Query().Get("against")
	ratio, err := h.Svc.Ratio(r.Context(), id, against, start, end)
	if err != nil {
		httpx.WriteErr(w, err)
		return
	}
	if against == "" {
		against = h.Svc.Params().Sentinel
	}
	httpx.WriteJSON(w, http.StatusOK, ratioResp{Account: id, Against: against, Start: start, End: end,
		Ratio: ratio.StringFixed(h.Svc.Params().RatioPrecision)})
}
