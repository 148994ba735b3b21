package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/service"
)

// PayerHeader carries the paying wallet address.
const PayerHeader = "X-Payer"

// Dispatcher runs paid orders.
type Dispatcher interface {
	Dispatch(ctx context.Context, order domain.ServiceOrder) (domain.ServiceResult, error)
	Prices() service.Pricing
}

// ServiceHandler exposes the paid analysis services.
type ServiceHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewServiceHandler creates a ServiceHandler.
func NewServiceHandler(d Dispatcher, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{dispatcher: d, logger: logHandler(logger, "service")}
}

// ListServices returns the fee table.
// GET /api/services
func (h *ServiceHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	prices := h.dispatcher.Prices()
	out := make([]map[string]any, 0, len(domain.ServiceKinds))
	for _, k := range domain.ServiceKinds {
		if p, ok := prices[k]; ok {
			out = append(out, map[string]any{"kind": k, "price": p})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}

// Request charges the payer and runs the service named by {kind}. The
// payer comes from the X-Payer header or the payer query parameter.
// POST /api/services/{kind}
func (h *ServiceHandler) Request(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	req, err := service.DecodeRequest(r.PathValue("kind"), body)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	payer := strings.TrimSpace(r.Header.Get(PayerHeader))
	if payer == "" {
		payer = strings.TrimSpace(r.URL.Query().Get("payer"))
	}

	res, err := h.dispatcher.Dispatch(r.Context(), domain.ServiceOrder{Payer: payer, Request: req})
	if err != nil {
		if res.PaymentRef != "" {
			// Charged but evaluation failed; the caller needs the reference.
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":       err.Error(),
				"payment_ref": res.PaymentRef,
				"price":       res.Price,
			})
			return
		}
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
