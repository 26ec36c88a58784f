package http

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/XVM-Systems/RAIL/internal/application/port"
	"github.com/XVM-Systems/RAIL/internal/domain"
	"github.com/XVM-Systems/RAIL/internal/pkg/apperrors"
)

// RPCHandler exposes the RPC pool service over HTTP.
type RPCHandler struct {
	service port.RPCService
	logger  *zap.Logger
}

// NewRPCHandler creates a new handler around the given service.
func NewRPCHandler(service port.RPCService, logger *zap.Logger) *RPCHandler {
	return &RPCHandler{
		service: service,
		logger:  logger.Named("RPCHandler"),
	}
}

// endpointRequest is the body for set-primary and add-backup calls.
type endpointRequest struct {
	URL string `json:"url"`
}

// keyRequest is the body for storing an API key.
type keyRequest struct {
	Key string `json:"key"`
}

// SetPrimary handles PUT /chains/{chainId}/rpc.
func (h *RPCHandler) SetPrimary(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}

	var body endpointRequest
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil || body.URL == "" {
		ctx.Error(`{"error":"body must be {\"url\":\"...\"}"}`, fasthttp.StatusBadRequest)
		return
	}

	result, err := h.service.SetPrimary(ctx, chainID, body.URL)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, result)
}

// AddBackup handles POST /chains/{chainId}/rpc/backups.
func (h *RPCHandler) AddBackup(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}

	var body endpointRequest
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil || body.URL == "" {
		ctx.Error(`{"error":"body must be {\"url\":\"...\"}"}`, fasthttp.StatusBadRequest)
		return
	}

	pool, err := h.service.AddBackup(ctx, chainID, body.URL)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, pool)
}

// Rotate handles POST /chains/{chainId}/rpc/rotate.
func (h *RPCHandler) Rotate(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}

	pool, err := h.service.Rotate(ctx, chainID)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, pool)
}

// Delete handles DELETE /chains/{chainId}/rpc.
func (h *RPCHandler) Delete(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, chainID); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// List handles GET /rpcs.
func (h *RPCHandler) List(ctx *fasthttp.RequestCtx) {
	h.writeJSON(ctx, fasthttp.StatusOK, h.service.List(ctx))
}

// Report handles GET /chains/{chainId}/rpc/health.
func (h *RPCHandler) Report(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}

	report, err := h.service.Report(ctx, chainID)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	type memberStatus struct {
		URL       string `json:"url"`
		OK        bool   `json:"ok"`
		LatencyMs int64  `json:"latencyMs"`
		Kind      string `json:"kind,omitempty"`
	}
	statuses := make([]memberStatus, len(report))
	for i, member := range report {
		statuses[i] = memberStatus{
			URL:       member.Endpoint.URL.String(),
			OK:        member.Result.OK,
			LatencyMs: member.Result.Latency.Milliseconds(),
			Kind:      string(member.Result.Kind),
		}
	}
	h.writeJSON(ctx, fasthttp.StatusOK, statuses)
}

// Candidates handles GET /chains/{chainId}/rpc/candidates.
func (h *RPCHandler) Candidates(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}

	candidates, err := h.service.GetCandidates(ctx, chainID)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, candidates)
}

// NativeBalance handles GET /chains/{chainId}/balance/{address}.
func (h *RPCHandler) NativeBalance(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}
	address, _ := ctx.UserValue("address").(string)

	result, err := h.service.GetNativeBalance(ctx, chainID, address)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, result)
}

// TokenBalance handles GET /chains/{chainId}/tokens/{token}/balance/{holder}.
func (h *RPCHandler) TokenBalance(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}
	token, _ := ctx.UserValue("token").(string)
	holder, _ := ctx.UserValue("holder").(string)

	result, err := h.service.GetTokenBalance(ctx, chainID, token, holder)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, result)
}

// TokenInfo handles GET /chains/{chainId}/tokens/{token}.
func (h *RPCHandler) TokenInfo(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}
	token, _ := ctx.UserValue("token").(string)

	info, err := h.service.GetTokenInfo(ctx, chainID, token)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, info)
}

// ContractSource handles GET /chains/{chainId}/contracts/{address}/source.
func (h *RPCHandler) ContractSource(ctx *fasthttp.RequestCtx) {
	chainID, ok := h.chainID(ctx)
	if !ok {
		return
	}
	address, _ := ctx.UserValue("address").(string)

	source, err := h.service.GetContractSource(ctx, chainID, address)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, source)
}

// SetAPIKey handles PUT /keys/{service}.
func (h *RPCHandler) SetAPIKey(ctx *fasthttp.RequestCtx) {
	service, _ := ctx.UserValue("service").(string)

	var body keyRequest
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil || body.Key == "" {
		ctx.Error(`{"error":"body must be {\"key\":\"...\"}"}`, fasthttp.StatusBadRequest)
		return
	}

	if err := h.service.SetAPIKey(ctx, service, body.Key); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// DeleteAPIKey handles DELETE /keys/{service}.
func (h *RPCHandler) DeleteAPIKey(ctx *fasthttp.RequestCtx) {
	service, _ := ctx.UserValue("service").(string)

	if err := h.service.DeleteAPIKey(ctx, service); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// ListAPIKeys handles GET /keys.
func (h *RPCHandler) ListAPIKeys(ctx *fasthttp.RequestCtx) {
	h.writeJSON(ctx, fasthttp.StatusOK, h.service.ListAPIKeys(ctx))
}

// chainID parses the {chainId} route value; on failure it writes a 400.
func (h *RPCHandler) chainID(ctx *fasthttp.RequestCtx) (int64, bool) {
	raw, _ := ctx.UserValue("chainId").(string)
	chainID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || chainID <= 0 {
		ctx.Error(`{"error":"chainId must be a positive integer"}`, fasthttp.StatusBadRequest)
		return 0, false
	}
	return chainID, true
}

func (h *RPCHandler) writeJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// errorBody is the uniform error payload.
type errorBody struct {
	Error    string                  `json:"error"`
	Attempts []domain.AttemptFailure `json:"attempts,omitempty"`
}

// writeError maps tagged errors onto HTTP status codes.
func (h *RPCHandler) writeError(ctx *fasthttp.RequestCtx, err error) {
	status := fasthttp.StatusInternalServerError
	body := errorBody{Error: err.Error()}

	var allFailed *domain.AllEndpointsFailedError

	switch {
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, domain.ErrInvalidEndpointURL):
		status = fasthttp.StatusBadRequest
	case errors.Is(err, domain.ErrNoRPCConfigured),
		errors.Is(err, domain.ErrChainNotFound),
		errors.Is(err, domain.ErrAPIKeyNotFound),
		errors.Is(err, domain.ErrSourceNotFound),
		errors.Is(err, apperrors.ErrNotFound):
		status = fasthttp.StatusNotFound
	case errors.Is(err, domain.ErrNoPrimaryConfigured),
		errors.Is(err, domain.ErrNoBackupsAvailable),
		errors.Is(err, domain.ErrDuplicateEndpoint),
		errors.Is(err, domain.ErrPoolFull):
		status = fasthttp.StatusConflict
	case errors.Is(err, apperrors.ErrUnreachable),
		errors.Is(err, apperrors.ErrTimeout),
		errors.Is(err, apperrors.ErrChainMismatch),
		errors.Is(err, apperrors.ErrMalformedResponse):
		status = fasthttp.StatusUnprocessableEntity
	case errors.As(err, &allFailed):
		status = fasthttp.StatusBadGateway
		body.Attempts = allFailed.Attempts
	case errors.Is(err, domain.ErrRegistryUnavailable),
		errors.Is(err, apperrors.ErrExternalServiceFailure):
		status = fasthttp.StatusBadGateway
	}

	if status == fasthttp.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	} else {
		h.logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}

	payload, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}
