package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	domainService "github.com/XVM-Systems/RAIL/internal/domain/service"
	"github.com/XVM-Systems/RAIL/internal/pkg/apperrors"

	"github.com/gorilla/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainService.Prober = (*Prober)(nil)

// chainIDPayload is the JSON-RPC request used to verify endpoint identity.
var chainIDPayload = []byte(`{"jsonrpc":"2.0","method":"eth_chainId","params":[],"id":1}`)

// Prober verifies that an endpoint is reachable and serves the expected chain.
type Prober struct {
	client *fasthttp.Client
	logger *zap.Logger
}

// NewProber creates a new endpoint prober.
func NewProber(logger *zap.Logger) *Prober {
	return &Prober{
		client: &fasthttp.Client{
			ReadTimeout: 10 * time.Second,
		},
		logger: logger.Named("Prober"),
	}
}

// Probe issues a chain-identity query against rpcURL and classifies the outcome.
// The result is ok only when the endpoint answers and reports exactly
// expectedChainID. Latency covers the identity query alone and is recorded
// even for classified failures where a response arrived.
func (p *Prober) Probe(ctx context.Context, rpcURL entity.RPCURL, expectedChainID int64) entity.ProbeResult {
	if rpcURL.IsWebsocket() {
		return p.probeWebsocket(ctx, rpcURL, expectedChainID)
	}
	return p.probeHTTP(ctx, rpcURL, expectedChainID)
}

func (p *Prober) probeHTTP(ctx context.Context, rpcURL entity.RPCURL, expectedChainID int64) entity.ProbeResult {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rpcURL.String())
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(chainIDPayload)

	timeout := p.client.ReadTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining > 0 && (timeout <= 0 || remaining < timeout) {
			timeout = remaining
		}
	}

	startTime := time.Now()
	var requestErr error
	if timeout <= 0 {
		requestErr = p.client.Do(req, resp)
	} else {
		requestErr = p.client.DoTimeout(req, resp, timeout)
	}
	latency := time.Since(startTime)

	if requestErr != nil {
		kind := classifyTransportError(requestErr)
		p.logger.Debug("HTTP probe request failed",
			zap.String("url", rpcURL.String()),
			zap.String("kind", string(kind)),
			zap.Error(requestErr),
		)
		return failedProbe(kind, latency, wrapKind(kind, rpcURL, requestErr))
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		p.logger.Debug("HTTP probe returned non-OK status",
			zap.String("url", rpcURL.String()),
			zap.Int("statusCode", resp.StatusCode()),
		)
		err := wrapKind(entity.ErrorKindUnreachable, rpcURL,
			errors.New("non-OK http status "+strconv.Itoa(resp.StatusCode())))
		return failedProbe(entity.ErrorKindUnreachable, latency, err)
	}

	return p.verifyChainIdentity(rpcURL, resp.Body(), expectedChainID, latency)
}

func (p *Prober) probeWebsocket(ctx context.Context, rpcURL entity.RPCURL, expectedChainID int64) entity.ProbeResult {
	timeout := p.client.ReadTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	startTime := time.Now()
	conn, _, err := dialer.DialContext(ctx, rpcURL.String(), nil)
	if err != nil {
		latency := time.Since(startTime)
		kind := entity.ErrorKindUnreachable
		if errors.Is(context.Cause(ctx), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = entity.ErrorKindTimeout
		}
		p.logger.Debug("WS probe dial failed", zap.String("url", rpcURL.String()), zap.Error(err))
		return failedProbe(kind, latency, wrapKind(kind, rpcURL, err))
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	if wErr := conn.WriteMessage(websocket.TextMessage, chainIDPayload); wErr != nil {
		latency := time.Since(startTime)
		p.logger.Debug("WS probe write failed", zap.String("url", rpcURL.String()), zap.Error(wErr))
		return failedProbe(entity.ErrorKindUnreachable, latency,
			wrapKind(entity.ErrorKindUnreachable, rpcURL, wErr))
	}

	_, message, rErr := conn.ReadMessage()
	latency := time.Since(startTime)
	if rErr != nil {
		kind := classifyTransportError(rErr)
		p.logger.Debug("WS probe read failed", zap.String("url", rpcURL.String()), zap.Error(rErr))
		return failedProbe(kind, latency, wrapKind(kind, rpcURL, rErr))
	}

	return p.verifyChainIdentity(rpcURL, message, expectedChainID, latency)
}

// verifyChainIdentity parses the eth_chainId response and compares the
// reported chain ID with the expected one.
func (p *Prober) verifyChainIdentity(
	rpcURL entity.RPCURL,
	body []byte,
	expectedChainID int64,
	latency time.Duration,
) entity.ProbeResult {
	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		p.logger.Debug("Probe response is not valid JSON",
			zap.String("url", rpcURL.String()), zap.ByteString("body", body), zap.Error(err),
		)
		return failedProbe(entity.ErrorKindMalformedResponse, latency,
			wrapKind(entity.ErrorKindMalformedResponse, rpcURL, err))
	}

	if rpcResp.Error != nil {
		p.logger.Debug("Probe returned JSON-RPC error",
			zap.String("url", rpcURL.String()),
			zap.Int("errorCode", rpcResp.Error.Code),
			zap.String("errorMessage", rpcResp.Error.Message),
		)
		return failedProbe(entity.ErrorKindMalformedResponse, latency,
			wrapKind(entity.ErrorKindMalformedResponse, rpcURL,
				errors.New("json-rpc error "+strconv.Itoa(rpcResp.Error.Code)+": "+rpcResp.Error.Message)))
	}

	if rpcResp.Jsonrpc != "2.0" || rpcResp.Result == nil {
		p.logger.Debug("Probe returned invalid JSON-RPC structure",
			zap.String("url", rpcURL.String()), zap.ByteString("body", body),
		)
		return failedProbe(entity.ErrorKindMalformedResponse, latency,
			wrapKind(entity.ErrorKindMalformedResponse, rpcURL, errors.New("invalid JSON-RPC structure")))
	}

	reportedChainID, err := parseHexQuantity(rpcResp.Result)
	if err != nil {
		p.logger.Debug("Probe returned unparseable chain id",
			zap.String("url", rpcURL.String()), zap.ByteString("result", rpcResp.Result),
		)
		return failedProbe(entity.ErrorKindMalformedResponse, latency,
			wrapKind(entity.ErrorKindMalformedResponse, rpcURL, err))
	}

	if reportedChainID != expectedChainID {
		p.logger.Debug("Probe detected chain mismatch",
			zap.String("url", rpcURL.String()),
			zap.Int64("expected", expectedChainID),
			zap.Int64("reported", reportedChainID),
		)
		result := failedProbe(entity.ErrorKindChainMismatch, latency,
			wrapKind(entity.ErrorKindChainMismatch, rpcURL,
				errors.New("reported chain id "+strconv.FormatInt(reportedChainID, 10))))
		result.ReportedChainID = reportedChainID
		return result
	}

	return entity.ProbeResult{
		OK:              true,
		Latency:         latency,
		ReportedChainID: reportedChainID,
	}
}

// parseHexQuantity decodes a JSON-encoded hex (or decimal) quantity string.
func parseHexQuantity(raw json.RawMessage) (int64, error) {
	var quantity string
	if err := json.Unmarshal(raw, &quantity); err != nil {
		return 0, err
	}
	quantity = strings.TrimSpace(quantity)
	if rest, ok := strings.CutPrefix(quantity, "0x"); ok {
		return strconv.ParseInt(rest, 16, 64)
	}
	return strconv.ParseInt(quantity, 10, 64)
}

// classifyTransportError maps transport-level failures onto error kinds.
func classifyTransportError(err error) entity.ErrorKind {
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return entity.ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return entity.ErrorKindTimeout
	}
	return entity.ErrorKindUnreachable
}

func failedProbe(kind entity.ErrorKind, latency time.Duration, err error) entity.ProbeResult {
	return entity.ProbeResult{
		OK:      false,
		Latency: latency,
		Kind:    kind,
		Err:     err,
	}
}

// wrapKind attaches the sentinel matching kind so callers can errors.Is the result.
func wrapKind(kind entity.ErrorKind, rpcURL entity.RPCURL, cause error) error {
	var sentinel error
	switch kind {
	case entity.ErrorKindTimeout:
		sentinel = apperrors.ErrTimeout
	case entity.ErrorKindChainMismatch:
		sentinel = apperrors.ErrChainMismatch
	case entity.ErrorKindMalformedResponse:
		sentinel = apperrors.ErrMalformedResponse
	default:
		sentinel = apperrors.ErrUnreachable
	}
	return &probeError{sentinel: sentinel, url: rpcURL, cause: cause}
}

type probeError struct {
	sentinel error
	url      entity.RPCURL
	cause    error
}

func (e *probeError) Error() string {
	return e.sentinel.Error() + ": " + e.url.String() + ": " + e.cause.Error()
}

func (e *probeError) Unwrap() error {
	return e.sentinel
}
