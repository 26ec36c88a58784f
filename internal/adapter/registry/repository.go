package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	dto "github.com/XVM-Systems/RAIL/internal/adapter/registry/dto"
	"github.com/XVM-Systems/RAIL/internal/config"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	domainRepo "github.com/XVM-Systems/RAIL/internal/domain/repository"
	"github.com/XVM-Systems/RAIL/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.RegistrySource = (*Repository)(nil)

// Repository fetches the public chain directory over HTTP.
type Repository struct {
	client *fasthttp.Client
	url    string
	logger *zap.Logger
}

// NewRepository creates a new chain registry source.
func NewRepository(cfg config.RegistryConfig, logger *zap.Logger) *Repository {
	return &Repository{
		client: &fasthttp.Client{},
		url:    cfg.URL,
		logger: logger.Named("RegistrySource"),
	}
}

// FetchDirectory fetches the full list of chains from the configured directory URL.
func (r *Repository) FetchDirectory(ctx context.Context) ([]entity.Chain, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAcceptEncoding, "gzip")

	timeout := 15 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}

	r.logger.Debug(
		"Fetching chain directory",
		zap.String("url", r.url),
		zap.Duration("timeout", timeout),
	)

	err := r.client.DoTimeout(req, resp, timeout)
	if err != nil {
		r.logger.Error("Failed to execute request to registry", zap.Error(err))
		return nil, fmt.Errorf("%w: failed to execute request to registry: %v",
			apperrors.ErrExternalServiceFailure, err,
		)
	}

	if resp.StatusCode() == fasthttp.StatusNotFound {
		r.logger.Warn(
			"Registry source reported not found",
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("body", resp.Body()),
		)
		return nil, fmt.Errorf("%w: registry source reported not found (%s)", apperrors.ErrNotFound, r.url)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		r.logger.Error(
			"Registry returned non-OK status",
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("body", resp.Body()),
		)
		return nil, fmt.Errorf("%w: registry returned status %d",
			apperrors.ErrExternalServiceFailure, resp.StatusCode(),
		)
	}

	var body []byte
	contentEncoding := resp.Header.Peek(fasthttp.HeaderContentEncoding)
	if bytes.EqualFold(contentEncoding, []byte("gzip")) {
		r.logger.Debug("Received gzipped response from registry")
		body, err = resp.BodyGunzip()
		if err != nil {
			r.logger.Error("Failed to gunzip registry response body", zap.Error(err))
			return nil, fmt.Errorf("%w: failed to decompress registry response: %v",
				apperrors.ErrExternalServiceFailure, err,
			)
		}
	} else {
		body = resp.Body()
	}

	var rawChains []dto.ChainRaw
	err = json.Unmarshal(body, &rawChains)
	if err != nil {
		r.logger.Error("Failed to unmarshal registry response into raw DTOs",
			zap.Error(err), zap.ByteString("bodySample", body[:min(1024, len(body))]),
		)
		return nil, fmt.Errorf("%w: failed to parse registry response into raw DTOs: %v",
			apperrors.ErrExternalServiceFailure, err,
		)
	}

	r.logger.Info("Successfully fetched chain directory", zap.Int("count", len(rawChains)))

	return toDomainChains(rawChains, r.logger), nil
}
