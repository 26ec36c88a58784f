package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/XVM-Systems/RAIL/internal/config"
	"github.com/XVM-Systems/RAIL/internal/domain"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	domainRepo "github.com/XVM-Systems/RAIL/internal/domain/repository"
	"github.com/XVM-Systems/RAIL/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.SourceExplorer = (*Client)(nil)

// Client fetches verified contract source code from Sourcify and Etherscan.
type Client struct {
	client       *fasthttp.Client
	sourcifyURL  string
	etherscanURL string
	logger       *zap.Logger
}

// NewClient creates a new source explorer client.
func NewClient(cfg config.ExplorerConfig, logger *zap.Logger) *Client {
	return &Client{
		client:       &fasthttp.Client{},
		sourcifyURL:  cfg.SourcifyURL,
		etherscanURL: cfg.EtherscanURL,
		logger:       logger.Named("SourceExplorer"),
	}
}

// sourcifyFile is one entry in a Sourcify files response.
type sourcifyFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FromSourcify queries the Sourcify repository for the contract's verified files.
func (c *Client) FromSourcify(ctx context.Context, chainID int64, address string) (entity.ContractSource, error) {
	requestURL := fmt.Sprintf("%s/files/%d/%s", c.sourcifyURL, chainID, address)

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return entity.ContractSource{}, err
	}

	var files []sourcifyFile
	if err := json.Unmarshal(body, &files); err != nil {
		c.logger.Debug("Sourcify returned unparseable payload",
			zap.String("address", address), zap.Error(err),
		)
		return entity.ContractSource{}, fmt.Errorf("%w: sourcify returned invalid JSON: %v",
			apperrors.ErrExternalServiceFailure, err,
		)
	}
	if len(files) == 0 {
		return entity.ContractSource{}, fmt.Errorf("%w: sourcify has no files for %s on chain %d",
			domain.ErrSourceNotFound, address, chainID,
		)
	}

	source := entity.ContractSource{
		Address: address,
		Origin:  entity.SourceOriginSourcify,
		Files:   make(map[string]string, len(files)),
	}
	for _, f := range files {
		source.Files[f.Name] = f.Content
	}
	return source, nil
}

// etherscanEnvelope is the Etherscan v2 getsourcecode response wrapper.
type etherscanEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []struct {
		SourceCode   string `json:"SourceCode"`
		ContractName string `json:"ContractName"`
	} `json:"result"`
}

// FromEtherscan queries the Etherscan v2 API for the contract's verified source.
func (c *Client) FromEtherscan(ctx context.Context, chainID int64, address, apiKey string) (entity.ContractSource, error) {
	query := url.Values{}
	query.Set("chainid", strconv.FormatInt(chainID, 10))
	query.Set("module", "contract")
	query.Set("action", "getsourcecode")
	query.Set("address", address)
	query.Set("apikey", apiKey)
	requestURL := c.etherscanURL + "?" + query.Encode()

	body, err := c.get(ctx, requestURL)
	if err != nil {
		return entity.ContractSource{}, err
	}

	var envelope etherscanEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return entity.ContractSource{}, fmt.Errorf("%w: etherscan returned invalid JSON: %v",
			apperrors.ErrExternalServiceFailure, err,
		)
	}
	if envelope.Status != "1" || len(envelope.Result) == 0 || envelope.Result[0].SourceCode == "" {
		c.logger.Debug("Etherscan has no verified source",
			zap.String("address", address),
			zap.Int64("chainId", chainID),
			zap.String("message", envelope.Message),
		)
		return entity.ContractSource{}, fmt.Errorf("%w: etherscan has no verified source for %s on chain %d",
			domain.ErrSourceNotFound, address, chainID,
		)
	}

	result := envelope.Result[0]
	return entity.ContractSource{
		Address:      address,
		ContractName: result.ContractName,
		Origin:       entity.SourceOriginEtherscan,
		Files:        map[string]string{result.ContractName + ".sol": result.SourceCode},
	}, nil
}

// get executes a bounded GET request and returns the response body.
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	timeout := 15 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("%w: source request failed: %v", apperrors.ErrExternalServiceFailure, err)
	}

	if resp.StatusCode() == fasthttp.StatusNotFound {
		return nil, fmt.Errorf("%w: source service returned 404", domain.ErrSourceNotFound)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: source service returned status %d",
			apperrors.ErrExternalServiceFailure, resp.StatusCode(),
		)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
