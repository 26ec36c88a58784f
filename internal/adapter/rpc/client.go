package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	domainService "github.com/XVM-Systems/RAIL/internal/domain/service"
	"github.com/XVM-Systems/RAIL/internal/pkg/apperrors"
	"github.com/XVM-Systems/RAIL/internal/pkg/ethaddr"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainService.Reader = (*Client)(nil)

// ERC-20 function selectors.
const (
	selectorBalanceOf = "0x70a08231" // balanceOf(address)
	selectorName      = "0x06fdde03" // name()
	selectorSymbol    = "0x95d89b41" // symbol()
	selectorDecimals  = "0x313ce567" // decimals()
)

// Client issues single-endpoint JSON-RPC reads. It performs no failover
// itself; the executor decides which endpoint to call.
type Client struct {
	client *fasthttp.Client
	logger *zap.Logger
}

// NewClient creates a new read-only JSON-RPC client.
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		client: &fasthttp.Client{
			ReadTimeout: 15 * time.Second,
		},
		logger: logger.Named("RPCClient"),
	}
}

// NativeBalance returns the native token balance of address in wei.
func (c *Client) NativeBalance(ctx context.Context, rpcURL entity.RPCURL, address string) (*big.Int, error) {
	checksummed, err := ethaddr.Parse(address)
	if err != nil {
		return nil, err
	}

	result, err := c.call(ctx, rpcURL, "eth_getBalance", []interface{}{checksummed.Hex(), "latest"})
	if err != nil {
		return nil, err
	}
	return decodeQuantity(rpcURL, result)
}

// TokenBalance returns the raw ERC-20 balanceOf(holder) amount for token.
func (c *Client) TokenBalance(ctx context.Context, rpcURL entity.RPCURL, token, holder string) (*big.Int, error) {
	tokenAddr, err := ethaddr.Parse(token)
	if err != nil {
		return nil, err
	}
	holderAddr, err := ethaddr.Parse(holder)
	if err != nil {
		return nil, err
	}

	data := selectorBalanceOf + padAddress(holderAddr)
	result, err := c.ethCall(ctx, rpcURL, tokenAddr, data)
	if err != nil {
		return nil, err
	}
	return decodeUint256(rpcURL, result)
}

// TokenInfo reads name, symbol and decimals from an ERC-20 contract.
func (c *Client) TokenInfo(ctx context.Context, rpcURL entity.RPCURL, token string) (entity.TokenInfo, error) {
	tokenAddr, err := ethaddr.Parse(token)
	if err != nil {
		return entity.TokenInfo{}, err
	}

	info := entity.TokenInfo{Address: tokenAddr.Hex()}

	nameRaw, err := c.ethCall(ctx, rpcURL, tokenAddr, selectorName)
	if err != nil {
		return entity.TokenInfo{}, err
	}
	if info.Name, err = decodeABIString(rpcURL, nameRaw); err != nil {
		return entity.TokenInfo{}, err
	}

	symbolRaw, err := c.ethCall(ctx, rpcURL, tokenAddr, selectorSymbol)
	if err != nil {
		return entity.TokenInfo{}, err
	}
	if info.Symbol, err = decodeABIString(rpcURL, symbolRaw); err != nil {
		return entity.TokenInfo{}, err
	}

	decimalsRaw, err := c.ethCall(ctx, rpcURL, tokenAddr, selectorDecimals)
	if err != nil {
		return entity.TokenInfo{}, err
	}
	decimals, err := decodeUint256(rpcURL, decimalsRaw)
	if err != nil {
		return entity.TokenInfo{}, err
	}
	if !decimals.IsUint64() || decimals.Uint64() > 255 {
		return entity.TokenInfo{}, fmt.Errorf("%w: %s returned out-of-range decimals %s",
			apperrors.ErrMalformedResponse, rpcURL, decimals,
		)
	}
	info.Decimals = uint8(decimals.Uint64())

	return info, nil
}

// ethCall issues eth_call against contract with the given calldata at latest block.
func (c *Client) ethCall(ctx context.Context, rpcURL entity.RPCURL, contract common.Address, data string) (json.RawMessage, error) {
	params := []interface{}{
		map[string]string{"to": contract.Hex(), "data": data},
		"latest",
	}
	return c.call(ctx, rpcURL, "eth_call", params)
}

// call executes a single JSON-RPC request and returns the raw result field.
func (c *Client) call(ctx context.Context, rpcURL entity.RPCURL, method string, params []interface{}) (json.RawMessage, error) {
	payload, err := json.Marshal(jsonRPCRequest{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal %s request: %v", apperrors.ErrInternal, method, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rpcURL.String())
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	timeout := c.client.ReadTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining > 0 && (timeout <= 0 || remaining < timeout) {
			timeout = remaining
		}
	}

	var requestErr error
	if timeout <= 0 {
		requestErr = c.client.Do(req, resp)
	} else {
		requestErr = c.client.DoTimeout(req, resp, timeout)
	}

	if requestErr != nil {
		kind := classifyTransportError(requestErr)
		c.logger.Debug("RPC call transport failure",
			zap.String("url", rpcURL.String()),
			zap.String("method", method),
			zap.Error(requestErr),
		)
		return nil, wrapKind(kind, rpcURL, requestErr)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Debug("RPC call returned non-OK status",
			zap.String("url", rpcURL.String()),
			zap.String("method", method),
			zap.Int("statusCode", resp.StatusCode()),
		)
		return nil, wrapKind(entity.ErrorKindUnreachable, rpcURL,
			fmt.Errorf("non-OK http status %d", resp.StatusCode()))
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(resp.Body(), &rpcResp); err != nil {
		return nil, wrapKind(entity.ErrorKindMalformedResponse, rpcURL, err)
	}
	if rpcResp.Error != nil {
		return nil, wrapKind(entity.ErrorKindMalformedResponse, rpcURL,
			fmt.Errorf("json-rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message))
	}
	if rpcResp.Result == nil {
		return nil, wrapKind(entity.ErrorKindMalformedResponse, rpcURL,
			errors.New("missing result field"))
	}
	return rpcResp.Result, nil
}

// padAddress left-pads an address to a 32-byte ABI word, without the 0x prefix.
func padAddress(addr common.Address) string {
	return strings.Repeat("0", 24) + strings.TrimPrefix(strings.ToLower(addr.Hex()), "0x")
}

// decodeQuantity decodes a JSON-RPC hex quantity (e.g. eth_getBalance result).
func decodeQuantity(rpcURL entity.RPCURL, raw json.RawMessage) (*big.Int, error) {
	var quantity string
	if err := json.Unmarshal(raw, &quantity); err != nil {
		return nil, wrapKind(entity.ErrorKindMalformedResponse, rpcURL, err)
	}
	value, err := hexutil.DecodeBig(quantity)
	if err != nil {
		return nil, wrapKind(entity.ErrorKindMalformedResponse, rpcURL, err)
	}
	return value, nil
}

// decodeUint256 decodes a 32-byte eth_call return word as an unsigned integer.
func decodeUint256(rpcURL entity.RPCURL, raw json.RawMessage) (*big.Int, error) {
	var hexData string
	if err := json.Unmarshal(raw, &hexData); err != nil {
		return nil, wrapKind(entity.ErrorKindMalformedResponse, rpcURL, err)
	}
	data, err := hexutil.Decode(hexData)
	if err != nil {
		return nil, wrapKind(entity.ErrorKindMalformedResponse, rpcURL, err)
	}
	if len(data) == 0 {
		return nil, wrapKind(entity.ErrorKindMalformedResponse, rpcURL, errors.New("empty eth_call return data"))
	}
	return new(big.Int).SetBytes(data), nil
}

// decodeABIString decodes an eth_call return value that is either a
// dynamically encoded string or a legacy bytes32 value.
func decodeABIString(rpcURL entity.RPCURL, raw json.RawMessage) (string, error) {
	var hexData string
	if err := json.Unmarshal(raw, &hexData); err != nil {
		return "", wrapKind(entity.ErrorKindMalformedResponse, rpcURL, err)
	}
	data, err := hexutil.Decode(hexData)
	if err != nil {
		return "", wrapKind(entity.ErrorKindMalformedResponse, rpcURL, err)
	}

	// Dynamic string: word 0 is the offset, the word at the offset is the
	// length. Offset and length come from an untrusted endpoint, so both are
	// bounded against the payload size before any arithmetic that could wrap.
	if len(data) >= 64 {
		dataLen := uint64(len(data))
		offset := new(big.Int).SetBytes(data[:32])
		if offset.IsUint64() && offset.Uint64() <= dataLen-32 {
			start := offset.Uint64()
			length := new(big.Int).SetBytes(data[start : start+32])
			if length.IsUint64() && length.Uint64() <= dataLen-start-32 {
				return string(data[start+32 : start+32+length.Uint64()]), nil
			}
		}
	}

	// Legacy tokens (e.g. MKR) return bytes32 padded with NULs.
	if len(data) == 32 {
		return strings.TrimRight(string(data), "\x00"), nil
	}

	return "", wrapKind(entity.ErrorKindMalformedResponse, rpcURL, errors.New("undecodable string return data"))
}
