package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fortiblox/x1-mint/pkg/metrics"
	"github.com/fortiblox/x1-mint/pkg/runtime"
	"github.com/fortiblox/x1-mint/pkg/svm/invoke"
	"github.com/fortiblox/x1-mint/pkg/svm/programs/mintinit"
	"github.com/fortiblox/x1-mint/pkg/svm/sysvar"
	"github.com/fortiblox/x1-mint/pkg/types"
)

// Version is reported by getVersion.
const Version = "1.18.0"

// Handler is the function signature for JSON-RPC method handlers.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, *RPCError)

// Handlers serves requests against a runtime.
type Handlers struct {
	rt       *runtime.Runtime
	health   *metrics.HealthChecker
	handlers map[string]Handler
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(rt *runtime.Runtime) *Handlers {
	h := &Handlers{
		rt:       rt,
		health:   metrics.NewHealthChecker(),
		handlers: make(map[string]Handler),
	}

	h.health.RegisterCheck("store", h.checkStore)
	h.health.RegisterCheck("rent_sysvar", h.checkRentSysvar)
	h.registerHandlers()

	return h
}

// Health returns the health checker so callers can register more checks.
func (h *Handlers) Health() *metrics.HealthChecker {
	return h.health
}

// GetHandler returns the handler for a method, or nil if not found.
func (h *Handlers) GetHandler(method string) Handler {
	return h.handlers[method]
}

func (h *Handlers) registerHandlers() {
	h.handlers["getAccountInfo"] = h.handleGetAccountInfo
	h.handlers["getBalance"] = h.handleGetBalance
	h.handlers["getHealth"] = h.handleGetHealth
	h.handlers["getVersion"] = h.handleGetVersion
	h.handlers["getMinimumBalanceForRentExemption"] = h.handleGetMinimumBalanceForRentExemption
}

func (h *Handlers) checkStore(context.Context) metrics.Check {
	if _, err := h.rt.GetAccount(types.SysvarRentID); err != nil {
		return metrics.Check{Healthy: false, Message: err.Error()}
	}
	return metrics.Check{Healthy: true, Message: fmt.Sprintf("%d accounts", h.rt.AccountsCount())}
}

func (h *Handlers) checkRentSysvar(context.Context) metrics.Check {
	acc, err := h.rt.GetAccount(types.SysvarRentID)
	if err != nil {
		return metrics.Check{Healthy: false, Message: err.Error()}
	}
	if acc == nil {
		return metrics.Check{Healthy: false, Message: "rent sysvar account missing"}
	}
	rent, err := sysvar.DecodeRent(acc.Data)
	if err != nil {
		return metrics.Check{Healthy: false, Message: err.Error()}
	}
	if rent != h.rt.Rent() {
		return metrics.Check{Healthy: false, Message: "rent sysvar does not match configuration"}
	}
	return metrics.Check{Healthy: true}
}

// healthz handles GET /health.
func (h *Handlers) healthz(c *gin.Context) {
	status := h.health.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

// getAccount handles GET /accounts/:pubkey.
func (h *Handlers) getAccount(c *gin.Context) {
	pubkey, err := DecodePubkey(c.Param("pubkey"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid pubkey: %v", err)})
		return
	}

	account, err := h.rt.GetAccount(pubkey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "account not found"})
		return
	}

	encoding := c.DefaultQuery("encoding", EncodingBase64)
	if encoding == EncodingJSONParsed {
		encoding = EncodingBase64
	}
	info, err := encodeAccount(account, h.rt.Config().ProgramID, encoding, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	resp := AccountResponse{Pubkey: pubkey.String(), AccountInfoResult: info}
	if account.Owner == h.rt.Config().ProgramID {
		if mint, ok := ParseMint(account.Data); ok {
			resp.Mint = mint
		}
	}
	c.JSON(http.StatusOK, resp)
}

// initializeMint handles POST /instructions/initialize-mint.
func (h *Handlers) initializeMint(c *gin.Context) {
	var req InitializeMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	mint, err := DecodePubkey(req.Mint)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid mint: %v", err)})
		return
	}
	authority, err := DecodePubkey(req.Authority)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid authority: %v", err)})
		return
	}

	ix := mintinit.NewInitializeMintInstruction(h.rt.Config().ProgramID, mint, authority)
	result, err := h.rt.ProcessInstruction(ix)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := InstructionResponse{
		Success:      result.Success(),
		Logs:         result.Logs,
		ComputeUnits: uint64(result.ComputeUnits),
	}
	for _, delta := range result.AccountDeltas {
		resp.Accounts = append(resp.Accounts, delta.Pubkey.String())
	}
	if result.Err != nil {
		resp.Error = instructionError(result.Err)
		c.JSON(http.StatusBadRequest, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// instructionError names err by its program error when it carries one.
func instructionError(err error) *InstructionError {
	ie := &InstructionError{Name: "RuntimeError", Message: err.Error()}
	var perr *invoke.ProgramError
	if errors.As(err, &perr) {
		ie.Name = perr.Error()
		ie.Code = perr.Code()
	}
	return ie
}

// parsePubkeyParams reads [pubkey, options?] params.
func parsePubkeyParams(params json.RawMessage) (types.Pubkey, json.RawMessage, *RPCError) {
	var rawParams []json.RawMessage
	if err := json.Unmarshal(params, &rawParams); err != nil {
		return types.Pubkey{}, nil, NewRPCError(InvalidParams, "invalid params: expected array")
	}
	if len(rawParams) < 1 {
		return types.Pubkey{}, nil, NewRPCError(InvalidParams, "missing pubkey parameter")
	}

	var pubkeyStr string
	if err := json.Unmarshal(rawParams[0], &pubkeyStr); err != nil {
		return types.Pubkey{}, nil, NewRPCError(InvalidParams, "invalid pubkey parameter")
	}
	pubkey, err := DecodePubkey(pubkeyStr)
	if err != nil {
		return types.Pubkey{}, nil, NewRPCError(InvalidParams, fmt.Sprintf("invalid pubkey: %v", err))
	}

	var options json.RawMessage
	if len(rawParams) > 1 {
		options = rawParams[1]
	}
	return pubkey, options, nil
}

// handleGetAccountInfo handles the getAccountInfo RPC method.
// Params: [pubkey, {encoding, dataSlice}]
func (h *Handlers) handleGetAccountInfo(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	pubkey, rawOptions, rpcErr := parsePubkeyParams(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	encoding := EncodingBase64
	var dataSlice *DataSlice
	if rawOptions != nil {
		var options AccountInfoOptions
		if err := json.Unmarshal(rawOptions, &options); err != nil {
			return nil, NewRPCError(InvalidParams, fmt.Sprintf("invalid options: %v", err))
		}
		if options.Encoding != "" {
			if err := ValidateEncoding(options.Encoding); err != nil {
				return nil, NewRPCError(UnsupportedEncoding, err.Error())
			}
			encoding = options.Encoding
		}
		dataSlice = options.DataSlice
	}

	account, err := h.rt.GetAccount(pubkey)
	if err != nil {
		return nil, NewRPCError(InternalError, fmt.Sprintf("failed to get account: %v", err))
	}
	if account == nil {
		return ContextualResult{Value: nil}, nil
	}

	result, err := encodeAccount(account, h.rt.Config().ProgramID, encoding, dataSlice)
	if err != nil {
		return nil, NewRPCError(InvalidParams, err.Error())
	}
	return ContextualResult{Value: result}, nil
}

// handleGetBalance handles the getBalance RPC method.
// Params: [pubkey]
func (h *Handlers) handleGetBalance(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	pubkey, _, rpcErr := parsePubkeyParams(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	account, err := h.rt.GetAccount(pubkey)
	if err != nil {
		return nil, NewRPCError(InternalError, fmt.Sprintf("failed to get account: %v", err))
	}

	var balance uint64
	if account != nil {
		balance = uint64(account.Lamports)
	}
	return ContextualResult{Value: balance}, nil
}

// handleGetHealth handles the getHealth RPC method.
func (h *Handlers) handleGetHealth(ctx context.Context, _ json.RawMessage) (interface{}, *RPCError) {
	status := h.health.Check(ctx)
	if !status.Healthy {
		return nil, NewRPCErrorWithData(InternalError, "Node is unhealthy", status)
	}
	return HealthResult("ok"), nil
}

// handleGetVersion handles the getVersion RPC method.
func (h *Handlers) handleGetVersion(context.Context, json.RawMessage) (interface{}, *RPCError) {
	return VersionResult{SolanaCore: Version}, nil
}

// handleGetMinimumBalanceForRentExemption handles the getMinimumBalanceForRentExemption RPC method.
// Params: [dataLen]
func (h *Handlers) handleGetMinimumBalanceForRentExemption(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	var rawParams []uint64
	if err := json.Unmarshal(params, &rawParams); err != nil || len(rawParams) < 1 {
		return nil, NewRPCError(InvalidParams, "invalid params: expected [dataLen]")
	}
	return h.rt.Rent().MinimumBalance(rawParams[0]), nil
}
