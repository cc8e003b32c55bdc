// Package rpc serves the local ledger over HTTP: a small REST surface plus a
// Solana-compatible JSON-RPC 2.0 endpoint for the read methods clients expect.
package rpc

import (
	"encoding/json"
)

// JSON-RPC 2.0 constants
const (
	JSONRPCVersion = "2.0"
)

// Standard JSON-RPC 2.0 error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603

	// Solana-specific error codes
	SendTransactionError = -32002
	UnsupportedEncoding  = -32011
)

// RPCRequest represents a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// RPCResponse represents a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}

// NewRPCError creates a new RPC error.
func NewRPCError(code int, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// NewRPCErrorWithData creates a new RPC error with additional data.
func NewRPCErrorWithData(code int, message string, data interface{}) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Context is the response context. The local ledger has no slots, so Slot is always 0.
type Context struct {
	Slot uint64 `json:"slot"`
}

// ContextualResult wraps a result with context.
type ContextualResult struct {
	Context Context     `json:"context"`
	Value   interface{} `json:"value"`
}

// AccountInfoResult represents an account in JSON-RPC and REST responses.
type AccountInfoResult struct {
	Lamports   uint64      `json:"lamports"`
	Data       interface{} `json:"data"` // [data, encoding] or parsed data
	Owner      string      `json:"owner"`
	Executable bool        `json:"executable"`
	RentEpoch  uint64      `json:"rentEpoch"`
	Space      uint64      `json:"space"`
}

// ParsedAccountData is the jsonParsed form of account data.
type ParsedAccountData struct {
	Program string      `json:"program"`
	Parsed  interface{} `json:"parsed"`
	Space   uint64      `json:"space"`
}

// ParsedMint is a decoded mint record.
type ParsedMint struct {
	Type string         `json:"type"`
	Info ParsedMintInfo `json:"info"`
}

// ParsedMintInfo holds the mint fields in their JSON form.
type ParsedMintInfo struct {
	MintAuthority   *string `json:"mintAuthority"`
	Supply          string  `json:"supply"`
	Decimals        uint8   `json:"decimals"`
	IsInitialized   bool    `json:"isInitialized"`
	FreezeAuthority *string `json:"freezeAuthority"`
}

// AccountResponse is the REST view of an account.
type AccountResponse struct {
	Pubkey string `json:"pubkey"`
	AccountInfoResult
	Mint *ParsedMintInfo `json:"mint,omitempty"`
}

// AccountInfoOptions represents optional parameters for getAccountInfo.
type AccountInfoOptions struct {
	Encoding  string     `json:"encoding,omitempty"`  // base58, base64, base64+zstd, jsonParsed
	DataSlice *DataSlice `json:"dataSlice,omitempty"` // Limit returned data
}

// DataSlice represents a slice of account data.
type DataSlice struct {
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

// HealthResult represents the result of getHealth.
type HealthResult string

// VersionResult represents the result of getVersion.
type VersionResult struct {
	SolanaCore string `json:"solana-core"`
	FeatureSet uint32 `json:"feature-set"`
}

// InitializeMintRequest is the body of POST /instructions/initialize-mint.
type InitializeMintRequest struct {
	Mint      string `json:"mint" binding:"required"`
	Authority string `json:"authority" binding:"required"`
}

// InstructionResponse reports the outcome of a processed instruction.
type InstructionResponse struct {
	Success      bool              `json:"success"`
	Logs         []string          `json:"logs"`
	ComputeUnits uint64            `json:"computeUnits"`
	Accounts     []string          `json:"accountsWritten,omitempty"`
	Error        *InstructionError `json:"error,omitempty"`
}

// InstructionError describes a failed instruction.
type InstructionError struct {
	Name    string `json:"name"`
	Code    uint64 `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse is the body of REST errors that are not instruction failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
