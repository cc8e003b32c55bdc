package rpc

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/mr-tron/base58"

	"github.com/fortiblox/x1-mint/pkg/svm/programs/mintinit"
	"github.com/fortiblox/x1-mint/pkg/types"
)

// Encoding types supported by Solana RPC
const (
	EncodingBase58     = "base58"
	EncodingBase64     = "base64"
	EncodingBase64Zstd = "base64+zstd"
	EncodingJSONParsed = "jsonParsed"
)

// maxBase58DataLen is the largest account data getAccountInfo returns as base58.
const maxBase58DataLen = 128

// Shared zstd coders; EncodeAll and DecodeAll are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(10<<20))
)

// DecodePubkey decodes a base58 string to pubkey.
func DecodePubkey(s string) (types.Pubkey, error) {
	return types.PubkeyFromBase58(s)
}

// EncodeAccountData encodes account data in the specified encoding.
// Returns a tuple of [data, encoding] for Solana compatibility.
func EncodeAccountData(data []byte, encoding string) ([]interface{}, error) {
	switch encoding {
	case EncodingBase58:
		if len(data) > maxBase58DataLen {
			return nil, fmt.Errorf("encoded binary (base 58) data should be less than %d bytes, please use Base64 encoding", maxBase58DataLen)
		}
		return []interface{}{base58.Encode(data), EncodingBase58}, nil

	case EncodingBase64, "":
		return []interface{}{base64.StdEncoding.EncodeToString(data), EncodingBase64}, nil

	case EncodingBase64Zstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		return []interface{}{base64.StdEncoding.EncodeToString(compressed), EncodingBase64Zstd}, nil

	default:
		return nil, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

// DecodeAccountData decodes account data from the specified encoding.
func DecodeAccountData(encoded string, encoding string) ([]byte, error) {
	switch encoding {
	case EncodingBase58:
		return base58.Decode(encoded)

	case EncodingBase64, "":
		return base64.StdEncoding.DecodeString(encoded)

	case EncodingBase64Zstd:
		compressed, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, err
		}
		return zstdDecoder.DecodeAll(compressed, nil)

	default:
		return nil, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

// ValidateEncoding validates that an encoding string is supported.
func ValidateEncoding(encoding string) error {
	switch encoding {
	case EncodingBase58, EncodingBase64, EncodingBase64Zstd, EncodingJSONParsed, "":
		return nil
	default:
		return fmt.Errorf("unsupported encoding: %s", encoding)
	}
}

// SliceData returns a slice of data based on offset and length.
// Returns the full data if slice is nil.
func SliceData(data []byte, slice *DataSlice) []byte {
	if slice == nil {
		return data
	}

	dataLen := uint64(len(data))
	if slice.Offset >= dataLen {
		return []byte{}
	}

	end := slice.Offset + slice.Length
	if end > dataLen || end < slice.Offset {
		end = dataLen
	}

	return data[slice.Offset:end]
}

// ParseMint decodes data as a mint record. It returns false for anything that
// is not exactly a well-formed mint.
func ParseMint(data []byte) (*ParsedMintInfo, bool) {
	m, err := mintinit.UnpackUnchecked(data)
	if err != nil {
		return nil, false
	}

	info := &ParsedMintInfo{
		Supply:        strconv.FormatUint(m.Supply, 10),
		Decimals:      m.Decimals,
		IsInitialized: m.IsInitialized,
	}
	if authority, ok := m.MintAuthority.Get(); ok {
		s := authority.String()
		info.MintAuthority = &s
	}
	if freeze, ok := m.FreezeAuthority.Get(); ok {
		s := freeze.String()
		info.FreezeAuthority = &s
	}
	return info, true
}

// encodeAccount renders an account for a response. jsonParsed yields the
// decoded mint for well-formed mint records owned by programID and falls back
// to base64 otherwise, as Solana RPC does.
func encodeAccount(account *types.Account, programID types.Pubkey, encoding string, slice *DataSlice) (AccountInfoResult, error) {
	result := AccountInfoResult{
		Lamports:   uint64(account.Lamports),
		Owner:      account.Owner.String(),
		Executable: account.Executable,
		RentEpoch:  uint64(account.RentEpoch),
		Space:      uint64(len(account.Data)),
	}

	if encoding == EncodingJSONParsed {
		if account.Owner == programID {
			if info, ok := ParseMint(account.Data); ok {
				result.Data = ParsedAccountData{
					Program: "mint-initializer",
					Parsed:  ParsedMint{Type: "mint", Info: *info},
					Space:   uint64(len(account.Data)),
				}
				return result, nil
			}
		}
		encoding = EncodingBase64
	}

	data, err := EncodeAccountData(SliceData(account.Data, slice), encoding)
	if err != nil {
		return AccountInfoResult{}, err
	}
	result.Data = data
	return result, nil
}
