package core

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Chain identifies the signature scheme an address belongs to
type Chain string

const (
	ChainEthereum Chain = "ethereum"
	ChainSolana   Chain = "solana"
)

const (
	EthereumAddressLength = 20
	SolanaAddressLength   = 32
)

// Valid reports whether the chain is a supported scheme
func (c Chain) Valid() bool {
	return c == ChainEthereum || c == ChainSolana
}

// AccountLabel is the chain name used in the sign-in message account line
func (c Chain) AccountLabel() string {
	switch c {
	case ChainEthereum:
		return "Ethereum"
	case ChainSolana:
		return "Solana"
	default:
		return string(c)
	}
}

// Address is a validated wallet address. The text form is canonical:
// EIP-55 checksummed hex for Ethereum, base58 for Solana. Equality is
// defined on the chain and the raw bytes, so differently cased Ethereum
// inputs compare equal after parsing.
type Address struct {
	chain Chain
	raw   []byte
	text  string
}

// ParseAddress validates text as an address on the given chain and returns
// its canonical form
func ParseAddress(chain Chain, text string) (Address, error) {
	switch chain {
	case ChainEthereum:
		return parseEthereumAddress(text)
	case ChainSolana:
		return parseSolanaAddress(text)
	default:
		return Address{}, fmt.Errorf("%w: unsupported chain %q", ErrInvalidAddress, chain)
	}
}

func parseEthereumAddress(text string) (Address, error) {
	if len(text) != 42 || text[:2] != "0x" || !common.IsHexAddress(text) {
		return Address{}, fmt.Errorf("%w: %q is not a 0x-prefixed hex address", ErrInvalidAddress, text)
	}

	addr := common.HexToAddress(text)
	canonical := addr.Hex()

	// EIP-55: mixed-case input carries a checksum and must match it.
	// All-lower and all-upper inputs carry none and are accepted as is.
	if hasMixedCase(text[2:]) && text != canonical {
		return Address{}, fmt.Errorf("%w: %q fails the EIP-55 checksum", ErrInvalidAddress, text)
	}

	return Address{chain: ChainEthereum, raw: addr.Bytes(), text: canonical}, nil
}

func parseSolanaAddress(text string) (Address, error) {
	raw := base58.Decode(text)
	if len(raw) != SolanaAddressLength {
		return Address{}, fmt.Errorf("%w: %q is not a base58 encoded 32-byte key", ErrInvalidAddress, text)
	}
	return Address{chain: ChainSolana, raw: raw, text: base58.Encode(raw)}, nil
}

// AddressFromBytes builds an address from raw key bytes
func AddressFromBytes(chain Chain, raw []byte) (Address, error) {
	switch chain {
	case ChainEthereum:
		if len(raw) != EthereumAddressLength {
			return Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, EthereumAddressLength, len(raw))
		}
		return Address{chain: chain, raw: append([]byte(nil), raw...), text: common.BytesToAddress(raw).Hex()}, nil
	case ChainSolana:
		if len(raw) != SolanaAddressLength {
			return Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, SolanaAddressLength, len(raw))
		}
		cp := append([]byte(nil), raw...)
		return Address{chain: chain, raw: cp, text: base58.Encode(cp)}, nil
	default:
		return Address{}, fmt.Errorf("%w: unsupported chain %q", ErrInvalidAddress, chain)
	}
}

// Chain returns the chain the address belongs to
func (a Address) Chain() Chain { return a.chain }

// Bytes returns a copy of the raw address bytes
func (a Address) Bytes() []byte { return append([]byte(nil), a.raw...) }

// String returns the canonical text form
func (a Address) String() string { return a.text }

// Equal reports whether two addresses identify the same account
func (a Address) Equal(b Address) bool {
	return a.chain == b.chain && bytes.Equal(a.raw, b.raw)
}

// DecodeSignature decodes a signature from its chain-native text form:
// 0x-prefixed hex for Ethereum, base58 for Solana
func DecodeSignature(chain Chain, text string) ([]byte, error) {
	switch chain {
	case ChainEthereum:
		sig, err := hexutil.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
		}
		return sig, nil
	case ChainSolana:
		sig := base58.Decode(text)
		if len(sig) == 0 {
			return nil, fmt.Errorf("%w: not base58", ErrMalformedSignature)
		}
		return sig, nil
	default:
		return nil, fmt.Errorf("%w: unsupported chain %q", ErrMalformedSignature, chain)
	}
}

func hasMixedCase(s string) bool {
	var upper, lower bool
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= 'A' && s[i] <= 'F':
			upper = true
		case s[i] >= 'a' && s[i] <= 'f':
			lower = true
		}
	}
	return upper && lower
}
