package verifier

import (
	"bytes"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/garuda/core"
)

// EthereumSignatureLength is r (32) plus s (32) plus the recovery id (1)
const EthereumSignatureLength = 65

const personalMessagePrefix = "\x19Ethereum Signed Message:\n"

// Ethereum verifies EIP-191 personal-sign signatures by recovering the
// signer from the secp256k1 signature and comparing raw address bytes
type Ethereum struct{}

func (Ethereum) Verify(message, signature []byte, address core.Address) error {
	if address.Chain() != core.ChainEthereum {
		return fmt.Errorf("%w: expected an ethereum address", core.ErrInvalidAddress)
	}
	if len(signature) != EthereumSignatureLength {
		return fmt.Errorf("%w: expected %d bytes, got %d", core.ErrMalformedSignature, EthereumSignatureLength, len(signature))
	}

	sig := make([]byte, EthereumSignatureLength)
	copy(sig, signature)

	// Wallets emit v as 27 or 28, recovery wants 0 or 1.
	if sig[64] == 27 || sig[64] == 28 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return fmt.Errorf("%w: recovery id %d", core.ErrMalformedSignature, signature[64])
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	// Homestead rules reject the malleable high-s half of the curve.
	if !crypto.ValidateSignatureValues(sig[64], r, s, true) {
		return fmt.Errorf("%w: signature values out of range", core.ErrMalformedSignature)
	}

	pub, err := crypto.SigToPub(PersonalHash(message), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrMalformedSignature, err)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if !bytes.Equal(recovered.Bytes(), address.Bytes()) {
		return fmt.Errorf("%w: recovered %s", core.ErrAddressMismatch, recovered.Hex())
	}

	return nil
}

// PersonalHash is the EIP-191 digest wallets sign for personal messages
func PersonalHash(message []byte) []byte {
	prefix := personalMessagePrefix + strconv.Itoa(len(message))
	return crypto.Keccak256([]byte(prefix), message)
}
