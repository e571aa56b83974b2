// Package crypto authenticates HTTP callers by recovering the secp256k1
// address that signed a request.
package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds a secp256k1 key pair. Clients and tests use it to sign
// cancel and match requests.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// GenerateKey creates a new random key pair.
func GenerateKey() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Signer{privateKey: privateKey, address: crypto.PubkeyToAddress(privateKey.PublicKey)}, nil
}

// FromPrivateKeyHex loads a key from 64 hex chars, with or without 0x.
func FromPrivateKeyHex(hexKey string) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &Signer{privateKey: privateKey, address: crypto.PubkeyToAddress(privateKey.PublicKey)}, nil
}

// Address is the lowercase 0x-prefixed address the exchange sees as caller.
func (s *Signer) Address() string {
	return NormalizeAddress(s.address.Hex())
}

// PrivateKeyHex returns the private key as 64 hex chars without 0x.
func (s *Signer) PrivateKeyHex() string {
	return common.Bytes2Hex(crypto.FromECDSA(s.privateKey))
}

// SignRequest signs the canonical message for op over ids and nonce and
// returns the 65-byte [R || S || V] signature hex-encoded with 0x.
func (s *Signer) SignRequest(op Op, ids []string, nonce uint64) (string, error) {
	sig, err := crypto.Sign(MessageHash(op, ids, nonce), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	sig[64] += 27
	return "0x" + common.Bytes2Hex(sig), nil
}

// Op names the operation a signature authorizes.
type Op string

const (
	OpCancelAsk Op = "cancel_ask"
	OpCancelBid Op = "cancel_bid"
	OpMatch     Op = "match"
)

// Message is "<op>:<id>[:<id>...]:<nonce>".
func Message(op Op, ids []string, nonce uint64) string {
	parts := make([]string, 0, len(ids)+2)
	parts = append(parts, string(op))
	parts = append(parts, ids...)
	parts = append(parts, strconv.FormatUint(nonce, 10))
	return strings.Join(parts, ":")
}

// MessageHash is the EIP-191 personal-sign digest of Message, so wallets can
// produce the signature with personal_sign.
func MessageHash(op Op, ids []string, nonce uint64) []byte {
	msg := Message(op, ids, nonce)
	return crypto.Keccak256([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)))
}

// NormalizeAddress lowercases hex addresses so checksummed and plain forms
// compare equal. Other strings are returned unchanged.
func NormalizeAddress(addr string) string {
	if common.IsHexAddress(addr) {
		return strings.ToLower(common.HexToAddress(addr).Hex())
	}
	return addr
}

// RecoverAddress returns the address that produced a 65-byte signature over
// hash. V may be 0/1 or 27/28.
func RecoverAddress(hash, signature []byte) (string, error) {
	if len(signature) != 65 {
		return "", fmt.Errorf("invalid signature length: %d", len(signature))
	}
	if len(hash) != 32 {
		return "", fmt.Errorf("invalid hash length: %d", len(hash))
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", err)
	}
	return NormalizeAddress(crypto.PubkeyToAddress(*pub).Hex()), nil
}
