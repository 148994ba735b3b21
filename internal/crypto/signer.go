package crypto

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer signs transfer intents with the agent's wallet key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner wraps key.
func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, address: ethcrypto.PubkeyToAddress(key.PublicKey)}
}

// Address returns the checksummed wallet address.
func (s *Signer) Address() string { return s.address.Hex() }

// TransferDigest is the keccak256 hash of a transfer intent.
func TransferDigest(from, to string, amount float64, nonce uint64) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], math.Float64bits(amount))
	binary.BigEndian.PutUint64(buf[8:], nonce)
	return ethcrypto.Keccak256(
		common.HexToAddress(from).Bytes(),
		common.HexToAddress(to).Bytes(),
		buf[:],
	)
}

// SignTransfer signs the transfer intent and returns the 65-byte signature.
func (s *Signer) SignTransfer(to string, amount float64, nonce uint64) ([]byte, error) {
	sig, err := ethcrypto.Sign(TransferDigest(s.Address(), to, amount, nonce), s.key)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: sign transfer: %w", err)
	}
	return sig, nil
}

// VerifyTransfer reports whether sig was produced by from over the intent.
func VerifyTransfer(from, to string, amount float64, nonce uint64, sig []byte) bool {
	pub, err := ethcrypto.SigToPub(TransferDigest(from, to, amount, nonce), sig)
	if err != nil {
		return false
	}
	return ethcrypto.PubkeyToAddress(*pub) == common.HexToAddress(from)
}

// TxRef derives a transaction reference from arbitrary parts.
func TxRef(parts ...[]byte) string {
	return hexutil.Encode(ethcrypto.Keccak256(parts...))
}

// ValidAddress reports whether s is a 20-byte hex address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}
