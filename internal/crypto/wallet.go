package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/econagent/internal/domain"
)

var _ domain.WalletGenerator = (*Wallets)(nil)

// Wallets generates secp256k1 wallets for sub-agents and keeps their keys
// in memory for the process lifetime.
type Wallets struct {
	mu   sync.Mutex
	keys map[string]*ecdsa.PrivateKey
}

// NewWallets creates an empty wallet generator.
func NewWallets() *Wallets {
	return &Wallets{keys: make(map[string]*ecdsa.PrivateKey)}
}

// NewWallet generates a key and returns its address.
func (w *Wallets) NewWallet() (string, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("crypto: generate wallet: %w", err)
	}
	addr := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	w.mu.Lock()
	w.keys[addr] = key
	w.mu.Unlock()
	return addr, nil
}

func (w *Wallets) key(address string) (*ecdsa.PrivateKey, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	k, ok := w.keys[address]
	return k, ok
}
