package crypto

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/uhyunpark/bilateral/pkg/errs"
	"github.com/uhyunpark/bilateral/pkg/storage"
)

// Authenticator recovers the caller of a signed request and enforces
// strictly increasing per-signer nonces, persisted so a restart does not
// reopen replays.
type Authenticator struct {
	mu     sync.Mutex
	store  *storage.PebbleStore
	nonces *storage.NonceStore
	log    *zap.SugaredLogger
}

func NewAuthenticator(store *storage.PebbleStore, log *zap.SugaredLogger) *Authenticator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Authenticator{store: store, nonces: storage.NewNonceStore(), log: log}
}

// Authenticate returns the signer of op over ids and nonce. The nonce is
// consumed even if the operation it authorizes later fails.
func (a *Authenticator) Authenticate(_ context.Context, op Op, ids []string, nonce uint64, signature string) (string, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return "", errs.Wrap(errs.CodeUnauthorized, "invalid signature", err)
	}
	caller, err := RecoverAddress(MessageHash(op, ids, nonce), sig)
	if err != nil {
		return "", errs.Wrap(errs.CodeUnauthorized, "invalid signature", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	var fresh bool
	err = a.store.Update(func(kv storage.KV) error {
		var err error
		fresh, err = a.nonces.Advance(kv, caller, nonce)
		return err
	})
	if err != nil {
		return "", err
	}
	if !fresh {
		a.log.Warnw("request_nonce_replayed", "op", op, "caller", caller, "nonce", nonce)
		return "", errs.New(errs.CodeUnauthorized, fmt.Sprintf("nonce %d was already used by %s", nonce, caller))
	}
	return caller, nil
}

func decodeSignature(sig string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex signature: %w", err)
	}
	if len(b) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(b))
	}
	return b, nil
}
