package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"

	"gocloud.dev/secrets"

	apperrors "github.com/allisson/eventhub/internal/errors"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// signingSecretPrefix marks generated webhook signing secrets.
const signingSecretPrefix = "whsec_"

// Sealer encrypts subscription signing secrets at rest.
type Sealer interface {
	// Enabled reports whether subscriptions get a signing secret at all.
	Enabled() bool
	// GenerateSecret returns a new plain signing secret and its sealed form.
	GenerateSecret(ctx context.Context) (plain string, sealed []byte, err error)
	// Open decrypts a sealed signing secret.
	Open(ctx context.Context, sealed []byte) ([]byte, error)
	Close() error
}

type keeperSealer struct {
	keeper *secrets.Keeper
}

// NewSealer opens a gocloud.dev secrets keeper for keeperURL. Supports gcpkms://,
// awskms://, azurekeyvault://, hashivault:// and base64key://. An empty URL returns a
// disabled Sealer.
func NewSealer(ctx context.Context, keeperURL string) (Sealer, error) {
	if keeperURL == "" {
		return NewNoOpSealer(), nil
	}
	keeper, err := secrets.OpenKeeper(ctx, keeperURL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open secrets keeper")
	}
	return &keeperSealer{keeper: keeper}, nil
}

func (k *keeperSealer) Enabled() bool {
	return true
}

func (k *keeperSealer) GenerateSecret(ctx context.Context) (string, []byte, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, apperrors.Wrap(err, "failed to generate signing secret")
	}
	plain := signingSecretPrefix + base64.RawURLEncoding.EncodeToString(raw)

	sealed, err := k.keeper.Encrypt(ctx, []byte(plain))
	if err != nil {
		return "", nil, apperrors.Wrap(err, "failed to seal signing secret")
	}
	return plain, sealed, nil
}

func (k *keeperSealer) Open(ctx context.Context, sealed []byte) ([]byte, error) {
	plain, err := k.keeper.Decrypt(ctx, sealed)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open signing secret")
	}
	return plain, nil
}

func (k *keeperSealer) Close() error {
	return k.keeper.Close()
}

type noOpSealer struct{}

// NewNoOpSealer returns a Sealer that never issues signing secrets.
func NewNoOpSealer() Sealer {
	return noOpSealer{}
}

func (noOpSealer) Enabled() bool { return false }

func (noOpSealer) GenerateSecret(context.Context) (string, []byte, error) { return "", nil, nil }

func (noOpSealer) Open(context.Context, []byte) ([]byte, error) { return nil, nil }

func (noOpSealer) Close() error { return nil }
