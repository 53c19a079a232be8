package usecase

import (
	"context"
	"crypto/sha256"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appsDomain "github.com/allisson/eventhub/internal/apps/domain"
	appsService "github.com/allisson/eventhub/internal/apps/service"
	apperrors "github.com/allisson/eventhub/internal/errors"
)

// verifiedKeyTTL bounds how long a successful Argon2id comparison is reused.
const verifiedKeyTTL = time.Minute

type verifiedKey struct {
	hash    string
	expires time.Time
}

type applicationUseCase struct {
	appRepo    ApplicationRepository
	keyService appsService.KeyService

	// verified maps sha256(api key) to the hash it matched, avoiding Argon2id on every request.
	verified sync.Map
}

// NewApplicationUseCase creates a new ApplicationUseCase.
func NewApplicationUseCase(appRepo ApplicationRepository, keyService appsService.KeyService) ApplicationUseCase {
	return &applicationUseCase{
		appRepo:    appRepo,
		keyService: keyService,
	}
}

func (a *applicationUseCase) Create(ctx context.Context, name string) (*appsDomain.CreateApplicationOutput, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appsDomain.ErrNameRequired
	}

	plain, hashed, err := a.keyService.Generate()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	app := &appsDomain.Application{
		ID:         uuid.Must(uuid.NewV7()),
		Name:       name,
		Status:     appsDomain.StatusActive,
		APIKeyHash: hashed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.appRepo.Create(ctx, app); err != nil {
		return nil, err
	}

	return &appsDomain.CreateApplicationOutput{
		ID:     app.ID,
		APIKey: appsDomain.FormatAPIKey(app.ID, plain),
	}, nil
}

func (a *applicationUseCase) Get(ctx context.Context, id uuid.UUID) (*appsDomain.Application, error) {
	return a.appRepo.Get(ctx, id)
}

func (a *applicationUseCase) UpdateStatus(ctx context.Context, id uuid.UUID, status appsDomain.Status) error {
	if _, err := appsDomain.ParseStatus(string(status)); err != nil {
		return err
	}
	return a.appRepo.UpdateStatus(ctx, id, status, time.Now().UTC())
}

func (a *applicationUseCase) Authenticate(ctx context.Context, apiKey string) (*appsDomain.Application, error) {
	id, secret, err := appsDomain.ParseAPIKey(apiKey)
	if err != nil {
		return nil, err
	}

	app, err := a.appRepo.Get(ctx, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, appsDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !a.verify(apiKey, secret, app.APIKeyHash) {
		return nil, appsDomain.ErrInvalidCredentials
	}

	if !app.IsActive() {
		return nil, appsDomain.ErrApplicationSuspended
	}

	return app, nil
}

func (a *applicationUseCase) verify(apiKey, secret, hash string) bool {
	digest := sha256.Sum256([]byte(apiKey))
	now := time.Now()

	if v, ok := a.verified.Load(digest); ok {
		entry := v.(verifiedKey)
		if entry.hash == hash && now.Before(entry.expires) {
			return true
		}
		a.verified.Delete(digest)
	}

	if !a.keyService.Compare(secret, hash) {
		return false
	}
	a.verified.Store(digest, verifiedKey{hash: hash, expires: now.Add(verifiedKeyTTL)})
	return true
}
