package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/eventhub/internal/database"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
	eventsService "github.com/allisson/eventhub/internal/events/service"
	"github.com/allisson/eventhub/internal/validation"
)

type subscriptionUseCase struct {
	txManager database.TxManager
	subRepo   SubscriptionRepository
	sealer    eventsService.Sealer
}

// NewSubscriptionUseCase creates a new SubscriptionUseCase.
func NewSubscriptionUseCase(
	txManager database.TxManager,
	subRepo SubscriptionRepository,
	sealer eventsService.Sealer,
) SubscriptionUseCase {
	return &subscriptionUseCase{
		txManager: txManager,
		subRepo:   subRepo,
		sealer:    sealer,
	}
}

func (s *subscriptionUseCase) Subscribe(
	ctx context.Context,
	input eventsDomain.SubscribeInput,
) (*eventsDomain.SubscribeOutput, error) {
	input.EventType = strings.TrimSpace(input.EventType)
	input.WebhookURL = strings.TrimSpace(input.WebhookURL)
	if err := validateSubscribeInput(&input); err != nil {
		return nil, err
	}

	output, err := s.upsert(ctx, input)
	// A concurrent subscribe for the same key won the insert; the retry reactivates it.
	if database.IsUniqueViolation(err) {
		output, err = s.upsert(ctx, input)
	}
	return output, err
}

func (s *subscriptionUseCase) upsert(
	ctx context.Context,
	input eventsDomain.SubscribeInput,
) (*eventsDomain.SubscribeOutput, error) {
	var output *eventsDomain.SubscribeOutput

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		existing, err := s.subRepo.GetByKey(ctx, input.AppID, input.EventType, input.WebhookURL)
		if err != nil && !errors.Is(err, eventsDomain.ErrSubscriptionNotFound) {
			return err
		}

		if existing != nil {
			existing.FilterCriteria = input.FilterCriteria
			existing.DeliveryMode = input.DeliveryMode
			existing.IsActive = true
			existing.UpdatedAt = now

			// Subscriptions stored while signing was disabled get their first secret here.
			var plain string
			if len(existing.SigningSecret) == 0 && s.sealer.Enabled() {
				var sealed []byte
				if plain, sealed, err = s.sealer.GenerateSecret(ctx); err != nil {
					return err
				}
				existing.SigningSecret = sealed
			}

			if err := s.subRepo.Update(ctx, existing); err != nil {
				return err
			}
			output = &eventsDomain.SubscribeOutput{
				Subscription:  existing,
				SigningSecret: plain,
				Reactivated:   true,
			}
			return nil
		}

		sub := &eventsDomain.Subscription{
			ID:             uuid.Must(uuid.NewV7()),
			AppID:          input.AppID,
			EventType:      input.EventType,
			WebhookURL:     input.WebhookURL,
			FilterCriteria: input.FilterCriteria,
			DeliveryMode:   input.DeliveryMode,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		var plain string
		if s.sealer.Enabled() {
			var sealed []byte
			if plain, sealed, err = s.sealer.GenerateSecret(ctx); err != nil {
				return err
			}
			sub.SigningSecret = sealed
		}

		if err := s.subRepo.Create(ctx, sub); err != nil {
			return err
		}
		output = &eventsDomain.SubscribeOutput{Subscription: sub, SigningSecret: plain}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

func (s *subscriptionUseCase) Unsubscribe(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.subRepo.Deactivate(ctx, id, time.Now().UTC())
}

func (s *subscriptionUseCase) ActiveSubscriptions(
	ctx context.Context,
	eventType string,
) ([]*eventsDomain.Subscription, error) {
	return s.subRepo.ListActiveByEventType(ctx, eventType)
}

func (s *subscriptionUseCase) Get(ctx context.Context, id uuid.UUID) (*eventsDomain.Subscription, error) {
	return s.subRepo.Get(ctx, id)
}

func (s *subscriptionUseCase) ListByApp(
	ctx context.Context,
	appID uuid.UUID,
	offset, limit int,
) ([]*eventsDomain.Subscription, int, error) {
	subs, err := s.subRepo.ListByApp(ctx, appID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.subRepo.CountByApp(ctx, appID)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func validateSubscribeInput(input *eventsDomain.SubscribeInput) error {
	if input.EventType == "" {
		return eventsDomain.ErrEventTypeRequired
	}
	if input.WebhookURL == "" {
		return eventsDomain.ErrWebhookURLRequired
	}
	if err := validation.WebhookURL.Validate(input.WebhookURL); err != nil {
		return validation.WrapValidationError(err)
	}
	if err := validation.FlatFilter.Validate(input.FilterCriteria); err != nil {
		return validation.WrapValidationError(err)
	}
	mode, err := eventsDomain.ParseDeliveryMode(string(input.DeliveryMode))
	if err != nil {
		return err
	}
	input.DeliveryMode = mode
	return nil
}
