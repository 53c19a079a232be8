// Package service provides outbound webhook delivery and signing-secret sealing.
package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apperrors "github.com/allisson/eventhub/internal/errors"
	eventsDomain "github.com/allisson/eventhub/internal/events/domain"
)

// Webhook request headers.
const (
	HeaderEventID         = "X-Hub-Event-ID"
	HeaderEventType       = "X-Hub-Event-Type"
	HeaderDeliveryAttempt = "X-Hub-Delivery-Attempt"
	HeaderSignature       = "X-Hub-Signature"
)

// DeliveryRequest is one webhook POST.
type DeliveryRequest struct {
	URL      string
	Envelope eventsDomain.Envelope
	Attempt  int
	// Secret is the plain signing key; deliveries are unsigned when empty.
	Secret []byte
}

// DeliveryResult describes the subscriber response. StatusCode is zero when no response
// was received.
type DeliveryResult struct {
	StatusCode int
	Body       string
	Duration   time.Duration
}

// WebhookSender performs webhook deliveries.
type WebhookSender interface {
	// Send POSTs the envelope. The result is always non-nil; the error is set on transport
	// failures, timeouts and non-2xx responses.
	Send(ctx context.Context, req DeliveryRequest) (*DeliveryResult, error)
}

type webhookSender struct {
	client *http.Client
}

// NewWebhookSender creates a WebhookSender bounding each attempt by timeout. Trace
// context is propagated to subscribers.
func NewWebhookSender(timeout time.Duration) WebhookSender {
	return NewWebhookSenderWithClient(&http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewWebhookSenderWithClient creates a WebhookSender on a caller-provided client.
func NewWebhookSenderWithClient(client *http.Client) WebhookSender {
	return &webhookSender{client: client}
}

func (w *webhookSender) Send(ctx context.Context, req DeliveryRequest) (*DeliveryResult, error) {
	result := &DeliveryResult{}

	body, err := json.Marshal(req.Envelope)
	if err != nil {
		return result, apperrors.Wrap(err, "failed to marshal envelope")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(body))
	if err != nil {
		return result, apperrors.Wrap(err, "failed to build webhook request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(HeaderEventID, req.Envelope.EventID.String())
	httpReq.Header.Set(HeaderEventType, req.Envelope.EventType)
	httpReq.Header.Set(HeaderDeliveryAttempt, strconv.Itoa(req.Attempt))
	if len(req.Secret) > 0 {
		httpReq.Header.Set(HeaderSignature, Sign(req.Secret, body))
	}

	start := time.Now()
	resp, err := w.client.Do(httpReq)
	result.Duration = time.Since(start)
	if err != nil {
		return result, apperrors.Wrap(err, "webhook request failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	result.StatusCode = resp.StatusCode
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, eventsDomain.MaxResponseBodyBytes))
	result.Body = string(respBody)
	result.Duration = time.Since(start)
	if err != nil {
		return result, apperrors.Wrap(err, "failed to read webhook response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, fmt.Errorf("subscriber responded with status %d", resp.StatusCode)
	}
	return result, nil
}

// Sign returns the X-Hub-Signature value for body: "sha256=" followed by the hex HMAC.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
