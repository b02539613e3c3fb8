package services

import (
	"context"

	"sispay/entity"
)

// Payments is the service surface exposed to the HTTP layer.
type Payments interface {
	// BuildHostedForm returns the signed redirect payload for a pending
	// transaction, ready to be rendered into a gateway form.
	BuildHostedForm(ctx context.Context, reference string) (*entity.PaymentRequest, error)
	// Notify processes a raw gateway callback body (form-encoded fields).
	Notify(ctx context.Context, data []byte) error
	// ChargeRecurring performs a synchronous merchant-initiated charge
	// against the transaction's stored token.
	ChargeRecurring(ctx context.Context, reference string) (*entity.Transaction, error)
	// RegisterToken stores an acquirer-issued token and links it to the
	// transaction so later merchant-initiated charges can use it.
	RegisterToken(ctx context.Context, reference string, token *entity.RecurringToken) error
}

// OrderSystem is the external order-management collaborator. Hooks are
// invoked on state transitions; the core never touches orders directly.
type OrderSystem interface {
	// OrderDescription resolves a product description for the reference,
	// 125 characters max. Empty string means no description available.
	OrderDescription(ctx context.Context, reference string) (string, error)
	// ConfirmOrder is invoked once when a transaction first reaches done.
	ConfirmOrder(ctx context.Context, transaction *entity.Transaction) error
	// SendQuoteNotification is invoked when a partial payment goes pending.
	SendQuoteNotification(ctx context.Context, transaction *entity.Transaction) error
	// PaymentCompleted is invoked after a successful recurring charge.
	PaymentCompleted(ctx context.Context, transaction *entity.Transaction) error
}

// GatewayClient posts a signed request to the gateway REST endpoint and
// returns the raw response body. Implementations must honour ctx deadlines.
type GatewayClient interface {
	Post(ctx context.Context, url string, request *entity.PaymentRequest) ([]byte, error)
}

// LogHandler is the logging collaborator used across the service.
type LogHandler interface {
	Debug(message string)
	Info(message string)
	Warn(message string)
	Error(message string, err error)
}
