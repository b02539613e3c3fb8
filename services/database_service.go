package services

import (
	"context"

	"sispay/entity"
)

// Database is the persistence collaborator. Transactions are owned by the
// external order system; this core only looks them up and advances state.
type Database interface {
	WriteLogMessage(data Data) error

	// FindTransactions returns every transaction matching reference.
	// The callback processor enforces the exactly-one rule itself.
	FindTransactions(ctx context.Context, reference string) ([]*entity.Transaction, error)
	UpdateTransaction(ctx context.Context, transaction *entity.Transaction) error

	GetRecurringToken(ctx context.Context, identifier string) (*entity.RecurringToken, error)
	SaveRecurringToken(ctx context.Context, token *entity.RecurringToken) error

	SavePaymentResult(ctx context.Context, result *entity.PaymentResult) error
}

type Data interface {
	DataType() string
}
