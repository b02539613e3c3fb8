package internal

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"

	"sispay/config"
	"sispay/entity"
	"sispay/faults"
	"sispay/services"
)

// TransactionStore is the slice of persistence the callback processor needs:
// find the transactions for a reference and write back the advanced one.
type TransactionStore interface {
	FindTransactions(ctx context.Context, reference string) ([]*entity.Transaction, error)
	UpdateTransaction(ctx context.Context, transaction *entity.Transaction) error
}

// CallbackResult is the outcome of processing one gateway callback.
type CallbackResult struct {
	Transaction *entity.Transaction
	State       entity.TransactionState
	// Success mirrors the gateway contract: every mapped state except
	// error counts as a successfully processed callback.
	Success bool
	// Flagged marks soft failures recorded in test mode instead of
	// failing hard: missing fields, unknown transaction, bad signature
	// or invalid parameters.
	Flagged bool
	// InvalidParameters lists business-invariant mismatches found while
	// reconciling the callback against the transaction.
	InvalidParameters []faults.InvalidParameter
}

// CallbackProcessor reconciles gateway callbacks against local transaction
// state. Steps: decode, extract, verify, validate, map status, apply the
// idempotent transition and fire collaborator hooks.
//
// The processor serializes itself per order reference: the host may deliver
// callbacks concurrently, but at most one state transition runs at a time
// for any given reference.
type CallbackProcessor struct {
	merchant *config.Merchant
	store    TransactionStore
	orders   services.OrderSystem
	logger   services.LogHandler
	metrics  *Metrics
	// testMode downgrades hard failures to soft flags so synthetic
	// callbacks can exercise the pipeline. Threaded explicitly instead of
	// read from global state.
	testMode bool
	locks    sync.Map // map[string]*sync.Mutex keyed by reference
}

func NewCallbackProcessor(merchant *config.Merchant, store TransactionStore, orders services.OrderSystem, testMode bool) *CallbackProcessor {
	return &CallbackProcessor{
		merchant: merchant,
		store:    store,
		orders:   orders,
		testMode: testMode,
	}
}

func (p *CallbackProcessor) SetLogger(logger services.LogHandler) {
	p.logger = logger
}

func (p *CallbackProcessor) SetMetrics(metrics *Metrics) {
	p.metrics = metrics
}

// MapResponseState maps a gateway status code onto a transaction state.
// Boundaries are inclusive; anything outside the three ranges is an error.
func MapResponseState(code int) entity.TransactionState {
	switch {
	case code >= 0 && code <= 100:
		return entity.StateDone
	case code >= 101 && code <= 203:
		return entity.StatePending
	case code >= 912 && code <= 9912:
		return entity.StateCancelled
	default:
		return entity.StateError
	}
}

// lockReference acquires the exclusive lock for an order reference. Entries
// are never removed from the map: a goroutine blocked on the stored mutex
// keeps using it after waking, so deleting the entry on unlock would let the
// next caller mint a second mutex for the same reference and run the critical
// section concurrently. The map is bounded by the set of references seen.
func (p *CallbackProcessor) lockReference(reference string) *sync.Mutex {
	value, _ := p.locks.LoadOrStore(reference, &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()
	return mutex
}

// Process runs the full callback pipeline and returns the reconciled
// transaction. Decode failures are always fatal; the remaining hard
// failures become soft flags in test mode.
func (p *CallbackProcessor) Process(ctx context.Context, callback entity.InboundCallback) (*CallbackResult, error) {
	params, err := DecodeParameters(callback.Parameters)
	if err != nil {
		return nil, err
	}

	result := &CallbackResult{}

	reference := params[entity.ParamOrder]
	if unescaped, uerr := url.QueryUnescape(reference); uerr == nil {
		reference = unescaped
	}
	authCode := params[entity.ParamAuthorisationCode]

	if reference == "" || authCode == "" || callback.Signature == "" {
		err := faults.Ef(faults.MalformedCallback,
			"missing reference (%q), authorisation code (%q) or signature (%q)",
			reference, authCode, callback.Signature)
		if !p.testMode {
			return result, err
		}
		p.warn(err.Error())
		result.Flagged = true
	}

	mutex := p.lockReference(reference)
	defer mutex.Unlock()

	transaction, err := p.findTransaction(ctx, reference)
	if err != nil {
		if !p.testMode {
			return result, err
		}
		p.warn(err.Error())
		result.Flagged = true
	}
	if transaction == nil {
		return result, nil
	}
	result.Transaction = transaction

	if !p.testMode {
		verified, err := VerifySignature(p.merchant.Secret, callback.Parameters, callback.Signature)
		if err != nil {
			return result, err
		}
		if !verified {
			p.metrics.SignatureFailure()
			return result, faults.Ef(faults.SignatureMismatch,
				"invalid signature for reference %s", reference)
		}
	}

	result.InvalidParameters = p.invalidParameters(transaction, params)
	if len(result.InvalidParameters) > 0 {
		if !p.testMode {
			ve := &faults.ValidationError{Parameters: result.InvalidParameters}
			return result, ve.Wrap()
		}
		result.Flagged = true
	}

	state := entity.StateError
	if code, cerr := strconv.Atoi(params[entity.ParamResponse]); cerr == nil {
		state = MapResponseState(code)
	}
	result.State = state

	if err := p.applyTransition(ctx, transaction, state, params); err != nil {
		return result, err
	}

	result.Success = transaction.State != entity.StateError
	p.metrics.CallbackProcessed(string(state))
	return result, nil
}

// findTransaction enforces the exactly-one lookup rule.
func (p *CallbackProcessor) findTransaction(ctx context.Context, reference string) (*entity.Transaction, error) {
	matches, err := p.store.FindTransactions(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("lookup transaction %s: %w", reference, err)
	}
	if len(matches) == 0 {
		return nil, faults.Ef(faults.UnknownTransaction, "no transaction for reference %s", reference)
	}
	if len(matches) > 1 {
		return nil, faults.Ef(faults.UnknownTransaction, "multiple transactions for reference %s", reference)
	}
	return matches[0], nil
}

// invalidParameters reconciles the echoed reference and amount against the
// transaction. The partial-percent reduction is recomputed from the stored
// full amount, never written back, so it can never be applied twice.
func (p *CallbackProcessor) invalidParameters(transaction *entity.Transaction, params map[string]string) []faults.InvalidParameter {
	var invalid []faults.InvalidParameter

	echoedOrder := params[entity.ParamOrder]
	if transaction.AcquirerReference != "" && echoedOrder != transaction.AcquirerReference {
		invalid = append(invalid, faults.InvalidParameter{
			Field:    "Transaction Id",
			Received: echoedOrder,
			Expected: transaction.AcquirerReference,
		})
	}

	expected := ChargeableAmount(transaction.Amount, p.merchant.PercentPartial)
	received, err := strconv.ParseFloat(params[entity.ParamAmount], 64)
	if err != nil {
		received = 0
	}
	// Ds_Amount arrives in minor units; compare to 2-decimal precision
	if math.Round(received) != math.Round(expected*100) {
		invalid = append(invalid, faults.InvalidParameter{
			Field:    "Amount",
			Received: params[entity.ParamAmount],
			Expected: fmt.Sprintf("%.2f", expected),
		})
	}
	return invalid
}

// applyTransition advances the transaction and fires the order hooks. A
// terminal transaction is left untouched: the duplicate callback neither
// changes state nor re-fires confirmation.
func (p *CallbackProcessor) applyTransition(ctx context.Context, transaction *entity.Transaction, state entity.TransactionState, params map[string]string) error {
	response := params[entity.ParamResponse]
	errorCode := params[entity.ParamErrorCode]

	var message string
	switch state {
	case entity.StateDone:
		message = fmt.Sprintf("ok: %s", response)
	case entity.StatePending:
		message = fmt.Sprintf("pending: %s (%s)", response, errorCode)
	case entity.StateCancelled:
		message = fmt.Sprintf("bank error: %s (%s)", response, errorCode)
	default:
		message = fmt.Sprintf("feedback error: %s (%s)", response, errorCode)
		p.warn(message)
	}

	if !transaction.Advance(state, message) {
		p.warn(fmt.Sprintf("reference %s already %s, callback %s ignored",
			transaction.Reference, transaction.State, response))
		return nil
	}

	if transaction.AcquirerReference == "" {
		transaction.AcquirerReference = params[entity.ParamOrder]
	}
	if code := params[entity.ParamAuthorisationCode]; code != "" {
		transaction.AuthorisationCode = code
	}

	if err := p.store.UpdateTransaction(ctx, transaction); err != nil {
		return fmt.Errorf("update transaction %s: %w", transaction.Reference, err)
	}

	if p.testMode || p.orders == nil {
		return nil
	}
	switch state {
	case entity.StateDone:
		if err := p.orders.ConfirmOrder(ctx, transaction); err != nil {
			// the payment settled; order confirmation is recoverable
			p.error("confirm order", err)
		}
	case entity.StatePending:
		if p.merchant.PercentPartial > 0 {
			if err := p.orders.SendQuoteNotification(ctx, transaction); err != nil {
				p.error("send quote notification", err)
			}
		}
	}
	return nil
}

func (p *CallbackProcessor) warn(message string) {
	if p.logger != nil {
		p.logger.Warn(message)
	}
}

func (p *CallbackProcessor) error(message string, err error) {
	if p.logger != nil {
		p.logger.Error(message, err)
	}
}
