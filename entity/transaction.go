// Package entity defines data models for the sispay payment core.
package entity

// TransactionState is the local reconciliation state of a payment attempt.
type TransactionState string

const (
	// StatePendingCreation is the initial state before any gateway feedback.
	StatePendingCreation TransactionState = "pending_creation"
	// StatePending means the gateway acknowledged the payment but it is not settled yet.
	StatePending TransactionState = "pending"
	// StateDone is the terminal success state.
	StateDone TransactionState = "done"
	// StateCancelled is the terminal failure state (bank refused or unavailable).
	StateCancelled TransactionState = "cancelled"
	// StateError marks an unmapped or broken gateway response.
	StateError TransactionState = "error"
)

// Terminal reports whether no further transition is permitted from s.
func (s TransactionState) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

// Transaction is a payment attempt for an external order reference.
// It is created by the order system and mutated only by callback processing.
type Transaction struct {
	// Reference is the external order id; the last 12 characters are
	// significant for signing.
	Reference string `json:"reference" bson:"reference"`
	// Amount is the full order amount with 2-decimal precision.
	Amount float64 `json:"amount" bson:"amount"`
	// Payer is the display name of the paying customer.
	Payer string `json:"payer" bson:"payer"`
	// State is the current reconciliation state.
	State TransactionState `json:"state" bson:"state"`
	// StateMessage is a human-readable message carrying the raw gateway
	// response and error codes for support diagnosis.
	StateMessage string `json:"state_message" bson:"state_message"`
	// AcquirerReference is the order reference echoed back by the acquirer
	// on the first callback; later callbacks must match it.
	AcquirerReference string `json:"acquirer_reference" bson:"acquirer_reference"`
	// AuthorisationCode is the acquirer-assigned authorisation code.
	AuthorisationCode string `json:"authorisation_code" bson:"authorisation_code"`
	// TokenIdentifier links the transaction to a stored recurring token.
	TokenIdentifier string `json:"token_identifier,omitempty" bson:"token_identifier"`
	// RenewalAllowed is set after a successful merchant-initiated charge.
	RenewalAllowed bool `json:"renewal_allowed" bson:"renewal_allowed"`
}

// Advance moves the transaction into next and reports whether the transition
// was applied. Terminal states are never overwritten: a second callback for
// the same reference leaves the record as it was.
func (t *Transaction) Advance(next TransactionState, message string) bool {
	if t.State.Terminal() {
		return false
	}
	t.State = next
	t.StateMessage = message
	return true
}

// RecurringToken is an acquirer-issued credential for merchant-initiated
// transactions. Identifier is the stored card token, TxnID the network
// transaction id from the initial cardholder-present authorisation.
type RecurringToken struct {
	Identifier string `json:"identifier" bson:"identifier"`
	TxnID      string `json:"txnid" bson:"txnid"`
	UserID     string `json:"user_id,omitempty" bson:"user_id"`
}
