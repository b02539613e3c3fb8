package internal

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"sispay/config"
	"sispay/entity"
	"sispay/services"
)

// Builder assembles signed outbound payloads for the two supported flows:
// hosted-form redirect payments and merchant-initiated recurring charges.
type Builder struct {
	merchant *config.Merchant
	orders   services.OrderSystem
	logger   services.LogHandler
}

func NewBuilder(merchant *config.Merchant, orders services.OrderSystem) *Builder {
	return &Builder{
		merchant: merchant,
		orders:   orders,
	}
}

func (b *Builder) SetLogger(logger services.LogHandler) {
	b.logger = logger
}

// ChargeableAmount applies the configured partial-payment reduction to the
// full order amount. The reduction happens exactly once per flow; callers
// must never write the result back into the transaction.
func ChargeableAmount(amount float64, percentPartial float64) float64 {
	if percentPartial <= 0 {
		return amount
	}
	return amount - amount*percentPartial/100
}

// MinorUnits converts a 2-decimal amount to the integer string the gateway
// expects, e.g. 49.99 -> "4999".
func MinorUnits(amount float64) string {
	return strconv.Itoa(int(math.Round(amount * 100)))
}

// HostedFormRequest builds the signed payload for a browser-redirect payment.
func (b *Builder) HostedFormRequest(ctx context.Context, tx *entity.Transaction) (*entity.PaymentRequest, error) {
	m := b.merchant
	amount := ChargeableAmount(tx.Amount, m.PercentPartial)

	notifyBase := m.CallbackURL
	if notifyBase == "" {
		notifyBase = m.BaseURL
	}

	description := b.productDescription(ctx, tx.Reference)

	parameters := &entity.MerchantParameters{
		Amount:             MinorUnits(amount),
		Currency:           m.Currency,
		Order:              lastChars(tx.Reference, 12),
		MerchantCode:       firstChars(m.Code, 9),
		Terminal:           m.Terminal,
		TransactionType:    m.TransactionType,
		Titular:            firstChars(tx.Payer, 60),
		MerchantName:       firstChars(m.Name, 25),
		MerchantURL:        firstChars(notifyBase+"/payment/redsys/return", 250),
		MerchantData:       m.MerchantData,
		ProductDescription: description,
		ConsumerLanguage:   m.ConsumerLanguage,
		URLOK:              m.BaseURL + "/payment/redsys/result/redsys_result_ok",
		URLKO:              m.BaseURL + "/payment/redsys/result/redsys_result_ko",
		PayMethods:         m.PayMethod,
	}

	request, err := b.signedRequest(parameters, parameters.Order)
	if err != nil {
		return nil, err
	}
	request.APIURL = m.FormActionURL()
	return request, nil
}

// RecurringChargeRequest builds the signed payload for a merchant-initiated
// charge against a stored token. The full stored amount is charged; the
// partial-payment reduction does not apply to recurring flows.
func (b *Builder) RecurringChargeRequest(tx *entity.Transaction, token *entity.RecurringToken) (*entity.PaymentRequest, error) {
	m := b.merchant
	parameters := &entity.RecurringParameters{
		Identifier:      token.Identifier,
		CofIni:          "N",
		CofTxnID:        token.TxnID,
		MerchantCode:    firstChars(m.Code, 9),
		TransactionType: m.TransactionType,
		Exception:       "MIT",
		DirectPayment:   "true",
		Order:           lastChars(tx.Reference, 12),
		Terminal:        m.Terminal,
		Currency:        m.Currency,
		Amount:          MinorUnits(tx.Amount),
	}

	request, err := b.signedRequest(parameters, parameters.Order)
	if err != nil {
		return nil, err
	}
	request.APIURL = m.RestURL()
	return request, nil
}

func (b *Builder) signedRequest(parameters any, order string) (*entity.PaymentRequest, error) {
	encoded, err := EncodeParameters(parameters)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}

	signature, err := NewEncryptor(b.merchant.Secret, encoded, order).CreateSignature()
	if err != nil {
		return nil, fmt.Errorf("create signature: %w", err)
	}

	return &entity.PaymentRequest{
		Parameters:       encoded,
		Signature:        signature,
		SignatureVersion: b.merchant.SignatureVersion,
	}, nil
}

func (b *Builder) productDescription(ctx context.Context, reference string) string {
	if b.orders != nil {
		description, err := b.orders.OrderDescription(ctx, reference)
		if err != nil && b.logger != nil {
			b.logger.Error("resolve order description", err)
		}
		if description != "" {
			return firstChars(description, 125)
		}
	}
	return firstChars(b.merchant.Description, 125)
}

// Field widths count characters, not bytes; truncation must never split a
// multi-byte rune.
func firstChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

func lastChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[len(runes)-n:])
	}
	return s
}
