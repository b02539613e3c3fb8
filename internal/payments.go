package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"sispay/config"
	"sispay/entity"
	"sispay/faults"
	"sispay/services"
)

// Protocol identifies a supported gateway protocol variant. The variant is
// an explicit tag selecting a statically known handler; there is no
// name-derived dispatch.
type Protocol string

const ProtocolRedsys Protocol = "redsys"

// Payments implements the payment service: building signed outbound
// requests, processing callbacks and running synchronous recurring charges.
type Payments struct {
	conf     *config.Config
	protocol Protocol
	database services.Database
	orders   services.OrderSystem
	gateway  services.GatewayClient
	logger   services.LogHandler
	metrics  *Metrics

	builder   *Builder
	processor *CallbackProcessor
	initOnce  sync.Once
}

func NewPayments(conf *config.Config) *Payments {
	return &Payments{
		conf:     conf,
		protocol: ProtocolRedsys,
		gateway:  NewGatewayHTTPClient(),
	}
}

func (p *Payments) SetDatabase(database services.Database) {
	p.database = database
}

func (p *Payments) SetOrderSystem(orders services.OrderSystem) {
	p.orders = orders
}

func (p *Payments) SetGatewayClient(gateway services.GatewayClient) {
	p.gateway = gateway
}

func (p *Payments) SetMetrics(metrics *Metrics) {
	p.metrics = metrics
}

func (p *Payments) SetLogger(logger services.LogHandler) {
	p.logger = logger
	if p.conf.DisablePayment {
		p.logger.Warn("service disabled")
	} else {
		p.logger.Info("service enabled")
	}
}

// init wires the builder and processor once all collaborators are set.
func (p *Payments) init() {
	p.initOnce.Do(func() {
		p.builder = NewBuilder(&p.conf.Merchant, p.orders)
		p.builder.SetLogger(p.logger)
		p.processor = NewCallbackProcessor(&p.conf.Merchant, p, p.orders, p.conf.TestMode)
		p.processor.SetLogger(p.logger)
		p.processor.SetMetrics(p.metrics)
	})
}

// FindTransactions delegates to the database so the callback processor can
// run against whatever store is wired.
func (p *Payments) FindTransactions(ctx context.Context, reference string) ([]*entity.Transaction, error) {
	if p.database == nil {
		return nil, fmt.Errorf("database not set")
	}
	return p.database.FindTransactions(ctx, reference)
}

func (p *Payments) UpdateTransaction(ctx context.Context, transaction *entity.Transaction) error {
	if p.database == nil {
		return fmt.Errorf("database not set")
	}
	return p.database.UpdateTransaction(ctx, transaction)
}

// BuildHostedForm builds the signed redirect payload for a transaction.
func (p *Payments) BuildHostedForm(ctx context.Context, reference string) (*entity.PaymentRequest, error) {
	p.init()
	if err := p.checkMerchant(); err != nil {
		return nil, err
	}

	transaction, err := p.findOne(ctx, reference)
	if err != nil {
		return nil, err
	}

	request, err := p.builder.HostedFormRequest(ctx, transaction)
	if err != nil {
		return nil, err
	}
	p.metrics.RequestBuilt("hosted_form")
	return request, nil
}

// Notify processes a payment notification callback from the gateway.
// The body carries form-encoded Ds_MerchantParameters and Ds_Signature.
func (p *Payments) Notify(ctx context.Context, data []byte) error {
	p.init()
	params, err := url.ParseQuery(string(data))
	if err != nil {
		p.logger.Info(string(data))
		return fmt.Errorf("parse query: %v", err)
	}

	callback := entity.InboundCallback{
		Parameters: params.Get("Ds_MerchantParameters"),
		Signature:  params.Get("Ds_Signature"),
	}
	if version := params.Get("Ds_SignatureVersion"); version != "" && version != p.conf.Merchant.SignatureVersion {
		p.logger.Warn(fmt.Sprintf("unexpected signature version %s", version))
	}

	switch p.protocol {
	case ProtocolRedsys:
		p.savePaymentResult(ctx, callback.Parameters)
		result, err := p.processor.Process(ctx, callback)
		if err != nil {
			return err
		}
		if result.Transaction != nil {
			p.logger.Info(fmt.Sprintf("callback: reference %s, state %s, success %v",
				result.Transaction.Reference, result.State, result.Success))
		}
		return nil
	default:
		return fmt.Errorf("unsupported gateway protocol %q", p.protocol)
	}
}

// ChargeRecurring performs a synchronous merchant-initiated charge against
// the transaction's stored token. Transport errors leave the transaction
// state unchanged; the caller owns any retry policy, and the signing inputs
// are deterministic so recomputing a retry is safe.
func (p *Payments) ChargeRecurring(ctx context.Context, reference string) (*entity.Transaction, error) {
	p.init()
	if err := p.checkMerchant(); err != nil {
		return nil, err
	}
	if p.conf.DisablePayment {
		return nil, fmt.Errorf("payment disabled")
	}

	transaction, err := p.findOne(ctx, reference)
	if err != nil {
		return nil, err
	}
	if transaction.TokenIdentifier == "" {
		return transaction, fmt.Errorf("transaction %s is not linked to a token", reference)
	}
	token, err := p.database.GetRecurringToken(ctx, transaction.TokenIdentifier)
	if err != nil {
		return transaction, fmt.Errorf("get recurring token: %w", err)
	}

	request, err := p.builder.RecurringChargeRequest(transaction, token)
	if err != nil {
		return transaction, err
	}
	p.metrics.RequestBuilt("recurring")
	p.logger.Info(fmt.Sprintf("recurring charge: reference %s, identifier %s, txnid %s",
		reference, secret(token.Identifier), secret(token.TxnID)))

	timeout := time.Duration(p.conf.Merchant.RequestTimeout) * time.Second
	postCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := p.gateway.Post(postCtx, request.APIURL, request)
	if err != nil {
		return transaction, err
	}

	var gatewayError entity.ErrorCodeResponse
	if jerr := json.Unmarshal(body, &gatewayError); jerr == nil && gatewayError.Code != "" {
		p.metrics.GatewayError()
		return transaction, faults.Ef(faults.Gateway, "gateway error code %s", gatewayError.Code)
	}

	var callback entity.InboundCallback
	if err := json.Unmarshal(body, &callback); err != nil || callback.Parameters == "" {
		return transaction, faults.Ef(faults.Gateway, "unrecognized response: %s", string(body))
	}

	p.savePaymentResult(ctx, callback.Parameters)
	result, err := p.processor.Process(ctx, callback)
	if err != nil {
		return transaction, err
	}
	charged := result.Transaction
	if charged == nil {
		return transaction, nil
	}

	if charged.State == entity.StateDone {
		charged.RenewalAllowed = true
		if err := p.UpdateTransaction(ctx, charged); err != nil {
			p.logger.Error("update transaction", err)
		}
		if p.orders != nil {
			if err := p.orders.PaymentCompleted(ctx, charged); err != nil {
				p.logger.Error("payment completed hook", err)
			}
		}
	}
	return charged, nil
}

// RegisterToken persists an acquirer-issued token and links the transaction
// to it. Identifier and network txn id both come from the initial
// cardholder-present authorisation.
func (p *Payments) RegisterToken(ctx context.Context, reference string, token *entity.RecurringToken) error {
	p.init()
	if token == nil || token.Identifier == "" || token.TxnID == "" {
		return fmt.Errorf("token identifier and txn id are required")
	}
	if p.database == nil {
		return fmt.Errorf("database not set")
	}

	transaction, err := p.findOne(ctx, reference)
	if err != nil {
		return err
	}

	if err := p.database.SaveRecurringToken(ctx, token); err != nil {
		return fmt.Errorf("save recurring token: %w", err)
	}
	transaction.TokenIdentifier = token.Identifier
	if err := p.UpdateTransaction(ctx, transaction); err != nil {
		return err
	}
	p.logger.Info(fmt.Sprintf("token registered: reference %s, identifier %s",
		reference, secret(token.Identifier)))
	return nil
}

func (p *Payments) findOne(ctx context.Context, reference string) (*entity.Transaction, error) {
	matches, err := p.FindTransactions(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("lookup transaction %s: %w", reference, err)
	}
	if len(matches) != 1 {
		return nil, faults.Ef(faults.UnknownTransaction,
			"reference %s matched %d transactions", reference, len(matches))
	}
	return matches[0], nil
}

func (p *Payments) checkMerchant() error {
	m := &p.conf.Merchant
	if m.Secret == "" || m.Code == "" || m.Terminal == "" {
		return fmt.Errorf("merchant not configured")
	}
	return nil
}

// savePaymentResult persists the decoded gateway response for auditing.
// Best effort: a failed save never blocks callback processing.
func (p *Payments) savePaymentResult(ctx context.Context, parameters string) {
	if p.database == nil {
		return
	}
	params, err := DecodeParameters(parameters)
	if err != nil {
		return
	}
	if err := p.database.SavePaymentResult(ctx, entity.ResultFromParams(params)); err != nil {
		p.logger.Error("save payment result", err)
	}
}

func secret(some string) string {
	if len(some) > 5 {
		return fmt.Sprintf("%s***", some[0:5])
	}
	if some == "" {
		return "?"
	}
	return "***"
}
