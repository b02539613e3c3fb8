package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sispay/config"
	"sispay/entity"
	"sispay/faults"
	"sispay/services"
)

// mockDatabase implements services.Database for testing.
type mockDatabase struct {
	transactions []*entity.Transaction
	tokens       map[string]*entity.RecurringToken
	results      []*entity.PaymentResult
}

func (m *mockDatabase) WriteLogMessage(_ services.Data) error { return nil }

func (m *mockDatabase) FindTransactions(_ context.Context, reference string) ([]*entity.Transaction, error) {
	var matches []*entity.Transaction
	for _, tx := range m.transactions {
		if tx.Reference == reference {
			matches = append(matches, tx)
		}
	}
	return matches, nil
}

func (m *mockDatabase) UpdateTransaction(_ context.Context, _ *entity.Transaction) error {
	return nil
}

func (m *mockDatabase) GetRecurringToken(_ context.Context, identifier string) (*entity.RecurringToken, error) {
	token, ok := m.tokens[identifier]
	if !ok {
		return nil, faults.Ef(faults.Other, "token %s not found", identifier)
	}
	return token, nil
}

func (m *mockDatabase) SaveRecurringToken(_ context.Context, token *entity.RecurringToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]*entity.RecurringToken)
	}
	if _, ok := m.tokens[token.Identifier]; ok {
		return fmt.Errorf("token with identifier %s already exists", token.Identifier)
	}
	m.tokens[token.Identifier] = token
	return nil
}

func (m *mockDatabase) SavePaymentResult(_ context.Context, result *entity.PaymentResult) error {
	m.results = append(m.results, result)
	return nil
}

// mockGateway implements services.GatewayClient for testing.
type mockGateway struct {
	postFunc func(ctx context.Context, url string, request *entity.PaymentRequest) ([]byte, error)
	posted   []*entity.PaymentRequest
}

func (m *mockGateway) Post(ctx context.Context, url string, request *entity.PaymentRequest) ([]byte, error) {
	m.posted = append(m.posted, request)
	if m.postFunc != nil {
		return m.postFunc(ctx, url, request)
	}
	return nil, faults.Ef(faults.Transport, "no response configured")
}

func testPayments(t *testing.T, db *mockDatabase, gateway *mockGateway, orders *mockOrderSystem) (*Payments, *config.Config) {
	t.Helper()
	conf := &config.Config{}
	conf.Merchant = *testMerchant()
	payments := NewPayments(conf)
	payments.SetLogger(NewLogger("payments-test", false, nil))
	payments.SetDatabase(db)
	payments.SetOrderSystem(orders)
	if gateway != nil {
		payments.SetGatewayClient(gateway)
	}
	return payments, conf
}

func TestBuildHostedFormEndToEnd(t *testing.T) {
	db := &mockDatabase{transactions: []*entity.Transaction{
		{Reference: "SO00123456", Amount: 49.99, State: entity.StatePendingCreation},
	}}
	payments, conf := testPayments(t, db, nil, &mockOrderSystem{})

	request, err := payments.BuildHostedForm(context.Background(), "SO00123456")
	require.NoError(t, err)

	params, err := DecodeParameters(request.Parameters)
	require.NoError(t, err)
	assert.Equal(t, "4999", params["Ds_Merchant_Amount"])
	assert.Equal(t, "SO00123456", params["Ds_Merchant_Order"])

	verified, err := VerifySignature(conf.Merchant.Secret, request.Parameters, request.Signature)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestBuildHostedFormUnknownReference(t *testing.T) {
	payments, _ := testPayments(t, &mockDatabase{}, nil, &mockOrderSystem{})

	_, err := payments.BuildHostedForm(context.Background(), "SO404")
	require.Error(t, err)
	assert.Equal(t, faults.UnknownTransaction, faults.KindOf(err))
}

func TestNotifyProcessesCallback(t *testing.T) {
	tx := &entity.Transaction{Reference: "SO00123456", Amount: 49.99, State: entity.StatePendingCreation}
	db := &mockDatabase{transactions: []*entity.Transaction{tx}}
	orders := &mockOrderSystem{}
	payments, conf := testPayments(t, db, nil, orders)

	callback := signedCallback(t, &conf.Merchant, callbackParams("SO00123456", "45", "4999"))
	form := url.Values{}
	form.Set("Ds_SignatureVersion", "HMAC_SHA256_V1")
	form.Set("Ds_MerchantParameters", callback.Parameters)
	form.Set("Ds_Signature", callback.Signature)

	err := payments.Notify(context.Background(), []byte(form.Encode()))
	require.NoError(t, err)

	assert.Equal(t, entity.StateDone, tx.State)
	assert.Equal(t, 1, orders.confirmed)
	// the decoded gateway response is persisted for auditing
	require.Len(t, db.results, 1)
	assert.Equal(t, "45", db.results[0].Response)
}

func TestNotifyRejectsBadSignature(t *testing.T) {
	tx := &entity.Transaction{Reference: "SO00123456", Amount: 49.99, State: entity.StatePendingCreation}
	db := &mockDatabase{transactions: []*entity.Transaction{tx}}
	payments, conf := testPayments(t, db, nil, &mockOrderSystem{})

	callback := signedCallback(t, &conf.Merchant, callbackParams("SO00123456", "45", "4999"))
	form := url.Values{}
	form.Set("Ds_MerchantParameters", callback.Parameters)
	form.Set("Ds_Signature", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")

	err := payments.Notify(context.Background(), []byte(form.Encode()))
	require.Error(t, err)
	assert.Equal(t, faults.SignatureMismatch, faults.KindOf(err))
	assert.Equal(t, entity.StatePendingCreation, tx.State)
}

func TestChargeRecurringSuccess(t *testing.T) {
	tx := &entity.Transaction{
		Reference:       "SO00123456",
		Amount:          49.99,
		State:           entity.StatePendingCreation,
		TokenIdentifier: "tok-1",
	}
	db := &mockDatabase{
		transactions: []*entity.Transaction{tx},
		tokens:       map[string]*entity.RecurringToken{"tok-1": {Identifier: "tok-1", TxnID: "txn-9"}},
	}
	orders := &mockOrderSystem{}

	gateway := &mockGateway{}
	payments, conf := testPayments(t, db, gateway, orders)
	gateway.postFunc = func(_ context.Context, postURL string, request *entity.PaymentRequest) ([]byte, error) {
		assert.Equal(t, conf.Merchant.RestURL(), postURL)
		// the gateway answers with a callback-shaped body
		callback := signedCallback(t, &conf.Merchant, callbackParams("SO00123456", "0", "4999"))
		return json.Marshal(callback)
	}

	charged, err := payments.ChargeRecurring(context.Background(), "SO00123456")
	require.NoError(t, err)

	assert.Equal(t, entity.StateDone, charged.State)
	assert.True(t, charged.RenewalAllowed)
	assert.Equal(t, 1, orders.confirmed)
	assert.Equal(t, 1, orders.completed)
	require.Len(t, gateway.posted, 1)

	params, err := DecodeParameters(gateway.posted[0].Parameters)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", params["DS_MERCHANT_IDENTIFIER"])
	assert.Equal(t, "MIT", params["DS_MERCHANT_EXCEP_SCA"])
}

func TestChargeRecurringGatewayErrorCode(t *testing.T) {
	tx := &entity.Transaction{
		Reference:       "SO00123456",
		Amount:          49.99,
		State:           entity.StatePendingCreation,
		TokenIdentifier: "tok-1",
	}
	db := &mockDatabase{
		transactions: []*entity.Transaction{tx},
		tokens:       map[string]*entity.RecurringToken{"tok-1": {Identifier: "tok-1", TxnID: "txn-9"}},
	}
	gateway := &mockGateway{
		postFunc: func(_ context.Context, _ string, _ *entity.PaymentRequest) ([]byte, error) {
			return []byte(`{"errorCode":"SIS0051"}`), nil
		},
	}
	payments, _ := testPayments(t, db, gateway, &mockOrderSystem{})

	_, err := payments.ChargeRecurring(context.Background(), "SO00123456")
	require.Error(t, err)
	assert.Equal(t, faults.Gateway, faults.KindOf(err))
	assert.Contains(t, err.Error(), "SIS0051")
	// no state transition on a rejected request
	assert.Equal(t, entity.StatePendingCreation, tx.State)
}

func TestChargeRecurringTransportError(t *testing.T) {
	tx := &entity.Transaction{
		Reference:       "SO00123456",
		Amount:          49.99,
		State:           entity.StatePendingCreation,
		TokenIdentifier: "tok-1",
	}
	db := &mockDatabase{
		transactions: []*entity.Transaction{tx},
		tokens:       map[string]*entity.RecurringToken{"tok-1": {Identifier: "tok-1", TxnID: "txn-9"}},
	}
	gateway := &mockGateway{
		postFunc: func(_ context.Context, _ string, _ *entity.PaymentRequest) ([]byte, error) {
			return nil, faults.Ef(faults.Transport, "request timeout or cancelled")
		},
	}
	payments, _ := testPayments(t, db, gateway, &mockOrderSystem{})

	_, err := payments.ChargeRecurring(context.Background(), "SO00123456")
	require.Error(t, err)
	assert.Equal(t, faults.Transport, faults.KindOf(err))
	// timed-out charges leave the transaction untouched for external retry
	assert.Equal(t, entity.StatePendingCreation, tx.State)
}

func TestChargeRecurringWithoutToken(t *testing.T) {
	tx := &entity.Transaction{Reference: "SO00123456", Amount: 49.99, State: entity.StatePendingCreation}
	db := &mockDatabase{transactions: []*entity.Transaction{tx}}
	payments, _ := testPayments(t, db, &mockGateway{}, &mockOrderSystem{})

	_, err := payments.ChargeRecurring(context.Background(), "SO00123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not linked to a token")
}

func TestChargeRecurringUnrecognizedResponse(t *testing.T) {
	tx := &entity.Transaction{
		Reference:       "SO00123456",
		Amount:          49.99,
		State:           entity.StatePendingCreation,
		TokenIdentifier: "tok-1",
	}
	db := &mockDatabase{
		transactions: []*entity.Transaction{tx},
		tokens:       map[string]*entity.RecurringToken{"tok-1": {Identifier: "tok-1", TxnID: "txn-9"}},
	}
	gateway := &mockGateway{
		postFunc: func(_ context.Context, _ string, _ *entity.PaymentRequest) ([]byte, error) {
			return []byte("<html>not json</html>"), nil
		},
	}
	payments, _ := testPayments(t, db, gateway, &mockOrderSystem{})

	_, err := payments.ChargeRecurring(context.Background(), "SO00123456")
	require.Error(t, err)
	assert.Equal(t, faults.Gateway, faults.KindOf(err))
}

func TestRegisterToken(t *testing.T) {
	tx := &entity.Transaction{Reference: "SO00123456", Amount: 49.99, State: entity.StateDone}
	db := &mockDatabase{transactions: []*entity.Transaction{tx}}
	payments, _ := testPayments(t, db, nil, &mockOrderSystem{})

	token := &entity.RecurringToken{Identifier: "tok-1", TxnID: "txn-9"}
	require.NoError(t, payments.RegisterToken(context.Background(), "SO00123456", token))

	assert.Equal(t, "tok-1", tx.TokenIdentifier)
	require.Contains(t, db.tokens, "tok-1")
	assert.Equal(t, "txn-9", db.tokens["tok-1"].TxnID)
}

func TestRegisterTokenRequiresIdentifierAndTxnID(t *testing.T) {
	payments, _ := testPayments(t, &mockDatabase{}, nil, &mockOrderSystem{})

	err := payments.RegisterToken(context.Background(), "SO00123456", &entity.RecurringToken{TxnID: "txn-9"})
	assert.Error(t, err)
	err = payments.RegisterToken(context.Background(), "SO00123456", &entity.RecurringToken{Identifier: "tok-1"})
	assert.Error(t, err)
}

func TestRegisterTokenRejectsDuplicateIdentifier(t *testing.T) {
	tx := &entity.Transaction{Reference: "SO00123456", Amount: 49.99}
	db := &mockDatabase{
		transactions: []*entity.Transaction{tx},
		tokens:       map[string]*entity.RecurringToken{"tok-1": {Identifier: "tok-1", TxnID: "txn-0"}},
	}
	payments, _ := testPayments(t, db, nil, &mockOrderSystem{})

	err := payments.RegisterToken(context.Background(), "SO00123456",
		&entity.RecurringToken{Identifier: "tok-1", TxnID: "txn-9"})
	require.Error(t, err)
	// the transaction keeps its previous link on a failed save
	assert.Empty(t, tx.TokenIdentifier)
}

func TestRegisterTokenUnknownReference(t *testing.T) {
	payments, _ := testPayments(t, &mockDatabase{}, nil, &mockOrderSystem{})

	err := payments.RegisterToken(context.Background(), "SO404",
		&entity.RecurringToken{Identifier: "tok-1", TxnID: "txn-9"})
	require.Error(t, err)
	assert.Equal(t, faults.UnknownTransaction, faults.KindOf(err))
}

func TestNotifyMalformedBody(t *testing.T) {
	payments, _ := testPayments(t, &mockDatabase{}, nil, &mockOrderSystem{})
	err := payments.Notify(context.Background(), []byte("%%%"))
	assert.Error(t, err)
}
