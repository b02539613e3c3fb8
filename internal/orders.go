package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sispay/entity"
)

// OrderWebhook notifies the external order system over HTTP. Each state
// hook POSTs a JSON event; the product description is fetched on demand.
// An empty base URL disables all calls, turning the hooks into no-ops.
type OrderWebhook struct {
	baseURL    string
	httpClient *http.Client
}

type orderEvent struct {
	Event     string  `json:"event"`
	Reference string  `json:"reference"`
	State     string  `json:"state"`
	Message   string  `json:"message"`
	Amount    float64 `json:"amount"`
}

func NewOrderWebhook(baseURL string) *OrderWebhook {
	return &OrderWebhook{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// OrderDescription asks the order system for a product description.
// Failures degrade to an empty description; the builder falls back to the
// configured one.
func (o *OrderWebhook) OrderDescription(ctx context.Context, reference string) (string, error) {
	if o.baseURL == "" {
		return "", nil
	}
	url := fmt.Sprintf("%s/orders/%s/description", o.baseURL, reference)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	response, err := o.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode != http.StatusOK {
		return "", nil
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (o *OrderWebhook) ConfirmOrder(ctx context.Context, transaction *entity.Transaction) error {
	return o.send(ctx, "order_confirmed", transaction)
}

func (o *OrderWebhook) SendQuoteNotification(ctx context.Context, transaction *entity.Transaction) error {
	return o.send(ctx, "quote_notification", transaction)
}

func (o *OrderWebhook) PaymentCompleted(ctx context.Context, transaction *entity.Transaction) error {
	return o.send(ctx, "payment_completed", transaction)
}

func (o *OrderWebhook) send(ctx context.Context, event string, transaction *entity.Transaction) error {
	if o.baseURL == "" {
		return nil
	}
	payload := orderEvent{
		Event:     event,
		Reference: transaction.Reference,
		State:     string(transaction.State),
		Message:   transaction.StateMessage,
		Amount:    transaction.Amount,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/payment/events", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := o.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("order system returned %d for %s", response.StatusCode, event)
}
