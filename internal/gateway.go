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
	"sispay/faults"
)

// GatewayHTTPClient posts signed requests to the gateway REST endpoint.
// The client includes timeouts and connection pooling for reliable external
// API calls; per-request deadlines come from the caller's context.
type GatewayHTTPClient struct {
	httpClient *http.Client
}

func NewGatewayHTTPClient() *GatewayHTTPClient {
	return &GatewayHTTPClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				DisableKeepAlives:   false,
			},
		},
	}
}

// Post sends the request as JSON and returns the raw response body.
// Transport and timeout failures come back as Transport faults so the
// caller knows no state transition may have happened gateway-side.
func (c *GatewayHTTPClient) Post(ctx context.Context, url string, request *entity.PaymentRequest) ([]byte, error) {
	requestData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestData))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, faults.E(faults.Transport, "request timeout or cancelled", ctx.Err())
		}
		return nil, faults.E(faults.Transport, "post request", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, faults.E(faults.Transport, "read response body", err)
	}
	return body, nil
}
