package entity

// PaymentRequest is the signed outbound envelope sent to the gateway,
// either rendered into a redirect form or POSTed to the REST endpoint.
type PaymentRequest struct {
	Parameters       string `json:"Ds_MerchantParameters"`
	Signature        string `json:"Ds_Signature"`
	SignatureVersion string `json:"Ds_SignatureVersion"`
	// APIURL is the gateway endpoint the request targets. Not part of the
	// signed payload; used by the host to render the form action.
	APIURL string `json:"api_url,omitempty"`
}

// InboundCallback is the raw two-field notification received from the
// gateway. Signature may arrive in the URL-safe Base64 variant.
type InboundCallback struct {
	Parameters string `json:"Ds_MerchantParameters"`
	Signature  string `json:"Ds_Signature"`
}

// ErrorCodeResponse is the REST endpoint's error shape, returned instead of
// a callback body when the request itself is rejected.
type ErrorCodeResponse struct {
	Code string `json:"errorCode"`
}
