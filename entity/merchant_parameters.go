package entity

// MerchantParameters represents Redsys request parameters for the hosted-form
// redirect flow. The struct is JSON-serialized, Base64-encoded and signed with
// HMAC-SHA256 before being rendered into the redirect form.
type MerchantParameters struct {
	// Amount in minor units (e.g. "1000" = 10.00 EUR)
	Amount string `json:"Ds_Merchant_Amount"`
	// Currency code (978 = EUR)
	Currency string `json:"Ds_Merchant_Currency"`
	// Order number, last 12 characters of the merchant reference
	Order string `json:"Ds_Merchant_Order"`
	// Merchant code assigned by Redsys, first 9 characters
	MerchantCode string `json:"Ds_Merchant_MerchantCode"`
	// Terminal number assigned by Redsys
	Terminal string `json:"Ds_Merchant_Terminal"`
	// Transaction type: "0" = Authorization, "3" = Refund
	TransactionType string `json:"Ds_Merchant_TransactionType"`
	// Payer display name, 60 characters max
	Titular string `json:"Ds_Merchant_Titular"`
	// Merchant display name, 25 characters max
	MerchantName string `json:"Ds_Merchant_MerchantName"`
	// Merchant callback URL the gateway notifies, 250 characters max
	MerchantURL string `json:"Ds_Merchant_MerchantUrl"`
	// Opaque merchant data echoed back in the callback
	MerchantData string `json:"Ds_Merchant_MerchantData"`
	// Product description, 125 characters max
	ProductDescription string `json:"Ds_Merchant_ProductDescription"`
	// Consumer language code ("001" = Spanish)
	ConsumerLanguage string `json:"Ds_Merchant_ConsumerLanguage"`
	// Browser return URL on success
	URLOK string `json:"Ds_Merchant_UrlOk"`
	// Browser return URL on failure
	URLKO string `json:"Ds_Merchant_UrlKo"`
	// Payment method code: "T" card, "R" transfer, "D" direct debit
	PayMethods string `json:"Ds_Merchant_Paymethods"`
}

// RecurringParameters represents Redsys request parameters for a
// merchant-initiated (MIT) recurring charge against a stored token.
// Field names use the upper-case variants the REST endpoint expects.
type RecurringParameters struct {
	// Identifier of the stored payment method (card token)
	Identifier string `json:"DS_MERCHANT_IDENTIFIER"`
	// CofIni: "S" = initial credential storage, "N" = subsequent use
	CofIni string `json:"DS_MERCHANT_COF_INI"`
	// CofTxnID: network transaction id linking the MIT to the original CIT
	CofTxnID string `json:"DS_MERCHANT_COF_TXNID"`
	// Merchant code assigned by Redsys, first 9 characters
	MerchantCode string `json:"DS_MERCHANT_MERCHANTCODE"`
	// Transaction type: "0" = Authorization, "3" = Refund
	TransactionType string `json:"DS_MERCHANT_TRANSACTIONTYPE"`
	// Exception: "MIT" signals the PSD2 merchant-initiated exemption
	Exception string `json:"DS_MERCHANT_EXCEP_SCA"`
	// DirectPayment: "true" = charge the stored token without redirect
	DirectPayment string `json:"DS_MERCHANT_DIRECTPAYMENT"`
	// Order number, last 12 characters of the merchant reference
	Order string `json:"Ds_Merchant_Order"`
	// Terminal number assigned by Redsys
	Terminal string `json:"DS_MERCHANT_TERMINAL"`
	// Currency code (978 = EUR)
	Currency string `json:"DS_MERCHANT_CURRENCY"`
	// Amount in minor units; the full stored amount, no partial reduction
	Amount string `json:"DS_MERCHANT_AMOUNT"`
}
