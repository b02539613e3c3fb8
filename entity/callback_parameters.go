package entity

// Callback parameter field names as they appear in the decoded JSON blob.
// The processor works on the raw map so it can distinguish missing fields
// from empty ones; these constants keep the key spelling in one place.
const (
	ParamOrder             = "Ds_Order"
	ParamMerchantOrder     = "Ds_Merchant_Order"
	ParamResponse          = "Ds_Response"
	ParamAmount            = "Ds_Amount"
	ParamCurrency          = "Ds_Currency"
	ParamAuthorisationCode = "Ds_AuthorisationCode"
	ParamErrorCode         = "Ds_ErrorCode"
	ParamDate              = "Ds_Date"
	ParamHour              = "Ds_Hour"
	ParamSecurePayment     = "Ds_SecurePayment"
	ParamIdentifier        = "Ds_Merchant_Identifier"
	ParamCofTxnID          = "Ds_Merchant_Cof_Txnid"
	ParamExpiryDate        = "Ds_ExpiryDate"
	ParamCardBrand         = "Ds_Card_Brand"
	ParamCardCountry       = "Ds_Card_Country"
	ParamTransactionType   = "Ds_TransactionType"
)

// PaymentResult is the persisted record of a decoded gateway response.
type PaymentResult struct {
	Order             string `json:"Ds_Order" bson:"order"`
	Response          string `json:"Ds_Response" bson:"response"`
	Amount            string `json:"Ds_Amount" bson:"amount"`
	Currency          string `json:"Ds_Currency" bson:"currency"`
	AuthorisationCode string `json:"Ds_AuthorisationCode" bson:"authorisation_code"`
	ErrorCode         string `json:"Ds_ErrorCode" bson:"error_code"`
	Date              string `json:"Ds_Date" bson:"date"`
	Hour              string `json:"Ds_Hour" bson:"hour"`
	SecurePayment     string `json:"Ds_SecurePayment" bson:"secure_payment"`
	Identifier        string `json:"Ds_Merchant_Identifier" bson:"identifier"`
	CofTxnID          string `json:"Ds_Merchant_Cof_Txnid" bson:"cof_txnid"`
	ExpiryDate        string `json:"Ds_ExpiryDate" bson:"expiry_date"`
	CardBrand         string `json:"Ds_Card_Brand" bson:"card_brand"`
	CardCountry       string `json:"Ds_Card_Country" bson:"card_country"`
	TransactionType   string `json:"Ds_TransactionType" bson:"transaction_type"`
}

// ResultFromParams fills a PaymentResult from a decoded parameter map.
func ResultFromParams(params map[string]string) *PaymentResult {
	return &PaymentResult{
		Order:             params[ParamOrder],
		Response:          params[ParamResponse],
		Amount:            params[ParamAmount],
		Currency:          params[ParamCurrency],
		AuthorisationCode: params[ParamAuthorisationCode],
		ErrorCode:         params[ParamErrorCode],
		Date:              params[ParamDate],
		Hour:              params[ParamHour],
		SecurePayment:     params[ParamSecurePayment],
		Identifier:        params[ParamIdentifier],
		CofTxnID:          params[ParamCofTxnID],
		ExpiryDate:        params[ParamExpiryDate],
		CardBrand:         params[ParamCardBrand],
		CardCountry:       params[ParamCardCountry],
		TransactionType:   params[ParamTransactionType],
	}
}
