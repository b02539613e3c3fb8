package internal

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"sispay/entity"
	"sispay/faults"
)

// Encryptor derives the per-order signing key and produces the request
// signature. The derivation is a deterministic transform mandated by the
// gateway protocol: 3DES-CBC over the zero-padded order reference with a
// zero IV, then HMAC-SHA256 over the encoded parameter blob.
type Encryptor struct {
	secret     string // merchant key encoded with Base64
	parameters string // Base64 parameter blob being signed
	order      string // order number to be encrypted
}

func NewEncryptor(secret string, parameters string, order string) *Encryptor {
	return &Encryptor{
		secret:     secret,
		parameters: parameters,
		order:      order,
	}
}

func (e *Encryptor) CreateSignature() (string, error) {

	key, err := base64.StdEncoding.DecodeString(e.secret)
	if err != nil {
		return "", fmt.Errorf("decode secret: %v", err)
	}

	// derive order key with 3DES
	orderKey, err := e.encrypt3DES(e.order, key)
	if err != nil {
		return "", fmt.Errorf("encrypt3DES: %v", err)
	}

	// create hash with SHA256
	hash := e.mac256(e.parameters, orderKey)
	// encode hash to Base64
	signature := base64.StdEncoding.EncodeToString(hash)

	return signature, nil
}

func (e *Encryptor) encrypt3DES(plainText string, key []byte) ([]byte, error) {
	if plainText == "" {
		return nil, errors.New("plainText cannot be empty")
	}

	toEncryptArray := []byte(plainText)

	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, err
	}

	// SALT used in 3DES encryption process
	salt := []byte{0, 0, 0, 0, 0, 0, 0, 0}

	// Zero-pad to the block boundary; an aligned order gets no extra block
	if diff := len(toEncryptArray) % block.BlockSize(); diff != 0 {
		padding := block.BlockSize() - diff
		toEncryptArray = append(toEncryptArray, bytes.Repeat([]byte{0}, padding)...)
	}

	ciphertext := make([]byte, len(toEncryptArray))

	// Create the CBC mode
	mode := cipher.NewCBCEncrypter(block, salt)

	// Encrypt
	mode.CryptBlocks(ciphertext, toEncryptArray)

	return ciphertext, nil
}

func (e *Encryptor) mac256(message string, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

// ResolveOrderReference extracts the order number used for key derivation
// from a decoded parameter map. Outbound maps carry Ds_Merchant_Order;
// callbacks echo Ds_Order, possibly URL-escaped.
func ResolveOrderReference(params map[string]string) (string, error) {
	if order, ok := params[entity.ParamMerchantOrder]; ok && order != "" {
		return order, nil
	}
	if order, ok := params[entity.ParamOrder]; ok && order != "" {
		unescaped, err := url.QueryUnescape(order)
		if err != nil {
			return order, nil
		}
		return unescaped, nil
	}
	return "", faults.Ef(faults.MissingOrderReference, "no order field in parameters")
}

// VerifySignature recomputes the signature for a parameter blob and compares
// it against the candidate in constant time. The candidate may use the
// URL-safe Base64 alphabet; it is normalized before comparison.
func VerifySignature(secret string, parameters string, candidate string) (bool, error) {
	params, err := DecodeParameters(parameters)
	if err != nil {
		return false, err
	}
	order, err := ResolveOrderReference(params)
	if err != nil {
		return false, err
	}
	expected, err := NewEncryptor(secret, parameters, order).CreateSignature()
	if err != nil {
		return false, fmt.Errorf("create signature: %v", err)
	}

	normalized := strings.NewReplacer("_", "/", "-", "+").Replace(candidate)
	expectedRaw, err := base64.StdEncoding.DecodeString(expected)
	if err != nil {
		return false, fmt.Errorf("decode expected signature: %v", err)
	}
	candidateRaw, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		// not valid Base64, cannot match
		return false, nil
	}
	return hmac.Equal(expectedRaw, candidateRaw), nil
}
