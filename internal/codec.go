package internal

import (
	"encoding/base64"
	"encoding/json"

	"sispay/faults"
)

// EncodeParameters JSON-serializes a parameter struct or map and encodes it
// to Base64. The signature is computed over the exact returned string, so the
// same value always produces the same blob.
func EncodeParameters(parameters any) (string, error) {
	data, err := json.Marshal(parameters)
	if err != nil {
		return "", faults.E(faults.Decode, "marshal parameters", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeParameters decodes a Base64 JSON blob into a flat string map.
func DecodeParameters(blob string) (map[string]string, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, faults.E(faults.Decode, "decode parameters", err)
	}
	var params map[string]string
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, faults.E(faults.Decode, "parse parameters", err)
	}
	return params, nil
}
