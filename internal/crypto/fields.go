package crypto

import (
	"encoding/json"
	"fmt"
)

// Field is the stored form of an encrypted value. All parts are hex-encoded.
// The JSON shape is part of the storage contract: DecryptFields pattern-
// matches on it, and older records may carry the "data"/"authTag" aliases,
// which are accepted when decoding.
type Field struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"tag"`
	Encrypted  bool   `json:"encrypted"`
}

// UnmarshalJSON accepts both the canonical keys and the legacy aliases.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := raw[k]; ok {
				var s string
				if json.Unmarshal(v, &s) == nil {
					return s
				}
			}
		}
		return ""
	}
	f.Ciphertext = str("ciphertext", "data")
	f.IV = str("iv")
	f.AuthTag = str("tag", "authTag")
	if v, ok := raw["encrypted"]; ok {
		_ = json.Unmarshal(v, &f.Encrypted)
	}
	return nil
}

// Named field-set presets. These are configuration conveniences grouping
// commonly protected field names; they carry no logic of their own.
var (
	FieldSetUser     = []string{"email", "phone", "address"}
	FieldSetAuth     = []string{"securityAnswer", "recoveryEmail", "mfaSecret"}
	FieldSetPayment  = []string{"cardNumber", "accountNumber", "routingNumber", "billingAddress"}
	FieldSetPersonal = []string{"dateOfBirth", "gender", "weight", "height", "location"}
	FieldSetMedical  = []string{"injuries", "medications", "conditions", "restingHeartRate"}
)

// EncryptFields returns a copy of obj in which every named field that is
// present and non-nil is replaced with its encrypted Field form. Non-string
// values are JSON-stringified before encryption. Fields outside the list
// pass through untouched.
func (e *Engine) EncryptFields(obj map[string]any, fields []string) (map[string]any, error) {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for _, name := range fields {
		v, ok := out[name]
		if !ok || v == nil {
			continue
		}
		plaintext, ok := v.(string)
		if !ok {
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("stringify field %q: %w", name, err)
			}
			plaintext = string(data)
		}
		field, err := e.Encrypt(plaintext)
		if err != nil {
			return nil, fmt.Errorf("encrypt field %q: %w", name, err)
		}
		out[name] = field
	}
	return out, nil
}

// DecryptFields returns a copy of obj in which every named field that
// structurally matches an encrypted Field is decrypted. A field that fails
// to decrypt is left in its encrypted form and the call never errors:
// corruption of one field must not block access to the rest of the record.
// Callers that need to detect the failure check whether the returned value
// is still a Field (see IsEncryptedValue).
func (e *Engine) DecryptFields(obj map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	for _, name := range fields {
		v, ok := out[name]
		if !ok {
			continue
		}
		field, ok := AsField(v)
		if !ok {
			continue
		}
		plaintext, err := e.Decrypt(field)
		if err != nil {
			continue
		}
		out[name] = plaintext
	}
	return out
}

// AsField reports whether the value is shaped like an encrypted Field, either
// as the typed struct or as a decoded JSON object carrying the contract keys.
func AsField(v any) (Field, bool) {
	switch t := v.(type) {
	case Field:
		return t, t.Encrypted
	case *Field:
		if t == nil {
			return Field{}, false
		}
		return *t, t.Encrypted
	case map[string]any:
		f := Field{
			Ciphertext: stringKey(t, "ciphertext", "data"),
			IV:         stringKey(t, "iv"),
			AuthTag:    stringKey(t, "tag", "authTag"),
		}
		enc, _ := t["encrypted"].(bool)
		f.Encrypted = enc
		if !enc || f.Ciphertext == "" || f.IV == "" || f.AuthTag == "" {
			return Field{}, false
		}
		return f, true
	default:
		return Field{}, false
	}
}

// IsEncryptedValue reports whether a record field is still in encrypted
// shape, which after DecryptFields signals that decryption failed.
func IsEncryptedValue(v any) bool {
	_, ok := AsField(v)
	return ok
}

func stringKey(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
