package crypto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptFieldsLeavesUnlistedFieldsUntouched(t *testing.T) {
	engine := testEngine(t)

	original := map[string]any{"email": "a@b.com", "role": "user"}
	encrypted, err := engine.EncryptFields(original, []string{"email"})
	require.NoError(t, err)

	require.Equal(t, "user", encrypted["role"])
	field, ok := encrypted["email"].(Field)
	require.True(t, ok, "email should be replaced with an encrypted field")
	require.True(t, field.Encrypted)

	// Source map is not mutated.
	require.Equal(t, "a@b.com", original["email"])

	restored := engine.DecryptFields(encrypted, []string{"email"})
	require.Equal(t, original, restored)
}

func TestEncryptFieldsSkipsMissingAndNil(t *testing.T) {
	engine := testEngine(t)

	obj := map[string]any{"email": nil, "role": "user"}
	out, err := engine.EncryptFields(obj, []string{"email", "phone"})
	require.NoError(t, err)
	require.Nil(t, out["email"])
	require.NotContains(t, out, "phone")
}

func TestEncryptFieldsStringifiesNonStrings(t *testing.T) {
	engine := testEngine(t)

	obj := map[string]any{"weight": 72.5}
	out, err := engine.EncryptFields(obj, []string{"weight"})
	require.NoError(t, err)

	restored := engine.DecryptFields(out, []string{"weight"})
	require.Equal(t, "72.5", restored["weight"])
}

func TestDecryptFieldsLeavesCorruptFieldEncrypted(t *testing.T) {
	engine := testEngine(t)

	out, err := engine.EncryptFields(map[string]any{
		"email":    "a@b.com",
		"injuries": "stress fracture 2024",
	}, []string{"email", "injuries"})
	require.NoError(t, err)

	// Corrupt one field; the other must still decrypt and the call must not
	// fail the whole record.
	corrupt := out["injuries"].(Field)
	corrupt.AuthTag = "00000000000000000000000000000000"
	out["injuries"] = corrupt

	restored := engine.DecryptFields(out, []string{"email", "injuries"})
	require.Equal(t, "a@b.com", restored["email"])
	require.True(t, IsEncryptedValue(restored["injuries"]), "corrupt field must stay in encrypted shape")
}

func TestDecryptFieldsIgnoresPlainValues(t *testing.T) {
	engine := testEngine(t)

	obj := map[string]any{"email": "plain@b.com", "note": 42}
	restored := engine.DecryptFields(obj, []string{"email", "note"})
	require.Equal(t, obj, restored)
}

func TestDecryptFieldsMatchesDecodedJSONShape(t *testing.T) {
	engine := testEngine(t)

	field, err := engine.Encrypt("race day notes")
	require.NoError(t, err)

	// Simulate a record loaded from storage: the field arrives as a plain
	// JSON object using the legacy data/authTag aliases.
	stored := map[string]any{
		"notes": map[string]any{
			"data":      field.Ciphertext,
			"iv":        field.IV,
			"authTag":   field.AuthTag,
			"encrypted": true,
		},
	}
	restored := engine.DecryptFields(stored, []string{"notes"})
	require.Equal(t, "race day notes", restored["notes"])
}

func TestFieldJSONAliases(t *testing.T) {
	raw := []byte(`{"data":"abcd","iv":"1234","authTag":"5678","encrypted":true}`)
	var f Field
	require.NoError(t, json.Unmarshal(raw, &f))
	require.Equal(t, "abcd", f.Ciphertext)
	require.Equal(t, "1234", f.IV)
	require.Equal(t, "5678", f.AuthTag)
	require.True(t, f.Encrypted)

	canonical, err := json.Marshal(f)
	require.NoError(t, err)
	require.JSONEq(t, `{"ciphertext":"abcd","iv":"1234","tag":"5678","encrypted":true}`, string(canonical))
}

func TestFieldSetPresetsAreNamedLists(t *testing.T) {
	for name, set := range map[string][]string{
		"user":     FieldSetUser,
		"auth":     FieldSetAuth,
		"payment":  FieldSetPayment,
		"personal": FieldSetPersonal,
		"medical":  FieldSetMedical,
	} {
		require.NotEmpty(t, set, "preset %s", name)
	}
}
