package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
)

// idParsers drives the shared-invariant tests through every typed entry
// point, so a validation change in one parser cannot drift from the others.
var idParsers = map[string]func(string) error{
	"tenant": func(raw string) error {
		_, err := domain.ParseTenantID(raw)
		return err
	},
	"domain": func(raw string) error {
		_, err := domain.ParseDomainID(raw)
		return err
	},
	"certificate": func(raw string) error {
		_, err := domain.ParseCertificateID(raw)
		return err
	},
}

func TestParseRejectsUntrustedInput(t *testing.T) {
	bad := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"not a uuid", "shop.example.com"},
		{"nil uuid", uuid.Nil.String()},
		{"sql injection", `'; DROP TABLE domain_configs;--`},
		{"path traversal", "../../../etc/passwd"},
		{"embedded null byte", "550e8400\x00-e29b-41d4-a716-446655440000"},
		{"zero width space", "550e8400​-e29b-41d4-a716-446655440000"},
		{"overlong", strings.Repeat("5", 1000)},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			for kind, parse := range idParsers {
				err := parse(tc.input)
				require.Error(t, err, "%s parser accepted %q", kind, tc.input)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput),
					"%s parser returned the wrong code for %q", kind, tc.input)
			}
		})
	}
}

func TestParseCanonicalizesCase(t *testing.T) {
	got, err := domain.ParseTenantID("550E8400-E29B-41D4-A716-446655440000")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", got.String())
}

func TestNewIDsAreUsable(t *testing.T) {
	tenantID := domain.NewTenantID()
	assert.False(t, tenantID.IsZero())

	reparsed, err := domain.ParseTenantID(tenantID.String())
	require.NoError(t, err)
	assert.Equal(t, tenantID, reparsed)

	assert.True(t, domain.TenantID{}.IsZero(), "zero value reads as unset")
	assert.NotEqual(t, domain.NewDomainID(), domain.NewDomainID())
}

// IDs cross the API as JSON strings, so the encoders matter as much as the
// parsers.
func TestIDsTravelAsJSONStrings(t *testing.T) {
	type payload struct {
		TenantID      domain.TenantID      `json:"tenant_id"`
		DomainID      domain.DomainID      `json:"domain_id"`
		CertificateID domain.CertificateID `json:"certificate_id"`
	}

	in := payload{
		TenantID:      domain.NewTenantID(),
		DomainID:      domain.NewDomainID(),
		CertificateID: domain.NewCertificateID(),
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tenant_id":"`+in.TenantID.String()+`"`)

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"tenant_id":"nope"}`), &out)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
