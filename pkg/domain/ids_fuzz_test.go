package domain_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

// FuzzIDParsing throws arbitrary input at the shared parser through all
// three typed entry points. Accepted values must survive a canonical round
// trip, never be the nil uuid, and acceptance must agree across types.
func FuzzIDParsing(f *testing.F) {
	for _, seed := range []string{
		"",
		"550e8400-e29b-41d4-a716-446655440000",
		"550E8400-E29B-41D4-A716-446655440000",
		uuid.Nil.String(),
		"urn:uuid:550e8400-e29b-41d4-a716-446655440000",
		"{550e8400-e29b-41d4-a716-446655440000}",
		"not-a-uuid",
		"550e8400-e29b-41d4-a716-446655440000\x00",
		string([]byte{0xff, 0xfe}),
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		tenantID, tenantErr := domain.ParseTenantID(input)
		_, domainErr := domain.ParseDomainID(input)
		_, certErr := domain.ParseCertificateID(input)

		if (tenantErr == nil) != (domainErr == nil) || (tenantErr == nil) != (certErr == nil) {
			t.Fatalf("parsers disagree on %q: tenant=%v domain=%v certificate=%v",
				input, tenantErr, domainErr, certErr)
		}
		if tenantErr != nil {
			return
		}

		if tenantID.IsZero() {
			t.Fatalf("nil uuid slipped through for input %q", input)
		}
		again, err := domain.ParseTenantID(tenantID.String())
		if err != nil {
			t.Fatalf("canonical form %q rejected: %v", tenantID, err)
		}
		if again != tenantID {
			t.Fatalf("round trip changed the value: %v != %v", again, tenantID)
		}
	})
}

// FuzzTenantIDUnmarshalText keeps the text decoder aligned with the parser,
// since request bodies reach IDs through encoding/json rather than Parse
// calls.
func FuzzTenantIDUnmarshalText(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("zz")

	f.Fuzz(func(t *testing.T, input string) {
		var viaText domain.TenantID
		textErr := viaText.UnmarshalText([]byte(input))
		viaParse, parseErr := domain.ParseTenantID(input)

		if (textErr == nil) != (parseErr == nil) {
			t.Fatalf("UnmarshalText and ParseTenantID disagree on %q: %v vs %v",
				input, textErr, parseErr)
		}
		if textErr == nil && viaText != viaParse {
			t.Fatalf("decoders diverged on %q: %v != %v", input, viaText, viaParse)
		}
	})
}
