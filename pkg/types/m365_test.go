package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthPolicyLegacyAllowed(t *testing.T) {
	tests := []struct {
		name     string
		policy   AuthPolicy
		expected bool
	}{
		{
			name:     "all protocols blocked",
			policy:   AuthPolicy{Name: "Block Legacy Auth"},
			expected: false,
		},
		{
			name:     "pop open",
			policy:   AuthPolicy{Name: "Allow POP", AllowPop: true},
			expected: true,
		},
		{
			name:     "imap open",
			policy:   AuthPolicy{Name: "Allow IMAP", AllowImap: true},
			expected: true,
		},
		{
			name:     "smtp open",
			policy:   AuthPolicy{Name: "Allow SMTP", AllowSmtp: true},
			expected: true,
		},
		{
			name:     "activesync open",
			policy:   AuthPolicy{Name: "Allow ActiveSync", AllowActiveSync: true},
			expected: true,
		},
		{
			name:     "autodiscover open",
			policy:   AuthPolicy{Name: "Allow Autodiscover", AllowAutodiscover: true},
			expected: true,
		},
		{
			name:     "web services open",
			policy:   AuthPolicy{Name: "Allow EWS", AllowWebServices: true},
			expected: true,
		},
		{
			name:     "powershell open",
			policy:   AuthPolicy{Name: "Allow PS", AllowPowershell: true},
			expected: true,
		},
		{
			name:     "mapi open",
			policy:   AuthPolicy{Name: "Allow MAPI", AllowMapi: true},
			expected: true,
		},
		{
			name: "several open",
			policy: AuthPolicy{
				Name:      "Mixed",
				AllowPop:  true,
				AllowImap: true,
				AllowMapi: true,
			},
			expected: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.policy.LegacyAllowed())
		})
	}
}

func TestAuthPolicyLegacyAllowedExhaustive(t *testing.T) {
	// Every combination of the eight protocol switches: the verdict is the OR
	// of the flags, so only the all-closed policy disallows legacy auth.
	for mask := 0; mask < 1<<8; mask++ {
		policy := AuthPolicy{
			Name:              "combo",
			AllowPop:          mask&(1<<0) != 0,
			AllowImap:         mask&(1<<1) != 0,
			AllowSmtp:         mask&(1<<2) != 0,
			AllowActiveSync:   mask&(1<<3) != 0,
			AllowAutodiscover: mask&(1<<4) != 0,
			AllowWebServices:  mask&(1<<5) != 0,
			AllowPowershell:   mask&(1<<6) != 0,
			AllowMapi:         mask&(1<<7) != 0,
		}
		assert.Equal(t, mask != 0, policy.LegacyAllowed(), "mask %08b", mask)
	}
}

func TestPolicyCatalogLookup(t *testing.T) {
	catalog := NewPolicyCatalog([]AuthPolicy{
		{Name: "Default"},
		{Name: "Allow POP", AllowPop: true},
	})

	assert.Equal(t, 2, catalog.Len())

	policy, ok := catalog.Lookup("Allow POP")
	assert.True(t, ok)
	assert.True(t, policy.LegacyAllowed())

	policy, ok = catalog.Lookup("Default")
	assert.True(t, ok)
	assert.False(t, policy.LegacyAllowed())

	_, ok = catalog.Lookup("No Such Policy")
	assert.False(t, ok)

	// Lookups are exact, not case-folded.
	_, ok = catalog.Lookup("default")
	assert.False(t, ok)
}

func TestRecipientKindIsGroup(t *testing.T) {
	assert.False(t, UserMailbox.IsGroup())
	assert.False(t, SharedMailbox.IsGroup())
	assert.False(t, UnspecifiedRecipient.IsGroup())
	assert.True(t, DistributionGroup.IsGroup())
	assert.True(t, UnifiedGroup.IsGroup())
}
