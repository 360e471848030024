package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already normal", "alice@contoso.com", "alice@contoso.com"},
		{"mixed case", "Alice@Contoso.COM", "alice@contoso.com"},
		{"surrounding whitespace", "  alice@contoso.com \t", "alice@contoso.com"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizeAddress(tc.input))
		})
	}
}

func TestHolderMatches(t *testing.T) {
	tests := []struct {
		name     string
		holder   string
		target   string
		expected bool
	}{
		{"exact", "alice@contoso.com", "alice@contoso.com", true},
		{"case insensitive", "Alice@Contoso.com", "alice@contoso.com", true},
		{"domain qualified holder", "CONTOSO\\alice@contoso.com", "alice@contoso.com", true},
		{"different holder", "bob@contoso.com", "alice@contoso.com", false},
		{"empty holder", "", "alice@contoso.com", false},
		{"empty target", "alice@contoso.com", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HolderMatches(tc.holder, tc.target))
		})
	}
}
