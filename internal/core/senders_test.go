package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSenderPolicyExactMatch(t *testing.T) {
	policy := NewSenderPolicy(
		[]string{"boss@company.com"},
		[]string{"spammer@junk.net"},
		zap.NewNop(),
	)

	assert.Equal(t, SenderWhitelisted, policy.Status("boss@company.com"))
	assert.Equal(t, SenderBlacklisted, policy.Status("spammer@junk.net"))
	assert.Equal(t, SenderNeutral, policy.Status("someone@example.com"))
}

func TestSenderPolicyCaseAndWhitespace(t *testing.T) {
	policy := NewSenderPolicy([]string{" Boss@Company.COM "}, nil, zap.NewNop())

	assert.Equal(t, SenderWhitelisted, policy.Status("BOSS@company.com"))
	assert.Equal(t, SenderWhitelisted, policy.Status("  boss@company.com  "))
}

func TestSenderPolicyDomainWildcard(t *testing.T) {
	policy := NewSenderPolicy([]string{"*@company.com"}, nil, zap.NewNop())

	assert.Equal(t, SenderWhitelisted, policy.Status("anyone@company.com"))
	assert.Equal(t, SenderNeutral, policy.Status("anyone@other.com"))
	assert.Equal(t, SenderNeutral, policy.Status("anyone@sub.company.org"))
}

func TestSenderPolicyGlobPattern(t *testing.T) {
	policy := NewSenderPolicy(nil, []string{"noreply@*", "*-promo@*.shop.example"}, zap.NewNop())

	tests := []struct {
		address string
		status  SenderStatus
	}{
		{"noreply@anything.com", SenderBlacklisted},
		{"noreply@deals.example", SenderBlacklisted},
		{"reply@anything.com", SenderNeutral},
		{"summer-promo@mail.shop.example", SenderBlacklisted},
		{"summer-promo@shop.other", SenderNeutral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, policy.Status(tt.address), "address %s", tt.address)
	}
}

func TestSenderPolicyWhitelistDominates(t *testing.T) {
	policy := NewSenderPolicy(
		[]string{"keeper@junk.net"},
		[]string{"*@junk.net"},
		zap.NewNop(),
	)

	assert.Equal(t, SenderWhitelisted, policy.Status("keeper@junk.net"))
	assert.Equal(t, SenderBlacklisted, policy.Status("other@junk.net"))
}

func TestSenderPolicyEmptyLists(t *testing.T) {
	policy := NewSenderPolicy(nil, nil, zap.NewNop())

	assert.Equal(t, SenderNeutral, policy.Status("anyone@example.com"))
	assert.Equal(t, SenderNeutral, policy.Status(""))
}

func TestSenderPolicyIgnoresBlankEntries(t *testing.T) {
	policy := NewSenderPolicy([]string{"", "  "}, []string{""}, zap.NewNop())

	assert.Equal(t, SenderNeutral, policy.Status("anyone@example.com"))
}
