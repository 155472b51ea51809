package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyAllowListAdmitsEveryone(t *testing.T) {
	p := NewPolicyService("", "")
	assert.True(t, p.IsAllowed(12345))
	assert.False(t, p.IsAdmin(12345))
}

func TestAllowListRestricts(t *testing.T) {
	p := NewPolicyService("", "100, 200")
	assert.True(t, p.IsAllowed(100))
	assert.True(t, p.IsAllowed(200))
	assert.False(t, p.IsAllowed(300))
}

func TestAdminsAlwaysAllowed(t *testing.T) {
	p := NewPolicyService("999", "100")
	assert.True(t, p.IsAdmin(999))
	assert.True(t, p.IsAllowed(999))
	assert.False(t, p.IsAllowed(998))
}

func TestMalformedIDsIgnored(t *testing.T) {
	p := NewPolicyService("abc,42", "")
	assert.False(t, p.IsAdmin(0))
	assert.True(t, p.IsAdmin(42))
}
