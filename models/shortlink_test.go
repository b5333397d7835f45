package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShortLinkExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	assert.False(t, (&ShortLink{}).Expired(now))
	assert.True(t, (&ShortLink{ExpiresAt: &past}).Expired(now))
	assert.True(t, (&ShortLink{ExpiresAt: &now}).Expired(now))
	assert.False(t, (&ShortLink{ExpiresAt: &future}).Expired(now))
}

func TestShortLinkSameOwner(t *testing.T) {
	alice, bob, empty := "alice", "bob", ""

	anon := &ShortLink{}
	assert.True(t, anon.SameOwner(nil))
	assert.True(t, anon.SameOwner(&empty))
	assert.False(t, anon.SameOwner(&alice))

	owned := &ShortLink{UserID: &alice}
	assert.True(t, owned.SameOwner(&alice))
	assert.False(t, owned.SameOwner(&bob))
	assert.False(t, owned.SameOwner(nil))
}
