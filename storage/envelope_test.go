package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSealWithoutTTLNeverExpires(t *testing.T) {
	now := time.Now()
	env := Seal([]byte("v"), 0, now)
	assert.Zero(t, env.ExpiresAt)
	assert.False(t, env.Expired(now.Add(100*365*24*time.Hour)))
}

func TestSealWithTTL(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	env := Seal([]byte("v"), time.Minute, now)
	assert.Equal(t, now.Add(time.Minute).UnixMilli(), env.ExpiresAt)
	assert.False(t, env.Expired(now.Add(59*time.Second)))
	assert.True(t, env.Expired(now.Add(time.Minute)))
}

func TestSealCopiesValue(t *testing.T) {
	value := []byte("abc")
	env := Seal(value, 0, time.Now())
	value[0] = 'X'
	assert.Equal(t, []byte("abc"), env.Value)
}
