package redisstore_test

import (
	"testing"

	"checkout/pkg/redisstore"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

var _ fiber.Storage = (*redisstore.Storage)(nil)

func TestStorage_Key(t *testing.T) {
	s := redisstore.New("localhost:0", "checkout")
	defer s.Close()

	assert.Equal(t, "checkout:session:abc", s.Key("abc"))
}

func TestStorage_EmptyKeysAreNoops(t *testing.T) {
	// Nothing listens on port 0, so any round trip would fail.
	s := redisstore.New("localhost:0", "checkout")
	defer s.Close()

	val, err := s.Get("")
	assert.NoError(t, err)
	assert.Nil(t, val)
	assert.NoError(t, s.Set("", []byte("x"), 0))
	assert.NoError(t, s.Set("id", nil, 0))
	assert.NoError(t, s.Delete(""))
}
