package mem

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	v, err := s.Get(ctx, "/p/", "k1")
	assert.Nil(t, err)
	assert.Nil(t, v)

	assert.Nil(t, s.Set(ctx, "/p/", "k2", []byte("v2")))
	assert.Nil(t, s.Set(ctx, "/p/", "k1", []byte("v1")))
	assert.Nil(t, s.Set(ctx, "/q/", "k3", []byte("v3")))

	v, err = s.Get(ctx, "/p/", "k1")
	assert.Nil(t, err)
	assert.Equal(t, []byte("v1"), v)

	keys := []string{}
	assert.Nil(t, s.List(ctx, "/p/", func(key string) bool {
		keys = append(keys, key)
		return true
	}))
	assert.Equal(t, []string{"k1", "k2"}, keys)

	assert.Nil(t, s.Remove(ctx, "/p/", "k1"))
	assert.Nil(t, s.Remove(ctx, "/p/", "not-exists"))
	v, _ = s.Get(ctx, "/p/", "k1")
	assert.Nil(t, v)
}

func TestMemStoreErrHandler(t *testing.T) {
	var setError error
	s := NewMemStoreWithErrHandler(func() error {
		return setError
	})
	ctx := context.Background()

	assert.Nil(t, s.Set(ctx, "/p/", "k", []byte("v")))
	setError = errors.Errorf("set error")
	assert.NotNil(t, s.Set(ctx, "/p/", "k", []byte("v2")))
	_, err := s.Get(ctx, "/p/", "k")
	assert.NotNil(t, err)

	setError = nil
	v, err := s.Get(ctx, "/p/", "k")
	assert.Nil(t, err)
	assert.Equal(t, []byte("v"), v)
}
