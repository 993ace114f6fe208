package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchestra-dev/orchestra/pkg/util"
)

func TestSet(t *testing.T) {
	s := util.SetOf("a", "b")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))

	s.Add("c")
	assert.True(t, s.Contains("c"))

	s.Remove("a")
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 2, s.Len())
}

func TestEmptySet(t *testing.T) {
	s := util.SetOf[int]()
	assert.True(t, s.IsEmpty())

	s.Add(42)
	assert.False(t, s.IsEmpty())
}
