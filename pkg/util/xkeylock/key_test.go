package xkeylock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleKeyNilCanonical(t *testing.T) {
	k1, err := SingleKey(nil)
	require.NoError(t, err)
	k2, err := SingleKey(nil)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Equal(t, "<nil>", k1.String())
}

func TestSingleKeyValueEquality(t *testing.T) {
	a, err := SingleKey("expr")
	require.NoError(t, err)
	b, err := SingleKey("expr")
	require.NoError(t, err)
	c, err := SingleKey("other")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Same textual value, different dynamic type — distinct keys.
	i, err := SingleKey(1)
	require.NoError(t, err)
	s, err := SingleKey("1")
	require.NoError(t, err)
	assert.NotEqual(t, i, s)
}

func TestCompositeKeyCanonicalization(t *testing.T) {
	// Empty composite maps to a canonical sentinel, stable across calls.
	e1, err := CompositeKey()
	require.NoError(t, err)
	e2, err := CompositeKey()
	require.NoError(t, err)
	assert.Equal(t, e1, e2)
	assert.Equal(t, "<empty>", e1.String())

	// One-element composite degenerates to Single.
	c, err := CompositeKey("x")
	require.NoError(t, err)
	s, err := SingleKey("x")
	require.NoError(t, err)
	assert.Equal(t, s, c)

	// Empty composite is not the nil single sentinel.
	n, err := SingleKey(nil)
	require.NoError(t, err)
	assert.NotEqual(t, e1, n)
}

func TestCompositeKeyOrderSensitive(t *testing.T) {
	ab, err := CompositeKey("a", "b")
	require.NoError(t, err)
	ba, err := CompositeKey("b", "a")
	require.NoError(t, err)
	ab2, err := CompositeKey("a", "b")
	require.NoError(t, err)

	assert.Equal(t, ab, ab2)
	assert.NotEqual(t, ab, ba)

	// Arity matters: (a, b) != (a, b, nil).
	abn, err := CompositeKey("a", "b", nil)
	require.NoError(t, err)
	assert.NotEqual(t, ab, abn)
}

func TestSingleKeySliceIdentity(t *testing.T) {
	s1 := []string{"a", "b"}
	s2 := []string{"a", "b"}

	// A slice passed as a Single value locks on identity, not elements.
	k1, err := SingleKey(s1)
	require.NoError(t, err)
	k1b, err := SingleKey(s1)
	require.NoError(t, err)
	k2, err := SingleKey(s2)
	require.NoError(t, err)

	assert.Equal(t, k1, k1b, "same slice should map to the same key")
	assert.NotEqual(t, k1, k2, "equal-content but distinct slices must differ")

	// The decomposed elements are a different key entirely.
	elems, err := CompositeKey("a", "b")
	require.NoError(t, err)
	assert.NotEqual(t, k1, elems)
}

func TestSingleKeyUncomparable(t *testing.T) {
	type bad struct{ vs []int }

	_, err := SingleKey(bad{vs: []int{1}})
	assert.ErrorIs(t, err, ErrUncomparableKey)

	_, err = CompositeKey("ok", bad{})
	assert.ErrorIs(t, err, ErrUncomparableKey)
}

func TestKeyAsCompositeElement(t *testing.T) {
	// A pre-built Key passed as an element is unwrapped, not double-wrapped.
	inner, err := SingleKey("x")
	require.NoError(t, err)
	viaKey, err := CompositeKey(inner, "y")
	require.NoError(t, err)
	direct, err := CompositeKey("x", "y")
	require.NoError(t, err)
	assert.Equal(t, direct, viaKey)
}
