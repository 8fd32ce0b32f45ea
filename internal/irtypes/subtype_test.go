package irtypes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sunholo/shadeir/internal/arena"
	"github.com/sunholo/shadeir/internal/irtypes"
)

// TestIsSubtype_UniformVaryingCovariance covers spec.md §4.B's one
// qualifier-covariance rule: uniform <: varying, never the reverse.
func TestIsSubtype_UniformVaryingCovariance(t *testing.T) {
	a := arena.New(arena.Flags{})
	i32 := a.IntType(32, true)
	uniform := a.Qualified(i32, true)
	varying := a.Qualified(i32, false)

	assert.True(t, irtypes.IsSubtype(uniform, varying), "uniform must be a subtype of varying")
	assert.False(t, irtypes.IsSubtype(varying, uniform), "varying must never be a subtype of uniform")
	assert.True(t, irtypes.IsSubtype(uniform, uniform))
	assert.True(t, irtypes.IsSubtype(varying, varying))
}

// TestIsSubtype_DistinctInnerTypesNeverMatch ensures qualifier
// covariance never masks a mismatched inner type.
func TestIsSubtype_DistinctInnerTypesNeverMatch(t *testing.T) {
	a := arena.New(arena.Flags{})
	i32 := a.IntType(32, true)
	i64 := a.IntType(64, true)
	uniform32 := a.Qualified(i32, true)
	varying64 := a.Qualified(i64, false)

	assert.False(t, irtypes.IsSubtype(uniform32, varying64))
}

// TestCheckSubtype_ErrorsOnMismatch covers the error-returning wrapper
// used at type-check call sites (arena.TypeHook, lowering passes).
func TestCheckSubtype_ErrorsOnMismatch(t *testing.T) {
	a := arena.New(arena.Flags{})
	i32 := a.IntType(32, true)
	varying := a.Qualified(i32, false)
	uniform := a.Qualified(i32, true)

	assert.NoError(t, irtypes.CheckSubtype(uniform, varying))
	err := irtypes.CheckSubtype(varying, uniform)
	assert.Error(t, err)
}
