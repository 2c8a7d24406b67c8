package gssext_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/gssext/pkg/gssext"
	"github.com/systmms/gssext/pkg/native"
)

// TestSetThenGetNameAttribute verifies only the final set call carries the completeness flag
func TestSetThenGetNameAttribute(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)

	require.NoError(t, c.SetNameAttribute(name, []byte("k"), [][]byte{[]byte("v1"), []byte("v2")}, true))

	sets := lib.CallsTo(native.OpSetNameAttribute)
	require.Len(t, sets, 2)
	assert.False(t, sets[0].Complete)
	assert.True(t, sets[1].Complete)

	attr, err := c.GetNameAttribute(name, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("k"), attr.Key)
	assert.Equal(t, [][]byte{[]byte("v1"), []byte("v2")}, attr.Values)
	assert.Equal(t, []string{"v1", "v2"}, attr.DisplayValues)
	assert.True(t, attr.Complete)
	assert.False(t, attr.Authenticated)

	assert.Len(t, lib.CallsTo(native.OpGetNameAttribute), 2)
	assertBalanced(t, lib)
}

func TestSetNameAttributeIncomplete(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)

	require.NoError(t, c.SetNameAttribute(name, []byte("k"), [][]byte{[]byte("a"), []byte("b"), []byte("c")}, false))
	for _, call := range lib.CallsTo(native.OpSetNameAttribute) {
		assert.False(t, call.Complete)
	}

	// Still open, so more values can be added.
	require.NoError(t, c.SetNameAttribute(name, []byte("k"), [][]byte{[]byte("d")}, true))
	attr, err := c.GetNameAttribute(name, []byte("k"))
	require.NoError(t, err)
	assert.Len(t, attr.Values, 4)
	assert.True(t, attr.Complete)
}

// TestSetNameAttributeAbortsOnFailure verifies the loop stops at the first failure without rollback
func TestSetNameAttributeAbortsOnFailure(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)
	lib.FailOn(native.OpSetNameAttribute, 2, native.Status{Major: native.Failure, Minor: 77})

	err := c.SetNameAttribute(name, []byte("k"), [][]byte{[]byte("a"), []byte("b"), []byte("c")}, true)
	var se *gssext.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, uint32(77), se.Minor)
	assert.Contains(t, err.Error(), "value 2 of 3")
	assert.Len(t, lib.CallsTo(native.OpSetNameAttribute), 2)

	attr, err := c.GetNameAttribute(name, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a")}, attr.Values)
	assert.False(t, attr.Complete)
}

func TestSetNameAttributeInvalidInput(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)
	lib.ResetCalls()

	assert.ErrorIs(t, c.SetNameAttribute(name, []byte("k"), nil, true), gssext.ErrInvalidInput)
	assert.ErrorIs(t, c.SetNameAttribute(nil, []byte("k"), [][]byte{[]byte("v")}, true), gssext.ErrInvalidInput)
	assert.Empty(t, lib.Calls())
}

// TestGetNameAttributeIdempotent verifies two reads of an unmodified attribute are identical
func TestGetNameAttributeIdempotent(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)
	require.NoError(t, lib.SeedAttribute(name.Handle(), []byte("urn:groups"),
		[][]byte{[]byte("eng"), {0xff, 0xfe}, []byte("ops")}, true, true))

	first, err := c.GetNameAttribute(name, []byte("urn:groups"))
	require.NoError(t, err)
	second, err := c.GetNameAttribute(name, []byte("urn:groups"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"eng", "", "ops"}, first.DisplayValues)
	assert.True(t, first.Authenticated)
	assert.True(t, first.Complete)
	assertBalanced(t, lib)
}

// TestGetNameAttributeReleasesOnFailure verifies buffers from earlier iterations are released when a later call fails
func TestGetNameAttributeReleasesOnFailure(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)
	require.NoError(t, c.SetNameAttribute(name, []byte("k"), [][]byte{[]byte("a"), []byte("b"), []byte("c")}, true))
	lib.FailOn(native.OpGetNameAttribute, 3, native.Status{Major: native.Failure, Minor: 3})

	attr, err := c.GetNameAttribute(name, []byte("k"))
	assert.Nil(t, attr)
	assert.ErrorIs(t, err, gssext.ErrNativeFailure)
	assert.Contains(t, err.Error(), "value 3")
	assertBalanced(t, lib)

	_, err = c.GetNameAttribute(name, []byte("missing"))
	assert.ErrorIs(t, err, gssext.ErrOperationUnavailable)
	assertBalanced(t, lib)
}

// TestGetNameAttributeReleaseFailure verifies both buffers of an iteration are released even when the first release fails
func TestGetNameAttributeReleaseFailure(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)
	require.NoError(t, c.SetNameAttribute(name, []byte("k"), [][]byte{[]byte("a")}, true))
	lib.FailOn(native.OpReleaseBuffer, 1, native.Status{Major: native.Failure})

	_, err := c.GetNameAttribute(name, []byte("k"))
	assert.ErrorIs(t, err, gssext.ErrNativeFailure)
	assert.Len(t, lib.CallsTo(native.OpReleaseBuffer), 2)
	assertBalanced(t, lib)
}

func TestDeleteNameAttribute(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)
	require.NoError(t, lib.SeedAttribute(name.Handle(), []byte("urn:pac"), [][]byte{[]byte("x")}, true, true))
	require.NoError(t, c.SetNameAttribute(name, []byte("k"), [][]byte{[]byte("v")}, false))

	require.NoError(t, c.DeleteNameAttribute(name, []byte("k")))
	_, err := c.GetNameAttribute(name, []byte("k"))
	assert.ErrorIs(t, err, gssext.ErrOperationUnavailable)

	err = c.DeleteNameAttribute(name, []byte("k"))
	assert.ErrorIs(t, err, gssext.ErrOperationUnavailable)
	assert.NotErrorIs(t, err, gssext.ErrUnauthorized)

	err = c.DeleteNameAttribute(name, []byte("urn:pac"))
	assert.ErrorIs(t, err, gssext.ErrUnauthorized)
	assert.NotErrorIs(t, err, gssext.ErrOperationUnavailable)
}

func TestDisplayNameExt(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)

	text, err := c.DisplayNameExt(name, gssext.NTKRB5Principal)
	require.NoError(t, err)
	assert.Equal(t, principal, text)

	_, err = c.DisplayNameExt(name, gssext.NTHostbasedService)
	assert.ErrorIs(t, err, gssext.ErrOperationUnavailable)

	_, err = c.DisplayNameExt(name, nil)
	assert.ErrorIs(t, err, gssext.ErrInvalidInput)
	assertBalanced(t, lib)
}

func TestInquireName(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	mn := importPrincipal(t, c)
	user, err := c.ImportName([]byte("alice"), gssext.NTUserName)
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.ReleaseName(user)) }()

	info, err := c.InquireName(user, gssext.NameQuery{MechName: true, Attributes: true})
	require.NoError(t, err)
	assert.False(t, info.IsMechName)
	assert.Nil(t, info.Mech)
	assert.NotNil(t, info.Attributes)
	assert.Empty(t, info.Attributes)
	assert.Zero(t, lib.Stats().BufferSetsAllocated, "no attributes means no buffer set")

	require.NoError(t, c.SetNameAttribute(mn, []byte("a"), [][]byte{[]byte("1")}, false))
	require.NoError(t, c.SetNameAttribute(mn, []byte("b"), [][]byte{[]byte("2")}, false))

	info, err = c.InquireName(mn, gssext.NameQuery{MechName: true, Attributes: true})
	require.NoError(t, err)
	assert.True(t, info.IsMechName)
	assert.True(t, info.Mech.Equal(gssext.MechKRB5))
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, info.Attributes)

	lib.ResetCalls()
	info, err = c.InquireName(mn, gssext.NameQuery{Attributes: true})
	require.NoError(t, err)
	assert.False(t, info.IsMechName)
	assert.Nil(t, info.Mech)
	assert.Len(t, info.Attributes, 2)

	info, err = c.InquireName(mn, gssext.NameQuery{MechName: true})
	require.NoError(t, err)
	assert.True(t, info.IsMechName)
	assert.Nil(t, info.Attributes)

	calls := lib.CallsTo(native.OpInquireName)
	require.Len(t, calls, 2)
	assert.False(t, calls[0].WantMechName)
	assert.True(t, calls[0].WantAttrs)
	assert.True(t, calls[1].WantMechName)
	assert.False(t, calls[1].WantAttrs)

	assert.Equal(t, 2, lib.Stats().BufferSetsAllocated)
	assertBalanced(t, lib)
}

// TestExportNameComposite verifies the token re-imports only through the composite name type
func TestExportNameComposite(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)
	name := importPrincipal(t, c)
	require.NoError(t, lib.SeedAttribute(name.Handle(), []byte("urn:pac"), [][]byte{[]byte("S-1-5")}, true, true))
	require.NoError(t, c.SetNameAttribute(name, []byte("urn:role"), [][]byte{[]byte("admin"), []byte("ops")}, true))

	token, err := c.ExportNameComposite(name)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = c.ImportName(token, gssext.NTExportName)
	assert.ErrorIs(t, err, gssext.ErrNativeFailure)

	back, err := c.ImportName(token, gssext.NTCompositeExport)
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.ReleaseName(back)) }()

	for _, key := range []string{"urn:pac", "urn:role"} {
		want, err := c.GetNameAttribute(name, []byte(key))
		require.NoError(t, err)
		got, err := c.GetNameAttribute(back, []byte(key))
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}

	user, err := c.ImportName([]byte("bob"), nil)
	require.NoError(t, err)
	_, err = c.ExportNameComposite(user)
	var se *gssext.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, native.NameNotMN, se.RoutineError())
	require.NoError(t, c.ReleaseName(user))

	assertBalanced(t, lib)
}

func TestImportNameErrors(t *testing.T) {
	t.Parallel()

	c, lib := newClient(t)

	_, err := c.ImportName([]byte("alice"), gssext.MechKRB5)
	var se *gssext.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, native.BadNameType, se.RoutineError())

	_, err = c.ImportName([]byte("alice"), []int{7})
	assert.ErrorIs(t, err, gssext.ErrInvalidInput)

	assert.Zero(t, lib.Stats().NamesAllocated)
	assert.NoError(t, c.ReleaseName(nil))
}
