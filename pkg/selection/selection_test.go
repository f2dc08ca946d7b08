package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureItems() []Item {
	return []Item{
		{ID: "item-1"},
		{ID: "item-2"},
		{ID: "item-3", Optional: true, Group: "materials"},
		{ID: "item-4", Optional: true, Group: "materials"},
		{ID: "item-5", Optional: true, Group: "services"},
	}
}

func fixtureModes() map[string]Mode {
	return map[string]Mode{
		"materials": ModeSingle,
		"services":  ModeMulti,
	}
}

func TestDeriveGroups(t *testing.T) {
	groups := DeriveGroups(fixtureItems(), fixtureModes())
	require.Len(t, groups, 2)
	assert.Equal(t, "materials", groups[0].Name)
	assert.Equal(t, ModeSingle, groups[0].Mode)
	assert.Equal(t, []string{"item-3", "item-4"}, groups[0].ItemIDs)
	assert.Equal(t, "services", groups[1].Name)
	assert.Equal(t, ModeMulti, groups[1].Mode)
}

func TestDeriveGroupsDefaultsToSingle(t *testing.T) {
	groups := DeriveGroups(fixtureItems(), nil)
	require.Len(t, groups, 2)
	assert.Equal(t, ModeSingle, groups[0].Mode)
	assert.Equal(t, ModeSingle, groups[1].Mode)
}

func TestToggleUnknownItem(t *testing.T) {
	s := NewState(fixtureItems(), fixtureModes())
	assert.ErrorIs(t, s.Toggle("nope"), ErrUnknownItem)
	assert.ErrorIs(t, s.Toggle("item-1"), ErrUnknownItem)
	assert.Empty(t, s.SelectedIDs())
}

func TestSingleSelectReplacesSibling(t *testing.T) {
	s := NewState(fixtureItems(), fixtureModes())

	require.NoError(t, s.Toggle("item-3"))
	assert.Equal(t, []string{"item-3"}, s.SelectedIDs())

	require.NoError(t, s.Toggle("item-4"))
	assert.Equal(t, []string{"item-4"}, s.SelectedIDs())
}

func TestSingleSelectRetoggleIsNoOp(t *testing.T) {
	s := NewState(fixtureItems(), fixtureModes())

	require.NoError(t, s.Toggle("item-3"))
	require.NoError(t, s.Toggle("item-3"))
	assert.Equal(t, []string{"item-3"}, s.SelectedIDs())
}

func TestSingleSelectNeverEmptyOnceTouched(t *testing.T) {
	s := NewState(fixtureItems(), fixtureModes())

	sequence := []string{"item-3", "item-4", "item-4", "item-3", "item-3", "item-3"}
	for _, id := range sequence {
		require.NoError(t, s.Toggle(id))

		count := 0
		for _, member := range []string{"item-3", "item-4"} {
			if s.IsSelected(member) {
				count++
			}
		}
		assert.Equal(t, 1, count)
	}
}

func TestMultiSelectDoubleToggleIsIdentity(t *testing.T) {
	s := NewState(fixtureItems(), fixtureModes())

	require.NoError(t, s.Toggle("item-5"))
	assert.True(t, s.IsSelected("item-5"))

	require.NoError(t, s.Toggle("item-5"))
	assert.False(t, s.IsSelected("item-5"))
	assert.Empty(t, s.SelectedIDs())
}

func TestUngroupedOptionalTogglesIndependently(t *testing.T) {
	items := append(fixtureItems(), Item{ID: "item-6", Optional: true})
	s := NewState(items, fixtureModes())

	require.NoError(t, s.Toggle("item-6"))
	assert.True(t, s.IsSelected("item-6"))
	require.NoError(t, s.Toggle("item-6"))
	assert.False(t, s.IsSelected("item-6"))
}

func TestMandatoryAlwaysSelected(t *testing.T) {
	s := NewState(fixtureItems(), fixtureModes())
	assert.True(t, s.IsSelected("item-1"))
	assert.True(t, s.IsSelected("item-2"))
	assert.False(t, s.IsSelected("item-3"))
	assert.False(t, s.IsSelected("nope"))
}

func TestReplaceFromAdoptsServerSet(t *testing.T) {
	s := NewState(fixtureItems(), fixtureModes())
	require.NoError(t, s.Toggle("item-3"))
	require.NoError(t, s.Toggle("item-5"))

	s.ReplaceFrom([]string{"item-4"})
	assert.Equal(t, []string{"item-4"}, s.SelectedIDs())
	assert.False(t, s.IsSelected("item-5"))
}

func TestReplaceFromDropsUnknownAndMandatory(t *testing.T) {
	s := NewState(fixtureItems(), fixtureModes())

	s.ReplaceFrom([]string{"item-5", "item-1", "ghost"})
	assert.Equal(t, []string{"item-5"}, s.SelectedIDs())
}

func TestReplaceFromKeepsServerSetVerbatim(t *testing.T) {
	// The server may enforce rules the client does not know; its set
	// wins even when local toggles could not have produced it.
	s := NewState(fixtureItems(), fixtureModes())

	s.ReplaceFrom([]string{"item-3", "item-4"})
	assert.Equal(t, []string{"item-3", "item-4"}, s.SelectedIDs())
}

func TestValidateSelectable(t *testing.T) {
	s := NewState(fixtureItems(), fixtureModes())

	assert.NoError(t, s.ValidateSelectable([]string{"item-3", "item-5"}))
	assert.ErrorIs(t, s.ValidateSelectable([]string{"item-3", "ghost"}), ErrUnknownItem)
	assert.ErrorIs(t, s.ValidateSelectable([]string{"item-1"}), ErrUnknownItem)
}
