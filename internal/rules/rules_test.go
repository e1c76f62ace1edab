package rules

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emailzen/emailzen/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(storage.NewMemStore())
}

func TestSaveGeneratesID(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(Rule{Name: "Shops", Active: true})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(saved.ID, "regra_"))
	assert.NotZero(t, saved.CreatedAt)
	assert.Equal(t, saved.CreatedAt, saved.UpdatedAt)
}

func TestSaveUpdatePreservesCreationTime(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(Rule{Name: "Shops", Active: true})
	require.NoError(t, err)

	saved.Name = "Shopping"
	updated, err := store.Save(saved)
	require.NoError(t, err)

	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt)

	rules, err := store.List()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "Shopping", rules[0].Name)
}

func TestSaveUnknownIDFails(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Save(Rule{ID: "regra_missing", Name: "x"})
	assert.Error(t, err)
}

func TestListPreservesCreationOrder(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Save(Rule{Name: "first", Active: true})
	require.NoError(t, err)
	second, err := store.Save(Rule{Name: "second", Active: true})
	require.NoError(t, err)

	rules, err := store.List()
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, first.ID, rules[0].ID)
	assert.Equal(t, second.ID, rules[1].ID)
}

func TestListActiveFiltersInactive(t *testing.T) {
	store := newTestStore(t)

	active, err := store.Save(Rule{Name: "on", Active: true})
	require.NoError(t, err)
	inactive, err := store.Save(Rule{Name: "off", Active: false})
	require.NoError(t, err)

	rules, err := store.ListActive()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, active.ID, rules[0].ID)
	_ = inactive
}

func TestToggle(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(Rule{Name: "x", Active: true})
	require.NoError(t, err)

	require.NoError(t, store.Toggle(saved.ID, false))

	got, ok, err := store.Get(saved.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Active)

	assert.Error(t, store.Toggle("regra_missing", true))
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(Rule{Name: "x", Active: true})
	require.NoError(t, err)

	require.NoError(t, store.Delete(saved.ID))
	require.NoError(t, store.Delete("regra_missing"))

	rules, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestSweepable(t *testing.T) {
	assert.True(t, Rule{Active: true, Actions: Actions{Label: "Shop", RetentionDays: 30}}.Sweepable())
	assert.False(t, Rule{Active: false, Actions: Actions{Label: "Shop", RetentionDays: 30}}.Sweepable())
	assert.False(t, Rule{Active: true, Actions: Actions{RetentionDays: 30}}.Sweepable())
	assert.False(t, Rule{Active: true, Actions: Actions{Label: "Shop"}}.Sweepable())
}

func TestUnmarshalDefaultsOmittedActiveToTrue(t *testing.T) {
	tests := []struct {
		name   string
		json   string
		active bool
	}{
		{
			name:   "omitted",
			json:   `{"nome":"Shopping","condicoes":{"remetente":["@shop.com"]},"acoes":{"label":"Shop"}}`,
			active: true,
		},
		{
			name:   "explicit true",
			json:   `{"nome":"Shopping","ativa":true}`,
			active: true,
		},
		{
			name:   "explicit false",
			json:   `{"nome":"Shopping","ativa":false}`,
			active: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rule Rule
			require.NoError(t, json.Unmarshal([]byte(tt.json), &rule))
			assert.Equal(t, tt.active, rule.Active)
		})
	}
}

func TestSavedJSONRuleWithoutActiveFlagMatches(t *testing.T) {
	store := newTestStore(t)

	var rule Rule
	require.NoError(t, json.Unmarshal(
		[]byte(`{"nome":"Shopping","condicoes":{"remetente":["@shop.com"]},"acoes":{"label":"Shop"}}`),
		&rule))

	saved, err := store.Save(rule)
	require.NoError(t, err)
	assert.True(t, saved.Active)

	active, err := store.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, saved.ID, active[0].ID)
}
