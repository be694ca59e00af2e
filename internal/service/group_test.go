package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sxxm/medcheck/backend/internal/types"
)

func newTestGroupResolver(foods *stubFoods) *GroupResolver {
	medications := &stubMedications{records: map[string]MedicationRecord{
		"DrugA": {Name: "DrugA", ActiveIngredients: []string{"X"}, Excipients: []string{"Y"}},
		"DrugB": {Name: "DrugB", ActiveIngredients: []string{"Y"}, Excipients: []string{"Z"}},
	}}
	return NewGroupResolver(medications, foods, 2, zap.NewNop())
}

func TestParseGroupType(t *testing.T) {
	for _, raw := range []string{"food", "FOOD", " Food "} {
		groupType, ok := ParseGroupType(raw)
		assert.True(t, ok)
		assert.Equal(t, GroupTypeFood, groupType)
	}
	groupType, ok := ParseGroupType("drug")
	assert.True(t, ok)
	assert.Equal(t, GroupTypeDrug, groupType)

	_, ok = ParseGroupType("supplement")
	assert.False(t, ok)
	_, ok = ParseGroupType("")
	assert.False(t, ok)
}

func TestGroupResolver_ResolveGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("should merge drug actives and excipients", func(t *testing.T) {
		resolver := newTestGroupResolver(&stubFoods{})
		got := resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "drug", Items: []string{"DrugA", "DrugB"}}, 1)

		require.NotNil(t, got)
		assert.Equal(t, 1, got.GroupIndex)
		assert.Equal(t, GroupTypeDrug, got.GroupType)
		assert.Equal(t, []string{"X", "Y", "Z"}, got.MergedIngredients)
		assert.Equal(t, "DrugA, DrugB", got.DisplayName)
		assert.False(t, got.Degraded)
	})

	t.Run("should keep repeated items in the display name but look them up once", func(t *testing.T) {
		medications := &countingMedications{stubMedications: stubMedications{records: map[string]MedicationRecord{
			"DrugA": {Name: "DrugA", ActiveIngredients: []string{"X"}, Excipients: []string{"Y"}},
		}}}
		resolver := NewGroupResolver(medications, &stubFoods{}, 2, zap.NewNop())

		got := resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "DRUG", Items: []string{" DrugA", "DrugA ", "", "  "}}, 1)

		require.NotNil(t, got)
		assert.Equal(t, []string{"DrugA", "DrugA"}, got.OriginalItems)
		assert.Equal(t, "DrugA, DrugA", got.DisplayName)
		assert.Equal(t, []string{"X", "Y"}, got.MergedIngredients)
		assert.Equal(t, [][]string{{"DrugA"}}, medications.batches)
	})

	t.Run("should infer repeated foods once", func(t *testing.T) {
		foods := &stubFoods{result: map[string][]string{"bread": {"wheat"}}}
		resolver := newTestGroupResolver(foods)

		got := resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "FOOD", Items: []string{"bread", "bread"}}, 1)

		require.NotNil(t, got)
		assert.Equal(t, "bread, bread", got.DisplayName)
		assert.Equal(t, []string{"wheat"}, got.MergedIngredients)
		assert.Equal(t, [][]string{{"bread"}}, foods.calls)
	})

	t.Run("should keep unknown drugs with no ingredients", func(t *testing.T) {
		resolver := newTestGroupResolver(&stubFoods{})
		got := resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "DRUG", Items: []string{"Unknown"}}, 3)

		require.NotNil(t, got)
		assert.Empty(t, got.MergedIngredients)
		assert.NotNil(t, got.MergedIngredients)
		assert.Equal(t, "Unknown", got.DisplayName)
	})

	t.Run("should union inferred food ingredients in item order", func(t *testing.T) {
		foods := &stubFoods{result: map[string][]string{
			"Soy Milk": {"soybean", "water"},
			"bread":    {"wheat", "water", "yeast"},
		}}
		resolver := newTestGroupResolver(foods)
		got := resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "FOOD", Items: []string{" soy milk ", "bread", ""}}, 2)

		require.NotNil(t, got)
		assert.Equal(t, []string{"soy milk", "bread"}, got.OriginalItems)
		assert.Equal(t, []string{"soybean", "water", "wheat", "yeast"}, got.MergedIngredients)
		assert.Equal(t, "soy milk, bread", got.DisplayName)
		require.Len(t, foods.calls, 1)
		assert.Equal(t, []string{"soy milk", "bread"}, foods.calls[0])
	})

	t.Run("should degrade food group when inference fails", func(t *testing.T) {
		foods := &stubFoods{err: errors.New("connection refused")}
		resolver := newTestGroupResolver(foods)
		got := resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "food", Items: []string{"kimchi"}}, 1)

		require.NotNil(t, got)
		assert.True(t, got.Degraded)
		assert.Empty(t, got.MergedIngredients)
		assert.NotNil(t, got.MergedIngredients)
		assert.Equal(t, "kimchi", got.DisplayName)
	})

	t.Run("should skip invalid groups", func(t *testing.T) {
		resolver := newTestGroupResolver(&stubFoods{})

		assert.Nil(t, resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "", Items: []string{"DrugA"}}, 1))
		assert.Nil(t, resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "herb", Items: []string{"DrugA"}}, 1))
		assert.Nil(t, resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "DRUG"}, 1))
		assert.Nil(t, resolver.ResolveGroup(ctx, types.AnalysisGroup{Type: "DRUG", Items: []string{" ", ""}}, 1))
	})
}

func TestGroupResolver_ResolveGroups(t *testing.T) {
	foods := &stubFoods{result: map[string][]string{"soy milk": {"soybean"}}}
	resolver := newTestGroupResolver(foods)

	got := resolver.ResolveGroups(context.Background(), []types.AnalysisGroup{
		{Type: "DRUG", Items: []string{"DrugA"}},
		{Type: "bogus", Items: []string{"x"}},
		{Type: "FOOD", Items: []string{"soy milk"}},
		{Type: "DRUG", Items: []string{"DrugB"}},
	})

	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 3, 4}, []int{got[0].GroupIndex, got[1].GroupIndex, got[2].GroupIndex})
	assert.Equal(t, "DrugA", got[0].DisplayName)
	assert.Equal(t, "soy milk", got[1].DisplayName)
	assert.Equal(t, "DrugB", got[2].DisplayName)
}

// countingMedications records every batch handed to ResolveAll
type countingMedications struct {
	stubMedications
	batches [][]string
}

func (c *countingMedications) ResolveAll(ctx context.Context, names []string) []MedicationRecord {
	c.batches = append(c.batches, names)
	return c.stubMedications.ResolveAll(ctx, names)
}
