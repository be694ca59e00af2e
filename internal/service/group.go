package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sxxm/medcheck/backend/internal/metrics"
	"github.com/sxxm/medcheck/backend/internal/types"
)

// GroupType is the kind of items a group holds
type GroupType string

const (
	GroupTypeFood GroupType = "FOOD"
	GroupTypeDrug GroupType = "DRUG"
)

// ParseGroupType accepts "food" and "drug" in any case
func ParseGroupType(s string) (GroupType, bool) {
	switch GroupType(strings.ToUpper(strings.TrimSpace(s))) {
	case GroupTypeFood:
		return GroupTypeFood, true
	case GroupTypeDrug:
		return GroupTypeDrug, true
	default:
		return "", false
	}
}

// GroupResolution is a group reduced to the ingredients of all its items
type GroupResolution struct {
	GroupIndex        int       `json:"group_index"`
	GroupType         GroupType `json:"group_type"`
	OriginalItems     []string  `json:"original_items"`
	MergedIngredients []string  `json:"merged_ingredients"`
	DisplayName       string    `json:"display_name"`
	Degraded          bool      `json:"degraded"`
}

// GroupResolver turns request groups into ingredient sets, one strategy per group type
type GroupResolver struct {
	medications MedicationResolver
	foods       FoodIngredientInferrer
	logger      *zap.Logger
	concurrency int
}

// NewGroupResolver creates a new GroupResolver instance
func NewGroupResolver(medications MedicationResolver, foods FoodIngredientInferrer, concurrency int, logger *zap.Logger) *GroupResolver {
	if concurrency <= 0 {
		concurrency = defaultRegistryConcurrency
	}
	return &GroupResolver{
		medications: medications,
		foods:       foods,
		logger:      logger,
		concurrency: concurrency,
	}
}

// ResolveGroup resolves one group; index is its 1-based position in the request. It returns
// nil for a group with an unknown type or no usable items. A group whose ingredients could not
// be resolved is returned with an empty ingredient set.
func (r *GroupResolver) ResolveGroup(ctx context.Context, group types.AnalysisGroup, index int) *GroupResolution {
	groupType, ok := ParseGroupType(group.Type)
	if !ok {
		r.logger.Warn("skipping group with unknown type", zap.Int("group_index", index), zap.String("type", group.Type))
		metrics.RecordGroup("unknown", "skipped")
		return nil
	}

	items := trimmedItems(group.Items)
	if len(items) == 0 {
		r.logger.Warn("skipping group without items", zap.Int("group_index", index), zap.String("type", string(groupType)))
		metrics.RecordGroup(string(groupType), "skipped")
		return nil
	}

	resolution := &GroupResolution{
		GroupIndex:        index,
		GroupType:         groupType,
		OriginalItems:     items,
		MergedIngredients: []string{},
		DisplayName:       strings.Join(items, ", "),
	}
	lookups := uniqueStrings(items)

	switch groupType {
	case GroupTypeFood:
		ingredients, err := r.resolveFoods(ctx, lookups)
		if err != nil {
			r.logger.Error("food group resolution failed",
				zap.Int("group_index", index),
				zap.Strings("items", items),
				zap.Error(err),
			)
			resolution.Degraded = true
			metrics.RecordGroup(string(groupType), "degraded")
			return resolution
		}
		resolution.MergedIngredients = ingredients
	case GroupTypeDrug:
		resolution.MergedIngredients = r.resolveDrugs(ctx, lookups)
	}

	metrics.RecordGroup(string(groupType), "resolved")
	return resolution
}

// ResolveGroups resolves groups concurrently and returns the usable ones in request order
func (r *GroupResolver) ResolveGroups(ctx context.Context, groups []types.AnalysisGroup) []GroupResolution {
	slots := make([]*GroupResolution, len(groups))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, group := range groups {
		g.Go(func() error {
			slots[i] = r.ResolveGroup(ctx, group, i+1)
			return nil
		})
	}
	_ = g.Wait()

	resolved := make([]GroupResolution, 0, len(groups))
	for _, slot := range slots {
		if slot != nil {
			resolved = append(resolved, *slot)
		}
	}
	return resolved
}

func (r *GroupResolver) resolveFoods(ctx context.Context, items []string) ([]string, error) {
	inferred, err := r.foods.Infer(ctx, items)
	if err != nil {
		return nil, err
	}

	lists := make([][]string, 0, len(items))
	for _, item := range items {
		lists = append(lists, lookupFood(inferred, item))
	}
	return uniqueStrings(lists...), nil
}

// lookupFood finds the inferred ingredients of item, falling back to a case-insensitive match
func lookupFood(inferred map[string][]string, item string) []string {
	if ingredients, ok := inferred[item]; ok {
		return ingredients
	}
	for name, ingredients := range inferred {
		if strings.EqualFold(strings.TrimSpace(name), item) {
			return ingredients
		}
	}
	return nil
}

func (r *GroupResolver) resolveDrugs(ctx context.Context, items []string) []string {
	records := r.medications.ResolveAll(ctx, items)

	lists := make([][]string, 0, len(records)*2)
	for _, record := range records {
		lists = append(lists, record.ActiveIngredients, record.Excipients)
	}
	return uniqueStrings(lists...)
}
