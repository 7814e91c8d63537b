package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testathon/shopcheck/internal/handlers"
	"github.com/testathon/shopcheck/internal/models"
	"go.uber.org/zap/zaptest"
)

func TestProbeService_Probe(t *testing.T) {
	tests := []struct {
		name        string
		storefront  handlers.StorefrontOptions
		wantPresent []models.Feature
	}{
		{
			name:       "full interactive panel",
			storefront: fullPanel(),
			wantPresent: []models.Feature{
				models.FeatureApplyFilters,
				models.FeatureBrandFilter,
				models.FeatureBrandFilterEffective,
				models.FeatureClearFilters,
				models.FeatureFilterPanel,
				models.FeaturePriceInputs,
				models.FeatureResultsPerPage,
				models.FeatureSortDropdown,
				models.FeatureViewToggle,
			},
		},
		{
			name:       "full panel without script",
			storefront: handlers.StorefrontOptions{FilterPanel: true},
			wantPresent: []models.Feature{
				models.FeatureApplyFilters,
				models.FeatureBrandFilter,
				models.FeatureClearFilters,
				models.FeatureFilterPanel,
				models.FeaturePriceInputs,
				models.FeatureResultsPerPage,
				models.FeatureSortDropdown,
				models.FeatureViewToggle,
			},
		},
		{
			name:        "vendor checkboxes that do not filter",
			storefront:  handlers.LiveLike(),
			wantPresent: []models.Feature{models.FeatureBrandFilter, models.FeatureFilterPanel},
		},
		{
			name:       "no filters at all",
			storefront: handlers.StorefrontOptions{Interactive: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newSession(t, tt.storefront)
			ctx := t.Context()

			report, err := NewProbeService(zaptest.NewLogger(t)).Probe(ctx, sess)
			require.NoError(t, err)

			var present []models.Feature
			for _, c := range report.Sorted() {
				if c.IsPresent() {
					present = append(present, c.Feature)
				}
			}
			assert.Equal(t, tt.wantPresent, present)
			assert.Empty(t, report.Errors())
			assert.Len(t, report, len(models.ProbedFeatures()))

			count, err := sess.Listing.GetProductCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 25, count, "probe leaves the listing unfiltered")
		})
	}
}

func TestProbeService_EffectiveFilterDetail(t *testing.T) {
	sess := newSession(t, handlers.LiveLike())

	report, err := NewProbeService(nil).Probe(t.Context(), sess)
	require.NoError(t, err)

	c := report.Get(models.FeatureBrandFilterEffective)
	assert.True(t, c.IsAbsent())
	assert.Equal(t, "selecting iPhone left 25 of 25 products", c.Detail)

	selected, err := sess.Filters.GetSelectedBrandFilters(t.Context())
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestProbeService_CancelledContext(t *testing.T) {
	sess := newSession(t, fullPanel())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := NewProbeService(nil).Probe(ctx, sess)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
