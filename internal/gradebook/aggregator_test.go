package gradebook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

func sampleTest() *models.Test {
	return &models.Test{
		ID:    "t1",
		Title: "Fractions",
		ItemGroups: models.ItemGroups{
			{ID: "g1", Type: models.ItemGroupStatic, DeliveryType: models.DeliverAll, Items: []models.ItemRef{{ItemID: "i1"}, {ItemID: "i2"}}},
		},
	}
}

func sampleItems() []models.TestItem {
	return []models.TestItem{
		{ID: "i2", Questions: models.Questions{{ID: "q3", MaxScore: 5}}},
		{ID: "i1", Questions: models.Questions{{ID: "q1", MaxScore: 1}, {ID: "q2", MaxScore: 2}}},
	}
}

func TestBuildCatalog(t *testing.T) {
	catalog := BuildCatalog(sampleTest(), sampleItems(), nil)

	assert.Equal(t, []string{"i1", "i2"}, catalog.ItemIDs)
	assert.Equal(t, []string{"q1", "q2", "q3"}, catalog.QuestionIDs)
	assert.Equal(t, 8.0, catalog.MaxScore)
}

func TestBuildCatalog_ItemLevelScoringAndMissingItems(t *testing.T) {
	test := sampleTest()
	test.ItemGroups[0].Items = append(test.ItemGroups[0].Items, models.ItemRef{ItemID: "gone"})
	items := []models.TestItem{
		{ID: "i1", ItemLevelScoring: true, ItemLevelScore: 10, Questions: models.Questions{{ID: "q1", MaxScore: 1}, {ID: "q2", MaxScore: 2}}},
		{ID: "i2", Questions: models.Questions{{ID: "q3", MaxScore: 5}}},
	}

	catalog := BuildCatalog(test, items, nil)

	assert.Equal(t, []string{"q1", "q2", "q3"}, catalog.QuestionIDs)
	assert.Equal(t, 15.0, catalog.MaxScore)
}

func TestCatalogItemIDs_RandomizedGroups(t *testing.T) {
	test := &models.Test{
		ItemGroups: models.ItemGroups{
			{ID: "static", Type: models.ItemGroupStatic, Items: []models.ItemRef{{ItemID: "i1"}}},
			{ID: "random", Type: models.ItemGroupStatic, DeliveryType: models.DeliverLimitedRandom, Items: []models.ItemRef{{ItemID: "r1"}, {ItemID: "r2"}, {ItemID: "r3"}}},
			{ID: "auto", Type: models.ItemGroupAutoSelect},
		},
	}

	testCases := []struct {
		name      string
		delivered map[string][]string
		expected  []string
	}{
		{
			name:     "nothing delivered uses static lists",
			expected: []string{"i1", "r1", "r2", "r3"},
		},
		{
			name:      "limited random keeps static order of delivered items",
			delivered: map[string][]string{"random": {"r3", "r1"}},
			expected:  []string{"i1", "r1", "r3"},
		},
		{
			name:      "auto select takes delivered items",
			delivered: map[string][]string{"auto": {"x2", "x1"}, "static": {"ignored"}},
			expected:  []string{"i1", "r1", "r2", "r3", "x2", "x1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CatalogItemIDs(test, tc.delivered))
		})
	}
}

func TestDeliveredGroups(t *testing.T) {
	test := &models.Test{
		ItemGroups: models.ItemGroups{
			{ID: "static", Type: models.ItemGroupStatic, Items: []models.ItemRef{{ItemID: "i1"}}},
			{ID: "random", Type: models.ItemGroupStatic, DeliveryType: models.DeliverLimitedRandom},
			{ID: "auto", Type: models.ItemGroupAutoSelect},
		},
	}

	assert.Equal(t, map[string][]string{
		"random": {"r1", "a1"},
		"auto":   {"r1", "a1"},
	}, deliveredGroups(test, []string{"r1", "a1"}))
	assert.Nil(t, deliveredGroups(test, nil))
}

func TestSummarize(t *testing.T) {
	catalog := BuildCatalog(sampleTest(), sampleItems(), nil)
	attempts := []models.Attempt{
		{ID: "ta1", UserID: "s1", Status: models.StatusSubmitted},
		{ID: "ta2", UserID: "s2", Status: models.StatusAbsent},
		{ID: "ta3", UserID: "s3", Status: models.StatusInProgress},
	}
	activities := []models.QuestionActivity{
		{QID: "q1", UserID: "s1", TestActivityID: "ta1", Score: floatPtr(1), MaxScore: floatPtr(1), Correct: boolPtr(true), TimeSpent: 4000},
		{QID: "q3", UserID: "s1", TestActivityID: "ta1", Score: floatPtr(2.5), MaxScore: floatPtr(5), PartiallyCorrect: boolPtr(true)},
		{QID: "q2", UserID: "s1", TestActivityID: "old", Score: floatPtr(2), MaxScore: floatPtr(2)},
		{QID: "q2", UserID: "s3", TestActivityID: "ta3", Skipped: boolPtr(true)},
	}
	names := map[string]string{"s1": "Ada", "s4": "Linus"}

	summaries := summarize([]string{"s1", "s2", "s3", "s4"}, names, attempts, activities, catalog)
	require.Len(t, summaries, 4)

	s1 := summaries[0]
	assert.Equal(t, "Ada", s1.StudentName)
	assert.Equal(t, models.SummarySubmitted, s1.Status)
	assert.True(t, s1.Present)
	assert.True(t, s1.Graded)
	assert.Equal(t, "ta1", s1.TestActivityID)
	require.NotNil(t, s1.Score)
	assert.Equal(t, 3.5, *s1.Score)
	require.Len(t, s1.QuestionActivities, 3)
	assert.Equal(t, "q1", s1.QuestionActivities[0].ID)
	assert.Equal(t, int64(4000), *s1.QuestionActivities[0].TimeSpent)
	assert.True(t, s1.QuestionActivities[1].NotStarted, "activity of an older attempt must not count")
	assert.True(t, *s1.QuestionActivities[2].PartialCorrect)

	s2 := summaries[1]
	assert.Equal(t, models.SummaryInProgress, s2.Status)
	assert.False(t, s2.Present)
	assert.False(t, s2.Graded)
	assert.Equal(t, 0.0, *s2.Score)

	s3 := summaries[2]
	assert.Equal(t, 0.0, *s3.Score)
	assert.True(t, *s3.QuestionActivities[1].Skipped)
	assert.Nil(t, s3.QuestionActivities[1].TimeSpent)

	s4 := summaries[3]
	assert.Equal(t, models.SummaryNotStarted, s4.Status)
	assert.True(t, s4.Present)
	assert.Nil(t, s4.Score)
	assert.Empty(t, s4.TestActivityID)
	require.Len(t, s4.QuestionActivities, catalog.Size())
	for _, q := range s4.QuestionActivities {
		assert.True(t, q.NotStarted)
	}

	for _, s := range summaries {
		assert.Equal(t, catalog.MaxScore, s.MaxScore)
		assert.Len(t, s.QuestionActivities, catalog.Size())
		var sum float64
		for _, q := range s.QuestionActivities {
			if q.Score != nil {
				sum += *q.Score
			}
		}
		if s.Score != nil {
			assert.Equal(t, sum, *s.Score)
		}
	}
}

func TestAggregator_Merge(t *testing.T) {
	ctx := context.Background()
	mockStore := &MockStore{}
	agg := NewAggregator(mockStore)

	mockStore.On("FindUsers", store.UserQuery{IDs: []string{"s1"}}).Return([]models.User{{ID: "s1", FirstName: "Ada"}}, nil)
	mockStore.On("GetTest", "t1").Return(sampleTest(), nil)
	mockStore.On("FindTestItems", []string{"i1", "i2"}).Return(sampleItems(), nil)

	summaries, err := agg.Merge(ctx, "t1", []string{"s1"}, nil, nil, nil)

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Ada", summaries[0].StudentName)
	assert.Equal(t, 8.0, summaries[0].MaxScore)
	mockStore.AssertExpectations(t)
}

func TestAggregator_Merge_MissingTestAborts(t *testing.T) {
	ctx := context.Background()
	mockStore := &MockStore{}
	agg := NewAggregator(mockStore)

	mockStore.On("FindUsers", mock.Anything).Return([]models.User{}, nil)
	mockStore.On("GetTest", "t1").Return(nil, nil)

	summaries, err := agg.Merge(ctx, "t1", []string{"s1"}, nil, nil, nil)

	assert.ErrorIs(t, err, ErrTestNotFound)
	assert.Nil(t, summaries)
	mockStore.AssertNotCalled(t, "FindTestItems", mock.Anything)
}

func TestAggregator_Merge_PropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	mockStore := &MockStore{}
	agg := NewAggregator(mockStore)
	boom := errors.New("read timeout")

	mockStore.On("FindUsers", mock.Anything).Return(nil, boom)

	_, err := agg.Merge(ctx, "t1", []string{"s1"}, nil, nil, nil)

	assert.ErrorIs(t, err, boom)
}
