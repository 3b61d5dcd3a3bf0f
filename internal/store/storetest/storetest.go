// Package storetest holds the behaviour checks shared by every store backend.
// Backends load testdata/fixtures.sql (or its equivalent) and call Run.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

type Store interface {
	store.RecordStore
	store.ReferenceStore
}

func attemptIDs(attempts []models.Attempt) []string {
	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.ID)
	}
	return ids
}

// Run exercises s against the rows from testdata/fixtures.sql.
func Run(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("get assignment", func(t *testing.T) {
		got, err := s.GetAssignment(ctx, "d1", "a1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "a1", got.ID)
		assert.Equal(t, "t1", got.TestID)
		assert.Equal(t, "Quiz", got.Title)
		assert.Equal(t, models.PolicyManualOpen, got.OpenPolicy)
		require.Len(t, got.Class, 2)
		assert.True(t, got.Class[1].Archived)

		missing, err := s.GetAssignment(ctx, "d2", "a1")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("find attempts", func(t *testing.T) {
		all, err := s.FindAttempts(ctx, store.AttemptQuery{AssignmentID: "a1", GroupID: "c1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"ta1", "ta2", "ta3"}, attemptIDs(all))
		assert.Nil(t, all[0].ItemsToDeliverInGroup)
		assert.True(t, all[0].Assigned())
		require.NotNil(t, all[0].Score)
		assert.Equal(t, 3.0, *all[0].Score)
		assert.Nil(t, all[1].Score)

		active, err := s.FindAttempts(ctx, store.AttemptQuery{
			AssignmentID:            "a1",
			GroupID:                 "c1",
			ExcludeLanguageSwitched: true,
			WithDeliveredItems:      true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"ta1", "ta2"}, attemptIDs(active))
		assert.Equal(t, map[string][]string{"g1": {"i1"}}, active[0].DeliveredItems())

		filtered, err := s.FindAttempts(ctx, store.AttemptQuery{
			AssignmentID: "a1",
			GroupID:      "c1",
			UserIDs:      []string{"s2"},
			Statuses:     []models.AttemptStatus{models.StatusSubmitted},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"ta3"}, attemptIDs(filtered))
	})

	t.Run("delivered items", func(t *testing.T) {
		ids, err := s.DeliveredItemIDs(ctx, "t1", "c1")
		require.NoError(t, err)
		assert.Equal(t, []string{"i1", "i2"}, ids)
	})

	t.Run("find question activities", func(t *testing.T) {
		byAttempt, err := s.FindQuestionActivities(ctx, store.QuestionActivityQuery{
			AssignmentID:    "a1",
			GroupID:         "c1",
			TestActivityIDs: []string{"ta1"},
		})
		require.NoError(t, err)
		require.Len(t, byAttempt, 2)
		assert.Equal(t, "q1", byAttempt[0].QID)
		assert.Equal(t, int64(30), byAttempt[0].TimeSpent)
		require.NotNil(t, byAttempt[0].Correct)
		assert.True(t, *byAttempt[0].Correct)
		assert.Nil(t, byAttempt[0].Skipped)

		byItem, err := s.FindQuestionActivities(ctx, store.QuestionActivityQuery{
			AssignmentID: "a1",
			GroupID:      "c1",
			TestItemID:   "i2",
		})
		require.NoError(t, err)
		require.Len(t, byItem, 1)
		assert.Equal(t, "qa3", byItem[0].ID)
	})

	t.Run("tests and items", func(t *testing.T) {
		test, err := s.GetTest(ctx, "t1")
		require.NoError(t, err)
		require.NotNil(t, test)
		assert.Equal(t, "Fractions", test.Title)
		assert.Equal(t, models.StringList{"u1"}, test.Authors)
		assert.Equal(t, []string{"i1", "i2"}, test.ItemIDs())
		assert.False(t, test.HasRandomQuestions())

		missing, err := s.GetTest(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)

		items, err := s.FindTestItems(ctx, []string{"i1", "i2"})
		require.NoError(t, err)
		require.Len(t, items, 2)
		scores := map[string]float64{}
		for _, it := range items {
			scores[it.ID] = it.MaxScore()
		}
		assert.Equal(t, map[string]float64{"i1": 3, "i2": 5}, scores)

		none, err := s.FindTestItems(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("users", func(t *testing.T) {
		teacher, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, teacher)
		assert.Equal(t, "teacher", teacher.Role)
		assert.Equal(t, "d1", teacher.CurrentDistrict())
		assert.Equal(t, models.StringList{"inst1"}, teacher.InstitutionIDs)

		missing, err := s.GetUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, missing)

		active, err := s.FindUsers(ctx, store.UserQuery{IDs: []string{"s1", "s2", "s3"}, Statuses: []int{1}})
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, "s1", active[0].ID)
		assert.Equal(t, "Sam", active[0].FirstName)
	})

	t.Run("enrollments", func(t *testing.T) {
		q := store.EnrollmentQuery{GroupID: "c1", GroupType: "class", Role: "student", Statuses: []int{1}}

		enrollments, err := s.FindEnrollments(ctx, q)
		require.NoError(t, err)
		require.Len(t, enrollments, 2)
		assert.Equal(t, "s1", enrollments[0].UserID)

		count, err := s.CountEnrollment(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		q.Statuses = nil
		count, err = s.CountEnrollment(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("groups", func(t *testing.T) {
		owned, err := s.FindGroups(ctx, store.GroupQuery{IDs: []string{"c1", "c2"}, OwnerID: "u1"})
		require.NoError(t, err)
		require.Len(t, owned, 1)
		assert.Equal(t, "Period 1", owned[0].Name)

		byInstitution, err := s.FindGroups(ctx, store.GroupQuery{IDs: []string{"c1", "c2"}, InstitutionIDs: []string{"inst2"}})
		require.NoError(t, err)
		require.Len(t, byInstitution, 1)
		assert.Equal(t, "c2", byInstitution[0].ID)
	})

	t.Run("summary aggregates", func(t *testing.T) {
		avg, err := s.AverageScore(ctx, "a1")
		require.NoError(t, err)
		assert.InDelta(t, 4.0, avg, 1e-9)

		none, err := s.AverageScore(ctx, "a2")
		require.NoError(t, err)
		assert.Zero(t, none)

		items, err := s.ItemsSummary(ctx, "a1")
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "i1", items[0].TestItemID)
		assert.Equal(t, 2, items[0].Attempts)
		assert.InDelta(t, 1.5, items[0].AverageScore, 1e-9)
		assert.Equal(t, 1, items[0].Correct)
		assert.Equal(t, 0, items[0].Skipped)
		assert.Equal(t, 1, items[1].Skipped)
	})

	t.Run("reference data", func(t *testing.T) {
		scale, err := s.GradingScale(ctx, "sp1")
		require.NoError(t, err)
		require.Len(t, scale, 2)
		assert.Equal(t, "Mastered", scale[1].MasteryLevel)

		missing, err := s.GradingScale(ctx, "sp9")
		require.NoError(t, err)
		assert.Nil(t, missing)

		standards, err := s.StandardsForItems(ctx, nil, []string{"i1", "i2"})
		require.NoError(t, err)
		require.Len(t, standards, 2)
		assert.Equal(t, 10, standards[0].StandardID)
		assert.Equal(t, []string{"i1", "i2"}, standards[0].ItemIDs)
		assert.Equal(t, []string{"i2"}, standards[1].ItemIDs)

		filtered, err := s.StandardsForItems(ctx, []int{200}, []string{"i1", "i2"})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, "6.NS.2", filtered[0].Identifier)

		curriculums, err := s.InterestedCurriculums(ctx, "u1", "d1")
		require.NoError(t, err)
		assert.Equal(t, []int{100, 200}, curriculums)
	})
}
