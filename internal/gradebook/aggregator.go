package gradebook

import (
	"context"
	"errors"
	"fmt"

	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

// ErrTestNotFound aborts an aggregation whose test document cannot be read.
// Reporting placeholder rows instead would show wrong scores.
var ErrTestNotFound = errors.New("test not found")

// Aggregator merges selected attempts and their question activities into
// per-student gradebook rows.
type Aggregator struct {
	store store.RecordStore
}

func NewAggregator(s store.RecordStore) *Aggregator {
	return &Aggregator{store: s}
}

// Merge builds one summary per student id, in the order given. delivered
// lists the items delivered anywhere in the class, narrows randomized item
// groups and may be nil.
func (a *Aggregator) Merge(
	ctx context.Context,
	testID string,
	studentIDs []string,
	attempts []models.Attempt,
	activities []models.QuestionActivity,
	delivered []string,
) ([]models.StudentSummary, error) {
	users, err := a.store.FindUsers(ctx, store.UserQuery{IDs: studentIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to get student names: %w", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FirstName
	}

	test, err := a.store.GetTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test == nil {
		return nil, fmt.Errorf("%w: %s", ErrTestNotFound, testID)
	}

	groups := deliveredGroups(test, delivered)
	items, err := a.store.FindTestItems(ctx, CatalogItemIDs(test, groups))
	if err != nil {
		return nil, fmt.Errorf("failed to get test items: %w", err)
	}
	catalog := BuildCatalog(test, items, groups)

	return summarize(studentIDs, names, attempts, activities, catalog), nil
}

func summarize(
	studentIDs []string,
	names map[string]string,
	attempts []models.Attempt,
	activities []models.QuestionActivity,
	catalog Catalog,
) []models.StudentSummary {
	byStudent := make(map[string]*models.Attempt, len(attempts))
	for i := range attempts {
		byStudent[attempts[i].UserID] = &attempts[i]
	}

	// attempt id -> qid -> activity; only activities of the selected attempt count
	answered := make(map[string]map[string]*models.QuestionActivity)
	for i := range activities {
		qa := &activities[i]
		if answered[qa.TestActivityID] == nil {
			answered[qa.TestActivityID] = make(map[string]*models.QuestionActivity)
		}
		answered[qa.TestActivityID][qa.QID] = qa
	}

	placeholders := make([]models.QuestionRollup, 0, catalog.Size())
	for _, qid := range catalog.QuestionIDs {
		placeholders = append(placeholders, models.QuestionRollup{ID: qid, NotStarted: true})
	}

	summaries := make([]models.StudentSummary, 0, len(studentIDs))
	for _, id := range studentIDs {
		attempt, ok := byStudent[id]
		if !ok {
			summaries = append(summaries, models.StudentSummary{
				StudentID:          id,
				StudentName:        names[id],
				Status:             models.SummaryNotStarted,
				Present:            true,
				MaxScore:           catalog.MaxScore,
				QuestionActivities: placeholders,
			})
			continue
		}

		submitted := attempt.Status == models.StatusSubmitted
		status := models.SummaryInProgress
		if submitted {
			status = models.SummarySubmitted
		}

		byQID := answered[attempt.ID]
		var score float64
		rollups := make([]models.QuestionRollup, 0, catalog.Size())
		for _, qid := range catalog.QuestionIDs {
			qa, ok := byQID[qid]
			if !ok {
				rollups = append(rollups, models.QuestionRollup{ID: qid, NotStarted: true})
				continue
			}
			score += qa.ScoreValue()
			rollups = append(rollups, rollup(qa))
		}

		summaries = append(summaries, models.StudentSummary{
			StudentID:          id,
			StudentName:        names[id],
			Status:             status,
			Present:            attempt.Status != models.StatusAbsent,
			Graded:             submitted,
			MaxScore:           catalog.MaxScore,
			Score:              &score,
			TestActivityID:     attempt.ID,
			QuestionActivities: rollups,
		})
	}
	return summaries
}

func rollup(qa *models.QuestionActivity) models.QuestionRollup {
	r := models.QuestionRollup{
		ID:             qa.QID,
		Skipped:        qa.Skipped,
		Correct:        qa.Correct,
		PartialCorrect: qa.PartiallyCorrect,
		Score:          qa.Score,
		MaxScore:       qa.MaxScore,
	}
	if qa.TimeSpent > 0 {
		spent := qa.TimeSpent
		r.TimeSpent = &spent
	}
	return r
}
