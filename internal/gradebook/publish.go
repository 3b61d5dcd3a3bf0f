package gradebook

import (
	"context"
	"fmt"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

const (
	EventAddItem              = "addItem"
	EventRemoveQuestions      = "removeQuestions"
	EventAddQuestionsMaxScore = "addQuestionsMaxScore"
)

// Topic is the channel live gradebooks of one class assignment listen on.
func Topic(groupID, assignmentID string) string {
	return fmt.Sprintf("gradebook:%s:%s", groupID, assignmentID)
}

// AddedQuestion is the addItem payload entry for one answered question.
type AddedQuestion struct {
	ID             string   `json:"_id"`
	Score          *float64 `json:"score,omitempty"`
	Skipped        *bool    `json:"skipped,omitempty"`
	Correct        *bool    `json:"correct,omitempty"`
	TestActivityID string   `json:"testActivityId"`
	TestItemID     string   `json:"testItemId"`
}

// PublishAddItem announces freshly answered questions of one item.
func (s *Service) PublishAddItem(ctx context.Context, activities []models.QuestionActivity, assignmentID, groupID string) {
	payload := make([]AddedQuestion, 0, len(activities))
	for _, qa := range activities {
		payload = append(payload, AddedQuestion{
			ID:             qa.QID,
			Score:          qa.Score,
			Skipped:        qa.Skipped,
			Correct:        qa.Correct,
			TestActivityID: qa.TestActivityID,
			TestItemID:     qa.TestItemID,
		})
	}
	s.bus.Publish(ctx, Topic(groupID, assignmentID), EventAddItem, payload)
}

// PublishRemovedQuestions announces question ids dropped from the test.
func (s *Service) PublishRemovedQuestions(ctx context.Context, removed []string, assignmentID, groupID string) {
	s.bus.Publish(ctx, Topic(groupID, assignmentID), EventRemoveQuestions, removed)
}

// PublishAddQuestionsMaxScore announces new max scores keyed by question id.
func (s *Service) PublishAddQuestionsMaxScore(ctx context.Context, qidMaxScore map[string]float64, assignmentID, groupID string) {
	s.bus.Publish(ctx, Topic(groupID, assignmentID), EventAddQuestionsMaxScore, qidMaxScore)
}
