package gradebook

import (
	"context"
	"fmt"

	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

// GradebookSummary counts submissions of one class and summarizes scores per item.
func (s *Service) GradebookSummary(ctx context.Context, districtID, assignmentID, classID string) (*Summary, error) {
	assignment, err := s.store.GetAssignment(ctx, districtID, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return &Summary{Error: true, Status: &ErrorStatus{Code: 404, Message: msgAssignmentNotAvailable}}, nil
	}
	forClass := assignment.ForClass(classID)
	class := forClass.OriginalClass()
	if class == nil {
		return &Summary{Error: true, Status: &ErrorStatus{Code: 404, Message: msgClassNotAssigned}}, nil
	}

	submitted := class.InGradingNumber + class.GradedNumber
	total := len(class.Students)
	if total == 0 {
		total, err = s.store.CountEnrollment(ctx, store.EnrollmentQuery{
			GroupID:   classID,
			GroupType: models.GroupTypeClass,
			Role:      models.RoleStudent,
			Statuses:  []int{models.StatusActive},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count enrollments: %w", err)
		}
	}
	absent := total - (submitted + class.InProgressNumber)
	if absent < 0 {
		absent = 0
	}

	average, err := s.store.AverageScore(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get average score: %w", err)
	}
	items, err := s.store.ItemsSummary(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items summary: %w", err)
	}
	if items == nil {
		items = []models.ItemSummary{}
	}

	return &Summary{
		Total:           total,
		SubmittedNumber: submitted,
		AbsentNumber:    absent,
		AverageScore:    average,
		ItemsSummary:    items,
	}, nil
}

// QuestionActivitiesByItem returns the answers every student gave to one item
// in their current attempt. Students whose current attempt is not started yet
// are shown with their previous submitted or absent attempt.
func (s *Service) QuestionActivitiesByItem(ctx context.Context, assignmentID, groupID, testItemID string) ([]models.QuestionActivity, error) {
	attempts, err := s.store.FindAttempts(ctx, store.AttemptQuery{
		AssignmentID: assignmentID,
		GroupID:      groupID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get test activities: %w", err)
	}

	var activityIDs, notStartedUsers []string
	notStarted := make(map[string]bool)
	for _, a := range PickLatest(GroupRecent(attempts), false) {
		if a.Status == models.StatusNotStarted {
			notStarted[a.ID] = true
			notStartedUsers = append(notStartedUsers, a.UserID)
			continue
		}
		activityIDs = append(activityIDs, a.ID)
	}

	if len(notStartedUsers) > 0 {
		previous, err := s.store.FindAttempts(ctx, store.AttemptQuery{
			AssignmentID: assignmentID,
			GroupID:      groupID,
			UserIDs:      notStartedUsers,
			Statuses:     []models.AttemptStatus{models.StatusSubmitted, models.StatusAbsent},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get previous test activities: %w", err)
		}
		var earlier []models.Attempt
		for _, a := range previous {
			if !notStarted[a.ID] {
				earlier = append(earlier, a)
			}
		}
		for _, a := range PickLatest(GroupRecent(earlier), false) {
			activityIDs = append(activityIDs, a.ID)
		}
	}

	if len(activityIDs) == 0 {
		return []models.QuestionActivity{}, nil
	}

	activities, err := s.store.FindQuestionActivities(ctx, store.QuestionActivityQuery{
		AssignmentID:    assignmentID,
		GroupID:         groupID,
		TestItemID:      testItemID,
		TestActivityIDs: activityIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get question activities: %w", err)
	}

	// evaluation highlights only make sense for auto-gradable answers
	for i := range activities {
		qa := &activities[i]
		if qa.AutoGrade != nil && !*qa.AutoGrade && !qa.IsGradedExternally {
			qa.Evaluation = nil
		}
	}
	if activities == nil {
		activities = []models.QuestionActivity{}
	}
	return activities, nil
}
