package gradebook

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) ApplyMigrations(dir string) error {
	return nil
}

func (m *MockStore) GetAssignment(ctx context.Context, districtID, assignmentID string) (*models.Assignment, error) {
	args := m.Called(districtID, assignmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *MockStore) FindAttempts(ctx context.Context, q store.AttemptQuery) ([]models.Attempt, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Attempt), args.Error(1)
}

func (m *MockStore) FindQuestionActivities(ctx context.Context, q store.QuestionActivityQuery) ([]models.QuestionActivity, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuestionActivity), args.Error(1)
}

func (m *MockStore) DeliveredItemIDs(ctx context.Context, testID, groupID string) ([]string, error) {
	args := m.Called(testID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) GetTest(ctx context.Context, id string) (*models.Test, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Test), args.Error(1)
}

func (m *MockStore) FindTestItems(ctx context.Context, ids []string) ([]models.TestItem, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TestItem), args.Error(1)
}

func (m *MockStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) FindUsers(ctx context.Context, q store.UserQuery) ([]models.User, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockStore) FindEnrollments(ctx context.Context, q store.EnrollmentQuery) ([]models.Enrollment, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Enrollment), args.Error(1)
}

func (m *MockStore) CountEnrollment(ctx context.Context, q store.EnrollmentQuery) (int, error) {
	args := m.Called(q)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) FindGroups(ctx context.Context, q store.GroupQuery) ([]models.Group, error) {
	args := m.Called(q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Group), args.Error(1)
}

func (m *MockStore) AverageScore(ctx context.Context, assignmentID string) (float64, error) {
	args := m.Called(assignmentID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockStore) ItemsSummary(ctx context.Context, assignmentID string) ([]models.ItemSummary, error) {
	args := m.Called(assignmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ItemSummary), args.Error(1)
}

type MockRefs struct {
	mock.Mock
}

func (m *MockRefs) GradingScale(ctx context.Context, id string) (models.MasteryBands, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.MasteryBands), args.Error(1)
}

func (m *MockRefs) StandardsForItems(ctx context.Context, curriculumIDs []int, itemIDs []string) ([]models.StandardSummary, error) {
	args := m.Called(curriculumIDs, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StandardSummary), args.Error(1)
}

func (m *MockRefs) InterestedCurriculums(ctx context.Context, userID, districtID string) ([]int, error) {
	args := m.Called(userID, districtID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

type publishedEvent struct {
	topic     string
	eventType string
	payload   interface{}
}

type recordingBus struct {
	events []publishedEvent
}

func (b *recordingBus) Publish(ctx context.Context, topic, eventType string, payload interface{}) {
	b.events = append(b.events, publishedEvent{topic: topic, eventType: eventType, payload: payload})
}

// prefixDecrypter "decrypts" by stripping an enc: prefix.
type prefixDecrypter struct{}

func (prefixDecrypter) Decrypt(ciphertext string) (string, error) {
	if len(ciphertext) < 4 || ciphertext[:4] != "enc:" {
		return "", errors.New("not encrypted")
	}
	return ciphertext[4:], nil
}

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
