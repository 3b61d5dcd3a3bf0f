package gradebook

import (
	"context"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

// ReferenceService resolves standards and proficiency data. It is read only.
type ReferenceService interface {
	GradingScale(ctx context.Context, id string) (models.MasteryBands, error)
	StandardsForItems(ctx context.Context, curriculumIDs []int, itemIDs []string) ([]models.StandardSummary, error)
	InterestedCurriculums(ctx context.Context, userID, districtID string) ([]int, error)
}

// NotifyBus announces gradebook changes to subscribers. Publishing is fire
// and forget: implementations log delivery failures instead of returning them.
type NotifyBus interface {
	Publish(ctx context.Context, topic, eventType string, payload interface{})
}

type Config struct {
	// ChunkSize is how many students the first page merges inline.
	ChunkSize int `toml:"chunk_size"`
	// MinLeftover is the largest remainder still merged on the first page
	// instead of being handed back as leftOverStudents.
	MinLeftover int `toml:"min_leftover"`
}

func DefaultConfig() Config {
	return Config{ChunkSize: 25, MinLeftover: 10}
}

type StudentsDataRequest struct {
	DistrictID       string   `json:"districtId" validate:"required"`
	AssignmentID     string   `json:"assignmentId" validate:"required"`
	ClassID          string   `json:"classId" validate:"required"`
	TeacherID        string   `json:"teacherId" validate:"required_if=PageNo 0"`
	PageNo           int      `json:"pageNo" validate:"gte=0"`
	UserRole         string   `json:"userRole"`
	IncludeInactive  bool     `json:"includeInactive"`
	IsQuestionsView  bool     `json:"isQuestionsView"`
	IncludeStudents  bool     `json:"includeStudents"`
	LeftOverStudents []string `json:"leftOverStudents" validate:"dive,required"`
	UserID           string   `json:"userId"`
}

type ErrorStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ActivityResult is the activity part of a gradebook page.
type ActivityResult struct {
	TestActivities              []models.Attempt            `json:"testActivities"`
	TestQuestionActivities      []models.QuestionActivity   `json:"testQuestionActivities"`
	RecentTestActivitiesGrouped map[string][]models.Attempt `json:"recentTestActivitiesGrouped"`
	Summaries                   []models.StudentSummary     `json:"summaries"`
}

type ClassName struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// AdditionalData is the assignment metadata only computed on the first page.
type AdditionalData struct {
	models.AssignmentWindow

	Standards         []models.StandardSummary `json:"standards"`
	AssignmentMastery models.MasteryBands      `json:"assignmentMastery"`
	Classes           []ClassName              `json:"classes"`
	ClassID           string                   `json:"classId"`
	ClassName         string                   `json:"className,omitempty"`
	TestName          string                   `json:"testName"`
	TestID            string                   `json:"testId"`
	TestAuthors       []string                 `json:"testAuthors"`
	TotalCount        int                      `json:"totalCount"`
}

// StudentsData is either an error envelope or one page of the gradebook.
type StudentsData struct {
	Error  bool         `json:"error,omitempty"`
	Status *ErrorStatus `json:"status,omitempty"`

	Students         []models.User  `json:"students,omitempty"`
	EnrollmentStatus map[string]int `json:"enrollmentStatus,omitempty"`
	LeftOverStudents []string       `json:"leftOverStudents,omitempty"`

	*ActivityResult
	AdditionalData *AdditionalData `json:"additionalData,omitempty"`
}

func notFound(message string) *StudentsData {
	return &StudentsData{Error: true, Status: &ErrorStatus{Code: 404, Message: message}}
}

// Summary is the class level overview of one assignment.
type Summary struct {
	Error  bool         `json:"error,omitempty"`
	Status *ErrorStatus `json:"status,omitempty"`

	Total           int                  `json:"total"`
	SubmittedNumber int                  `json:"submittedNumber"`
	AbsentNumber    int                  `json:"absentNumber"`
	AverageScore    float64              `json:"averageScore"`
	ItemsSummary    []models.ItemSummary `json:"itemsSummary"`
}

const (
	msgAssignmentNotAvailable = "Assignment is not available"
	msgClassNotAssigned       = "Assignment not assigned to the requested class"
	msgTeacherNotFound        = "teacher not found"
)
