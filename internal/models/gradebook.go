package models

type SummaryStatus string

const (
	SummaryNotStarted SummaryStatus = "notStarted"
	SummaryInProgress SummaryStatus = "inProgress"
	SummarySubmitted  SummaryStatus = "submitted"
)

// QuestionRollup is one catalog question for one student. Placeholders only
// carry NotStarted; answered questions carry the recorded flags and scores.
type QuestionRollup struct {
	ID             string   `json:"_id"`
	NotStarted     bool     `json:"notStarted,omitempty"`
	Skipped        *bool    `json:"skipped,omitempty"`
	Correct        *bool    `json:"correct,omitempty"`
	PartialCorrect *bool    `json:"partialCorrect,omitempty"`
	Score          *float64 `json:"score,omitempty"`
	MaxScore       *float64 `json:"maxScore,omitempty"`
	TimeSpent      *int64   `json:"timespent"`
}

// StudentSummary is the per-student gradebook row. Status discriminates the
// variant: notStarted rows have no Score, TestActivityID or Graded.
type StudentSummary struct {
	StudentID          string           `json:"studentId"`
	StudentName        string           `json:"studentName,omitempty"`
	Status             SummaryStatus    `json:"status"`
	Present            bool             `json:"present"`
	Graded             bool             `json:"graded,omitempty"`
	MaxScore           float64          `json:"maxScore"`
	Score              *float64         `json:"score,omitempty"`
	TestActivityID     string           `json:"testActivityId,omitempty"`
	QuestionActivities []QuestionRollup `json:"questionActivities"`
}

func (s *StudentSummary) Started() bool {
	return s.Status != SummaryNotStarted
}

type AssignmentWindow struct {
	Status                string   `json:"status"`
	ReleaseScore          string   `json:"releaseScore,omitempty"`
	AnswerOnPaper         bool     `json:"answerOnPaper"`
	TestType              string   `json:"testType,omitempty"`
	TestContentVisibility string   `json:"testContentVisibility,omitempty"`
	OpenPolicy            string   `json:"openPolicy,omitempty"`
	ClosePolicy           string   `json:"closePolicy,omitempty"`
	ScoringType           string   `json:"scoringType,omitempty"`
	ApplyEBSR             bool     `json:"applyEBSR"`
	AllowTeacherRedirect  bool     `json:"allowTeacherRedirect"`
	AssignedBy            *NameRef `json:"assignedBy,omitempty"`

	StartDate       int64 `json:"startDate,omitempty"`
	EndDate         int64 `json:"endDate,omitempty"`
	DueDate         int64 `json:"dueDate,omitempty"`
	AllowedOpenDate int64 `json:"allowedOpenDate,omitempty"`
	Open            *bool `json:"open,omitempty"`
	OpenDate        int64 `json:"openDate,omitempty"`
	IsPaused        bool  `json:"isPaused"`

	DetailedClasses  []DetailedClass `json:"detailedClasses"`
	TimedAssignment  bool            `json:"timedAssignment"`
	AllowedTime      int64           `json:"allowedTime,omitempty"`
	PauseAllowed     bool            `json:"pauseAllowed"`
	Ts               int64           `json:"ts"`
	SpecificStudents bool            `json:"specificStudents"`

	ClassesCanBeMarked []string `json:"classesCanBeMarked"`
	CanOpenClass       []string `json:"canOpenClass"`
	CanCloseClass      []string `json:"canCloseClass"`

	PasswordPolicy      string `json:"passwordPolicy,omitempty"`
	PasswordExpireIn    int64  `json:"passwordExpireIn,omitempty"`
	AssignmentPassword  string `json:"assignmentPassword,omitempty"`
	PasswordCreatedDate int64  `json:"passwordCreatedDate,omitempty"`
	PasswordExpireTime  int64  `json:"passwordExpireTime,omitempty"`

	BulkAssignedCount          int      `json:"bulkAssignedCount"`
	BulkAssignedCountProcessed int      `json:"bulkAssignedCountProcessed"`
	PerformanceBand            *NameRef `json:"performanceBand,omitempty"`
	StandardGradingScale       *NameRef `json:"standardGradingScale,omitempty"`
	TermID                     string   `json:"termId,omitempty"`
	BubbleSheetTestID          string   `json:"bubbleSheetTestId,omitempty"`

	RedirectedDates map[string]int64 `json:"redirectedDates"`
}

type DetailedClass struct {
	ID             string   `json:"_id"`
	Students       []string `json:"students,omitempty"`
	DueDate        int64    `json:"dueDate,omitempty"`
	RedirectedDate int64    `json:"redirectedDate,omitempty"`
}

type ItemSummary struct {
	TestItemID   string  `db:"test_item_id" json:"_id" bson:"_id"`
	Attempts     int     `db:"attempts" json:"attempts" bson:"attempts"`
	AverageScore float64 `db:"average_score" json:"averageScore" bson:"averageScore"`
	Correct      int     `db:"correct" json:"correct" bson:"correct"`
	Skipped      int     `db:"skipped" json:"skipped" bson:"skipped"`
}
