package models

const (
	PolicyAutoOnStartDate = "Automatically on Start Date"
	PolicyAutoOnDueDate   = "Automatically on Due Date"
	PolicyManualOpen      = "Open Manually by Teacher"
	PolicyManualClose     = "Close Manually by User"

	PasswordPolicyOff     = "REQUIRED_PASSWORD_POLICY_OFF"
	PasswordPolicyStatic  = "REQUIRED_PASSWORD_POLICY_STATIC"
	PasswordPolicyDynamic = "REQUIRED_PASSWORD_POLICY_DYNAMIC"

	AssignmentNotOpen    = "NOT OPEN"
	AssignmentInProgress = "IN PROGRESS"
	AssignmentInGrading  = "IN GRADING"
	AssignmentDone       = "DONE"
)

// ClassPolicy is the issuance of an assignment to one class. An assignment
// carries one record per class plus extra records for redirects and students
// added later.
type ClassPolicy struct {
	ID             string   `json:"_id" bson:"_id"`
	Name           string   `json:"name,omitempty" bson:"name,omitempty"`
	Type           string   `json:"type,omitempty" bson:"type,omitempty"`
	Status         string   `json:"status,omitempty" bson:"status,omitempty"`
	Students       []string `json:"students,omitempty" bson:"students,omitempty"`
	Redirect       bool     `json:"redirect,omitempty" bson:"redirect,omitempty"`
	RedirectedDate int64    `json:"redirectedDate,omitempty" bson:"redirectedDate,omitempty"`
	AddStudents    bool     `json:"addStudents,omitempty" bson:"addStudents,omitempty"`
	Archived       bool     `json:"archived,omitempty" bson:"archived,omitempty"`

	OpenPolicy      string `json:"openPolicy,omitempty" bson:"openPolicy,omitempty"`
	ClosePolicy     string `json:"closePolicy,omitempty" bson:"closePolicy,omitempty"`
	Open            bool   `json:"open,omitempty" bson:"open,omitempty"`
	Closed          bool   `json:"closed,omitempty" bson:"closed,omitempty"`
	IsPaused        bool   `json:"isPaused,omitempty" bson:"isPaused,omitempty"`
	StartDate       int64  `json:"startDate,omitempty" bson:"startDate,omitempty"`
	OpenDate        int64  `json:"openDate,omitempty" bson:"openDate,omitempty"`
	AllowedOpenDate int64  `json:"allowedOpenDate,omitempty" bson:"allowedOpenDate,omitempty"`
	DueDate         int64  `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	EndDate         int64  `json:"endDate,omitempty" bson:"endDate,omitempty"`

	PauseAllowed    *bool  `json:"pauseAllowed,omitempty" bson:"pauseAllowed,omitempty"`
	TimedAssignment bool   `json:"timedAssignment,omitempty" bson:"timedAssignment,omitempty"`
	AllowedTime     int64  `json:"allowedTime,omitempty" bson:"allowedTime,omitempty"`
	AnswerOnPaper   *bool  `json:"answerOnPaper,omitempty" bson:"answerOnPaper,omitempty"`
	ReleaseScore    string `json:"releaseScore,omitempty" bson:"releaseScore,omitempty"`

	PasswordPolicy      string `json:"passwordPolicy,omitempty" bson:"passwordPolicy,omitempty"`
	PasswordExpireIn    int64  `json:"passwordExpireIn,omitempty" bson:"passwordExpireIn,omitempty"`
	AssignmentPassword  string `json:"assignmentPassword,omitempty" bson:"assignmentPassword,omitempty"`
	PasswordCreatedDate int64  `json:"passwordCreatedDate,omitempty" bson:"passwordCreatedDate,omitempty"`
	PasswordExpireTime  int64  `json:"passwordExpireTime,omitempty" bson:"passwordExpireTime,omitempty"`

	InGradingNumber  int `json:"inGradingNumber,omitempty" bson:"inGradingNumber,omitempty"`
	GradedNumber     int `json:"gradedNumber,omitempty" bson:"gradedNumber,omitempty"`
	InProgressNumber int `json:"inProgressNumber,omitempty" bson:"inProgressNumber,omitempty"`
}

// IsOriginal reports whether the record is the primary issuance to its class.
func (c *ClassPolicy) IsOriginal() bool {
	return !c.Redirect && !c.AddStudents
}

type NameRef struct {
	ID   string `json:"_id" bson:"_id"`
	Name string `json:"name,omitempty" bson:"name,omitempty"`
	Role string `json:"role,omitempty" bson:"role,omitempty"`
}

type Assignment struct {
	ID                    string        `json:"_id" bson:"_id"`
	DistrictID            string        `json:"districtId" bson:"districtId"`
	TestID                string        `json:"testId" bson:"testId"`
	Title                 string        `json:"title,omitempty" bson:"title,omitempty"`
	TestType              string        `json:"testType,omitempty" bson:"testType,omitempty"`
	TestContentVisibility string        `json:"testContentVisibility,omitempty" bson:"testContentVisibility,omitempty"`
	ScoringType           string        `json:"scoringType,omitempty" bson:"scoringType,omitempty"`
	ApplyEBSR             bool          `json:"applyEBSR,omitempty" bson:"applyEBSR,omitempty"`
	AllowTeacherRedirect  bool          `json:"allowTeacherRedirect,omitempty" bson:"allowTeacherRedirect,omitempty"`
	TimedAssignment       bool          `json:"timedAssignment,omitempty" bson:"timedAssignment,omitempty"`
	AllowedTime           int64         `json:"allowedTime,omitempty" bson:"allowedTime,omitempty"`
	PauseAllowed          *bool         `json:"pauseAllowed,omitempty" bson:"pauseAllowed,omitempty"`
	AssignedBy            *NameRef      `json:"assignedBy,omitempty" bson:"assignedBy,omitempty"`
	BulkAssignedCount     *int          `json:"bulkAssignedCount,omitempty" bson:"bulkAssignedCount,omitempty"`
	BulkAssignedProcessed *int          `json:"bulkAssignedCountProcessed,omitempty" bson:"bulkAssignedCountProcessed,omitempty"`
	PerformanceBand       *NameRef      `json:"performanceBand,omitempty" bson:"performanceBand,omitempty"`
	StandardGradingScale  *NameRef      `json:"standardGradingScale,omitempty" bson:"standardGradingScale,omitempty"`
	TermID                string        `json:"termId,omitempty" bson:"termId,omitempty"`
	BubbleSheetTestID     string        `json:"bubbleSheetTestId,omitempty" bson:"bubbleSheetTestId,omitempty"`
	Class                 []ClassPolicy `json:"class" bson:"class"`

	OpenPolicy         string `json:"openPolicy,omitempty" bson:"openPolicy,omitempty"`
	ClosePolicy        string `json:"closePolicy,omitempty" bson:"closePolicy,omitempty"`
	AnswerOnPaper      bool   `json:"answerOnPaper,omitempty" bson:"answerOnPaper,omitempty"`
	ReleaseScore       string `json:"releaseScore,omitempty" bson:"releaseScore,omitempty"`
	PasswordPolicy     string `json:"passwordPolicy,omitempty" bson:"passwordPolicy,omitempty"`
	PasswordExpireIn   int64  `json:"passwordExpireIn,omitempty" bson:"passwordExpireIn,omitempty"`
	AssignmentPassword string `json:"assignmentPassword,omitempty" bson:"assignmentPassword,omitempty"`
}

// WithoutArchivedClasses returns a copy of the assignment without archived class records.
func (a Assignment) WithoutArchivedClasses() Assignment {
	classes := make([]ClassPolicy, 0, len(a.Class))
	for _, c := range a.Class {
		if !c.Archived {
			classes = append(classes, c)
		}
	}
	a.Class = classes
	return a
}

// ForClass returns a copy of the assignment keeping only records for classID.
func (a Assignment) ForClass(classID string) Assignment {
	classes := make([]ClassPolicy, 0, len(a.Class))
	for _, c := range a.Class {
		if c.ID == classID {
			classes = append(classes, c)
		}
	}
	a.Class = classes
	return a
}

// ClassIDs returns the distinct class ids in record order.
func (a *Assignment) ClassIDs() []string {
	seen := make(map[string]bool, len(a.Class))
	var ids []string
	for _, c := range a.Class {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		ids = append(ids, c.ID)
	}
	return ids
}

// OriginalClass is the first non-redirect, non-add-students record, or the
// first record when none qualifies. It returns nil for assignments without classes.
func (a *Assignment) OriginalClass() *ClassPolicy {
	if len(a.Class) == 0 {
		return nil
	}
	for i := range a.Class {
		if a.Class[i].IsOriginal() {
			return &a.Class[i]
		}
	}
	return &a.Class[0]
}
