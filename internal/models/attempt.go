package models

import (
	"database/sql/driver"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AttemptStatus string

const (
	StatusNotStarted AttemptStatus = "notStarted"
	StatusInProgress AttemptStatus = "inProgress"
	StatusSubmitted  AttemptStatus = "submitted"
	StatusAbsent     AttemptStatus = "absent"
)

// DeliveredGroup lists the items a student actually received from one item group.
type DeliveredGroup struct {
	GroupID string   `json:"groupId" bson:"groupId"`
	Items   []string `json:"items" bson:"items"`
}

type DeliveredGroups []DeliveredGroup

func (d *DeliveredGroups) Scan(src interface{}) error { return scanJSON(src, d) }

func (d DeliveredGroups) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return valueJSON([]DeliveredGroup(d))
}

// Attempt is one student's session of taking a test (a user test activity).
// IsAssigned and IsEnrolled are nil when the record never carried the flag;
// use Assigned and Enrolled to read them.
type Attempt struct {
	ID                         string          `db:"id" json:"_id" bson:"_id"`
	UserID                     string          `db:"user_id" json:"userId" bson:"userId"`
	AssignmentID               string          `db:"assignment_id" json:"assignmentId" bson:"assignmentId"`
	GroupID                    string          `db:"group_id" json:"groupId" bson:"groupId"`
	TestID                     string          `db:"test_id" json:"testId" bson:"testId"`
	Status                     AttemptStatus   `db:"status" json:"status" bson:"status"`
	IsAssigned                 *bool           `db:"is_assigned" json:"isAssigned,omitempty" bson:"isAssigned,omitempty"`
	IsEnrolled                 *bool           `db:"is_enrolled" json:"isEnrolled,omitempty" bson:"isEnrolled,omitempty"`
	Redirect                   bool            `db:"redirect" json:"redirect,omitempty" bson:"redirect,omitempty"`
	V1ID                       *string         `db:"v1_id" json:"v1Id,omitempty" bson:"v1Id,omitempty"`
	CreatedAt                  int64           `db:"created_at" json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	EndDate                    int64           `db:"end_date" json:"endDate,omitempty" bson:"endDate,omitempty"`
	IsPaused                   bool            `db:"is_paused" json:"isPaused,omitempty" bson:"isPaused,omitempty"`
	PauseReason                *string         `db:"pause_reason" json:"pauseReason,omitempty" bson:"pauseReason,omitempty"`
	Archived                   bool            `db:"archived" json:"archived,omitempty" bson:"archived,omitempty"`
	Graded                     bool            `db:"graded" json:"graded,omitempty" bson:"graded,omitempty"`
	Score                      *float64        `db:"score" json:"score,omitempty" bson:"score,omitempty"`
	MaxScore                   *float64        `db:"max_score" json:"maxScore,omitempty" bson:"maxScore,omitempty"`
	LanguagePreferenceSwitched bool            `db:"language_preference_switched" json:"-" bson:"languagePreferenceSwitched,omitempty"`
	ItemsToDeliverInGroup      DeliveredGroups `db:"items_to_deliver_in_group" json:"itemsToDeliverInGroup,omitempty" bson:"itemsToDeliverInGroup,omitempty"`

	Number               int  `db:"-" json:"number,omitempty" bson:"-"`
	PreviouslyRedirected bool `db:"-" json:"previouslyRedirected,omitempty" bson:"-"`
}

// Assigned resolves the isAssigned flag; records without it count as assigned.
func (a *Attempt) Assigned() bool {
	return a.IsAssigned == nil || *a.IsAssigned
}

// Enrolled resolves the isEnrolled flag; records without it count as enrolled.
func (a *Attempt) Enrolled() bool {
	return a.IsEnrolled == nil || *a.IsEnrolled
}

// Active reports whether the attempt belongs to an unbroken assigned+enrolled run.
func (a *Attempt) Active() bool {
	return a.Assigned() && a.Enrolled()
}

// CreatedTime is the creation time of the attempt. Rows without an explicit
// createdAt fall back to the timestamp embedded in their ObjectID.
func (a *Attempt) CreatedTime() time.Time {
	if a.CreatedAt != 0 {
		return time.UnixMilli(a.CreatedAt)
	}
	if oid, err := primitive.ObjectIDFromHex(a.ID); err == nil {
		return oid.Timestamp()
	}
	return time.Time{}
}

// LegacyTime returns the timestamp embedded in the v1 id of migrated rows.
func (a *Attempt) LegacyTime() (time.Time, bool) {
	if a.V1ID == nil || *a.V1ID == "" {
		return time.Time{}, false
	}
	oid, err := primitive.ObjectIDFromHex(*a.V1ID)
	if err != nil {
		return time.Time{}, false
	}
	return oid.Timestamp(), true
}

// DeliveredItems merges the delivered item ids of the attempt by item group.
func (a *Attempt) DeliveredItems() map[string][]string {
	if len(a.ItemsToDeliverInGroup) == 0 {
		return nil
	}
	out := make(map[string][]string, len(a.ItemsToDeliverInGroup))
	for _, g := range a.ItemsToDeliverInGroup {
		out[g.GroupID] = append(out[g.GroupID], g.Items...)
	}
	return out
}

type QuestionActivity struct {
	ID                 string   `db:"id" json:"_id" bson:"_id"`
	QID                string   `db:"qid" json:"qid" bson:"qid"`
	TestItemID         string   `db:"test_item_id" json:"testItemId" bson:"testItemId"`
	TestActivityID     string   `db:"test_activity_id" json:"testActivityId" bson:"testActivityId"`
	UserID             string   `db:"user_id" json:"userId" bson:"userId"`
	AssignmentID       string   `db:"assignment_id" json:"assignmentId" bson:"assignmentId"`
	GroupID            string   `db:"group_id" json:"groupId" bson:"groupId"`
	Score              *float64 `db:"score" json:"score,omitempty" bson:"score,omitempty"`
	MaxScore           *float64 `db:"max_score" json:"maxScore,omitempty" bson:"maxScore,omitempty"`
	Correct            *bool    `db:"correct" json:"correct,omitempty" bson:"correct,omitempty"`
	Skipped            *bool    `db:"skipped" json:"skipped,omitempty" bson:"skipped,omitempty"`
	PartiallyCorrect   *bool    `db:"partially_correct" json:"partiallyCorrect,omitempty" bson:"partiallyCorrect,omitempty"`
	TimeSpent          int64    `db:"time_spent" json:"timeSpent,omitempty" bson:"timeSpent,omitempty"`
	Graded             bool     `db:"graded" json:"graded,omitempty" bson:"graded,omitempty"`
	PendingEvaluation  bool     `db:"pending_evaluation" json:"pendingEvaluation,omitempty" bson:"pendingEvaluation,omitempty"`
	AutoGrade          *bool    `db:"auto_grade" json:"autoGrade,omitempty" bson:"autoGrade,omitempty"`
	IsGradedExternally bool     `db:"is_graded_externally" json:"isGradedExternally,omitempty" bson:"isGradedExternally,omitempty"`
	Evaluation         *string  `db:"evaluation" json:"evaluation,omitempty" bson:"evaluation,omitempty"`
}

func (q *QuestionActivity) ScoreValue() float64 {
	if q.Score == nil {
		return 0
	}
	return *q.Score
}
