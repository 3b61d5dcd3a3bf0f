package models

import "database/sql/driver"

// Record status values shared by users and enrollments.
const (
	StatusArchived = 0
	StatusActive   = 1
	StatusDisabled = 2
)

const (
	RoleTeacher     = "teacher"
	RoleStudent     = "student"
	RoleSchoolAdmin = "school-admin"

	GroupTypeClass = "class"
)

type User struct {
	ID                string     `db:"id" json:"_id" bson:"_id"`
	FirstName         string     `db:"first_name" json:"firstName,omitempty" bson:"firstName,omitempty"`
	MiddleName        string     `db:"middle_name" json:"middleName,omitempty" bson:"middleName,omitempty"`
	LastName          string     `db:"last_name" json:"lastName,omitempty" bson:"lastName,omitempty"`
	Email             string     `db:"email" json:"email,omitempty" bson:"email,omitempty"`
	Username          string     `db:"username" json:"username,omitempty" bson:"username,omitempty"`
	Role              string     `db:"role" json:"role,omitempty" bson:"role,omitempty"`
	Status            int        `db:"status" json:"status" bson:"status"`
	TTS               string     `db:"tts" json:"tts,omitempty" bson:"tts,omitempty"`
	DistrictIDs       StringList `db:"district_ids" json:"districtIds,omitempty" bson:"districtIds,omitempty"`
	InstitutionIDs    StringList `db:"institution_ids" json:"institutionIds,omitempty" bson:"institutionIds,omitempty"`
	CurrentDistrictID string     `db:"current_district_id" json:"currentDistrictId,omitempty" bson:"currentDistrictId,omitempty"`
}

// CurrentDistrict prefers the explicitly selected district, then the first one.
func (u *User) CurrentDistrict() string {
	if u.CurrentDistrictID != "" {
		return u.CurrentDistrictID
	}
	if len(u.DistrictIDs) > 0 {
		return u.DistrictIDs[0]
	}
	return ""
}

type Enrollment struct {
	ID        string `db:"id" json:"_id" bson:"_id"`
	UserID    string `db:"user_id" json:"userId" bson:"userId"`
	GroupID   string `db:"group_id" json:"groupId" bson:"groupId"`
	GroupType string `db:"group_type" json:"groupType" bson:"groupType"`
	Role      string `db:"role" json:"role" bson:"role"`
	Status    int    `db:"status" json:"status" bson:"status"`
}

type Group struct {
	ID            string     `db:"id" json:"_id" bson:"_id"`
	Name          string     `db:"name" json:"name,omitempty" bson:"name,omitempty"`
	Type          string     `db:"type" json:"-" bson:"type,omitempty"`
	InstitutionID string     `db:"institution_id" json:"-" bson:"institutionId,omitempty"`
	Owners        StringList `db:"owners" json:"-" bson:"owners,omitempty"`
}

type MasteryBand struct {
	Score        int     `json:"score" bson:"score"`
	ShortName    string  `json:"shortName" bson:"shortName"`
	MasteryLevel string  `json:"masteryLevel" bson:"masteryLevel"`
	Threshold    float64 `json:"threshold" bson:"threshold"`
	Color        string  `json:"color,omitempty" bson:"color,omitempty"`
}

type MasteryBands []MasteryBand

func (m *MasteryBands) Scan(src interface{}) error { return scanJSON(src, m) }

func (m MasteryBands) Value() (driver.Value, error) { return valueJSON([]MasteryBand(m)) }

type StandardSummary struct {
	StandardID   int      `db:"standard_id" json:"standardId" bson:"standardId"`
	Identifier   string   `db:"identifier" json:"identifier" bson:"identifier"`
	CurriculumID int      `db:"curriculum_id" json:"curriculumId" bson:"curriculumId"`
	Description  string   `db:"description" json:"desc,omitempty" bson:"description,omitempty"`
	ItemIDs      []string `db:"-" json:"items" bson:"items"`
}
