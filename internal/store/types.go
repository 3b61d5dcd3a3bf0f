package store

import "github.com/shrimpsizemoose/gradebook/internal/models"

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
	DBTypeMongo    DatabaseType = "mongo"
)

type DBConfig struct {
	DSN           string
	Type          DatabaseType
	Database      string
	MigrationsDir string
}

// AttemptQuery selects test activities of one assignment in one class.
// Empty UserIDs means every student.
type AttemptQuery struct {
	AssignmentID            string
	GroupID                 string
	UserIDs                 []string
	Statuses                []models.AttemptStatus
	ExcludeLanguageSwitched bool
	// WithDeliveredItems also loads the per-group delivered items, which are
	// only needed for tests with randomized item groups.
	WithDeliveredItems bool
}

// QuestionActivityQuery selects question activities. Empty slices and strings
// are not applied as filters.
type QuestionActivityQuery struct {
	AssignmentID    string
	GroupID         string
	TestActivityIDs []string
	UserIDs         []string
	TestItemID      string
}

type UserQuery struct {
	IDs      []string
	Statuses []int
}

type EnrollmentQuery struct {
	GroupID   string
	GroupType string
	Role      string
	Statuses  []int
}

type GroupQuery struct {
	IDs            []string
	OwnerID        string
	InstitutionIDs []string
}
