package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

// RecordStore is the read side of the gradebook data. Implementations return
// already filtered record sets; "not found" is reported as a nil record and a
// nil error.
type RecordStore interface {
	Close() error
	ApplyMigrations(dir string) error

	GetAssignment(ctx context.Context, districtID, assignmentID string) (*models.Assignment, error)
	FindAttempts(ctx context.Context, q AttemptQuery) ([]models.Attempt, error)
	FindQuestionActivities(ctx context.Context, q QuestionActivityQuery) ([]models.QuestionActivity, error)
	DeliveredItemIDs(ctx context.Context, testID, groupID string) ([]string, error)

	GetTest(ctx context.Context, id string) (*models.Test, error)
	FindTestItems(ctx context.Context, ids []string) ([]models.TestItem, error)

	GetUser(ctx context.Context, id string) (*models.User, error)
	FindUsers(ctx context.Context, q UserQuery) ([]models.User, error)
	FindEnrollments(ctx context.Context, q EnrollmentQuery) ([]models.Enrollment, error)
	CountEnrollment(ctx context.Context, q EnrollmentQuery) (int, error)
	FindGroups(ctx context.Context, q GroupQuery) ([]models.Group, error)

	AverageScore(ctx context.Context, assignmentID string) (float64, error)
	ItemsSummary(ctx context.Context, assignmentID string) ([]models.ItemSummary, error)
}

// ReferenceStore serves the read-only standards and proficiency data.
type ReferenceStore interface {
	GradingScale(ctx context.Context, id string) (models.MasteryBands, error)
	StandardsForItems(ctx context.Context, curriculumIDs []int, itemIDs []string) ([]models.StandardSummary, error)
	InterestedCurriculums(ctx context.Context, userID, districtID string) ([]int, error)
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		logger.Info.Printf("Applying migration: %s", file.Name())
		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

// bind expands IN (?) placeholders and converts them to the store dialect.
func (s *BaseStore) bind(query string, args ...interface{}) (string, []interface{}, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("failed to expand query: %w", err)
	}
	return s.Converter(query), args, nil
}

type assignmentRow struct {
	ID         string         `db:"id"`
	DistrictID string         `db:"district_id"`
	TestID     string         `db:"test_id"`
	Doc        types.JSONText `db:"doc"`
}

func (s *BaseStore) GetAssignment(ctx context.Context, districtID, assignmentID string) (*models.Assignment, error) {
	var row assignmentRow
	query := s.Converter(`
		SELECT id, district_id, test_id, doc
		FROM assignments
		WHERE id = ?
		AND district_id = ?
	`)

	err := s.DB.GetContext(ctx, &row, query, assignmentID, districtID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	var assignment models.Assignment
	if err := json.Unmarshal(row.Doc, &assignment); err != nil {
		return nil, fmt.Errorf("failed to decode assignment %s: %w", row.ID, err)
	}
	assignment.ID = row.ID
	assignment.DistrictID = row.DistrictID
	assignment.TestID = row.TestID
	return &assignment, nil
}

const attemptColumns = `id, user_id, assignment_id, group_id, test_id, status,
	is_assigned, is_enrolled, redirect, v1_id, created_at, end_date,
	is_paused, pause_reason, archived, graded, score, max_score`

func (s *BaseStore) FindAttempts(ctx context.Context, q AttemptQuery) ([]models.Attempt, error) {
	columns := attemptColumns
	if q.WithDeliveredItems {
		columns += ", items_to_deliver_in_group"
	}

	query := `SELECT ` + columns + `
		FROM test_activities
		WHERE assignment_id = ?
		AND group_id = ?`
	args := []interface{}{q.AssignmentID, q.GroupID}

	if len(q.UserIDs) > 0 {
		query += ` AND user_id IN (?)`
		args = append(args, q.UserIDs)
	}
	if len(q.Statuses) > 0 {
		query += ` AND status IN (?)`
		args = append(args, q.Statuses)
	}
	if q.ExcludeLanguageSwitched {
		query += ` AND NOT language_preference_switched`
	}
	query += ` ORDER BY user_id, id`

	query, args, err := s.bind(query, args...)
	if err != nil {
		return nil, err
	}

	var attempts []models.Attempt
	if err := s.DB.SelectContext(ctx, &attempts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find test activities: %w", err)
	}
	return attempts, nil
}

func (s *BaseStore) FindQuestionActivities(ctx context.Context, q QuestionActivityQuery) ([]models.QuestionActivity, error) {
	query := `
		SELECT
			id, qid, test_item_id, test_activity_id, user_id, assignment_id, group_id,
			score, max_score, correct, skipped, partially_correct, time_spent,
			graded, pending_evaluation, auto_grade, is_graded_externally, evaluation
		FROM question_activities
		WHERE 1=1`
	var args []interface{}

	if q.AssignmentID != "" {
		query += ` AND assignment_id = ?`
		args = append(args, q.AssignmentID)
	}
	if q.GroupID != "" {
		query += ` AND group_id = ?`
		args = append(args, q.GroupID)
	}
	if len(q.TestActivityIDs) > 0 {
		query += ` AND test_activity_id IN (?)`
		args = append(args, q.TestActivityIDs)
	}
	if len(q.UserIDs) > 0 {
		query += ` AND user_id IN (?)`
		args = append(args, q.UserIDs)
	}
	if q.TestItemID != "" {
		query += ` AND test_item_id = ?`
		args = append(args, q.TestItemID)
	}
	query += ` ORDER BY user_id, id`

	query, args, err := s.bind(query, args...)
	if err != nil {
		return nil, err
	}

	var activities []models.QuestionActivity
	if err := s.DB.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find question activities: %w", err)
	}
	return activities, nil
}

// DeliveredItemIDs returns the distinct items delivered to any student of the
// class, in first-seen order.
func (s *BaseStore) DeliveredItemIDs(ctx context.Context, testID, groupID string) ([]string, error) {
	var delivered []models.DeliveredGroups
	query := s.Converter(`
		SELECT items_to_deliver_in_group
		FROM test_activities
		WHERE test_id = ?
		AND group_id = ?
		AND items_to_deliver_in_group IS NOT NULL
		ORDER BY id
	`)
	if err := s.DB.SelectContext(ctx, &delivered, query, testID, groupID); err != nil {
		return nil, fmt.Errorf("failed to get delivered items: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, groups := range delivered {
		for _, g := range groups {
			for _, id := range g.Items {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
	}
	return ids, nil
}

func (s *BaseStore) GetTest(ctx context.Context, id string) (*models.Test, error) {
	var test models.Test
	query := s.Converter(`
		SELECT id, title, test_category, authors, item_groups, standard_grading_scale_id
		FROM tests
		WHERE id = ?
	`)
	err := s.DB.GetContext(ctx, &test, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return &test, nil
}

func (s *BaseStore) FindTestItems(ctx context.Context, ids []string) ([]models.TestItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := s.bind(`
		SELECT id, item_level_scoring, item_level_score, questions
		FROM test_items
		WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, err
	}

	var items []models.TestItem
	if err := s.DB.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find test items: %w", err)
	}
	return items, nil
}

const userColumns = `id, first_name, middle_name, last_name, email, username, role,
	status, tts, district_ids, institution_ids, current_district_id`

func (s *BaseStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.DB.GetContext(ctx, &user, s.Converter(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *BaseStore) FindUsers(ctx context.Context, q UserQuery) ([]models.User, error) {
	if len(q.IDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (?)`
	args := []interface{}{q.IDs}
	if len(q.Statuses) > 0 {
		query += ` AND status IN (?)`
		args = append(args, q.Statuses)
	}
	query += ` ORDER BY id`

	query, args, err := s.bind(query, args...)
	if err != nil {
		return nil, err
	}

	var users []models.User
	if err := s.DB.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	return users, nil
}

func enrollmentWhere(q EnrollmentQuery) (string, []interface{}) {
	where := ` WHERE group_id = ?`
	args := []interface{}{q.GroupID}
	if q.GroupType != "" {
		where += ` AND group_type = ?`
		args = append(args, q.GroupType)
	}
	if q.Role != "" {
		where += ` AND role = ?`
		args = append(args, q.Role)
	}
	if len(q.Statuses) > 0 {
		where += ` AND status IN (?)`
		args = append(args, q.Statuses)
	}
	return where, args
}

func (s *BaseStore) FindEnrollments(ctx context.Context, q EnrollmentQuery) ([]models.Enrollment, error) {
	where, args := enrollmentWhere(q)
	query, args, err := s.bind(`SELECT id, user_id, group_id, group_type, role, status FROM enrollments`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}

	var enrollments []models.Enrollment
	if err := s.DB.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find enrollments: %w", err)
	}
	return enrollments, nil
}

func (s *BaseStore) CountEnrollment(ctx context.Context, q EnrollmentQuery) (int, error) {
	where, args := enrollmentWhere(q)
	query, args, err := s.bind(`SELECT COUNT(*) FROM enrollments`+where, args...)
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.DB.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

func (s *BaseStore) FindGroups(ctx context.Context, q GroupQuery) ([]models.Group, error) {
	if len(q.IDs) == 0 {
		return nil, nil
	}
	query := `SELECT g.id, g.name, g.type, g.institution_id FROM class_groups g WHERE g.id IN (?)`
	args := []interface{}{q.IDs}
	if q.OwnerID != "" {
		query += ` AND EXISTS (SELECT 1 FROM group_owners o WHERE o.group_id = g.id AND o.user_id = ?)`
		args = append(args, q.OwnerID)
	}
	if len(q.InstitutionIDs) > 0 {
		query += ` AND g.institution_id IN (?)`
		args = append(args, q.InstitutionIDs)
	}
	query += ` ORDER BY g.id`

	query, args, err := s.bind(query, args...)
	if err != nil {
		return nil, err
	}

	var groups []models.Group
	if err := s.DB.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find groups: %w", err)
	}
	return groups, nil
}

func (s *BaseStore) AverageScore(ctx context.Context, assignmentID string) (float64, error) {
	var avg float64
	query := s.Converter(`
		SELECT COALESCE(AVG(score), 0)
		FROM test_activities
		WHERE assignment_id = ?
		AND status = 'submitted'
		AND score IS NOT NULL
	`)
	if err := s.DB.GetContext(ctx, &avg, query, assignmentID); err != nil {
		return 0, fmt.Errorf("failed to get average score: %w", err)
	}
	return avg, nil
}

func (s *BaseStore) ItemsSummary(ctx context.Context, assignmentID string) ([]models.ItemSummary, error) {
	query := s.Converter(`
		SELECT
			test_item_id,
			COUNT(*) AS attempts,
			COALESCE(AVG(score), 0) AS average_score,
			SUM(CASE WHEN correct THEN 1 ELSE 0 END) AS correct,
			SUM(CASE WHEN skipped THEN 1 ELSE 0 END) AS skipped
		FROM question_activities
		WHERE assignment_id = ?
		GROUP BY test_item_id
		ORDER BY test_item_id
	`)

	var summary []models.ItemSummary
	if err := s.DB.SelectContext(ctx, &summary, query, assignmentID); err != nil {
		return nil, fmt.Errorf("failed to get items summary: %w", err)
	}
	return summary, nil
}

func (s *BaseStore) GradingScale(ctx context.Context, id string) (models.MasteryBands, error) {
	if id == "" {
		return nil, nil
	}
	var scale models.MasteryBands
	err := s.DB.GetContext(ctx, &scale, s.Converter(`SELECT scale FROM standards_proficiency WHERE id = ?`), id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grading scale: %w", err)
	}
	return scale, nil
}

// ItemStandard is one standard tagged on one test item.
type ItemStandard struct {
	ItemID       string `db:"item_id" bson:"itemId"`
	StandardID   int    `db:"standard_id" bson:"standardId"`
	Identifier   string `db:"identifier" bson:"identifier"`
	CurriculumID int    `db:"curriculum_id" bson:"curriculumId"`
	Description  string `db:"description" bson:"description"`
}

// GroupItemStandards folds item/standard pairs into one summary per
// standard, keeping the first-seen order of standards.
func GroupItemStandards(rows []ItemStandard) []models.StandardSummary {
	index := make(map[int]int)
	var standards []models.StandardSummary
	for _, r := range rows {
		pos, ok := index[r.StandardID]
		if !ok {
			pos = len(standards)
			index[r.StandardID] = pos
			standards = append(standards, models.StandardSummary{
				StandardID:   r.StandardID,
				Identifier:   r.Identifier,
				CurriculumID: r.CurriculumID,
				Description:  r.Description,
			})
		}
		standards[pos].ItemIDs = append(standards[pos].ItemIDs, r.ItemID)
	}
	return standards
}

func (s *BaseStore) StandardsForItems(ctx context.Context, curriculumIDs []int, itemIDs []string) ([]models.StandardSummary, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT item_id, standard_id, identifier, curriculum_id, description
		FROM item_standards
		WHERE item_id IN (?)`
	args := []interface{}{itemIDs}
	if len(curriculumIDs) > 0 {
		query += ` AND curriculum_id IN (?)`
		args = append(args, curriculumIDs)
	}
	query += ` ORDER BY standard_id, item_id`

	query, args, err := s.bind(query, args...)
	if err != nil {
		return nil, err
	}

	var rows []ItemStandard
	if err := s.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find item standards: %w", err)
	}
	return GroupItemStandards(rows), nil
}

func (s *BaseStore) InterestedCurriculums(ctx context.Context, userID, districtID string) ([]int, error) {
	var ids []int
	query := s.Converter(`
		SELECT DISTINCT curriculum_id
		FROM interested_curriculums
		WHERE user_id = ?
		OR (user_id = '' AND district_id = ?)
		ORDER BY curriculum_id
	`)
	if err := s.DB.SelectContext(ctx, &ids, query, userID, districtID); err != nil {
		return nil, fmt.Errorf("failed to get interested curriculums: %w", err)
	}
	return ids, nil
}
