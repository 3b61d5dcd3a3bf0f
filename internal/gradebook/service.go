package gradebook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"
	"golang.org/x/sync/errgroup"

	"github.com/shrimpsizemoose/gradebook/internal/metrics"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

// Service assembles gradebook pages from the activity log.
type Service struct {
	store      store.RecordStore
	refs       ReferenceService
	bus        NotifyBus
	dec        Decrypter
	aggregator *Aggregator
	validate   *validator.Validate
	config     Config
	now        func() time.Time
}

func NewService(s store.RecordStore, refs ReferenceService, bus NotifyBus, dec Decrypter, config Config) *Service {
	defaults := DefaultConfig()
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaults.ChunkSize
	}
	if config.MinLeftover < 0 {
		config.MinLeftover = defaults.MinLeftover
	}
	return &Service{
		store:      s,
		refs:       refs,
		bus:        bus,
		dec:        dec,
		aggregator: NewAggregator(s),
		validate:   validator.New(),
		config:     config,
		now:        time.Now,
	}
}

// GetStudentsData returns one page of the gradebook of a class. Missing
// records come back as an error envelope; read failures are returned as errors.
func (s *Service) GetStudentsData(ctx context.Context, req StudentsDataRequest) (*StudentsData, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid students data request: %w", err)
	}

	assignment, err := s.store.GetAssignment(ctx, req.DistrictID, req.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return notFound(msgAssignmentNotAvailable), nil
	}

	active := assignment.WithoutArchivedClasses()
	allClassIDs := active.ClassIDs()
	forClass := active.ForClass(req.ClassID)
	if len(forClass.Class) == 0 {
		return notFound(msgClassNotAssigned), nil
	}

	test, err := s.store.GetTest(ctx, forClass.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test == nil {
		return notFound(msgAssignmentNotAvailable), nil
	}
	hasRandom := test.HasRandomQuestions()

	if req.PageNo > 0 {
		data := &StudentsData{}
		if len(req.LeftOverStudents) > 0 {
			activity, err := s.ActivityData(ctx, req.AssignmentID, req.ClassID, test.ID, req.LeftOverStudents, hasRandom, req.IsQuestionsView)
			if err != nil {
				return nil, err
			}
			data.ActivityResult = activity
		}
		return data, nil
	}

	teacher, err := s.store.GetUser(ctx, req.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	if teacher == nil {
		return notFound(msgTeacherNotFound), nil
	}

	curricula, err := s.refs.InterestedCurriculums(ctx, req.TeacherID, teacher.CurrentDistrict())
	if err != nil {
		return nil, fmt.Errorf("failed to get interested curriculums: %w", err)
	}

	window, err := ResolveWindow(forClass, req.ClassID, s.now(), s.dec)
	if err != nil {
		return nil, err
	}
	if err := s.resolveAssignedBy(ctx, window, req.TeacherID, req.UserRole); err != nil {
		return nil, err
	}

	var (
		standards []models.StandardSummary
		mastery   models.MasteryBands
		roster    *rosterData
		classes   []ClassName
		scaleID   string
	)
	if window.StandardGradingScale != nil {
		scaleID = window.StandardGradingScale.ID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		standards, mastery, err = s.standardsReport(gctx, test, req.ClassID, curricula, scaleID)
		return err
	})
	g.Go(func() error {
		var err error
		roster, err = s.rosterFor(gctx, forClass, req.ClassID, req.IncludeInactive, req.IncludeStudents)
		return err
	})
	g.Go(func() error {
		var err error
		classes, err = s.classNames(gctx, allClassIDs, req.UserRole, req.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	studentIDs := make([]string, 0, len(roster.students))
	for _, u := range roster.students {
		studentIDs = append(studentIDs, u.ID)
	}
	chunk, leftOver := s.chunkStudents(studentIDs)

	activity, err := s.ActivityData(ctx, req.AssignmentID, req.ClassID, test.ID, chunk, hasRandom, req.IsQuestionsView)
	if err != nil {
		return nil, err
	}

	additional := &AdditionalData{
		AssignmentWindow:  *window,
		Standards:         standards,
		AssignmentMastery: mastery,
		Classes:           classes,
		ClassID:           req.ClassID,
		TestName:          test.Title,
		TestID:            test.ID,
		TestAuthors:       test.Authors,
		TotalCount:        roster.totalCount,
	}
	for _, c := range classes {
		if c.ID == req.ClassID {
			additional.ClassName = c.Name
			break
		}
	}

	logger.Debug.Printf("Gradebook page 0 for assignment %s class %s: %d students, %d left over",
		req.AssignmentID, req.ClassID, len(chunk), len(leftOver))

	return &StudentsData{
		Students:         roster.students,
		EnrollmentStatus: roster.enrollmentStatus,
		LeftOverStudents: leftOver,
		ActivityResult:   activity,
		AdditionalData:   additional,
	}, nil
}

// chunkStudents splits off the students merged on the first page. A small
// remainder is merged right away instead of costing the caller another page.
func (s *Service) chunkStudents(ids []string) ([]string, []string) {
	if len(ids) <= s.config.ChunkSize {
		return ids, []string{}
	}
	chunk, rest := ids[:s.config.ChunkSize], ids[s.config.ChunkSize:]
	if len(rest) <= s.config.MinLeftover {
		return ids, []string{}
	}
	return chunk, rest
}

func (s *Service) resolveAssignedBy(ctx context.Context, w *models.AssignmentWindow, teacherID, userRole string) error {
	if w.AssignedBy == nil {
		return nil
	}
	assignedBy := *w.AssignedBy
	w.AssignedBy = nil

	if assignedBy.ID == teacherID {
		assignedBy.Role = userRole
		w.AssignedBy = &assignedBy
		return nil
	}

	user, err := s.store.GetUser(ctx, assignedBy.ID)
	if err != nil {
		return fmt.Errorf("failed to get assigning user: %w", err)
	}
	if user != nil {
		assignedBy.Role = user.Role
		w.AssignedBy = &assignedBy
	}
	return nil
}

// ActivityData selects the current attempt of every student and merges it
// with its question activities.
func (s *Service) ActivityData(
	ctx context.Context,
	assignmentID, groupID, testID string,
	studentIDs []string,
	hasRandom, questionsView bool,
) (*ActivityResult, error) {
	result := &ActivityResult{
		TestActivities:              []models.Attempt{},
		TestQuestionActivities:      []models.QuestionActivity{},
		RecentTestActivitiesGrouped: map[string][]models.Attempt{},
		Summaries:                   []models.StudentSummary{},
	}
	if len(studentIDs) == 0 {
		return result, nil
	}

	attempts, err := s.store.FindAttempts(ctx, store.AttemptQuery{
		AssignmentID:            assignmentID,
		GroupID:                 groupID,
		UserIDs:                 studentIDs,
		ExcludeLanguageSwitched: true,
		WithDeliveredItems:      hasRandom,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get test activities: %w", err)
	}

	grouped := GroupRecent(FilterActive(attempts))
	selected := PickLatest(grouped, questionsView)
	result.RecentTestActivitiesGrouped = grouped
	result.TestActivities = selected

	if len(selected) > 0 {
		ids := make([]string, 0, len(selected))
		for _, a := range selected {
			ids = append(ids, a.ID)
		}
		activities, err := s.store.FindQuestionActivities(ctx, store.QuestionActivityQuery{
			AssignmentID:    assignmentID,
			GroupID:         groupID,
			TestActivityIDs: ids,
			UserIDs:         studentIDs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get question activities: %w", err)
		}
		if activities != nil {
			result.TestQuestionActivities = activities
		}
	}

	// the catalog of a randomized test covers every item delivered in the
	// class so max scores do not depend on who shares the page
	var delivered []string
	if hasRandom {
		delivered, err = s.store.DeliveredItemIDs(ctx, testID, groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to get delivered items: %w", err)
		}
	}
	summaries, err := s.aggregator.Merge(ctx, testID, studentIDs, selected, result.TestQuestionActivities, delivered)
	if err != nil {
		return nil, err
	}
	result.Summaries = summaries

	metrics.StudentsProcessed.Add(float64(len(studentIDs)))
	return result, nil
}

// standardsReport collects the standards of the test items and the mastery
// bands of the grading scale. Auto-selected groups add the items actually
// delivered to the class.
func (s *Service) standardsReport(ctx context.Context, test *models.Test, classID string, curricula []int, scaleID string) ([]models.StandardSummary, models.MasteryBands, error) {
	itemIDs := test.ItemIDs()
	if test.HasAutoSelect() {
		delivered, err := s.store.DeliveredItemIDs(ctx, test.ID, classID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get delivered items: %w", err)
		}
		itemIDs = append(itemIDs, delivered...)
	}

	standards, err := s.refs.StandardsForItems(ctx, curricula, itemIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get standards: %w", err)
	}

	if scaleID == "" {
		scaleID = test.StandardGradingScale
	}
	mastery, err := s.refs.GradingScale(ctx, scaleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get grading scale: %w", err)
	}
	if standards == nil {
		standards = []models.StandardSummary{}
	}
	if mastery == nil {
		mastery = models.MasteryBands{}
	}
	return standards, mastery, nil
}

type rosterData struct {
	students         []models.User
	totalCount       int
	enrollmentStatus map[string]int
}

// rosterFor loads the students the assignment is issued to in classID.
// Assignments issued to specific students list only those, unless
// includeStudents asks for the whole class. includeInactive also returns
// archived and disabled students and enrollments.
func (s *Service) rosterFor(ctx context.Context, assignment models.Assignment, classID string, includeInactive, includeStudents bool) (*rosterData, error) {
	statuses := []int{models.StatusActive}
	if includeInactive {
		statuses = []int{models.StatusArchived, models.StatusActive, models.StatusDisabled}
	}
	enrollments, err := s.store.FindEnrollments(ctx, store.EnrollmentQuery{
		GroupID:   classID,
		GroupType: models.GroupTypeClass,
		Role:      models.RoleStudent,
		Statuses:  statuses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollments: %w", err)
	}

	total, err := s.store.CountEnrollment(ctx, store.EnrollmentQuery{
		GroupID:   classID,
		GroupType: classType(assignment),
		Role:      models.RoleStudent,
		Statuses:  []int{models.StatusActive},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}

	enrollmentStatus := make(map[string]int, len(enrollments))
	enrolled := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		enrollmentStatus[e.UserID] = e.Status
		enrolled = append(enrolled, e.UserID)
	}

	ids := enrolled
	if !includeInactive && !includeStudents {
		if specific := specificStudents(assignment); specific != nil {
			ids = specific
		}
	}

	students, err := s.store.FindUsers(ctx, store.UserQuery{IDs: ids, Statuses: statuses})
	if err != nil {
		return nil, fmt.Errorf("failed to get students: %w", err)
	}
	if students == nil {
		students = []models.User{}
	}

	return &rosterData{
		students:         students,
		totalCount:       total,
		enrollmentStatus: enrollmentStatus,
	}, nil
}

func classType(assignment models.Assignment) string {
	if len(assignment.Class) > 0 && assignment.Class[0].Type != "" {
		return assignment.Class[0].Type
	}
	return models.GroupTypeClass
}

// specificStudents returns the students named by the class records, or nil
// when any record issues the assignment to the whole class.
func specificStudents(assignment models.Assignment) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range assignment.Class {
		if len(c.Students) == 0 {
			return nil
		}
		for _, id := range c.Students {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// classNames lists the classes of the assignment visible to the requesting
// user: owned classes for teachers, classes of their institutions for school
// admins.
func (s *Service) classNames(ctx context.Context, classIDs []string, userRole, userID string) ([]ClassName, error) {
	q := store.GroupQuery{IDs: classIDs}
	switch userRole {
	case models.RoleTeacher:
		q.OwnerID = userID
	case models.RoleSchoolAdmin:
		user, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get school admin: %w", err)
		}
		if user == nil || len(user.InstitutionIDs) == 0 {
			return []ClassName{}, nil
		}
		q.InstitutionIDs = user.InstitutionIDs
	}

	groups, err := s.store.FindGroups(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to get class names: %w", err)
	}
	names := make([]ClassName, 0, len(groups))
	for _, g := range groups {
		names = append(names, ClassName{ID: g.ID, Name: g.Name})
	}
	return names, nil
}
