package gradebook

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

var ErrClassNotAssigned = errors.New("assignment not assigned to the requested class")

// Decrypter reveals stored assignment passwords.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// classSettings are the policy values in effect for one class: values set on
// the class record win over the assignment level ones.
type classSettings struct {
	openPolicy         string
	closePolicy        string
	answerOnPaper      bool
	passwordPolicy     string
	passwordExpireIn   int64
	assignmentPassword string
	releaseScore       string
}

func settingsFor(a *models.Assignment, c *models.ClassPolicy) classSettings {
	s := classSettings{
		openPolicy:         a.OpenPolicy,
		closePolicy:        a.ClosePolicy,
		answerOnPaper:      a.AnswerOnPaper,
		passwordPolicy:     a.PasswordPolicy,
		passwordExpireIn:   a.PasswordExpireIn,
		assignmentPassword: a.AssignmentPassword,
		releaseScore:       a.ReleaseScore,
	}
	if c.OpenPolicy != "" {
		s.openPolicy = c.OpenPolicy
	}
	if c.ClosePolicy != "" {
		s.closePolicy = c.ClosePolicy
	}
	if c.AnswerOnPaper != nil {
		s.answerOnPaper = *c.AnswerOnPaper
	}
	if c.PasswordPolicy != "" {
		s.passwordPolicy = c.PasswordPolicy
	}
	if c.PasswordExpireIn != 0 {
		s.passwordExpireIn = c.PasswordExpireIn
	}
	if c.AssignmentPassword != "" {
		s.assignmentPassword = c.AssignmentPassword
	}
	if c.ReleaseScore != "" {
		s.releaseScore = c.ReleaseScore
	}
	return s
}

// maxDate is the latest non-zero date picked by field across class records.
func maxDate(classes []models.ClassPolicy, field func(*models.ClassPolicy) int64) int64 {
	var latest int64
	for i := range classes {
		if d := field(&classes[i]); d > latest {
			latest = d
		}
	}
	return latest
}

func classStatus(classes []models.ClassPolicy) string {
	for _, c := range classes {
		if c.Status != "" {
			return c.Status
		}
	}
	return ""
}

func classPaused(classes []models.ClassPolicy) bool {
	for _, c := range classes {
		if c.IsPaused {
			return true
		}
	}
	return false
}

// ResolveWindow derives the assignment level state the gradebook shows for one
// class: open and close eligibility, pause state, dates, password exposure and
// the redirect timeline. Only the records of classID are considered.
func ResolveWindow(assignment models.Assignment, classID string, now time.Time, dec Decrypter) (*models.AssignmentWindow, error) {
	assignment = assignment.ForClass(classID)
	original := assignment.OriginalClass()
	if original == nil {
		return nil, ErrClassNotAssigned
	}
	classes := assignment.Class
	settings := settingsFor(&assignment, original)
	status := classStatus(classes)
	nowMs := now.UnixMilli()

	w := &models.AssignmentWindow{
		Status:                status,
		ReleaseScore:          settings.releaseScore,
		AnswerOnPaper:         settings.answerOnPaper,
		TestType:              assignment.TestType,
		TestContentVisibility: assignment.TestContentVisibility,
		OpenPolicy:            settings.openPolicy,
		ClosePolicy:           settings.closePolicy,
		ScoringType:           assignment.ScoringType,
		ApplyEBSR:             assignment.ApplyEBSR,
		AllowTeacherRedirect:  assignment.AllowTeacherRedirect,
		AssignedBy:            assignment.AssignedBy,
		IsPaused:              classPaused(classes),
		DueDate:               maxDate(classes, func(c *models.ClassPolicy) int64 { return c.DueDate }),
		TimedAssignment:       original.TimedAssignment || assignment.TimedAssignment,
		AllowedTime:           original.AllowedTime,
		Ts:                    nowMs,
		SpecificStudents:      len(original.Students) > 0,
		ClassesCanBeMarked:    []string{},
		CanOpenClass:          []string{},
		CanCloseClass:         []string{},
		PasswordPolicy:        settings.passwordPolicy,
		PerformanceBand:       assignment.PerformanceBand,
		StandardGradingScale:  assignment.StandardGradingScale,
		TermID:                assignment.TermID,
		BubbleSheetTestID:     assignment.BubbleSheetTestID,
		RedirectedDates:       RedirectedDates(classes),
	}
	if w.AllowedTime == 0 {
		w.AllowedTime = assignment.AllowedTime
	}
	if original.PauseAllowed != nil {
		w.PauseAllowed = *original.PauseAllowed
	} else if assignment.PauseAllowed != nil {
		w.PauseAllowed = *assignment.PauseAllowed
	}
	if assignment.BulkAssignedCount != nil {
		w.BulkAssignedCount = *assignment.BulkAssignedCount
	}
	if assignment.BulkAssignedProcessed != nil {
		w.BulkAssignedCountProcessed = *assignment.BulkAssignedProcessed
	}

	for _, c := range classes {
		w.DetailedClasses = append(w.DetailedClasses, models.DetailedClass{
			ID:             c.ID,
			Students:       c.Students,
			DueDate:        c.DueDate,
			RedirectedDate: c.RedirectedDate,
		})
	}

	if status == models.AssignmentInGrading {
		w.ClassesCanBeMarked = append(w.ClassesCanBeMarked, classID)
	}

	if settings.openPolicy == models.PolicyAutoOnStartDate {
		w.StartDate = original.StartDate
		if status == models.AssignmentNotOpen && nowMs < original.StartDate {
			w.CanOpenClass = append(w.CanOpenClass, classID)
		}
	} else {
		open := original.Open
		w.AllowedOpenDate = original.AllowedOpenDate
		w.Open = &open
		w.OpenDate = original.OpenDate
		if status == models.AssignmentNotOpen && !original.Open {
			w.CanOpenClass = append(w.CanOpenClass, classID)
		}
	}

	if settings.closePolicy == models.PolicyAutoOnDueDate {
		w.EndDate = maxDate(classes, func(c *models.ClassPolicy) int64 { return c.EndDate })
		if nowMs < w.EndDate {
			w.CanCloseClass = append(w.CanCloseClass, classID)
		}
	} else if !fullyClosed(classes, nowMs) {
		w.CanCloseClass = append(w.CanCloseClass, classID)
	}

	if err := exposePassword(w, settings, original, dec); err != nil {
		return nil, err
	}
	return w, nil
}

// fullyClosed reports whether no class record is still open at nowMs.
func fullyClosed(classes []models.ClassPolicy, nowMs int64) bool {
	for _, c := range classes {
		if !c.Closed && (c.EndDate == 0 || c.EndDate > nowMs) {
			return false
		}
	}
	return true
}

func exposePassword(w *models.AssignmentWindow, s classSettings, original *models.ClassPolicy, dec Decrypter) error {
	var ciphertext string
	switch s.passwordPolicy {
	case models.PasswordPolicyDynamic:
		w.PasswordExpireIn = s.passwordExpireIn
		if original.AssignmentPassword == "" {
			return nil
		}
		ciphertext = original.AssignmentPassword
		w.PasswordCreatedDate = original.PasswordCreatedDate
		w.PasswordExpireTime = original.PasswordExpireTime
	case models.PasswordPolicyStatic:
		ciphertext = s.assignmentPassword
		if ciphertext == "" {
			return nil
		}
	default:
		return nil
	}

	if dec == nil {
		return fmt.Errorf("failed to reveal assignment password: no decrypter configured")
	}
	password, err := dec.Decrypt(ciphertext)
	if err != nil {
		return fmt.Errorf("failed to decrypt assignment password: %w", err)
	}
	w.AssignmentPassword = password
	return nil
}

// RedirectedDates folds the redirect records of a class, oldest first, into
// a timeline keyed student_<id> or class_<id>. A whole-class redirect replaces
// everything accumulated before it; per-student redirects add onto whatever
// state precedes them.
func RedirectedDates(classes []models.ClassPolicy) map[string]int64 {
	var redirects []models.ClassPolicy
	for _, c := range classes {
		if c.Redirect {
			redirects = append(redirects, c)
		}
	}
	sort.SliceStable(redirects, func(i, j int) bool {
		return redirects[i].RedirectedDate < redirects[j].RedirectedDate
	})

	students := make(map[string]int64)
	var classKey string
	var classDate int64
	for _, r := range redirects {
		if len(r.Students) == 0 {
			students = make(map[string]int64)
			classKey, classDate = "class_"+r.ID, r.RedirectedDate
			continue
		}
		for _, s := range r.Students {
			students["student_"+s] = r.RedirectedDate
		}
	}

	out := make(map[string]int64, len(students)+1)
	if classKey != "" {
		out[classKey] = classDate
	}
	for k, v := range students {
		out[k] = v
	}
	return out
}
