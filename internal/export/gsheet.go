package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/shrimpsizemoose/trekker/logger"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/shrimpsizemoose/gradebook/internal/app"
	"github.com/shrimpsizemoose/gradebook/internal/gradebook"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/scoring"
)

// StudentsDataSource pages through the gradebook of a class.
type StudentsDataSource interface {
	GetStudentsData(ctx context.Context, req gradebook.StudentsDataRequest) (*gradebook.StudentsData, error)
}

// SheetWriter overwrites a range of a spreadsheet.
type SheetWriter interface {
	Update(ctx context.Context, sheetID, rng string, values [][]interface{}) error
}

type sheetsWriter struct {
	svc *sheets.Service
}

func (w *sheetsWriter) Update(ctx context.Context, sheetID, rng string, values [][]interface{}) error {
	_, err := w.svc.Spreadsheets.Values.Update(sheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

type GSheetExporter struct {
	source    StudentsDataSource
	writers   map[string]SheetWriter
	scheduler *gocron.Scheduler
	now       func() time.Time
}

func NewGSheetExporter(source StudentsDataSource) *GSheetExporter {
	return &GSheetExporter{
		source:    source,
		writers:   make(map[string]SheetWriter),
		scheduler: gocron.NewScheduler(time.UTC),
		now:       time.Now,
	}
}

// Schedule registers every export on its cron schedule. Sheets clients are
// shared between exports using the same credentials file.
func (e *GSheetExporter) Schedule(ctx context.Context, configs []app.ExportConfig) error {
	for _, cfg := range configs {
		writer, ok := e.writers[cfg.CredentialsPath]
		if !ok {
			svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
			if err != nil {
				return fmt.Errorf("failed to create sheets service: %w", err)
			}
			writer = &sheetsWriter{svc: svc}
			e.writers[cfg.CredentialsPath] = writer
		}

		cfg := cfg
		_, err := e.scheduler.Cron(cfg.Schedule).Do(func() {
			if err := e.Export(ctx, writer, cfg); err != nil {
				logger.Error.Printf("Export %s failed: %v", cfg.Name, err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule export %s: %w", cfg.Name, err)
		}
		logger.Info.Printf("Scheduled export %s (%s)", cfg.Name, cfg.Schedule)
	}
	return nil
}

func (e *GSheetExporter) Start() {
	e.scheduler.StartAsync()
}

func (e *GSheetExporter) Stop() {
	e.scheduler.Stop()
}

// Export writes one row per student of the class with the mastery band
// reached on the assignment grading scale. The first page is fetched as the
// configured teacher and any leftover students are fetched as a second page.
func (e *GSheetExporter) Export(ctx context.Context, writer SheetWriter, cfg app.ExportConfig) error {
	req := gradebook.StudentsDataRequest{
		DistrictID:   cfg.DistrictID,
		AssignmentID: cfg.AssignmentID,
		ClassID:      cfg.ClassID,
		TeacherID:    cfg.TeacherID,
		UserID:       cfg.TeacherID,
		UserRole:     models.RoleTeacher,
	}
	first, err := e.source.GetStudentsData(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to read gradebook: %w", err)
	}
	if first.Error {
		return fmt.Errorf("gradebook unavailable: %s", first.Status.Message)
	}

	summaries := make(map[string]models.StudentSummary)
	collect := func(data *gradebook.StudentsData) {
		if data.ActivityResult == nil {
			return
		}
		for _, s := range data.Summaries {
			summaries[s.StudentID] = s
		}
	}
	collect(first)

	if len(first.LeftOverStudents) > 0 {
		req.PageNo = 1
		req.LeftOverStudents = first.LeftOverStudents
		rest, err := e.source.GetStudentsData(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to read leftover students: %w", err)
		}
		collect(rest)
	}

	var bands models.MasteryBands
	if first.AdditionalData != nil {
		bands = first.AdditionalData.AssignmentMastery
	}
	grader := scoring.NewGrader(bands)

	rows := [][]interface{}{{"Student", "Status", "Score", "Max score", "Mastery"}}
	for _, student := range first.Students {
		rows = append(rows, studentRow(grader, student, summaries[student.ID]))
	}

	rng := fmt.Sprintf("%s!A1", cfg.SheetName)
	if err := writer.Update(ctx, cfg.SheetID, rng, rows); err != nil {
		return fmt.Errorf("failed to update sheet: %w", err)
	}

	if cfg.TimestampRange != "" {
		timestamp := fmt.Sprintf("UPD: %s", e.now().Format("2 January 15:04"))
		rng := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.TimestampRange)
		if err := writer.Update(ctx, cfg.SheetID, rng, [][]interface{}{{timestamp}}); err != nil {
			return fmt.Errorf("failed to update timestamp: %w", err)
		}
	}

	logger.Debug.Printf("Exported %d students of %s to sheet %s", len(first.Students), cfg.ClassID, cfg.SheetID)
	return nil
}

func studentRow(grader *scoring.Grader, student models.User, summary models.StudentSummary) []interface{} {
	name := strings.TrimSpace(student.FirstName + " " + student.LastName)
	if name == "" {
		name = student.Username
	}

	status := string(summary.Status)
	if status == "" {
		status = string(models.SummaryNotStarted)
	}

	var score interface{} = ""
	if summary.Score != nil {
		score = *summary.Score
	}
	mastery := ""
	if band, ok := grader.Grade(summary.Score, summary.MaxScore); ok {
		mastery = band.ShortName
	}
	return []interface{}{name, status, score, summary.MaxScore, mastery}
}
