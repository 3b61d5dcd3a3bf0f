package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/gradebook/internal/app"
	"github.com/shrimpsizemoose/gradebook/internal/gradebook"
	"github.com/shrimpsizemoose/gradebook/internal/models"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) GetStudentsData(ctx context.Context, req gradebook.StudentsDataRequest) (*gradebook.StudentsData, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gradebook.StudentsData), args.Error(1)
}

type update struct {
	sheetID string
	rng     string
	values  [][]interface{}
}

type recordingWriter struct {
	updates []update
	err     error
}

func (w *recordingWriter) Update(ctx context.Context, sheetID, rng string, values [][]interface{}) error {
	w.updates = append(w.updates, update{sheetID, rng, values})
	return w.err
}

func score(v float64) *float64 { return &v }

var exportConfig = app.ExportConfig{
	Name:           "period-1",
	SheetID:        "sheet",
	SheetName:      "Quiz",
	TimestampRange: "F1",
	DistrictID:     "d1",
	AssignmentID:   "a1",
	ClassID:        "c1",
	TeacherID:      "u1",
}

func newExporter(source StudentsDataSource) *GSheetExporter {
	e := NewGSheetExporter(source)
	e.now = func() time.Time { return time.Date(2024, 4, 1, 12, 30, 0, 0, time.UTC) }
	return e
}

func TestExport(t *testing.T) {
	source := new(MockSource)
	firstReq := gradebook.StudentsDataRequest{
		DistrictID:   "d1",
		AssignmentID: "a1",
		ClassID:      "c1",
		TeacherID:    "u1",
		UserID:       "u1",
		UserRole:     models.RoleTeacher,
	}
	source.On("GetStudentsData", mock.Anything, firstReq).Return(&gradebook.StudentsData{
		Students: []models.User{
			{ID: "s1", FirstName: "Sam", LastName: "One"},
			{ID: "s2", Username: "kim2"},
			{ID: "s3", FirstName: "Lee"},
		},
		LeftOverStudents: []string{"s3"},
		AdditionalData: &gradebook.AdditionalData{
			AssignmentMastery: models.MasteryBands{
				{ShortName: "N", Threshold: 0},
				{ShortName: "M", Threshold: 30},
			},
		},
		ActivityResult: &gradebook.ActivityResult{
			Summaries: []models.StudentSummary{
				{StudentID: "s1", Status: models.SummarySubmitted, Score: score(3), MaxScore: 8},
				{StudentID: "s2", Status: models.SummaryNotStarted, MaxScore: 8},
			},
		},
	}, nil).Once()

	secondReq := firstReq
	secondReq.PageNo = 1
	secondReq.LeftOverStudents = []string{"s3"}
	source.On("GetStudentsData", mock.Anything, secondReq).Return(&gradebook.StudentsData{
		ActivityResult: &gradebook.ActivityResult{
			Summaries: []models.StudentSummary{
				{StudentID: "s3", Status: models.SummaryInProgress, Score: score(1), MaxScore: 8},
			},
		},
	}, nil).Once()

	writer := &recordingWriter{}
	err := newExporter(source).Export(context.Background(), writer, exportConfig)
	require.NoError(t, err)
	source.AssertExpectations(t)

	require.Len(t, writer.updates, 2)
	assert.Equal(t, "Quiz!A1", writer.updates[0].rng)
	assert.Equal(t, [][]interface{}{
		{"Student", "Status", "Score", "Max score", "Mastery"},
		{"Sam One", "submitted", 3.0, 8.0, "M"},
		{"kim2", "notStarted", "", 8.0, ""},
		{"Lee", "inProgress", 1.0, 8.0, "N"},
	}, writer.updates[0].values)
	assert.Equal(t, "Quiz!F1", writer.updates[1].rng)
	assert.Equal(t, [][]interface{}{{"UPD: 1 April 12:30"}}, writer.updates[1].values)
}

func TestExportFailures(t *testing.T) {
	t.Run("gradebook unavailable", func(t *testing.T) {
		source := new(MockSource)
		source.On("GetStudentsData", mock.Anything, mock.Anything).Return(&gradebook.StudentsData{
			Error:  true,
			Status: &gradebook.ErrorStatus{Code: 404, Message: "Assignment is not available"},
		}, nil)

		writer := &recordingWriter{}
		err := newExporter(source).Export(context.Background(), writer, exportConfig)
		assert.ErrorContains(t, err, "Assignment is not available")
		assert.Empty(t, writer.updates)
	})

	t.Run("read error", func(t *testing.T) {
		source := new(MockSource)
		source.On("GetStudentsData", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		err := newExporter(source).Export(context.Background(), &recordingWriter{}, exportConfig)
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("write error", func(t *testing.T) {
		source := new(MockSource)
		source.On("GetStudentsData", mock.Anything, mock.Anything).Return(&gradebook.StudentsData{
			Students:       []models.User{{ID: "s1"}},
			ActivityResult: &gradebook.ActivityResult{},
		}, nil)

		writer := &recordingWriter{err: errors.New("quota")}
		err := newExporter(source).Export(context.Background(), writer, exportConfig)
		assert.ErrorContains(t, err, "failed to update sheet")
		assert.Len(t, writer.updates, 1)
	})
}
