package mongo

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
	"github.com/shrimpsizemoose/gradebook/internal/store/storetest"
)

// fixtures mirrors ../testdata/fixtures.sql as documents. Empty SQL values
// are missing fields here.
var fixtures = map[string][]interface{}{
	assignmentsCol: {
		bson.M{"_id": "a1", "districtId": "d1", "testId": "t1", "title": "Quiz", "openPolicy": models.PolicyManualOpen,
			"class": bson.A{
				bson.M{"_id": "c1", "name": "Period 1", "status": "IN PROGRESS"},
				bson.M{"_id": "c2", "name": "Period 2", "archived": true},
			}},
	},
	activitiesCol: {
		bson.M{"_id": "ta1", "userId": "s1", "assignmentId": "a1", "groupId": "c1", "testId": "t1", "status": "submitted",
			"createdAt": int64(1000), "score": 3.0, "maxScore": 8.0, "graded": true, "languagePreferenceSwitched": false,
			"itemsToDeliverInGroup": bson.A{bson.M{"groupId": "g1", "items": bson.A{"i1"}}}},
		bson.M{"_id": "ta2", "userId": "s2", "assignmentId": "a1", "groupId": "c1", "testId": "t1", "status": "inProgress",
			"createdAt": int64(2000), "maxScore": 8.0, "graded": false, "languagePreferenceSwitched": false},
		bson.M{"_id": "ta3", "userId": "s2", "assignmentId": "a1", "groupId": "c1", "testId": "t1", "status": "submitted",
			"createdAt": int64(3000), "score": 4.0, "maxScore": 8.0, "graded": true, "languagePreferenceSwitched": true,
			"itemsToDeliverInGroup": bson.A{bson.M{"groupId": "g1", "items": bson.A{"i2", "i1"}}}},
		bson.M{"_id": "ta4", "userId": "s3", "assignmentId": "a1", "groupId": "c2", "testId": "t1", "status": "submitted",
			"createdAt": int64(4000), "score": 5.0, "maxScore": 8.0, "graded": true, "languagePreferenceSwitched": false},
	},
	questionsCol: {
		bson.M{"_id": "qa1", "qid": "q1", "testItemId": "i1", "testActivityId": "ta1", "userId": "s1", "assignmentId": "a1",
			"groupId": "c1", "score": 1.0, "maxScore": 1.0, "correct": true, "timeSpent": int64(30)},
		bson.M{"_id": "qa2", "qid": "q2", "testItemId": "i1", "testActivityId": "ta1", "userId": "s1", "assignmentId": "a1",
			"groupId": "c1", "score": 2.0, "maxScore": 2.0, "correct": false},
		bson.M{"_id": "qa3", "qid": "q3", "testItemId": "i2", "testActivityId": "ta2", "userId": "s2", "assignmentId": "a1",
			"groupId": "c1", "score": 0.0, "maxScore": 5.0, "skipped": true, "timeSpent": int64(12)},
	},
	testsCol: {
		bson.M{"_id": "t1", "title": "Fractions", "testCategory": "default", "authors": bson.A{"u1"},
			"itemGroups": bson.A{bson.M{"_id": "g1", "type": models.ItemGroupStatic,
				"items": bson.A{bson.M{"itemId": "i1"}, bson.M{"itemId": "i2"}}}},
			"standardGradingScaleId": "sp1"},
	},
	testItemsCol: {
		bson.M{"_id": "i1", "itemLevelScoring": false, "itemLevelScore": 0.0,
			"questions": bson.A{bson.M{"id": "q1", "maxScore": 1.0}, bson.M{"id": "q2", "maxScore": 2.0}}},
		bson.M{"_id": "i2", "itemLevelScoring": true, "itemLevelScore": 5.0,
			"questions": bson.A{bson.M{"id": "q3", "maxScore": 1.0}}},
	},
	usersCol: {
		bson.M{"_id": "u1", "firstName": "Ada", "lastName": "Teacher", "role": "teacher", "status": 1,
			"districtIds": bson.A{"d1"}, "institutionIds": bson.A{"inst1"}, "currentDistrictId": "d1"},
		bson.M{"_id": "s1", "firstName": "Sam", "lastName": "One", "role": "student", "status": 1, "districtIds": bson.A{"d1"}},
		bson.M{"_id": "s2", "firstName": "Kim", "lastName": "Two", "role": "student", "status": 1, "districtIds": bson.A{"d1"}},
		bson.M{"_id": "s3", "firstName": "Lee", "lastName": "Three", "role": "student", "status": 0, "districtIds": bson.A{"d1"}},
	},
	enrollmentsCol: {
		bson.M{"_id": "e1", "userId": "s1", "groupId": "c1", "groupType": "class", "role": "student", "status": 1},
		bson.M{"_id": "e2", "userId": "s2", "groupId": "c1", "groupType": "class", "role": "student", "status": 1},
		bson.M{"_id": "e3", "userId": "s3", "groupId": "c1", "groupType": "class", "role": "student", "status": 0},
		bson.M{"_id": "e4", "userId": "u1", "groupId": "c1", "groupType": "class", "role": "teacher", "status": 1},
	},
	groupsCol: {
		bson.M{"_id": "c1", "name": "Period 1", "type": "class", "institutionId": "inst1", "owners": bson.A{"u1"}},
		bson.M{"_id": "c2", "name": "Period 2", "type": "class", "institutionId": "inst2"},
	},
	proficiencyCol: {
		bson.M{"_id": "sp1", "scale": bson.A{
			bson.M{"score": 1, "shortName": "N", "masteryLevel": "Not Mastered", "threshold": 0.0},
			bson.M{"score": 2, "shortName": "M", "masteryLevel": "Mastered", "threshold": 70.0},
		}},
	},
	itemStandardsCol: {
		bson.M{"itemId": "i1", "standardId": 10, "identifier": "6.NS.1", "curriculumId": 100, "description": "Divide fractions"},
		bson.M{"itemId": "i2", "standardId": 10, "identifier": "6.NS.1", "curriculumId": 100, "description": "Divide fractions"},
		bson.M{"itemId": "i2", "standardId": 11, "identifier": "6.NS.2", "curriculumId": 200, "description": "Divide multi-digit numbers"},
	},
	curriculumsCol: {
		bson.M{"userId": "u1", "curriculumId": 100},
		bson.M{"districtId": "d1", "curriculumId": 200},
		bson.M{"districtId": "d2", "curriculumId": 300},
	},
}

// setupTestDB starts a throwaway MongoDB container with the gradebook indexes and fixtures
func setupTestDB(t *testing.T) (*MongoStore, func()) {
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	s, err := NewMongoStore(ctx, uri, "gradebook_test")
	require.NoError(t, err, "Failed to create store")
	require.NoError(t, s.ApplyMigrations(""), "Failed to create indexes")

	for col, docs := range fixtures {
		_, err := s.db.Collection(col).InsertMany(ctx, docs)
		require.NoError(t, err, "Failed to load %s", col)
	}

	cleanup := func() {
		s.Close()
		container.Terminate(ctx)
	}

	return s, cleanup
}

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		log.Println("Skipping MongoDB integration tests. Use -short=false to run them.")
		os.Exit(0)
	}
	log.Println("Starting MongoDB store tests...")
	code := m.Run()
	log.Println("Finished MongoDB store tests")
	os.Exit(code)
}

func TestMongoStore(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	storetest.Run(t, s)
}

func TestObjectIDsAreReadAsHex(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	assignment := primitive.NewObjectID()
	class := primitive.NewObjectID()
	student := primitive.NewObjectID()
	attempt := primitive.NewObjectID()

	_, err := s.db.Collection(activitiesCol).InsertOne(ctx, bson.M{
		"_id": attempt, "userId": student, "assignmentId": assignment, "groupId": class,
		"testId": "t1", "status": "submitted",
	})
	require.NoError(t, err)
	_, err = s.db.Collection(questionsCol).InsertOne(ctx, bson.M{
		"_id": primitive.NewObjectID(), "qid": "q1", "testItemId": "i1", "testActivityId": attempt,
		"userId": student, "assignmentId": assignment, "groupId": class, "score": 1.0,
	})
	require.NoError(t, err)

	attempts, err := s.FindAttempts(ctx, store.AttemptQuery{
		AssignmentID: assignment.Hex(),
		GroupID:      class.Hex(),
		UserIDs:      []string{student.Hex()},
	})
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, attempt.Hex(), attempts[0].ID)
	assert.Equal(t, student.Hex(), attempts[0].UserID)
	assert.Equal(t, assignment.Hex(), attempts[0].AssignmentID)

	activities, err := s.FindQuestionActivities(ctx, store.QuestionActivityQuery{
		AssignmentID:    assignment.Hex(),
		GroupID:         class.Hex(),
		TestActivityIDs: []string{attempt.Hex()},
	})
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, attempt.Hex(), activities[0].TestActivityID)
	assert.Equal(t, student.Hex(), activities[0].UserID)
}
