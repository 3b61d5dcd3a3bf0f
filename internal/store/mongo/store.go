package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shrimpsizemoose/trekker/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/store"
)

const (
	assignmentsCol     = "assignments"
	activitiesCol      = "userTestActivities"
	questionsCol       = "questionActivities"
	testsCol           = "tests"
	testItemsCol       = "testItems"
	usersCol           = "users"
	enrollmentsCol     = "enrollments"
	groupsCol          = "groups"
	proficiencyCol     = "standardsProficiencySettings"
	itemStandardsCol   = "itemStandards"
	curriculumsCol     = "interestedCurriculums"
	defaultDatabase    = "gradebook"
)

// MongoStore reads gradebook records from the document store the activity
// log originates in. Ids are stored as ObjectIDs and exposed as hex strings.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	if database == "" {
		database = defaultDatabase
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (s *MongoStore) Close() error {
	if s.client != nil {
		return s.client.Disconnect(context.Background())
	}
	return nil
}

// ApplyMigrations creates the indexes the gradebook queries rely on. The
// directory argument is only meaningful for SQL stores.
func (s *MongoStore) ApplyMigrations(dir string) error {
	ctx := context.Background()
	indexes := map[string]bson.D{
		activitiesCol:  {{Key: "assignmentId", Value: 1}, {Key: "groupId", Value: 1}, {Key: "userId", Value: 1}},
		questionsCol:   {{Key: "assignmentId", Value: 1}, {Key: "groupId", Value: 1}, {Key: "testActivityId", Value: 1}},
		enrollmentsCol: {{Key: "groupId", Value: 1}, {Key: "role", Value: 1}, {Key: "status", Value: 1}},
	}
	for col, keys := range indexes {
		logger.Info.Printf("Ensuring index on %s", col)
		if _, err := s.db.Collection(col).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys}); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", col, err)
		}
	}
	return nil
}

// oid converts a hex id to an ObjectID, keeping non-hex ids as plain strings.
func oid(id string) interface{} {
	if v, err := primitive.ObjectIDFromHex(id); err == nil {
		return v
	}
	return id
}

func oids(ids []string) bson.A {
	out := make(bson.A, 0, len(ids))
	for _, id := range ids {
		out = append(out, oid(id))
	}
	return out
}

func (s *MongoStore) findOne(ctx context.Context, col string, filter interface{}, out interface{}, opts ...*options.FindOneOptions) (bool, error) {
	err := s.db.Collection(col).FindOne(ctx, filter, opts...).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MongoStore) findAll(ctx context.Context, col string, filter interface{}, out interface{}, opts ...*options.FindOptions) error {
	cursor, err := s.db.Collection(col).Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

func (s *MongoStore) GetAssignment(ctx context.Context, districtID, assignmentID string) (*models.Assignment, error) {
	var assignment models.Assignment
	found, err := s.findOne(ctx, assignmentsCol, bson.M{"_id": oid(assignmentID), "districtId": oid(districtID)}, &assignment)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &assignment, nil
}

var attemptProjection = bson.M{
	"_id": 1, "userId": 1, "assignmentId": 1, "groupId": 1, "testId": 1, "status": 1,
	"isAssigned": 1, "isEnrolled": 1, "redirect": 1, "v1Id": 1, "createdAt": 1, "endDate": 1,
	"isPaused": 1, "pauseReason": 1, "archived": 1, "graded": 1, "score": 1, "maxScore": 1,
}

func (s *MongoStore) FindAttempts(ctx context.Context, q store.AttemptQuery) ([]models.Attempt, error) {
	filter := bson.M{
		"assignmentId": oid(q.AssignmentID),
		"groupId":      oid(q.GroupID),
	}
	if len(q.UserIDs) > 0 {
		filter["userId"] = bson.M{"$in": oids(q.UserIDs)}
	}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}
	if q.ExcludeLanguageSwitched {
		filter["languagePreferenceSwitched"] = bson.M{"$ne": true}
	}

	projection := bson.M{}
	for k, v := range attemptProjection {
		projection[k] = v
	}
	if q.WithDeliveredItems {
		projection["itemsToDeliverInGroup"] = 1
	}

	opts := options.Find().
		SetProjection(projection).
		SetSort(bson.D{{Key: "userId", Value: 1}, {Key: "_id", Value: 1}})

	var attempts []models.Attempt
	if err := s.findAll(ctx, activitiesCol, filter, &attempts, opts); err != nil {
		return nil, fmt.Errorf("failed to find test activities: %w", err)
	}
	return attempts, nil
}

func (s *MongoStore) FindQuestionActivities(ctx context.Context, q store.QuestionActivityQuery) ([]models.QuestionActivity, error) {
	filter := bson.M{}
	if q.AssignmentID != "" {
		filter["assignmentId"] = oid(q.AssignmentID)
	}
	if q.GroupID != "" {
		filter["groupId"] = oid(q.GroupID)
	}
	if len(q.TestActivityIDs) > 0 {
		filter["testActivityId"] = bson.M{"$in": oids(q.TestActivityIDs)}
	}
	if len(q.UserIDs) > 0 {
		filter["userId"] = bson.M{"$in": oids(q.UserIDs)}
	}
	if q.TestItemID != "" {
		filter["testItemId"] = oid(q.TestItemID)
	}

	opts := options.Find().SetSort(bson.D{{Key: "userId", Value: 1}, {Key: "_id", Value: 1}})

	var activities []models.QuestionActivity
	if err := s.findAll(ctx, questionsCol, filter, &activities, opts); err != nil {
		return nil, fmt.Errorf("failed to find question activities: %w", err)
	}
	return activities, nil
}

func (s *MongoStore) DeliveredItemIDs(ctx context.Context, testID, groupID string) ([]string, error) {
	filter := bson.M{
		"testId":                oid(testID),
		"groupId":               oid(groupID),
		"itemsToDeliverInGroup": bson.M{"$exists": true},
	}
	opts := options.Find().
		SetProjection(bson.M{"itemsToDeliverInGroup": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	var attempts []models.Attempt
	if err := s.findAll(ctx, activitiesCol, filter, &attempts, opts); err != nil {
		return nil, fmt.Errorf("failed to get delivered items: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, a := range attempts {
		for _, g := range a.ItemsToDeliverInGroup {
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

func (s *MongoStore) GetTest(ctx context.Context, id string) (*models.Test, error) {
	var test models.Test
	found, err := s.findOne(ctx, testsCol, bson.M{"_id": oid(id)}, &test)
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &test, nil
}

func (s *MongoStore) FindTestItems(ctx context.Context, ids []string) ([]models.TestItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.TestItem
	if err := s.findAll(ctx, testItemsCol, bson.M{"_id": bson.M{"$in": oids(ids)}}, &items); err != nil {
		return nil, fmt.Errorf("failed to find test items: %w", err)
	}
	return items, nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	found, err := s.findOne(ctx, usersCol, bson.M{"_id": oid(id)}, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

func (s *MongoStore) FindUsers(ctx context.Context, q store.UserQuery) ([]models.User, error) {
	if len(q.IDs) == 0 {
		return nil, nil
	}
	filter := bson.M{"_id": bson.M{"$in": oids(q.IDs)}}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}

	var users []models.User
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := s.findAll(ctx, usersCol, filter, &users, opts); err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	return users, nil
}

func enrollmentFilter(q store.EnrollmentQuery) bson.M {
	filter := bson.M{"groupId": oid(q.GroupID)}
	if q.GroupType != "" {
		filter["groupType"] = q.GroupType
	}
	if q.Role != "" {
		filter["role"] = q.Role
	}
	if len(q.Statuses) > 0 {
		filter["status"] = bson.M{"$in": q.Statuses}
	}
	return filter
}

func (s *MongoStore) FindEnrollments(ctx context.Context, q store.EnrollmentQuery) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := s.findAll(ctx, enrollmentsCol, enrollmentFilter(q), &enrollments, opts); err != nil {
		return nil, fmt.Errorf("failed to find enrollments: %w", err)
	}
	return enrollments, nil
}

func (s *MongoStore) CountEnrollment(ctx context.Context, q store.EnrollmentQuery) (int, error) {
	count, err := s.db.Collection(enrollmentsCol).CountDocuments(ctx, enrollmentFilter(q))
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return int(count), nil
}

func (s *MongoStore) FindGroups(ctx context.Context, q store.GroupQuery) ([]models.Group, error) {
	if len(q.IDs) == 0 {
		return nil, nil
	}
	filter := bson.M{"_id": bson.M{"$in": oids(q.IDs)}}
	if q.OwnerID != "" {
		filter["owners"] = q.OwnerID
	}
	if len(q.InstitutionIDs) > 0 {
		filter["institutionId"] = bson.M{"$in": q.InstitutionIDs}
	}

	var groups []models.Group
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "name": 1, "type": 1, "institutionId": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	if err := s.findAll(ctx, groupsCol, filter, &groups, opts); err != nil {
		return nil, fmt.Errorf("failed to find groups: %w", err)
	}
	return groups, nil
}

func (s *MongoStore) AverageScore(ctx context.Context, assignmentID string) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"assignmentId": oid(assignmentID),
			"status":       models.StatusSubmitted,
			"score":        bson.M{"$ne": nil},
		}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "averageScore": bson.M{"$avg": "$score"}}}},
	}
	cursor, err := s.db.Collection(activitiesCol).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to get average score: %w", err)
	}

	var result []struct {
		AverageScore float64 `bson:"averageScore"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode average score: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].AverageScore, nil
}

func (s *MongoStore) ItemsSummary(ctx context.Context, assignmentID string) ([]models.ItemSummary, error) {
	countIf := func(field string) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$" + field, true}}, 1, 0}}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"assignmentId": oid(assignmentID)}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$testItemId",
			"attempts":     bson.M{"$sum": 1},
			"averageScore": bson.M{"$avg": "$score"},
			"correct":      countIf("correct"),
			"skipped":      countIf("skipped"),
		}}},
		{{Key: "$set", Value: bson.M{"averageScore": bson.M{"$ifNull": bson.A{"$averageScore", 0}}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cursor, err := s.db.Collection(questionsCol).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to get items summary: %w", err)
	}

	var summary []models.ItemSummary
	if err := cursor.All(ctx, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode items summary: %w", err)
	}
	return summary, nil
}

func (s *MongoStore) GradingScale(ctx context.Context, id string) (models.MasteryBands, error) {
	if id == "" {
		return nil, nil
	}
	var doc struct {
		Scale models.MasteryBands `bson:"scale"`
	}
	opts := options.FindOne().SetProjection(bson.M{"scale": 1, "_id": 0})
	found, err := s.findOne(ctx, proficiencyCol, bson.M{"_id": oid(id)}, &doc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get grading scale: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.Scale, nil
}

func (s *MongoStore) StandardsForItems(ctx context.Context, curriculumIDs []int, itemIDs []string) ([]models.StandardSummary, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{"itemId": bson.M{"$in": oids(itemIDs)}}
	if len(curriculumIDs) > 0 {
		filter["curriculumId"] = bson.M{"$in": curriculumIDs}
	}
	opts := options.Find().SetSort(bson.D{{Key: "standardId", Value: 1}, {Key: "itemId", Value: 1}})

	var rows []store.ItemStandard
	if err := s.findAll(ctx, itemStandardsCol, filter, &rows, opts); err != nil {
		return nil, fmt.Errorf("failed to find item standards: %w", err)
	}
	return store.GroupItemStandards(rows), nil
}

func (s *MongoStore) InterestedCurriculums(ctx context.Context, userID, districtID string) ([]int, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"userId": oid(userID)},
		bson.M{"userId": bson.M{"$exists": false}, "districtId": oid(districtID)},
	}}

	var rows []struct {
		CurriculumID int `bson:"curriculumId"`
	}
	if err := s.findAll(ctx, curriculumsCol, filter, &rows); err != nil {
		return nil, fmt.Errorf("failed to get interested curriculums: %w", err)
	}

	seen := make(map[int]bool)
	var ids []int
	for _, r := range rows {
		if !seen[r.CurriculumID] {
			seen[r.CurriculumID] = true
			ids = append(ids, r.CurriculumID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
