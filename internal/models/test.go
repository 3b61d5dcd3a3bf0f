package models

import "database/sql/driver"

const (
	ItemGroupStatic     = "STATIC"
	ItemGroupAutoSelect = "AUTOSELECT"

	DeliverAll           = "ALL"
	DeliverLimitedRandom = "LIMITED_RANDOM"
)

type ItemRef struct {
	ItemID string `json:"itemId" bson:"itemId"`
}

type ItemGroup struct {
	ID           string    `json:"_id" bson:"_id"`
	GroupName    string    `json:"groupName,omitempty" bson:"groupName,omitempty"`
	Type         string    `json:"type" bson:"type"`
	DeliveryType string    `json:"deliveryType,omitempty" bson:"deliveryType,omitempty"`
	Items        []ItemRef `json:"items" bson:"items"`
}

// Randomized reports whether students receive a per-attempt subset of the group.
func (g *ItemGroup) Randomized() bool {
	return g.Type == ItemGroupAutoSelect || g.DeliveryType == DeliverLimitedRandom
}

type ItemGroups []ItemGroup

func (g *ItemGroups) Scan(src interface{}) error { return scanJSON(src, g) }

func (g ItemGroups) Value() (driver.Value, error) { return valueJSON([]ItemGroup(g)) }

type Test struct {
	ID                   string     `db:"id" json:"_id" bson:"_id"`
	Title                string     `db:"title" json:"title" bson:"title"`
	TestCategory         string     `db:"test_category" json:"testCategory,omitempty" bson:"testCategory,omitempty"`
	Authors              StringList `db:"authors" json:"authors" bson:"authors"`
	ItemGroups           ItemGroups `db:"item_groups" json:"itemGroups" bson:"itemGroups"`
	StandardGradingScale string     `db:"standard_grading_scale_id" json:"standardGradingScaleId,omitempty" bson:"standardGradingScaleId,omitempty"`
}

// HasRandomQuestions reports whether any item group delivers a random subset.
func (t *Test) HasRandomQuestions() bool {
	for i := range t.ItemGroups {
		if t.ItemGroups[i].Randomized() {
			return true
		}
	}
	return false
}

// HasAutoSelect reports whether any item group is filled automatically at delivery.
func (t *Test) HasAutoSelect() bool {
	for i := range t.ItemGroups {
		if t.ItemGroups[i].Type == ItemGroupAutoSelect {
			return true
		}
	}
	return false
}

// ItemIDs flattens the statically listed items of every group, in group order.
func (t *Test) ItemIDs() []string {
	var ids []string
	for _, g := range t.ItemGroups {
		for _, it := range g.Items {
			ids = append(ids, it.ItemID)
		}
	}
	return ids
}

type Question struct {
	ID       string  `json:"id" bson:"id"`
	MaxScore float64 `json:"maxScore" bson:"maxScore"`
}

type Questions []Question

func (q *Questions) Scan(src interface{}) error { return scanJSON(src, q) }

func (q Questions) Value() (driver.Value, error) { return valueJSON([]Question(q)) }

type TestItem struct {
	ID               string    `db:"id" json:"_id" bson:"_id"`
	ItemLevelScoring bool      `db:"item_level_scoring" json:"itemLevelScoring" bson:"itemLevelScoring"`
	ItemLevelScore   float64   `db:"item_level_score" json:"itemLevelScore" bson:"itemLevelScore"`
	Questions        Questions `db:"questions" json:"questions" bson:"questions"`
}

func (it *TestItem) QuestionIDs() []string {
	ids := make([]string, 0, len(it.Questions))
	for _, q := range it.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// MaxScore is the item level score when the item is scored as a whole,
// otherwise the sum of its questions.
func (it *TestItem) MaxScore() float64 {
	if it.ItemLevelScoring {
		return it.ItemLevelScore
	}
	var total float64
	for _, q := range it.Questions {
		total += q.MaxScore
	}
	return total
}
