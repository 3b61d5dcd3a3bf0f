package gradebook

import "github.com/shrimpsizemoose/gradebook/internal/models"

// Catalog is the ordered universe of questions of a test as students see it.
type Catalog struct {
	ItemIDs     []string
	QuestionIDs []string
	MaxScore    float64
}

// Size is the number of questions in the catalog.
func (c *Catalog) Size() int {
	return len(c.QuestionIDs)
}

// CatalogItemIDs lists the items of a test in item group order. Randomized
// groups are narrowed to the items actually delivered when delivered carries
// an entry for the group; auto-selected groups without static items take the
// delivered list as is.
func CatalogItemIDs(test *models.Test, delivered map[string][]string) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, g := range test.ItemGroups {
		got, ok := delivered[g.ID]
		if !g.Randomized() || !ok {
			for _, it := range g.Items {
				add(it.ItemID)
			}
			continue
		}

		if len(g.Items) == 0 {
			for _, id := range got {
				add(id)
			}
			continue
		}
		inGroup := make(map[string]bool, len(got))
		for _, id := range got {
			inGroup[id] = true
		}
		for _, it := range g.Items {
			if inGroup[it.ItemID] {
				add(it.ItemID)
			}
		}
	}
	return ids
}

// BuildCatalog resolves the question ids and total max score of a test from
// its items. Items missing from items contribute nothing.
func BuildCatalog(test *models.Test, items []models.TestItem, delivered map[string][]string) Catalog {
	indexed := make(map[string]*models.TestItem, len(items))
	for i := range items {
		indexed[items[i].ID] = &items[i]
	}

	catalog := Catalog{ItemIDs: CatalogItemIDs(test, delivered)}
	seen := make(map[string]bool)
	for _, id := range catalog.ItemIDs {
		item, ok := indexed[id]
		if !ok {
			continue
		}
		for _, qid := range item.QuestionIDs() {
			if seen[qid] {
				continue
			}
			seen[qid] = true
			catalog.QuestionIDs = append(catalog.QuestionIDs, qid)
		}
		catalog.MaxScore += item.MaxScore()
	}
	return catalog
}

// deliveredGroups spreads the items delivered anywhere in a class over the
// randomized groups of test. CatalogItemIDs narrows each group with static
// items to its own members. No deliveries yet means the full static lists.
func deliveredGroups(test *models.Test, itemIDs []string) map[string][]string {
	if len(itemIDs) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for i := range test.ItemGroups {
		if test.ItemGroups[i].Randomized() {
			out[test.ItemGroups[i].ID] = itemIDs
		}
	}
	return out
}
