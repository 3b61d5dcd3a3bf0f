package gradebook

import (
	"sort"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

// FilterActive drops attempts that were superseded by a later unassign or
// unenroll. Per student, attempts are walked in id order: the trailing run of
// assigned+enrolled attempts is kept, or when the history ends broken, the run
// that ended at the last violating attempt (inclusive).
func FilterActive(attempts []models.Attempt) []models.Attempt {
	byUser := make(map[string][]models.Attempt)
	var users []string
	for _, a := range attempts {
		if _, ok := byUser[a.UserID]; !ok {
			users = append(users, a.UserID)
		}
		byUser[a.UserID] = append(byUser[a.UserID], a)
	}

	var out []models.Attempt
	for _, user := range users {
		history := byUser[user]
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].ID < history[j].ID
		})

		var active, broken []models.Attempt
		for _, a := range history {
			if a.Active() {
				active = append(active, a)
				continue
			}
			broken = append(active, a)
			active = nil
		}

		if len(active) > 0 {
			out = append(out, active...)
		} else {
			out = append(out, broken...)
		}
	}
	return out
}
