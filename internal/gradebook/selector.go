package gradebook

import (
	"sort"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

// recentAttempts is how many of the newest attempts are kept per student.
const recentAttempts = 3

// CompareAttempts orders two attempts by when they were taken. Rows migrated
// from the legacy system carry a v1 id whose embedded timestamp is the only
// reliable one, so it is used when both sides have it. Otherwise creation
// times are compared. Equal times fall back to id order.
// The result is negative when a is older than b.
func CompareAttempts(a, b *models.Attempt) int {
	if at, ok := a.LegacyTime(); ok {
		if bt, ok := b.LegacyTime(); ok {
			if c := at.Compare(bt); c != 0 {
				return c
			}
			return compareIDs(a.ID, b.ID)
		}
	}
	if c := a.CreatedTime().Compare(b.CreatedTime()); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}

func compareIDs(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// GroupRecent groups attempts by student, newest first, keeping at most the
// three most recent. Number counts down from the size of the whole history,
// so the newest attempt carries the attempt count.
func GroupRecent(attempts []models.Attempt) map[string][]models.Attempt {
	grouped := make(map[string][]models.Attempt)
	for _, a := range attempts {
		grouped[a.UserID] = append(grouped[a.UserID], a)
	}

	for user, history := range grouped {
		sort.SliceStable(history, func(i, j int) bool {
			return CompareAttempts(&history[i], &history[j]) > 0
		})
		total := len(history)
		for i := range history {
			history[i].Number = total - i
		}
		if len(history) > recentAttempts {
			history = history[:recentAttempts]
		}
		grouped[user] = history
	}
	return grouped
}

// PickLatest returns one attempt per student: the newest one, unless it has
// not been started and the caller wants question level data, in which case
// the previous attempt is used when there is one. The picked attempt is
// flagged as previously redirected when any older attempt in the group was a
// redirect. Output is ordered by student id; grouped is left untouched.
func PickLatest(grouped map[string][]models.Attempt, questionsView bool) []models.Attempt {
	users := make([]string, 0, len(grouped))
	for user := range grouped {
		users = append(users, user)
	}
	sort.Strings(users)

	picked := make([]models.Attempt, 0, len(users))
	for _, user := range users {
		group := grouped[user]
		if len(group) == 0 {
			continue
		}

		latest, rest := group[0], group[1:]
		if latest.Status == models.StatusNotStarted && questionsView && len(rest) > 0 {
			latest = rest[0]
		}
		for i := range rest {
			if rest[i].Redirect {
				latest.PreviouslyRedirected = true
				break
			}
		}
		picked = append(picked, latest)
	}
	return picked
}
