// Package notification routes activity events to the users who must hear
// about them, persists per-user notification records and broadcasts a
// refresh signal.
package notification

import "github.com/jordanlanch/prospectroute/pkg/models"

// Recipients returns the user ids to notify when author adds activity to
// prospect. Contributors notify their supervisor and the designated admin;
// supervisors and admins notify the prospect owner. The author is never a
// recipient and ids are unique. A designatedAdmin of zero means none.
func Recipients(author *models.User, prospect *models.Prospect, designatedAdmin int) []int {
	var candidates []int
	switch author.Role {
	case models.RoleUser:
		if author.SupervisorID != nil {
			candidates = append(candidates, *author.SupervisorID)
		}
		candidates = append(candidates, designatedAdmin)
	case models.RoleSupervisor, models.RoleAdmin:
		// Only the owner. A manager writing on their own prospect notifies
		// nobody: neither their own supervisor nor the designated admin.
		candidates = append(candidates, prospect.UserID)
	}

	out := make([]int, 0, len(candidates))
	seen := make(map[int]bool, len(candidates))
	for _, id := range candidates {
		if id <= 0 || id == author.ID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
