package auth

import (
	"strconv"
	"strings"
)

// PolicyService manages who may talk to the bot and who may see
// operational data.
type PolicyService struct {
	AdminUserIDs   map[int64]bool
	AllowedUserIDs map[int64]bool // if empty, all users are allowed
}

// NewPolicyService parses comma-separated Telegram user ID lists.
func NewPolicyService(adminUserIDsStr, allowedUserIDsStr string) *PolicyService {
	return &PolicyService{
		AdminUserIDs:   parseIDList(adminUserIDsStr),
		AllowedUserIDs: parseIDList(allowedUserIDsStr),
	}
}

func parseIDList(s string) map[int64]bool {
	ids := make(map[int64]bool)
	if s == "" {
		return ids
	}
	for _, idStr := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err == nil {
			ids[id] = true
		}
	}
	return ids
}

// IsAdmin checks if a user is an admin.
func (p *PolicyService) IsAdmin(userID int64) bool {
	return p.AdminUserIDs[userID]
}

// IsAllowed checks if a user may submit research queries.
func (p *PolicyService) IsAllowed(userID int64) bool {
	if len(p.AllowedUserIDs) == 0 {
		return true
	}
	if p.IsAdmin(userID) {
		return true
	}
	return p.AllowedUserIDs[userID]
}
