package models

import (
	"fmt"
	"time"
)

// RolePermissions maps a role to the portal areas it may touch.
var RolePermissions = map[string][]string{
	"admin":           {"tenders", "projects", "finance", "suppliers", "reports"},
	"procurement":     {"tenders", "reports", "suppliers"},
	"project_manager": {"projects", "reports", "suppliers"},
	"finance":         {"projects", "finance", "reports"},
	"viewer":          {"reports"},
}

// CheckPermission returns an error when the user's role has no access to the
// given area.
func CheckPermission(user *User, area string) error {
	for _, allowed := range RolePermissions[user.Role] {
		if allowed == area {
			return nil
		}
	}
	return fmt.Errorf("role %q does not have access to %s", user.Role, area)
}

// RiskFlags computes the at-risk markers for a project as of the given day.
func RiskFlags(p Project, today time.Time) []string {
	flags := []string{}
	switch p.PaymentStatus {
	case "delayed":
		flags = append(flags, "payment_delayed")
	case "unpaid":
		flags = append(flags, "payment_unpaid")
	}
	day := today.Format("2006-01-02")
	if p.EndDate != "" && p.EndDate < day {
		flags = append(flags, "milestone_overdue")
	}
	if p.GuaranteeEnd != "" {
		due := today.AddDate(0, 0, 10).Format("2006-01-02")
		if p.GuaranteeEnd <= due {
			flags = append(flags, "guarantee_due")
		}
	}
	return flags
}
