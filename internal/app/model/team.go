package model

import (
	"strings"
	"time"
)

// Team plans as stored on Team.Plan. Suffixed variants such as "pro+old" exist in the wild,
// so plan checks match on substrings.
const (
	PlanFree          = "free"
	PlanStarter       = "starter"
	PlanPro           = "pro"
	PlanBusiness      = "business"
	PlanDatarooms     = "datarooms"
	PlanDataroomsPlus = "datarooms-plus"
)

// Member roles.
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleMember  = "MEMBER"
)

// Team owns documents, datarooms, links and viewers.
type Team struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Plan      string    `gorm:"size:32;not null;default:free" json:"plan"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// IsFree reports whether the team is on the free tier.
func (t *Team) IsFree() bool {
	return t == nil || strings.Contains(t.Plan, PlanFree)
}

// IncludesLocation reports whether owner notifications may carry viewer location.
func (t *Team) IncludesLocation() bool {
	if t == nil {
		return false
	}
	return !strings.Contains(t.Plan, PlanFree) &&
		!strings.Contains(t.Plan, PlanStarter) &&
		!strings.Contains(t.Plan, PlanPro)
}

// TeamMember links a user to a team with a role.
type TeamMember struct {
	TeamID    string    `gorm:"primaryKey;size:64" json:"teamId"`
	UserID    string    `gorm:"primaryKey;size:64" json:"userId"`
	Email     string    `gorm:"size:320;not null" json:"email"`
	Role      string    `gorm:"size:16;not null;default:MEMBER" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
