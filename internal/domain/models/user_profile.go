package models

import (
	"github.com/samber/lo"
	"strings"
	"time"
)

// UserProfile holds job preferences and the uploaded resume.
// List fields are stored comma separated, like the search schedules were.
type UserProfile struct {
	UserID         string    `gorm:"primaryKey" json:"user_id"`
	Roles          string    `json:"-"`
	Locations      string    `json:"-"`
	WorkModes      string    `json:"-"`
	SkillsPrefer   string    `json:"-"`
	JobStatus      string    `json:"job_status"`
	ExpectedSalary string    `json:"expected_salary"`
	ResumeFilename string    `json:"resume_filename"`
	ResumeData     []byte    `json:"-"`
	ResumeText     string    `json:"-"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (p *UserProfile) RolesAsArray() []string     { return splitList(p.Roles) }
func (p *UserProfile) LocationsAsArray() []string { return splitList(p.Locations) }
func (p *UserProfile) WorkModesAsArray() []string { return splitList(p.WorkModes) }
func (p *UserProfile) SkillsAsArray() []string    { return splitList(p.SkillsPrefer) }

func JoinList(items []string) string {
	items = lo.Compact(lo.Map(items, func(item string, _ int) string {
		return strings.TrimSpace(strings.ReplaceAll(item, ",", " "))
	}))
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return lo.Compact(lo.Map(strings.Split(s, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}
