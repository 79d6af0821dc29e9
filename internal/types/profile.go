// Package types provides the domain types shared by the stores, the verification engine,
// the notification subsystem and the HTTP layer.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Category selects the education or experience side of a profile.
type Category string

const (
	CategoryEducation  Category = "education"
	CategoryExperience Category = "experience"
)

// ParseCategory converts a path segment into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryEducation, CategoryExperience:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown category: %q", s)
	}
}

// Profile is a user's professional profile.
type Profile struct {
	UserID        string           `json:"userId"`
	FullName      string           `json:"fullName"`
	Headline      string           `json:"headline,omitempty"`
	Education     []EducationItem  `json:"education"`
	Experience    []ExperienceItem `json:"experience"`
	VerifyCredits VerifyCredits    `json:"verifyCredits"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Rating is the aggregate of all verification records on an item.
// Average is derived from Sum and Count and never stored.
type Rating struct {
	Count int `json:"count"`
	Sum   int `json:"sum"`
}

// Average returns the mean rating, or 0 when there are no ratings.
func (r Rating) Average() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.Sum) / float64(r.Count)
}

// MarshalJSON adds the derived average.
func (r Rating) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count   int     `json:"count"`
		Sum     int     `json:"sum"`
		Average float64 `json:"average"`
	}{r.Count, r.Sum, r.Average()})
}

// EducationItem is one education entry on a profile.
type EducationItem struct {
	ID            string         `json:"id"`
	Institute     string         `json:"institute"`
	InstituteKey  string         `json:"instituteKey"`
	Degree        string         `json:"degree,omitempty"`
	FieldOfStudy  string         `json:"fieldOfStudy,omitempty"`
	StartDate     *Date          `json:"startDate,omitempty"`
	EndDate       *Date          `json:"endDate,omitempty"`
	Rating        Rating         `json:"rating"`
	Verifications []Verification `json:"verifications"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// ExperienceItem is one experience entry on a profile.
type ExperienceItem struct {
	ID            string         `json:"id"`
	Company       string         `json:"company"`
	CompanyKey    string         `json:"companyKey"`
	RoleTitle     string         `json:"roleTitle"`
	LineManagerID string         `json:"lineManagerId,omitempty"`
	StartDate     *Date          `json:"startDate,omitempty"`
	EndDate       *Date          `json:"endDate,omitempty"`
	Rating        Rating         `json:"rating"`
	Verifications []Verification `json:"verifications"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// FindEducation returns the education item with the given ID, or nil.
func (p *Profile) FindEducation(id string) *EducationItem {
	for i := range p.Education {
		if p.Education[i].ID == id {
			return &p.Education[i]
		}
	}
	return nil
}

// FindExperience returns the experience item with the given ID, or nil.
func (p *Profile) FindExperience(id string) *ExperienceItem {
	for i := range p.Experience {
		if p.Experience[i].ID == id {
			return &p.Experience[i]
		}
	}
	return nil
}

// Date is a calendar date serialized as YYYY-MM-DD
type Date struct {
	time.Time
}

// MarshalJSON implements json.Marshaler
func (d *Date) MarshalJSON() ([]byte, error) {
	if d == nil || d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	str := string(data)
	if str == "null" || str == `""` {
		return nil
	}
	if len(str) < 2 || str[0] != '"' || str[len(str)-1] != '"' {
		return errors.New("date must be a string in YYYY-MM-DD format")
	}
	var err error
	d.Time, err = time.Parse("2006-01-02", str[1:len(str)-1])
	return err
}

// TimePtr returns the underlying time, or nil for a nil Date. Used when binding nullable
// DATE columns.
func (d *Date) TimePtr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// DateFromPtr wraps a nullable time.
func DateFromPtr(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}
