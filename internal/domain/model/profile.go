// Package model contains the engine's entities and the error taxonomy shared
// by every layer.
package model

import "strings"

// DefaultRating is the rating of a profile that has never been rated.
const DefaultRating = 5.0

// Skill is an offered skill with an optional proficiency level.
type Skill struct {
	Name  string `json:"name" yaml:"name"`
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
}

// SkillProfile is the read model supplied by the profile directory.
type SkillProfile struct {
	UserID      string   `json:"user_id"`
	Name        string   `json:"name"`
	Location    string   `json:"location,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Offered     []Skill  `json:"skills_offered"`
	Wanted      []string `json:"skills_wanted"`
	Rating      float64  `json:"rating"`
	RatingCount int      `json:"rating_count"`
}

// NewSkillProfile builds an unrated profile.
func NewSkillProfile(userID, name string, offered []Skill, wanted []string) SkillProfile {
	return SkillProfile{
		UserID:  userID,
		Name:    name,
		Offered: offered,
		Wanted:  wanted,
		Rating:  DefaultRating,
	}
}

// Normalize enforces rating_count == 0 => rating == 5.0.
func (p SkillProfile) Normalize() SkillProfile {
	if p.RatingCount <= 0 {
		p.RatingCount = 0
		p.Rating = DefaultRating
	}
	return p
}

// OfferedSkill returns the profile's spelling of an offered skill, matched
// case-insensitively.
func (p SkillProfile) OfferedSkill(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, s := range p.Offered {
		if strings.EqualFold(s.Name, name) {
			return s.Name, true
		}
	}
	return "", false
}

// Wants reports whether the profile lists name among its wanted skills.
func (p SkillProfile) Wants(name string) bool {
	name = strings.TrimSpace(name)
	for _, w := range p.Wanted {
		if strings.EqualFold(w, name) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (p SkillProfile) Clone() SkillProfile {
	p.Offered = append([]Skill(nil), p.Offered...)
	p.Wanted = append([]string(nil), p.Wanted...)
	return p
}
