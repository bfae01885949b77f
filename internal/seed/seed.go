// Package seed loads sample profiles, availability and question banks from
// YAML and applies them to a freshly built engine.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/quiz"
	"github.com/okian/skillswap/internal/domain/schedule"
	"github.com/okian/skillswap/pkg/logger"
)

//go:embed default.yaml
var defaultSeed []byte

// ErrInvalidSeed wraps every parse and consistency failure.
var ErrInvalidSeed = errors.New("invalid seed")

// Profile is the YAML form of a skill profile.
type Profile struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Location    string        `yaml:"location"`
	Bio         string        `yaml:"bio"`
	Offered     []model.Skill `yaml:"offered"`
	Wanted      []string      `yaml:"wanted"`
	Rating      float64       `yaml:"rating"`
	RatingCount int           `yaml:"rating_count"`
}

// Document is a complete seed.
type Document struct {
	Profiles     []Profile                        `yaml:"profiles"`
	Availability map[string]schedule.Availability `yaml:"availability"`
	Quizzes      map[string][]quiz.BankQuestion   `yaml:"quizzes"`
}

// ProfileWriter stores profiles; both directory backends satisfy it.
type ProfileWriter interface {
	Put(ctx context.Context, p model.SkillProfile) error
}

// AvailabilitySetter replaces a user's blocked dates and slots.
type AvailabilitySetter interface {
	SetAvailability(ctx context.Context, userID string, a schedule.Availability) error
}

// BankLoader installs a question bank for a skill.
type BankLoader interface {
	AddBank(skill string, bank []quiz.BankQuestion) error
}

// Default returns the embedded seed.
func Default() (*Document, error) {
	return Parse(defaultSeed)
}

// Load reads path, or the embedded seed when path is empty.
func Load(path string) (*Document, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	return Parse(data)
}

// Parse decodes a seed document strictly; unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) validate() error {
	ids := make(map[string]struct{}, len(d.Profiles))
	for i, p := range d.Profiles {
		if p.ID == "" || p.Name == "" {
			return fmt.Errorf("%w: profile #%d needs an id and a name", ErrInvalidSeed, i+1)
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("%w: duplicate profile id %q", ErrInvalidSeed, p.ID)
		}
		ids[p.ID] = struct{}{}
	}
	for user := range d.Availability {
		if _, ok := ids[user]; !ok {
			return fmt.Errorf("%w: availability for unknown profile %q", ErrInvalidSeed, user)
		}
	}
	return nil
}

// SkillProfiles converts the seed profiles. An unrated profile gets the
// default rating.
func (d *Document) SkillProfiles() []model.SkillProfile {
	return lo.Map(d.Profiles, func(p Profile, _ int) model.SkillProfile {
		return model.SkillProfile{
			UserID:      p.ID,
			Name:        p.Name,
			Location:    p.Location,
			Bio:         p.Bio,
			Offered:     p.Offered,
			Wanted:      p.Wanted,
			Rating:      p.Rating,
			RatingCount: p.RatingCount,
		}.Normalize()
	})
}

// Apply writes profiles, then availability, then question banks. Any of the
// targets may be nil to skip that part.
func (d *Document) Apply(ctx context.Context, dir ProfileWriter, sched AvailabilitySetter, banks BankLoader) error {
	log := logger.Get().Named("seed")

	if dir != nil {
		for _, p := range d.SkillProfiles() {
			if err := dir.Put(ctx, p); err != nil {
				return fmt.Errorf("seed profile %s: %w", p.UserID, err)
			}
		}
	}
	if sched != nil {
		users := lo.Keys(d.Availability)
		sort.Strings(users)
		for _, user := range users {
			if err := sched.SetAvailability(ctx, user, d.Availability[user]); err != nil {
				return fmt.Errorf("seed availability %s: %w", user, err)
			}
		}
	}
	if banks != nil {
		skills := lo.Keys(d.Quizzes)
		sort.Strings(skills)
		for _, skill := range skills {
			if err := banks.AddBank(skill, d.Quizzes[skill]); err != nil {
				return fmt.Errorf("seed quiz %s: %w", skill, err)
			}
		}
	}

	log.Info(ctx, "seed applied",
		logger.Int("profiles", len(d.Profiles)),
		logger.Int("availability", len(d.Availability)),
		logger.Int("quizzes", len(d.Quizzes)),
	)
	return nil
}
