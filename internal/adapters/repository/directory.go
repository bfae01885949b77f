package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/okian/skillswap/internal/domain/model"
)

// MemoryDirectory is an in-memory Directory.
type MemoryDirectory struct {
	mu       sync.RWMutex
	profiles map[string]model.SkillProfile
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{profiles: make(map[string]model.SkillProfile)}
}

// Put inserts or replaces a profile.
func (d *MemoryDirectory) Put(_ context.Context, p model.SkillProfile) error {
	if err := validateProfile("directory.put", p); err != nil {
		return err
	}
	d.mu.Lock()
	d.profiles[p.UserID] = p.Normalize().Clone()
	d.mu.Unlock()
	return nil
}

// Get returns a profile by user id.
func (d *MemoryDirectory) Get(_ context.Context, userID string) (model.SkillProfile, error) {
	d.mu.RLock()
	p, ok := d.profiles[userID]
	d.mu.RUnlock()
	if !ok {
		return model.SkillProfile{}, model.WrapKind("directory.get", model.ErrNotFound, fmt.Errorf("user %q", userID))
	}
	return p.Clone(), nil
}

// List returns every profile ordered by user id.
func (d *MemoryDirectory) List(_ context.Context) ([]model.SkillProfile, error) {
	d.mu.RLock()
	out := make([]model.SkillProfile, 0, len(d.profiles))
	for _, p := range d.profiles {
		out = append(out, p.Clone())
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// UpdateRating applies fn to the stored rating under the directory lock.
func (d *MemoryDirectory) UpdateRating(_ context.Context, userID string, fn func(float64, int) (float64, int)) (model.SkillProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[userID]
	if !ok {
		return model.SkillProfile{}, model.WrapKind("directory.update_rating", model.ErrNotFound, fmt.Errorf("user %q", userID))
	}
	p.Rating, p.RatingCount = fn(p.Rating, p.RatingCount)
	d.profiles[userID] = p
	return p.Clone(), nil
}

func validateProfile(op string, p model.SkillProfile) error {
	if strings.TrimSpace(p.UserID) == "" {
		return model.Invalidf(op, "user id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return model.Invalidf(op, "name is required for %q", p.UserID)
	}
	if p.RatingCount > 0 && (p.Rating < model.MinStars || p.Rating > model.MaxStars) {
		return model.Invalidf(op, "rating %.2f out of range for %q", p.Rating, p.UserID)
	}
	return nil
}
