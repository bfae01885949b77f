// Package repository holds the profile directory and the swap request store.
package repository

import (
	"context"

	"github.com/okian/skillswap/internal/domain/model"
)

// Directory is the read model of user profiles. Rating updates are the only
// writes the engine performs and are atomic per profile.
type Directory interface {
	// Get returns ErrNotFound if the user is unknown.
	Get(ctx context.Context, userID string) (model.SkillProfile, error)
	List(ctx context.Context) ([]model.SkillProfile, error)
	UpdateRating(ctx context.Context, userID string, fn func(rating float64, count int) (float64, int)) (model.SkillProfile, error)
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	UserID string
	States []model.State
}

// Mutation applies side effects to a working copy of the request while its
// lock is held. Returning an error aborts the transition.
type Mutation func(r *model.SwapRequest) error

// RequestStore owns swap requests and their audit logs.
type RequestStore interface {
	Create(ctx context.Context, in CreateInput) (model.SwapRequest, error)
	Get(ctx context.Context, id string) (model.SwapRequest, error)
	List(ctx context.Context, f Filter) ([]model.SwapRequest, error)
	Transition(ctx context.Context, id string, event model.Event, actor string, opts ...TransitionOption) (model.SwapRequest, error)
	Audit(ctx context.Context, id string) ([]model.AuditRecord, error)
}

// CreateInput carries the resolved participants of a new request.
type CreateInput struct {
	Requester      model.SkillProfile
	Responder      model.SkillProfile
	OfferedSkill   string
	RequestedSkill string
	Actor          string
}
