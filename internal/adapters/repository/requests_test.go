package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func sarah() model.SkillProfile {
	return model.NewSkillProfile("u-sarah", "Sarah Johnson",
		[]model.Skill{{Name: "Python", Level: "Expert"}, {Name: "Machine Learning"}},
		[]string{"JavaScript", "React"})
}

func ahmed() model.SkillProfile {
	return model.NewSkillProfile("u-ahmed", "Ahmed Hassan",
		[]model.Skill{{Name: "JavaScript"}, {Name: "React"}},
		[]string{"Python"})
}

func TestMemoryRequestStore_Create(t *testing.T) {
	Convey("Given a request store", t, func() {
		ctx := context.Background()
		var (
			mu    sync.Mutex
			audit []model.AuditRecord
		)
		store := repository.NewMemoryRequestStore(repository.WithTransitionHook(
			func(_ context.Context, _ model.SwapRequest, rec model.AuditRecord) {
				mu.Lock()
				audit = append(audit, rec)
				mu.Unlock()
			}))

		Convey("When a valid pair is requested with different casing", func() {
			req, err := store.Create(ctx, repository.CreateInput{
				Requester: sarah(), Responder: ahmed(),
				OfferedSkill: "python", RequestedSkill: "JAVASCRIPT",
			})

			Convey("Then it is pending, canonicalised and audited", func() {
				So(err, ShouldBeNil)
				So(req.State, ShouldEqual, model.StatePending)
				So(req.OfferedSkill, ShouldEqual, "Python")
				So(req.RequestedSkill, ShouldEqual, "JavaScript")
				So(req.Warnings, ShouldBeEmpty)
				So(req.Version, ShouldEqual, 1)

				log, err := store.Audit(ctx, req.ID)
				So(err, ShouldBeNil)
				So(len(log), ShouldEqual, 1)
				So(log[0].Event, ShouldEqual, model.EventCreated)
				So(log[0].Actor, ShouldEqual, "u-sarah")
				So(len(audit), ShouldEqual, 1)
			})
		})

		Convey("When the requester does not offer the skill", func() {
			_, err := store.Create(ctx, repository.CreateInput{
				Requester: sarah(), Responder: ahmed(),
				OfferedSkill: "Cooking", RequestedSkill: "JavaScript",
			})

			Convey("Then the pair is invalid and nothing is stored", func() {
				So(errors.Is(err, model.ErrInvalidSkillPair), ShouldBeTrue)
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				all, _ := store.List(ctx, repository.Filter{})
				So(all, ShouldBeEmpty)
			})
		})

		Convey("When the responder does not offer the requested skill", func() {
			_, err := store.Create(ctx, repository.CreateInput{
				Requester: sarah(), Responder: ahmed(),
				OfferedSkill: "Python", RequestedSkill: "Go",
			})
			So(errors.Is(err, model.ErrInvalidSkillPair), ShouldBeTrue)
		})

		Convey("When the requested skill is not on the requester's wanted list", func() {
			requester := sarah()
			requester.Wanted = []string{"Cooking"}
			req, err := store.Create(ctx, repository.CreateInput{
				Requester: requester, Responder: ahmed(),
				OfferedSkill: "Python", RequestedSkill: "React",
			})

			Convey("Then it is created with a warning", func() {
				So(err, ShouldBeNil)
				So(len(req.Warnings), ShouldEqual, 1)
			})
		})

		Convey("When a user requests a swap with themselves", func() {
			_, err := store.Create(ctx, repository.CreateInput{
				Requester: sarah(), Responder: sarah(),
				OfferedSkill: "Python", RequestedSkill: "Python",
			})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestMemoryRequestStore_Transition(t *testing.T) {
	Convey("Given a pending request", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryRequestStore()
		req, err := store.Create(ctx, repository.CreateInput{
			Requester: sarah(), Responder: ahmed(),
			OfferedSkill: "Python", RequestedSkill: "JavaScript",
		})
		So(err, ShouldBeNil)

		Convey("When it is accepted", func() {
			got, err := store.Transition(ctx, req.ID, model.EventAccept, "u-ahmed")

			Convey("Then state, version, decision time and audit move together", func() {
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, model.StateAccepted)
				So(got.Version, ShouldEqual, 2)
				So(got.DecidedAt, ShouldNotBeNil)
				log, _ := store.Audit(ctx, req.ID)
				So(len(log), ShouldEqual, 2)
				So(log[1].From, ShouldEqual, model.StatePending)
				So(log[1].To, ShouldEqual, model.StateAccepted)
				So(log[1].Seq, ShouldEqual, 2)
			})
		})

		Convey("When an illegal event is applied", func() {
			_, err := store.Transition(ctx, req.ID, model.EventStart, "u-ahmed")

			Convey("Then nothing changes", func() {
				So(errors.Is(err, model.ErrIllegalTransition), ShouldBeTrue)
				got, _ := store.Get(ctx, req.ID)
				So(got.State, ShouldEqual, model.StatePending)
				log, _ := store.Audit(ctx, req.ID)
				So(len(log), ShouldEqual, 1)
			})
		})

		Convey("When the mutation fails", func() {
			boom := errors.New("release failed")
			_, err := store.Transition(ctx, req.ID, model.EventCancel, "u-sarah",
				repository.WithMutation(func(r *model.SwapRequest) error {
					r.Warnings = append(r.Warnings, "partially applied")
					return boom
				}))

			Convey("Then the transition is aborted with no side effects", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				got, _ := store.Get(ctx, req.ID)
				So(got.State, ShouldEqual, model.StatePending)
				So(got.Warnings, ShouldBeEmpty)
			})
		})

		Convey("When the expected version is stale", func() {
			_, err := store.Transition(ctx, req.ID, model.EventAccept, "u-ahmed", repository.WithExpectedVersion(7))
			So(errors.Is(err, model.ErrConcurrentModification), ShouldBeTrue)
		})

		Convey("When the request does not exist", func() {
			_, err := store.Transition(ctx, "missing", model.EventAccept, "u-ahmed")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = store.Audit(ctx, "missing")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("When two responses race", func() {
			var wg sync.WaitGroup
			results := make([]error, 2)
			for i, ev := range []model.Event{model.EventAccept, model.EventDecline} {
				wg.Add(1)
				go func(i int, ev model.Event) {
					defer wg.Done()
					_, results[i] = store.Transition(ctx, req.ID, ev, "u-ahmed")
				}(i, ev)
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				wins := 0
				for _, err := range results {
					if err == nil {
						wins++
					} else {
						So(errors.Is(err, model.ErrIllegalTransition), ShouldBeTrue)
					}
				}
				So(wins, ShouldEqual, 1)
				log, _ := store.Audit(ctx, req.ID)
				So(len(log), ShouldEqual, 2)
			})
		})
	})
}

func TestMemoryRequestStore_List(t *testing.T) {
	Convey("Given requests between several users", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryRequestStore()
		maria := model.NewSkillProfile("u-maria", "Maria Garcia",
			[]model.Skill{{Name: "Spanish"}}, []string{"Python"})
		for i := 0; i < 3; i++ {
			_, err := store.Create(ctx, repository.CreateInput{
				Requester: sarah(), Responder: ahmed(),
				OfferedSkill: "Python", RequestedSkill: "React",
				Actor: fmt.Sprintf("u-sarah-%d", i),
			})
			So(err, ShouldBeNil)
		}
		r, err := store.Create(ctx, repository.CreateInput{
			Requester: maria, Responder: sarah(),
			OfferedSkill: "Spanish", RequestedSkill: "Python",
		})
		So(err, ShouldBeNil)
		_, err = store.Transition(ctx, r.ID, model.EventDecline, "u-sarah")
		So(err, ShouldBeNil)

		Convey("Then filters by participant and state apply", func() {
			all, _ := store.List(ctx, repository.Filter{})
			So(len(all), ShouldEqual, 4)
			ahmeds, _ := store.List(ctx, repository.Filter{UserID: "u-ahmed"})
			So(len(ahmeds), ShouldEqual, 3)
			declined, _ := store.List(ctx, repository.Filter{UserID: "u-sarah", States: []model.State{model.StateDeclined}})
			So(len(declined), ShouldEqual, 1)
			So(declined[0].RequesterID, ShouldEqual, "u-maria")
		})
	})
}
