package service_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/skillswap/internal/app"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/schedule"
)

func TestSendAndRespond(t *testing.T) {
	Convey("Given a started engine", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("When a request names an unknown user", func() {
			_, err := f.svc.SendRequest(ctx, "alex", "nobody", "JavaScript", "Python")

			Convey("Then it is rejected as an unknown profile", func() {
				So(errors.Is(err, model.ErrUnknownProfile), ShouldBeTrue)
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the requester does not offer the skill", func() {
			_, err := f.svc.SendRequest(ctx, "alex", "priya", "Cooking", "Python")

			Convey("Then the skill pair is invalid and nothing is stored", func() {
				So(errors.Is(err, model.ErrInvalidSkillPair), ShouldBeTrue)
				all, _ := f.svc.ListRequests(ctx, "")
				So(all, ShouldBeEmpty)
			})
		})

		Convey("When a user requests a swap with themselves", func() {
			_, err := f.svc.SendRequest(ctx, "alex", "alex", "JavaScript", "JavaScript")
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the requested skill is not on the requester's wish list", func() {
			req, err := f.svc.SendRequest(ctx, "maria", "alex", "spanish", "javascript")

			Convey("Then the request is created with a warning and canonical names", func() {
				So(err, ShouldBeNil)
				So(req.OfferedSkill, ShouldEqual, "Spanish")
				So(req.RequestedSkill, ShouldEqual, "JavaScript")
				So(len(req.Warnings), ShouldEqual, 1)
			})
		})

		Convey("When the responder declines", func() {
			req, err := f.svc.SendRequest(ctx, "alex", "priya", "JavaScript", "Python")
			So(err, ShouldBeNil)
			got, err := f.svc.RespondToRequest(ctx, req.ID, "priya", model.DecisionDecline)

			Convey("Then the request is terminal and cannot be decided again", func() {
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, model.StateDeclined)
				So(got.DecidedAt, ShouldNotBeNil)

				_, err = f.svc.RespondToRequest(ctx, req.ID, "priya", model.DecisionAccept)
				So(errors.Is(err, model.ErrIllegalTransition), ShouldBeTrue)
			})
		})

		Convey("When the requester tries to respond to their own request", func() {
			req, _ := f.svc.SendRequest(ctx, "alex", "priya", "JavaScript", "Python")
			_, err := f.svc.RespondToRequest(ctx, req.ID, "alex", model.DecisionAccept)

			Convey("Then it is rejected and the request stays pending", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
				got, _ := f.svc.GetRequest(ctx, req.ID)
				So(got.State, ShouldEqual, model.StatePending)
			})
		})

		Convey("When listing by user and state", func() {
			a, _ := f.svc.SendRequest(ctx, "alex", "priya", "JavaScript", "Python")
			b, _ := f.svc.SendRequest(ctx, "maria", "priya", "Spanish", "Python")
			_, err := f.svc.RespondToRequest(ctx, b.ID, "priya", model.DecisionAccept)
			So(err, ShouldBeNil)

			mine, _ := f.svc.ListRequests(ctx, "priya")
			So(len(mine), ShouldEqual, 2)
			pending, _ := f.svc.ListRequests(ctx, "priya", model.StatePending)
			So(len(pending), ShouldEqual, 1)
			So(pending[0].ID, ShouldEqual, a.ID)
			alex, _ := f.svc.ListRequests(ctx, "alex", model.StateAccepted)
			So(alex, ShouldBeEmpty)
		})
	})
}

func TestQuizGating(t *testing.T) {
	Convey("Given an accepted request", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		req, _ := f.svc.SendRequest(ctx, "alex", "priya", "JavaScript", "Python")
		_, err := f.svc.RespondToRequest(ctx, req.ID, "priya", model.DecisionAccept)
		So(err, ShouldBeNil)

		Convey("When the requester fails the quiz", func() {
			res, err := f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester, allWrong("JavaScript"))
			So(err, ShouldBeNil)
			So(res.Passed, ShouldBeFalse)
			So(res.ScorePercent, ShouldEqual, 0)

			Convey("Then the request is quiz_failed and a retry can pass", func() {
				got, _ := f.svc.GetRequest(ctx, req.ID)
				So(got.State, ShouldEqual, model.StateQuizFailed)
				So(got.FailedAttempts[model.SideRequester], ShouldEqual, 1)

				res, err = f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester, allCorrect("JavaScript"))
				So(err, ShouldBeNil)
				So(res.Passed, ShouldBeTrue)
				got, _ = f.svc.GetRequest(ctx, req.ID)
				So(got.State, ShouldEqual, model.StateQuizPending)
			})

			Convey("Then exhausting the attempts expires the request", func() {
				_, err = f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester, allWrong("JavaScript"))
				So(err, ShouldBeNil)
				_, err = f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester, allWrong("JavaScript"))
				So(err, ShouldBeNil)

				got, _ := f.svc.GetRequest(ctx, req.ID)
				So(got.State, ShouldEqual, model.StateExpired)

				_, err = f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester, allCorrect("JavaScript"))
				So(errors.Is(err, model.ErrIllegalTransition), ShouldBeTrue)
			})
		})

		Convey("When a side that already passed submits again", func() {
			_, err := f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester, allCorrect("JavaScript"))
			So(err, ShouldBeNil)
			_, err = f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester, allCorrect("JavaScript"))

			Convey("Then the second submission is rejected", func() {
				So(errors.Is(err, model.ErrIllegalTransition), ShouldBeTrue)
			})
		})

		Convey("When answers reference unknown questions", func() {
			_, err := f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester,
				[]model.Answer{{QuestionID: "py-1", Selected: 0}})

			Convey("Then nothing changes", func() {
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
				got, _ := f.svc.GetRequest(ctx, req.ID)
				So(got.State, ShouldEqual, model.StateAccepted)
			})
		})

		Convey("When sessions are proposed before both sides pass", func() {
			_, err := f.svc.ProposeSession(ctx, req.ID, SessionProposalAt("09:00"))
			So(errors.Is(err, model.ErrIllegalTransition), ShouldBeTrue)
		})
	})

	Convey("Given a skill without a question bank", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		req, _ := f.svc.SendRequest(ctx, "maria", "alex", "Pottery", "JavaScript")
		_, err := f.svc.RespondToRequest(ctx, req.ID, "alex", model.DecisionAccept)
		So(err, ShouldBeNil)

		Convey("Then the quiz is empty and any submission passes unverified", func() {
			qs, err := f.svc.GetQuiz(ctx, req.ID, model.SideRequester)
			So(errors.Is(err, model.ErrUnknownSkill), ShouldBeTrue)
			So(qs, ShouldBeEmpty)

			res, err := f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester, nil)
			So(err, ShouldBeNil)
			So(res.Passed, ShouldBeTrue)
			So(res.Unverified, ShouldBeTrue)
			So(res.ScorePercent, ShouldEqual, 100)
		})
	})
}

func TestBookingRules(t *testing.T) {
	Convey("Given a request where both quizzes passed", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		req := f.passedRequest(t)

		Convey("When the combined policy is given a focus skill", func() {
			p := SessionProposalAt("09:00")
			p.FocusSkill = "Python"
			_, err := f.svc.ProposeSession(ctx, req.ID, p)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the session type is unknown", func() {
			p := SessionProposalAt("09:00")
			p.SessionType = "carrier-pigeon"
			_, err := f.svc.ProposeSession(ctx, req.ID, p)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When one participant blocked the date", func() {
			err := f.svc.SetAvailability(ctx, "priya", schedule.Availability{BlockedDates: []string{"2024-01-20"}})
			So(err, ShouldBeNil)
			_, err = f.svc.ProposeSession(ctx, req.ID, SessionProposalAt("09:00"))

			Convey("Then the slot is unavailable with the reason", func() {
				var sue *model.SlotUnavailableError
				So(errors.As(err, &sue), ShouldBeTrue)
				So(sue.Slot, ShouldResemble, saturday("09:00"))
				So(sue.Reason, ShouldEqual, schedule.ReasonBlockedDate)
				got, _ := f.svc.GetRequest(ctx, req.ID)
				So(got.State, ShouldEqual, model.StateQuizPassed)
			})
		})

		Convey("When a session is booked", func() {
			b, err := f.svc.ProposeSession(ctx, req.ID, SessionProposalAt("09:00"))
			So(err, ShouldBeNil)

			Convey("Then another request of the same pair cannot take the slot", func() {
				other := f.passedRequest(t)
				_, err := f.svc.ProposeSession(ctx, other.ID, SessionProposalAt("09:00"))
				So(errors.Is(err, model.ErrSlotUnavailable), ShouldBeTrue)

				next, err := f.svc.ProposeSession(ctx, other.ID, SessionProposalAt("09:00", "11:00"))
				So(err, ShouldBeNil)
				So(next.Slot, ShouldResemble, saturday("11:00"))
			})

			Convey("Then feedback waits for the session to take place", func() {
				_, err := f.svc.SubmitFeedback(ctx, b.ID, "alex", 4, "")
				So(errors.Is(err, model.ErrIllegalTransition), ShouldBeTrue)
			})

			Convey("Then cancelling the request releases the slot", func() {
				got, err := f.svc.CancelBooking(ctx, b.ID, "alex")
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, model.StateCancelled)

				released, _ := f.svc.Scheduler().Get(ctx, b.ID)
				So(released.Status, ShouldEqual, model.BookingCancelled)

				other := f.passedRequest(t)
				again, err := f.svc.ProposeSession(ctx, other.ID, SessionProposalAt("09:00"))
				So(err, ShouldBeNil)
				So(again.Slot, ShouldResemble, saturday("09:00"))
			})

			Convey("Then an outsider cannot cancel it", func() {
				_, err := f.svc.CancelBooking(ctx, b.ID, "maria")
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
				_, err = f.svc.CancelRequest(ctx, req.ID, "maria")
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			})

			Convey("Then an attended session can no longer be cancelled", func() {
				got, err := f.svc.MarkAttended(ctx, b.ID, "priya")
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, model.StateCompleted)

				_, err = f.svc.CancelRequest(ctx, req.ID, "alex")
				So(errors.Is(err, model.ErrIllegalTransition), ShouldBeTrue)
				_, err = f.svc.MarkAttended(ctx, b.ID, "priya")
				So(errors.Is(err, model.ErrIllegalTransition), ShouldBeTrue)
			})
		})
	})
}

func TestFeedbackValidation(t *testing.T) {
	Convey("Given a completed session", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		req := f.passedRequest(t)
		b, err := f.svc.ProposeSession(ctx, req.ID, SessionProposalAt("09:00"))
		So(err, ShouldBeNil)
		_, err = f.svc.MarkAttended(ctx, b.ID, "alex")
		So(err, ShouldBeNil)

		Convey("Then stars outside 1..5 are rejected", func() {
			for _, stars := range []int{0, 6, -1} {
				_, err := f.svc.SubmitFeedback(ctx, b.ID, "alex", stars, "")
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			}
			So(f.svc.Feedback(ctx, b.ID), ShouldBeEmpty)
		})

		Convey("Then an outsider cannot rate the session", func() {
			_, err := f.svc.SubmitFeedback(ctx, b.ID, "maria", 5, "")
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Then ratings move the partner's running average", func() {
			e, err := f.svc.SubmitFeedback(ctx, b.ID, "priya", 3, "ok")
			So(err, ShouldBeNil)
			So(e.RatedID, ShouldEqual, "alex")

			st, _ := f.svc.GetStats(ctx, "alex")
			So(st.AverageRating, ShouldEqual, 3.0)
			st, _ = f.svc.GetStats(ctx, "priya")
			So(st.AverageRating, ShouldEqual, model.DefaultRating)
			So(st.ReviewsGivenCount, ShouldEqual, 1)
		})

		Convey("Then stats for an unknown user fail", func() {
			_, err := f.svc.GetStats(ctx, "ghost")
			So(errors.Is(err, model.ErrUnknownProfile), ShouldBeTrue)
		})
	})
}

func TestSearch(t *testing.T) {
	Convey("Given the seeded directory", t, func() {
		f := newFixture(t)
		ctx := context.Background()

		Convey("When searching for a skill", func() {
			out, err := f.svc.SearchPartners(ctx, "PYTHON")
			So(err, ShouldBeNil)

			Convey("Then offers and wishes both match, ordered by name at equal rating", func() {
				ids := make([]string, len(out))
				for i, p := range out {
					ids[i] = p.UserID
				}
				So(ids, ShouldResemble, []string{"alex", "maria", "priya"})
			})
		})

		Convey("When a partner has a higher rating", func() {
			_, err := f.dir.UpdateRating(ctx, "priya", func(float64, int) (float64, int) { return 4.0, 1 })
			So(err, ShouldBeNil)
			_, err = f.dir.UpdateRating(ctx, "alex", func(float64, int) (float64, int) { return 3.0, 1 })
			So(err, ShouldBeNil)

			out, _ := f.svc.SearchPartners(ctx, "python")
			So(out[0].UserID, ShouldEqual, "maria")
			So(out[1].UserID, ShouldEqual, "priya")
			So(out[2].UserID, ShouldEqual, "alex")
		})

		Convey("When the query matches nothing", func() {
			out, err := f.svc.SearchPartners(ctx, "underwater basket weaving")
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})

		Convey("When suggesting skills from a partial term", func() {
			out, err := f.svc.SuggestSkills(ctx, "pyth", 3)
			So(err, ShouldBeNil)
			So(out, ShouldNotBeEmpty)
			So(out[0], ShouldEqual, "Python")

			none, _ := f.svc.SuggestSkills(ctx, "", 3)
			So(none, ShouldBeEmpty)
		})
	})
}

func TestNotifications(t *testing.T) {
	Convey("Given an engine that was stopped", t, func() {
		f := newFixture(t)
		ctx := context.Background()
		req, err := f.svc.SendRequest(ctx, "alex", "priya", "JavaScript", "Python")
		So(err, ShouldBeNil)
		So(f.svc.Ready(ctx), ShouldBeNil)
		So(f.svc.Stop(ctx), ShouldBeNil)
		So(f.svc.Ready(ctx), ShouldNotBeNil)

		Convey("Then the queued notification was delivered before shutdown", func() {
			notes := f.inbox.forRequest(req.ID)
			So(len(notes), ShouldEqual, 1)
			So(notes[0].Event, ShouldEqual, model.EventCreated)
			So(notes[0].Actor, ShouldEqual, "alex")
		})

		Convey("Then later transitions still succeed but are not delivered", func() {
			_, err := f.svc.RespondToRequest(ctx, req.ID, "priya", model.DecisionAccept)
			So(err, ShouldBeNil)
			So(len(f.inbox.forRequest(req.ID)), ShouldEqual, 1)
		})

		Convey("Then it refuses to start again", func() {
			So(errors.Is(f.svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
			So(f.svc.Ready(ctx), ShouldNotBeNil)
		})
	})

	Convey("Given the split policy option", t, func() {
		f := newFixture(t, service.WithBookingPolicy(service.PolicySplit))
		So(f.svc.Policy(), ShouldEqual, service.PolicySplit)
	})
}
