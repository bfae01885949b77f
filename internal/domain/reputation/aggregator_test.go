package reputation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/reputation"
	"github.com/okian/skillswap/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type fakeRatings struct {
	mu       sync.Mutex
	profiles map[string]model.SkillProfile
}

func newFakeRatings(ids ...string) *fakeRatings {
	f := &fakeRatings{profiles: make(map[string]model.SkillProfile)}
	for _, id := range ids {
		f.profiles[id] = model.NewSkillProfile(id, id, nil, nil)
	}
	return f
}

func (f *fakeRatings) UpdateRating(_ context.Context, id string, fn func(float64, int) (float64, int)) (model.SkillProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return model.SkillProfile{}, model.NewKind("fake.update_rating", model.ErrNotFound)
	}
	p.Rating, p.RatingCount = fn(p.Rating, p.RatingCount)
	f.profiles[id] = p
	return p, nil
}

func entry(booking, rater, rated string, stars int) model.FeedbackEntry {
	return model.FeedbackEntry{BookingID: booking, RaterID: rater, RatedID: rated, Stars: stars}
}

func TestAggregator_Record(t *testing.T) {
	Convey("Given an unrated profile", t, func() {
		store := newFakeRatings("u1", "u2", "u3")
		agg := reputation.New(store)
		ctx := context.Background()

		Convey("When it receives a 3 and then a 5", func() {
			_, p1, err1 := agg.Record(ctx, entry("b1", "u1", "u2", 3))
			e2, p2, err2 := agg.Record(ctx, entry("b2", "u3", "u2", 5))

			Convey("Then the first rating replaces the default and the second averages", func() {
				So(err1, ShouldBeNil)
				So(p1.Rating, ShouldEqual, 3.0)
				So(p1.RatingCount, ShouldEqual, 1)
				So(err2, ShouldBeNil)
				So(p2.Rating, ShouldEqual, 4.0)
				So(p2.RatingCount, ShouldEqual, 2)
				So(e2.ID, ShouldNotBeEmpty)
				So(e2.SubmittedAt.IsZero(), ShouldBeFalse)
			})

			Convey("Then the log is queryable", func() {
				So(len(agg.ByRated("u2")), ShouldEqual, 2)
				So(len(agg.ByRater("u1")), ShouldEqual, 1)
				So(len(agg.ForBooking("b2")), ShouldEqual, 1)
			})
		})

		Convey("When the same rater rates the same booking twice", func() {
			_, _, err := agg.Record(ctx, entry("b1", "u1", "u2", 4))
			So(err, ShouldBeNil)
			_, _, err = agg.Record(ctx, entry("b1", "u1", "u2", 1))

			Convey("Then the second is a duplicate and the rating is untouched", func() {
				So(errors.Is(err, model.ErrDuplicateFeedback), ShouldBeTrue)
				So(store.profiles["u2"].Rating, ShouldEqual, 4.0)
				So(store.profiles["u2"].RatingCount, ShouldEqual, 1)
			})
		})

		Convey("When stars are out of range", func() {
			_, _, errLow := agg.Record(ctx, entry("b1", "u1", "u2", 0))
			_, _, errHigh := agg.Record(ctx, entry("b1", "u1", "u2", 6))

			Convey("Then both are invalid and nothing is reserved", func() {
				So(errors.Is(errLow, model.ErrInvalidInput), ShouldBeTrue)
				So(errHigh.Error(), ShouldEqual, "reputation.record: invalid input: stars must be 1..5")
				_, _, err := agg.Record(ctx, entry("b1", "u1", "u2", 5))
				So(err, ShouldBeNil)
			})
		})

		Convey("When the rated profile is missing", func() {
			_, _, err := agg.Record(ctx, entry("b1", "u1", "ghost", 5))

			Convey("Then the error surfaces and the pair can be retried", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				So(agg.ByRater("u1"), ShouldBeEmpty)
			})
		})

		Convey("When a user rates themselves", func() {
			_, _, err := agg.Record(ctx, entry("b1", "u1", "u1", 5))
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestAggregator_ConcurrentDuplicates(t *testing.T) {
	Convey("Given many identical submissions racing", t, func() {
		store := newFakeRatings("u1", "u2")
		agg := reputation.New(store)
		ctx := context.Background()

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs []error
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := agg.Record(ctx, entry("b1", "u1", "u2", 5))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}()
		}
		wg.Wait()

		Convey("Then exactly one is applied", func() {
			ok := 0
			for _, err := range errs {
				if err == nil {
					ok++
				} else {
					So(errors.Is(err, model.ErrDuplicateFeedback), ShouldBeTrue)
				}
			}
			So(ok, ShouldEqual, 1)
			So(store.profiles["u2"].RatingCount, ShouldEqual, 1)
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given the running mean", t, func() {
		r, c := reputation.Apply(5.0, 0, 2)
		So(r, ShouldEqual, 2.0)
		So(c, ShouldEqual, 1)
		for i := 0; i < 3; i++ {
			r, c = reputation.Apply(r, c, 5)
		}
		So(fmt.Sprintf("%.2f", r), ShouldEqual, "4.25")
		So(c, ShouldEqual, 4)
	})
}
