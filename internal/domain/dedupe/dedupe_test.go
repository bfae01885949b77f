package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/skillswap/internal/domain/dedupe"
)

func TestDeduper(t *testing.T) {
	Convey("Given a new deduper", t, func() {
		d := dedupe.New()
		ctx := context.Background()

		Convey("When a notification id is recorded once", func() {
			seen := d.SeenAndRecord(ctx, "n-1")

			Convey("Then it is new and the second delivery is a duplicate", func() {
				So(seen, ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "n-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded id is unrecorded", func() {
			d.SeenAndRecord(ctx, "n-1")
			d.Unrecord(ctx, "n-1")
			d.Unrecord(ctx, "never-seen")

			Convey("Then it can be delivered again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "n-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a deduper bounded to three ids", t, func() {
		d := dedupe.New(dedupe.WithMaxSize(3))
		ctx := context.Background()
		for _, id := range []string{"n-1", "n-2", "n-3", "n-4"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("Then the oldest id was evicted and the rest are remembered", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "n-4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "n-2"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "n-1"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.New(dedupe.WithMaxSize(0))
		ctx := context.Background()
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("n-%d", i))
		}

		Convey("Then nothing is evicted", func() {
			So(d.Size(), ShouldEqual, 1000)
			So(d.SeenAndRecord(ctx, "n-0"), ShouldBeTrue)
		})
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given workers racing on the same ids", t, func() {
		d := dedupe.New(dedupe.WithMaxSize(1000))
		ctx := context.Background()
		const workers, ids = 8, 100

		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < ids; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("n-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then every id is delivered exactly once", func() {
			So(fresh, ShouldEqual, ids)
			So(d.Size(), ShouldEqual, ids)
		})
	})
}
