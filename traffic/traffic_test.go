package traffic

import (
	"testing"

	"rlsim/models"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
)

func TestGetState(t *testing.T) {
	Convey("The state is which road is heavier", t, func() {
		for h := 0; h < 5; h++ {
			for v := 0; v < 5; v++ {
				switch {
				case h > v:
					So(GetState(h, v), ShouldEqual, HorizontalHeavy)
				case v > h:
					So(GetState(h, v), ShouldEqual, VerticalHeavy)
				default:
					So(GetState(h, v), ShouldEqual, Balanced)
				}
			}
		}
	})
}

func TestIntersection(t *testing.T) {
	Convey("Given an intersection", t, func() {
		src := rand.NewSource(7)

		Convey("Reset empties the queues and favors horizontal", func() {
			in := NewIntersection(DefaultArrivalProb, src)
			in.Queues = [2]int{3, 4}
			in.Favored = FavorVertical
			in.CarsPassed = 9
			So(in.Reset(), ShouldEqual, Balanced)
			So(in.Queues, ShouldResemble, [2]int{0, 0})
			So(in.Favored, ShouldEqual, FavorHorizontal)
			So(in.CarsPassed, ShouldEqual, 0)
			So(in.NumStates(), ShouldEqual, NUM_STATES)
			So(in.NumActions(), ShouldEqual, NUM_ACTIONS)
		})

		Convey("Cars always arrive with probability one", func() {
			in := NewIntersection(1, src)
			in.Arrive()
			in.Arrive()
			So(in.Queues, ShouldResemble, [2]int{2, 2})
		})

		Convey("Cars never arrive with probability zero", func() {
			in := NewIntersection(0, src)
			for i := 0; i < 100; i++ {
				in.Arrive()
			}
			So(in.Queues, ShouldResemble, [2]int{0, 0})
		})

		Convey("Arrivals follow the arrival probability", func() {
			in := NewIntersection(DefaultArrivalProb, src)
			n := 10000
			for i := 0; i < n; i++ {
				in.Arrive()
			}
			for _, q := range in.Queues {
				So(float64(q)/float64(n), ShouldAlmostEqual, DefaultArrivalProb, 0.03)
			}
		})

		Convey("Step sets the signal and penalizes the total queue", func() {
			in := NewIntersection(DefaultArrivalProb, src)
			in.Queues = [2]int{1, 4}
			successor, reward, done := in.Step(in.State(), FavorVertical)
			So(in.Favored, ShouldEqual, FavorVertical)
			So(successor, ShouldEqual, VerticalHeavy)
			So(reward, ShouldEqual, -5.0)
			So(done, ShouldBeFalse)
			// The queues are untouched until drained.
			So(in.Queues, ShouldResemble, [2]int{1, 4})
		})

		Convey("Drain lets one car through the favored road only", func() {
			in := NewIntersection(DefaultArrivalProb, src)
			in.Queues = [2]int{1, 2}
			in.Favored = FavorHorizontal
			So(in.Drain(), ShouldBeTrue)
			So(in.Drain(), ShouldBeFalse)
			So(in.Queues, ShouldResemble, [2]int{0, 2})
			So(in.CarsPassed, ShouldEqual, 1)

			in.Step(in.State(), models.Action(Vertical))
			So(in.Drain(), ShouldBeTrue)
			So(in.Queues, ShouldResemble, [2]int{0, 1})
			So(in.CarsPassed, ShouldEqual, 2)
		})
	})
}
