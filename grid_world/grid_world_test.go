package grid_world

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"rlsim/models"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConvert(t *testing.T) {
	Convey("When converting layouts", t, func() {
		Convey("Valid layouts convert to grids of the same shape", func() {
			grid, err := Convert(CliffLayout)
			So(err, ShouldBeNil)
			rows, cols := grid.Dims()
			So(rows, ShouldEqual, 4)
			So(cols, ShouldEqual, 12)
			So(grid.NumStates(), ShouldEqual, 48)
			So(grid.NumActions(), ShouldEqual, models.NUM_DIRECTIONS)
			So(grid.Layout(), ShouldResemble, CliffLayout)
		})

		Convey("Empty layouts are rejected", func() {
			_, err := Convert(nil)
			So(err, ShouldEqual, ErrEmptyLayout)
			_, err = Convert([]string{""})
			So(err, ShouldEqual, ErrEmptyLayout)
		})

		Convey("Ragged layouts are rejected", func() {
			_, err := Convert([]string{"ooo", "oo"})
			So(errors.Is(err, ErrRaggedLayout), ShouldBeTrue)
		})

		Convey("Unknown cell runes are rejected", func() {
			_, err := Convert([]string{"ooo", "o?o"})
			So(errors.Is(err, ErrUnknownCell), ShouldBeTrue)
		})

		Convey("MustConvert panics on bad layouts", func() {
			So(func() { MustConvert([]string{"o", "oo"}) }, ShouldPanic)
			So(func() { MustConvert(ValueLayout) }, ShouldNotPanic)
		})
	})

	Convey("Given a grid", t, func() {
		grid := MustConvert([]string{
			"ooo",
			"oWo",
			"ooo",
		})

		Convey("StateOf and PointOf are inverses in row-major order", func() {
			for s := 0; s < grid.NumStates(); s++ {
				So(grid.StateOf(grid.PointOf(models.State(s))), ShouldEqual, models.State(s))
			}
			So(grid.StateOf(models.Point{Row: 1, Col: 2}), ShouldEqual, models.State(5))
		})

		Convey("Moves off the grid stay in place", func() {
			corner := models.Point{Row: 0, Col: 0}
			So(grid.Successor(corner, models.Up), ShouldResemble, corner)
			So(grid.Successor(corner, models.Left), ShouldResemble, corner)
			So(grid.Successor(corner, models.Right), ShouldResemble, models.Point{Row: 0, Col: 1})
		})

		Convey("Moves into walls stay in place", func() {
			p := models.Point{Row: 0, Col: 1}
			So(grid.Successor(p, models.Down), ShouldResemble, p)
		})

		Convey("Visit covers every cell in state order", func() {
			visited := []models.State{}
			grid.Visit(func(p models.Point, _ rune) {
				visited = append(visited, grid.StateOf(p))
			})
			So(len(visited), ShouldEqual, 9)
			for i, s := range visited {
				So(s, ShouldEqual, models.State(i))
			}
		})
	})
}

func TestCliff(t *testing.T) {
	Convey("Given the cliff", t, func() {
		cliff, err := NewCliff(CliffLayout)
		So(err, ShouldBeNil)
		start := cliff.Reset()
		So(cliff.PointOf(start), ShouldResemble, models.Point{Row: 3, Col: 0})

		Convey("Stepping into the cliff costs 100 and ends the episode", func() {
			successor, reward, done := cliff.Step(start, models.Right)
			So(reward, ShouldEqual, float64(CLIFF_REWARD))
			So(done, ShouldBeTrue)
			So(cliff.PointOf(successor), ShouldResemble, models.Point{Row: 3, Col: 1})
		})

		Convey("Ordinary moves cost 1", func() {
			successor, reward, done := cliff.Step(start, models.Up)
			So(reward, ShouldEqual, float64(STEP_REWARD))
			So(done, ShouldBeFalse)
			So(cliff.PointOf(successor), ShouldResemble, models.Point{Row: 2, Col: 0})
		})

		Convey("Moves off the grid cost 1 and stay in place", func() {
			successor, reward, done := cliff.Step(start, models.Down)
			So(successor, ShouldEqual, start)
			So(reward, ShouldEqual, float64(STEP_REWARD))
			So(done, ShouldBeFalse)
		})

		Convey("Reaching the goal pays 10 and ends the episode", func() {
			aboveGoal := cliff.StateOf(models.Point{Row: 2, Col: 11})
			successor, reward, done := cliff.Step(aboveGoal, models.Down)
			So(reward, ShouldEqual, float64(CLIFF_GOAL_REWARD))
			So(done, ShouldBeTrue)
			So(cliff.PointOf(successor), ShouldResemble, models.Point{Row: 3, Col: 11})
		})
	})

	Convey("Layouts without a start or a goal are rejected", t, func() {
		_, err := NewCliff([]string{"oo+"})
		So(err, ShouldEqual, ErrNoStart)
		_, err = NewCliff([]string{"-oo"})
		So(err, ShouldEqual, ErrNoGoal)
	})
}

func TestValueGrid(t *testing.T) {
	Convey("Given the value grid", t, func() {
		vg, err := NewValueGrid(ValueLayout)
		So(err, ShouldBeNil)
		at := func(row, col int) models.State {
			return vg.StateOf(models.Point{Row: row, Col: col})
		}

		Convey("Hazards and the prize are terminal with their rewards", func() {
			for _, s := range []models.State{at(2, 2), at(2, 3), at(3, 2)} {
				So(vg.IsTerminal(s), ShouldBeTrue)
				So(vg.Reward(s), ShouldEqual, float64(HAZARD_REWARD))
			}
			So(vg.IsTerminal(at(1, 8)), ShouldBeTrue)
			So(vg.Reward(at(1, 8)), ShouldEqual, float64(PRIZE_REWARD))
		})

		Convey("Walls are blocked and bounce the agent", func() {
			for col := 4; col <= 6; col++ {
				So(vg.IsBlocked(at(5, col)), ShouldBeTrue)
			}
			successor, reward, done := vg.Step(at(4, 5), models.Down)
			So(successor, ShouldEqual, at(4, 5))
			So(reward, ShouldEqual, 0.0)
			So(done, ShouldBeFalse)
		})

		Convey("The reward is that of the destination cell", func() {
			successor, reward, done := vg.Step(at(1, 7), models.Right)
			So(successor, ShouldEqual, at(1, 8))
			So(reward, ShouldEqual, float64(PRIZE_REWARD))
			So(done, ShouldBeTrue)
		})
	})
}

func TestParking(t *testing.T) {
	Convey("Given the parking lot", t, func() {
		newParking := func(mode RewardMode) *Parking {
			pk, err := NewParking(ParkingLayout, mode)
			So(err, ShouldBeNil)
			return pk
		}

		Convey("The start and goal are where the layout puts them", func() {
			pk := newParking(Sparse)
			So(pk.PointOf(pk.Reset()), ShouldResemble, models.Point{Row: 0, Col: 0})
			So(pk.Goal(), ShouldResemble, models.Point{Row: 15, Col: 15})
			So(pk.Mode(), ShouldEqual, Sparse)
		})

		Convey("Sparse costs 1 per step in any direction", func() {
			pk := newParking(Sparse)
			_, reward, done := pk.Step(pk.Reset(), models.Right)
			So(reward, ShouldEqual, -1.0)
			So(done, ShouldBeFalse)
			_, reward, _ = pk.Step(pk.Reset(), models.Up)
			So(reward, ShouldEqual, -1.0)
		})

		Convey("Dense pays only for strictly approaching the goal", func() {
			pk := newParking(Dense)
			start := pk.Reset()
			_, reward, _ := pk.Step(start, models.Down)
			So(reward, ShouldEqual, 1.0)
			_, reward, _ = pk.Step(start, models.Right)
			So(reward, ShouldEqual, 1.0)
			// Bumping into the edge does not close the distance.
			_, reward, _ = pk.Step(start, models.Up)
			So(reward, ShouldEqual, -1.0)
			far := pk.StateOf(models.Point{Row: 10, Col: 10})
			_, reward, _ = pk.Step(far, models.Left)
			So(reward, ShouldEqual, -1.0)
		})

		Convey("Bad pays for every step", func() {
			pk := newParking(Bad)
			_, reward, done := pk.Step(pk.Reset(), models.Up)
			So(reward, ShouldEqual, 1.0)
			So(done, ShouldBeFalse)
		})

		Convey("Reaching the goal pays 100 and ends the episode in every mode", func() {
			for _, mode := range RewardModes {
				pk := newParking(mode)
				nextToGoal := pk.StateOf(models.Point{Row: 15, Col: 14})
				successor, reward, done := pk.Step(nextToGoal, models.Right)
				So(pk.PointOf(successor), ShouldResemble, pk.Goal())
				So(reward, ShouldEqual, float64(PARKING_GOAL_REWARD))
				So(done, ShouldBeTrue)
			}
		})

		Convey("Unknown reward modes are rejected", func() {
			_, err := ParseRewardMode("shaped")
			So(errors.Is(err, ErrUnknownRewardMode), ShouldBeTrue)
			_, err = NewParking(ParkingLayout, RewardMode("shaped"))
			So(errors.Is(err, ErrUnknownRewardMode), ShouldBeTrue)
			mode, err := ParseRewardMode("dense")
			So(err, ShouldBeNil)
			So(mode, ShouldEqual, Dense)
		})
	})
}

func TestConsole(t *testing.T) {
	Convey("Given a small grid", t, func() {
		grid := MustConvert([]string{
			"-o",
			"W+",
		})
		buf := &bytes.Buffer{}

		Convey("ShowGrid prints the layout", func() {
			ShowGrid(buf, grid)
			So(buf.String(), ShouldEqual, "- o \nW + \n")
		})

		Convey("ShowValues skips walls in the total", func() {
			ShowValues(buf, grid, []float64{1, 2, 100, 3})
			So(buf.String(), ShouldContainSubstring, "#")
			So(buf.String(), ShouldEndWith, "Total: 6.00\n")
		})

		Convey("ShowPolicy prints greedy arrows for open cells", func() {
			qvalues := [][]float64{
				{0, 1, 1, 0},
				{0, 0, 5, 0},
				{0, 0, 0, 0},
				{0, 0, 0, 0},
			}
			ShowPolicy(buf, grid, qvalues)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			So(lines[0], ShouldEqual, "> v ")
			So(strings.TrimSpace(lines[1]), ShouldEqual, "W +")
		})

		Convey("MaxValues reduces rows to their max", func() {
			So(MaxValues([][]float64{{1, 3, 2}, {-1, -2}}), ShouldResemble, []float64{3, -1})
		})
	})
}
