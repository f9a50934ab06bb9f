package cell_views

import (
	"testing"

	"rlsim/models"
	"rlsim/simulation"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConvert(t *testing.T) {
	Convey("Given a grid snapshot with Q-values", t, func() {
		state := simulation.EngineState{
			Kind:   simulation.Cliff,
			Rows:   2,
			Cols:   2,
			Layout: []string{"oo", "-+"},
			Agent:  &models.Point{Row: 1, Col: 0},
			QValues: [][]float64{
				{0, 0, 0, 0},
				{1, 2, 3, 3},
				{-1, 4, -1, -1},
				{0, 0, 0, 0},
			},
		}
		board := Convert(state)

		Convey("Every cell is converted with its kind and best value", func() {
			So(len(board.Cells), ShouldEqual, 2)
			So(len(board.Cells[0]), ShouldEqual, 2)
			So(board.Cells[1][0].Kind, ShouldEqual, "-")
			So(board.Cells[0][1].Max, ShouldEqual, 3.0)
			So(board.Agent, ShouldResemble, state.Agent)
			So(board.Signal, ShouldBeNil)
		})

		Convey("Open cells carry their greedy action, lowest index on ties", func() {
			So(board.Cells[0][0].Greedy, ShouldEqual, int(models.Up))
			So(board.Cells[0][1].Greedy, ShouldEqual, int(models.Down))
			So(board.Cells[0][1].Arrow, ShouldEqual, "v")
			So(board.Cells[1][0].Greedy, ShouldEqual, int(models.Right))
		})

		Convey("Terminal cells carry none", func() {
			So(board.Cells[1][1].Greedy, ShouldEqual, NoAction)
			So(board.Cells[1][1].Arrow, ShouldEqual, "")
		})
	})

	Convey("Given a value-iteration snapshot", t, func() {
		board := Convert(simulation.EngineState{
			Kind:       simulation.GridValue,
			Rows:       1,
			Cols:       3,
			Layout:     []string{"oW$"},
			Values:     []float64{9, 0, 10},
			SweepDelta: 0.5,
		})

		So(board.Cells[0][0].Max, ShouldEqual, 9.0)
		So(board.Cells[0][0].Greedy, ShouldEqual, NoAction)
		So(board.Cells[0][2].Max, ShouldEqual, 10.0)
		So(board.SweepDelta, ShouldEqual, 0.5)
	})

	Convey("Given a traffic snapshot", t, func() {
		board := Convert(simulation.EngineState{
			Kind:    simulation.Traffic,
			QValues: [][]float64{{-1, -2}, {-3, -1}, {0, 0}},
			Traffic: &simulation.TrafficState{
				Queues:     [2]int{2, 5},
				Favored:    1,
				CarsPassed: 7,
			},
		})

		So(board.Cells, ShouldBeNil)
		So(board.Signal, ShouldNotBeNil)
		So(board.Signal.Queues, ShouldResemble, [2]int{2, 5})
		So(board.Signal.Favored, ShouldEqual, 1)
		So(board.Signal.CarsPassed, ShouldEqual, 7)
		So(board.Signal.Greedy, ShouldResemble, []int{0, 1, 0})
	})
}
