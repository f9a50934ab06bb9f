package models

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPoint(t *testing.T) {
	Convey("Given a point", t, func() {
		p := Point{Row: 3, Col: 5}

		Convey("Move returns the naive neighbour", func() {
			So(p.Move(Up), ShouldResemble, Point{2, 5})
			So(p.Move(Right), ShouldResemble, Point{3, 6})
			So(p.Move(Down), ShouldResemble, Point{4, 5})
			So(p.Move(Left), ShouldResemble, Point{3, 4})
			So(Point{}.Move(Up), ShouldResemble, Point{-1, 0})
		})

		Convey("An unknown action stays put", func() {
			So(p.Move(Action(9)), ShouldResemble, p)
		})

		Convey("Manhattan is symmetric", func() {
			q := Point{Row: 0, Col: 9}
			So(p.Manhattan(q), ShouldEqual, 7)
			So(q.Manhattan(p), ShouldEqual, 7)
			So(p.Manhattan(p), ShouldEqual, 0)
		})
	})

	Convey("Directions are in tie-break order", t, func() {
		So(Directions, ShouldResemble, []Action{Up, Right, Down, Left})
		So(len(Directions), ShouldEqual, NUM_DIRECTIONS)
	})
}
