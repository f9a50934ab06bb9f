package atomic_float

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAtomicAdd(t *testing.T) {
	Convey("When AtomicAdd is called", t, func() {
		Convey("When multiple writers add to the float value concurrently", func() {
			f64 := NewAtomicFloat64(0.0)
			num_ops := 3000
			num_writers := 50

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(num_writers)
			adder := func() {
				<-start
				for i := 0; i < num_ops; i++ {
					for succeeded := false; !succeeded; _, succeeded = f64.AtomicAdd(1.0) {
					}
				}
				wg.Done()
			}

			for i := 0; i < num_writers; i++ {
				go adder()
			}

			// Wait for goroutines to begin
			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(f64.AtomicRead(), ShouldEqual, float64(num_ops*num_writers))
		})

		Convey("When multiple writers increment and decrement the float value concurrently", func() {
			f64 := NewAtomicFloat64(0.0)
			num_ops := 3000
			num_writers := 50

			start := make(chan struct{})
			wg := sync.WaitGroup{}
			wg.Add(num_writers * 2)
			addN := func(addend float64) {
				<-start
				for i := 0; i < num_ops; i++ {
					for succeeded := false; !succeeded; _, succeeded = f64.AtomicAdd(addend) {
					}
				}
				wg.Done()
			}

			for i := 0; i < num_writers; i++ {
				go addN(1.0)
				go addN(-1.0)
			}

			time.Sleep(time.Millisecond * 10)
			close(start)
			wg.Wait()
			So(f64.AtomicRead(), ShouldEqual, float64(0.0))
		})
	})
}

func TestAtomicSet(t *testing.T) {
	Convey("Given a float holding 0.2", t, func() {
		f64 := NewAtomicFloat64(0.2)

		Convey("AtomicSet succeeds when the expected value matches", func() {
			So(f64.AtomicSet(0.2, 0.7), ShouldBeTrue)
			So(f64.AtomicRead(), ShouldEqual, 0.7)
		})

		Convey("AtomicSet fails and leaves the value when it does not", func() {
			So(f64.AtomicSet(0.5, 0.7), ShouldBeFalse)
			So(f64.AtomicRead(), ShouldEqual, 0.2)
		})

		Convey("AtomicStore always wins", func() {
			f64.AtomicStore(0.9)
			So(f64.AtomicRead(), ShouldEqual, 0.9)
		})
	})
}
