package livesearch

import "time"

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock runs callbacks with time.AfterFunc.
type SystemClock struct{}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Point is a pointer position in the host's coordinate space (pixels in a
// browser, cells in a terminal).
type Point struct {
	X, Y int
}

// Rect is the bounding region of the search component. Max is exclusive.
type Rect struct {
	Min, Max Point
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X < r.Max.X && p.Y >= r.Min.Y && p.Y < r.Max.Y
}

// Document delivers pointer-down events from anywhere on the page or screen.
type Document interface {
	// OnPointerDown registers fn and returns a function that removes it.
	OnPointerDown(fn func(Point)) (remove func())
}
