// Package geom holds the planar and spatial geometry used by the track
// finding criteria: circles through three points, turning angles and
// azimuth wrapping.
package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidParameter is returned when the inputs describe degenerate
// geometry, e.g. collinear points for a circle or a zero-length direction.
var ErrInvalidParameter = errors.New("geom: invalid parameter")

// RadToDeg converts radians to degrees.
const RadToDeg = 180 / math.Pi

// collinearTolerance bounds |sin| of the angle at the first point below
// which three points are treated as collinear.
const collinearTolerance = 1e-9

// Circle is a circle in the xy plane.
type Circle struct {
	Center r2.Vec
	Radius float64
}

// CircleThrough returns the circle passing through a, b and c.
// Coincident or collinear points yield ErrInvalidParameter.
func CircleThrough(a, b, c r2.Vec) (Circle, error) {
	u := r2.Sub(b, a)
	v := r2.Sub(c, a)
	nu := r2.Norm(u)
	nv := r2.Norm(v)
	if nu == 0 || nv == 0 {
		return Circle{}, ErrInvalidParameter
	}
	cross := r2.Cross(u, v)
	if math.Abs(cross) <= collinearTolerance*nu*nv {
		return Circle{}, ErrInvalidParameter
	}

	d := 2 * cross
	u2 := r2.Norm2(u)
	v2 := r2.Norm2(v)
	off := r2.Vec{
		X: (v.Y*u2 - u.Y*v2) / d,
		Y: (u.X*v2 - v.X*u2) / d,
	}
	return Circle{Center: r2.Add(a, off), Radius: r2.Norm(off)}, nil
}

// Phi returns the azimuth of p as seen from the circle centre.
func (c Circle) Phi(p r2.Vec) float64 {
	d := r2.Sub(p, c.Center)
	return math.Atan2(d.Y, d.X)
}

// PointAt returns the point on the circle at azimuth phi about the centre.
func (c Circle) PointAt(phi float64) r2.Vec {
	return r2.Vec{
		X: c.Center.X + c.Radius*math.Cos(phi),
		Y: c.Center.Y + c.Radius*math.Sin(phi),
	}
}

// DistanceToOrigin returns the shortest distance from (0,0) to the circle.
func (c Circle) DistanceToOrigin() float64 {
	return math.Abs(r2.Norm(c.Center) - c.Radius)
}

// XY projects a 3D point onto the xy plane.
func XY(p r3.Vec) r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// WrapPhi maps an angle difference into (-π, π].
func WrapPhi(d float64) float64 {
	d = math.Mod(d, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// Angle2D returns the unsigned angle between u and v in radians.
func Angle2D(u, v r2.Vec) (float64, error) {
	if r2.Norm(u) == 0 || r2.Norm(v) == 0 {
		return 0, ErrInvalidParameter
	}
	return math.Abs(math.Atan2(r2.Cross(u, v), r2.Dot(u, v))), nil
}

// SignedAngle2D returns the angle that rotates u onto v, counter-clockwise
// positive, in (-π, π].
func SignedAngle2D(u, v r2.Vec) (float64, error) {
	if r2.Norm(u) == 0 || r2.Norm(v) == 0 {
		return 0, ErrInvalidParameter
	}
	return math.Atan2(r2.Cross(u, v), r2.Dot(u, v)), nil
}

// Angle3D returns the angle between u and v in radians.
func Angle3D(u, v r3.Vec) (float64, error) {
	if r3.Norm(u) == 0 || r3.Norm(v) == 0 {
		return 0, ErrInvalidParameter
	}
	return math.Atan2(r3.Norm(r3.Cross(u, v)), r3.Dot(u, v)), nil
}
