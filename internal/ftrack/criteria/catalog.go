package criteria

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/ftrack/internal/ftrack/geom"
	"github.com/banshee-data/ftrack/internal/units"
)

// Catalog names.
const (
	RZRatio            = "Crit2_RZRatio"
	StraightTrackRatio = "Crit2_StraightTrackRatio"
	DeltaPhi           = "Crit2_DeltaPhi"
	HelixWithIP        = "Crit2_HelixWithIP"
	DeltaRho           = "Crit2_DeltaRho"

	ChangeRZRatio = "Crit3_ChangeRZRatio"
	PT            = "Crit3_PT"
	Angle2D       = "Crit3_2DAngle"
	Angle3D       = "Crit3_3DAngle"
	IPCircleDist  = "Crit3_IPCircleDist"

	AngleChange2D       = "Crit4_2DAngleChange"
	AngleChange3D       = "Crit4_3DAngleChange"
	DistToExtrapolation = "Crit4_DistToExtrapolation"
	PhiZRatioChange     = "Crit4_PhiZRatioChange"
	DistOfCircleCenters = "Crit4_DistOfCircleCenters"
	NoZigZag            = "Crit4_NoZigZag"
	RChange             = "Crit4_RChange"
)

func (p points) xy(i int) r2.Vec { return r2.Vec{X: p.h[i].X, Y: p.h[i].Y} }
func (p points) xyz(i int) r3.Vec { return p.h[i].Vec() }

// step2 and step3 return the displacement from hit i to hit i+1.
func (p points) step2(i int) r2.Vec { return r2.Sub(p.xy(i+1), p.xy(i)) }
func (p points) step3(i int) r3.Vec { return r3.Sub(p.xyz(i+1), p.xyz(i)) }

func (p points) circle(i int) (geom.Circle, error) {
	return geom.CircleThrough(p.xy(i), p.xy(i+1), p.xy(i+2))
}

// rzRatio is the 3D step length from hit i to i+1 over its z extent.
func (p points) rzRatio(i int) (float64, error) {
	dz := math.Abs(p.h[i+1].Z - p.h[i].Z)
	if dz == 0 {
		return 0, geom.ErrInvalidParameter
	}
	return r3.Norm(p.step3(i)) / dz, nil
}

func measureRZRatio(p points) (float64, error) { return p.rzRatio(0) }

func measureStraightTrackRatio(p points) (float64, error) {
	a, b := p.h[0], p.h[1]
	rhoB := b.Rho()
	if a.Z == 0 || b.Z == 0 || rhoB == 0 {
		return 0, geom.ErrInvalidParameter
	}
	return (a.Rho() / a.Z) / (rhoB / b.Z), nil
}

func measureDeltaPhi(p points) (float64, error) {
	return math.Abs(geom.WrapPhi(p.h[1].Phi()-p.h[0].Phi())) * geom.RadToDeg, nil
}

// measureHelixWithIP compares the azimuth advance per unit z from the IP to
// the first hit with the advance from the first hit to the second, all
// measured about the circle through the IP and both hits.
func measureHelixWithIP(p points) (float64, error) {
	ip := r2.Vec{}
	c, err := geom.CircleThrough(ip, p.xy(0), p.xy(1))
	if err != nil {
		return 0, err
	}
	a, b := p.h[0], p.h[1]
	dzA := math.Abs(a.Z)
	dzAB := math.Abs(b.Z - a.Z)
	alpha := math.Abs(geom.WrapPhi(c.Phi(p.xy(0)) - c.Phi(ip)))
	beta := math.Abs(geom.WrapPhi(c.Phi(p.xy(1)) - c.Phi(p.xy(0))))
	if dzA == 0 || dzAB == 0 || beta == 0 {
		return 0, geom.ErrInvalidParameter
	}
	return (alpha / dzA) / (beta / dzAB), nil
}

func measureDeltaRho(p points) (float64, error) {
	return p.h[1].Rho() - p.h[0].Rho(), nil
}

func measureChangeRZRatio(p points) (float64, error) {
	parent, err := p.rzRatio(0)
	if err != nil {
		return 0, err
	}
	child, err := p.rzRatio(1)
	if err != nil {
		return 0, err
	}
	return child / parent, nil
}

func measurePT(bz float64) measureFunc {
	return func(p points) (float64, error) {
		c, err := p.circle(0)
		if err != nil {
			return 0, err
		}
		return units.PtFromRadius(c.Radius, bz), nil
	}
}

func measureAngle2D(p points) (float64, error) {
	a, err := geom.Angle2D(p.step2(0), p.step2(1))
	return a * geom.RadToDeg, err
}

func measureAngle3D(p points) (float64, error) {
	a, err := geom.Angle3D(p.step3(0), p.step3(1))
	return a * geom.RadToDeg, err
}

func measureIPCircleDist(p points) (float64, error) {
	c, err := p.circle(0)
	if err != nil {
		return 0, err
	}
	return c.DistanceToOrigin(), nil
}

func measureAngleChange2D(p points) (float64, error) {
	parent, err := geom.Angle2D(p.step2(0), p.step2(1))
	if err != nil {
		return 0, err
	}
	child, err := geom.Angle2D(p.step2(1), p.step2(2))
	if err != nil {
		return 0, err
	}
	if parent == 0 {
		return 0, geom.ErrInvalidParameter
	}
	return child / parent, nil
}

func measureAngleChange3D(p points) (float64, error) {
	parent, err := geom.Angle3D(p.step3(0), p.step3(1))
	if err != nil {
		return 0, err
	}
	child, err := geom.Angle3D(p.step3(1), p.step3(2))
	if err != nil {
		return 0, err
	}
	if parent == 0 {
		return 0, geom.ErrInvalidParameter
	}
	return child / parent, nil
}

// measureDistToExtrapolation fits a circle through the parent's three hits,
// advances the azimuth from the last parent hit in proportion to the z gap to
// the child's outer hit, and returns the planar miss distance per unit z.
func measureDistToExtrapolation(p points) (float64, error) {
	c, err := p.circle(0)
	if err != nil {
		return 0, err
	}
	b, cc, d := p.h[1], p.h[2], p.h[3]
	zParent := math.Abs(cc.Z - b.Z)
	zChild := math.Abs(d.Z - cc.Z)
	if zParent == 0 || zChild == 0 {
		return 0, geom.ErrInvalidParameter
	}

	phiC := c.Phi(p.xy(2))
	dPhiParent := geom.WrapPhi(phiC - c.Phi(p.xy(1)))
	predicted := c.PointAt(phiC + dPhiParent*zChild/zParent)

	return r2.Norm(r2.Sub(predicted, p.xy(3))) / zChild, nil
}

// phiZRate is the azimuth advance about c from hit i to hit i+1 per unit z.
func (p points) phiZRate(c geom.Circle, i int) (float64, error) {
	dz := math.Abs(p.h[i+1].Z - p.h[i].Z)
	if dz == 0 {
		return 0, geom.ErrInvalidParameter
	}
	return geom.WrapPhi(c.Phi(p.xy(i+1))-c.Phi(p.xy(i))) / dz, nil
}

func measurePhiZRatioChange(p points) (float64, error) {
	cp, err := p.circle(0)
	if err != nil {
		return 0, err
	}
	cc, err := p.circle(1)
	if err != nil {
		return 0, err
	}
	parent, err := p.phiZRate(cp, 1)
	if err != nil {
		return 0, err
	}
	child, err := p.phiZRate(cc, 2)
	if err != nil {
		return 0, err
	}
	if parent == 0 {
		return 0, geom.ErrInvalidParameter
	}
	return child / parent, nil
}

func measureDistOfCircleCenters(p points) (float64, error) {
	cp, err := p.circle(0)
	if err != nil {
		return 0, err
	}
	cc, err := p.circle(1)
	if err != nil {
		return 0, err
	}
	return r2.Norm(r2.Sub(cp.Center, cc.Center)), nil
}

// measureNoZigZag multiplies the signed turning angles of parent and child.
// Turning the same way gives a positive product.
func measureNoZigZag(p points) (float64, error) {
	parent, err := geom.SignedAngle2D(p.step2(0), p.step2(1))
	if err != nil {
		return 0, err
	}
	child, err := geom.SignedAngle2D(p.step2(1), p.step2(2))
	if err != nil {
		return 0, err
	}
	return parent * geom.RadToDeg * child * geom.RadToDeg, nil
}

func measureRChange(p points) (float64, error) {
	cp, err := p.circle(0)
	if err != nil {
		return 0, err
	}
	cc, err := p.circle(1)
	if err != nil {
		return 0, err
	}
	return cc.Radius / cp.Radius, nil
}
