// Package math provides quaternion helpers for MMD motion data.
package math

import (
	"github.com/go-gl/mathgl/mgl32"
)

// QuatFromXYZW converts a rotation stored in file order (x, y, z, w) to a
// quaternion.
func QuatFromXYZW(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

// QuatToXYZW converts a quaternion to file order (x, y, z, w).
func QuatToXYZW(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// Normalize returns q scaled to unit length. Degenerate quaternions become
// the identity.
func Normalize(q mgl32.Quat) mgl32.Quat {
	if q.Len() < 0.0001 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}

// Slerp interpolates between two file-order rotations along the shorter arc.
// t should be in range [0, 1].
func Slerp(a, b [4]float32, t float32) [4]float32 {
	qa, qb := Normalize(QuatFromXYZW(a)), Normalize(QuatFromXYZW(b))
	if qa.Dot(qb) < 0 {
		qb = qb.Scale(-1)
	}
	return QuatToXYZW(mgl32.QuatSlerp(qa, qb, t))
}
