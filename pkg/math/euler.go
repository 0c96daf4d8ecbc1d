package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// QuatToEuler converts a unit quaternion to roll, pitch and yaw in degrees
// (rotations about X, Y and Z, applied in Z-Y-X order). At the gimbal-lock
// boundary pitch is clamped to ±90° with the sign of its sine, so the result
// never contains NaN.
func QuatToEuler(q mgl32.Quat) [3]float64 {
	x, y, z, w := float64(q.V[0]), float64(q.V[1]), float64(q.V[2]), float64(q.W)

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))

	var pitch float64
	if sinp := 2 * (w*y - z*x); math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return [3]float64{degrees(roll), degrees(pitch), degrees(yaw)}
}

// QuatsToEuler converts a batch of file-order (x, y, z, w) rotations.
func QuatsToEuler(rotations [][4]float32) [][3]float64 {
	out := make([][3]float64, len(rotations))
	for i, r := range rotations {
		out[i] = QuatToEuler(QuatFromXYZW(r))
	}
	return out
}

// EulerToQuat is the inverse of QuatToEuler for angles in degrees.
func EulerToQuat(euler [3]float64) mgl32.Quat {
	roll := mgl32.QuatRotate(float32(radians(euler[0])), mgl32.Vec3{1, 0, 0})
	pitch := mgl32.QuatRotate(float32(radians(euler[1])), mgl32.Vec3{0, 1, 0})
	yaw := mgl32.QuatRotate(float32(radians(euler[2])), mgl32.Vec3{0, 0, 1})
	return yaw.Mul(pitch).Mul(roll)
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func radians(deg float64) float64 { return deg * math.Pi / 180 }
