package formats

// VMDInterpolation holds the 16 meaningful bytes of a bone keyframe's 64-byte
// interpolation block: the cubic Bezier control points of the X, Y and Z
// translation curves in file order.
type VMDInterpolation [16]uint8

const vmdInterpolationSize = 64

// vmdInterpolationOffsets are the positions of the retained bytes in the
// 64-byte block.
var vmdInterpolationOffsets = [16]int{0, 1, 4, 5, 8, 9, 12, 13, 16, 17, 20, 21, 24, 25, 28, 29}

// Linear-curve control values used for the rotation channel, which the
// retained bytes do not cover.
const (
	vmdLinearA = 20
	vmdLinearB = 107
)

// ReduceInterpolation extracts the retained bytes from a 64-byte block.
func ReduceInterpolation(raw []byte) VMDInterpolation {
	var v VMDInterpolation
	for i, off := range vmdInterpolationOffsets {
		v[i] = raw[off]
	}
	return v
}

// ExpandInterpolation rebuilds a 64-byte block. The block is four 16-byte
// rows; row 0 holds ax, ay, bx, by for the X, Y, Z and rotation channels and
// row k is row 0 shifted left by k bytes followed by 0x01 and zero padding.
// The rotation channel is not retained and is written as a linear curve.
// The retained bytes are then stored at their offsets, so
// ReduceInterpolation(ExpandInterpolation(v)) == v for every v.
func ExpandInterpolation(v VMDInterpolation) [vmdInterpolationSize]byte {
	row := [16]byte{
		v[0], v[1], v[9], vmdLinearA,
		v[2], v[3], v[11], vmdLinearA,
		v[4], v[5], v[13], vmdLinearB,
		v[6], v[7], v[15], vmdLinearB,
	}

	var out [vmdInterpolationSize]byte
	for k := 0; k < 4; k++ {
		dst := out[16*k : 16*k+16]
		copy(dst, row[k:])
		if k > 0 {
			dst[16-k] = 0x01
		}
	}
	for i, off := range vmdInterpolationOffsets {
		out[off] = v[i]
	}
	return out
}
