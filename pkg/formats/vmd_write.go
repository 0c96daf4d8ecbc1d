package formats

import (
	"math"

	"github.com/pkg/errors"

	"github.com/Faultbox/pmxvmd/pkg/binio"
)

// EncodeVMD serializes a VMD motion. A zero signature or version tag is
// replaced by the current-version defaults. Bone interpolation blocks are
// rebuilt with ExpandInterpolation.
//
// Optional sections are written up to the last non-nil one; sections before
// it are written with a zero count even when nil.
func EncodeVMD(v *VMD, opts ...Option) ([]byte, error) {
	o := buildOptions(opts)
	w := binio.NewWriter(o.cursor()...)

	writeVMDHeader(w, v.Header)

	if err := writeVMDCount(w, len(v.Bones), "bone"); err != nil {
		return nil, err
	}
	for i := range v.Bones {
		writeVMDBoneKeyframe(w, &v.Bones[i])
	}

	if err := writeVMDCount(w, len(v.Morphs), "morph"); err != nil {
		return nil, err
	}
	for i := range v.Morphs {
		k := &v.Morphs[i]
		w.WriteFixedString(k.Name, vmdNameSize)
		w.WriteU32(k.Frame)
		w.WriteF32(k.Weight)
	}

	if err := writeVMDSceneTracks(w, &v.VMDSceneTracks); err != nil {
		return nil, err
	}

	o.reportLossy("VMD", w.LossyStrings())
	return w.Bytes(), nil
}

func writeVMDHeader(w *binio.Writer, h VMDHeader) {
	var zeroSig [21]byte
	var zeroTag [4]byte
	def := NewVMDHeader(h.ModelName)
	if h.Signature == zeroSig {
		h.Signature = def.Signature
	}
	if h.VersionTag == zeroTag {
		h.VersionTag = def.VersionTag
	}
	w.WriteBytes(h.Signature[:])
	w.WriteBytes(h.VersionTag[:])
	w.WriteBytes(h.Padding[:])
	w.WriteFixedString(h.ModelName, h.ModelNameSize())
}

func writeVMDCount(w *binio.Writer, n int, track string) error {
	if uint64(n) > math.MaxUint32 {
		return errors.Wrapf(ErrInvalidFormat, "%d %s keyframes", n, track)
	}
	w.WriteU32(uint32(n))
	return nil
}

func writeVMDBoneKeyframe(w *binio.Writer, k *VMDBoneKeyframe) {
	w.WriteFixedString(k.Name, vmdNameSize)
	w.WriteU32(k.Frame)
	w.WriteF32s(k.Position[:])
	w.WriteF32s(k.Rotation[:])
	interp := ExpandInterpolation(k.Interpolation)
	w.WriteBytes(interp[:])
}

func writeVMDSceneTracks(w *binio.Writer, t *VMDSceneTracks) error {
	present := []bool{
		t.Cameras != nil,
		t.Lights != nil,
		t.Shadows != nil,
		t.IKs != nil || len(t.Remainder) > 0,
	}
	last := -1
	for i, p := range present {
		if p {
			last = i
		}
	}

	if last >= 0 {
		if err := writeVMDPackedTrack(w, t.Cameras, "camera"); err != nil {
			return err
		}
	}
	if last >= 1 {
		if err := writeVMDPackedTrack(w, t.Lights, "light"); err != nil {
			return err
		}
	}
	if last >= 2 {
		if err := writeVMDPackedTrack(w, t.Shadows, "shadow"); err != nil {
			return err
		}
	}
	if last >= 3 {
		if err := writeVMDIKTrack(w, t.IKs); err != nil {
			return err
		}
		w.WriteBytes(t.Remainder)
	}
	return nil
}

func writeVMDPackedTrack[T any](w *binio.Writer, track []T, name string) error {
	if err := writeVMDCount(w, len(track), name); err != nil {
		return err
	}
	if len(track) == 0 {
		return nil
	}
	return errors.Wrapf(w.Pack(track), "writing %s track", name)
}

func writeVMDIKTrack(w *binio.Writer, iks []VMDIKKeyframe) error {
	if err := writeVMDCount(w, len(iks), "IK"); err != nil {
		return err
	}
	for i := range iks {
		k := &iks[i]
		w.WriteU32(k.Frame)
		w.WriteU8(k.Show)
		if err := writeVMDCount(w, len(k.States), "IK state"); err != nil {
			return err
		}
		for _, s := range k.States {
			w.WriteFixedString(s.Name, vmdIKNameSize)
			w.WriteU8(s.Enabled)
		}
	}
	return nil
}
