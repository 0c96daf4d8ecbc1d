package formats

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Faultbox/pmxvmd/pkg/binio"
)

// PMXSkinningMode is the per-vertex tag selecting the skinning layout.
type PMXSkinningMode uint8

const (
	PMXSkinningBDEF1 PMXSkinningMode = 0 // one bone
	PMXSkinningBDEF2 PMXSkinningMode = 1 // two bones, one weight
	PMXSkinningBDEF4 PMXSkinningMode = 2 // four bones, four weights
	PMXSkinningSDEF  PMXSkinningMode = 3 // spherical deform
	PMXSkinningQDEF  PMXSkinningMode = 4 // dual quaternion deform
)

// String returns a human-readable skinning mode name.
func (m PMXSkinningMode) String() string {
	switch m {
	case PMXSkinningBDEF1:
		return "BDEF1"
	case PMXSkinningBDEF2:
		return "BDEF2"
	case PMXSkinningBDEF4:
		return "BDEF4"
	case PMXSkinningSDEF:
		return "SDEF"
	case PMXSkinningQDEF:
		return "QDEF"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// PMXSkinningSize returns the on-disk payload size (tag byte excluded) of a
// skinning block for the given bone index width.
func PMXSkinningSize(mode PMXSkinningMode, boneSize int) (int, error) {
	switch mode {
	case PMXSkinningBDEF1:
		return boneSize, nil
	case PMXSkinningBDEF2:
		return 2*boneSize + 4, nil
	case PMXSkinningBDEF4, PMXSkinningQDEF:
		return 4*boneSize + 16, nil
	case PMXSkinningSDEF:
		return 2*boneSize + 4 + 36, nil
	}
	return 0, errors.Wrapf(ErrUnknownSkinningMode, "mode %d", uint8(mode))
}

// PMXSkinning is one of PMXBDEF1, PMXBDEF2, PMXBDEF4, PMXSDEF or PMXQDEF.
type PMXSkinning interface {
	Mode() PMXSkinningMode
	// BoneIndices returns the referenced bones; -1 means no bone.
	BoneIndices() []int32
	// BoneWeights returns the influence of each entry of BoneIndices.
	BoneWeights() []float32

	encode(w *binio.Writer, boneSize int) error
}

// PMXBDEF1 binds a vertex to a single bone.
type PMXBDEF1 struct {
	Bone int32
}

// PMXBDEF2 blends two bones; Bones[1] gets 1 - Weight.
type PMXBDEF2 struct {
	Bones  [2]int32
	Weight float32
}

// PMXBDEF4 blends four bones with explicit weights.
type PMXBDEF4 struct {
	Bones   [4]int32
	Weights [4]float32
}

// PMXSDEF is BDEF2 plus the spherical deform center and reference points.
type PMXSDEF struct {
	Bones  [2]int32
	Weight float32
	C      [3]float32
	R0     [3]float32
	R1     [3]float32
}

// PMXQDEF has the BDEF4 layout, evaluated as dual quaternion skinning.
type PMXQDEF struct {
	Bones   [4]int32
	Weights [4]float32
}

func (PMXBDEF1) Mode() PMXSkinningMode { return PMXSkinningBDEF1 }
func (PMXBDEF2) Mode() PMXSkinningMode { return PMXSkinningBDEF2 }
func (PMXBDEF4) Mode() PMXSkinningMode { return PMXSkinningBDEF4 }
func (PMXSDEF) Mode() PMXSkinningMode { return PMXSkinningSDEF }
func (PMXQDEF) Mode() PMXSkinningMode { return PMXSkinningQDEF }

func (s PMXBDEF1) BoneIndices() []int32 { return []int32{s.Bone} }
func (s PMXBDEF2) BoneIndices() []int32 { return s.Bones[:] }
func (s PMXBDEF4) BoneIndices() []int32 { return s.Bones[:] }
func (s PMXSDEF) BoneIndices() []int32 { return s.Bones[:] }
func (s PMXQDEF) BoneIndices() []int32 { return s.Bones[:] }

func (s PMXBDEF1) BoneWeights() []float32 { return []float32{1} }
func (s PMXBDEF2) BoneWeights() []float32 { return []float32{s.Weight, 1 - s.Weight} }
func (s PMXBDEF4) BoneWeights() []float32 { return s.Weights[:] }
func (s PMXSDEF) BoneWeights() []float32 { return []float32{s.Weight, 1 - s.Weight} }
func (s PMXQDEF) BoneWeights() []float32 { return s.Weights[:] }

// parsePMXSkinning reads the tag byte and the payload it selects. Every
// variant is built by exactly one of the parse functions below.
func parsePMXSkinning(r *binio.Reader, boneSize int) (PMXSkinning, error) {
	offset := r.Pos()
	tag, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	switch PMXSkinningMode(tag) {
	case PMXSkinningBDEF1:
		return parseBDEF1(r, boneSize)
	case PMXSkinningBDEF2:
		return parseBDEF2(r, boneSize)
	case PMXSkinningBDEF4:
		return parseBDEF4(r, boneSize)
	case PMXSkinningSDEF:
		return parseSDEF(r, boneSize)
	case PMXSkinningQDEF:
		return parseQDEF(r, boneSize)
	}
	return nil, &UnknownSkinningModeError{Mode: tag, Offset: offset}
}

func parseBDEF1(r *binio.Reader, boneSize int) (PMXSkinning, error) {
	var bone [1]int32
	if err := readBoneIndices(r, boneSize, bone[:]); err != nil {
		return nil, err
	}
	return PMXBDEF1{Bone: bone[0]}, nil
}

func parseBDEF2(r *binio.Reader, boneSize int) (PMXSkinning, error) {
	var s PMXBDEF2
	if err := readBoneIndices(r, boneSize, s.Bones[:]); err != nil {
		return nil, err
	}
	w, err := r.ReadF32()
	if err != nil {
		return nil, err
	}
	s.Weight = w
	return s, nil
}

func parseBDEF4(r *binio.Reader, boneSize int) (PMXSkinning, error) {
	var s PMXBDEF4
	if err := readBoneIndices(r, boneSize, s.Bones[:]); err != nil {
		return nil, err
	}
	if err := r.ReadF32s(s.Weights[:]); err != nil {
		return nil, err
	}
	return s, nil
}

func parseSDEF(r *binio.Reader, boneSize int) (PMXSkinning, error) {
	var s PMXSDEF
	if err := readBoneIndices(r, boneSize, s.Bones[:]); err != nil {
		return nil, err
	}
	var params [10]float32 // weight, C, R0, R1
	if err := r.ReadF32s(params[:]); err != nil {
		return nil, err
	}
	s.Weight = params[0]
	copy(s.C[:], params[1:4])
	copy(s.R0[:], params[4:7])
	copy(s.R1[:], params[7:10])
	return s, nil
}

func parseQDEF(r *binio.Reader, boneSize int) (PMXSkinning, error) {
	var s PMXQDEF
	if err := readBoneIndices(r, boneSize, s.Bones[:]); err != nil {
		return nil, err
	}
	if err := r.ReadF32s(s.Weights[:]); err != nil {
		return nil, err
	}
	return s, nil
}

func readBoneIndices(r *binio.Reader, boneSize int, dst []int32) error {
	for i := range dst {
		v, err := r.ReadIndex(boneSize, true)
		if err != nil {
			return err
		}
		dst[i] = int32(v)
	}
	return nil
}

func writeBoneIndices(w *binio.Writer, boneSize int, bones []int32) error {
	for _, b := range bones {
		if err := w.WriteIndex(boneSize, true, int64(b)); err != nil {
			return errors.Wrap(err, "bone index")
		}
	}
	return nil
}

func (s PMXBDEF1) encode(w *binio.Writer, boneSize int) error {
	return writeBoneIndices(w, boneSize, []int32{s.Bone})
}

func (s PMXBDEF2) encode(w *binio.Writer, boneSize int) error {
	if err := writeBoneIndices(w, boneSize, s.Bones[:]); err != nil {
		return err
	}
	w.WriteF32(s.Weight)
	return nil
}

func (s PMXBDEF4) encode(w *binio.Writer, boneSize int) error {
	if err := writeBoneIndices(w, boneSize, s.Bones[:]); err != nil {
		return err
	}
	w.WriteF32s(s.Weights[:])
	return nil
}

func (s PMXSDEF) encode(w *binio.Writer, boneSize int) error {
	if err := writeBoneIndices(w, boneSize, s.Bones[:]); err != nil {
		return err
	}
	w.WriteF32(s.Weight)
	w.WriteF32s(s.C[:])
	w.WriteF32s(s.R0[:])
	w.WriteF32s(s.R1[:])
	return nil
}

func (s PMXQDEF) encode(w *binio.Writer, boneSize int) error {
	if err := writeBoneIndices(w, boneSize, s.Bones[:]); err != nil {
		return err
	}
	w.WriteF32s(s.Weights[:])
	return nil
}
