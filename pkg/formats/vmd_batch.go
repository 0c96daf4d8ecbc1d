package formats

import (
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/pmxvmd/pkg/binio"
)

// Field offsets inside a bone record.
const (
	vmdBoneFrameOffset   = vmdNameSize
	vmdBonePosOffset     = vmdBoneFrameOffset + 4
	vmdBoneRotOffset     = vmdBonePosOffset + 12
	vmdBoneInterpOffset  = vmdBoneRotOffset + 16
	vmdMorphFrameOffset  = vmdNameSize
	vmdMorphWeightOffset = vmdMorphFrameOffset + 4
)

// VMDBatch is a VMD motion decoded into struct-of-arrays form. Element i of
// every Bone* slice belongs to bone keyframe i, and likewise for Morph*.
type VMDBatch struct {
	Header VMDHeader

	BoneNames          []string
	BoneFrames         []uint32
	BonePositions      [][3]float32
	BoneRotations      [][4]float32 // quaternion x, y, z, w
	BoneInterpolations []VMDInterpolation

	MorphNames   []string
	MorphFrames  []uint32
	MorphWeights []float32

	VMDSceneTracks
}

// ParseVMDBatch parses VMD data into struct-of-arrays form. Each track is
// bounds checked once and decoded straight from the buffer.
func ParseVMDBatch(data []byte, opts ...Option) (*VMDBatch, error) {
	o := buildOptions(opts)
	r := binio.NewReader(data, o.cursor()...)

	header, err := parseVMDHeader(r)
	if err != nil {
		return nil, err
	}
	b := &VMDBatch{Header: *header}

	count, err := readVMDTrackCount(r, vmdBoneRecordSize, "bone")
	if err != nil {
		return nil, err
	}
	raw, _ := r.Slice(int(count) * vmdBoneRecordSize)
	b.decodeBones(r, raw, int(count))

	count, err = readVMDTrackCount(r, vmdMorphRecordSize, "morph")
	if err != nil {
		return nil, err
	}
	raw, _ = r.Slice(int(count) * vmdMorphRecordSize)
	b.decodeMorphs(r, raw, int(count))

	if b.VMDSceneTracks, err = parseVMDSceneTracks(r); err != nil {
		return nil, err
	}

	o.log.Debug("parsed VMD batch",
		zap.String("model", header.ModelName),
		zap.Int("version", header.Version()),
		zap.Int("bones", len(b.BoneFrames)),
		zap.Int("morphs", len(b.MorphFrames)),
		zap.Int("cameras", len(b.Cameras)))
	o.reportLossy("VMD", r.LossyStrings())

	return b, nil
}

// decodeBones fills the bone arrays from n consecutive 111-byte records.
// Numeric fields go first so names, which need text conversion, run as a
// separate pass.
func (b *VMDBatch) decodeBones(r *binio.Reader, raw []byte, n int) {
	b.BoneFrames = make([]uint32, n)
	b.BonePositions = make([][3]float32, n)
	b.BoneRotations = make([][4]float32, n)
	for i := 0; i < n; i++ {
		rec := raw[i*vmdBoneRecordSize:]
		b.BoneFrames[i] = binary.LittleEndian.Uint32(rec[vmdBoneFrameOffset:])
		decodeF32s(b.BonePositions[i][:], rec[vmdBonePosOffset:])
		decodeF32s(b.BoneRotations[i][:], rec[vmdBoneRotOffset:])
	}

	b.BoneNames = make([]string, n)
	b.BoneInterpolations = make([]VMDInterpolation, n)
	for i := 0; i < n; i++ {
		rec := raw[i*vmdBoneRecordSize : (i+1)*vmdBoneRecordSize]
		b.BoneNames[i] = r.DecodeFixedString(rec[:vmdNameSize], true)
		b.BoneInterpolations[i] = ReduceInterpolation(rec[vmdBoneInterpOffset:])
	}
}

func (b *VMDBatch) decodeMorphs(r *binio.Reader, raw []byte, n int) {
	b.MorphNames = make([]string, n)
	b.MorphFrames = make([]uint32, n)
	b.MorphWeights = make([]float32, n)
	for i := 0; i < n; i++ {
		rec := raw[i*vmdMorphRecordSize : (i+1)*vmdMorphRecordSize]
		b.MorphNames[i] = r.DecodeFixedString(rec[:vmdNameSize], true)
		b.MorphFrames[i] = binary.LittleEndian.Uint32(rec[vmdMorphFrameOffset:])
		b.MorphWeights[i] = math.Float32frombits(binary.LittleEndian.Uint32(rec[vmdMorphWeightOffset:]))
	}
}

// BoneKeyframes converts the bone arrays to records.
func (b *VMDBatch) BoneKeyframes() []VMDBoneKeyframe {
	out := make([]VMDBoneKeyframe, len(b.BoneFrames))
	for i := range out {
		out[i] = VMDBoneKeyframe{
			Name:          b.BoneNames[i],
			Frame:         b.BoneFrames[i],
			Position:      b.BonePositions[i],
			Rotation:      b.BoneRotations[i],
			Interpolation: b.BoneInterpolations[i],
		}
	}
	return out
}

// MorphKeyframes converts the morph arrays to records.
func (b *VMDBatch) MorphKeyframes() []VMDMorphKeyframe {
	out := make([]VMDMorphKeyframe, len(b.MorphFrames))
	for i := range out {
		out[i] = VMDMorphKeyframe{
			Name:   b.MorphNames[i],
			Frame:  b.MorphFrames[i],
			Weight: b.MorphWeights[i],
		}
	}
	return out
}

// ToVMD converts the batch to the record form ParseVMD returns.
func (b *VMDBatch) ToVMD() *VMD {
	return &VMD{
		Header:         b.Header,
		Bones:          b.BoneKeyframes(),
		Morphs:         b.MorphKeyframes(),
		VMDSceneTracks: b.VMDSceneTracks,
	}
}
