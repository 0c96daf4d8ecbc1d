// VMD (Vocaloid Motion Data) format parser for keyframe animation.
package formats

import (
	"bytes"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/pmxvmd/pkg/binio"
)

const (
	vmdSignature        = "Vocaloid Motion Data"
	vmdVersion2Tag      = "0002"
	vmdLegacyTag        = "file"
	vmdModelNameSize    = 20
	vmdLegacyNameSize   = 10
	vmdNameSize         = 15 // bone and morph names
	vmdIKNameSize       = 20
	vmdBoneRecordSize   = 111
	vmdMorphRecordSize  = 23
	vmdCameraRecordSize = 61
	vmdLightRecordSize  = 28
	vmdShadowRecordSize = 9
	vmdIKRecordMinSize  = 9
)

// VMDHeader is the VMD file header. The raw signature, version tag and
// padding are kept so that encoding reproduces them.
type VMDHeader struct {
	Signature  [21]byte
	VersionTag [4]byte
	Padding    [5]byte
	ModelName  string
}

// NewVMDHeader returns a current-version ("0002") header.
func NewVMDHeader(modelName string) VMDHeader {
	h := VMDHeader{ModelName: modelName}
	copy(h.Signature[:], vmdSignature+" ")
	copy(h.VersionTag[:], vmdVersion2Tag)
	return h
}

// Version returns 2 for "0002" files and 1 for the legacy format.
func (h *VMDHeader) Version() int {
	if string(h.VersionTag[:]) == vmdVersion2Tag {
		return 2
	}
	return 1
}

// ModelNameSize returns the width of the model name field.
func (h *VMDHeader) ModelNameSize() int {
	if h.Version() == 2 {
		return vmdModelNameSize
	}
	return vmdLegacyNameSize
}

// VMDBoneKeyframe is one bone track sample.
type VMDBoneKeyframe struct {
	Name          string
	Frame         uint32
	Position      [3]float32
	Rotation      [4]float32 // quaternion x, y, z, w
	Interpolation VMDInterpolation
}

// Quat returns the rotation as an mgl32 quaternion.
func (k *VMDBoneKeyframe) Quat() mgl32.Quat {
	return mgl32.Quat{W: k.Rotation[3], V: mgl32.Vec3{k.Rotation[0], k.Rotation[1], k.Rotation[2]}}
}

// VMDMorphKeyframe is one morph track sample.
type VMDMorphKeyframe struct {
	Name   string
	Frame  uint32
	Weight float32
}

// VMDCameraKeyframe is one camera track sample, stored as a 61-byte record.
type VMDCameraKeyframe struct {
	Frame         uint32
	Distance      float32
	Position      [3]float32
	Rotation      [3]float32 // Euler angles, radians
	Interpolation [24]uint8
	FieldOfView   uint32 // degrees
	Perspective   uint8  // 0 = perspective, 1 = orthographic
}

// VMDLightKeyframe is one light track sample, stored as a 28-byte record.
type VMDLightKeyframe struct {
	Frame     uint32
	Color     [3]float32
	Direction [3]float32
}

// VMDShadowKeyframe is one self-shadow track sample, stored as a 9-byte record.
type VMDShadowKeyframe struct {
	Frame    uint32
	Mode     uint8
	Distance float32
}

// VMDIKState toggles one IK bone.
type VMDIKState struct {
	Name    string
	Enabled uint8
}

// VMDIKKeyframe is one model visibility / IK switch sample.
type VMDIKKeyframe struct {
	Frame  uint32
	Show   uint8
	States []VMDIKState
}

// VMDSceneTracks holds the optional sections after the morph track. A nil
// slice means the file ended before that section; bytes after the IK
// section are kept in Remainder.
type VMDSceneTracks struct {
	Cameras   []VMDCameraKeyframe
	Lights    []VMDLightKeyframe
	Shadows   []VMDShadowKeyframe
	IKs       []VMDIKKeyframe
	Remainder []byte
}

// VMD represents a parsed VMD motion.
type VMD struct {
	Header VMDHeader
	Bones  []VMDBoneKeyframe
	Morphs []VMDMorphKeyframe
	VMDSceneTracks
}

// BoneNames returns the distinct bone names in first-seen order.
func (v *VMD) BoneNames() []string {
	seen := make(map[string]bool)
	var names []string
	for i := range v.Bones {
		if !seen[v.Bones[i].Name] {
			seen[v.Bones[i].Name] = true
			names = append(names, v.Bones[i].Name)
		}
	}
	return names
}

// ParseVMD parses VMD data one record at a time.
func ParseVMD(data []byte, opts ...Option) (*VMD, error) {
	o := buildOptions(opts)
	r := binio.NewReader(data, o.cursor()...)

	header, err := parseVMDHeader(r)
	if err != nil {
		return nil, err
	}
	vmd := &VMD{Header: *header}

	count, err := readVMDTrackCount(r, vmdBoneRecordSize, "bone")
	if err != nil {
		return nil, err
	}
	vmd.Bones = make([]VMDBoneKeyframe, count)
	for i := range vmd.Bones {
		if err := parseVMDBoneKeyframe(r, &vmd.Bones[i]); err != nil {
			return nil, errors.Wrapf(err, "parsing bone keyframe %d", i)
		}
	}

	count, err = readVMDTrackCount(r, vmdMorphRecordSize, "morph")
	if err != nil {
		return nil, err
	}
	vmd.Morphs = make([]VMDMorphKeyframe, count)
	for i := range vmd.Morphs {
		if err := parseVMDMorphKeyframe(r, &vmd.Morphs[i]); err != nil {
			return nil, errors.Wrapf(err, "parsing morph keyframe %d", i)
		}
	}

	if vmd.VMDSceneTracks, err = parseVMDSceneTracks(r); err != nil {
		return nil, err
	}

	o.log.Debug("parsed VMD",
		zap.String("model", header.ModelName),
		zap.Int("version", header.Version()),
		zap.Int("bones", len(vmd.Bones)),
		zap.Int("morphs", len(vmd.Morphs)),
		zap.Int("cameras", len(vmd.Cameras)))
	o.reportLossy("VMD", r.LossyStrings())

	return vmd, nil
}

// ParseVMDFile parses a VMD file from disk.
func ParseVMDFile(path string, opts ...Option) (*VMD, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading VMD file")
	}
	return ParseVMD(data, opts...)
}

// parseVMDHeader is shared by the record and batch decoders. Only containment
// of the signature text is checked; real files vary in what follows it.
func parseVMDHeader(r *binio.Reader) (*VMDHeader, error) {
	h := &VMDHeader{}
	raw, err := r.Slice(len(h.Signature) + len(h.VersionTag) + len(h.Padding))
	if err != nil {
		return nil, errors.Wrap(err, "reading VMD header")
	}
	n := copy(h.Signature[:], raw)
	n += copy(h.VersionTag[:], raw[n:])
	copy(h.Padding[:], raw[n:])

	if !bytes.Contains(h.Signature[:], []byte(vmdSignature)) {
		return nil, errors.Wrapf(ErrInvalidFormat, "VMD signature %q", h.Signature[:])
	}

	if h.ModelName, err = r.ReadFixedString(h.ModelNameSize(), true); err != nil {
		return nil, errors.Wrap(err, "reading VMD model name")
	}
	return h, nil
}

// readVMDTrackCount reads a track's u32 record count and checks that all
// records are present.
func readVMDTrackCount(r *binio.Reader, recordSize int, track string) (uint32, error) {
	n, err := r.ReadU32()
	if err != nil {
		return 0, errors.Wrapf(err, "reading %s track count", track)
	}
	if err := requireRecords(r, n, recordSize); err != nil {
		return 0, errors.Wrapf(err, "reading %d %s keyframes", n, track)
	}
	return n, nil
}

func parseVMDBoneKeyframe(r *binio.Reader, k *VMDBoneKeyframe) error {
	var err error
	if k.Name, err = r.ReadFixedString(vmdNameSize, true); err != nil {
		return err
	}
	if k.Frame, err = r.ReadU32(); err != nil {
		return err
	}
	if err := r.ReadF32s(k.Position[:]); err != nil {
		return err
	}
	if err := r.ReadF32s(k.Rotation[:]); err != nil {
		return err
	}
	raw, err := r.Slice(vmdInterpolationSize)
	if err != nil {
		return err
	}
	k.Interpolation = ReduceInterpolation(raw)
	return nil
}

func parseVMDMorphKeyframe(r *binio.Reader, k *VMDMorphKeyframe) error {
	var err error
	if k.Name, err = r.ReadFixedString(vmdNameSize, true); err != nil {
		return err
	}
	if k.Frame, err = r.ReadU32(); err != nil {
		return err
	}
	k.Weight, err = r.ReadF32()
	return err
}

// parseVMDSceneTracks reads the optional sections. Each one is present only
// if the file has bytes left when it would start.
func parseVMDSceneTracks(r *binio.Reader) (VMDSceneTracks, error) {
	var t VMDSceneTracks
	var err error

	if r.Remaining() == 0 {
		return t, nil
	}
	if t.Cameras, err = parseVMDPackedTrack[VMDCameraKeyframe](r, vmdCameraRecordSize, "camera"); err != nil {
		return t, err
	}
	if r.Remaining() == 0 {
		return t, nil
	}
	if t.Lights, err = parseVMDPackedTrack[VMDLightKeyframe](r, vmdLightRecordSize, "light"); err != nil {
		return t, err
	}
	if r.Remaining() == 0 {
		return t, nil
	}
	if t.Shadows, err = parseVMDPackedTrack[VMDShadowKeyframe](r, vmdShadowRecordSize, "shadow"); err != nil {
		return t, err
	}
	if r.Remaining() == 0 {
		return t, nil
	}
	if t.IKs, err = parseVMDIKTrack(r); err != nil {
		return t, err
	}
	if r.Remaining() > 0 {
		t.Remainder, _ = r.ReadBytes(r.Remaining())
	}
	return t, nil
}

// parseVMDPackedTrack reads a track of fixed-size records in one bulk decode.
func parseVMDPackedTrack[T any](r *binio.Reader, recordSize int, track string) ([]T, error) {
	n, err := readVMDTrackCount(r, recordSize, track)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	if n > 0 {
		if err := r.ReadPacked(out); err != nil {
			return nil, errors.Wrapf(err, "parsing %s track", track)
		}
	}
	return out, nil
}

func parseVMDIKTrack(r *binio.Reader) ([]VMDIKKeyframe, error) {
	n, err := readVMDTrackCount(r, vmdIKRecordMinSize, "IK")
	if err != nil {
		return nil, err
	}
	out := make([]VMDIKKeyframe, n)
	for i := range out {
		k := &out[i]
		if k.Frame, err = r.ReadU32(); err != nil {
			return nil, errors.Wrapf(err, "parsing IK keyframe %d", i)
		}
		if k.Show, err = r.ReadU8(); err != nil {
			return nil, errors.Wrapf(err, "parsing IK keyframe %d", i)
		}
		states, err := readVMDTrackCount(r, vmdIKNameSize+1, "IK state")
		if err != nil {
			return nil, errors.Wrapf(err, "parsing IK keyframe %d", i)
		}
		k.States = make([]VMDIKState, states)
		for j := range k.States {
			if k.States[j].Name, err = r.ReadFixedString(vmdIKNameSize, true); err != nil {
				return nil, errors.Wrapf(err, "parsing IK keyframe %d", i)
			}
			if k.States[j].Enabled, err = r.ReadU8(); err != nil {
				return nil, errors.Wrapf(err, "parsing IK keyframe %d", i)
			}
		}
	}
	return out, nil
}
