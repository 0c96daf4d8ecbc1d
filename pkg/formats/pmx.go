// Package formats provides parsers and encoders for MMD file formats.
// PMX (Polygon Model eXtended) format parser for 3D models.
package formats

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/pmxvmd/pkg/binio"
	"github.com/Faultbox/pmxvmd/pkg/encoding"
)

const pmxMagic = "PMX "

// Fixed PMX record sizes.
const (
	pmxVertexBaseSize   = 32 // position, normal, uv
	pmxAdditionalUVSize = 16
	pmxMaxAdditionalUVs = 4
)

// PMXIndexKind names one of the six index domains whose byte width is set
// per file by the header.
type PMXIndexKind int

const (
	PMXVertexIndex PMXIndexKind = iota + 2 // offset into PMXHeader.Globals
	PMXTextureIndex
	PMXMaterialIndex
	PMXBoneIndex
	PMXMorphIndex
	PMXRigidBodyIndex
)

// String returns a human-readable index domain name.
func (k PMXIndexKind) String() string {
	switch k {
	case PMXVertexIndex:
		return "vertex"
	case PMXTextureIndex:
		return "texture"
	case PMXMaterialIndex:
		return "material"
	case PMXBoneIndex:
		return "bone"
	case PMXMorphIndex:
		return "morph"
	case PMXRigidBodyIndex:
		return "rigid body"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Header flag positions in PMXHeader.Globals.
const (
	pmxGlobalTextEncoding = 0
	pmxGlobalAdditionalUV = 1
	pmxGlobalCount        = 8
)

// PMXHeader is the PMX file header.
type PMXHeader struct {
	Version        float32
	Globals        []byte // raw header flags, usually 8 of them
	Name           string
	NameEnglish    string
	Comment        string
	CommentEnglish string
}

// NewPMXGlobals builds the eight standard header flags. sizes are the index
// widths in PMXIndexKind order: vertex, texture, material, bone, morph, rigid body.
func NewPMXGlobals(text encoding.TextEncoding, additionalUVs int, sizes [6]int) []byte {
	g := make([]byte, pmxGlobalCount)
	if text == encoding.UTF8 {
		g[pmxGlobalTextEncoding] = 1
	}
	g[pmxGlobalAdditionalUV] = byte(additionalUVs)
	for i, s := range sizes {
		g[int(PMXVertexIndex)+i] = byte(s)
	}
	return g
}

func (h *PMXHeader) global(i int, def byte) byte {
	if i < len(h.Globals) {
		return h.Globals[i]
	}
	return def
}

// TextEncoding returns the encoding of every length-prefixed string in the
// file. Without flags it is UTF-16LE.
func (h *PMXHeader) TextEncoding() encoding.TextEncoding {
	return encoding.TextEncodingFromFlag(h.global(pmxGlobalTextEncoding, 0))
}

// AdditionalUVCount returns the number of extra UV channels per vertex.
func (h *PMXHeader) AdditionalUVCount() int {
	return int(h.global(pmxGlobalAdditionalUV, 0))
}

// IndexSize returns the byte width of indices of the given kind. Missing
// flags default to 4.
func (h *PMXHeader) IndexSize(kind PMXIndexKind) int {
	return int(h.global(int(kind), 4))
}

// pmxLayout is the header-derived decode state. It is computed once and
// passed to every record reader; nothing mutates it afterwards.
type pmxLayout struct {
	text          encoding.TextEncoding
	additionalUVs int
	vertexSize    int
	boneSize      int
}

func newPMXLayout(h *PMXHeader) (pmxLayout, error) {
	for kind := PMXVertexIndex; kind <= PMXRigidBodyIndex; kind++ {
		switch h.IndexSize(kind) {
		case 1, 2, 4:
		default:
			return pmxLayout{}, errors.Wrapf(ErrInvalidFormat, "%s index size %d", kind, h.IndexSize(kind))
		}
	}
	if h.AdditionalUVCount() > pmxMaxAdditionalUVs {
		return pmxLayout{}, errors.Wrapf(ErrInvalidFormat, "%d additional UVs", h.AdditionalUVCount())
	}
	return pmxLayout{
		text:          h.TextEncoding(),
		additionalUVs: h.AdditionalUVCount(),
		vertexSize:    h.IndexSize(PMXVertexIndex),
		boneSize:      h.IndexSize(PMXBoneIndex),
	}, nil
}

// vertexIndexSigned reports whether vertex indices of the given width are
// signed. Widths 1 and 2 are signed so -1 survives as the no-index sentinel.
func vertexIndexSigned(width int) bool {
	return width < 4
}

// minVertexSize is the smallest possible vertex record (a BDEF1 vertex).
func (l pmxLayout) minVertexSize() int {
	return pmxVertexBaseSize + l.additionalUVs*pmxAdditionalUVSize + 1 + l.boneSize + 4
}

// PMXVertex is a single mesh vertex.
type PMXVertex struct {
	Position      [3]float32
	Normal        [3]float32
	UV            [2]float32
	AdditionalUVs [][4]float32 // nil when decoded with WithAdditionalUVs(false)
	Skinning      PMXSkinning
	EdgeScale     float32
}

// PMXFace is a triangle as three vertex indices. -1 marks a missing index.
type PMXFace [3]int64

// PMX represents a parsed PMX model: header, vertex and face streams and the
// texture table. Sections after the texture table (materials, bones, morphs,
// display frames, rigid bodies, joints) are kept undecoded in Remainder.
type PMX struct {
	Header    PMXHeader
	Vertices  []PMXVertex
	Faces     []PMXFace
	Textures  []string
	Remainder []byte
}

// VertexCount returns the number of vertices.
func (p *PMX) VertexCount() int { return len(p.Vertices) }

// FaceCount returns the number of triangles.
func (p *PMX) FaceCount() int { return len(p.Faces) }

// ParsePMXHeader parses only the PMX header.
func ParsePMXHeader(data []byte, opts ...Option) (*PMXHeader, error) {
	o := buildOptions(opts)
	r := binio.NewReader(data, o.cursor()...)
	h, _, err := parsePMXHeader(r)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ParsePMX parses PMX data one record at a time.
func ParsePMX(data []byte, opts ...Option) (*PMX, error) {
	o := buildOptions(opts)
	r := binio.NewReader(data, o.cursor()...)

	header, layout, err := parsePMXHeader(r)
	if err != nil {
		return nil, err
	}
	pmx := &PMX{Header: *header}

	vertexCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "reading vertex count")
	}
	if err := requireRecords(r, vertexCount, layout.minVertexSize()); err != nil {
		return nil, errors.Wrapf(err, "reading %d vertices", vertexCount)
	}
	pmx.Vertices = make([]PMXVertex, vertexCount)
	for i := range pmx.Vertices {
		if err := parsePMXVertex(r, layout, o.keepAdditionalUVs, &pmx.Vertices[i]); err != nil {
			return nil, errors.Wrapf(err, "parsing vertex %d", i)
		}
	}

	indexCount, err := parsePMXIndexCount(r, layout)
	if err != nil {
		return nil, err
	}
	signed := vertexIndexSigned(layout.vertexSize)
	pmx.Faces = make([]PMXFace, indexCount/3)
	for i := range pmx.Faces {
		for j := 0; j < 3; j++ {
			v, err := r.ReadIndex(layout.vertexSize, signed)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing face %d", i)
			}
			pmx.Faces[i][j] = v
		}
	}

	if pmx.Textures, pmx.Remainder, err = parsePMXTail(r, layout); err != nil {
		return nil, err
	}

	o.log.Debug("parsed PMX",
		zap.String("name", header.Name),
		zap.Int("vertices", len(pmx.Vertices)),
		zap.Int("faces", len(pmx.Faces)),
		zap.Int("textures", len(pmx.Textures)),
		zap.Int("remainder", len(pmx.Remainder)))
	o.reportLossy("PMX", r.LossyStrings())

	return pmx, nil
}

// ParsePMXFile parses a PMX file from disk.
func ParsePMXFile(path string, opts ...Option) (*PMX, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading PMX file")
	}
	return ParsePMX(data, opts...)
}

// parsePMXHeader is shared by the record and batch decoders.
func parsePMXHeader(r *binio.Reader) (*PMXHeader, pmxLayout, error) {
	magic, err := r.Slice(len(pmxMagic))
	if err != nil {
		return nil, pmxLayout{}, errors.Wrap(err, "reading PMX magic")
	}
	if string(magic) != pmxMagic {
		return nil, pmxLayout{}, errors.Wrapf(ErrInvalidFormat, "PMX magic %q", magic)
	}

	h := &PMXHeader{}
	if h.Version, err = r.ReadF32(); err != nil {
		return nil, pmxLayout{}, errors.Wrap(err, "reading PMX version")
	}
	flagCount, err := r.ReadU8()
	if err != nil {
		return nil, pmxLayout{}, errors.Wrap(err, "reading PMX flag count")
	}
	if h.Globals, err = r.ReadBytes(int(flagCount)); err != nil {
		return nil, pmxLayout{}, errors.Wrap(err, "reading PMX flags")
	}

	layout, err := newPMXLayout(h)
	if err != nil {
		return nil, pmxLayout{}, err
	}

	for _, field := range []*string{&h.Name, &h.NameEnglish, &h.Comment, &h.CommentEnglish} {
		if *field, err = r.ReadText(layout.text); err != nil {
			return nil, pmxLayout{}, errors.Wrap(err, "reading PMX header text")
		}
	}
	return h, layout, nil
}

func parsePMXVertex(r *binio.Reader, l pmxLayout, keepUVs bool, v *PMXVertex) error {
	var base [8]float32
	if err := r.ReadF32s(base[:]); err != nil {
		return err
	}
	copy(v.Position[:], base[0:3])
	copy(v.Normal[:], base[3:6])
	copy(v.UV[:], base[6:8])

	if keepUVs && l.additionalUVs > 0 {
		v.AdditionalUVs = make([][4]float32, l.additionalUVs)
		for i := range v.AdditionalUVs {
			if err := r.ReadF32s(v.AdditionalUVs[i][:]); err != nil {
				return err
			}
		}
	} else if err := r.Skip(l.additionalUVs * pmxAdditionalUVSize); err != nil {
		return err
	}

	skin, err := parsePMXSkinning(r, l.boneSize)
	if err != nil {
		return err
	}
	v.Skinning = skin

	v.EdgeScale, err = r.ReadF32()
	return err
}

// parsePMXIndexCount reads the face stream's index count and checks that the
// indices are present.
func parsePMXIndexCount(r *binio.Reader, l pmxLayout) (uint32, error) {
	n, err := r.ReadU32()
	if err != nil {
		return 0, errors.Wrap(err, "reading index count")
	}
	if n%3 != 0 {
		return 0, errors.Wrapf(ErrInvalidFormat, "index count %d is not a multiple of 3", n)
	}
	if err := requireRecords(r, n, l.vertexSize); err != nil {
		return 0, errors.Wrapf(err, "reading %d indices", n)
	}
	return n, nil
}

// parsePMXTail reads the texture table and keeps the rest of the file verbatim.
func parsePMXTail(r *binio.Reader, l pmxLayout) ([]string, []byte, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading texture count")
	}
	if err := requireRecords(r, count, 4); err != nil {
		return nil, nil, errors.Wrapf(err, "reading %d textures", count)
	}
	textures := make([]string, count)
	for i := range textures {
		if textures[i], err = r.ReadText(l.text); err != nil {
			return nil, nil, errors.Wrapf(err, "reading texture %d", i)
		}
	}
	remainder, _ := r.ReadBytes(r.Remaining())
	return textures, remainder, nil
}
