package formats

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/pmxvmd/pkg/binio"
)

// PMXBatch is a PMX model decoded into struct-of-arrays form: element i of
// every per-vertex slice belongs to vertex i.
type PMXBatch struct {
	Header        PMXHeader
	Positions     [][3]float32
	Normals       [][3]float32
	UVs           [][2]float32
	AdditionalUVs [][][4]float32 // [channel][vertex]; nil when not kept
	Skinning      []PMXSkinning
	EdgeScales    []float32
	Indices       []int64 // flat triangle list, three per face
	Textures      []string
	Remainder     []byte
}

// VertexCount returns the number of vertices.
func (b *PMXBatch) VertexCount() int { return len(b.Positions) }

// FaceCount returns the number of triangles.
func (b *PMXBatch) FaceCount() int { return len(b.Indices) / 3 }

// ParsePMXBatch parses PMX data into struct-of-arrays form. Fixed-size
// records are decoded straight from the buffer after a single bounds check;
// only the skinning block, whose size depends on its tag, goes through the
// per-record reader.
func ParsePMXBatch(data []byte, opts ...Option) (*PMXBatch, error) {
	o := buildOptions(opts)
	r := binio.NewReader(data, o.cursor()...)

	header, layout, err := parsePMXHeader(r)
	if err != nil {
		return nil, err
	}
	b := &PMXBatch{Header: *header}

	vertexCount, err := r.ReadU32()
	if err != nil {
		return nil, errors.Wrap(err, "reading vertex count")
	}
	if err := requireRecords(r, vertexCount, layout.minVertexSize()); err != nil {
		return nil, errors.Wrapf(err, "reading %d vertices", vertexCount)
	}
	if err := b.parseVertices(r, layout, int(vertexCount), o.keepAdditionalUVs); err != nil {
		return nil, err
	}

	indexCount, err := parsePMXIndexCount(r, layout)
	if err != nil {
		return nil, err
	}
	raw, _ := r.Slice(int(indexCount) * layout.vertexSize)
	b.Indices = decodeVertexIndices(raw, layout.vertexSize)

	if b.Textures, b.Remainder, err = parsePMXTail(r, layout); err != nil {
		return nil, err
	}

	o.log.Debug("parsed PMX batch",
		zap.String("name", header.Name),
		zap.Int("vertices", b.VertexCount()),
		zap.Int("faces", b.FaceCount()),
		zap.Int("textures", len(b.Textures)),
		zap.Int("remainder", len(b.Remainder)))
	o.reportLossy("PMX", r.LossyStrings())

	return b, nil
}

func (b *PMXBatch) parseVertices(r *binio.Reader, l pmxLayout, n int, keepUVs bool) error {
	b.Positions = make([][3]float32, n)
	b.Normals = make([][3]float32, n)
	b.UVs = make([][2]float32, n)
	b.Skinning = make([]PMXSkinning, n)
	b.EdgeScales = make([]float32, n)
	if keepUVs && l.additionalUVs > 0 {
		b.AdditionalUVs = make([][][4]float32, l.additionalUVs)
		for c := range b.AdditionalUVs {
			b.AdditionalUVs[c] = make([][4]float32, n)
		}
	}

	fixed := pmxVertexBaseSize + l.additionalUVs*pmxAdditionalUVSize
	for i := 0; i < n; i++ {
		rec, err := r.Slice(fixed)
		if err != nil {
			return errors.Wrapf(err, "parsing vertex %d", i)
		}
		decodeF32s(b.Positions[i][:], rec[0:12])
		decodeF32s(b.Normals[i][:], rec[12:24])
		decodeF32s(b.UVs[i][:], rec[24:32])
		for c := range b.AdditionalUVs {
			off := pmxVertexBaseSize + c*pmxAdditionalUVSize
			decodeF32s(b.AdditionalUVs[c][i][:], rec[off:off+pmxAdditionalUVSize])
		}

		if b.Skinning[i], err = parsePMXSkinning(r, l.boneSize); err != nil {
			return errors.Wrapf(err, "parsing vertex %d", i)
		}
		if b.EdgeScales[i], err = r.ReadF32(); err != nil {
			return errors.Wrapf(err, "parsing vertex %d", i)
		}
	}
	return nil
}

// decodeF32s fills dst from little-endian float32 data in src.
func decodeF32s(dst []float32, src []byte) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
}

// decodeVertexIndices converts a bounds-checked run of indices. Widths 1 and 2
// are sign-extended, width 4 is unsigned.
func decodeVertexIndices(raw []byte, width int) []int64 {
	out := make([]int64, len(raw)/width)
	switch width {
	case 1:
		for i := range out {
			out[i] = int64(int8(raw[i]))
		}
	case 2:
		for i := range out {
			out[i] = int64(int16(binary.LittleEndian.Uint16(raw[2*i:])))
		}
	case 4:
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	}
	return out
}

// Vertices converts the vertex arrays back into records.
func (b *PMXBatch) Vertices() []PMXVertex {
	out := make([]PMXVertex, len(b.Positions))
	for i := range out {
		v := &out[i]
		v.Position = b.Positions[i]
		v.Normal = b.Normals[i]
		v.UV = b.UVs[i]
		if len(b.AdditionalUVs) > 0 {
			v.AdditionalUVs = make([][4]float32, len(b.AdditionalUVs))
			for c := range b.AdditionalUVs {
				v.AdditionalUVs[c] = b.AdditionalUVs[c][i]
			}
		}
		v.Skinning = b.Skinning[i]
		v.EdgeScale = b.EdgeScales[i]
	}
	return out
}

// Faces groups the flat index list into triangles.
func (b *PMXBatch) Faces() []PMXFace {
	out := make([]PMXFace, len(b.Indices)/3)
	for i := range out {
		copy(out[i][:], b.Indices[3*i:3*i+3])
	}
	return out
}

// ToPMX converts the batch into the record form accepted by EncodePMX.
func (b *PMXBatch) ToPMX() *PMX {
	return &PMX{
		Header:    b.Header,
		Vertices:  b.Vertices(),
		Faces:     b.Faces(),
		Textures:  b.Textures,
		Remainder: b.Remainder,
	}
}
