package formats

import (
	"math"

	"github.com/pkg/errors"

	"github.com/Faultbox/pmxvmd/pkg/binio"
)

// EncodePMX serializes a PMX model. Index widths, the additional UV count and
// the text encoding come from p.Header.Globals. Vertices decoded without
// additional UVs are written with zeroed channels.
func EncodePMX(p *PMX, opts ...Option) ([]byte, error) {
	o := buildOptions(opts)
	w := binio.NewWriter(o.cursor()...)

	layout, err := writePMXHeader(w, &p.Header)
	if err != nil {
		return nil, err
	}

	if uint64(len(p.Vertices)) > math.MaxUint32 {
		return nil, errors.Wrapf(ErrInvalidFormat, "%d vertices", len(p.Vertices))
	}
	w.WriteU32(uint32(len(p.Vertices)))
	for i := range p.Vertices {
		if err := writePMXVertex(w, layout, &p.Vertices[i]); err != nil {
			return nil, errors.Wrapf(err, "writing vertex %d", i)
		}
	}

	if uint64(len(p.Faces))*3 > math.MaxUint32 {
		return nil, errors.Wrapf(ErrInvalidFormat, "%d faces", len(p.Faces))
	}
	w.WriteU32(uint32(len(p.Faces) * 3))
	signed := vertexIndexSigned(layout.vertexSize)
	for i, f := range p.Faces {
		for _, v := range f {
			if err := w.WriteIndex(layout.vertexSize, signed, v); err != nil {
				return nil, errors.Wrapf(err, "writing face %d", i)
			}
		}
	}

	w.WriteU32(uint32(len(p.Textures)))
	for _, t := range p.Textures {
		w.WriteText(t, layout.text)
	}
	w.WriteBytes(p.Remainder)

	o.reportLossy("PMX", w.LossyStrings())
	return w.Bytes(), nil
}

func writePMXHeader(w *binio.Writer, h *PMXHeader) (pmxLayout, error) {
	layout, err := newPMXLayout(h)
	if err != nil {
		return pmxLayout{}, err
	}
	if len(h.Globals) > math.MaxUint8 {
		return pmxLayout{}, errors.Wrapf(ErrInvalidFormat, "%d header flags", len(h.Globals))
	}
	w.WriteBytes([]byte(pmxMagic))
	w.WriteF32(h.Version)
	w.WriteU8(uint8(len(h.Globals)))
	w.WriteBytes(h.Globals)
	for _, s := range []string{h.Name, h.NameEnglish, h.Comment, h.CommentEnglish} {
		w.WriteText(s, layout.text)
	}
	return layout, nil
}

func writePMXVertex(w *binio.Writer, l pmxLayout, v *PMXVertex) error {
	if v.Skinning == nil {
		return errors.Wrap(ErrInvalidFormat, "vertex without skinning")
	}
	if len(v.AdditionalUVs) > l.additionalUVs {
		return errors.Wrapf(ErrInvalidFormat, "%d additional UVs, header allows %d",
			len(v.AdditionalUVs), l.additionalUVs)
	}
	w.WriteF32s(v.Position[:])
	w.WriteF32s(v.Normal[:])
	w.WriteF32s(v.UV[:])
	for c := 0; c < l.additionalUVs; c++ {
		var uv [4]float32
		if c < len(v.AdditionalUVs) {
			uv = v.AdditionalUVs[c]
		}
		w.WriteF32s(uv[:])
	}
	w.WriteU8(uint8(v.Skinning.Mode()))
	if err := v.Skinning.encode(w, l.boneSize); err != nil {
		return err
	}
	w.WriteF32(v.EdgeScale)
	return nil
}
