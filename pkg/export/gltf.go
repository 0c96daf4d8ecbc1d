// Package export converts decoded MMD models to interchange formats.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/pmxvmd/pkg/formats"
)

const maxJoint = 1<<16 - 1

// PMXToGLTF builds a glTF document with the model as a single mesh node.
// Positions and normals are mirrored on Z to move from MMD's left-handed
// frame to glTF's right-handed one. Triangles that use the -1 vertex
// sentinel are dropped.
func PMXToGLTF(p *formats.PMX) (*gltf.Document, error) {
	n := len(p.Vertices)
	if n == 0 {
		return nil, errors.Wrap(formats.ErrInvalidFormat, "model has no vertices")
	}

	positions := make([][3]float32, n)
	normals := make([][3]float32, n)
	uvs := make([][2]float32, n)
	joints := make([][4]uint16, n)
	weights := make([][4]float32, n)
	for i := range p.Vertices {
		v := &p.Vertices[i]
		positions[i] = [3]float32{v.Position[0], v.Position[1], -v.Position[2]}
		normals[i] = [3]float32{v.Normal[0], v.Normal[1], -v.Normal[2]}
		uvs[i] = v.UV

		var err error
		if joints[i], weights[i], err = jointsAndWeights(v.Skinning); err != nil {
			return nil, errors.Wrapf(err, "vertex %d", i)
		}
	}

	indices, err := triangleIndices(p.Faces, n)
	if err != nil {
		return nil, err
	}

	doc := gltf.NewDocument()
	attributes := map[string]uint32{
		"POSITION":   modeler.WritePosition(doc, positions),
		"NORMAL":     modeler.WriteNormal(doc, normals),
		"TEXCOORD_0": modeler.WriteTextureCoord(doc, uvs),
		"JOINTS_0":   modeler.WriteJoints(doc, joints),
		"WEIGHTS_0":  modeler.WriteWeights(doc, weights),
	}
	for c := 0; c < len(p.Vertices[0].AdditionalUVs); c++ {
		extra := make([][2]float32, n)
		for i := range p.Vertices {
			if c < len(p.Vertices[i].AdditionalUVs) {
				uv := p.Vertices[i].AdditionalUVs[c]
				extra[i] = [2]float32{uv[0], uv[1]}
			}
		}
		attributes[fmt.Sprintf("TEXCOORD_%d", c+1)] = modeler.WriteTextureCoord(doc, extra)
	}

	primitive := &gltf.Primitive{
		Attributes: attributes,
		Material:   gltf.Index(0),
	}
	if len(indices) > 0 {
		primitive.Indices = gltf.Index(modeler.WriteIndices(doc, indices))
	} else {
		primitive.Mode = gltf.PrimitivePoints
	}

	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        "default",
		DoubleSided: true,
	})
	for _, t := range p.Textures {
		doc.Images = append(doc.Images, &gltf.Image{
			Name: t,
			URI:  strings.ReplaceAll(t, `\`, "/"),
		})
	}

	name := p.Header.Name
	if name == "" {
		name = p.Header.NameEnglish
	}
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name:       name,
		Primitives: []*gltf.Primitive{primitive},
	})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, &gltf.Node{
		Name: name,
		Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
	})

	return doc, nil
}

// SavePMXAsGLTF exports the model to path. A .glb extension selects the
// binary container; anything else writes JSON glTF.
func SavePMXAsGLTF(p *formats.PMX, path string) error {
	doc, err := PMXToGLTF(p)
	if err != nil {
		return err
	}
	return SaveDocument(doc, path)
}

// SaveDocument writes doc to path, as GLB when the extension is .glb.
func SaveDocument(doc *gltf.Document, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		return errors.Wrap(gltf.SaveBinary(doc, path), "saving glTF binary")
	}
	return errors.Wrap(gltf.Save(doc, path), "saving glTF")
}

// WriteGLB writes the model as a binary glTF stream.
func WriteGLB(w io.Writer, p *formats.PMX) error {
	doc, err := PMXToGLTF(p)
	if err != nil {
		return err
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return errors.Wrap(encoder.Encode(doc), "encoding glTF binary")
}

// jointsAndWeights maps a skinning block to glTF's four joint slots. Slots
// with a negative bone get joint 0 and weight 0, and the remaining weights
// are renormalized to sum to 1.
func jointsAndWeights(s formats.PMXSkinning) ([4]uint16, [4]float32, error) {
	var joints [4]uint16
	var weights [4]float32
	if s == nil {
		return joints, weights, errors.Wrap(formats.ErrInvalidFormat, "vertex without skinning")
	}

	bones, ws := s.BoneIndices(), s.BoneWeights()
	var sum float32
	for i, b := range bones {
		if b < 0 || ws[i] <= 0 {
			continue
		}
		if b > maxJoint {
			return joints, weights, errors.Wrapf(formats.ErrIndexOutOfRange, "bone %d exceeds glTF joint range", b)
		}
		joints[i] = uint16(b)
		weights[i] = ws[i]
		sum += ws[i]
	}

	if sum == 0 {
		weights[0] = 1
		return joints, weights, nil
	}
	for i := range weights {
		weights[i] /= sum
	}
	return joints, weights, nil
}

// triangleIndices flattens faces into an index list. Mirroring Z also turns
// MMD's clockwise front faces counter-clockwise, so the order is kept.
func triangleIndices(faces []formats.PMXFace, vertexCount int) ([]uint32, error) {
	out := make([]uint32, 0, 3*len(faces))
	for i, f := range faces {
		if f[0] < 0 || f[1] < 0 || f[2] < 0 {
			continue
		}
		for _, v := range f {
			if v >= int64(vertexCount) {
				return nil, errors.Wrapf(formats.ErrIndexOutOfRange, "face %d: vertex %d of %d", i, v, vertexCount)
			}
		}
		out = append(out, uint32(f[0]), uint32(f[1]), uint32(f[2]))
	}
	return out, nil
}
