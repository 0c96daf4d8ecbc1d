package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/Faultbox/pmxvmd/internal/config"
	"github.com/Faultbox/pmxvmd/internal/logger"
	"github.com/Faultbox/pmxvmd/pkg/export"
	"github.com/Faultbox/pmxvmd/pkg/formats"
	mmdmath "github.com/Faultbox/pmxvmd/pkg/math"
)

var errUsage = errors.New("invalid arguments")

func cmdInfo(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.Wrap(errUsage, "usage: mmdtool info <file>")
	}

	in, err := readInput(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("File: %s (%d bytes)\n", in.path, len(in.data))
	if in.kind == kindPMX {
		p, err := in.pmx(cfg.Decode.Batch)
		if err != nil {
			return err
		}
		printPMXInfo(p)
		return nil
	}

	v, err := in.vmd(cfg.Decode.Batch)
	if err != nil {
		return err
	}
	printVMDInfo(v)
	return nil
}

func printPMXInfo(p *formats.PMX) {
	h := &p.Header
	fmt.Printf("Format:       PMX %.1f\n", h.Version)
	fmt.Printf("Name:         %s\n", h.Name)
	if h.NameEnglish != "" {
		fmt.Printf("English name: %s\n", h.NameEnglish)
	}
	fmt.Printf("Encoding:     %s\n", h.TextEncoding())
	fmt.Printf("Extra UVs:    %d\n", h.AdditionalUVCount())

	sizes := make([]string, 0, 6)
	for k := formats.PMXVertexIndex; k <= formats.PMXRigidBodyIndex; k++ {
		sizes = append(sizes, fmt.Sprintf("%s=%d", k, h.IndexSize(k)))
	}
	fmt.Printf("Index sizes:  %s\n", strings.Join(sizes, " "))

	fmt.Printf("Vertices:     %d\n", p.VertexCount())
	fmt.Printf("Faces:        %d\n", p.FaceCount())
	fmt.Printf("Textures:     %d\n", len(p.Textures))
	fmt.Printf("Remainder:    %d bytes\n", len(p.Remainder))

	modes := make(map[formats.PMXSkinningMode]int)
	for i := range p.Vertices {
		if s := p.Vertices[i].Skinning; s != nil {
			modes[s.Mode()]++
		}
	}
	fmt.Println("\nSkinning:")
	for m := formats.PMXSkinningBDEF1; m <= formats.PMXSkinningQDEF; m++ {
		if modes[m] > 0 {
			fmt.Printf("  %-6s %d\n", m, modes[m])
		}
	}

	if len(p.Textures) > 0 {
		fmt.Println("\nTextures:")
		for i, t := range p.Textures {
			fmt.Printf("  [%d] %s\n", i, t)
		}
	}
}

func printVMDInfo(v *formats.VMD) {
	fmt.Printf("Format:       VMD (version %d)\n", v.Header.Version())
	fmt.Printf("Model:        %s\n", v.Header.ModelName)

	var last uint32
	for i := range v.Bones {
		last = max(last, v.Bones[i].Frame)
	}
	for i := range v.Morphs {
		last = max(last, v.Morphs[i].Frame)
	}

	fmt.Printf("Bone frames:  %d (%d bones)\n", len(v.Bones), len(v.BoneNames()))
	fmt.Printf("Morph frames: %d\n", len(v.Morphs))
	fmt.Printf("Last frame:   %d\n", last)
	fmt.Printf("Cameras:      %s\n", sectionCount(v.Cameras == nil, len(v.Cameras)))
	fmt.Printf("Lights:       %s\n", sectionCount(v.Lights == nil, len(v.Lights)))
	fmt.Printf("Shadows:      %s\n", sectionCount(v.Shadows == nil, len(v.Shadows)))
	fmt.Printf("IK switches:  %s\n", sectionCount(v.IKs == nil, len(v.IKs)))
	if len(v.Remainder) > 0 {
		fmt.Printf("Remainder:    %d bytes\n", len(v.Remainder))
	}
}

func sectionCount(absent bool, n int) string {
	if absent {
		return "absent"
	}
	return fmt.Sprintf("%d", n)
}

func cmdDump(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	limit := fs.Int("n", 5, "Records per section to dump (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.Wrap(errUsage, "usage: mmdtool dump [-n N] <file>")
	}

	in, err := readInput(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	spewConfig := spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true

	if in.kind == kindPMX {
		p, err := in.pmx(cfg.Decode.Batch)
		if err != nil {
			return err
		}
		fmt.Print(spewConfig.Sdump(truncatePMX(p, *limit)))
		return nil
	}

	v, err := in.vmd(cfg.Decode.Batch)
	if err != nil {
		return err
	}
	fmt.Print(spewConfig.Sdump(truncateVMD(v, *limit)))
	return nil
}

// head returns the first n elements of s, or all of s when n <= 0.
func head[T any](s []T, n int) []T {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func truncatePMX(p *formats.PMX, n int) *formats.PMX {
	out := *p
	out.Vertices = head(p.Vertices, n)
	out.Faces = head(p.Faces, n)
	out.Textures = head(p.Textures, n)
	out.Remainder = head(p.Remainder, n)
	return &out
}

func truncateVMD(v *formats.VMD, n int) *formats.VMD {
	out := *v
	out.Bones = head(v.Bones, n)
	out.Morphs = head(v.Morphs, n)
	out.Cameras = head(v.Cameras, n)
	out.Lights = head(v.Lights, n)
	out.Shadows = head(v.Shadows, n)
	out.IKs = head(v.IKs, n)
	out.Remainder = head(v.Remainder, n)
	return &out
}

func cmdEuler(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("euler", flag.ExitOnError)
	bone := fs.String("bone", "", "Only print keyframes of this bone")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.Wrap(errUsage, "usage: mmdtool euler [-bone name] <file.vmd>")
	}

	in, err := readInput(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	if in.kind != kindVMD {
		return errors.Wrapf(formats.ErrInvalidFormat, "%s is not a VMD motion", in.path)
	}

	v, err := in.vmd(cfg.Decode.Batch)
	if err != nil {
		return err
	}

	keys := make([]formats.VMDBoneKeyframe, 0, len(v.Bones))
	for _, k := range v.Bones {
		if *bone == "" || k.Name == *bone {
			keys = append(keys, k)
		}
	}
	rotations := make([][4]float32, len(keys))
	for i := range keys {
		rotations[i] = keys[i].Rotation
	}

	fmt.Printf("%-8s %-16s %10s %10s %10s\n", "Frame", "Bone", "X", "Y", "Z")
	for i, e := range mmdmath.QuatsToEuler(rotations) {
		fmt.Printf("%-8d %-16s %10.3f %10.3f %10.3f\n", keys[i].Frame, keys[i].Name, e[0], e[1], e[2])
	}
	return nil
}

func cmdRoundTrip(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("roundtrip", flag.ExitOnError)
	output := fs.String("o", "", "Write the re-encoded file here")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.Wrap(errUsage, "usage: mmdtool roundtrip [-o out] <file>")
	}

	in, err := readInput(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	out, err := in.encode(cfg.Decode.Batch)
	if err != nil {
		return err
	}

	if *output != "" {
		if err := os.WriteFile(*output, out, 0644); err != nil {
			return errors.Wrap(err, "writing output")
		}
		logger.Sugar.Infof("Wrote %s (%d bytes)", *output, len(out))
	}

	if off := firstDifference(in.data, out); off >= 0 {
		return errors.Errorf("output differs at offset %d (input %d bytes, output %d bytes)",
			off, len(in.data), len(out))
	}
	fmt.Printf("%s: identical (%d bytes)\n", in.path, len(out))
	return nil
}

func cmdParity(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("parity", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.Wrap(errUsage, "usage: mmdtool parity <file>")
	}

	in, err := readInput(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	var scalar, batch any
	if in.kind == kindPMX {
		if scalar, err = in.pmx(false); err != nil {
			return errors.Wrap(err, "scalar decode")
		}
		if batch, err = in.pmx(true); err != nil {
			return errors.Wrap(err, "batch decode")
		}
	} else {
		if scalar, err = in.vmd(false); err != nil {
			return errors.Wrap(err, "scalar decode")
		}
		if batch, err = in.vmd(true); err != nil {
			return errors.Wrap(err, "batch decode")
		}
	}

	if !reflect.DeepEqual(scalar, batch) {
		return errors.Errorf("%s: scalar and batch decoders disagree", in.path)
	}
	fmt.Printf("%s: scalar and batch decoders agree\n", in.path)
	return nil
}

func cmdGLTF(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("gltf", flag.ExitOnError)
	embed := fs.Bool("embed", false, "Embed textures found next to the model")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.Wrap(errUsage, "usage: mmdtool gltf [-embed] <file.pmx> [out.glb]")
	}

	in, err := readInput(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	if in.kind != kindPMX {
		return errors.Wrapf(formats.ErrInvalidFormat, "%s is not a PMX model", in.path)
	}

	output := strings.TrimSuffix(in.path, filepath.Ext(in.path)) + ".glb"
	if fs.NArg() > 1 {
		output = fs.Arg(1)
	}

	p, err := in.pmx(cfg.Decode.Batch)
	if err != nil {
		return err
	}
	doc, err := export.PMXToGLTF(p)
	if err != nil {
		return err
	}
	if *embed {
		n, err := export.EmbedTextures(doc, filepath.Dir(in.path))
		if err != nil {
			return err
		}
		logger.Sugar.Infof("Embedded %d of %d textures", n, len(p.Textures))
	}
	if err := export.SaveDocument(doc, output); err != nil {
		return err
	}

	fmt.Printf("Exported %d vertices, %d faces to %s\n", p.VertexCount(), p.FaceCount(), output)
	return nil
}


func cmdConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	output := fs.String("o", "", "Write here instead of the user config directory")
	fs.Parse(args)

	if *output != "" {
		if err := cfg.SaveTo(*output); err != nil {
			return err
		}
		fmt.Printf("Saved config to %s\n", *output)
		return nil
	}

	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("Saved config to %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	return nil
}
