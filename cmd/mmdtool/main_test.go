package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Faultbox/pmxvmd/internal/config"
	"github.com/Faultbox/pmxvmd/pkg/encoding"
	"github.com/Faultbox/pmxvmd/pkg/formats"
)

func testModel() *formats.PMX {
	v := func(x float32, s formats.PMXSkinning) formats.PMXVertex {
		return formats.PMXVertex{
			Position:  [3]float32{x, 1, 0},
			Normal:    [3]float32{0, 0, 1},
			UV:        [2]float32{x, 0},
			Skinning:  s,
			EdgeScale: 1,
		}
	}
	return &formats.PMX{
		Header: formats.PMXHeader{
			Version: 2.0,
			Globals: formats.NewPMXGlobals(encoding.UTF16LE, 0, [6]int{2, 1, 1, 2, 1, 1}),
			Name:    "テスト",
		},
		Vertices: []formats.PMXVertex{
			v(0, formats.PMXBDEF1{Bone: 0}),
			v(1, formats.PMXBDEF2{Bones: [2]int32{0, 1}, Weight: 0.5}),
			v(2, formats.PMXBDEF1{Bone: -1}),
		},
		Faces:    []formats.PMXFace{{0, 1, 2}},
		Textures: []string{"body.png"},
	}
}

func testMotion() *formats.VMD {
	return &formats.VMD{
		Header: formats.NewVMDHeader("model"),
		Bones: []formats.VMDBoneKeyframe{
			{Name: "センター", Frame: 0, Rotation: [4]float32{0, 0, 0, 1}},
			{Name: "センター", Frame: 30, Position: [3]float32{1, 2, 3}, Rotation: [4]float32{0, 0.7071068, 0, 0.7071068}},
		},
		Morphs: []formats.VMDMorphKeyframe{{Name: "あ", Frame: 10, Weight: 0.5}},
	}
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		path string
		data []byte
		want fileKind
	}{
		{"model.pmx", nil, kindPMX},
		{"MODEL.PMX", nil, kindPMX},
		{"dance.vmd", nil, kindVMD},
		{"model.bin", []byte("PMX \x00\x00\x00\x40"), kindPMX},
		{"motion.bin", []byte("Vocaloid Motion Data 0002\x00"), kindVMD},
		{"other.bin", []byte("RIFF"), kindUnknown},
		{"empty", nil, kindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := detectKind(tt.path, tt.data); got != tt.want {
				t.Errorf("detectKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstDifference(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want int
	}{
		{"equal", []byte{1, 2, 3}, []byte{1, 2, 3}, -1},
		{"both empty", nil, nil, -1},
		{"middle", []byte{1, 2, 3}, []byte{1, 9, 3}, 1},
		{"shorter output", []byte{1, 2, 3}, []byte{1, 2}, 2},
		{"longer output", []byte{1}, []byte{1, 2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstDifference(tt.a, tt.b); got != tt.want {
				t.Errorf("firstDifference() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHead(t *testing.T) {
	s := []int{1, 2, 3, 4}
	if got := head(s, 2); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("head(2) = %v", got)
	}
	if got := head(s, 0); len(got) != 4 {
		t.Errorf("head(0) len = %d, want 4", len(got))
	}
	if got := head(s, 10); len(got) != 4 {
		t.Errorf("head(10) len = %d, want 4", len(got))
	}
	if got := head([]int(nil), 3); got != nil {
		t.Errorf("head(nil) = %v, want nil", got)
	}
}

func TestReadInput_Unknown(t *testing.T) {
	path := writeTempFile(t, "notes.txt", []byte("hello"))
	if _, err := readInput(config.Default(), path); err == nil {
		t.Error("expected error for unknown file kind")
	}
}

func TestReadInput_BadEncoding(t *testing.T) {
	data, err := formats.EncodePMX(testModel())
	if err != nil {
		t.Fatalf("EncodePMX() error = %v", err)
	}
	path := writeTempFile(t, "model.pmx", data)

	cfg := config.Default()
	cfg.Decode.NarrowEncoding = "klingon"
	if _, err := readInput(cfg, path); err == nil {
		t.Error("expected error for unknown narrow encoding")
	}
}

func TestInput_RoundTrip(t *testing.T) {
	pmxData, err := formats.EncodePMX(testModel())
	if err != nil {
		t.Fatalf("EncodePMX() error = %v", err)
	}
	vmdData, err := formats.EncodeVMD(testMotion())
	if err != nil {
		t.Fatalf("EncodeVMD() error = %v", err)
	}

	files := map[string][]byte{"model.pmx": pmxData, "dance.vmd": vmdData}
	for name, data := range files {
		for _, batch := range []bool{false, true} {
			path := writeTempFile(t, name, data)
			in, err := readInput(config.Default(), path)
			if err != nil {
				t.Fatalf("%s: readInput() error = %v", name, err)
			}

			out, err := in.encode(batch)
			if err != nil {
				t.Fatalf("%s batch=%v: encode() error = %v", name, batch, err)
			}
			if off := firstDifference(data, out); off >= 0 {
				t.Errorf("%s batch=%v: output differs at offset %d", name, batch, off)
			}
		}
	}
}

func TestInput_Parity(t *testing.T) {
	pmxData, err := formats.EncodePMX(testModel())
	if err != nil {
		t.Fatalf("EncodePMX() error = %v", err)
	}
	in, err := readInput(config.Default(), writeTempFile(t, "model.pmx", pmxData))
	if err != nil {
		t.Fatalf("readInput() error = %v", err)
	}

	scalar, err := in.pmx(false)
	if err != nil {
		t.Fatalf("pmx(false) error = %v", err)
	}
	batch, err := in.pmx(true)
	if err != nil {
		t.Fatalf("pmx(true) error = %v", err)
	}
	if !reflect.DeepEqual(scalar, batch) {
		t.Error("scalar and batch PMX decoders disagree")
	}
	if scalar.Header.Name != "テスト" {
		t.Errorf("Name = %q, want テスト", scalar.Header.Name)
	}
}

func TestTruncateVMD(t *testing.T) {
	v := testMotion()
	got := truncateVMD(v, 1)

	if len(got.Bones) != 1 {
		t.Errorf("Bones = %d, want 1", len(got.Bones))
	}
	if len(v.Bones) != 2 {
		t.Errorf("source Bones changed to %d", len(v.Bones))
	}
	if got.Cameras != nil {
		t.Error("absent camera section should stay nil")
	}
}
