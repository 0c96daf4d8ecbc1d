package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/pmxvmd/internal/config"
	"github.com/Faultbox/pmxvmd/internal/logger"
	"github.com/Faultbox/pmxvmd/pkg/encoding"
	"github.com/Faultbox/pmxvmd/pkg/formats"
)

type fileKind int

const (
	kindUnknown fileKind = iota
	kindPMX
	kindVMD
)

// detectKind picks the format by extension, then by leading magic bytes.
func detectKind(path string, data []byte) fileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pmx":
		return kindPMX
	case ".vmd":
		return kindVMD
	}
	if bytes.HasPrefix(data, []byte("PMX ")) {
		return kindPMX
	}
	if bytes.Contains(data[:min(len(data), 30)], []byte("Vocaloid Motion Data")) {
		return kindVMD
	}
	return kindUnknown
}

// input is one file read from disk together with the codec options the
// config selects for it.
type input struct {
	path string
	data []byte
	kind fileKind
	opts []formats.Option
}

func readInput(cfg *config.Config, path string) (*input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading input")
	}
	in := &input{path: path, data: data, kind: detectKind(path, data)}
	if in.kind == kindUnknown {
		return nil, errors.Wrapf(formats.ErrInvalidFormat, "%s is neither PMX nor VMD", path)
	}

	enc, err := encoding.Lookup(cfg.Decode.NarrowEncoding)
	if err != nil {
		return nil, err
	}
	logger.Debug("input loaded",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
		zap.String("narrow_encoding", encoding.Name(enc)),
		zap.Bool("batch", cfg.Decode.Batch))

	in.opts = []formats.Option{
		formats.WithNarrowEncoding(enc),
		formats.WithAdditionalUVs(cfg.Decode.KeepAdditionalUVs),
		formats.WithLogger(logger.Named(filepath.Base(path))),
	}
	return in, nil
}

// pmx decodes the input with the decoder the config selects.
func (in *input) pmx(batch bool) (*formats.PMX, error) {
	if batch {
		b, err := formats.ParsePMXBatch(in.data, in.opts...)
		if err != nil {
			return nil, err
		}
		return b.ToPMX(), nil
	}
	return formats.ParsePMX(in.data, in.opts...)
}

// vmd decodes the input with the decoder the config selects.
func (in *input) vmd(batch bool) (*formats.VMD, error) {
	if batch {
		b, err := formats.ParseVMDBatch(in.data, in.opts...)
		if err != nil {
			return nil, err
		}
		return b.ToVMD(), nil
	}
	return formats.ParseVMD(in.data, in.opts...)
}

// encode decodes and re-encodes the input.
func (in *input) encode(batch bool) ([]byte, error) {
	switch in.kind {
	case kindPMX:
		p, err := in.pmx(batch)
		if err != nil {
			return nil, err
		}
		return formats.EncodePMX(p, in.opts...)
	default:
		v, err := in.vmd(batch)
		if err != nil {
			return nil, err
		}
		return formats.EncodeVMD(v, in.opts...)
	}
}

// firstDifference returns the first offset at which a and b differ, or -1.
func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
