// Package formats provides parsers and encoders for MMD file formats:
// PMX (polygon model) and VMD (motion).
package formats

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	xencoding "golang.org/x/text/encoding"

	"github.com/Faultbox/pmxvmd/pkg/binio"
)

// MMD format errors.
var (
	ErrInvalidFormat       = errors.New("invalid format")
	ErrUnknownSkinningMode = errors.New("unknown skinning mode")
	ErrInsufficientData    = binio.ErrInsufficientData
	ErrIndexOutOfRange     = binio.ErrIndexOutOfRange
)

// UnknownSkinningModeError reports a vertex whose skinning tag is not 0-4.
type UnknownSkinningModeError struct {
	Mode   uint8
	Offset int // position of the tag byte
}

func (e *UnknownSkinningModeError) Error() string {
	return fmt.Sprintf("%v: %s at offset %d", ErrUnknownSkinningMode, PMXSkinningMode(e.Mode), e.Offset)
}

// Is makes errors.Is(err, ErrUnknownSkinningMode) match.
func (e *UnknownSkinningModeError) Is(target error) bool {
	return target == ErrUnknownSkinningMode
}

type options struct {
	narrow            xencoding.Encoding
	keepAdditionalUVs bool
	log               *zap.Logger
}

// Option configures decoding and encoding of MMD files.
type Option func(*options)

// WithNarrowEncoding overrides the Shift_JIS encoding of fixed-length names.
func WithNarrowEncoding(enc xencoding.Encoding) Option {
	return func(o *options) { o.narrow = enc }
}

// WithAdditionalUVs controls whether PMX additional UV channels are kept
// (the default) or skipped while decoding.
func WithAdditionalUVs(keep bool) Option {
	return func(o *options) { o.keepAdditionalUVs = keep }
}

// WithLogger sets the logger that receives decode diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{keepAdditionalUVs: true, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) cursor() []binio.Option {
	return []binio.Option{binio.WithNarrowEncoding(o.narrow)}
}

// reportLossy logs lossy string conversions; they never fail a decode.
func (o options) reportLossy(format string, lossy int) {
	if lossy > 0 {
		o.log.Warn("lossy text conversion",
			zap.String("format", format),
			zap.Int("strings", lossy),
			zap.Error(binio.ErrEncoding))
	}
}

// requireRecords fails with ErrInsufficientData unless count records of at
// least size bytes each fit in the unread part of r.
func requireRecords(r *binio.Reader, count uint32, size int) error {
	need := uint64(count) * uint64(size)
	if need > uint64(r.Remaining()) {
		return &binio.InsufficientDataError{
			Offset:    r.Pos(),
			Requested: int(min(need, uint64(maxInt))),
			Available: r.Remaining(),
		}
	}
	return nil
}

const maxInt = int(^uint(0) >> 1)
