package export

import (
	"bytes"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/tiff" // TIFF decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// nativeMimeTypes are the image formats glTF accepts without conversion.
var nativeMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// EmbedTextures moves the images referenced by URI into the document's
// binary buffer, resolving paths against baseDir. PNG and JPEG files are
// stored as is; other decodable formats (BMP, GIF, TIFF, WebP) are
// converted to PNG. Missing files and formats without a decoder keep their
// URI. It returns the number of embedded images.
func EmbedTextures(doc *gltf.Document, baseDir string) (int, error) {
	embedded := 0
	for i, img := range doc.Images {
		if img.URI == "" || strings.HasPrefix(img.URI, "data:") {
			continue
		}

		path := filepath.Join(baseDir, filepath.FromSlash(img.URI))
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return embedded, errors.Wrapf(err, "reading texture %q", img.URI)
		}

		mimeType, ok := nativeMimeTypes[strings.ToLower(filepath.Ext(path))]
		if !ok {
			decoded, _, err := image.Decode(bytes.NewReader(data))
			if errors.Is(err, image.ErrFormat) {
				continue
			}
			if err != nil {
				return embedded, errors.Wrapf(err, "decoding texture %q", img.URI)
			}
			var buf bytes.Buffer
			if err := png.Encode(&buf, decoded); err != nil {
				return embedded, errors.Wrapf(err, "converting texture %q", img.URI)
			}
			data, mimeType = buf.Bytes(), "image/png"
		}

		idx, err := modeler.WriteImage(doc, img.Name, mimeType, bytes.NewReader(data))
		if err != nil {
			return embedded, errors.Wrapf(err, "writing texture %q", img.URI)
		}
		// WriteImage appends; move the new entry into the original slot.
		doc.Images[i] = doc.Images[idx]
		doc.Images = doc.Images[:idx]
		embedded++
	}
	return embedded, nil
}
