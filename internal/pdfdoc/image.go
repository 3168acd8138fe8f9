package pdfdoc

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"pdf-annotator/internal/domain"
)

// MaxImagePixels bounds the decoded size of an embedded raster image.
const MaxImagePixels = 4096 * 4096

type imageHandle struct {
	key           string
	resource      Name
	width, height int
}

func (h *imageHandle) ResourceName() string        { return string(h.resource) }
func (h *imageHandle) Bounds() (width, height int) { return h.width, h.height }

// EmbedRasterImage decodes data and adds it to the document as an image
// XObject. Baseline RGB and grayscale JPEG data is embedded as is;
// every other supported format (PNG, GIF, WebP, BMP, TIFF) is stored as
// deflated RGB with a soft mask for transparency. Embedding the same
// bytes twice returns the same resource. Malformed data yields a
// *domain.EmbedError.
func (d *Document) EmbedRasterImage(data []byte) (domain.ImageHandle, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}

	sum := blake2b.Sum256(data)
	key := hex.EncodeToString(sum[:12])
	if h, ok := d.images[key]; ok {
		return h, nil
	}

	xobj, bounds, err := imageXObject(data)
	if err != nil {
		return nil, &domain.EmbedError{Err: err}
	}

	// objects are only added once nothing can fail
	sub, name := d.resourceName("XObject", imagePrefix)
	if mask, ok := xobj.Dict["SMask"].(*Stream); ok {
		xobj.Dict["SMask"] = d.update.add(mask)
	}
	sub[name] = d.update.add(xobj)

	h := &imageHandle{key: key, resource: name, width: bounds.Dx(), height: bounds.Dy()}
	d.images[key] = h
	return h, nil
}

// imageXObject builds the image stream. A soft mask, when needed, is
// returned inline under /SMask for the caller to make indirect.
func imageXObject(data []byte) (*Stream, image.Rectangle, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("unrecognized image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, image.Rectangle{}, errors.New("image has no pixels")
	}
	if cfg.Width*cfg.Height > MaxImagePixels {
		return nil, image.Rectangle{}, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("failed to decode %s image: %w", format, err)
	}
	bounds := src.Bounds()

	dict := Dict{
		"Type":             Name("XObject"),
		"Subtype":          Name("Image"),
		"Width":            Integer(bounds.Dx()),
		"Height":           Integer(bounds.Dy()),
		"BitsPerComponent": Integer(8),
	}

	if format == "jpeg" {
		switch cfg.ColorModel {
		case color.YCbCrModel:
			dict["ColorSpace"] = Name("DeviceRGB")
			dict["Filter"] = Name("DCTDecode")
			return &Stream{Dict: dict, Data: data}, bounds, nil
		case color.GrayModel:
			dict["ColorSpace"] = Name("DeviceGray")
			dict["Filter"] = Name("DCTDecode")
			return &Stream{Dict: dict, Data: data}, bounds, nil
		}
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	n := bounds.Dx() * bounds.Dy()
	rgb := make([]byte, 0, n*3)
	alpha := make([]byte, 0, n)
	opaque := true
	for i := 0; i < len(nrgba.Pix); i += 4 {
		rgb = append(rgb, nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2])
		alpha = append(alpha, nrgba.Pix[i+3])
		if nrgba.Pix[i+3] != 0xff {
			opaque = false
		}
	}

	dict["ColorSpace"] = Name("DeviceRGB")
	dict["Filter"] = Name("FlateDecode")
	if !opaque {
		dict["SMask"] = &Stream{
			Dict: Dict{
				"Type":             Name("XObject"),
				"Subtype":          Name("Image"),
				"Width":            Integer(bounds.Dx()),
				"Height":           Integer(bounds.Dy()),
				"ColorSpace":       Name("DeviceGray"),
				"BitsPerComponent": Integer(8),
				"Filter":           Name("FlateDecode"),
			},
			Data: deflate(alpha),
		}
	}
	return &Stream{Dict: dict, Data: deflate(rgb)}, bounds, nil
}
