// Package imaging turns uploaded pictures into the small inline JPEGs that
// shots and concept slots carry.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"math"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/tbstudio/storyboard-agent/internal/storyboard"
)

const (
	DefaultMaxWidth = 480
	DefaultQuality  = 50
	DefaultMaxBytes = 20 << 20

	jpegDataURLPrefix = "data:image/jpeg;base64,"
)

var (
	ErrNotImage = errors.New("file is not an image")
	ErrDecode   = errors.New("image could not be decoded")
	ErrTooLarge = errors.New("image file too large")
)

// Processor downscales and re-encodes uploads. The zero value uses the
// defaults.
type Processor struct {
	MaxWidth int
	// Quality is the JPEG quality, 1-100.
	Quality  int
	MaxBytes int64
}

func NewProcessor(maxWidth, quality int, maxBytes int64) *Processor {
	return &Processor{MaxWidth: maxWidth, Quality: quality, MaxBytes: maxBytes}
}

func (p *Processor) maxWidth() int {
	if p == nil || p.MaxWidth <= 0 {
		return DefaultMaxWidth
	}
	return p.MaxWidth
}

func (p *Processor) quality() int {
	if p == nil || p.Quality <= 0 || p.Quality > 100 {
		return DefaultQuality
	}
	return p.Quality
}

func (p *Processor) maxBytes() int64 {
	if p == nil || p.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return p.MaxBytes
}

// Process reads an uploaded file and returns it as a JPEG data URL no wider
// than MaxWidth. Non-images fail with ErrNotImage before any decoding.
func (p *Processor) Process(r io.Reader) (storyboard.ImageData, error) {
	limit := p.maxBytes()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return storyboard.ImageData{}, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > limit {
		return storyboard.ImageData{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return storyboard.ImageData{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return storyboard.ImageData{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	dst := p.resize(src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.quality()}); err != nil {
		return storyboard.ImageData{}, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	b := dst.Bounds()
	return storyboard.ImageData{
		ID:      storyboard.NewID(),
		DataURL: EncodeDataURL(buf.Bytes()),
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}

// ScaledSize returns the output dimensions for a w x h source.
func (p *Processor) ScaledSize(w, h int) (int, int) {
	maxW := p.maxWidth()
	if w <= maxW {
		return w, h
	}
	nh := int(math.Round(float64(h) * float64(maxW) / float64(w)))
	if nh < 1 {
		nh = 1
	}
	return maxW, nh
}

// resize scales src to ScaledSize and flattens it onto white, since JPEG
// has no alpha channel.
func (p *Processor) resize(src image.Image) *image.RGBA {
	sb := src.Bounds()
	w, h := p.ScaledSize(sb.Dx(), sb.Dy())

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	return dst
}

// EncodeDataURL wraps JPEG bytes in a data URL.
func EncodeDataURL(jpegBytes []byte) string {
	return jpegDataURLPrefix + base64.StdEncoding.EncodeToString(jpegBytes)
}

// DecodeDataURL returns the payload and media type of a base64 data URL.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, "", errors.New("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("data URL has no payload")
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", errors.New("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid data URL payload: %w", err)
	}
	return data, mediaType, nil
}
