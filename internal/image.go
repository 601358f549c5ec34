package internal

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	FillSolid    = "solid"
	FillGradient = "gradient"
)

// ImageSpec describes the synthetic avatar sent by the probe.
type ImageSpec struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Fill        string `json:"fill"`
	Color       string `json:"color"`
	Format      string `json:"format"`
	Quality     int    `json:"quality"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// SyntheticImage is an encoded image ready for the multipart body.
type SyntheticImage struct {
	Data        []byte
	Filename    string
	ContentType string
	Width       int
	Height      int
}

func (s *SyntheticImage) Summary() *ImageSummary {
	return &ImageSummary{
		Filename:    s.Filename,
		ContentType: s.ContentType,
		Width:       s.Width,
		Height:      s.Height,
		Size:        len(s.Data),
	}
}

var namedColors = map[string]color.NRGBA{
	"red":   {R: 255, A: 255},
	"green": {G: 128, A: 255},
	"blue":  {B: 255, A: 255},
	"white": {R: 255, G: 255, B: 255, A: 255},
	"black": {A: 255},
	"gray":  {R: 128, G: 128, B: 128, A: 255},
}

// PIL's JPEG default, which the original fixtures were produced with.
const defaultJPEGQuality = 75

func GenerateImage(spec ImageSpec) (*SyntheticImage, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", spec.Width, spec.Height)
	}

	var img *image.NRGBA
	switch strings.ToLower(spec.Fill) {
	case "", FillSolid:
		fill, err := parseColor(spec.Color)
		if err != nil {
			return nil, err
		}
		img = imaging.New(spec.Width, spec.Height, fill)
	case FillGradient:
		img = gradientImage(spec.Width, spec.Height)
	default:
		return nil, fmt.Errorf("unknown image fill %q (must be solid or gradient)", spec.Fill)
	}

	format, contentType, ext, err := imageFormat(spec.Format)
	if err != nil {
		return nil, err
	}

	quality := spec.Quality
	if quality <= 0 {
		quality = defaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	filename := spec.Filename
	if filename == "" {
		filename = "test_avatar" + ext
	}
	if spec.ContentType != "" {
		contentType = spec.ContentType
	}

	return &SyntheticImage{
		Data:        buf.Bytes(),
		Filename:    filename,
		ContentType: contentType,
		Width:       spec.Width,
		Height:      spec.Height,
	}, nil
}

// gradientImage sets pixel (x, y) to (x/2, y/2, 128), clamped to 255.
func gradientImage(width, height int) *image.NRGBA {
	img := imaging.New(width, height, color.NRGBA{A: 255})
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(min(255, x/2)),
				G: uint8(min(255, y/2)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func imageFormat(name string) (imaging.Format, string, string, error) {
	switch strings.ToLower(name) {
	case "", "jpeg", "jpg":
		return imaging.JPEG, "image/jpeg", ".jpg", nil
	case "png":
		return imaging.PNG, "image/png", ".png", nil
	}
	return 0, "", "", fmt.Errorf("unsupported image format %q (must be jpeg or png)", name)
}

func parseColor(name string) (color.NRGBA, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return namedColors["blue"], nil
	}
	if c, ok := namedColors[name]; ok {
		return c, nil
	}
	if strings.HasPrefix(name, "#") && len(name) == 7 {
		var r, g, b uint8
		if _, err := fmt.Sscanf(name, "#%02x%02x%02x", &r, &g, &b); err == nil {
			return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
		}
	}
	return color.NRGBA{}, fmt.Errorf("unknown color %q", name)
}
