package render

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
)

// frameDelay is the per-frame display time in hundredths of a second.
const frameDelay = 50

// assembleGIF encodes the frame files into a single animation. Frames are
// consumed in the order given, which is date order by construction; the
// sequence is never derived from a directory listing.
func assembleGIF(framePaths []string, outPath string) error {
	anim := &gif.GIF{}
	for _, path := range framePaths {
		img, err := readFrame(path)
		if err != nil {
			return err
		}
		anim.Image = append(anim.Image, img)
		anim.Delay = append(anim.Delay, frameDelay)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".laguz-anim-*")
	if err != nil {
		return fmt.Errorf("render: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := gif.EncodeAll(tmp, anim); err != nil {
		return fmt.Errorf("render: encode animation: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("render: close temp: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("render: rename animation: %w", err)
	}
	success = true
	return nil
}

// readFrame decodes a PNG frame and quantizes it onto the stock palette
// GIF encoding needs.
func readFrame(path string) (*image.Paletted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("render: open frame %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("render: decode frame %s: %w", path, err)
	}

	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, palette.Plan9)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)
	return paletted, nil
}
