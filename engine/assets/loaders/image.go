// Package loaders decodes the on-disk assets the renderer consumes: RGBA8
// image pixels for textures and cubemap faces, and GLSL source text for
// custom shaders.
package loaders

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

// Image holds decoded RGBA8 pixels, tightly packed, top row first.
type Image struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

// Spec fills a 2D texture spec for the decoded pixels.
func (img *Image) Spec(name string) gpu.TextureSpec {
	return gpu.TextureSpec{
		Name:      name,
		Width:     img.Width,
		Height:    img.Height,
		Format:    gpu.FormatRGBA8,
		MipLevels: 1,
		Kind:      gpu.TextureKind2D,
	}
}

// CubeSpec fills a cube texture spec; Pixels must hold six face layers.
func (img *Image) CubeSpec(name string) gpu.TextureSpec {
	spec := img.Spec(name)
	spec.Kind = gpu.TextureKindCube
	return spec
}

// LoadImage decodes a PNG, JPEG, BMP or TIFF file into RGBA8 pixels.
func LoadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("image %s: %w", path, err)
	}
	return convertRGBA(src), nil
}

func convertRGBA(src image.Image) *Image {
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return &Image{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Pixels: rgba.Pix,
	}
}

// LoadCubemapFaces decodes six same-sized face images in +X, -X, +Y, -Y,
// +Z, -Z order and returns the concatenated layer pixels for a cube texture
// upload.
func LoadCubemapFaces(paths [6]string) (*Image, error) {
	var out *Image
	for i, path := range paths {
		face, err := LoadImage(path)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = &Image{
				Width:  face.Width,
				Height: face.Height,
				Pixels: make([]byte, 0, len(face.Pixels)*6),
			}
		} else if face.Width != out.Width || face.Height != out.Height {
			return nil, fmt.Errorf("cubemap face %d (%s): size %dx%d does not match %dx%d",
				i, path, face.Width, face.Height, out.Width, out.Height)
		}
		out.Pixels = append(out.Pixels, face.Pixels...)
	}
	return out, nil
}
