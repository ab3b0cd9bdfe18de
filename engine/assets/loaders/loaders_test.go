package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestLoadImageDecodesRGBA8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "albedo.png")
	writePNG(t, path, 4, 2, color.NRGBA{R: 255, G: 128, B: 0, A: 255})

	img, err := LoadImage(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	require.Len(t, img.Pixels, 4*2*4)
	assert.Equal(t, []byte{255, 128, 0, 255}, img.Pixels[:4])

	spec := img.Spec("albedo")
	assert.Equal(t, gpu.FormatRGBA8, spec.Format)
	assert.Equal(t, gpu.TextureKind2D, spec.Kind)
	assert.Equal(t, uint32(1), spec.MipLevels)
}

func TestLoadImageMissingFile(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "absent.png"))
	assert.Error(t, err)
}

func TestLoadCubemapFaces(t *testing.T) {
	dir := t.TempDir()
	var paths [6]string
	for i := range paths {
		paths[i] = filepath.Join(dir, "face"+string(rune('0'+i))+".png")
		writePNG(t, paths[i], 2, 2, color.NRGBA{R: byte(i * 40), A: 255})
	}

	img, err := LoadCubemapFaces(paths)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), img.Width)
	assert.Len(t, img.Pixels, 2*2*4*6)
	// Third face's pixels start after two full layers.
	assert.Equal(t, byte(2*40), img.Pixels[2*(2*2*4)])

	assert.Equal(t, gpu.TextureKindCube, img.CubeSpec("sky").Kind)
}

func TestLoadCubemapFacesRejectsMismatchedSizes(t *testing.T) {
	dir := t.TempDir()
	var paths [6]string
	for i := range paths {
		paths[i] = filepath.Join(dir, "face"+string(rune('0'+i))+".png")
		size := 2
		if i == 3 {
			size = 4
		}
		writePNG(t, paths[i], size, size, color.NRGBA{A: 255})
	}

	_, err := LoadCubemapFaces(paths)
	assert.Error(t, err)
}

func TestLoadShaderSourceResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noise.glsl"),
		[]byte("float noise(vec2 p) { return fract(sin(dot(p, vec2(12.9898, 78.233))) * 43758.5453); }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dissolve.frag"),
		[]byte("#include \"noise.glsl\"\nif (noise(vTexCoord) < uDissolve) discard;\n"), 0o644))

	src, err := LoadShaderSource(filepath.Join(dir, "dissolve.frag"))
	require.NoError(t, err)
	assert.Contains(t, src, "float noise(vec2 p)")
	assert.Contains(t, src, "discard;")
	assert.NotContains(t, src, "#include")
}

func TestLoadShaderSourceIncludeCycleFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.glsl"), []byte("#include \"b.glsl\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.glsl"), []byte("#include \"a.glsl\"\n"), 0o644))

	_, err := LoadShaderSource(filepath.Join(dir, "a.glsl"))
	assert.Error(t, err)
}
