package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngDataURI(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 100, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return EncodeDataURI("image/png", buf.Bytes())
}

func TestParseDataURIRoundTrip(t *testing.T) {
	original := []byte{0x89, 0x50, 0x4e, 0x47}
	uri := EncodeDataURI("image/png", original)

	mimeType, data, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, original, data)
}

func TestParseDataURIRejectsGarbage(t *testing.T) {
	_, _, err := ParseDataURI("https://example.com/image.png")
	assert.Error(t, err)

	_, _, err = ParseDataURI("data:image/png;base64")
	assert.Error(t, err)

	_, _, err = ParseDataURI("data:image/png;base64,not-valid-base64!!!")
	assert.Error(t, err)
}

func TestDownsizeFailOpen(t *testing.T) {
	// 디코딩 불가능한 입력은 원본 그대로 반환 (에러도, 빈 문자열도 아님)
	garbage := "data:image/png;base64,aGVsbG8gd29ybGQ="
	assert.Equal(t, garbage, DownsizeDataURI(garbage, 256))

	notAURI := "definitely not an image"
	assert.Equal(t, notAURI, DownsizeDataURI(notAURI, 256))
}

func TestDownsizeKeepsSmallImages(t *testing.T) {
	small := pngDataURI(t, 100, 80)
	assert.Equal(t, small, DownsizeDataURI(small, 256))
}

func TestDownsizeShrinksLargeImages(t *testing.T) {
	large := pngDataURI(t, 1024, 512)
	resized := DownsizeDataURI(large, 256)

	require.NotEqual(t, large, resized)
	assert.True(t, strings.HasPrefix(resized, "data:image/"))

	mimeType, data, err := ParseDataURI(resized)
	require.NoError(t, err)
	assert.Contains(t, []string{"image/webp", "image/jpeg"}, mimeType)

	decoded, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Bounds().Dx())
	assert.Equal(t, 128, decoded.Bounds().Dy())
}

func TestDownscaleDimensions(t *testing.T) {
	tall := image.NewRGBA(image.Rect(0, 0, 300, 900))
	resized := Downscale(tall, 256)
	assert.Equal(t, 85, resized.Bounds().Dx()) // 300 * 256 / 900
	assert.Equal(t, 256, resized.Bounds().Dy())

	square := image.NewRGBA(image.Rect(0, 0, 512, 512))
	resized = Downscale(square, 256)
	assert.Equal(t, 256, resized.Bounds().Dx())
	assert.Equal(t, 256, resized.Bounds().Dy())

	// 업스케일 안 함
	tiny := image.NewRGBA(image.Rect(0, 0, 32, 16))
	assert.Same(t, tiny, Downscale(tiny, 256))
}
