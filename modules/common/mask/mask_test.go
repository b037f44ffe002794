package mask

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-studio-server/modules/common/utils"
)

func sourceDataURI(t *testing.T, width, height int, fill color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return utils.EncodeDataURI("image/png", buf.Bytes())
}

func TestStateMachine(t *testing.T) {
	m := New()
	assert.Equal(t, StateIdle, m.State())

	require.NoError(t, m.SetSource(sourceDataURI(t, 64, 64, color.RGBA{10, 20, 30, 255})))
	assert.Equal(t, StateReady, m.State())

	m.BeginStroke(Point{X: 10, Y: 10}, 8)
	assert.Equal(t, StatePainting, m.State())

	m.ContinueStroke(Point{X: 20, Y: 20})
	m.EndStroke()
	assert.Equal(t, StateReady, m.State())
	assert.Len(t, m.Strokes(), 1)

	// export는 상태를 바꾸지 않는다
	_, err := m.ExportComposite()
	require.NoError(t, err)
	assert.Equal(t, StateReady, m.State())
	assert.Len(t, m.Strokes(), 1)
}

func TestExportWithoutSourceFailsClosed(t *testing.T) {
	m := New()
	_, err := m.ExportComposite()
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestSetSourceRejectsBadData(t *testing.T) {
	m := New()
	assert.Error(t, m.SetSource("data:image/png;base64,bm90IGFuIGltYWdl"))
	assert.Error(t, m.SetSource("not a data uri at all"))
	assert.Equal(t, StateIdle, m.State())
}

func TestEmptyMaskExportMatchesSource(t *testing.T) {
	fill := color.RGBA{200, 50, 120, 255}
	m := New()
	require.NoError(t, m.SetSource(sourceDataURI(t, 32, 24, fill)))

	exported, err := m.ExportComposite()
	require.NoError(t, err)

	_, data, err := utils.ParseDataURI(exported)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	bounds := decoded.Bounds()
	require.Equal(t, 32, bounds.Dx())
	require.Equal(t, 24, bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := decoded.At(x, y).RGBA()
			assert.Equal(t, uint32(fill.R)*0x101, r)
			assert.Equal(t, uint32(fill.G)*0x101, g)
			assert.Equal(t, uint32(fill.B)*0x101, b)
			assert.Equal(t, uint32(0xffff), a)
		}
	}
}

func TestExportScalesMaskToNativeResolution(t *testing.T) {
	// native 200x200, display 100x100 - display 중앙의 점은 native 중앙에 찍혀야 함
	m := New()
	require.NoError(t, m.SetSource(sourceDataURI(t, 200, 200, color.RGBA{0, 0, 0, 255})))
	m.SetDisplaySize(100, 100)

	m.BeginStroke(Point{X: 50, Y: 50}, 20)
	m.EndStroke()

	exported, err := m.ExportComposite()
	require.NoError(t, err)

	_, data, err := utils.ParseDataURI(exported)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 200, decoded.Bounds().Dx())

	// native 중앙(100,100)은 핑크가 섞여야 하고, 구석(5,5)은 검정 그대로
	r, g, b, _ := decoded.At(100, 100).RGBA()
	assert.Greater(t, r, uint32(0), "highlight should tint the center")
	assert.Greater(t, b, uint32(0))

	r, g, b, _ = decoded.At(5, 5).RGBA()
	assert.Zero(t, r)
	assert.Zero(t, g)
	assert.Zero(t, b)
}

func TestExportToleratesMidStroke(t *testing.T) {
	m := New()
	require.NoError(t, m.SetSource(sourceDataURI(t, 50, 50, color.RGBA{0, 0, 0, 255})))

	m.BeginStroke(Point{X: 25, Y: 25}, 10)
	m.ContinueStroke(Point{X: 30, Y: 25})
	// EndStroke 없이 export - 진행 중 스트로크가 포함되어야 함

	exported, err := m.ExportComposite()
	require.NoError(t, err)

	_, data, err := utils.ParseDataURI(exported)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	r, _, _, _ := decoded.At(25, 25).RGBA()
	assert.Greater(t, r, uint32(0))
	assert.Equal(t, StatePainting, m.State())
}

func TestRasterizeCoverage(t *testing.T) {
	strokes := []Stroke{{
		Points:   []Point{{X: 20, Y: 20}},
		Diameter: 10,
	}}

	layer := Rasterize(strokes, 40, 40)

	// 중심은 칠해지고
	_, _, _, a := layer.At(20, 20).RGBA()
	assert.Greater(t, a, uint32(0))

	// 반지름 밖은 투명
	_, _, _, a = layer.At(20, 30).RGBA()
	assert.Zero(t, a)
	_, _, _, a = layer.At(0, 0).RGBA()
	assert.Zero(t, a)
}

func TestRasterizeConnectsSegments(t *testing.T) {
	strokes := []Stroke{{
		Points:   []Point{{X: 5, Y: 20}, {X: 35, Y: 20}},
		Diameter: 6,
	}}

	layer := Rasterize(strokes, 40, 40)

	// 선분 중간 지점들도 전부 칠해져 있어야 함 (끊긴 선 방지)
	for x := 5; x <= 35; x++ {
		_, _, _, a := layer.At(x, 20).RGBA()
		assert.Greater(t, a, uint32(0), "gap at x=%d", x)
	}
}

func TestSetDisplaySizeResetsMask(t *testing.T) {
	m := New()
	require.NoError(t, m.SetSource(sourceDataURI(t, 64, 64, color.RGBA{0, 0, 0, 255})))

	m.BeginStroke(Point{X: 10, Y: 10}, 10)
	m.EndStroke()
	require.Len(t, m.Strokes(), 1)

	// 같은 크기로는 리셋 안 함
	m.SetDisplaySize(64, 64)
	assert.Len(t, m.Strokes(), 1)

	// 크기가 바뀌면 마스크 초기화 (좌표가 틀어지므로)
	m.SetDisplaySize(32, 32)
	assert.Empty(t, m.Strokes())
}
