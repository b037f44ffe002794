package mask

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"

	"vision-studio-server/modules/common/utils"
)

// HighlightColor - 수정 영역 표시 색 (밝은 핑크, 60% 불투명)
// 편집 프롬프트가 이 색을 기준으로 "rose vif" 영역을 참조하므로 바꾸면 안 됨
var HighlightColor = color.NRGBA{R: 255, G: 0, B: 150, A: 153}

// DefaultBrushSize - 기본 브러시 지름 (display 픽셀)
const DefaultBrushSize = 20.0

// ErrNoSource - 소스 이미지 없이 export 시도
var ErrNoSource = errors.New("no source image loaded")

// State - 마스크 상태
type State int

const (
	StateIdle State = iota // 소스 없음
	StateReady
	StatePainting
)

// Point - display 좌표계의 한 점
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke - 브러시 스트로크 하나 (display 좌표, round cap/join)
type Stroke struct {
	Points   []Point `json:"points"`
	Diameter float64 `json:"diameter"`
}

// Mask - 소스 이미지 + display 크기 마스크 표면
// 렌더링 표면과 분리된 순수 자료구조; export만 픽셀을 만진다
type Mask struct {
	source   image.Image // native 해상도
	displayW int
	displayH int
	strokes  []Stroke
	active   *Stroke
}

// New - 빈 마스크 생성 (Idle 상태)
func New() *Mask {
	return &Mask{}
}

// SetSource - 소스 이미지 로드 (data URI, native 해상도로 디코딩)
// 마스크 표면은 초기화된다. 디코딩 실패는 fail-closed
func (m *Mask) SetSource(dataURI string) error {
	_, data, err := utils.ParseDataURI(dataURI)
	if err != nil {
		return fmt.Errorf("cannot read source image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("cannot decode source image: %w", err)
	}

	m.source = img
	m.strokes = nil
	m.active = nil

	// display 크기가 아직 없으면 native 크기로 시작
	if m.displayW == 0 || m.displayH == 0 {
		m.displayW = img.Bounds().Dx()
		m.displayH = img.Bounds().Dy()
	}
	return nil
}

// SetDisplaySize - 표시 크기 변경 (마스크 표면도 새 크기로 리셋)
// display 크기와 마스크 해상도는 항상 정확히 일치해야 좌표가 맞는다
func (m *Mask) SetDisplaySize(width, height int) {
	if width == m.displayW && height == m.displayH {
		return
	}
	m.displayW = width
	m.displayH = height
	m.strokes = nil
	m.active = nil
}

// State - 현재 상태
func (m *Mask) State() State {
	switch {
	case m.source == nil:
		return StateIdle
	case m.active != nil:
		return StatePainting
	default:
		return StateReady
	}
}

// BeginStroke - 새 스트로크 시작 (display 좌표)
func (m *Mask) BeginStroke(p Point, diameter float64) {
	if diameter <= 0 {
		diameter = DefaultBrushSize
	}
	m.active = &Stroke{Points: []Point{p}, Diameter: diameter}
}

// ContinueStroke - 진행 중인 스트로크에 점 추가
func (m *Mask) ContinueStroke(p Point) {
	if m.active == nil {
		return
	}
	m.active.Points = append(m.active.Points, p)
}

// EndStroke - 스트로크 확정
func (m *Mask) EndStroke() {
	if m.active == nil {
		return
	}
	m.strokes = append(m.strokes, *m.active)
	m.active = nil
}

// Strokes - 확정 + 진행 중 스트로크 전부 (export는 진행 중인 것도 포함)
func (m *Mask) Strokes() []Stroke {
	out := make([]Stroke, 0, len(m.strokes)+1)
	out = append(out, m.strokes...)
	if m.active != nil {
		out = append(out, *m.active)
	}
	return out
}

// Clear - 마스크만 초기화 (소스 유지)
func (m *Mask) Clear() {
	m.strokes = nil
	m.active = nil
}

// Rasterize - 스트로크를 주어진 크기의 RGBA 버퍼로 렌더링 (순수 함수)
// 스트로크마다 하이라이트 색을 한 번씩 합성한다 (겹치면 진해짐, 캔버스 stroke()와 동일)
func Rasterize(strokes []Stroke, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	tint := image.NewUniform(HighlightColor)

	for _, stroke := range strokes {
		coverage := strokeCoverage(stroke, width, height)
		xdraw.DrawMask(out, out.Bounds(), tint, image.Point{}, coverage, image.Point{}, xdraw.Over)
	}
	return out
}

// strokeCoverage - 스트로크 하나의 커버리지 (이진 알파)
// 선분을 따라 반지름 d/2 원을 찍는다: round cap, round join
func strokeCoverage(stroke Stroke, width, height int) *image.Alpha {
	coverage := image.NewAlpha(image.Rect(0, 0, width, height))
	radius := stroke.Diameter / 2
	if radius <= 0 {
		radius = DefaultBrushSize / 2
	}

	points := stroke.Points
	if len(points) == 0 {
		return coverage
	}

	stampCircle(coverage, points[0], radius)
	for i := 1; i < len(points); i++ {
		stampSegment(coverage, points[i-1], points[i], radius)
	}
	return coverage
}

// stampSegment - 두 점 사이를 1px 간격으로 원을 찍어 선분을 채움
func stampSegment(coverage *image.Alpha, from, to Point, radius float64) {
	dx := to.X - from.X
	dy := to.Y - from.Y
	length := math.Hypot(dx, dy)

	steps := int(math.Ceil(length))
	if steps == 0 {
		stampCircle(coverage, to, radius)
		return
	}

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		stampCircle(coverage, Point{X: from.X + dx*t, Y: from.Y + dy*t}, radius)
	}
}

func stampCircle(coverage *image.Alpha, center Point, radius float64) {
	minX := int(math.Floor(center.X - radius))
	maxX := int(math.Ceil(center.X + radius))
	minY := int(math.Floor(center.Y - radius))
	maxY := int(math.Ceil(center.Y + radius))

	bounds := coverage.Bounds()
	radiusSq := radius * radius

	for y := minY; y <= maxY; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			distX := float64(x) + 0.5 - center.X
			distY := float64(y) + 0.5 - center.Y
			if distX*distX+distY*distY <= radiusSq {
				coverage.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
}

// ExportComposite - 소스 + 마스크를 native 해상도로 합성한 PNG data URI
// 소스가 없으면 ErrNoSource (fail-closed). 스트로크 진행 중에도 호출 가능
func (m *Mask) ExportComposite() (string, error) {
	if m.source == nil {
		return "", ErrNoSource
	}

	bounds := m.source.Bounds()
	nativeW := bounds.Dx()
	nativeH := bounds.Dy()

	// 소스를 native 해상도로 깔고
	out := image.NewRGBA(image.Rect(0, 0, nativeW, nativeH))
	xdraw.Draw(out, out.Bounds(), m.source, bounds.Min, xdraw.Src)

	// 마스크를 display → native로 스케일해서 위에 덮는다
	strokes := m.Strokes()
	if len(strokes) > 0 {
		maskLayer := Rasterize(strokes, m.displayW, m.displayH)
		xdraw.CatmullRom.Scale(out, out.Bounds(), maskLayer, maskLayer.Bounds(), xdraw.Over, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return "", fmt.Errorf("failed to encode composite: %w", err)
	}
	return utils.EncodeDataURI("image/png", buf.Bytes()), nil
}

// CompositeAtResolution - 소스/마스크 픽셀 버퍼를 목표 해상도로 합성 (순수 함수)
func CompositeAtResolution(source image.Image, maskLayer image.Image, targetWidth, targetHeight int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	xdraw.CatmullRom.Scale(out, out.Bounds(), source, source.Bounds(), xdraw.Src, nil)
	if maskLayer != nil {
		xdraw.CatmullRom.Scale(out, out.Bounds(), maskLayer, maskLayer.Bounds(), xdraw.Over, nil)
	}
	return out
}
