package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg" // 임포트만으로 JPEG 디코더도 등록됨
	_ "image/png" // PNG 디코더 등록
	"log"
	"strings"

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	xdraw "golang.org/x/image/draw"
)

// LossyQuality - 히스토리 썸네일 재인코딩 품질
const LossyQuality = 75

// ParseDataURI - data URI에서 MIME 타입과 바이너리 추출
func ParseDataURI(dataURI string) (string, []byte, error) {
	if !strings.HasPrefix(dataURI, "data:") {
		return "", nil, fmt.Errorf("not a data URI")
	}

	comma := strings.Index(dataURI, ",")
	if comma < 0 {
		return "", nil, fmt.Errorf("malformed data URI: no comma")
	}

	meta := dataURI[len("data:"):comma]
	mimeType := strings.TrimSuffix(strings.Split(meta, ";")[0], ";")
	if mimeType == "" {
		mimeType = "image/png"
	}

	data, err := base64.StdEncoding.DecodeString(dataURI[comma+1:])
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}

	return mimeType, data, nil
}

// EncodeDataURI - 바이너리를 data URI로 변환
func EncodeDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// DownsizeDataURI - 히스토리 저장 전 이미지 축소
// 실패해도 절대 에러를 내지 않는다: 축소를 포기하고 원본 문자열을 그대로 반환
// (다운사이즈를 잃는 건 괜찮지만 이미지를 잃으면 안 됨)
func DownsizeDataURI(dataURI string, maxDimension int) string {
	_, data, err := ParseDataURI(dataURI)
	if err != nil {
		log.Printf("⚠️  Cannot parse image for downsizing, keeping original: %v", err)
		return dataURI
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("⚠️  Cannot decode image for downsizing, keeping original: %v", err)
		return dataURI
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxDimension && bounds.Dy() <= maxDimension {
		// 이미 충분히 작으면 그대로 유지 (업스케일 안 함)
		return dataURI
	}

	resized := Downscale(img, maxDimension)

	mimeType, encoded, err := EncodeLossy(resized, LossyQuality)
	if err != nil {
		log.Printf("⚠️  Cannot re-encode downsized image, keeping original: %v", err)
		return dataURI
	}

	log.Printf("🔄 Image downsized: %dx%d → %dx%d (%d → %d bytes)",
		bounds.Dx(), bounds.Dy(), resized.Bounds().Dx(), resized.Bounds().Dy(),
		len(data), len(encoded))

	return EncodeDataURI(mimeType, encoded)
}

// Downscale - max(width, height) == maxDimension이 되도록 축소 (비율 유지)
// 이미 작은 이미지는 그대로 반환
func Downscale(src image.Image, maxDimension int) image.Image {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxDimension && height <= maxDimension {
		return src
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxDimension
		newHeight = height * maxDimension / width
	} else {
		newHeight = maxDimension
		newWidth = width * maxDimension / height
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// EncodeLossy - 손실 압축 재인코딩: WebP 우선, 실패하면 JPEG
func EncodeLossy(img image.Image, quality float32) (string, []byte, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err == nil {
		var webpBuffer bytes.Buffer
		if err := webp.Encode(&webpBuffer, img, options); err == nil {
			return "image/webp", webpBuffer.Bytes(), nil
		}
	}

	// WebP 인코딩 불가 시 JPEG로 폴백
	var jpegBuffer bytes.Buffer
	if err := jpeg.Encode(&jpegBuffer, img, &jpeg.Options{Quality: int(quality)}); err != nil {
		return "", nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return "image/jpeg", jpegBuffer.Bytes(), nil
}
