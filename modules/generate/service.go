package generate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"vision-studio-server/modules/common/config"
	"vision-studio-server/modules/common/gemini"
	"vision-studio-server/modules/common/history"
	"vision-studio-server/modules/common/usage"
	"vision-studio-server/modules/common/utils"
)

// GenerationSlot - 생성 결과가 쌓이는 히스토리 슬롯
const GenerationSlot = "generationHistory"

type Service struct {
	store *history.Store
	meter *usage.Meter
}

func NewService(store *history.Store, meter *usage.Meter) *Service {
	log.Println("✅ Generate service initialized")
	return &Service{
		store: store,
		meter: meter,
	}
}

// BuildFinalPrompt - 프롬프트 + 네거티브 프롬프트 조합
// 네거티브 프롬프트는 "Ne pas inclure : ..." 접미사로 붙는다
func BuildFinalPrompt(prompt, negativePrompt string) string {
	if negativePrompt == "" {
		return prompt
	}
	return fmt.Sprintf("%s. Ne pas inclure : %s", prompt, negativePrompt)
}

// GenerateImages - 이미지 생성 (텍스트 전용이면 Imagen, 입력 이미지가 있으면 flash-image)
// 성공 시 data URI 배열 반환
func (s *Service) GenerateImages(ctx context.Context, req GenerateRequest) ([]string, error) {
	fullPrompt := BuildFinalPrompt(req.Prompt, req.NegativePrompt)

	if req.InputImage == "" {
		return s.generateFromText(ctx, fullPrompt, req.AspectRatio, req.NumberOfImages, req.Seed)
	}
	return s.generateFromImage(ctx, fullPrompt, req.InputImage, req.AspectRatio)
}

// generateFromText - Imagen 모델로 텍스트→이미지 생성
func (s *Service) generateFromText(ctx context.Context, prompt, aspectRatio string, count int, seed *int64) ([]string, error) {
	cfg := config.GetConfig()

	log.Printf("🎨 [Generate] Text-to-image: model=%s, count=%d, ratio=%s", cfg.ImagenModel, count, aspectRatio)

	client, err := gemini.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	genConfig := &genai.GenerateImagesConfig{
		NumberOfImages: int32(count),
		OutputMIMEType: "image/jpeg",
		AspectRatio:    aspectRatio,
	}
	if seed != nil {
		seed32 := int32(*seed)
		genConfig.Seed = &seed32
	}

	result, err := client.Models.GenerateImages(ctx, cfg.ImagenModel, prompt, genConfig)
	if err != nil {
		return nil, fmt.Errorf("imagen request failed: %w", err)
	}

	if len(result.GeneratedImages) == 0 {
		return nil, fmt.Errorf("no image was generated")
	}

	urls := make([]string, 0, len(result.GeneratedImages))
	for _, img := range result.GeneratedImages {
		if img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		urls = append(urls, utils.EncodeDataURI("image/jpeg", img.Image.ImageBytes))
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("no image data in imagen response")
	}

	log.Printf("✅ [Generate] %d image(s) generated", len(urls))
	return urls, nil
}

// generateFromImage - flash-image 모델로 이미지+텍스트→이미지 생성 (항상 1장)
func (s *Service) generateFromImage(ctx context.Context, prompt, inputImage, aspectRatio string) ([]string, error) {
	cfg := config.GetConfig()

	mimeType, imageData, err := utils.ParseDataURI(inputImage)
	if err != nil {
		return nil, fmt.Errorf("invalid input image: %w", err)
	}

	log.Printf("🎨 [Generate] Image-to-image: model=%s, input=%d bytes", cfg.ImageEditModel, len(imageData))

	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromBytes(imageData, mimeType),
			genai.NewPartFromText(prompt),
		},
	}

	result, err := gemini.GenerateContentWithRetry(
		ctx,
		cfg.GeminiAPIKeys,
		cfg.ImageEditModel,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
			ImageConfig: &genai.ImageConfig{
				AspectRatio: aspectRatio,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("image generation request failed: %w", err)
	}

	imageURL, _ := gemini.ExtractImageAndText(result)
	if imageURL == "" {
		return nil, fmt.Errorf("no image data in response")
	}

	log.Printf("✅ [Generate] 1 image generated from input image")
	return []string{imageURL}, nil
}

// RecordHistory - 생성 결과를 히스토리 슬롯에 기록
// 이미지 필드는 저장 전에 전부 다운사이즈된다
func (s *Service) RecordHistory(ctx context.Context, req GenerateRequest, imageURLs []string) {
	cfg := config.GetConfig()

	downsized := make([]string, len(imageURLs))
	for i, url := range imageURLs {
		downsized[i] = utils.DownsizeDataURI(url, cfg.ThumbnailMaxDim)
	}

	record := history.Record{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UnixMilli(),
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
		ModelStyle:     req.ModelStyle,
		Seed:           req.Seed,
		NumberOfImages: req.NumberOfImages,
		ImageURLs:      downsized,
	}

	if req.InputImage != "" {
		record.InputImageURLs = []string{utils.DownsizeDataURI(req.InputImage, cfg.ThumbnailMaxDim)}
	}

	if _, err := s.store.Add(ctx, GenerationSlot, record, cfg.GenerationHistoryCap); err != nil {
		// 히스토리 기록 실패는 생성 성공을 번복하지 않는다
		log.Printf("⚠️  [Generate] Failed to record history: %v", err)
	}
}

// Meter - 사용량 측정기 접근 (핸들러에서 한도 확인용)
func (s *Service) Meter() *usage.Meter {
	return s.meter
}

// Store - 히스토리 스토어 접근
func (s *Service) Store() *history.Store {
	return s.store
}
