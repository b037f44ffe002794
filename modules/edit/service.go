package edit

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
	"vision-studio-server/modules/common/mask"
	"vision-studio-server/modules/common/usage"
	"vision-studio-server/modules/common/utils"
)

// EditorSlot - 수정 결과가 쌓이는 히스토리 슬롯 (생성기와 공유)
const EditorSlot = "generationHistory"

// editInstruction - 수정 지시 프롬프트
// 합성 이미지의 rose vif 하이라이트 영역을 참조한다
const editInstruction = `Dans l'image suivante, modifie la zone mise en évidence en rose vif pour qu'elle corresponde à cette description : "%s". Important : Renvoie l'image finale COMPLÈTE et MODIFIÉE, sans le surlignage rose.`

type Service struct {
	store *history.Store
	meter *usage.Meter
}

func NewService(store *history.Store, meter *usage.Meter) *Service {
	log.Println("✅ Edit service initialized")
	return &Service{
		store: store,
		meter: meter,
	}
}

// FlattenComposite - 요청에서 합성 이미지를 얻는다
// 사전 평탄화된 composite가 있으면 그대로, 없으면 strokes를 재생해서 합성
func (s *Service) FlattenComposite(req EditRequest) (string, error) {
	if req.Composite != "" {
		return req.Composite, nil
	}

	if req.Image == "" {
		return "", mask.ErrNoSource
	}

	m := mask.New()
	if err := m.SetSource(req.Image); err != nil {
		return "", fmt.Errorf("failed to load source image: %w", err)
	}

	if req.DisplayWidth > 0 && req.DisplayHeight > 0 {
		m.SetDisplaySize(req.DisplayWidth, req.DisplayHeight)
	}

	// 스트로크 재생
	for _, stroke := range req.Strokes {
		if len(stroke.Points) == 0 {
			continue
		}
		diameter := stroke.Diameter
		if diameter <= 0 {
			diameter = mask.DefaultBrushSize
		}
		m.BeginStroke(stroke.Points[0], diameter)
		for _, p := range stroke.Points[1:] {
			m.ContinueStroke(p)
		}
		m.EndStroke()
	}

	return m.ExportComposite()
}

// PerformEdit - 합성 이미지 + 지시 프롬프트로 Gemini 수정 호출
func (s *Service) PerformEdit(ctx context.Context, composite, prompt string) (string, string, error) {
	cfg := config.GetConfig()

	mimeType, imageData, err := utils.ParseDataURI(composite)
	if err != nil {
		return "", "", fmt.Errorf("invalid composite image: %w", err)
	}

	instruction := fmt.Sprintf(editInstruction, prompt)

	log.Printf("🖌️  [Edit] Sending edit request: model=%s, composite=%d bytes", cfg.ImageEditModel, len(imageData))

	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromBytes(imageData, mimeType),
			genai.NewPartFromText(instruction),
		},
	}

	result, err := gemini.GenerateContentWithRetry(
		ctx,
		cfg.GeminiAPIKeys,
		cfg.ImageEditModel,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	)
	if err != nil {
		return "", "", fmt.Errorf("edit request failed: %w", err)
	}

	imageURL, text := gemini.ExtractImageAndText(result)
	if imageURL == "" {
		return "", "", fmt.Errorf("no image data in edit response")
	}

	log.Printf("✅ [Edit] Edit completed")
	return imageURL, text, nil
}

// RecordHistory - 수정 결과를 에디터 히스토리 슬롯에 기록
func (s *Service) RecordHistory(ctx context.Context, req EditRequest, resultURL string) {
	cfg := config.GetConfig()

	record := history.Record{
		ID:                uuid.New().String(),
		Timestamp:         time.Now().UnixMilli(),
		Prompt:            req.Prompt,
		GeneratedImageURL: utils.DownsizeDataURI(resultURL, cfg.ThumbnailMaxDim),
	}

	base := req.Image
	if base == "" {
		base = req.Composite
	}
	if base != "" {
		record.BaseImageURL = utils.DownsizeDataURI(base, cfg.ThumbnailMaxDim)
	}

	if _, err := s.store.Add(ctx, EditorSlot, record, cfg.GenerationHistoryCap); err != nil {
		log.Printf("⚠️  [Edit] Failed to record history: %v", err)
	}
}

// Meter - 사용량 측정기 접근
func (s *Service) Meter() *usage.Meter {
	return s.meter
}
