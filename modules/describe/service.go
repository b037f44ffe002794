package describe

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"

	"vision-studio-server/modules/common/config"
	"vision-studio-server/modules/common/gemini"
	"vision-studio-server/modules/common/utils"
)

// defaultInstruction - 이미지 재현용 프롬프트를 뽑아내는 기본 지시문
const defaultInstruction = "Décris cette image avec un niveau de détail extrême, en te concentrant sur les éléments visuels, le style artistique, la composition, l'éclairage, la palette de couleurs et l'ambiance générale. Le but est de créer un prompt textuel qui pourrait être utilisé par une intelligence artificielle génératrice d'images pour recréer une image aussi similaire que possible."

type Service struct{}

func NewService() *Service {
	log.Println("✅ Describe service initialized")
	return &Service{}
}

// DescribeImage - 이미지에서 프롬프트 텍스트 생성
func (s *Service) DescribeImage(ctx context.Context, req DescribeRequest) (string, error) {
	cfg := config.GetConfig()

	mimeType, imageData, err := utils.ParseDataURI(req.Image)
	if err != nil {
		return "", fmt.Errorf("invalid image: %w", err)
	}

	instruction := req.Instruction
	if instruction == "" {
		instruction = defaultInstruction
	}

	log.Printf("📝 [Describe] Describing image: model=%s, image=%d bytes", cfg.DescribeModel, len(imageData))

	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromBytes(imageData, mimeType),
			genai.NewPartFromText(instruction),
		},
	}

	result, err := gemini.GenerateContentWithRetry(
		ctx,
		cfg.GeminiAPIKeys,
		cfg.DescribeModel,
		[]*genai.Content{content},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("describe request failed: %w", err)
	}

	_, text := gemini.ExtractImageAndText(result)
	if text == "" {
		return "", fmt.Errorf("no text in describe response")
	}

	log.Printf("✅ [Describe] Description generated (%d chars)", len(text))
	return text, nil
}
