package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"vision-studio-server/modules/common/config"
)

// NewClient - 기본 API 키로 Gemini 클라이언트 생성
func NewClient(ctx context.Context) (*genai.Client, error) {
	cfg := config.GetConfig()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKeys[0],
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Genai client: %w", err)
	}
	return client, nil
}
