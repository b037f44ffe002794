package gemini

import (
	"google.golang.org/genai"

	"vision-studio-server/modules/common/utils"
)

// ExtractImageAndText - GenerateContent 응답에서 첫 이미지(data URI)와 텍스트 추출
// 이미지는 InlineData로 반환된다
func ExtractImageAndText(result *genai.GenerateContentResponse) (imageURL, text string) {
	if result == nil {
		return "", ""
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part.Text != "" && text == "" {
				text = part.Text
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 && imageURL == "" {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				imageURL = utils.EncodeDataURI(mimeType, part.InlineData.Data)
			}
		}

		if imageURL != "" {
			break
		}
	}

	return imageURL, text
}
