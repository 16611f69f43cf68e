package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Call は生成バックエンドへの1回の呼び出し内容。
type Call struct {
	Model string
	// SystemInstruction はシステム指示。空の場合は送信しない。
	SystemInstruction string
	Prompt            string
	// Images はJPEGとして添付する画像データ。
	Images [][]byte
	// Schema が指定された場合、応答をapplication/jsonとしてこのスキーマに従わせる。
	Schema *genai.Schema
}

// Backend は生成モデルを呼び出すインターフェース。
// 応答のテキスト部分を連結して返す。
type Backend interface {
	Generate(ctx context.Context, call Call) (string, error)
}

// GeminiConfig はGeminiBackendの設定。
type GeminiConfig struct {
	APIKey string
	// BaseURL はAPIエンドポイントの上書き。テストやプロキシ経由で使用する。
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiBackend はGemini APIを使用するBackend。
type GeminiBackend struct {
	client *genai.Client
}

// NewGeminiBackend はGeminiBackendを生成する。
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

// Generate はテキストと画像を1つのユーザーコンテンツとして送信する。
func (b *GeminiBackend) Generate(ctx context.Context, call Call) (string, error) {
	parts := make([]*genai.Part, 0, 1+len(call.Images))
	parts = append(parts, genai.NewPartFromText(call.Prompt))
	for _, img := range call.Images {
		parts = append(parts, genai.NewPartFromBytes(img, imageMIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{}
	if call.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(call.SystemInstruction, genai.RoleUser)
	}
	if call.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = call.Schema
	}

	resp, err := b.client.Models.GenerateContent(ctx, call.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return responseText(resp)
}

// responseText は最初の候補のテキスト部分(思考過程を除く)を連結する。
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", errors.New("gemini returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

// compile-time interface check
var _ Backend = (*GeminiBackend)(nil)
