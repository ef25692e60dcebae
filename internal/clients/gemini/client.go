// Package gemini は生成モデルによる動画評価の呼び出しと、
// モデルが返す緩い形式の JSON の解析を担当する。
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"VideoCoach-admin/internal/config"
	"VideoCoach-admin/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client は Gemini API とやり取りする。
type Client struct {
	model *genai.GenerativeModel
}

// NewClient は Gemini クライアントを生成する。
// 出力はサイズ上限付き・低ランダム性 (ほぼ決定的) に固定する。
func NewClient(ctx context.Context, cfg config.GeminiClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API Key が空です")
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-pro-002"
		log.Printf("警告：[Gemini Client] モデル名が未指定のためデフォルトを使用します: %s\n", modelName)
	}

	sdkClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("Gemini SDK クライアントを生成できません: %w", err)
	}

	model := sdkClient.GenerativeModel(modelName)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.SetTemperature(0.4)
	model.SetTopP(1)
	model.SetTopK(32)
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	model.SetMaxOutputTokens(maxTokens)
	log.Printf("情報：[Gemini Client] モデル '%s' を初期化しました。\n", modelName)

	return &Client{model: model}, nil
}

// AnalyzeVideoURL は動画 URL をプロンプトに埋め込んだ形で評価を依頼する。
// YouTube 公開済みの動画はこちらの経路を使う。
func (c *Client) AnalyzeVideoURL(ctx context.Context, prompt string) (*models.EvaluationData, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("分析プロンプトが空です")
	}
	return c.generate(ctx, genai.Text(prompt))
}

// AnalyzeVideoData はローカル保存された動画のバイト列を直接添付して評価を依頼する。
func (c *Client) AnalyzeVideoData(ctx context.Context, prompt string, data []byte, filename string) (*models.EvaluationData, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("分析プロンプトが空です")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("動画データが空です")
	}
	blob := genai.Blob{MIMEType: videoMIMEType(filename), Data: data}
	return c.generate(ctx, genai.Text(prompt), blob)
}

func (c *Client) generate(ctx context.Context, parts ...genai.Part) (*models.EvaluationData, error) {
	log.Println("情報：[Gemini Client] Gemini API へリクエストを送信しています...")
	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API の GenerateContent に失敗しました: %w", err)
	}
	raw, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return ParseEvaluation(raw)
}

// responseText は最初の候補からテキストを連結して取り出す。
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini API の応答が空です (候補なし)")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			for _, rating := range candidate.SafetyRatings {
				log.Printf("警告：[Gemini Client] 安全性評価 - Category: %s, Probability: %s\n", rating.Category, rating.Probability)
			}
			return "", fmt.Errorf("Gemini API の応答がブロックされました (FinishReason: %s)", candidate.FinishReason.String())
		}
		return "", fmt.Errorf("Gemini API の応答にコンテンツがありません (FinishReason: %s)", candidate.FinishReason.String())
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		} else {
			log.Printf("警告：[Gemini Client] 想定外の Part 型を受け取りました: %T\n", part)
		}
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Gemini API が空のテキストを返しました")
	}
	return text, nil
}

// ParseEvaluation はモデルの生テキストから最初の JSON オブジェクトを取り出して
// EvaluationData に変換する。コードフェンスを除去し、末尾の閉じ括弧以降の
// 余計な文章を切り捨てる。解析失敗は ResponseFormatError。
// 生テキストは診断用にログへ残すが、結果としては永続化しない。
func ParseEvaluation(raw string) (*models.EvaluationData, error) {
	cleaned := extractJSON(raw)
	var data models.EvaluationData
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		log.Printf("エラー：[Gemini Client] 応答を JSON として解析できません。生テキスト:\nRAW_START\n%s\nRAW_END\n", raw)
		return nil, &models.ResponseFormatError{Cause: err}
	}
	return &data, nil
}

// extractJSON は応答テキストから JSON オブジェクト部分を切り出す。
func extractJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	// 末尾の閉じ括弧以降はモデルの余談として捨てる
	if idx := strings.LastIndex(cleaned, "}"); idx != -1 {
		cleaned = cleaned[:idx+1]
	}
	if idx := strings.Index(cleaned, "{"); idx > 0 {
		cleaned = cleaned[idx:]
	}
	return strings.TrimSpace(cleaned)
}

// videoMIMEType は拡張子から MIME タイプを推定する。
func videoMIMEType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mov":
		return "video/quicktime"
	case ".mpeg", ".mpg":
		return "video/mpeg"
	case ".avi":
		return "video/x-msvideo"
	case ".wmv":
		return "video/x-ms-wmv"
	case ".flv":
		return "video/x-flv"
	case ".webm":
		return "video/webm"
	default:
		return "video/mp4"
	}
}
