package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GeminiBaseURL Gemini REST 入口，测试时可替换为 httptest 服务地址
var GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrModelOverloaded 模型过载（429/503 或报文提示 overloaded），调用方可据此重试
var ErrModelOverloaded = errors.New("gemini model overloaded")

// GeminiSchema 结构化输出的 JSON Schema（Gemini responseSchema 子集）
type GeminiSchema struct {
	Type        string                   `json:"type"`
	Description string                   `json:"description,omitempty"`
	Properties  map[string]*GeminiSchema `json:"properties,omitempty"`
	Items       *GeminiSchema            `json:"items,omitempty"`
	Required    []string                 `json:"required,omitempty"`
}

// GeminiRequest Gemini API 请求结构
type GeminiRequest struct {
	Contents         []GeminiContent         `json:"contents"`
	GenerationConfig *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiGenerationConfig 生成配置，responseSchema 强制模型输出约定结构的 JSON
type GeminiGenerationConfig struct {
	ResponseMimeType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *GeminiSchema `json:"responseSchema,omitempty"`
}

// GeminiResponse Gemini API 响应结构
type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateStructured 调用 Gemini 生成结构化 JSON，返回原始 JSON 文本
// schema 为空时退化为普通文本生成
func GenerateStructured(apiKey, model, prompt string, schema *GeminiSchema) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY is not set")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", GeminiBaseURL, model, apiKey)

	reqBody := GeminiRequest{
		Contents: []GeminiContent{
			{
				Parts: []GeminiPart{
					{Text: prompt},
				},
			},
		},
	}
	if schema != nil {
		reqBody.GenerationConfig = &GeminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	// LLM 生成较慢，超时放宽到 30 秒
	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("post request to gemini failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return "", fmt.Errorf("gemini returned status %d: %w", resp.StatusCode, ErrModelOverloaded)
	}

	var result GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response failed: %w", err)
	}

	if result.Error != nil {
		if isOverloadedMessage(result.Error.Status) || isOverloadedMessage(result.Error.Message) {
			return "", fmt.Errorf("gemini api error: %s: %w", result.Error.Message, ErrModelOverloaded)
		}
		return "", fmt.Errorf("gemini api error: %s", result.Error.Message)
	}

	if len(result.Candidates) > 0 && len(result.Candidates[0].Content.Parts) > 0 {
		return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
	}

	return "", fmt.Errorf("gemini returned no content")
}

func isOverloadedMessage(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "overloaded") || strings.Contains(s, "unavailable")
}
