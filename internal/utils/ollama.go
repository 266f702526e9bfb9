package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// EmbeddingClient 本地 Ollama 嵌入客户端，宿主和模型经配置注入
type EmbeddingClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

// NewEmbeddingClient 创建嵌入客户端，host 形如 http://localhost:11434
func NewEmbeddingClient(host, model string) *EmbeddingClient {
	return &EmbeddingClient{
		endpoint: strings.TrimRight(host, "/") + "/api/embeddings",
		model:    model,
		// 嵌入只在后台落库时调用，超时可以比前台请求宽松
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Generate 为文本生成向量（电影描述 → 768 维）
func (c *EmbeddingClient) Generate(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("序列化嵌入请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建嵌入请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 Ollama 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama 返回异常状态码: %d", resp.StatusCode)
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析嵌入响应失败: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("Ollama 返回空向量 (model=%s)", c.model)
	}
	return result.Embedding, nil
}
