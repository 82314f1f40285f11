package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Orbita/internal/retry"
)

const (
	defaultClientTimeout = 30 * time.Second
	maxResponseBody      = 10 * 1024 * 1024 // 10 MB
)

// ServiceClient — HTTP-клиент внешних сервисов платформы:
// каталога сцен, сервиса обработки снимков и хранилища результатов.
//
// Ошибки транспорта и ошибочные статусы оборачиваются в классы
// пакета retry, чтобы политики повторов могли их различать.
type ServiceClient struct {
	catalogURL    string
	processingURL string
	storageURL    string
	httpClient    *http.Client
}

// ClientConfig — конфигурация ServiceClient.
type ClientConfig struct {
	// CatalogURL — базовый URL каталога сцен.
	CatalogURL string

	// ProcessingURL — базовый URL сервиса обработки.
	ProcessingURL string

	// StorageURL — базовый URL хранилища результатов.
	StorageURL string

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration
}

// NewServiceClient создаёт ServiceClient.
func NewServiceClient(cfg ClientConfig) *ServiceClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &ServiceClient{
		catalogURL:    cfg.CatalogURL,
		processingURL: cfg.ProcessingURL,
		storageURL:    cfg.StorageURL,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// FetchScene загружает метаданные сцены из каталога.
func (c *ServiceClient) FetchScene(ctx context.Context, params map[string]any) (map[string]any, error) {
	if c == nil || c.catalogURL == "" {
		return nil, fmt.Errorf("scene catalog is not configured")
	}
	return c.postJSON(ctx, c.catalogURL+"/api/v1/scenes/query", params)
}

// ComputeIndex запускает вычисление индекса на сервисе обработки.
func (c *ServiceClient) ComputeIndex(ctx context.Context, payload map[string]any) (map[string]any, error) {
	if c == nil || c.processingURL == "" {
		return nil, fmt.Errorf("processing service is not configured")
	}
	return c.postJSON(ctx, c.processingURL+"/api/v1/indices/compute", payload)
}

// StoreResult сохраняет результат в хранилище проекта.
func (c *ServiceClient) StoreResult(ctx context.Context, payload map[string]any) (map[string]any, error) {
	if c == nil || c.storageURL == "" {
		return nil, fmt.Errorf("result storage is not configured")
	}
	return c.postJSON(ctx, c.storageURL+"/api/v1/results", payload)
}

// postJSON выполняет POST с JSON телом и парсит JSON ответ.
func (c *ServiceClient) postJSON(ctx context.Context, url string, payload any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.NewClassifiedError(retry.ClassConnection,
			fmt.Errorf("call %s: %w", url, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, retry.NewClassifiedError(retry.ClassRemote,
			fmt.Errorf("call %s: HTTP %d: %s", url, resp.StatusCode, truncate(string(respBody), 256)))
	}

	var result map[string]any
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
