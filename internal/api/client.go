package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"keno-bot/internal/config"
	"keno-bot/internal/database"
	"keno-bot/internal/logger"
)

// HistoryResponse 开奖历史接口的包装格式
type HistoryResponse struct {
	Message string                 `json:"message"`
	Data    []database.RoundRecord `json:"data"`
}

// Client 开奖历史源客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryCount int
	retryDelay time.Duration
}

// NewClient 创建新的API客户端
func NewClient(cfg *config.API) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.URL,
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
	}
}

// FetchHistory 获取最近limit轮开奖并规范化（最旧在前）
func (c *Client) FetchHistory(ctx context.Context, limit int) ([]database.Round, error) {
	url := c.baseURL
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", c.baseURL, limit)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			logger.Warnf("History request retry attempt %d/%d", attempt, c.retryCount)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		records, err := c.makeRequest(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}

		rounds := chronological(database.NormalizeRecords(records))
		logger.Debugf("History request successful, got %d rounds", len(rounds))
		return rounds, nil
	}

	return nil, fmt.Errorf("failed to fetch history after %d attempts: %w", c.retryCount+1, lastErr)
}

func (c *Client) makeRequest(ctx context.Context, url string) ([]database.RoundRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return DecodeHistory(body)
}

// DecodeHistory 解析裸数组或{"message","data"}包装两种格式
func DecodeHistory(body []byte) ([]database.RoundRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty history payload")
	}

	if trimmed[0] == '[' {
		var records []database.RoundRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
		return records, nil
	}

	var resp HistoryResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if resp.Message != "" && resp.Message != "success" {
		return nil, fmt.Errorf("history source returned error message: %s", resp.Message)
	}
	return resp.Data, nil
}

// LoadHistoryFile 从JSON文件加载开奖历史
func LoadHistoryFile(path string) ([]database.Round, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	records, err := DecodeHistory(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rounds := chronological(database.NormalizeRecords(records))
	logger.Infof("Loaded %d rounds from %s", len(rounds), path)
	return rounds, nil
}

// chronological 全部带时间戳时按时间升序排列，否则保持原顺序
func chronological(rounds []database.Round) []database.Round {
	for _, r := range rounds {
		if r.PlayedAt.IsZero() {
			return rounds
		}
	}
	sort.SliceStable(rounds, func(i, j int) bool {
		return rounds[i].PlayedAt.Before(rounds[j].PlayedAt)
	})
	return rounds
}

// HealthCheck 检查历史源是否可用
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.FetchHistory(ctx, 1); err != nil {
		return fmt.Errorf("history source health check failed: %w", err)
	}
	logger.Debug("History source health check passed")
	return nil
}

// GetAPIStats 获取客户端配置信息
func (c *Client) GetAPIStats() map[string]interface{} {
	return map[string]interface{}{
		"base_url":    c.baseURL,
		"timeout":     c.httpClient.Timeout,
		"retry_count": c.retryCount,
		"retry_delay": c.retryDelay,
	}
}
