package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"powerball-bot/internal/config"
	"powerball-bot/internal/database"
	"powerball-bot/internal/logger"
)

// ErrNoData 数据源未返回任何可用开奖
var ErrNoData = errors.New("no drawing data returned from API")

// StatusError 非200的HTTP响应
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP request failed with status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// retryable 5xx 与 429 可重试，其余4xx直接失败
func (e *StatusError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// apiDrawing 开放数据接口返回的单期开奖
type apiDrawing struct {
	DrawDate       string `json:"draw_date"`
	WinningNumbers string `json:"winning_numbers"`
	Multiplier     string `json:"multiplier"`
}

// Client 开奖历史API客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryCount int
	retryDelay time.Duration
	limiter    *rate.Limiter

	requests atomic.Int64
	failures atomic.Int64
}

// NewClient 创建新的API客户端
func NewClient(cfg *config.API) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.URL,
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// FetchDrawings 获取最近 limit 期开奖，最新在前。格式不合法的记录会被跳过。
func (c *Client) FetchDrawings(ctx context.Context, limit int) ([]database.Drawing, error) {
	raw, err := c.fetchWithRetry(ctx, c.buildURL(limit))
	if err != nil {
		return nil, err
	}

	drawings := make([]database.Drawing, 0, len(raw))
	for _, item := range raw {
		d, err := ConvertAPIDrawing(item.DrawDate, item.WinningNumbers, item.Multiplier)
		if err != nil {
			logger.Warnf("Skipping malformed API drawing %q: %v", item.DrawDate, err)
			continue
		}
		drawings = append(drawings, *d)
	}

	if len(drawings) == 0 {
		return nil, ErrNoData
	}

	logger.Debugf("Fetched %d drawings from API", len(drawings))
	return drawings, nil
}

// FetchLatestDrawing 获取最新一期开奖
func (c *Client) FetchLatestDrawing(ctx context.Context) (*database.Drawing, error) {
	drawings, err := c.FetchDrawings(ctx, 1)
	if err != nil {
		return nil, err
	}
	return &drawings[0], nil
}

func (c *Client) buildURL(limit int) string {
	q := url.Values{}
	q.Set("$order", "draw_date DESC")
	if limit > 0 {
		q.Set("$limit", strconv.Itoa(limit))
	}

	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + q.Encode()
}

// fetchWithRetry 限流后以指数退避重试请求
func (c *Client) fetchWithRetry(ctx context.Context, reqURL string) ([]apiDrawing, error) {
	var result []apiDrawing
	attempt := 0

	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		data, err := c.makeRequest(ctx, reqURL)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		result = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	if c.retryDelay > 0 {
		policy.InitialInterval = c.retryDelay
	}
	policy.MaxElapsedTime = 0

	retries := c.retryCount
	if retries < 0 {
		retries = 0
	}
	notify := func(err error, wait time.Duration) {
		logger.Warnf("API request retry attempt %d/%d in %v: %v", attempt, retries, wait, err)
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx), notify)
	if err != nil {
		c.failures.Add(1)
		return nil, fmt.Errorf("failed to fetch drawings after %d attempts: %w", attempt, err)
	}
	return result, nil
}

// makeRequest 执行单次HTTP请求
func (c *Client) makeRequest(ctx context.Context, reqURL string) ([]apiDrawing, error) {
	c.requests.Add(1)
	logger.Debugf("Making API request to: %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
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
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var data []apiDrawing
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return data, nil
}

// ConvertAPIDrawing 将接口字段转换为开奖模型。winning_numbers 为空格分隔的6个号码，最后一个是强力球。
func ConvertAPIDrawing(drawDate, winningNumbers, multiplier string) (*database.Drawing, error) {
	date, err := parseDrawDate(drawDate)
	if err != nil {
		return nil, err
	}

	all, err := database.ParseNumbers(winningNumbers)
	if err != nil {
		return nil, err
	}
	if len(all) != database.MainNumberCount+1 {
		return nil, fmt.Errorf("%w: expected %d numbers, got %d", database.ErrInvalidNumbers, database.MainNumberCount+1, len(all))
	}

	d := &database.Drawing{
		DrawDate:  date,
		Numbers:   append([]int(nil), all[:database.MainNumberCount]...),
		Powerball: all[database.MainNumberCount],
	}
	if err := database.ValidateNumbers(d.Numbers, d.Powerball); err != nil {
		return nil, err
	}

	if m := strings.TrimSpace(multiplier); m != "" {
		d.Multiplier, err = strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("invalid multiplier %q: %w", multiplier, err)
		}
	}
	return d, nil
}

// parseDrawDate 解析开奖日期，如 "2024-01-01T00:00:00.000"。
// 按本地时区解析，与数据库连接的 loc=Local 读回的 DATE 值一致。
func parseDrawDate(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse draw date: %q", s)
}

// HealthCheck 检查API健康状态
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.FetchDrawings(ctx, 1); err != nil {
		return fmt.Errorf("API health check failed: %w", err)
	}

	logger.Debug("API health check passed")
	return nil
}

// GetAPIStats 获取API统计信息
func (c *Client) GetAPIStats() map[string]interface{} {
	return map[string]interface{}{
		"base_url":    c.baseURL,
		"timeout":     c.httpClient.Timeout,
		"retry_count": c.retryCount,
		"retry_delay": c.retryDelay,
		"rate_limit":  float64(c.limiter.Limit()),
		"requests":    c.requests.Load(),
		"failures":    c.failures.Load(),
	}
}
