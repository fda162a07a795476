// Package remote 通过另一实例的 /data 与 /init 存储接口实现 repository 契约。
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"supporting-smart-system/config"
	apperrors "supporting-smart-system/pkg/errors"
)

// StorageKeyHeader 存储接口鉴权头
const StorageKeyHeader = "X-Storage-Key"

const maxErrorBody = 4 << 10

// Client 存储接口 HTTP 客户端
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *zap.Logger
}

// NewClient 创建客户端；默认不重试（retry_max=0），重试只针对连接层错误
func NewClient(cfg config.RemoteConfig, logger *zap.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}
		return false, nil
	}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		http:    rc.StandardClient(),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Count int             `json:"count"`
}

// call 发送请求并把 {data} 解码到 out；out 为 nil 时忽略返回体
// 返回 data 是否为 null，用于识别 settings 缺失键
func (c *Client) call(ctx context.Context, op, table, method, path string, q url.Values, body, out any) (bool, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return false, apperrors.Storage(op, table, fmt.Errorf("序列化请求失败: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return false, apperrors.Storage(op, table, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(StorageKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, apperrors.Storage(op, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, c.statusError(op, table, resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return false, apperrors.Storage(op, table, fmt.Errorf("解析响应失败: %w", err))
	}
	isNull := len(env.Data) == 0 || string(env.Data) == "null"
	if out != nil && !isNull {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return false, apperrors.Storage(op, table, fmt.Errorf("解析响应数据失败: %w", err))
		}
	}
	return isNull, nil
}

func (c *Client) statusError(op, table string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env envelope
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &env) == nil && env.Error != "" {
		msg = env.Error
	}

	var cause error
	switch resp.StatusCode {
	case http.StatusNotFound:
		cause = apperrors.ErrNotFound
	case http.StatusConflict:
		cause = fmt.Errorf("%w: %s", apperrors.ErrDuplicate, msg)
	case http.StatusBadRequest:
		cause = apperrors.NewValidation("", msg)
	default:
		cause = errors.New(msg)
	}

	c.logger.Warn("存储接口返回错误",
		zap.String("op", op),
		zap.String("table", table),
		zap.Int("status", resp.StatusCode),
		zap.String("error", msg),
		zap.Int("written", env.Count),
	)
	return &apperrors.StorageError{Op: op, Table: table, Status: resp.StatusCode, Written: env.Count, Err: cause}
}
