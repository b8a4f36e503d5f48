package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rehab-eng/nova-max-ws/internal/config"
	"github.com/rehab-eng/nova-max-ws/internal/logger"

	"github.com/google/uuid"
)

// Client Nova Max 后端 HTTP 客户端。
// 所有查询与动作分发都经由它发出；动作失败不重试，由调用方在
// 确认成功后重新拉取受影响的集合。
type Client struct {
	baseURL string
	http    *http.Client
}

// New 创建后端客户端
func New(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    &http.Client{Timeout: cfg.Timeout()},
	}
}

// BaseURL 返回规范化后的后端地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do 发送一次请求并返回原始响应体。
// HTTP 状态码不参与成败判定，成败只看信封内容。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal request: %v", ErrBackend, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	logger.Debugw("backend_request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrBackend, err)
	}
	return data, nil
}

// decodeResource 解析信封并取出期望的资源键。
// 信封携带非空 error 字段即失败；期望键缺失或为 null 也算失败。
func decodeResource(body []byte, key string, out interface{}) error {
	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if raw, ok := envelope["error"]; ok {
		var message string
		if err := json.Unmarshal(raw, &message); err == nil && message != "" {
			return &BackendError{Message: message}
		}
	}
	if key == "" {
		return nil
	}
	raw, ok := envelope[key]
	if !ok || string(raw) == "null" {
		return &BackendError{}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
	}
	return nil
}

// decodeList 解析集合响应，兼容裸数组与信封包装两种形态
func decodeList(body []byte, key string, out interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
		}
		return nil
	}
	return decodeResource(trimmed, key, out)
}

// decodeAck 解析无资源返回的确认响应，空响应体视为成功
func decodeAck(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return decodeResource(body, "", nil)
}
