package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Timestamp 宽松解析的时间戳：后端历史数据格式不一，解析失败按零值处理
// （排序时零值等同 epoch 0，排在最旧）
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NewTimestamp 从 time.Time 创建
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp 解析字符串时间，无法识别时返回零值
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return timestampFromEpoch(n)
	}
	return Timestamp{}
}

func timestampFromEpoch(n int64) Timestamp {
	if n <= 0 {
		return Timestamp{}
	}
	// 13 位以上按毫秒处理
	if n >= 1_000_000_000_000 {
		return Timestamp{Time: time.UnixMilli(n).UTC()}
	}
	return Timestamp{Time: time.Unix(n, 0).UTC()}
}

// UnmarshalJSON 接受字符串时间或 epoch 数字；畸形输入不报错，置零
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			t.Time = time.Time{}
			return nil
		}
		*t = ParseTimestamp(s)
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*t = timestampFromEpoch(n)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*t = timestampFromEpoch(int64(f))
		return nil
	}
	t.Time = time.Time{}
	return nil
}

// MarshalJSON 输出 RFC3339，零值输出 null
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// SortKey 排序键（毫秒）；零值归 0
func (t Timestamp) SortKey() int64 {
	if t.Time.IsZero() {
		return 0
	}
	return t.Time.UnixMilli()
}
