package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rehab-eng/nova-max-ws/internal/constants"
	"github.com/rehab-eng/nova-max-ws/internal/logger"
	"github.com/rehab-eng/nova-max-ws/internal/models"

	"github.com/gorilla/websocket"
	"github.com/r3labs/sse/v2"
	backoffv1 "gopkg.in/cenkalti/backoff.v1"
)

// ErrStopped 管理器已停止
var ErrStopped = errors.New("realtime manager stopped")

// Status 实时链路状态
type Status string

// 实时链路状态常量
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusStopped      Status = "stopped"
)

// pingFrame 应用层心跳帧
var pingFrame = []byte(`{"type":"ping"}`)

// Handler 实时数据下沉接口：快照整体落给对账器，事件逐条处理
type Handler interface {
	HandleSnapshot(ctx context.Context, orders []models.Order, source string)
	HandleEvent(ctx context.Context, ev models.Event)
}

// OrdersFetcher 快照拉取端（api.Client 即满足）
type OrdersFetcher interface {
	Orders(ctx context.Context, key models.SubscriptionKey) ([]models.Order, error)
}

// Options 连接管理器配置
type Options struct {
	WSBaseURL        string // ws(s):// 基地址，BackendConfig.ResolveWSURL()
	StreamBaseURL    string // http(s):// 基地址，SSE 回退使用
	Key              models.SubscriptionKey
	Transport        string // websocket（缺省）/ sse
	PingInterval     time.Duration
	PollInterval     time.Duration
	BackoffInitial   time.Duration
	BackoffMax       time.Duration
	HandshakeTimeout time.Duration
	Handler          Handler
	Fetcher          OrdersFetcher
	OnStatus         func(Status)
}

// Manager 为单个订阅键维护实时链路：
// 建链、心跳、指数退避重连，链路不在线时以固定周期轮询全量快照。
type Manager struct {
	opts Options

	statusMu sync.RWMutex
	status   Status

	writeMu sync.Mutex
	conn    *websocket.Conn

	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

// New 创建连接管理器
func New(opts Options) *Manager {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 6 * time.Second
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = time.Second
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = 30 * time.Second
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.Transport == "" {
		opts.Transport = constants.TransportWebSocket
	}
	return &Manager{
		opts:    opts,
		status:  StatusDisconnected,
		stopped: make(chan struct{}),
	}
}

// Start 运行连接循环，直到 ctx 取消或 Stop 被调用。
// 返回时所有内部 goroutine 均已退出。
func (m *Manager) Start(ctx context.Context) error {
	if m.isStopped() {
		return ErrStopped
	}

	// Stop 通过取消 runCtx 解除 SSE 订阅等阻塞调用
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-m.stopped:
			cancel()
		case <-runCtx.Done():
		}
	}()

	m.wg.Add(1)
	go m.pollLoop(runCtx)

	policy := newBackoff(m.opts.BackoffInitial, m.opts.BackoffMax)
	for {
		if m.isStopped() || runCtx.Err() != nil {
			break
		}

		m.setStatus(StatusConnecting)
		opened, err := m.runOnce(runCtx)
		if opened {
			// 成功建链后退避归零，下次失败重新从初始间隔起步
			policy.Reset()
		}
		if m.isStopped() || runCtx.Err() != nil {
			break
		}

		m.setStatus(StatusDisconnected)
		delay := policy.NextBackOff()
		logger.Warnw("realtime_disconnected",
			"transport", m.opts.Transport,
			"error", err,
			"retry_in", delay.String(),
		)
		select {
		case <-time.After(delay):
		case <-runCtx.Done():
		case <-m.stopped:
		}
	}

	m.setStatus(StatusStopped)
	m.wg.Wait()
	return nil
}

// Stop 停止管理器并关闭链路；幂等，可与 ctx 取消并用
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopped)
		m.writeMu.Lock()
		if m.conn != nil {
			_ = m.conn.Close()
		}
		m.writeMu.Unlock()
		m.setStatus(StatusStopped)
	})
}

// Status 当前链路状态
func (m *Manager) Status() Status {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.status
}

func (m *Manager) isStopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}

// setStatus 状态迁移；stopped 为终态，只有 Stop 路径能进入
func (m *Manager) setStatus(next Status) {
	m.statusMu.Lock()
	if m.status == next || (m.status == StatusStopped && next != StatusStopped) {
		m.statusMu.Unlock()
		return
	}
	prev := m.status
	m.status = next
	m.statusMu.Unlock()

	logger.Infow("realtime_status", "from", string(prev), "to", string(next))
	if m.opts.OnStatus != nil {
		m.opts.OnStatus(next)
	}
}

// runOnce 走一轮链路生命周期，返回本轮是否成功建链
func (m *Manager) runOnce(ctx context.Context) (bool, error) {
	if m.opts.Transport == constants.TransportSSE {
		return m.runSSE(ctx)
	}
	return m.runWebSocket(ctx)
}

func (m *Manager) wsURL() string {
	query := m.opts.Key.Query()
	query.Set("role", constants.RealtimeRoleAdmin)
	return m.opts.WSBaseURL + "/realtime?" + query.Encode()
}

func (m *Manager) streamURL() string {
	query := m.opts.Key.Query()
	if encoded := query.Encode(); encoded != "" {
		return m.opts.StreamBaseURL + "/orders/stream?" + encoded
	}
	return m.opts.StreamBaseURL + "/orders/stream"
}

// runWebSocket 拨号并阻塞在读循环上，链路断开时返回
func (m *Manager) runWebSocket(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: m.opts.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, m.wsURL(), nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return false, err
	}

	m.writeMu.Lock()
	m.conn = conn
	m.writeMu.Unlock()
	m.setStatus(StatusConnected)
	logger.Infow("ws_connected", "key_kind", string(m.opts.Key.Kind))

	// ctx 取消或 Stop 时关闭连接，解除读阻塞
	readDone := make(chan struct{})
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-m.stopped:
			_ = conn.Close()
		case <-readDone:
		}
	}()

	keepaliveDone := make(chan struct{})
	m.wg.Add(1)
	go m.keepalive(conn, readDone, keepaliveDone)

	var readErr error
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		ev, err := models.ParseEvent(data)
		if err != nil {
			logger.Debugw("ws_frame_dropped", "error", err)
			continue
		}
		m.opts.Handler.HandleEvent(ctx, ev)
	}

	close(readDone)
	<-keepaliveDone
	m.writeMu.Lock()
	m.conn = nil
	m.writeMu.Unlock()
	_ = conn.Close()
	return true, readErr
}

// keepalive 周期发送应用层 ping；写失败即强制断链进入重连
func (m *Manager) keepalive(conn *websocket.Conn, readDone <-chan struct{}, done chan<- struct{}) {
	defer m.wg.Done()
	defer close(done)

	ticker := time.NewTicker(m.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-readDone:
			return
		case <-m.stopped:
			return
		case <-ticker.C:
			m.writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, pingFrame)
			m.writeMu.Unlock()
			if err != nil {
				logger.Warnw("ws_ping_failed", "error", err)
				_ = conn.Close()
				return
			}
			logger.Debugw("ws_ping_sent")
		}
	}
}

// runSSE 订阅 /orders/stream，只消费名为 orders 的快照事件。
// 重连交还给外层退避循环：订阅端本身一断即返。
func (m *Manager) runSSE(ctx context.Context) (bool, error) {
	client := sse.NewClient(m.streamURL())
	client.ReconnectStrategy = &backoffv1.StopBackOff{}

	var opened atomic.Bool
	client.OnConnect(func(*sse.Client) {
		opened.Store(true)
		m.setStatus(StatusConnected)
		logger.Infow("sse_connected", "key_kind", string(m.opts.Key.Kind))
	})

	err := client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		if string(msg.Event) != "orders" {
			return
		}
		var orders []models.Order
		if unmarshalErr := json.Unmarshal(msg.Data, &orders); unmarshalErr != nil {
			logger.Debugw("sse_frame_dropped", "error", unmarshalErr)
			return
		}
		m.opts.Handler.HandleSnapshot(ctx, orders, constants.SnapshotSourceSSE)
	})
	return opened.Load(), err
}

// pollLoop 链路不在线时按固定周期拉全量快照；在线时空转。
// 轮询失败只记日志，不影响退避状态。
func (m *Manager) pollLoop(ctx context.Context) {
	defer m.wg.Done()
	if m.opts.Fetcher == nil {
		return
	}

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopped:
			return
		case <-ticker.C:
			if m.Status() == StatusConnected {
				continue
			}
			orders, err := m.opts.Fetcher.Orders(ctx, m.opts.Key)
			if err != nil {
				logger.Warnw("poll_failed", "error", err)
				continue
			}
			m.opts.Handler.HandleSnapshot(ctx, orders, constants.SnapshotSourcePoll)
		}
	}
}
