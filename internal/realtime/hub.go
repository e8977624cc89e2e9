package realtime

import (
	"sync"

	"go.uber.org/zap"

	mqcontracts "carecircle/contracts/mq"
	"carecircle/pkg/metrics"
)

const DefaultBufferSize = 16

// Subscription 一个 (table, filter) 订阅
type Subscription struct {
	Table  string
	Filter Filter

	ch   chan mqcontracts.ChangeEvent
	once sync.Once
}

// Events 在 Unsubscribe 后关闭
func (s *Subscription) Events() <-chan mqcontracts.ChangeEvent {
	return s.ch
}

// Hub 按表分发变更事件。订阅者处理不过来时直接丢弃：事件只是重新拉取的信号
type Hub struct {
	mu         sync.RWMutex
	subs       map[string]map[*Subscription]struct{}
	bufferSize int
	logger     *zap.Logger
}

func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: bufferSize,
		logger:     logger,
	}
}

func (h *Hub) Subscribe(table string, filter Filter) *Subscription {
	sub := &Subscription{
		Table:  table,
		Filter: filter,
		ch:     make(chan mqcontracts.ChangeEvent, h.bufferSize),
	}

	h.mu.Lock()
	if h.subs[table] == nil {
		h.subs[table] = make(map[*Subscription]struct{})
	}
	h.subs[table][sub] = struct{}{}
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Inc()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		delete(h.subs[sub.Table], sub)
		if len(h.subs[sub.Table]) == 0 {
			delete(h.subs, sub.Table)
		}
		close(sub.ch)
		h.mu.Unlock()

		metrics.RealtimeSubscribers.Dec()
	})
}

// Publish 非阻塞地投递给所有匹配的订阅者，返回投递成功的数量
func (h *Hub) Publish(ev mqcontracts.ChangeEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[ev.Table] {
		if !sub.Filter.Matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
			metrics.IncrementChangeEvent(ev.Table, "delivered")
		default:
			metrics.IncrementChangeEvent(ev.Table, "dropped")
			h.logger.Debug("Subscriber buffer full, change event dropped",
				zap.String("table", ev.Table),
				zap.String("filter", sub.Filter.String()),
			)
		}
	}
	return delivered
}

// Count 当前订阅数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.subs {
		n += len(subs)
	}
	return n
}
