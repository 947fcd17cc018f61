package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultDrainTimeout Stop 等待缓冲消息发送完毕的上限
const DefaultDrainTimeout = 5 * time.Second

// Envelope 待发布的一条消息
type Envelope struct {
	Topic string
	Key   string
	Data  interface{}
}

type DataDispatcher struct {
	dataChan     chan Envelope
	producer     DataProducer
	logger       *zap.Logger
	workerCount  int
	drainTimeout time.Duration
	dropped      atomic.Uint64

	// mu 保护 stopped 与 dataChan 的关闭
	mu      sync.RWMutex
	stopped bool

	// ctx 只在排空超时或排空结束后取消, 排空期间 Produce 拿到的是有效 ctx
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDataDispatcher 创建一个新的数据分发器
func NewDataDispatcher(producer DataProducer, workerCount, buffer int, logger *zap.Logger) *DataDispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	if workerCount <= 0 {
		workerCount = 1
	}
	return &DataDispatcher{
		dataChan:     make(chan Envelope, buffer),
		producer:     producer,
		workerCount:  workerCount,
		drainTimeout: DefaultDrainTimeout,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// SetDrainTimeout 修改 Stop 的排空上限, 需在 Stop 之前调用
func (d *DataDispatcher) SetDrainTimeout(timeout time.Duration) {
	d.drainTimeout = timeout
}

// Start 启动 worker 协程池
func (d *DataDispatcher) Start() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info("DataDispatcher started", zap.Int("workers", d.workerCount))
}

// Stop 停止接收新消息，等待 worker 发送完缓冲中的消息后退出。
// 超过 drainTimeout 时取消进行中的发送，剩余消息计入 dropped。可重复调用。
func (d *DataDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.dataChan)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(d.drainTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		d.logger.Warn("DataDispatcher drain timed out, cancelling pending sends",
			zap.Duration("timeout", d.drainTimeout),
			zap.Int("pending", len(d.dataChan)))
		d.cancel()
		<-done
	}
	d.cancel()
	d.logger.Info("DataDispatcher stopped", zap.Uint64("dropped", d.dropped.Load()))
}

// Dispatch 非阻塞投递，通道满或已停止时丢弃并返回 false
func (d *DataDispatcher) Dispatch(env Envelope) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.dataChan <- env:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("DataDispatcher channel full, dropping data", zap.String("topic", env.Topic))
		return false
	}
}

// Dropped 返回累计丢弃数
func (d *DataDispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *DataDispatcher) worker(id int) {
	defer d.wg.Done()
	for env := range d.dataChan {
		if d.ctx.Err() != nil {
			// 排空超时, 不再尝试发送
			d.dropped.Add(1)
			continue
		}
		d.process(env)
	}
}

func (d *DataDispatcher) process(env Envelope) {
	if err := d.producer.Produce(d.ctx, env.Topic, env.Key, env.Data); err != nil {
		d.logger.Error("DataDispatcher failed to send data", zap.String("topic", env.Topic), zap.Error(err))
	}
}
