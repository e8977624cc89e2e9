package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"carecircle/internal/model"
	"carecircle/pkg/geo"
)

const DefaultPollInterval = 60 * time.Second

type ProximityAPI interface {
	Nearby(ctx context.Context) (*model.NearbyResult, error)
	UpdateLocation(ctx context.Context, p geo.Point) error
}

// LocationFunc 设备定位；ok 为 false 表示没有权限或暂时无法定位
type LocationFunc func(ctx context.Context) (p geo.Point, ok bool)

// ProximityWatcher 定时轮询附近患者，不依赖推送
type ProximityWatcher struct {
	api      ProximityAPI
	interval time.Duration
	locate   LocationFunc
	logger   *zap.Logger
}

func NewProximityWatcher(api ProximityAPI, interval time.Duration, locate LocationFunc, logger *zap.Logger) *ProximityWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ProximityWatcher{api: api, interval: interval, locate: locate, logger: logger}
}

// Check 上报位置（如有）后计算一次
func (w *ProximityWatcher) Check(ctx context.Context) (*model.NearbyResult, error) {
	if w.locate != nil {
		if p, ok := w.locate(ctx); ok {
			if err := w.api.UpdateLocation(ctx, p); err != nil {
				w.logger.Warn("Location update failed", zap.Error(err))
			}
		}
	}
	return w.api.Nearby(ctx)
}

// Run 立即检查一次，之后每个 interval 检查，直到 ctx 取消
func (w *ProximityWatcher) Run(ctx context.Context, onResult func(*model.NearbyResult)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		res, err := w.Check(ctx)
		if err != nil {
			w.logger.Warn("Nearby check failed", zap.Error(err))
		} else {
			onResult(res)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
