package push

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Daskott/medibox/utils"
	"go.uber.org/zap"
)

// NoopSender logs notifications instead of sending them. Used in dev mode
// when no firebase credentials are configured.
type NoopSender struct {
	logg *zap.SugaredLogger
	sent int64
}

func NewNoopSender(logg *zap.SugaredLogger) *NoopSender {
	return &NoopSender{logg: logg}
}

func (s *NoopSender) Send(_ context.Context, token, title, body string, data map[string]string) (string, error) {
	n := atomic.AddInt64(&s.sent, 1)
	s.logg.Infof("[dev] push to %s: %s: %s %v", utils.MaskToken(token, 20), title, body, data)
	return fmt.Sprintf("dev-message-%d", n), nil
}
