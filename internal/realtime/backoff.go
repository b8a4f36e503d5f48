package realtime

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackoff 重连退避策略：initial 起步、每次翻倍、封顶 max，
// 不加抖动、永不放弃。成功建链后调用方 Reset，下次失败重新从 initial 起步。
func newBackoff(initial, max time.Duration) *backoff.ExponentialBackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initial
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxInterval = max
	policy.MaxElapsedTime = 0
	policy.Reset()
	return policy
}
