// Package retry は外部 API 呼び出し向けの指数バックオフ付きリトライを提供する。
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy はリトライ方針。インラインのループではなく独立してテストできる形で持つ。
type Policy struct {
	// MaxAttempts は初回を含む最大試行回数。
	MaxAttempts int
	// BaseDelay は初回リトライ前の待機時間。試行ごとに倍になる。
	BaseDelay time.Duration
	// Retriable は一時的な失敗 (リトライすべき) かどうかを判定する。
	// nil の場合は全てのエラーをリトライ対象とする。
	Retriable func(error) bool
	// Sleep は待機関数。テストで差し替える。nil なら time.Sleep。
	Sleep func(time.Duration)
	// Jitter は乱数源。nil なら大域の rand を使う。
	Jitter *rand.Rand
}

// Do は fn を方針に従って繰り返し実行する。
// リトライ不能なエラーは即座に返し、試行回数を使い切った場合は最後のエラーを返す。
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retriable != nil && !p.Retriable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		sleep(p.withJitter(delay))
		delay *= 2
	}
	return lastErr
}

// withJitter は待機時間に最大 25% の正のゆらぎを加える。
func (p Policy) withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	var f float64
	if p.Jitter != nil {
		f = p.Jitter.Float64()
	} else {
		f = rand.Float64()
	}
	return d + time.Duration(f*0.25*float64(d))
}
