package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: func(time.Duration) {
		t.Fatal("成功時に待機してはならない")
	}}
	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("503")
	calls := 0
	var delays []time.Duration
	p := Policy{
		MaxAttempts: 4,
		BaseDelay:   100 * time.Millisecond,
		Sleep:       func(d time.Duration) { delays = append(delays, d) },
	}
	err := p.Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	// 最終試行の後には待機しない
	if len(delays) != 3 {
		t.Fatalf("sleep count = %d, want 3", len(delays))
	}
	// バックオフは単調増加 (ジッターは +25% まで)
	base := 100 * time.Millisecond
	for i, d := range delays {
		lower := base << i
		upper := lower + lower/4
		if d < lower || d > upper {
			t.Errorf("delays[%d] = %v, want in [%v, %v]", i, d, lower, upper)
		}
		if i > 0 && d <= delays[i-1] {
			t.Errorf("delays[%d] = %v は delays[%d] = %v より長くなければならない", i, d, i-1, delays[i-1])
		}
	}
}

func TestDo_FatalErrorShortCircuits(t *testing.T) {
	fatal := errors.New("quotaExceeded")
	calls := 0
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retriable:   func(err error) bool { return !errors.Is(err, fatal) },
		Sleep:       func(time.Duration) {},
	}
	err := p.Do(context.Background(), func() error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("err = %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RecoversMidway(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, Sleep: func(time.Duration) {}}
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("一時的な失敗")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: func(time.Duration) {}}
	err := p.Do(ctx, func() error { return errors.New("呼ばれないはず") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
