// Package scheduler は分析されないまま滞留した動画レコードの再投入を行う。
package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler は cron で定期ジョブを駆動する。
type Scheduler struct {
	cron     *cron.Cron
	retryJob *RetryJob
}

// NewScheduler はスケジューラを生成しジョブを登録する。
func NewScheduler(retryJob *RetryJob, analyzeCronSpec string) *Scheduler {
	c := cron.New(cron.WithSeconds())

	if analyzeCronSpec != "" {
		if _, err := c.AddJob(analyzeCronSpec, retryJob); err != nil {
			log.Fatalf("エラー：再投入ジョブを登録できません (spec: %s): %v", analyzeCronSpec, err)
		}
		log.Printf("情報：再投入ジョブを登録しました。スケジュール: %s\n", analyzeCronSpec)
	} else {
		log.Println("警告：再投入ジョブの Cron 式が未設定のため、ジョブは実行されません。")
	}

	return &Scheduler{cron: c, retryJob: retryJob}
}

// Start は非ブロッキングでスケジューラを開始する。
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("情報：スケジューラを開始しました。")
}

// Stop は実行中のジョブの完了を待ってスケジューラを停止する。
func (s *Scheduler) Stop() {
	log.Println("情報：スケジューラを停止しています...")
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		log.Println("情報：スケジューラを停止しました。")
	case <-time.After(10 * time.Second):
		log.Println("警告：スケジューラの停止がタイムアウトしました。実行中のジョブが残っている可能性があります。")
	}
}
