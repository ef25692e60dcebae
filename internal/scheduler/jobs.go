package scheduler

import (
	"errors"
	"log"
	"time"

	"VideoCoach-admin/internal/models"
	"VideoCoach-admin/internal/services"
)

const (
	// 公開後にこの時間を過ぎても pending のままのレコードを再投入対象とする
	defaultStuckAfter = 10 * time.Minute
	// 1 回のジョブで再投入する最大件数
	defaultRetryLimit = 5
)

// RetryJob は滞留した pending レコードの分析を再起動する cron ジョブ。
type RetryJob struct {
	db      services.VideoStore
	starter services.AnalysisStarter

	StuckAfter time.Duration
	Limit      int
}

// NewRetryJob は RetryJob を生成する。
func NewRetryJob(db services.VideoStore, starter services.AnalysisStarter) *RetryJob {
	return &RetryJob{
		db:         db,
		starter:    starter,
		StuckAfter: defaultStuckAfter,
		Limit:      defaultRetryLimit,
	}
}

// Run は cron.Job を実装する。
func (j *RetryJob) Run() {
	videos, err := j.db.FindStuckPendingVideos(j.StuckAfter, j.Limit)
	if err != nil {
		log.Printf("エラー：[RetryJob] 滞留レコードの検索に失敗しました: %v\n", err)
		return
	}
	if len(videos) == 0 {
		return
	}

	log.Printf("情報：[RetryJob] %d 件の滞留レコードを再投入します。\n", len(videos))
	for i := range videos {
		if err := j.starter.StartAnalysis(videos[i].ID); err != nil {
			var conflict *models.ConflictError
			if errors.As(err, &conflict) {
				// 既に別経路で分析が走っているなら触らない
				continue
			}
			log.Printf("エラー：[RetryJob] 再投入に失敗しました (ID: %d): %v\n", videos[i].ID, err)
		}
	}
}
