package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	"VideoCoach-admin/internal/config"
	"VideoCoach-admin/internal/models"
)

// AnalyzeService は動画評価パイプラインを実行する。
// 1 レコードにつき同時に 1 本の分析しか走らせない。
type AnalyzeService struct {
	cfg      *config.Config
	db       VideoStore
	rubric   RubricStore
	blob     BlobStorage
	analyzer VideoAnalyzer

	mu       sync.Mutex
	inFlight map[int64]struct{}

	// テストから差し替えるためのフック
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewAnalyzeService は AnalyzeService を生成する。
func NewAnalyzeService(cfg *config.Config, db VideoStore, rubric RubricStore, blob BlobStorage, analyzer VideoAnalyzer) (*AnalyzeService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("AnalyzeService：設定が空です")
	}
	if db == nil {
		return nil, fmt.Errorf("AnalyzeService：VideoStore が空です")
	}
	if rubric == nil {
		return nil, fmt.Errorf("AnalyzeService：RubricStore が空です")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("AnalyzeService：VideoAnalyzer が空です")
	}
	log.Println("情報：AnalyzeService を初期化しました。")
	return &AnalyzeService{
		cfg:      cfg,
		db:       db,
		rubric:   rubric,
		blob:     blob,
		analyzer: analyzer,
		inFlight: make(map[int64]struct{}),
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// StartAnalysis は分析を非同期に開始する。多重実行は ConflictError。
// 呼び出し元にはキュー投入の成否だけを返し、結果はレコードの status で追跡する。
func (s *AnalyzeService) StartAnalysis(videoID int64) error {
	if !s.acquire(videoID) {
		return &models.ConflictError{Message: fmt.Sprintf("動画 (ID: %d) は分析中です", videoID)}
	}
	go func() {
		defer s.release(videoID)
		ctx, cancel := context.WithTimeout(context.Background(), s.modelTimeout()+time.Duration(s.cfg.Analysis.GraceSeconds)*time.Second)
		defer cancel()
		if err := s.analyze(ctx, videoID); err != nil {
			log.Printf("エラー：[AnalyzeService] 動画 (ID: %d) の分析に失敗しました: %v\n", videoID, err)
		}
	}()
	return nil
}

// Analyze は分析を同期的に実行する。スケジューラの再投入経路が使う。
func (s *AnalyzeService) Analyze(ctx context.Context, videoID int64) error {
	if !s.acquire(videoID) {
		return &models.ConflictError{Message: fmt.Sprintf("動画 (ID: %d) は分析中です", videoID)}
	}
	defer s.release(videoID)
	return s.analyze(ctx, videoID)
}

// analyze はパイプライン本体。失敗はレコードへ error として永続化した上で返す。
func (s *AnalyzeService) analyze(ctx context.Context, videoID int64) error {
	video, err := s.db.GetVideoByID(videoID)
	if err != nil {
		return err
	}

	criteria, err := s.rubric.ListCriteria()
	if err != nil {
		return s.fail(videoID, fmt.Errorf("評価項目を取得できません: %w", err))
	}
	if len(criteria) == 0 {
		return s.fail(videoID, fmt.Errorf("評価項目が設定されていません"))
	}

	analyzing := models.StatusAnalyzing
	if _, err := s.db.UpdateVideo(videoID, models.VideoUpdate{Status: &analyzing}); err != nil {
		return fmt.Errorf("ステータスを analyzing に更新できません: %w", err)
	}
	log.Printf("情報：[AnalyzeService] 動画 (ID: %d) の分析を開始します。\n", videoID)

	data, err := s.invokeModel(ctx, video, criteria)
	if err != nil {
		return s.fail(videoID, err)
	}

	if err := data.Validate(criteria); err != nil {
		return s.fail(videoID, err)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return s.fail(videoID, fmt.Errorf("評価データを保存形式に変換できません: %w", err))
	}

	completed := models.StatusCompleted
	analysisDate := s.now()
	if _, err := s.db.UpdateVideo(videoID, models.VideoUpdate{
		Status:         &completed,
		EvaluationData: payload,
		AnalysisDate:   &analysisDate,
	}); err != nil {
		return fmt.Errorf("分析結果を保存できません: %w", err)
	}
	log.Printf("情報：[AnalyzeService] 動画 (ID: %d) の分析が完了しました。\n", videoID)
	return nil
}

// invokeModel は対象 (YouTube URL またはローカルブロブ) に応じてモデルを呼び出す。
func (s *AnalyzeService) invokeModel(ctx context.Context, video *models.Video, criteria []models.RubricCriterion) (*models.EvaluationData, error) {
	if video.YouTubeURL.Valid && video.YouTubeURL.String != "" {
		// 公開直後はトランスコードが終わっておらずモデルが動画を読めないことがある
		if grace := s.cfg.Analysis.GraceSeconds; grace > 0 {
			log.Printf("情報：[AnalyzeService] トランスコード待ちで %d 秒待機します (ID: %d)。\n", grace, video.ID)
			if err := s.sleep(ctx, time.Duration(grace)*time.Second); err != nil {
				return nil, err
			}
		}
		// モデル呼び出しのタイムアウトは待機が明けてから数える
		modelCtx, cancel := context.WithTimeout(ctx, s.modelTimeout())
		defer cancel()
		prompt := BuildPrompt(criteria, video.YouTubeURL.String)
		return s.analyzer.AnalyzeVideoURL(modelCtx, prompt)
	}

	if video.VideoURL.Valid && video.VideoURL.String != "" {
		if s.blob == nil {
			return nil, fmt.Errorf("ブロブストレージが設定されていません")
		}
		data, err := s.blob.Read(video.VideoURL.String)
		if err != nil {
			return nil, fmt.Errorf("動画データを読み込めません: %w", err)
		}
		modelCtx, cancel := context.WithTimeout(ctx, s.modelTimeout())
		defer cancel()
		prompt := BuildPrompt(criteria, "")
		return s.analyzer.AnalyzeVideoData(modelCtx, prompt, data, path.Base(video.VideoURL.String))
	}

	return nil, models.NewValidationError("動画 (ID: %d) に分析対象の URL がありません", video.ID)
}

// fail は分析失敗をレコードへ永続化する。モデルの生テキストは保存しない。
func (s *AnalyzeService) fail(videoID int64, cause error) error {
	errStatus := models.StatusError
	message := cause.Error()
	if _, updateErr := s.db.UpdateVideo(videoID, models.VideoUpdate{
		Status:       &errStatus,
		ErrorMessage: &message,
	}); updateErr != nil {
		log.Printf("エラー：[AnalyzeService] 失敗状態の保存にも失敗しました (ID: %d): %v\n", videoID, updateErr)
	}
	return cause
}

func (s *AnalyzeService) modelTimeout() time.Duration {
	minutes := s.cfg.GeminiClient.TimeoutMinutes
	if minutes <= 0 {
		minutes = 5
	}
	return time.Duration(minutes) * time.Minute
}

func (s *AnalyzeService) acquire(videoID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.inFlight[videoID]; exists {
		return false
	}
	s.inFlight[videoID] = struct{}{}
	return true
}

func (s *AnalyzeService) release(videoID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, videoID)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BuildPrompt は評価項目とその 3 段階の基準を埋め込んだ分析プロンプトを組み立てる。
// videoURL が空の場合は添付された動画自体を対象とする文面になる。
func BuildPrompt(criteria []models.RubricCriterion, videoURL string) string {
	var sb strings.Builder
	sb.WriteString("あなたはコミュニケーションのコーチです。")
	if videoURL != "" {
		sb.WriteString("次の動画を視聴し、")
		sb.WriteString(videoURL)
		sb.WriteString(" ")
	} else {
		sb.WriteString("添付された動画を視聴し、")
	}
	sb.WriteString("以下の評価項目に基づいて出演者の対話を評価してください。\n\n")
	sb.WriteString("## 評価項目\n")
	for _, c := range criteria {
		sb.WriteString(fmt.Sprintf("- %s\n  - 3点: %s\n  - 2点: %s\n  - 1点: %s\n", c.Item, c.Point3, c.Point2, c.Point1))
	}
	sb.WriteString("\n## 出力形式\n")
	sb.WriteString("必ず次の JSON 形式のみで出力してください。点数は 1〜3 の整数とします。\n")
	sb.WriteString("{\n")
	sb.WriteString(`  "評価結果": {`)
	sb.WriteString("\n")
	for i, c := range criteria {
		sb.WriteString(fmt.Sprintf(`    "%s": {"点数": 3, "メモ": "評価理由"}`, c.Item))
		if i < len(criteria)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  },\n")
	sb.WriteString(`  "総合評価": "全体の講評",` + "\n")
	sb.WriteString(`  "特に良かった点": "...",` + "\n")
	sb.WriteString(`  "改善が必要な点": "...",` + "\n")
	sb.WriteString(`  "次回への課題": "...",` + "\n")
	sb.WriteString(`  "タイムライン": [{"秒数": 30, "良かった点": "...", "理由": "..."}]` + "\n")
	sb.WriteString("}\n")
	return sb.String()
}
