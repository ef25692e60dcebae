package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"VideoCoach-admin/internal/models"
	"VideoCoach-admin/internal/services"
)

// ExportHandler は評価結果の CSV エクスポートを担当する。
type ExportHandler struct {
	db     services.VideoStore
	rubric services.RubricStore
}

// NewExportHandler は ExportHandler を生成する。
func NewExportHandler(db services.VideoStore, rubric services.RubricStore) *ExportHandler {
	return &ExportHandler{db: db, rubric: rubric}
}

// Export は GET /export。ログイン中ユーザーの評価結果を CSV で返す。
// 列は現在の評価項目に合わせて動的に組み立てる。
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := mustUserID(w, r)
	if !ok {
		return
	}

	videos, err := h.db.ListVideosByUser(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	criteria, err := h.rubric.ListCriteria()
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]string, 0, len(criteria))
	for _, c := range criteria {
		items = append(items, c.Item)
	}
	sort.Strings(items)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=動画評価結果_%s.csv", time.Now().Format("2006-01-02")))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"ID", "YouTube URL", "状態", "分析日時", "総合評価"}
	for _, item := range items {
		header = append(header, item+" 点数", item+" メモ")
	}
	header = append(header, "特に良かった点", "改善が必要な点", "次回への課題", "エラー")
	if err := writer.Write(header); err != nil {
		log.Printf("エラー：[ExportHandler] ヘッダの書き込みに失敗しました: %v\n", err)
		return
	}

	for i := range videos {
		if err := writer.Write(h.row(&videos[i], items)); err != nil {
			log.Printf("エラー：[ExportHandler] 行の書き込みに失敗しました (ID: %d): %v\n", videos[i].ID, err)
			return
		}
	}
	log.Printf("情報：[ExportHandler] %d 件の動画をエクスポートしました (userID: %d)。\n", len(videos), userID)
}

func (h *ExportHandler) row(video *models.Video, items []string) []string {
	analysisDate := ""
	if video.AnalysisDate.Valid {
		analysisDate = video.AnalysisDate.Time.Format("2006-01-02 15:04:05")
	}
	row := []string{
		fmt.Sprintf("%d", video.ID),
		video.YouTubeURL.String,
		string(video.Status),
		analysisDate,
	}

	var data models.EvaluationData
	if len(video.EvaluationData) > 0 {
		if err := json.Unmarshal(video.EvaluationData, &data); err != nil {
			log.Printf("警告：[ExportHandler] 評価データの解析に失敗しました (ID: %d): %v\n", video.ID, err)
		}
	}
	row = append(row, strings.TrimSpace(data.OverallComment))
	for _, item := range items {
		if score, ok := data.Results[item]; ok {
			row = append(row, score.Score.String(), score.Note)
		} else {
			row = append(row, "", "")
		}
	}
	errMsg := ""
	if video.ErrorMessage.Valid {
		errMsg = video.ErrorMessage.String
	}
	return append(row, data.GoodPoints, data.NeedImprovement, data.NextChallenge, errMsg)
}
