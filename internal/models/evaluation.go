package models

import "encoding/json"

// CriterionScore は評価項目 1 件に対するモデルの採点。
// 点数は 1〜3 の整数だが、モデルが小数や範囲外の値を返すことがあるため
// json.Number のまま受け取り Validate で厳密に検証する。
type CriterionScore struct {
	Score json.Number `json:"点数"`
	Note  string      `json:"メモ"`
}

// TimelineEntry は動画内の特定時点についてのメモ。
type TimelineEntry struct {
	Seconds   int    `json:"秒数"`
	GoodPoint string `json:"良かった点,omitempty"`
	BadPoint  string `json:"悪かった点,omitempty"`
	Reason    string `json:"理由"`
}

// EvaluationData はモデルが出力する構造化評価。
// 評価結果は項目名をキーとするマップで、ルーブリックの全項目を含む必要がある。
type EvaluationData struct {
	Results         map[string]CriterionScore `json:"評価結果"`
	OverallComment  string                    `json:"総合評価"`
	GoodPoints      string                    `json:"特に良かった点"`
	NeedImprovement string                    `json:"改善が必要な点"`
	NextChallenge   string                    `json:"次回への課題"`
	Timeline        []TimelineEntry           `json:"タイムライン,omitempty"`
}

// Validate は評価データがルーブリックに対して妥当かを検証する。
// 違反は暗黙の補正ではなく検証エラーとして扱う。
func (d *EvaluationData) Validate(rubric []RubricCriterion) error {
	if len(d.Results) == 0 {
		return &EmptyResultError{}
	}
	for _, criterion := range rubric {
		if _, ok := d.Results[criterion.Item]; !ok {
			return &MissingCriterionError{Criterion: criterion.Item}
		}
	}
	for item, result := range d.Results {
		score, err := result.Score.Int64()
		if err != nil {
			// 2.5 のような小数はここに落ちる。旧版は 0.5 刻みを許容していたが
			// 現行の契約は整数のみ。
			return &ScoreRangeError{Criterion: item, Raw: result.Score.String()}
		}
		if score < 1 || score > 3 {
			return &ScoreRangeError{Criterion: item, Raw: result.Score.String()}
		}
	}
	return nil
}
