package models

import "time"

// RubricCriterion は評価項目 1 件。3/2/1 点それぞれの基準文を持つ。
// 項目名は一意。編集は以後の分析にのみ影響し、完了済みの評価データには波及しない。
type RubricCriterion struct {
	ID        int64     `json:"id"`
	Item      string    `json:"item"`
	Point3    string    `json:"point3"`
	Point2    string    `json:"point2"`
	Point1    string    `json:"point1"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate は作成・更新時の必須項目チェック。
func (c *RubricCriterion) Validate() error {
	if c.Item == "" || c.Point3 == "" || c.Point2 == "" || c.Point1 == "" {
		return NewValidationError("全ての項目は必須です")
	}
	return nil
}
