package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"VideoCoach-admin/internal/models"

	"github.com/go-sql-driver/mysql"
)

// ListCriteria は評価項目を更新日時の新しい順に返す。
func (s *Store) ListCriteria() ([]models.RubricCriterion, error) {
	rows, err := s.db.Query(
		`SELECT id, item, point3, point2, point1, created_at, updated_at
		 FROM evaluation_items ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("評価項目一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()
	var criteria []models.RubricCriterion
	for rows.Next() {
		var c models.RubricCriterion
		if err := rows.Scan(&c.ID, &c.Item, &c.Point3, &c.Point2, &c.Point1, &c.CreatedAt, &c.UpdatedAt); err != nil {
			log.Printf("エラー：評価項目の行スキャンに失敗しました: %v", err)
			continue
		}
		criteria = append(criteria, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("評価項目の結果処理中にエラーが発生しました: %w", err)
	}
	return criteria, nil
}

// CreateCriterion は評価項目を新規作成する。項目名の重複は ValidationError。
func (s *Store) CreateCriterion(c *models.RubricCriterion) (*models.RubricCriterion, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	res, err := s.db.Exec(
		`INSERT INTO evaluation_items (item, point3, point2, point1, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Item, c.Point3, c.Point2, c.Point1, now, now,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, models.NewValidationError("評価項目「%s」は既に存在します", c.Item)
		}
		return nil, fmt.Errorf("評価項目の作成に失敗しました: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("作成した評価項目の ID 取得に失敗しました: %w", err)
	}
	log.Printf("情報：評価項目を作成しました (ID: %d, Item: %s)\n", id, c.Item)
	return s.GetCriterionByID(id)
}

// GetCriterionByID は ID で 1 件取得する。
func (s *Store) GetCriterionByID(id int64) (*models.RubricCriterion, error) {
	var c models.RubricCriterion
	err := s.db.QueryRow(
		`SELECT id, item, point3, point2, point1, created_at, updated_at FROM evaluation_items WHERE id = ?`, id,
	).Scan(&c.ID, &c.Item, &c.Point3, &c.Point2, &c.Point1, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Resource: "評価項目", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("評価項目 (ID: %d) の取得に失敗しました: %w", id, err)
	}
	return &c, nil
}

// UpdateCriterion は評価項目を更新する。完了済みの評価データには影響しない。
func (s *Store) UpdateCriterion(id int64, c *models.RubricCriterion) (*models.RubricCriterion, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	res, err := s.db.Exec(
		`UPDATE evaluation_items SET item = ?, point3 = ?, point2 = ?, point1 = ?, updated_at = ? WHERE id = ?`,
		c.Item, c.Point3, c.Point2, c.Point1, time.Now(), id,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, models.NewValidationError("評価項目「%s」は既に存在します", c.Item)
		}
		return nil, fmt.Errorf("評価項目 (ID: %d) の更新に失敗しました: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("評価項目 (ID: %d) の更新結果の確認に失敗しました: %w", id, err)
	}
	if affected == 0 {
		// 同値更新でも affected=0 になり得るため存在確認で判別する
		if _, getErr := s.GetCriterionByID(id); getErr != nil {
			return nil, getErr
		}
	}
	log.Printf("情報：評価項目を更新しました (ID: %d)\n", id)
	return s.GetCriterionByID(id)
}

// DeleteCriterion は評価項目を削除する。
func (s *Store) DeleteCriterion(id int64) error {
	res, err := s.db.Exec(`DELETE FROM evaluation_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("評価項目 (ID: %d) の削除に失敗しました: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("評価項目 (ID: %d) の削除結果の確認に失敗しました: %w", id, err)
	}
	if affected == 0 {
		return &models.NotFoundError{Resource: "評価項目", ID: id}
	}
	log.Printf("情報：評価項目を削除しました (ID: %d)\n", id)
	return nil
}

// isDuplicateKey は MySQL の一意制約違反 (1062) を判定する。
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
