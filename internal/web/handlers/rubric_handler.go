package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"VideoCoach-admin/internal/models"
)

// RubricAdminStore は評価項目の管理操作。
type RubricAdminStore interface {
	ListCriteria() ([]models.RubricCriterion, error)
	CreateCriterion(c *models.RubricCriterion) (*models.RubricCriterion, error)
	GetCriterionByID(id int64) (*models.RubricCriterion, error)
	UpdateCriterion(id int64, c *models.RubricCriterion) (*models.RubricCriterion, error)
	DeleteCriterion(id int64) error
}

// RubricHandler は管理画面向けの評価項目 CRUD を担当する。
type RubricHandler struct {
	db RubricAdminStore
}

// NewRubricHandler は RubricHandler を生成する。
func NewRubricHandler(db RubricAdminStore) *RubricHandler {
	return &RubricHandler{db: db}
}

// List は GET /admin/rubric。
func (h *RubricHandler) List(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.db.ListCriteria()
	if err != nil {
		writeError(w, err)
		return
	}
	if criteria == nil {
		criteria = []models.RubricCriterion{}
	}
	writeJSON(w, http.StatusOK, criteria)
}

// Create は POST /admin/rubric。
func (h *RubricHandler) Create(w http.ResponseWriter, r *http.Request) {
	criterion, ok := decodeCriterion(w, r)
	if !ok {
		return
	}
	created, err := h.db.CreateCriterion(criterion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get は GET /admin/rubric/{id}。
func (h *RubricHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := criterionID(w, r)
	if !ok {
		return
	}
	criterion, err := h.db.GetCriterionByID(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, criterion)
}

// Update は PUT /admin/rubric/{id}。
func (h *RubricHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := criterionID(w, r)
	if !ok {
		return
	}
	criterion, ok := decodeCriterion(w, r)
	if !ok {
		return
	}
	updated, err := h.db.UpdateCriterion(id, criterion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete は DELETE /admin/rubric/{id}。
func (h *RubricHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := criterionID(w, r)
	if !ok {
		return
	}
	if err := h.db.DeleteCriterion(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeCriterion(w http.ResponseWriter, r *http.Request) (*models.RubricCriterion, bool) {
	var criterion models.RubricCriterion
	if err := json.NewDecoder(r.Body).Decode(&criterion); err != nil {
		writeError(w, models.NewValidationError("リクエストボディを解析できません"))
		return nil, false
	}
	if err := criterion.Validate(); err != nil {
		writeError(w, err)
		return nil, false
	}
	return &criterion, true
}

func criterionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, models.NewValidationError("評価項目 ID が不正です"))
		return 0, false
	}
	return id, true
}
