package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"VideoCoach-admin/internal/models"
)

type stubRubricStore struct {
	criteria map[int64]*models.RubricCriterion
	nextID   int64
}

func newStubRubricStore(criteria ...*models.RubricCriterion) *stubRubricStore {
	s := &stubRubricStore{criteria: make(map[int64]*models.RubricCriterion)}
	for _, c := range criteria {
		s.criteria[c.ID] = c
		if c.ID > s.nextID {
			s.nextID = c.ID
		}
	}
	return s
}

func (s *stubRubricStore) ListCriteria() ([]models.RubricCriterion, error) {
	var out []models.RubricCriterion
	for _, c := range s.criteria {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubRubricStore) CreateCriterion(c *models.RubricCriterion) (*models.RubricCriterion, error) {
	for _, existing := range s.criteria {
		if existing.Item == c.Item {
			return nil, models.NewValidationError("評価項目「%s」は既に存在します", c.Item)
		}
	}
	s.nextID++
	c.ID = s.nextID
	s.criteria[c.ID] = c
	return c, nil
}

func (s *stubRubricStore) GetCriterionByID(id int64) (*models.RubricCriterion, error) {
	c, ok := s.criteria[id]
	if !ok {
		return nil, &models.NotFoundError{Resource: "評価項目", ID: id}
	}
	return c, nil
}

func (s *stubRubricStore) UpdateCriterion(id int64, c *models.RubricCriterion) (*models.RubricCriterion, error) {
	if _, ok := s.criteria[id]; !ok {
		return nil, &models.NotFoundError{Resource: "評価項目", ID: id}
	}
	c.ID = id
	s.criteria[id] = c
	return c, nil
}

func (s *stubRubricStore) DeleteCriterion(id int64) error {
	if _, ok := s.criteria[id]; !ok {
		return &models.NotFoundError{Resource: "評価項目", ID: id}
	}
	delete(s.criteria, id)
	return nil
}

func TestRubricCreate(t *testing.T) {
	h := NewRubricHandler(newStubRubricStore())
	body := `{"item":"傾聴","point3":"常にできている","point2":"概ねできている","point1":"できていない"}`
	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/admin/rubric", strings.NewReader(body)))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var created models.RubricCriterion
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == 0 || created.Item != "傾聴" {
		t.Fatalf("created = %+v", created)
	}
}

func TestRubricCreateRejectsMissingFields(t *testing.T) {
	h := NewRubricHandler(newStubRubricStore())
	body := `{"item":"傾聴","point3":"のみ"}`
	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/admin/rubric", strings.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRubricCreateRejectsDuplicateItem(t *testing.T) {
	h := NewRubricHandler(newStubRubricStore(&models.RubricCriterion{
		ID: 1, Item: "傾聴", Point3: "a", Point2: "b", Point1: "c",
	}))
	body := `{"item":"傾聴","point3":"x","point2":"y","point1":"z"}`
	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/admin/rubric", strings.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRubricUpdateNotFound(t *testing.T) {
	h := NewRubricHandler(newStubRubricStore())
	body := `{"item":"傾聴","point3":"x","point2":"y","point1":"z"}`
	r := httptest.NewRequest(http.MethodPut, "/admin/rubric/5", strings.NewReader(body))
	r.SetPathValue("id", "5")
	w := httptest.NewRecorder()
	h.Update(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRubricDelete(t *testing.T) {
	store := newStubRubricStore(&models.RubricCriterion{
		ID: 1, Item: "傾聴", Point3: "a", Point2: "b", Point1: "c",
	})
	h := NewRubricHandler(store)
	r := httptest.NewRequest(http.MethodDelete, "/admin/rubric/1", nil)
	r.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.Delete(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if len(store.criteria) != 0 {
		t.Fatal("criterion should be deleted")
	}
}

func TestRubricGetInvalidID(t *testing.T) {
	h := NewRubricHandler(newStubRubricStore())
	r := httptest.NewRequest(http.MethodGet, "/admin/rubric/abc", nil)
	r.SetPathValue("id", "abc")
	w := httptest.NewRecorder()
	h.Get(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
