package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// JsonNullString は sql.NullString のラッパー型で、JSON の (un)marshal を自前で行う。
type JsonNullString struct {
	sql.NullString
}

// MarshalJSON は json.Marshaler を実装する。
func (jns JsonNullString) MarshalJSON() ([]byte, error) {
	if !jns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(jns.String)
}

// UnmarshalJSON は json.Unmarshaler を実装する。
func (jns *JsonNullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		jns.String, jns.Valid = "", false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		jns.String, jns.Valid = "", false
		return fmt.Errorf("JsonNullString: JSON 文字列または null を期待しましたが '%s' を受け取りました: %w", string(data), err)
	}
	jns.String, jns.Valid = s, true
	return nil
}
