package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Insights - результат анализа текста языковой моделью.
// Хранится в БД в колонке JSONB.
type Insights struct {
	Summary    string   `json:"summary"`
	Themes     []string `json:"themes"`
	Sentiment  string   `json:"sentiment"`
	Suggestion string   `json:"suggestion"`
}

// Value реализует driver.Valuer.
func (i Insights) Value() (driver.Value, error) {
	return json.Marshal(i)
}

// Scan реализует sql.Scanner.
func (i *Insights) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return errors.New("insights: NULL нельзя сканировать в значение, используйте *Insights")
	default:
		return fmt.Errorf("insights: неподдерживаемый тип %T", src)
	}
	return json.Unmarshal(data, i)
}
