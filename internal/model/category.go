package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Categories содержит одну или несколько категорий товара.
// В JSON одна категория записывается строкой, несколько - массивом.
type Categories []string

// Has сообщает, относится ли товар к категории name.
func (c Categories) Has(name string) bool {
	for _, v := range c {
		if v == name {
			return true
		}
	}
	return false
}

// MarshalJSON реализует json.Marshaler.
func (c Categories) MarshalJSON() ([]byte, error) {
	if len(c) == 1 {
		return json.Marshal(c[0])
	}
	return json.Marshal([]string(c))
}

// UnmarshalJSON реализует json.Unmarshaler.
func (c *Categories) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode category: %w", err)
		}
		*c = Categories{s}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("decode categories: %w", err)
	}
	*c = list
	return nil
}
