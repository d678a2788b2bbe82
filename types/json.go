/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ExtraProperties holds values an entity stores beside its mapped fields,
// persisted as one JSON column.
type ExtraProperties map[string]interface{}

func (p ExtraProperties) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (p *ExtraProperties) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = make(ExtraProperties)
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("extra properties: unsupported column type %T", value)
	}
	props := make(ExtraProperties)
	if err := json.Unmarshal(data, &props); err != nil {
		return err
	}
	*p = props
	return nil
}

// Get returns the value stored under name.
func (p ExtraProperties) Get(name string) (interface{}, bool) {
	v, ok := p[name]
	return v, ok
}

// String returns the value under name when it is a string.
func (p ExtraProperties) String(name string) string {
	s, _ := p[name].(string)
	return s
}
