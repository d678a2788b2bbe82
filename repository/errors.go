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

package repository

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrEntityNotFound matches every *EntityNotFoundError through errors.Is.
	ErrEntityNotFound = errors.New("entity not found")

	ErrInvalidPaging = errors.New("invalid paging arguments")
)

// EntityNotFoundError reports that no entity of EntityType has key ID.
type EntityNotFoundError struct {
	EntityType reflect.Type
	ID         any
}

// NewEntityNotFoundError builds the error for entity type T.
func NewEntityNotFoundError[T any](id any) *EntityNotFoundError {
	return &EntityNotFoundError{EntityType: reflect.TypeOf((*T)(nil)).Elem(), ID: id}
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("there is no such an entity. Entity type: %s, id: %v", entityName(e.EntityType), e.ID)
}

func (e *EntityNotFoundError) Is(target error) bool {
	return target == ErrEntityNotFound
}

// IsEntityNotFound reports whether err is or wraps an *EntityNotFoundError.
func IsEntityNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}

func entityName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
