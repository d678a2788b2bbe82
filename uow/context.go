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

package uow

import "context"

type currentKey struct{}

// WithCurrent returns a copy of ctx carrying u as the ambient unit of work.
func WithCurrent(ctx context.Context, u UnitOfWork) context.Context {
	return context.WithValue(ctx, currentKey{}, u)
}

// FromContext returns the unit of work stored in ctx, completed or not.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	if ctx == nil {
		return nil, false
	}
	u, ok := ctx.Value(currentKey{}).(UnitOfWork)
	return u, ok && u != nil
}

// Current returns the innermost active unit of work of ctx, or nil.
func Current(ctx context.Context) UnitOfWork {
	u, _ := FromContext(ctx)
	for u != nil && u.IsCompleted() {
		u = u.Outer()
	}
	return u
}

type contextProvider struct{}

// ContextProvider resolves the current unit of work straight from the context.
var ContextProvider Provider = contextProvider{}

func (contextProvider) Current(ctx context.Context) UnitOfWork { return Current(ctx) }
