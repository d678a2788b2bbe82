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

// Do runs fn inside a unit of work started with opts. The unit of work is
// completed when fn returns nil and rolled back when fn fails or panics.
func Do(ctx context.Context, m Manager, opts Options, fn func(ctx context.Context) error) error {
	uowCtx, u, err := m.Begin(ctx, opts)
	if err != nil {
		return err
	}

	panicked := true
	defer func() {
		if panicked {
			_ = u.Rollback(context.WithoutCancel(uowCtx))
		}
	}()

	err = fn(uowCtx)
	panicked = false

	if err != nil {
		if rbErr := u.Rollback(context.WithoutCancel(uowCtx)); rbErr != nil {
			defaultLogger.WithField("uow", u.ID()).WithError(rbErr).Warn("rollback failed")
		}
		return err
	}
	return u.Complete(uowCtx)
}
