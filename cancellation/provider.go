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

// Package cancellation supplies a fallback cancellation scope to operations
// whose caller passed a context that can never be cancelled.
package cancellation

import "context"

// Provider exposes the ambient cancellation scope, typically the lifetime of
// the current request. Token may return nil when there is none.
type Provider interface {
	Token() context.Context
}

type nullProvider struct{}

// NullProvider never cancels. It is the default provider of every repository.
var NullProvider Provider = nullProvider{}

func (nullProvider) Token() context.Context { return nil }

type contextProvider struct {
	ctx context.Context
}

// NewContextProvider returns a provider whose token is ctx.
func NewContextProvider(ctx context.Context) Provider {
	return &contextProvider{ctx: ctx}
}

func (p *contextProvider) Token() context.Context { return p.ctx }

// FallbackToProvider resolves the context an operation should observe.
//
// A caller context that can be cancelled is returned unchanged. Otherwise the
// result keeps the caller's values (and so the ambient unit of work) but is
// cancelled together with the provider's token. When the provider has no
// cancellable token the caller context is returned as is. A nil ctx is
// treated as context.Background. The returned CancelFunc must be called once
// the operation is done.
func FallbackToProvider(p Provider, ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Done() != nil {
		return ctx, func() {}
	}
	if p == nil {
		return ctx, func() {}
	}
	token := p.Token()
	if token == nil || token.Done() == nil {
		return ctx, func() {}
	}
	if err := token.Err(); err != nil {
		merged, cancel := context.WithCancelCause(ctx)
		cancel(context.Cause(token))
		return merged, func() { cancel(context.Canceled) }
	}

	merged, cancel := context.WithCancelCause(ctx)
	stop := context.AfterFunc(token, func() {
		cancel(context.Cause(token))
	})
	return merged, func() {
		stop()
		cancel(context.Canceled)
	}
}
