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

import "context"

// Well-known data filter names.
const (
	SoftDeleteFilter  = "SoftDelete"
	MultiTenantFilter = "MultiTenant"
)

// DataFilter tells storage adapters which query filters are on.
type DataFilter interface {
	IsEnabled(ctx context.Context, name string) bool
}

type filterOverridesKey struct{}

type dataFilter struct {
	disabled map[string]struct{}
}

// NewDataFilter returns a filter where every name is enabled unless listed in
// disabledByDefault. EnableFilter and DisableFilter override it per context.
func NewDataFilter(disabledByDefault ...string) DataFilter {
	f := &dataFilter{disabled: make(map[string]struct{}, len(disabledByDefault))}
	for _, name := range disabledByDefault {
		f.disabled[name] = struct{}{}
	}
	return f
}

func (f *dataFilter) IsEnabled(ctx context.Context, name string) bool {
	if ctx != nil {
		if overrides, ok := ctx.Value(filterOverridesKey{}).(map[string]bool); ok {
			if enabled, ok := overrides[name]; ok {
				return enabled
			}
		}
	}
	_, off := f.disabled[name]
	return !off
}

// DisableFilter returns ctx with the named filters turned off.
func DisableFilter(ctx context.Context, names ...string) context.Context {
	return withFilterOverrides(ctx, false, names)
}

// EnableFilter returns ctx with the named filters turned on.
func EnableFilter(ctx context.Context, names ...string) context.Context {
	return withFilterOverrides(ctx, true, names)
}

func withFilterOverrides(ctx context.Context, enabled bool, names []string) context.Context {
	prev, _ := ctx.Value(filterOverridesKey{}).(map[string]bool)
	next := make(map[string]bool, len(prev)+len(names))
	for k, v := range prev {
		next[k] = v
	}
	for _, name := range names {
		next[name] = enabled
	}
	return context.WithValue(ctx, filterOverridesKey{}, next)
}

// CurrentTenant resolves the tenant of the current operation.
type CurrentTenant interface {
	TenantID(ctx context.Context) (string, bool)
}

type tenantKey struct{}

type contextTenant struct{}

// ContextTenant reads the tenant set by WithTenant.
var ContextTenant CurrentTenant = contextTenant{}

func (contextTenant) TenantID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(tenantKey{}).(string)
	return id, ok && id != ""
}

// WithTenant returns ctx scoped to tenantID.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}
