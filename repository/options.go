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
	"github.com/sirupsen/logrus"

	"github.com/tomoncle/hummer-ddd/cancellation"
	"github.com/tomoncle/hummer-ddd/uow"
)

// Option adjusts a single repository call.
type Option func(*callOptions)

type callOptions struct {
	autoSave       bool
	includeDetails bool
}

// WithAutoSave saves the current unit of work after the write. Default false.
func WithAutoSave(autoSave bool) Option {
	return func(o *callOptions) { o.autoSave = autoSave }
}

// WithIncludeDetails asks the adapter to load related data. The default is
// true for Get and Find and false for GetList and GetPagedList.
func WithIncludeDetails(includeDetails bool) Option {
	return func(o *callOptions) { o.includeDetails = includeDetails }
}

func newCallOptions(includeDetails bool, opts []Option) callOptions {
	o := callOptions{includeDetails: includeDetails}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// RepositoryOption configures a repository at construction.
type RepositoryOption func(*settings)

type settings struct {
	collaborators Collaborators
	logger        *logrus.Logger
}

func newSettings(opts []RepositoryOption) settings {
	s := settings{
		collaborators: Collaborators{
			UnitOfWork:    uow.ContextProvider,
			Cancellation:  cancellation.NullProvider,
			DataFilter:    NewDataFilter(),
			CurrentTenant: ContextTenant,
		},
		logger: defaultLogger,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithUnitOfWorkProvider sets where the repository looks up the current unit
// of work. A nil provider disables saving.
func WithUnitOfWorkProvider(p uow.Provider) RepositoryOption {
	return func(s *settings) { s.collaborators.UnitOfWork = p }
}

func WithCancellationProvider(p cancellation.Provider) RepositoryOption {
	return func(s *settings) {
		if p == nil {
			p = cancellation.NullProvider
		}
		s.collaborators.Cancellation = p
	}
}

func WithDataFilter(f DataFilter) RepositoryOption {
	return func(s *settings) { s.collaborators.DataFilter = f }
}

func WithCurrentTenant(t CurrentTenant) RepositoryOption {
	return func(s *settings) { s.collaborators.CurrentTenant = t }
}

func WithLogger(l *logrus.Logger) RepositoryOption {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
