// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

// FatalError returned by an event handler tells the Controller that the
// agent is beyond recovery and should be terminated as soon as possible.
type FatalError struct {
	err error
}

// NewFatalError wraps the given error as fatal.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// Error delegates the call to the wrapped error.
func (e *FatalError) Error() string {
	return e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *FatalError) Unwrap() error {
	return e.err
}

// AbortEventError returned by an event handler tells the Controller to stop
// processing of the event (and to revert the changes already made for events
// of the RevertOnFailure type). The agent keeps running, but a resync should
// follow as soon as possible.
type AbortEventError struct {
	err error
}

// NewAbortEventError wraps the given error as event-aborting.
func NewAbortEventError(err error) error {
	return &AbortEventError{err: err}
}

// Error delegates the call to the wrapped error.
func (e *AbortEventError) Error() string {
	return e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *AbortEventError) Unwrap() error {
	return e.err
}
