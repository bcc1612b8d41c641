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

// EventLoop defines the interface for accessing the main event loop.
type EventLoop interface {
	// PushEvent adds the given event into the queue for processing.
	PushEvent(event Event) error
}

// Event represents something that has happened and may cause some reaction.
type Event interface {
	// GetName should return a string identifier, unique among the event types,
	// but also somewhat descriptive for humans.
	GetName() string

	// String should return a description of the event.
	String() string

	// Method tells whether the event can be reacted to by an incremental change
	// (Update) or if a full re-synchronization is needed (Resync).
	Method() EventMethodType

	// IsBlocking should return true if any producer of this event ever waits
	// for the event result (called Done() method).
	IsBlocking() bool

	// Done is method called by the Controller when the event processing has
	// finalized. If the event producer is waiting for the result, this is
	// the place to deliver it.
	Done(error)
}

// UpdateEvent is a specialization of Event for events that can be reacted to by
// an incremental change.
type UpdateEvent interface {
	// TransactionType defines how to treat already executed changes of a failed
	// event processing - whether to keep them (and be as close to the desired
	// state as it was possible) or to revert them.
	TransactionType() UpdateTransactionType

	// Direction determines the direction in which the event should flow through
	// the event handlers.
	Direction() UpdateDirectionType
}

// EventHandler declares methods that event handler must implement.
type EventHandler interface {
	// String identifies the handler for the Controller and in the logs.
	// Note: Plugins already implement Stringer.
	String() string

	// HandlesEvent is used by the Controller to check if the event is being
	// handled by this handler.
	HandlesEvent(event Event) bool

	// Resync is called by the Controller to handle event that requires full
	// re-synchronization. For startup resync, resyncCount is 1. Higher counter
	// values identify run-time resync.
	Resync(event Event, dbState DBStateData, resyncCount int, txn ResyncOperations) error

	// Update is called by the Controller for every event that can be reacted
	// to by an incremental change. The returned changeDescription is printed
	// into the event record.
	Update(event Event, txn UpdateOperations) (changeDescription string, err error)

	// Revert is called to revert already executed internal changes for a failed
	// event with TransactionType == RevertOnFailure.
	Revert(event Event) error
}

// EventMethodType is either Resync or Update.
type EventMethodType int

const (
	// Resync event requires a full re-synchronization.
	Resync EventMethodType = iota

	// Update event can be reacted to by an incremental change.
	Update
)

// UpdateDirectionType is either Forward or Reverse.
type UpdateDirectionType int

const (
	// Forward event is processed by the event handlers in the exact order
	// as passed to the Controller.
	Forward UpdateDirectionType = iota

	// Reverse event is processed by the event handlers in the backward order.
	Reverse
)

// UpdateTransactionType is either BestEffort or RevertOnFailure.
type UpdateTransactionType int

const (
	// BestEffort transaction continues even if non-fatal, non-abort error(s)
	// are returned.
	BestEffort UpdateTransactionType = iota

	// RevertOnFailure tells the event processing to stop at the first error
	// and to revert already executed changes.
	RevertOnFailure
)
