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

package controller

import (
	"fmt"
	"strings"
	"time"

	"github.com/bestjie/networking-bgpvpn/plugins/controller/api"
)

const eventBannerWidth = 90

// printNewEvent prints a banner into stdout about a newly received event.
func (c *Controller) printNewEvent(eventRec *EventRecord, handlers []api.EventHandler) {
	var buf strings.Builder
	buf.WriteString(strings.Repeat(">", eventBannerWidth) + "\n")

	headline := fmt.Sprintf("NEW EVENT #%d", eventRec.SeqNum)
	if eventRec.IsFollowUp {
		headline += fmt.Sprintf(" (follow-up to #%d)", eventRec.FollowUpTo)
	}
	fmt.Fprintf(&buf, "%s: %s\n", headline, indentLines(eventRec.Description))
	if len(handlers) > 0 {
		fmt.Fprintf(&buf, "  handlers: %s\n", handlerNames(handlers))
	}

	buf.WriteString(strings.Repeat(">", eventBannerWidth) + "\n")
	fmt.Print(buf.String())
}

// printFinalizedEvent prints a banner into stdout about a finalized event.
func (c *Controller) printFinalizedEvent(eventRec *EventRecord) {
	var buf strings.Builder
	buf.WriteString(strings.Repeat("<", eventBannerWidth) + "\n")

	duration := eventRec.ProcessingEnd.Sub(eventRec.ProcessingStart).Round(time.Millisecond)
	fmt.Fprintf(&buf, "FINALIZED EVENT #%d: %s (took %v)\n",
		eventRec.SeqNum, strings.Split(eventRec.Description, "\n")[0], duration)

	for _, handlerRec := range eventRec.Handlers {
		stage := "update"
		if handlerRec.Revert {
			stage = "revert"
		}
		if handlerRec.Error != nil {
			fmt.Fprintf(&buf, "  %s (%s) failed: %v\n",
				handlerRec.Handler, stage, handlerRec.Error)
		} else {
			fmt.Fprintf(&buf, "  handled by %s (%s)\n", handlerRec.Handler, stage)
		}
	}
	if len(eventRec.Handlers) == 0 {
		buf.WriteString("  handled by KVScheduler only\n")
	}
	if eventRec.TxnError != nil {
		fmt.Fprintf(&buf, "  transaction error: %v\n", eventRec.TxnError)
	}

	buf.WriteString(strings.Repeat("<", eventBannerWidth) + "\n")
	fmt.Print(buf.String())
}

// filterHandlersForEvent returns only those handlers that are actually interested in the event.
func filterHandlersForEvent(event api.Event, handlers []api.EventHandler) []api.EventHandler {
	var filteredHandlers []api.EventHandler
	for _, handler := range handlers {
		if handler.HandlesEvent(event) {
			filteredHandlers = append(filteredHandlers, handler)
		}
	}
	return filteredHandlers
}

// handlerNames returns a string listing the given event handlers.
func handlerNames(handlers []api.EventHandler) string {
	var names []string
	for _, handler := range handlers {
		names = append(names, handler.String())
	}
	return strings.Join(names, ", ")
}

// indentLines indents every line of a multi-line description except the first.
func indentLines(description string) string {
	lines := strings.Split(description, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = "    " + lines[i]
	}
	return strings.Join(lines, "\n")
}
