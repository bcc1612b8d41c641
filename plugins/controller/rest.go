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
	"net/http"
	"strconv"
	"time"

	"github.com/unrolled/render"
)

const (
	// diagnostics URLs of the event-loop controller of the bgpvpn agent
	urlPrefix = "/bgpvpn/controller/"

	// eventHistoryURL returns records of already processed events.
	// Supported query arguments (by precedence):
	//   * seq-num (single record)
	//   * since - until (Unix timestamps)
	//   * last (max. number of latest records to return)
	eventHistoryURL = urlPrefix + "event-history"
	seqNumArg       = "seq-num"
	sinceArg        = "since"
	untilArg        = "until"
	lastArg         = "last"

	// resyncURL triggers resync against the datastore.
	resyncURL = urlPrefix + "resync"
)

// errorString wraps string representation of an error that, unlike the original
// error, can be marshalled.
type errorString struct {
	Error string
}

// registerHandlers registers diagnostics REST APIs of the controller.
func (c *Controller) registerHandlers() {
	if c.HTTPHandlers == nil {
		c.Log.Warn("No http handler provided, skipping registration of Controller REST handlers")
		return
	}
	c.HTTPHandlers.RegisterHTTPHandler(eventHistoryURL, c.eventHistoryGetHandler, "GET")
	c.HTTPHandlers.RegisterHTTPHandler(resyncURL, c.resyncReqHandler, "POST")
}

// eventHistoryGetHandler is the GET handler for "event-history" API.
func (c *Controller) eventHistoryGetHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		c.historyLock.Lock()
		defer c.historyLock.Unlock()

		args := req.URL.Query()

		if seqNum, withArg, err := intQueryArg(args, seqNumArg); err != nil {
			formatter.JSON(w, http.StatusBadRequest, errorString{err.Error()})
			return
		} else if withArg {
			for _, event := range c.eventHistory {
				if event.SeqNum == uint64(seqNum) {
					formatter.JSON(w, http.StatusOK, event)
					return
				}
			}
			formatter.JSON(w, http.StatusNotFound,
				errorString{"event with such sequence number is not recorded"})
			return
		}

		since, hasSince, err := timeQueryArg(args, sinceArg)
		if err != nil {
			formatter.JSON(w, http.StatusBadRequest, errorString{err.Error()})
			return
		}
		until, hasUntil, err := timeQueryArg(args, untilArg)
		if err != nil {
			formatter.JSON(w, http.StatusBadRequest, errorString{err.Error()})
			return
		}
		if hasSince || hasUntil {
			formatter.JSON(w, http.StatusOK, c.getEventHistory(since, until))
			return
		}

		if last, withArg, err := intQueryArg(args, lastArg); err != nil {
			formatter.JSON(w, http.StatusBadRequest, errorString{err.Error()})
			return
		} else if withArg {
			historyLen := len(c.eventHistory)
			if historyLen < last {
				last = historyLen
			}
			formatter.JSON(w, http.StatusOK, c.eventHistory[historyLen-last:])
			return
		}

		// full history
		formatter.JSON(w, http.StatusOK, c.eventHistory)
	}
}

// resyncReqHandler is the POST handler for "resync" API.
func (c *Controller) resyncReqHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := c.dbWatcher.requestResync(false)
		if err != nil {
			formatter.JSON(w, http.StatusInternalServerError, errorString{err.Error()})
			return
		}
		formatter.JSON(w, http.StatusOK, "Resync request was successfully dispatched.")
	}
}

// intQueryArg parses an optional integer query argument.
func intQueryArg(args map[string][]string, name string) (value int, withArg bool, err error) {
	param, withArg := args[name]
	if !withArg || len(param) != 1 {
		return 0, false, nil
	}
	value, err = strconv.Atoi(param[0])
	return value, err == nil, err
}

// timeQueryArg parses an optional Unix-timestamp query argument.
func timeQueryArg(args map[string][]string, name string) (value time.Time, withArg bool, err error) {
	param, withArg := args[name]
	if !withArg || len(param) != 1 {
		return time.Time{}, false, nil
	}
	sec, err := strconv.ParseInt(param[0], 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(sec, 0), true, nil
}
