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

package bgpspeaker

import (
	"net/http"
	"sort"

	"github.com/unrolled/render"
)

const (
	// URL to dump the paths originated by the speaker.
	pathsDumpURL = "/bgpspeaker/paths"
)

// registerRESTHandlers registers the diagnostics handlers with the
// HTTP server.
func (p *Plugin) registerRESTHandlers() {
	if p.HTTPHandlers == nil {
		p.Log.Warn("No http handler provided, skipping registration of bgpspeaker REST handlers")
		return
	}
	p.HTTPHandlers.RegisterHTTPHandler(pathsDumpURL, p.pathsDumpHandler, "GET")
	p.Log.Infof("bgpspeaker REST handler registered: GET %v", pathsDumpURL)
}

// pathsDumpHandler returns the paths currently originated by the speaker.
func (p *Plugin) pathsDumpHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		paths := p.ListPaths()
		sort.Slice(paths, func(i, j int) bool {
			return paths[i].Key() < paths[j].Key()
		})
		p.logError(formatter.JSON(w, http.StatusOK, paths))
	}
}

// logError logs non-nil errors from calls to the formatter.
func (p *Plugin) logError(err error) {
	if err != nil {
		p.Log.Error(err)
	}
}
