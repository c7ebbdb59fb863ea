// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/intellitrader/portal/internal/observability/logger"
)

// sseWriter frames notifier output as server-sent events.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func (s *sseWriter) WriteEvent(data []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *sseWriter) WriteComment(text string) error {
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.rc.Flush()
}

// StreamEvents holds the connection open and streams the active tenant's
// state changes until the client goes away.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantScope(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	// The server write timeout would cut the stream short.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		slog.WarnContext(r.Context(), "failed to clear write deadline", logger.Error(err))
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	err := h.notifier.Serve(r.Context(), tenantID, &sseWriter{w: w, rc: rc})
	if err != nil {
		slog.DebugContext(r.Context(), "event stream closed",
			logger.TenantID(tenantID),
			logger.Error(err),
		)
	}
}
