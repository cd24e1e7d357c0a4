package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// eventStream writes server-sent events. Write errors are logged and later
// events are dropped since the client is gone.
type eventStream struct {
	res    *echo.Response
	failed bool
}

func newEventStream(res *echo.Response) *eventStream {
	h := res.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	return &eventStream{res: res}
}

func (s *eventStream) send(event string, data any) {
	if s.failed {
		return
	}
	b, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode event")
		return
	}
	if _, err := fmt.Fprintf(s.res, "event: %s\ndata: %s\n\n", event, b); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("failed to write event")
		s.failed = true
		return
	}
	s.res.Flush()
}
