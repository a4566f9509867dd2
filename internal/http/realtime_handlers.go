package http

import (
	"github.com/gin-gonic/gin"

	"fieldops-service/internal/model"
	"fieldops-service/internal/realtime"
)

// subscribe opens a hub client on the caller's user channel. Schedulers also
// follow the jobs channel.
func (h *Handler) subscribe(principal model.Principal) *realtime.Client {
	client := h.hub.NewClient(principal.UserID)
	h.hub.AddChannel(client, realtime.UserChannel(principal.UserID))
	if principal.CanSchedule() {
		h.hub.AddChannel(client, realtime.ChannelJobs)
	}
	return client
}

func (h *Handler) streamSSE(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	client := h.subscribe(principal)
	defer h.hub.CloseClient(client)

	h.log.Debug().Str("user_id", principal.UserID.String()).Str("client_id", client.ID.String()).Msg("sse stream open")
	h.hub.ServeSSE(c.Writer, c.Request, client)
}

func (h *Handler) streamWS(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	client := h.subscribe(principal)
	defer h.hub.CloseClient(client)

	h.hub.ServeWS(c.Writer, c.Request, client)
}
