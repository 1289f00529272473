package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/iamsernine/aptoseidon/internal/pkg/logger"
	"github.com/iamsernine/aptoseidon/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway sits behind operator-controlled ingress.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ProgressHandler struct {
	broadcaster *stream.Broadcaster
}

func NewProgressHandler(b *stream.Broadcaster) *ProgressHandler {
	return &ProgressHandler{broadcaster: b}
}

// Stream upgrades the connection and pushes workflow state events until the
// client disconnects.
func (h *ProgressHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err, "client_ip", c.ClientIP())
		return
	}
	h.broadcaster.ServeConn(conn)
}
