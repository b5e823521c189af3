package handlers

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelafacility/backend/internal/models"
	"github.com/freelafacility/backend/internal/realtime"
	"github.com/freelafacility/backend/internal/utils"
)

// ActivityWSHandler streams activity events to a connected user. The
// upgrade request cannot carry an Authorization header from a browser, so
// the token rides in the query string.
type ActivityWSHandler struct {
	DB        *gorm.DB
	Hub       *realtime.Hub
	JWTSecret string
}

func NewActivityWSHandler(db *gorm.DB, hub *realtime.Hub, secret string) *ActivityWSHandler {
	return &ActivityWSHandler{DB: db, Hub: hub, JWTSecret: secret}
}

func (h *ActivityWSHandler) Handle(conn *websocket.Conn) {
	defer conn.Close()

	claims, err := utils.ParseJWT(h.JWTSecret, conn.Query("token"))
	if err != nil {
		return
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return
	}
	var user models.User
	if err := h.DB.First(&user, "id = ?", uid).Error; err != nil || !user.IsActive {
		return
	}

	client := &realtime.Client{
		ID:     uuid.NewString(),
		UserID: user.ID,
		Conn:   realtime.NewWebSocketConn(conn),
		Send:   make(chan []byte, 64),
	}
	h.Hub.RegisterClient(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range client.Send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// inbound frames are ignored; the read loop only detects disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	// unregister closes Send, which lets the writer drain and exit
	h.Hub.UnregisterClient(client)
	<-done
}
