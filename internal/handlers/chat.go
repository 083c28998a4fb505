package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type ChatHandler struct {
	Messages *services.MessageService
}

func NewChatHandler(messages *services.MessageService) *ChatHandler {
	return &ChatHandler{Messages: messages}
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	var req services.SendMessageInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	row, err := h.Messages.Send(c.UserContext(), caller, req)
	if err != nil {
		return err
	}
	return created(c, "message sent", row)
}

func (h *ChatHandler) ProjectMessages(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	projectID, err := uuidParam(c, "projectId")
	if err != nil {
		return err
	}
	rows, err := h.Messages.ListForProject(c.UserContext(), caller, projectID)
	if err != nil {
		return err
	}
	return ok(c, rows)
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	projectID, err := uuidParam(c, "projectId")
	if err != nil {
		return err
	}
	otherID, err := uuidParam(c, "recipientId")
	if err != nil {
		return err
	}
	rows, err := h.Messages.Chat(c.UserContext(), caller, projectID, otherID)
	if err != nil {
		return err
	}
	return ok(c, rows)
}

func (h *ChatHandler) Unread(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	rows, err := h.Messages.ListUnread(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return ok(c, rows)
}

func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	n, err := h.Messages.UnreadCount(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"count": n})
}

func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	msg, err := h.Messages.MarkRead(c.UserContext(), caller, id)
	if err != nil {
		return err
	}
	return okMessage(c, "message marked as read", msg)
}

func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	caller, err := middleware.MustCaller(c)
	if err != nil {
		return err
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.Messages.Delete(c.UserContext(), caller, id); err != nil {
		return err
	}
	return okMessage(c, "message deleted", nil)
}

const socketIdentity = "socket_identity"

// SocketHandler authenticates the upgrade request and serves the realtime
// channel of one connection.
type SocketHandler struct {
	Hub      *realtime.Hub
	Authn    middleware.Authenticator
	Projects *services.ProjectService
	logger   zerolog.Logger
}

func NewSocketHandler(hub *realtime.Hub, authn middleware.Authenticator, projects *services.ProjectService) *SocketHandler {
	return &SocketHandler{Hub: hub, Authn: authn, Projects: projects, logger: log.WithComponent("socket")}
}

// Upgrade rejects anonymous or non-websocket requests before the handshake.
// Browsers cannot set headers on websockets, so ?token= is accepted here.
func (h *SocketHandler) Upgrade(c *fiber.Ctx) error {
	tok := middleware.TokenFromRequest(c, true)
	if tok == "" {
		return apperr.Unauthorized("authentication required")
	}
	id, err := h.Authn.Authenticate(c.UserContext(), tok)
	if err != nil {
		return err
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(socketIdentity, id)
	return c.Next()
}

func (h *SocketHandler) Serve() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *SocketHandler) serve(conn *websocket.Conn) {
	id, _ := conn.Locals(socketIdentity).(auth.Identity)
	client := realtime.NewClient(id.UserID, conn)
	if !h.Hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump(h.handle)

	// conn goes back to the websocket pool when serve returns, so the
	// writer has to be finished with it first.
	h.Hub.Unregister(client)
	<-client.Done()
}

func (h *SocketHandler) handle(c *realtime.Client, in realtime.Inbound) {
	switch in.Event {
	case realtime.EventPing:
		c.Emit(realtime.Event{Event: realtime.EventPong})
	case realtime.EventJoinProject:
		pid, err := uuid.Parse(in.ProjectID)
		if err != nil {
			emitError(c, "invalid project id")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := h.Projects.Authorize(ctx, c.UserID, pid); err != nil {
			msg := "cannot join project"
			if ae, ok := apperr.As(err); ok && ae.Kind != apperr.KindInternal {
				msg = ae.Message
			} else {
				h.logger.Error().Err(err).Str("project_id", pid.String()).Msg("authorize join")
			}
			emitError(c, msg)
			return
		}
		h.Hub.Join(realtime.ProjectRoom(pid), c)
		c.Emit(realtime.Event{Event: realtime.EventJoined, Data: fiber.Map{"projectId": pid}})
	case realtime.EventLeaveProject:
		pid, err := uuid.Parse(in.ProjectID)
		if err != nil {
			emitError(c, "invalid project id")
			return
		}
		h.Hub.Leave(realtime.ProjectRoom(pid), c)
		c.Emit(realtime.Event{Event: realtime.EventLeft, Data: fiber.Map{"projectId": pid}})
	default:
		emitError(c, "unknown event")
	}
}

func emitError(c *realtime.Client, msg string) {
	c.Emit(realtime.Event{Event: realtime.EventError, Data: fiber.Map{"message": msg}})
}
