package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"frt-gateway/models"
)

// Publisher pushes a typed message onto a broker topic. Delivery is
// best-effort; the relay never closes a socket over a publish failure.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
}

// HistoryFetcher serves paginated chat history for loadMore requests,
// bypassing the broker entirely.
type HistoryFetcher interface {
	GetChat(ctx context.Context, chatID string, page, pageSize int) ([]models.HistoryMessage, error)
}

// Router classifies inbound socket frames and dispatches them: chat and
// map frames go to the broker, typing fans out directly, loadMore is
// answered synchronously on the requesting socket.
type Router struct {
	publisher Publisher
	history   HistoryFetcher
	log       *zap.Logger

	newID func() string
}

func NewRouter(publisher Publisher, history HistoryFetcher, log *zap.Logger) *Router {
	return &Router{
		publisher: publisher,
		history:   history,
		log:       log,
		newID:     uuid.NewString,
	}
}

// Dispatch handles one inbound frame. Protocol errors answer the sender
// with a typed error frame and leave the connection open; unknown type
// tags are logged and dropped.
func (rt *Router) Dispatch(c *Client, raw []byte) {
	env, err := models.DecodeEnvelope(raw)
	if err != nil {
		if errors.Is(err, models.ErrUnknownType) {
			rt.log.Warn("unknown message type", zap.String("room", c.roomID), zap.Error(err))
			return
		}
		rt.log.Warn("malformed frame", zap.String("room", c.roomID), zap.Error(err))
		c.reply(models.NewErrorFrame("Failed to process message"))
		return
	}

	if env.SenderID != "" && c.senderID == "" {
		c.senderID = env.SenderID
	}

	ctx := context.Background()

	switch env.Type {
	case models.TypeText, models.TypePhoto:
		rt.handleChat(ctx, env.Type, env.Chat)

	case models.TypeTyping:
		rt.handleTyping(c, env.Typing)

	case models.TypeLoadMore:
		rt.handleLoadMore(ctx, c, env.LoadMore)

	case models.TypeMark:
		rt.handleMark(ctx, env.Mark)

	case models.TypeMission:
		rt.handleMission(ctx, env.Mission)
	}
}

// handleChat assigns the server-side message id, stamps the origin and
// publishes to the chat topic. The sender sees its own message only once
// it comes back off the broker.
func (rt *Router) handleChat(ctx context.Context, kind models.MessageType, env *models.ChatEnvelope) {
	msg := models.ChatStreamMessage{
		UserID:        env.SenderID,
		MessageID:     rt.newID(),
		MessageType:   string(kind),
		ChatID:        env.TeamID,
		Timestamp:     env.Timestamp,
		Message:       env.Message,
		MessageOrigin: "web",
	}
	if err := rt.publisher.Publish(ctx, models.ChatTopic, msg); err != nil {
		rt.log.Error("publish chat message", zap.String("chat", env.TeamID), zap.Error(err))
	}
}

// handleTyping notifies every other open socket in the room. Typing state
// never touches the broker and is not persisted.
func (rt *Router) handleTyping(c *Client, env *models.TypingEnvelope) {
	payload, err := json.Marshal(models.NewTypingFrame(c.senderID, env.Typing))
	if err != nil {
		rt.log.Error("marshal typing frame", zap.Error(err))
		return
	}
	c.hub.BroadcastExcept(c.roomID, payload, c)
}

// handleLoadMore fetches one page of history and replies to the
// requesting socket only. A fetch failure is logged and the request goes
// unanswered; the client treats silence as retryable.
func (rt *Router) handleLoadMore(ctx context.Context, c *Client, env *models.LoadMoreEnvelope) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	messages, err := rt.history.GetChat(ctx, c.roomID, env.Page, env.PageSize)
	if err != nil {
		rt.log.Error("fetch chat history", zap.String("room", c.roomID), zap.Int("page", env.Page), zap.Error(err))
		return
	}
	c.reply(models.NewAdditionalMessagesFrame(messages))
}

// handleMark normalizes the marker into the map-topic shape and
// publishes it. An absent active field means false, which retires the
// marker downstream.
func (rt *Router) handleMark(ctx context.Context, env *models.MarkEnvelope) {
	msg := models.MapStreamMessage{
		MapID:             env.MapID,
		MarkType:          env.MarkType,
		UserID:            env.UserID,
		MessageID:         env.MessageID,
		Timestamp:         env.Timestamp,
		Active:            env.Active,
		Location:          env.Location,
		Description:       env.Description,
		Size:              env.Size,
		Title:             env.Title,
		PublishToTelegram: env.PublishToTelegram,
	}
	if err := rt.publisher.Publish(ctx, models.MapTopic, msg); err != nil {
		rt.log.Error("publish mark message", zap.String("map", env.MapID), zap.Error(err))
	}
}

// handleMission forwards a socket-side mission frame to the mission
// topic. Missions normally travel over HTTP; this path stays inert
// unless a mission envelope explicitly arrives.
func (rt *Router) handleMission(ctx context.Context, env *models.MissionEnvelope) {
	msg := models.MissionStreamFromEnvelope(env)
	if err := rt.publisher.Publish(ctx, models.MissionTopic, msg); err != nil {
		rt.log.Error("publish mission message", zap.String("team", msg.TeamID), zap.Error(err))
	}
}
