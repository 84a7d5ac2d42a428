// Package client implements the gateway's connection lifecycle for
// programs that consume a team room: live socket relay with automatic
// reconnect, HTTP polling fallback, paginated history backfill and
// typing debounce.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"frt-gateway/models"
	"frt-gateway/services"
)

const (
	// defaultReconnectInterval is the fixed delay between dial attempts.
	// The backoff is deliberately constant: a field device on a flaky
	// link should keep knocking at a steady rate.
	defaultReconnectInterval = 6 * time.Second

	// defaultPollInterval paces the HTTP fallback while the socket is
	// down.
	defaultPollInterval = 20 * time.Second

	// typingDebounce is the pause after the last keystroke before a
	// typing:false is sent.
	typingDebounce = 1200 * time.Millisecond

	// defaultLoadMoreWait bounds a socket load-more request. The gateway
	// stays silent when its own history fetch fails, so an unanswered
	// request must not pin the in-flight flag forever.
	defaultLoadMoreWait = 10 * time.Second

	fetchTimeout = 15 * time.Second
)

var errNotConnected = errors.New("socket not connected")

// State is the session's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	// StatePolling means the socket is down and history is refreshed over
	// HTTP until the next successful dial.
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StatePolling:
		return "polling"
	default:
		return "disconnected"
	}
}

// Messenger is the slice of the history service the session needs.
type Messenger interface {
	GetChat(ctx context.Context, chatID string, page, pageSize int) ([]models.HistoryMessage, error)
	GetChatInsights(ctx context.Context, chatID string) (services.ChatInsights, error)
}

// Events carries the optional callbacks a consumer can hook. All
// callbacks fire on the session's internal goroutines and must not
// block.
type Events struct {
	OnChat   func(models.ChatFrame)
	OnMarker func(models.MapStreamMessage)
	OnTyping func(models.TypingFrame)
	OnState  func(State)
}

// Options configures a Session.
type Options struct {
	// SocketURL is the gateway's websocket endpoint. Empty disables the
	// socket entirely; the session then lives in polling mode and never
	// dials.
	SocketURL string
	TeamID    string
	UserID    string
	Messenger Messenger
	// PageSize defaults to the gateway's history window.
	PageSize int
	Dialer   *websocket.Dialer
	Logger   *zap.Logger
	Events   Events
}

// Session is one client's attachment to a team room. It owns the
// message list, merging live frames, history pages and poll results
// into a single deduplicated, time-ordered view.
type Session struct {
	opts      Options
	log       *zap.Logger
	socketURL string

	reconnectInterval time.Duration
	pollInterval      time.Duration
	loadMoreTimeout   time.Duration

	mu          sync.Mutex
	state       State
	messages    []models.HistoryMessage
	seen        map[string]bool
	totalRows   int
	nextPage    int
	loadingMore bool
	loadMoreGen uint64

	connMu sync.Mutex
	conn   *websocket.Conn

	typingMu     sync.Mutex
	typingActive bool
	typingTimer  *time.Timer

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSession builds a session. Call Start to begin connecting and
// polling; LoadHistory may be called before or after Start.
func NewSession(opts Options) (*Session, error) {
	if opts.TeamID == "" {
		return nil, errors.New("team id required")
	}
	if opts.Messenger == nil {
		return nil, errors.New("messenger required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = models.DefaultPageSize
	}

	s := &Session{
		opts:              opts,
		log:               opts.Logger,
		state:             StateDisconnected,
		seen:              make(map[string]bool),
		reconnectInterval: defaultReconnectInterval,
		pollInterval:      defaultPollInterval,
		loadMoreTimeout:   defaultLoadMoreWait,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if opts.SocketURL != "" {
		u, err := url.Parse(opts.SocketURL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set("teamId", opts.TeamID)
		u.RawQuery = q.Encode()
		s.socketURL = u.String()
	}
	return s, nil
}

// Start launches the socket loop and the polling fallback. Without a
// socket URL only the poller runs.
func (s *Session) Start() {
	s.wg.Add(1)
	go s.runPoller()
	if s.socketURL != "" {
		s.wg.Add(1)
		go s.runSocket()
	} else {
		s.setState(StatePolling)
	}
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.typingMu.Lock()
		if s.typingTimer != nil {
			s.typingTimer.Stop()
		}
		s.typingMu.Unlock()
		s.connMu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.connMu.Unlock()
		s.wg.Wait()
		s.setState(StateDisconnected)
	})
}

// State reports the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a snapshot of the merged message list, oldest first.
func (s *Session) Messages() []models.HistoryMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.HistoryMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// LoadHistory resets the message list from the newest history page and
// records the total row count that gates LoadMore.
func (s *Session) LoadHistory(ctx context.Context) error {
	insights, err := s.opts.Messenger.GetChatInsights(ctx, s.opts.TeamID)
	if err != nil {
		return err
	}
	page, err := s.opts.Messenger.GetChat(ctx, s.opts.TeamID, 0, s.opts.PageSize)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRows = insights.NumberOfRows
	s.messages = s.messages[:0]
	s.seen = make(map[string]bool)
	// Pages arrive newest first; the view is oldest first.
	for i := len(page) - 1; i >= 0; i-- {
		s.appendLocked(page[i])
	}
	s.nextPage = 1
	s.loadingMore = false
	return nil
}

// HasMore reports whether older pages remain unfetched.
func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMoreLocked()
}

func (s *Session) hasMoreLocked() bool {
	return s.nextPage*s.opts.PageSize < s.totalRows
}

// LoadMore fetches the next older page and prepends it. At most one
// request is in flight; further calls are no-ops until it settles. When
// the socket is up the request rides it and the reply lands
// asynchronously; otherwise the page is fetched over HTTP before
// returning.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.loadingMore || !s.hasMoreLocked() {
		s.mu.Unlock()
		return nil
	}
	s.loadingMore = true
	s.loadMoreGen++
	gen := s.loadMoreGen
	page := s.nextPage
	s.mu.Unlock()

	if s.connectedConn() != nil {
		frame := struct {
			Type     string `json:"type"`
			SenderID string `json:"senderId"`
			Page     int    `json:"page"`
			PageSize int    `json:"pageSize"`
		}{Type: string(models.TypeLoadMore), SenderID: s.opts.UserID, Page: page, PageSize: s.opts.PageSize}
		if err := s.write(frame); err == nil {
			// The gateway answers with additionalMessages or not at all;
			// re-open the guard if this request goes unanswered.
			time.AfterFunc(s.loadMoreTimeout, func() {
				s.mu.Lock()
				if s.loadingMore && s.loadMoreGen == gen {
					s.loadingMore = false
				}
				s.mu.Unlock()
			})
			return nil
		}
		// Socket dropped between the check and the write; fall through.
	}

	rows, err := s.opts.Messenger.GetChat(ctx, s.opts.TeamID, page, s.opts.PageSize)
	if err != nil {
		s.mu.Lock()
		s.loadingMore = false
		s.mu.Unlock()
		return err
	}
	s.prependOlder(rows)
	return nil
}

// SendText publishes a text message. There is no local echo: the
// message appears once it comes back over the relay or the next poll.
func (s *Session) SendText(text string) error {
	frame := struct {
		Type      string `json:"type"`
		SenderID  string `json:"senderId"`
		ID        string `json:"id"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}{
		Type:      string(models.TypeText),
		SenderID:  s.opts.UserID,
		ID:        s.opts.TeamID,
		Message:   text,
		Timestamp: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	return s.write(frame)
}

// PhotoPayload is the inline photo body: file name plus base64 data.
type PhotoPayload struct {
	FileName string `json:"file_name"`
	Data     string `json:"data"`
}

// SendPhoto publishes a photo message with the encoded image inline.
func (s *Session) SendPhoto(photo PhotoPayload) error {
	frame := struct {
		Type      string       `json:"type"`
		SenderID  string       `json:"senderId"`
		ID        string       `json:"id"`
		Message   PhotoPayload `json:"message"`
		Timestamp string       `json:"timestamp"`
	}{
		Type:      string(models.TypePhoto),
		SenderID:  s.opts.UserID,
		ID:        s.opts.TeamID,
		Message:   photo,
		Timestamp: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	return s.write(frame)
}

// SendMark publishes a marker add, edit or retire. Reusing a message id
// updates the marker; active=false retires it.
func (s *Session) SendMark(mark models.MarkEnvelope) error {
	frame := struct {
		Type string `json:"type"`
		models.MarkEnvelope
	}{Type: string(models.TypeMark), MarkEnvelope: mark}
	return s.write(frame)
}

// Typing records a keystroke. The first keystroke after a pause sends
// typing:true; typing:false follows once no keystroke arrives for the
// debounce window. Exactly one stop is sent per pause.
func (s *Session) Typing() {
	s.typingMu.Lock()
	defer s.typingMu.Unlock()
	if !s.typingActive {
		s.typingActive = true
		s.sendTyping(true)
	}
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(typingDebounce, s.stopTyping)
}

func (s *Session) stopTyping() {
	s.typingMu.Lock()
	defer s.typingMu.Unlock()
	if !s.typingActive {
		return
	}
	s.typingActive = false
	s.sendTyping(false)
}

func (s *Session) sendTyping(typing bool) {
	frame := struct {
		Type     string `json:"type"`
		SenderID string `json:"senderId"`
		TeamID   string `json:"teamId"`
		Typing   bool   `json:"typing"`
	}{Type: string(models.TypeTyping), SenderID: s.opts.UserID, TeamID: s.opts.TeamID, Typing: typing}
	if err := s.write(frame); err != nil && !errors.Is(err, errNotConnected) {
		s.log.Debug("send typing", zap.Error(err))
	}
}

func (s *Session) runSocket() {
	defer s.wg.Done()
	bo := backoff.WithContext(backoff.NewConstantBackOff(s.reconnectInterval), s.ctx)
	_ = backoff.Retry(func() error {
		if err := s.ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		s.setState(StateConnecting)
		conn, resp, err := s.dialer().DialContext(s.ctx, s.socketURL, nil)
		if err != nil {
			if resp != nil {
				resp.Body.Close()
			}
			s.log.Warn("dial socket", zap.Error(err))
			s.setState(StatePolling)
			return err
		}

		s.connMu.Lock()
		s.conn = conn
		s.connMu.Unlock()
		s.setState(StateConnected)
		s.log.Info("socket connected", zap.String("team", s.opts.TeamID))

		s.readLoop(conn)

		s.connMu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.connMu.Unlock()

		// A socket load-more that was still waiting for its reply died
		// with the connection.
		s.mu.Lock()
		s.loadingMore = false
		s.mu.Unlock()

		s.setState(StatePolling)
		return errNotConnected // force another dial after the backoff delay
	}, bo)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				s.log.Warn("socket read", zap.Error(err))
			}
			conn.Close()
			return
		}
		s.dispatch(raw)
	}
}

func (s *Session) dispatch(raw []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		s.log.Warn("decode frame", zap.Error(err))
		return
	}

	switch head.Type {
	case string(models.TypeText), string(models.TypePhoto),
		string(models.TypeActionResponse), string(models.TypeTimeline):
		var frame models.ChatFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Warn("decode chat frame", zap.Error(err))
			return
		}
		frame.Type = head.Type
		s.appendLive(frame)
		if s.opts.Events.OnChat != nil {
			s.opts.Events.OnChat(frame)
		}
	case string(models.TypeMark):
		var frame models.MarkerFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Warn("decode marker frame", zap.Error(err))
			return
		}
		if s.opts.Events.OnMarker != nil {
			s.opts.Events.OnMarker(frame.MapStreamMessage)
		}
	case string(models.TypeTyping):
		var frame models.TypingFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Warn("decode typing frame", zap.Error(err))
			return
		}
		if s.opts.Events.OnTyping != nil {
			s.opts.Events.OnTyping(frame)
		}
	case "additionalMessages":
		var frame models.AdditionalMessagesFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.log.Warn("decode additionalMessages frame", zap.Error(err))
			return
		}
		s.prependOlder(frame.Messages)
	case "error":
		var frame models.ErrorFrame
		if err := json.Unmarshal(raw, &frame); err == nil {
			s.log.Warn("gateway error", zap.String("message", frame.Message))
		}
	default:
		s.log.Debug("unhandled frame", zap.String("type", head.Type))
	}
}

func (s *Session) runPoller() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if s.State() != StatePolling {
				continue
			}
			s.poll()
		}
	}
}

// poll refreshes the newest page and appends any rows not yet seen.
// Existing rows are never reordered or replaced.
func (s *Session) poll() {
	ctx, cancel := context.WithTimeout(s.ctx, fetchTimeout)
	defer cancel()
	page, err := s.opts.Messenger.GetChat(ctx, s.opts.TeamID, 0, s.opts.PageSize)
	if err != nil {
		s.log.Warn("poll chat", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(page) - 1; i >= 0; i-- {
		s.appendLocked(page[i])
	}
}

func (s *Session) appendLive(frame models.ChatFrame) {
	msg := models.HistoryMessage{
		SenderID:  frame.SenderID,
		ID:        models.FlexString(frame.ID),
		Type:      frame.Type,
		Message:   frame.Message,
		Timestamp: models.FlexString(frame.Timestamp),
	}
	if frame.ReplyMarkup != nil {
		if raw, err := json.Marshal(frame.ReplyMarkup); err == nil {
			msg.ReplyMarkup = raw
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

func (s *Session) appendLocked(msg models.HistoryMessage) {
	key := msg.Key()
	if key == "" || s.seen[key] {
		return
	}
	s.seen[key] = true
	s.messages = append(s.messages, msg)
}

func (s *Session) prependOlder(rows []models.HistoryMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	older := make([]models.HistoryMessage, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		key := rows[i].Key()
		if key == "" || s.seen[key] {
			continue
		}
		s.seen[key] = true
		older = append(older, rows[i])
	}
	s.messages = append(older, s.messages...)
	s.nextPage++
	s.loadingMore = false
}

func (s *Session) write(v any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return errNotConnected
	}
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(v)
}

func (s *Session) connectedConn() *websocket.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

func (s *Session) dialer() *websocket.Dialer {
	if s.opts.Dialer != nil {
		return s.opts.Dialer
	}
	return websocket.DefaultDialer
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed && s.opts.Events.OnState != nil {
		s.opts.Events.OnState(state)
	}
}
