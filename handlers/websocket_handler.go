package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/miwamasa/smolagentUIWrapper/agent"
	"github.com/miwamasa/smolagentUIWrapper/floorplan"
	"github.com/miwamasa/smolagentUIWrapper/models"
	"github.com/miwamasa/smolagentUIWrapper/parser"
	"github.com/miwamasa/smolagentUIWrapper/storage"
)

const defaultAgentTimeout = 120 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow connections from any origin
	},
}

// sessionState tracks where the session is in its lifecycle. One
// goroutine owns the session, so plain assignment is enough.
type sessionState string

const (
	stateConnected  sessionState = "connected"
	stateAwaiting   sessionState = "awaiting_message"
	stateProcessing sessionState = "processing"
	stateClosed     sessionState = "closed"
)

// SessionDeps carries everything a chat session needs. The same deps are
// shared across connections; per-connection state lives on ChatSession.
type SessionDeps struct {
	Runner       agent.Runner
	Parser       *parser.Engine
	FloorPlan    *floorplan.Manager
	Transcript   *storage.TranscriptStore
	AgentTimeout time.Duration
}

// ChatSession is one client connection. Messages on a session are
// processed strictly in arrival order; concurrency exists only across
// sessions.
type ChatSession struct {
	ID           string
	Connection   *websocket.Conn
	Logger       *zap.Logger
	Runner       agent.Runner
	Parser       *parser.Engine
	FloorPlan    *floorplan.Manager
	Transcript   *storage.TranscriptStore
	AgentTimeout time.Duration

	StartTime time.Time
	state     sessionState
	requests  int
}

func NewChatSession(id string, conn *websocket.Conn, deps SessionDeps) *ChatSession {
	timeout := deps.AgentTimeout
	if timeout <= 0 {
		timeout = defaultAgentTimeout
	}
	return &ChatSession{
		ID:           id,
		Connection:   conn,
		Logger:       zap.L().With(zap.String("session_id", id)),
		Runner:       deps.Runner,
		Parser:       deps.Parser,
		FloorPlan:    deps.FloorPlan,
		Transcript:   deps.Transcript,
		AgentTimeout: timeout,
		StartTime:    time.Now(),
	}
}

// HandleChatSession upgrades the request and runs the session until the
// client disconnects.
func HandleChatSession(w http.ResponseWriter, r *http.Request, deps SessionDeps) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("Failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	session := NewChatSession(uuid.New().String(), conn, deps)
	session.Logger.Info("New chat session started")
	session.run()
	session.Logger.Info("Chat session ended",
		zap.Int("requests", session.requests),
		zap.Duration("uptime", time.Since(session.StartTime)))
}

func (s *ChatSession) setState(state sessionState) {
	s.state = state
	s.Logger.Debug("Session state", zap.String("state", string(state)))
}

func (s *ChatSession) run() {
	s.setState(stateConnected)

	// The client needs the floor plan before it can render anything
	// map-related; send it exactly once, right after connecting.
	if s.FloorPlan.Enabled() {
		s.send(s.FloorPlan.DefinitionMessage())
	}

	for {
		s.setState(stateAwaiting)
		_, data, err := s.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.Logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
		s.setState(stateProcessing)
		s.processMessage(parseInbound(data))
	}

	s.setState(stateClosed)
}

// parseInbound reads the {"message": ...} frame; anything that is not
// JSON is taken as the message text itself.
func parseInbound(data []byte) string {
	var inbound struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &inbound); err != nil {
		return string(data)
	}
	return inbound.Message
}

// processMessage runs the full pipeline for one user message: echo,
// agent, extraction, aggregation, then the outbound frame sequence. Any
// failure is reported on the connection; it never tears the session down.
func (s *ChatSession) processMessage(userMessage string) {
	s.requests++
	requestID := uuid.New().String()
	logger := s.Logger.With(zap.String("request_id", requestID))
	receivedAt := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while processing message", zap.Any("panic", r))
			s.send(models.Message{
				Type:    models.MessageError,
				Content: models.ErrorContent{Message: fmt.Sprintf("Error processing request: %v", r)},
			})
		}
	}()

	s.send(models.Message{Type: models.MessageUserMessage, Content: userMessage})

	ctx, cancel := context.WithTimeout(context.Background(), s.AgentTimeout)
	defer cancel()
	raw, err := s.Runner.Run(ctx, userMessage)
	if err != nil {
		// The run still renders: as an error response, on an open
		// connection.
		logger.Error("Agent invocation failed", zap.Error(err))
		raw = agent.FailedOutput(err)
	}

	events := s.Parser.Extract(raw)
	s.checkMapReferences(logger, events)
	unified := s.Parser.Aggregate(raw, events)

	frames := make([]models.Message, 0, len(events))
	for _, ev := range events {
		frames = append(frames, ev.Frame())
	}

	s.send(models.Message{Type: models.MessageDebug, Content: models.DebugInfo{
		AgentResponse: raw,
		ParsedOutputs: frames,
		OutputCount:   len(frames),
	}})
	s.send(models.Message{Type: models.MessageUnifiedResponse, Content: []*models.UnifiedResponse{unified}})
	for _, frame := range frames {
		s.send(frame)
	}

	s.archive(logger, requestID, receivedAt, userMessage, unified)
	logger.Info("Request processed",
		zap.Int("events", len(events)),
		zap.Duration("elapsed", time.Since(receivedAt)))
}

// checkMapReferences logs referential problems in map commands against
// the loaded floor plan. Commands pass through either way; the renderer
// owns the final decision.
func (s *ChatSession) checkMapReferences(logger *zap.Logger, events []models.Event) {
	if !s.FloorPlan.Enabled() {
		return
	}
	for _, ev := range events {
		command, ok := ev.(*models.MapCommandEvent)
		if !ok {
			continue
		}
		for _, warning := range s.FloorPlan.ValidateCommand(&command.Payload) {
			logger.Warn("Map command reference check", zap.String("warning", warning))
		}
	}
}

func (s *ChatSession) archive(logger *zap.Logger, requestID string, receivedAt time.Time, userMessage string, unified *models.UnifiedResponse) {
	if !s.Transcript.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	record := storage.RunRecord{
		RequestID:   requestID,
		ReceivedAt:  receivedAt,
		UserMessage: userMessage,
		Response:    unified,
	}
	if err := s.Transcript.Append(ctx, s.ID, record); err != nil {
		logger.Warn("Failed to archive run record", zap.Error(err))
	}
}

func (s *ChatSession) send(msg models.Message) {
	if err := s.Connection.WriteJSON(msg); err != nil {
		s.Logger.Error("Failed to send websocket message",
			zap.Error(err), zap.String("type", msg.Type))
	}
}
