package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/clever-forecast/internal/models"
)

const (
	streamWriteWait    = 10 * time.Second
	streamPongWait     = 60 * time.Second
	streamPingInterval = (streamPongWait * 9) / 10
	streamMaxMessage   = 256 << 10
	streamInFlight     = 4
)

// Stream message operations
const (
	OpResult = "result"
	OpError  = "error"
)

// StreamMessage is one server frame on the prediction stream
type StreamMessage struct {
	Op     string                   `json:"op"`
	Seq    int                      `json:"seq"`
	Result *models.PredictionResult `json:"result,omitempty"`
	Error  *ErrorResponse           `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamConn serialises writes to one websocket client
type streamConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *streamConn) send(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return c.conn.WriteJSON(msg)
}

func (c *streamConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait))
}

// handleStream upgrades to a websocket where the client sends game requests
// and receives one frame per request, tagged with the request's sequence number.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	sc := &streamConn{conn: conn}
	log := s.logger.WithFields(logrus.Fields{"component": "stream", "remote": r.RemoteAddr})
	log.Info("Prediction stream opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadLimit(streamMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	go s.keepAlive(ctx, sc, log)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(streamInFlight)
	for seq := 0; ; seq++ {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("Prediction stream read failed")
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))

		var req models.GameRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := sc.send(StreamMessage{Op: OpError, Seq: seq, Error: &ErrorResponse{Code: "invalid_json", Message: err.Error()}}); err != nil {
				break
			}
			continue
		}

		g.Go(func() error {
			return sc.send(s.streamPredict(gctx, seq, &req))
		})
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Debug("Prediction stream write failed")
	}
	_ = conn.Close()
	log.Info("Prediction stream closed")
}

func (s *Server) streamPredict(ctx context.Context, seq int, req *models.GameRequest) StreamMessage {
	result, err := s.predictor.Predict(ctx, req)
	if err != nil {
		_, body := errorBody(err)
		return StreamMessage{Op: OpError, Seq: seq, Error: &body}
	}
	return StreamMessage{Op: OpResult, Seq: seq, Result: result}
}

func (s *Server) keepAlive(ctx context.Context, sc *streamConn, log *logrus.Entry) {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sc.ping(); err != nil {
				log.WithError(err).Debug("Prediction stream ping failed")
				return
			}
		}
	}
}
