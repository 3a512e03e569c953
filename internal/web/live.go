package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/playback"
	"github.com/yagnikpt/tunebox/internal/search"
	"github.com/yagnikpt/tunebox/internal/shared"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
	maxMessageBytes = 4096
)

var upgrader = websocket.Upgrader{
	// The API is token-authenticated, not cookie-authenticated, so any origin may connect.
	CheckOrigin: func(*http.Request) bool { return true },
}

// socket serializes writes to one websocket connection.
type socket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *socket) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *socket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// readLoop passes text frames to fn until the peer disconnects or stops answering pings.
func (s *socket) readLoop(fn func(msg []byte)) error {
	s.conn.SetReadLimit(maxMessageBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, msg, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind == websocket.TextMessage {
			fn(msg)
		}
	}
}

// pump writes every value from ch, pinging in between, until ch closes or a write fails.
func pump[T any](sock *socket, ch <-chan T, wrap func(T) any) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			if err := sock.writeJSON(wrap(v)); err != nil {
				return
			}
		case <-ticker.C:
			if err := sock.ping(); err != nil {
				return
			}
		}
	}
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) (*socket, bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "path", r.URL.Path, "error", err)
		return nil, false
	}
	return &socket{conn: conn}, true
}

func isUnexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived)
}

// handleSearchSocket feeds each inbound text frame, the whole search box contents, to a debounced
// controller and writes committed results back as JSON.
func (s *Server) handleSearchSocket(w http.ResponseWriter, r *http.Request) {
	sock, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	defer sock.conn.Close()

	ctrl := search.NewController(s.searcher, search.ControllerOpts{Debounce: s.debounce, Logger: s.logger})
	unregister := s.hub.Register(ctrl)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pump(sock, ctrl.Updates(), func(res search.Results) any { return res })
	}()

	err := sock.readLoop(func(msg []byte) { ctrl.Input(string(msg)) })
	if isUnexpectedClose(err) {
		s.logger.Debug("search socket closed", "error", err)
	}

	unregister()
	ctrl.Close()
	wg.Wait()
}

// playerCommand is an inbound /ws/player message.
type playerCommand struct {
	Type    string   `json:"type"`
	TrackID string   `json:"track_id,omitempty"`
	Queue   []string `json:"queue,omitempty"`
	Seconds *float64 `json:"seconds,omitempty"`
	Volume  *float64 `json:"volume,omitempty"`
	Index   *int     `json:"index,omitempty"`
}

type playerMessage struct {
	Type  string          `json:"type"`
	State *playback.State `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// handlePlayerSocket gives the connection its own playback session and streams its state.
func (s *Server) handlePlayerSocket(w http.ResponseWriter, r *http.Request) {
	sock, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	defer sock.conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := playback.NewSession(playback.NewNopBackend(), playback.SessionOpts{Logger: s.logger})
	states, unsubscribe := session.Subscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pump(sock, states, func(st playback.State) any { return playerMessage{Type: "state", State: &st} })
	}()

	err := sock.readLoop(func(msg []byte) {
		var cmd playerCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			sock.writeJSON(playerMessage{Type: "error", Error: fmt.Sprintf("%v: %v", shared.ErrInvalidInput, err)})
			return
		}
		if err := s.dispatch(ctx, session, cmd); err != nil {
			sock.writeJSON(playerMessage{Type: "error", Error: err.Error()})
		}
	})
	if isUnexpectedClose(err) {
		s.logger.Debug("player socket closed", "error", err)
	}

	cancel()
	unsubscribe()
	session.Close()
	wg.Wait()
}

func (s *Server) dispatch(ctx context.Context, session *playback.Session, cmd playerCommand) error {
	switch cmd.Type {
	case "play":
		track, err := s.track(cmd.TrackID)
		if err != nil {
			return err
		}
		queue := make([]models.Track, 0, len(cmd.Queue))
		for _, id := range cmd.Queue {
			t, err := s.track(id)
			if err != nil {
				return err
			}
			queue = append(queue, t)
		}
		session.PlayTrack(ctx, track, queue)
	case "pause":
		session.Pause()
	case "resume":
		session.Resume(ctx)
	case "next":
		session.Next(ctx)
	case "previous":
		session.Previous(ctx)
	case "seek":
		if cmd.Seconds == nil {
			return fmt.Errorf("%w: seconds", shared.ErrMissingArgument)
		}
		session.SeekTo(*cmd.Seconds)
	case "volume":
		if cmd.Volume == nil {
			return fmt.Errorf("%w: volume", shared.ErrMissingArgument)
		}
		session.SetVolume(*cmd.Volume)
	case "enqueue":
		track, err := s.track(cmd.TrackID)
		if err != nil {
			return err
		}
		session.AddToQueue(track)
	case "dequeue":
		if cmd.Index == nil {
			return fmt.Errorf("%w: index", shared.ErrMissingArgument)
		}
		session.RemoveFromQueue(*cmd.Index)
	case "clear":
		session.ClearQueue()
	default:
		return fmt.Errorf("%w: unknown command %q", shared.ErrInvalidArgument, cmd.Type)
	}
	return nil
}

func (s *Server) track(id string) (models.Track, error) {
	if id == "" {
		return models.Track{}, fmt.Errorf("%w: track_id", shared.ErrMissingArgument)
	}
	track, err := s.catalog.Tracks.Get(id)
	if err != nil {
		return models.Track{}, err
	}
	return track.Track, nil
}
