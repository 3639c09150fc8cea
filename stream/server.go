// Package stream serves character renderings of a video over websockets.
package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/sirupsen/logrus"
	"github.com/wbrown/img2ascii"
	"github.com/wbrown/img2ascii/video"
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 5 * time.Second,
}

// SourceFunc opens a fresh source for one client.
type SourceFunc func() (video.Source, error)

// Server streams text frames to websocket clients. Every connection runs
// its own pipeline over a source opened for it.
type Server struct {
	conv *img2ascii.Converter
	open SourceFunc
	log  logrus.FieldLogger
	e    *echo.Echo
}

// NewServer builds the HTTP routes:
//
//	GET /api/config  converter settings as JSON
//	GET /api/ws      websocket, one text message per frame
func NewServer(conv *img2ascii.Converter, open SourceFunc, log logrus.FieldLogger) *Server {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	s := &Server{conv: conv, open: open, log: log, e: echo.New()}
	s.e.HideBanner = true
	s.e.Use(middleware.Recover())
	s.e.Use(s.logRequests)

	api := s.e.Group("/api")
	api.GET("/config", s.handleConfig)
	api.GET("/ws", s.handleWebsocket)
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.e }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("stream server listening")
	err := s.e.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.log.WithFields(logrus.Fields{
			"method":  c.Request().Method,
			"path":    c.Request().URL.Path,
			"status":  c.Response().Status,
			"elapsed": time.Since(start).String(),
		}).Debug("request")
		return err
	}
}

func (s *Server) handleConfig(c echo.Context) error {
	settings := s.conv.Settings()
	return c.JSON(http.StatusOK, &settings)
}

func (s *Server) handleWebsocket(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied.
		s.log.WithError(err).Debug("websocket upgrade failed")
		return nil
	}
	defer ws.Close()

	src, err := s.open()
	if err != nil {
		s.log.WithError(err).Error("failed to open source")
		closeWith(ws, websocket.CloseInternalServerErr, "source unavailable")
		return nil
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go func() {
		// Drain client messages until the connection goes away.
		for {
			if _, _, err := ws.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	sink := newSocketSink(ctx, ws, video.FrameDelay(src.FPS()))
	defer sink.Close()
	p := &video.Pipeline{
		Converter: s.conv,
		Source:    src,
		Sink:      sink,
		Log:       s.log.WithField("remote", c.RealIP()),
	}
	stats, err := p.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		s.log.WithField("frames", stats.Frames).Debug("client disconnected")
	case err != nil:
		s.log.WithError(err).Error("stream failed")
		closeWith(ws, websocket.CloseInternalServerErr, "stream failed")
	default:
		closeWith(ws, websocket.CloseNormalClosure, stats.State.String())
	}
	return nil
}

func closeWith(ws *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// socketSink writes each grid as one text message, at most one per delay.
type socketSink struct {
	ctx    context.Context
	conn   *websocket.Conn
	ticker *time.Ticker
	first  bool
}

func newSocketSink(ctx context.Context, conn *websocket.Conn, delay time.Duration) *socketSink {
	return &socketSink{ctx: ctx, conn: conn, ticker: time.NewTicker(delay), first: true}
}

func (s *socketSink) WriteFrame(f *img2ascii.Frame) error {
	if f.Grid == nil {
		return video.ErrNoText
	}
	if !s.first {
		select {
		case <-s.ticker.C:
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
	s.first = false
	return s.conn.WriteMessage(websocket.TextMessage, []byte(f.Grid.String()))
}

func (s *socketSink) Close() error {
	s.ticker.Stop()
	return nil
}
