package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"diffractcore/internal/core"
	"diffractcore/internal/fit"
)

const writeWait = 10 * time.Second

type startFitRequest struct {
	Experiments []string `json:"experiments"`
}

func (s *Server) setFitConfig(c *gin.Context) {
	var req core.FitConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cfg, res, err := s.svc.SetFitConfig(c.Request.Context(), c.Param("project"), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	reply(c, http.StatusOK, cfg, res)
}

func (s *Server) bindStart(c *gin.Context) (startFitRequest, bool) {
	var req startFitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return req, false
		}
	}
	req.Experiments = append(req.Experiments, c.QueryArray("experiment")...)
	return req, true
}

// startFit launches a refinement and returns at once; clients poll GET /fit
// or use the stream endpoint.
func (s *Server) startFit(c *gin.Context) {
	req, ok := s.bindStart(c)
	if !ok {
		return
	}
	// Unread progress is dropped; the final update never blocks the run.
	if _, err := s.svc.StartFit(c.Request.Context(), c.Param("project"), req.Experiments); err != nil {
		s.fail(c, err)
		return
	}
	st, err := s.svc.FitStatus(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": st})
}

func (s *Server) fitStatus(c *gin.Context) {
	st, err := s.svc.FitStatus(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st})
}

func (s *Server) cancelFit(c *gin.Context) {
	if err := s.svc.CancelFit(c.Request.Context(), c.Param("project")); err != nil {
		s.fail(c, err)
		return
	}
	s.fitStatus(c)
}

type streamMessage struct {
	Progress *fit.Progress `json:"progress,omitempty"`
	Error    *errorBody    `json:"error,omitempty"`
}

// streamFit upgrades to a WebSocket, starts a fit and writes every progress
// update as a JSON message. The final update is followed by a normal close.
// A client message of {"action":"cancel"} cancels the run.
func (s *Server) streamFit(c *gin.Context) {
	req, ok := s.bindStart(c)
	if !ok {
		return
	}
	projectID := c.Param("project")
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "project_id", projectID, "error", err)
		return
	}
	defer ws.Close()

	ch, err := s.svc.StartFit(c.Request.Context(), projectID, req.Experiments)
	if err != nil {
		body := bodyFor(err)
		_ = s.write(ws, streamMessage{Error: &body})
		s.closeWS(ws, websocket.CloseNormalClosure, body.Message)
		return
	}
	s.logger.Info("fit stream opened", "project_id", projectID)

	go s.readCancel(ws, projectID)
	for p := range ch {
		if err := s.write(ws, streamMessage{Progress: &p}); err != nil {
			s.logger.Info("fit stream client gone", "project_id", projectID, "error", err)
			return
		}
	}
	s.closeWS(ws, websocket.CloseNormalClosure, "fit finished")
}

type clientAction struct {
	Action string `json:"action"`
}

// readCancel consumes client messages until the connection closes.
func (s *Server) readCancel(ws *websocket.Conn, projectID string) {
	for {
		var msg clientAction
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Action == "cancel" {
			if err := s.svc.CancelFit(context.Background(), projectID); err != nil {
				s.logger.Warn("fit cancel failed", "project_id", projectID, "error", err)
			}
		}
	}
}

func (s *Server) write(ws *websocket.Conn, v any) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(v)
}

func (s *Server) closeWS(ws *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
