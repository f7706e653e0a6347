package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"boss_alert_bot/internal/domain/boss"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const aliveText = "Boss alert bot is running."

// UpcomingSource lists the bosses inside the display horizon.
type UpcomingSource interface {
	Upcoming() ([]boss.Occurrence, time.Time)
}

// PendingCounter reports alerts still waiting for deletion.
type PendingCounter interface {
	Pending() int
}

type upcomingBoss struct {
	Name     string    `json:"name"`
	Location string    `json:"location"`
	At       time.Time `json:"at"`
	InSecs   int64     `json:"in_seconds"`
}

// Server is the liveness endpoint hosting platforms ping to keep the process up.
type Server struct {
	srv     *http.Server
	started time.Time
	logger  *logrus.Entry
}

func NewServer(port string, upcoming UpcomingSource, pending PendingCounter, logger *logrus.Entry) *Server {
	s := &Server{started: time.Now(), logger: logger}
	s.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router(upcoming, pending),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) router(upcoming UpcomingSource, pending PendingCounter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, aliveText)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "ok",
			"uptime":            time.Since(s.started).Truncate(time.Second).String(),
			"pending_deletions": pending.Pending(),
		})
	})

	r.GET("/upcoming", func(c *gin.Context) {
		occs, now := upcoming.Upcoming()
		out := make([]upcomingBoss, 0, len(occs))
		for _, o := range occs {
			out = append(out, upcomingBoss{
				Name:     o.Boss.Name,
				Location: o.Boss.Location,
				At:       o.At,
				InSecs:   int64(o.At.Sub(now) / time.Second),
			})
		}
		c.JSON(http.StatusOK, gin.H{"now": now, "bosses": out})
	})

	return r
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.WithField("addr", s.srv.Addr).Info("Liveness server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Liveness server stopped")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
