// Package server exposes the local status API used by serve mode.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/clipsmithlabs/clipsmith/internal/doctor"
	"github.com/clipsmithlabs/clipsmith/internal/environment"
	historydomain "github.com/clipsmithlabs/clipsmith/internal/history/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Repo   historydomain.Repository
	Doctor *doctor.Service
	Env    *environment.Manager
}

type Server struct {
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB
	repo   historydomain.Repository
	doctor *doctor.Service
	env    *environment.Manager
}

func New(p Params) *Server {
	return &Server{
		cfg:    p.Cfg,
		log:    p.Log.Named("server"),
		db:     p.DB,
		repo:   p.Repo,
		doctor: p.Doctor,
		env:    p.Env,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics())

	r.GET("/healthz", s.GetHealth)
	r.GET("/readyz", s.GetReadiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/launches", s.ListLaunches)
	api.GET("/launches/:id", s.GetLaunch)
	api.GET("/env", s.GetEnvironment)
	return r
}

func (s *Server) GetHealth(c *gin.Context) {
	respondData(c, gin.H{"status": "ok", "app": s.cfg.App.Name})
}

func (s *Server) GetReadiness(c *gin.Context) {
	report := s.doctor.Run(c.Request.Context())
	setReadyGauge(report.Ready)
	if !report.Ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"data": report})
		return
	}
	respondData(c, report)
}

func (s *Server) ListLaunches(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		respondError(c, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	items, err := s.repo.List(c.Request.Context(), s.db, limit)
	if err != nil {
		s.log.Error("list launches failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to list launches")
		return
	}
	respondData(c, items)
}

func (s *Server) GetLaunch(c *gin.Context) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid launch id")
		return
	}

	l, err := s.repo.FindByID(c.Request.Context(), s.db, snowflake.ID(id))
	if err != nil {
		s.log.Error("find launch failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load launch")
		return
	}
	if l == nil {
		respondError(c, http.StatusNotFound, "launch not found")
		return
	}
	respondData(c, l)
}

func (s *Server) GetEnvironment(c *gin.Context) {
	respondData(c, s.env.Info())
}

// RunHTTP serves the status API for the lifetime of the fx app.
func RunHTTP(lc fx.Lifecycle, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.Router(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("status API listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("status API stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
