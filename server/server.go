package server

import (
	"context"
	"errors"
	"github.com/allape/colorfwd/publisher"
	"github.com/allape/colorfwd/sensor"
	"github.com/allape/gogger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"net/http"
	"time"
)

var l = gogger.New("server")

const ShutdownTimeout = 5 * time.Second

type Options struct {
	Addr string
	Path string
	Cors bool

	// Stream serves Path, nil when the publisher is not reachable over http.
	Stream      http.Handler
	Description sensor.Description
	Stats       publisher.StatsReporter
}

type Status struct {
	Sensor    sensor.Description `json:"sensor"`
	FrameSize int                `json:"frame_size"`
	Publisher *publisher.Stats   `json:"publisher,omitempty"`
}

type Server struct {
	options Options
	engine  *gin.Engine
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Status() Status {
	status := Status{
		Sensor:    s.options.Description,
		FrameSize: s.options.Description.Size(),
	}
	if s.options.Stats != nil {
		stats := s.options.Stats.Stats()
		status.Publisher = &stats
	}
	return status
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.options.Addr,
		Handler: s.engine,
	}

	errChan := make(chan error, 1)
	go func() {
		l.Info().Println("listening on", s.options.Addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}

	err = <-errChan
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func New(options Options) *Server {
	if options.Addr == "" {
		options.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	if options.Cors {
		engine.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet},
		}))
	}

	s := &Server{
		options: options,
		engine:  engine,
	}

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status())
	})

	if options.Stream != nil && options.Path != "" {
		engine.GET(options.Path, gin.WrapH(options.Stream))
	}

	return s
}
