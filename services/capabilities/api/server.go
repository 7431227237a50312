package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/common"
	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/rollup"
	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/storage"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("api")

type server struct {
	router         *gin.Engine
	httpServer     *http.Server
	storage        Storage
	merger         JobsMerger
	serviceKey     string
	listenAddr     string
	generalHandler func(http.Handler) http.Handler
	wg             sync.WaitGroup
}

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ServiceKeyApi  string
	ListenAddress  string
	Storage        Storage
	Merger         JobsMerger
	GeneralHandler func(http.Handler) http.Handler
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Storage) {
		return nil, errors.New("storage is required")
	}
	if check.IfNil(args.Merger) {
		return nil, errors.New("jobs merger is required")
	}
	if args.GeneralHandler == nil {
		return nil, errors.New("nil http handler")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())

	s := &server{
		router:         router,
		storage:        args.Storage,
		merger:         args.Merger,
		serviceKey:     args.ServiceKeyApi,
		listenAddr:     args.ListenAddress,
		generalHandler: args.GeneralHandler,
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	api := s.router.Group("/api")

	// Job registry
	api.GET("/jobs", s.handleGetJobs)
	api.GET("/jobs/:name", s.handleGetJob)
	api.POST("/jobs", s.authAPIKey(), s.handleSaveJob)
	api.POST("/jobs/import", s.authAPIKey(), s.handleImportJobs)
	api.DELETE("/jobs/:name", s.authAPIKey(), s.handleDeleteJob)

	// Merged aggregations of the registered jobs
	api.GET("/capabilities/:rollupIndex", s.handleGetCapabilities)

	// Stateless checks on caller provided jobs
	api.POST("/compatibility", s.handleCompatibility)
	api.POST("/merge", s.handleMerge)
}

// Start listens and serves connections
func (s *server) Start() {
	handler := s.generalHandler(s.router)

	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: handler,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()
	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *server) IsInterfaceNil() bool {
	return s == nil
}

// --- Middlewares ---

func (s *server) authAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Api-Key")
		if key != s.serviceKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// --- Handlers ---

func (s *server) handleGetJobs(c *gin.Context) {
	jobs, err := s.storage.GetJobs(c.Request.Context(), c.Query("rollupIndex"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *server) handleGetJob(c *gin.Context) {
	job, err := s.storage.GetJob(c.Request.Context(), c.Param("name"))
	if errors.Is(err, storage.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (s *server) handleSaveJob(c *gin.Context) {
	var job common.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(job.Name) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing job name"})
		return
	}

	err := rollup.ValidateJob(job)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = s.storage.SaveJob(c.Request.Context(), job)
	if err != nil {
		log.Warn("failed to save job", "name", job.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleImportJobs(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	jobs, err := rollup.ParseRollupCapabilities(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(jobs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no rollup jobs in payload"})
		return
	}

	err = s.storage.SaveJobs(c.Request.Context(), jobs)
	if err != nil {
		log.Warn("failed to import jobs", "num jobs", len(jobs), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Debug("imported rollup jobs", "sender", c.Request.RemoteAddr, "num jobs", len(jobs))

	c.JSON(http.StatusOK, gin.H{"ok": true, "imported": len(jobs)})
}

func (s *server) handleDeleteJob(c *gin.Context) {
	err := s.storage.DeleteJob(c.Request.Context(), c.Param("name"))
	if errors.Is(err, storage.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleGetCapabilities(c *gin.Context) {
	rollupIndex := c.Param("rollupIndex")
	jobs, err := s.storage.GetJobs(c.Request.Context(), rollupIndex)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(jobs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no rollup jobs for index " + rollupIndex})
		return
	}

	merged, err := s.merger.MergeJobConfigurations(jobs)
	if err != nil {
		log.Debug("can not merge registered jobs", "rollup index", rollupIndex, "error", err)
		c.JSON(mergeErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, merged)
}

func (s *server) handleCompatibility(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"compatible": s.merger.AreJobsCompatibleJSON(data)})
}

func (s *server) handleMerge(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	merged, err := s.merger.MergeJobConfigurationsJSON(data)
	if err != nil {
		c.JSON(mergeErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, merged)
}

func mergeErrorStatus(err error) int {
	switch {
	case errors.Is(err, rollup.ErrIncompatibleJobs):
		return http.StatusConflict
	case errors.Is(err, rollup.ErrNoJobs), errors.Is(err, rollup.ErrNotJobList), errors.Is(err, rollup.ErrInvalidJobs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
