// ABOUTME: HTTP handlers for the sync service API
// ABOUTME: Lists speakers, triggers exports and serves compiled mixdowns
package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/soundflex/soundflex-go/internal/syncroot"
	"github.com/soundflex/soundflex-go/internal/version"
)

type infoResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Product string  `json:"product"`
	Version string  `json:"version"`
	Root    string  `json:"root"`
	Clients int     `json:"clients"`
	Uptime  float64 `json:"uptime"`
}

type exportResponse struct {
	Speaker  string  `json:"speaker"`
	Path     string  `json:"path,omitempty"`
	Duration float64 `json:"duration"`
	Clips    int     `json:"clips"`
	Empty    bool    `json:"empty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// newRouter builds the gin engine serving the API
func (s *Server) newRouter() *gin.Engine {
	if !s.config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if s.config.Debug {
		r.Use(gin.LoggerWithWriter(log.Writer()))
	}
	r.Use(corsMiddleware(s.config.CORSOrigins))

	r.GET("/", s.handleInfo)
	r.GET("/events", s.handleEvents)

	speakers := r.Group("/speakers")
	{
		speakers.GET("", s.handleListSpeakers)
		speakers.POST("/:name/export", s.handleExport)
		speakers.POST("/:name/request", s.handleRequest)
		speakers.GET("/:name/compiled.wav", s.handleCompiled)
	}

	return r
}

// corsMiddleware allows any origin unless origins is set
func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type"}
	return cors.New(config)
}

func (s *Server) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, infoResponse{
		ID:      s.serverID,
		Name:    s.config.Name,
		Product: version.Product,
		Version: version.Version,
		Root:    s.config.Root,
		Clients: s.ClientCount(),
		Uptime:  time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleListSpeakers(c *gin.Context) {
	speakers, err := syncroot.Scan(s.config.Root)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, speakers)
}

func (s *Server) handleExport(c *gin.Context) {
	sp, err := syncroot.Lookup(s.config.Root, c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := s.engine.Export(c.Request.Context(), sp)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := exportResponse{
		Speaker:  result.Speaker,
		Duration: result.Duration,
		Clips:    result.Clips,
		Empty:    result.Empty,
	}
	if !result.Empty {
		resp.Path = result.Path
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRequest(c *gin.Context) {
	name := c.Param("name")
	if err := syncroot.RequestExport(s.config.Root, name); err != nil {
		writeError(c, err)
		return
	}
	log.Printf("Export requested for %s", name)
	c.JSON(http.StatusAccepted, gin.H{"speaker": name, "status": "requested"})
}

func (s *Server) handleCompiled(c *gin.Context) {
	sp, err := syncroot.Lookup(s.config.Root, c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !sp.HasAudio {
		c.JSON(http.StatusNotFound, errorResponse{Error: "no compiled mixdown for " + sp.Name})
		return
	}

	c.Header("Content-Type", "audio/wav")
	c.File(sp.CompiledPath)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, syncroot.ErrInvalidName):
		status = http.StatusBadRequest
	case errors.Is(err, syncroot.ErrSpeakerNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}
