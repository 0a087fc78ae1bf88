// internal/apiserver/server.go
// REST bridge over the fmr runtime: a gin.Engine with a versioned route
// group, run behind an http.Server so it can be shut down gracefully.

package apiserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"fmrhost/internal/fmr"
)

// EndpointFactory builds a transport endpoint for an attach request's
// transport kind ("usb", "tcp", "user") and hint. Supplied by the caller
// so apiserver stays ignorant of concrete transports.
type EndpointFactory func(kind, hint string) (fmr.Endpoint, error)

// Server exposes attach/invoke/push/pull/configuration over HTTP, with one
// fmr.Context shared across requests and an in-memory module table keyed
// by name so callers don't have to round-trip module handles themselves.
type Server struct {
	rt        *fmr.Context
	endpoints EndpointFactory
	httpSrv   *http.Server
	startedAt time.Time

	modulesMu sync.RWMutex
	modules   map[string]*fmr.Module
}

// New builds a Server backed by rt. rt may be fmr.DefaultContext() or a
// dedicated one. endpoints builds the transport for each /attach request.
func New(rt *fmr.Context, endpoints EndpointFactory) *Server {
	return &Server{rt: rt, endpoints: endpoints, modules: make(map[string]*fmr.Module)}
}

// Router builds the gin engine without starting a listener, for tests that
// want to exercise handlers with httptest.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	{
		api.POST("/attach", s.handleAttach)
		api.POST("/detach", s.handleDetach)
		api.GET("/configuration", s.handleConfiguration)
		api.POST("/modules", s.handleRegisterModule)
		api.POST("/invoke", s.handleInvoke)
		api.POST("/push", s.handlePush)
		api.POST("/pull", s.handlePull)
		api.GET("/last-error", s.handleLastError)
		api.GET("/health", s.handleHealth)
	}
	return router
}

// Run starts the HTTP server on addr and blocks until ctx is cancelled,
// then shuts down gracefully (spec's process-wide context still lives
// through rt, which callers may reuse after Run returns).
func (s *Server) Run(ctx context.Context, addr string) error {
	s.startedAt = time.Now()
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}

type attachRequest struct {
	Name      string `json:"name" binding:"required"`
	Transport string `json:"transport" binding:"required"`
	Hint      string `json:"hint"`
}

func (s *Server) handleAttach(c *gin.Context) {
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ep, err := s.endpoints(req.Transport, req.Hint)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dev, err := s.rt.AttachEndpoint(req.Name, ep, req.Hint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "name": req.Name})
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": dev.Name(), "identifier": dev.Identifier()})
}

type detachRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) handleDetach(c *gin.Context) {
	var req detachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dev, ok := s.rt.Registry.Lookup(req.Name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such device"})
		return
	}
	if err := s.rt.Detach(dev); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"detached": req.Name})
}

func (s *Server) handleConfiguration(c *gin.Context) {
	dev, ok := s.resolveDevice(c, c.Query("device"))
	if !ok {
		return
	}
	cfg, err := s.rt.Configuration(dev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":       cfg.Name,
		"identifier": cfg.Identifier,
		"version":    cfg.Version,
		"attributes": cfg.Attributes,
	})
}

type registerModuleRequest struct {
	Name   string `json:"name" binding:"required"`
	IsUser bool   `json:"is_user"`
}

func (s *Server) handleRegisterModule(c *gin.Context) {
	var req registerModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := fmr.NewModule(req.Name, req.IsUser)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.setModule(req.Name, m)
	c.JSON(http.StatusOK, gin.H{"name": req.Name, "identifier": m.Identifier()})
}

func (s *Server) setModule(name string, m *fmr.Module) {
	s.modulesMu.Lock()
	defer s.modulesMu.Unlock()
	s.modules[name] = m
}

func (s *Server) getModule(name string) (*fmr.Module, bool) {
	s.modulesMu.RLock()
	defer s.modulesMu.RUnlock()
	m, ok := s.modules[name]
	return m, ok
}

type argSpec struct {
	Type  string `json:"type" binding:"required"`
	Value uint64 `json:"value"`
}

type invokeRequest struct {
	Device   string    `json:"device"`
	Module   string    `json:"module" binding:"required"`
	Function uint8     `json:"function"`
	Args     []argSpec `json:"args"`
	Ret      string    `json:"ret"`
}

func (s *Server) handleInvoke(c *gin.Context) {
	var req invokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	module, ok := s.getModule(req.Module)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such module"})
		return
	}
	dev, ok := s.resolveDevice(c, req.Device)
	if !ok {
		return
	}
	if err := s.rt.Bind(dev, module); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	args, ret, err := decodeArgs(req.Args, req.Ret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	val, err := s.rt.Invoke(dev, module, req.Function, args, ret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": uint64(val)})
}

type transferRequest struct {
	Device   string `json:"device"`
	Module   string `json:"module" binding:"required"`
	Function uint8  `json:"function"`
	Addr     uint64 `json:"addr"`
	Length   uint32 `json:"length"`
	Data     string `json:"data"` // base64, for push
}

func (s *Server) handlePush(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	module, ok := s.getModule(req.Module)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such module"})
		return
	}
	dev, ok := s.resolveDevice(c, req.Device)
	if !ok {
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 data"})
		return
	}
	if err := s.rt.Bind(dev, module); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.rt.Push(dev, module, req.Function, fmr.Value(req.Addr), data, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pushed": len(data)})
}

func (s *Server) handlePull(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	module, ok := s.getModule(req.Module)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such module"})
		return
	}
	dev, ok := s.resolveDevice(c, req.Device)
	if !ok {
		return
	}
	data := make([]byte, req.Length)
	if err := s.rt.Bind(dev, module); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.rt.Pull(dev, module, req.Function, fmr.Value(req.Addr), data, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": base64.StdEncoding.EncodeToString(data)})
}

func (s *Server) handleLastError(c *gin.Context) {
	err := s.rt.LastError()
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"error": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": err.Message, "kind": err.Kind.String()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

// resolveDevice looks up name in the registry, falling back to the
// currently-selected device when name is empty. On a failed lookup it
// writes the 404 response itself and returns ok=false.
func (s *Server) resolveDevice(c *gin.Context, name string) (*fmr.Device, bool) {
	if name == "" {
		return s.rt.Registry.Selected(), true
	}
	dev, ok := s.rt.Registry.Lookup(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such device"})
		return nil, false
	}
	return dev, true
}

func decodeArgs(specs []argSpec, retName string) (*fmr.ArgumentList, fmr.Type, error) {
	args := fmr.NewArgumentList()
	for _, a := range specs {
		ty, err := parseType(a.Type)
		if err != nil {
			return nil, 0, err
		}
		if err := args.Append(a.Value, ty); err != nil {
			return nil, 0, err
		}
	}
	ret := fmr.TypeVoid
	if retName != "" {
		ty, err := parseType(retName)
		if err != nil {
			return nil, 0, err
		}
		ret = ty
	}
	return args, ret, nil
}

func parseType(name string) (fmr.Type, error) {
	switch name {
	case "void":
		return fmr.TypeVoid, nil
	case "int":
		return fmr.TypeInt, nil
	case "ptr":
		return fmr.TypePtr, nil
	case "u8":
		return fmr.TypeU8, nil
	case "u16":
		return fmr.TypeU16, nil
	case "u32":
		return fmr.TypeU32, nil
	case "u64":
		return fmr.TypeU64, nil
	case "i8":
		return fmr.TypeI8, nil
	case "i16":
		return fmr.TypeI16, nil
	case "i32":
		return fmr.TypeI32, nil
	case "i64":
		return fmr.TypeI64, nil
	default:
		return 0, fmt.Errorf("unknown argument type %q", name)
	}
}
