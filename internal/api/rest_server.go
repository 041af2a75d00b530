package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/666daji/Food-Craft-sub000/internal/logging"
	"github.com/666daji/Food-Craft-sub000/internal/middleware"
	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
	"github.com/666daji/Food-Craft-sub000/internal/storage"
	"github.com/666daji/Food-Craft-sub000/internal/vec"
	"github.com/666daji/Food-Craft-sub000/internal/world"
	"github.com/666daji/Food-Craft-sub000/internal/world/block"
)

var apiLog = logging.GetAPILogger()

// Config содержит конфигурацию REST сервера
type Config struct {
	Addr        string                   // адрес для запуска сервера, например ":8088"
	ServiceName string                   // имя сервиса для otelgin и метрик
	Registry    *multiblock.Registry     // регистр структур
	Worlds      *world.WorldManager      // миры
	Store       *storage.PersistentStore // хранилище; nil отключает /save
	Registerer  prometheus.Registerer    // nil означает дефолтный регистр
	Gatherer    prometheus.Gatherer      // nil означает дефолтный регистр
}

// RestServer — REST API только для чтения структур (плюс ручное сохранение)
type RestServer struct {
	router   *gin.Engine
	server   *http.Server
	registry *multiblock.Registry
	worlds   *world.WorldManager
	store    *storage.PersistentStore
	metrics  *ServerMetrics
}

// NewRestServer создает новый REST API сервер
func NewRestServer(cfg Config) *RestServer {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "rest_api"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.NewRequestLogger("/health", "/metrics").Handler())

	promMw := middleware.NewPrometheusMiddleware("rest_api", cfg.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, cfg.Gatherer)

	rs := &RestServer{
		router:   router,
		registry: cfg.Registry,
		worlds:   cfg.Worlds,
		store:    cfg.Store,
		metrics:  NewServerMetrics(),
	}
	rs.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/worlds", rs.handleWorlds)
		api.GET("/worlds/:world/structures", rs.handleStructures)
		api.GET("/worlds/:world/structures/at", rs.handleStructureAt)
		api.POST("/worlds/:world/save", rs.handleSave)
		api.PUT("/worlds/:world/blocks", rs.handleSetBlock)
	}
}

// Handler возвращает http.Handler роутера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает REST сервер; блокирует до Stop
func (rs *RestServer) Start() error {
	apiLog.Info("REST API listening on %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop выполняет graceful shutdown
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (rs *RestServer) handleStats(c *gin.Context) {
	total := 0
	for _, w := range rs.registry.Worlds() {
		total += rs.registry.Count(w)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"process":    rs.metrics.Snapshot(),
			"structures": total,
			"worlds":     len(rs.worldIDs()),
		},
	})
}

// worldIDs объединяет загруженные миры и миры регистра
func (rs *RestServer) worldIDs() []multiblock.WorldID {
	seen := make(map[multiblock.WorldID]struct{})
	var out []multiblock.WorldID
	add := func(ids []multiblock.WorldID) {
		for _, id := range ids {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	if rs.worlds != nil {
		add(rs.worlds.Worlds())
	}
	add(rs.registry.Worlds())
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (rs *RestServer) handleWorlds(c *gin.Context) {
	ids := rs.worldIDs()
	views := make([]WorldView, 0, len(ids))
	for _, id := range ids {
		v := WorldView{ID: id, Structures: rs.registry.Count(id)}
		if rs.worlds != nil {
			for _, loaded := range rs.worlds.Worlds() {
				if loaded == id {
					v.Loaded = true
					v.Chunks = rs.worlds.Grid(id).ChunkCount()
					break
				}
			}
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: views})
}

func (rs *RestServer) handleStructures(c *gin.Context) {
	id := multiblock.WorldID(c.Param("world"))
	live := rs.registry.AllLive(id)

	views := make([]StructureView, 0, len(live))
	for _, s := range live {
		if v, ok := structureView(s); ok {
			views = append(views, v)
		}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: views})
}

func (rs *RestServer) handleStructureAt(c *gin.Context) {
	id := multiblock.WorldID(c.Param("world"))
	pos, err := queryPos(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	s := rs.registry.FindByPosition(id, pos)
	if s == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "no structure at " + pos.String()})
		return
	}

	live, err := multiblock.NewLiveReferenceAt(s, pos)
	if err != nil {
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	defer live.Dispose()

	snap, err := multiblock.Detach(live)
	if err != nil {
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	view, err := referenceView(pos, snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "ok", Data: view})
}

func (rs *RestServer) handleSave(c *gin.Context) {
	if rs.store == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "storage is disabled"})
		return
	}
	id := multiblock.WorldID(c.Param("world"))
	n, err := rs.store.Save(c.Request.Context(), id)
	if err != nil {
		apiLog.Error("save %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "save failed"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "saved", Data: gin.H{"structures": n}})
}

// SetBlockRequest — тело PUT /api/worlds/:world/blocks
type SetBlockRequest struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Block string `json:"block" binding:"required"`
}

func (rs *RestServer) handleSetBlock(c *gin.Context) {
	if rs.worlds == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "world is not attached"})
		return
	}
	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}
	id, ok := block.ByName(req.Block)
	if !ok {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "unknown block " + req.Block})
		return
	}

	w := multiblock.WorldID(c.Param("world"))
	pos := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}
	if err := rs.worlds.SetBlock(c.Request.Context(), w, pos, id); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: err.Error()})
		return
	}

	var data interface{}
	if s := rs.registry.FindByPosition(w, pos); s != nil {
		if v, ok := structureView(s); ok {
			data = v
		}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "block set", Data: data})
}

var errBadPosition = errors.New("query parameters x, y and z must be integers")

func queryPos(c *gin.Context) (vec.Vec3, error) {
	var out [3]int
	for i, key := range []string{"x", "y", "z"} {
		v, err := strconv.Atoi(c.Query(key))
		if err != nil {
			return vec.Vec3{}, errBadPosition
		}
		out[i] = v
	}
	return vec.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}
