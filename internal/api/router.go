package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/dragon-companion/internal/metrics"
	"github.com/wfunc/dragon-companion/internal/middleware"
	"github.com/wfunc/dragon-companion/internal/service"
	"github.com/wfunc/dragon-companion/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RouterOptions 路由依赖
type RouterOptions struct {
	DB          *gorm.DB
	Services    *service.Services
	Validator   middleware.TokenValidator
	Hub         *websocket.Hub // 为nil时不开放WebSocket
	Metrics     *metrics.Metrics
	WSPath      string
	MetricsPath string
	Mode        string
	Logger      *zap.Logger
}

// Router API路由器
type Router struct {
	engine        *gin.Engine
	db            *gorm.DB
	dragonHandler *DragonHandler
	hub           *websocket.Hub
	metrics       *metrics.Metrics
	validator     middleware.TokenValidator
	wsPath        string
	metricsPath   string
	log           *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(opts RouterOptions) *Router {
	if opts.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WSPath == "" {
		opts.WSPath = "/ws"
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestLogger())

	router := &Router{
		engine:        engine,
		db:            opts.DB,
		dragonHandler: NewDragonHandler(opts.Services.Dragon, opts.Logger),
		hub:           opts.Hub,
		metrics:       opts.Metrics,
		validator:     opts.Validator,
		wsPath:        opts.WSPath,
		metricsPath:   opts.MetricsPath,
		log:           opts.Logger,
	}

	// 设置路由
	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// 接口文档
	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)
	if r.metrics != nil {
		r.engine.GET(r.metricsPath, gin.WrapH(r.metrics.Handler()))
	}

	auth := middleware.Auth(r.validator)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	v1.Use(auth)
	{
		dragon := v1.Group("/dragon")
		{
			dragon.GET("", r.dragonHandler.GetDragon)
			dragon.POST("/feed", r.dragonHandler.Feed)
			dragon.POST("/play", r.dragonHandler.Play)
			dragon.POST("/items/:item_id/consume", r.dragonHandler.ConsumeItem)
			dragon.PUT("/name", r.dragonHandler.Rename)
			dragon.PUT("/appearance", r.dragonHandler.Customize)
		}

		v1.POST("/activities", r.dragonHandler.AwardActivity)
		v1.GET("/activities", r.dragonHandler.ListActivities)
		v1.GET("/inventory", r.dragonHandler.GetInventory)
		v1.POST("/gifts", r.dragonHandler.SendGift)
		v1.GET("/gifts", r.dragonHandler.ListGifts)
		v1.GET("/catalog", r.dragonHandler.GetCatalog)
	}

	// WebSocket路由
	if r.hub != nil {
		r.engine.GET(r.wsPath, auth, r.serveWebSocket)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// serveWebSocket 升级为WebSocket连接，接收龙宠变更通知
func (r *Router) serveWebSocket(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	if err := r.hub.Serve(c.Writer, c.Request, userID); err != nil {
		r.log.Warn("WebSocket连接失败", zap.String("user_id", userID), zap.Error(err))
	}
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	if r.db != nil {
		// 检查数据库连接
		sqlDB, err := r.db.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "数据库连接失败",
			})
			return
		}

		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "数据库ping失败",
			})
			return
		}
	}

	resp := gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	}
	if r.hub != nil {
		resp["online"] = r.hub.GetOnlineCount()
	}
	c.JSON(http.StatusOK, resp)
}

// Handler 返回HTTP处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
