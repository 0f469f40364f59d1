package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/wfunc/dragon-companion/internal/api"
	"github.com/wfunc/dragon-companion/internal/config"
	"github.com/wfunc/dragon-companion/internal/database"
	apperrors "github.com/wfunc/dragon-companion/internal/errors"
	"github.com/wfunc/dragon-companion/internal/lock"
	"github.com/wfunc/dragon-companion/internal/logger"
	"github.com/wfunc/dragon-companion/internal/metrics"
	"github.com/wfunc/dragon-companion/internal/service"
	"github.com/wfunc/dragon-companion/internal/utils"
	"github.com/wfunc/dragon-companion/internal/websocket"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	hub         *websocket.Hub
	httpServer  *http.Server
	closeLocker func() error

	// 关闭控制
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
	)

	flag.Parse()

	// 显示版本信息
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	// 创建服务器实例
	server := NewServer(cfg)

	// 启动服务器
	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动龙宠服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	if err := s.initDatabase(); err != nil {
		return err
	}

	handler, err := s.initComponents()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrUnknown, "初始化组件失败")
	}

	s.startHTTPServer(handler)

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.httpServer.Addr),
		zap.Bool("websocket", s.hub != nil),
		zap.String("lock", s.cfg.Lock.Driver),
	)

	return nil
}

// initDatabase 初始化数据库
func (s *Server) initDatabase() error {
	s.logger.Info("初始化数据库...")

	if err := database.Init(&s.cfg.Database); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "初始化数据库连接失败")
	}

	if s.cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "数据库迁移失败")
		}
	}

	if err := database.Ping(s.ctx, database.GetDB()); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseConnect, "数据库连接检查失败")
	}

	s.logger.Info("数据库初始化完成")
	return nil
}

// initComponents 初始化锁、监控、WebSocket与业务服务
func (s *Server) initComponents() (http.Handler, error) {
	locker, closeLocker, err := lock.New(s.ctx, s.cfg.Lock, s.cfg.Redis, logger.GetModuleLogger("lock"))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrLockAcquire, "初始化用户锁失败")
	}
	s.closeLocker = closeLocker

	var m *metrics.Metrics
	if s.cfg.Monitor.Enabled {
		m = metrics.New(s.cfg.Monitor.Namespace)
	}

	var notifier service.Notifier = service.NopNotifier{}
	if s.cfg.WebSocket.Enabled {
		s.hub = websocket.NewHub(s.cfg.WebSocket, logger.GetModuleLogger("websocket"))
		notifier = s.hub

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.hub.Run(s.ctx)
		}()
	}

	services, err := service.NewServices(
		database.GetDB(),
		&s.cfg.Dragon,
		locker,
		notifier,
		m,
		logger.GetModuleLogger("dragon"),
		logger.GetModuleLogger("ledger"),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrConfigValidate, "加载龙宠配置失败")
	}

	if s.cfg.Security.JWT.Secret == "" {
		s.logger.Warn("未配置JWT密钥，所有请求都将被拒绝")
	}

	router := api.NewRouter(api.RouterOptions{
		DB:          database.GetDB(),
		Services:    services,
		Validator:   utils.NewJWTManager(s.cfg.Security.JWT.Secret, s.cfg.Security.JWT.Issuer),
		Hub:         s.hub,
		Metrics:     m,
		WSPath:      s.cfg.WebSocket.Path,
		MetricsPath: s.cfg.Monitor.Path,
		Mode:        s.cfg.Server.Mode,
		Logger:      logger.GetModuleLogger("api"),
	})

	return router.Handler(), nil
}

// startHTTPServer 启动HTTP服务器
func (s *Server) startHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP服务器异常退出", zap.Error(err))
			s.cancel()
		}
	}()
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	select {
	case sig := <-sigCh:
		s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-s.ctx.Done():
	}
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求，等待进行中的请求完成
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP服务器关闭失败", zap.Error(err))
		}
	}

	// 取消主上下文，触发所有goroutine退出
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return apperrors.New(apperrors.ErrTimeout, "关闭超时")
	}

	s.closeComponents()
	return nil
}

// closeComponents 关闭组件
func (s *Server) closeComponents() {
	if s.closeLocker != nil {
		if err := s.closeLocker(); err != nil {
			s.logger.Error("关闭Redis连接失败", zap.Error(err))
		}
	}

	if err := database.Close(); err != nil {
		s.logger.Error("关闭数据库失败", zap.Error(err))
	}

	s.logger.Info("所有组件已关闭")
}

// reloadConfig 重新加载配置，目前只热更新日志级别
func (s *Server) reloadConfig(newCfg *config.Config) {
	before := logger.Level()
	logger.SetLevel(newCfg.Log.Level)
	if after := logger.Level(); after != before {
		s.logger.Info("日志级别已更新",
			zap.Stringer("from", before),
			zap.Stringer("to", after))
	}
	s.cfg = newCfg
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("龙宠陪伴服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
