package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"icegrid/server"
)

// icegrid 入口：读取 ICEGRID_* 环境变量，启动 HTTP + WebSocket 服务
func main() {
	cfg, err := server.LoadConfig(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :8080 (overrides ICEGRID_ADDR)")
	flag.StringVar(&cfg.Game.Layout, "layout", cfg.Game.Layout, "level layout name (overrides ICEGRID_GAME_LAYOUT)")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer server.SyncLogger()

	rm := server.NewRoomManager(cfg, server.Log)
	// 先预创建默认房间，便于快速试跑
	if _, err := rm.GetOrCreateRoom(cfg.DefaultRoom); err != nil {
		server.Log.Fatalf("default room: %v", err)
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: rm.Handler()}

	go func() {
		server.Log.Infof("icegrid listening on %s; ws endpoint ws://localhost%v/ws", cfg.Addr, cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("shutdown: %v", err)
	}
	rm.Close()
}
