// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/ZSC714725/sonus/internal/api"
	"github.com/ZSC714725/sonus/internal/config"
	"github.com/ZSC714725/sonus/internal/ffmpeg"
	"github.com/ZSC714725/sonus/internal/job"
)

func main() {
	configPath := flag.String("config", "sonus.yaml", "Path to YAML or TOML config file")
	bind := flag.String("bind", "", "Bind address (overrides config)")
	ffmpegBin := flag.String("ffmpeg", "", "FFmpeg binary path (overrides config)")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("Load .env: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	if *bind != "" {
		cfg.Server.Bind = *bind
	}
	if *ffmpegBin != "" {
		cfg.FFmpeg.Path = *ffmpegBin
	}

	logger := cfg.Logger("sonus")

	ffcfg, err := cfg.Converter(logger)
	if err != nil {
		log.Fatalf("FFmpeg config: %v", err)
	}
	ff, err := ffmpeg.New(ffcfg)
	if err != nil {
		log.Fatalf("FFmpeg init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 预热能力缓存，失败不影响启动
	if err := ff.ReloadSkills(ctx); err != nil {
		logger.Error("detect skills: %v", err)
	}

	store := job.NewStore(ff, logger)
	handler := api.NewHandler(store, ff)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors.Default())
	handler.Register(r.Group("/api/v1"))

	srv := &http.Server{Addr: cfg.Server.Bind, Handler: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening on %s", cfg.Server.Bind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// 停止所有仍在运行的任务
		for _, j := range store.List(nil, "") {
			if j.IsRunning() {
				if err := store.Stop(j.ID); err != nil {
					logger.Error("stop job %s: %v", j.ID, err)
				}
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server: %v", err)
	}
}
