/*
 *	nativebridge connects embedded web content to a native host.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go.arsenm.dev/nativebridge/config"
	"go.arsenm.dev/nativebridge/deeplink"
	"go.arsenm.dev/nativebridge/envelope"
	"go.arsenm.dev/nativebridge/host"
	"go.arsenm.dev/nativebridge/internal/logging"
	"go.arsenm.dev/nativebridge/notify"
	"go.arsenm.dev/nativebridge/storage"
)

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer db.Close()

	store, err := storage.NewSQLite(db)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}

	dev := devDevice{
		log:     log.Named("device"),
		loc:     envelope.Location{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude},
		confirm: cfg.ConfirmAnswer == envelope.ButtonConfirm,
	}

	alarms, err := notify.NewAlarmScheduler(db, func(n notify.Notification) {
		dev.Show(context.Background(), n.Title, n.Body, n.Data)
	}, notify.WithLogger(log.Named("alarms")))
	if err != nil {
		log.Fatal("failed to open alarm scheduler", zap.Error(err))
	}
	defer alarms.Close()

	d := host.New(host.Device{
		Locator:  dev,
		Storage:  store,
		Sharer:   dev,
		Haptics:  dev,
		Dialogs:  dev,
		Notifier: dev,
		Alarms:   alarms,
	},
		host.WithLogger(log),
		host.WithRouter(deeplink.Router{Scheme: cfg.Scheme}),
		host.WithTimeout(cfg.ReplyTimeout),
	)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log.Named("http")))
	routes(r, d, alarms)

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("dev host listening", zap.String("addr", cfg.Addr), zap.String("scheme", cfg.Scheme))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
