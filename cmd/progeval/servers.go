package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"digital.vasic.progeval/pkg/logging"
	"digital.vasic.progeval/pkg/monitor"
)

const shutdownTimeout = 5 * time.Second

// startServers starts the metrics and monitor servers that are
// configured and returns a function that stops them.
func (c *cli) startServers(ctx context.Context) func() {
	var stops []func(context.Context)

	if addr := c.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", c.prom.Handler())
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.logger.Error("metrics server failed",
					logging.StringField("addr", addr),
					logging.ErrorField(err),
				)
			}
		}()
		c.logger.Info("serving metrics", logging.StringField("addr", addr))
		stops = append(stops, func(ctx context.Context) {
			srv.Shutdown(ctx)
		})
	}

	if addr := c.cfg.Monitor.Addr; addr != "" {
		c.collector = monitor.NewEventCollector()
		dashboard := monitor.NewDashboardData(uuid.NewString())
		ws := monitor.NewWebSocketServer(addr, c.collector, dashboard)
		go func() {
			if err := ws.Start(ctx); err != nil {
				c.logger.Error("monitor server failed",
					logging.StringField("addr", addr),
					logging.ErrorField(err),
				)
			}
		}()
		c.logger.Info("serving monitor", logging.StringField("addr", addr))
		stops = append(stops, func(ctx context.Context) {
			dashboard.SetStatus("completed")
			ws.Stop(ctx)
		})
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, stop := range stops {
			stop(ctx)
		}
	}
}
