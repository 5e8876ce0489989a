package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"narrator/cfg"
	"narrator/db"
	"narrator/internal/app/api"
	"narrator/internal/app/archive"
	"narrator/internal/app/narrator"
	"narrator/pkg/gradio"
	"narrator/pkg/s3client"
	"narrator/pkg/slg"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "cfg-path", "cfg/cfg.yaml", "path to config file")
	flag.Parse()

	cfg, err := cfg.Load(cfgPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	var logger *slog.Logger

	if cfg.InfluxDB.URL != "" {
		influxDBClient := influxdb2.NewClient(cfg.InfluxDB.URL, cfg.InfluxDB.Token)
		defer influxDBClient.Close()

		influxCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if ok, err := influxDBClient.Ping(influxCtx); err != nil {
			log.Fatal("failed to ping influxdb: ", err)
		} else if !ok {
			log.Fatal("failed to ping influxdb")
		}

		influxWriter := influxDBClient.WriteAPI(cfg.InfluxDB.Org, cfg.InfluxDB.Bucket)
		defer influxWriter.Flush()

		logger = slog.New(&slg.InfluxDBHandler{InfluxDBWriter: influxWriter})
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	gradio.RegisterMetrics(reg)
	narrator.RegisterMetrics(reg)

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	gradioClient := gradio.New(httpClient, &cfg.Gradio)

	var history narrator.History

	if cfg.DB.ConnStr != "" {
		createDbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, err := db.New(createDbCtx, &cfg.DB)
		if err != nil {
			log.Fatal("failed to init postgre db: ", err)
		}
		defer db.Close()

		history = db
	}

	var archiver narrator.Archiver

	if cfg.Archive.Enabled {
		s3, err := s3client.New(&cfg.S3)
		if err != nil {
			log.Fatal("failed to init s3 client: ", err)
		}

		bucketCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s3.EnsureBucket(bucketCtx, cfg.Archive.Bucket); err != nil {
			log.Fatal("failed to ensure archive bucket: ", err)
		}

		archiver = archive.New(httpClient, s3, &cfg.Archive)
	}

	service := narrator.NewService(logger.WithGroup("narrator"), gradioClient, archiver, history)

	api := api.NewAPI(&cfg.Api, logger.WithGroup("api"), service, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Api.Port),
		Handler:           api.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer stop()

		logger.Info("Starting server", "port", cfg.Api.Port, "gradio_url", cfg.Gradio.URL)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ListenAndServe finished", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "err", err)
	}

	wg.Wait()
}
