// Command wormproofd runs the protocol's job-queued proof server: it
// accepts ProofInput jobs over HTTP, serializes their expensive witness/
// Groth16 computation through a single worker, and reports queue
// position while callers poll. Grounded on original_source's
// server/mod.rs entrypoint and the teacher's cmd/auctiond/main.go wiring
// style (compose config, logger, metrics, health, then serve).
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"wormcore/internal/chain"
	"wormcore/internal/health"
	"wormcore/internal/jobqueue"
	"wormcore/internal/metrics"
	"wormcore/internal/obslog"
	"wormcore/internal/orchestration"
	"wormcore/internal/proofpipeline"
	"wormcore/internal/proofserver"
	"wormcore/internal/ratelimit"
)

func main() {
	log := obslog.Default()
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	networks := chain.NewNetworks(nil)
	network, err := networks.Lookup(cfg.Network)
	if err != nil {
		log.Final(err)
		return
	}
	if cfg.RPCURL != "" {
		network.RPCURL = cfg.RPCURL
	}

	chainClient, err := dialChainClient(ctx, network.RPCURL)
	if err != nil {
		log.Final(err)
		return
	}

	pipeline := proofpipeline.New(cfg.ParamsDir, cfg.WorkDir)
	flow := &orchestration.Flow{
		Chain:    chainClient,
		Pipeline: pipeline,
		Log:      log,
	}

	queue := jobqueue.NewQueue(cfg.QueueCapacity)
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	checker := health.New(queue)
	limiter := ratelimit.New(rate.Limit(2), 5)

	srv := proofserver.New(queue, flow, checker, collector, limiter, networks, log)
	worker := jobqueue.NewWorker(queue, srv.Run)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	go worker.Run(workerCtx)

	mux := srv.Mux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		queue.Close()
		cancelWorker()
	}()

	log.Milestone("listening", map[string]any{"addr": cfg.BindAddr, "network": network.Name})
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Final(err)
		return
	}
	log.Final(nil)
}
