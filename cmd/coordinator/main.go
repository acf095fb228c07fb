package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"goa.design/clue/log"

	"github.com/tltguild/tlt-core/agentgraph"
	"github.com/tltguild/tlt-core/chatadapter"
	"github.com/tltguild/tlt-core/entitystore"
	"github.com/tltguild/tlt-core/gateway"
	"github.com/tltguild/tlt-core/gateway/backend"
	"github.com/tltguild/tlt-core/internal/config"
	"github.com/tltguild/tlt-core/internal/modelclient"
	"github.com/tltguild/tlt-core/internal/telemetry"
	"github.com/tltguild/tlt-core/reasoning"
	"github.com/tltguild/tlt-core/taskmanager"
	"github.com/tltguild/tlt-core/toolexec"
	"github.com/tltguild/tlt-core/vibecheck"
)

// Exit codes, per spec §6: 0 clean shutdown, 1 unrecoverable initialization
// failure, 2 configuration error.
const (
	exitOK            = 0
	exitInitFailure   = 1
	exitConfigError   = 2
	defaultModelID    = "claude-sonnet-4-5"
	defaultMaxTokens  = 4096
	defaultPolicyFile = "policy.yaml"
)

func main() {
	dbgF := flag.Bool("debug", false, "enable verbose logging and dev-mode gateway auth")
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
	}

	cfg := config.Load()
	cfg.Debug = cfg.Debug || *dbgF

	if cfg.ModelAPIKey == "" {
		log.Error(ctx, nil, log.KV{K: "msg", V: "TLT_MODEL_API_KEY is required"})
		os.Exit(exitConfigError)
	}

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()

	modelClient, err := modelclient.NewAnthropicClient(cfg.ModelAPIKey, defaultModelID, defaultMaxTokens)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to construct model client"})
		os.Exit(exitInitFailure)
	}

	store := entitystore.New(cfg.GuildDataRoot, logger)
	vibePipeline := vibecheck.New(cfg.GuildDataRoot, store, modelClient, defaultModelID, logger, metrics)

	registry := gateway.NewRegistry()
	for _, service := range backend.Services() {
		tools := backend.Tools(service)
		var client gateway.BackendClient
		if service == "photo-vibe-check" {
			client = backend.NewVibeCheckAdapter(vibePipeline, store)
		} else {
			client = backend.New(service, cfg.ServiceURLs[service])
		}
		registry.Register(gateway.ServiceEntry{Service: service, Tools: tools, Client: client})
	}

	policy := gateway.NewPolicyEngine(defaultPolicyFile)
	gw := gateway.New(registry, policy, logger, metrics, gateway.Options{DevMode: cfg.Debug})
	executor := toolexec.New(gw, logger, metrics)
	reasoningNode := reasoning.New(modelClient, logger, defaultModelID)

	platform := newLoggingPlatform(logger)
	sender := &chatSenderAdapter{platform: platform}

	driver := agentgraph.New(reasoningNode, executor, sender, logger, metrics, agentgraph.Options{RecursionLimit: cfg.RecursionLimit})
	manager := taskmanager.New(driver, logger, metrics, taskmanager.Options{
		RateLimitPerMinute: cfg.IngressRateLimitPerMinute,
		QueueSoftCeiling:   cfg.QueueSoftCeiling,
		CompletionTimeout:  cfg.TaskCompletionTimeout,
	})

	srv := newServer(manager, driver, logger)
	listenAddr := cfg.ListenAddr
	httpServer := &http.Server{Addr: listenAddr, Handler: srv.mux()}

	// chatadapter.Dispatcher (the inbound half of C2) is driven by a live chat
	// SDK's interaction callbacks; that SDK is an external collaborator out
	// of this repo's scope (spec §1), so this binary wires only the outbound
	// half: the poller that delivers the agent graph's queued actions.
	selfBaseURL := "http://localhost" + listenAddr
	poller := chatadapter.NewPoller(selfBaseURL, platform, logger, cfg.SnapshotPollInterval)

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	manager.Start(runCtx)

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info(runCtx, log.KV{K: "msg", V: "coordinator listening"}, log.KV{K: "addr", V: listenAddr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	reason := <-errc
	log.Info(runCtx, log.KV{K: "msg", V: "shutting down"}, log.KV{K: "reason", V: reason.Error()})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	cancel()
	manager.Stop()
	driver.Stop()
	wg.Wait()

	log.Info(ctx, log.KV{K: "msg", V: "exited"})
	os.Exit(exitOK)
}
