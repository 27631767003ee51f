package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/app"
	"github.com/ariefcatur/go-digital-orders/internal/config"
	"github.com/ariefcatur/go-digital-orders/internal/httpx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := app.Open(ctx, cfg, cfg.ServiceName)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}
	defer deps.Close()

	router := httpx.NewRouter(deps.Metrics.Handler())
	api := &httpx.API{
		Ledger:        deps.Ledger,
		Reconciler:    deps.Reconciler,
		Delivery:      deps.Orchestrator,
		Purchases:     deps.Purchases,
		Catalog:       deps.Catalog,
		Notifications: deps.Dispatcher,
		Settings:      deps.Settings,
		Audit:         deps.Audit,
		StatusCache:   deps.StatusCache,
		JWTSecret:     cfg.JWTSecret,
		PaymentURL:    cfg.PaymentURLBase,
	}
	api.Register(router)

	// delivery.requested comes from the async reconciler and from opsctl
	workerDone := deps.StartDeliveryWorker(ctx)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Printf("HTTP listening at %s (delivery=%s)", cfg.HTTPAddr, cfg.DeliveryMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	cancel()
	<-workerDone
}
