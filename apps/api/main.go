package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/trezcool/masomo-dashboard/apps/api/echo"
	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/forms"
	"github.com/trezcool/masomo-dashboard/core/inventory"
	"github.com/trezcool/masomo-dashboard/core/region"
	logsvc "github.com/trezcool/masomo-dashboard/services/logger"
	"github.com/trezcool/masomo-dashboard/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	cascadeLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "CASCADE : ", log.LstdFlags|log.Lmicroseconds),
		conf,
	)
	cascadeLogger.Enable(!conf.Debug)

	// set up storage
	repos, err := storage.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s storage: %v", conf.Storage, err), err)
	}
	defer func() {
		if err = repos.Close(); err != nil {
			logger.Error("Failed to close storage", err)
		}
	}()

	validate, translator := core.NewValidator()

	// set up services
	regionSvc := region.NewService(repos.Region, validate)
	inventorySvc := inventory.NewService(repos.Inventory, validate)

	// the memory storage starts empty
	if conf.Storage == core.StorageMemory {
		if err = seedSample(regionSvc, inventorySvc); err != nil {
			logger.Fatal(fmt.Sprintf("seeding sample dataset: %v", err), err)
		}
	}

	catalog, err := forms.NewCatalog(regionSvc, inventorySvc)
	if err != nil {
		logger.Fatal(fmt.Sprintf("building catalog: %v", err), err)
	}
	sessions, err := forms.NewManager(catalog, forms.ManagerOptions{
		EagerRoot: conf.Cascade.EagerRoot,
		TTL:       conf.Cascade.SessionTTL,
		Logger:    cascadeLogger,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("building forms: %v", err), err)
	}
	defer sessions.Shutdown()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	if conf.Cascade.SessionTTL > 0 && conf.Cascade.SweepInterval > 0 {
		go sessions.Sweep(sweepCtx, conf.Cascade.SweepInterval)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage)
	expvar.Publish("sessions", expvar.Func(func() interface{} { return sessions.Len() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			Catalog:    catalog,
			Sessions:   sessions,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func seedSample(regionSvc *region.Service, inventorySvc *inventory.Service) error {
	ds, err := storage.SampleDataset()
	if err != nil {
		return err
	}
	_, err = storage.Seed(context.Background(), ds, regionSvc, inventorySvc)
	return err
}
