// @title           Knowledge Core API
// @version         1.0
// @description     Ingest sources into vector collections and query them
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/knowledgecore/internal/app"
	"github.com/akolanti/knowledgecore/internal/config"
	jobmodel "github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/handlers"
	"github.com/akolanti/knowledgecore/internal/job"
	"github.com/akolanti/knowledgecore/internal/mcpServer"
	"github.com/akolanti/knowledgecore/internal/server"
	"github.com/akolanti/knowledgecore/internal/worker"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

var (
	configPath        string
	listenAddr        string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	//config
	flag.StringVar(&configPath, "config", "knowledge.yaml", "path to the YAML settings file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address (overrides LISTEN_ADDR)")
	flag.Parse()

	settings, err := config.Load(configPath)
	if err != nil {
		println("could not load settings:", err.Error())
		os.Exit(1)
	}
	if listenAddr != "" {
		settings.ListenAddr = listenAddr
	}
	config.Use(settings)

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store, redis falls back to memory
	service := job.InitJobService(job.ServiceConfig{
		JobChannel:        jobChannel,
		DispatcherChannel: dispatcherChannel,
		JobStore:          app.JobStore(serviceContext, settings.Redis),
	})
	logger.Info("Starting job service")

	deps, err := app.Build(serviceContext, settings)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err,
			"vectorBackend", settings.Vector.Backend, "embeddingsProvider", settings.Embeddings.Provider)
		return
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("Could not close vector store", "error", err)
		}
	}()

	ragService := app.NewService(deps, settings)

	handlers.InitJobHandler(service, ragService, settings.Ingest)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(settings.ListenAddr, mcpServer.NewServer(ragService, settings.Ingest).Handler())

	<-stopExecution
	logger.Info("Server stopped")
}
