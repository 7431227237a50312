package factory

import (
	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/api"
	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/config"
	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/rollup"
	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/storage"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("factory")

type componentsHandler struct {
	store  api.Storage
	merger api.JobsMerger
	server Server
}

// NewComponentsHandler creates a new components handler
func NewComponentsHandler(
	sqlitePath string,
	serviceKeyApi string,
	cfg config.Config,
) (*componentsHandler, error) {
	merger, err := rollup.NewJobsMerger(rollup.HistogramPolicy(cfg.HistogramIntervalPolicy))
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(sqlitePath)
	if err != nil {
		return nil, err
	}

	serverArgs := api.ArgsWebServer{
		ServiceKeyApi:  serviceKeyApi,
		ListenAddress:  cfg.ListenAddress,
		Storage:        store,
		Merger:         merger,
		GeneralHandler: api.CORSMiddleware,
	}

	server, err := api.NewServer(serverArgs)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	log.Debug("created components", "database", sqlitePath, "histogram policy", merger.Policy())

	return &componentsHandler{
		store:  store,
		merger: merger,
		server: server,
	}, nil
}

// GetStore returns the storage component
func (ch *componentsHandler) GetStore() api.Storage {
	return ch.store
}

// GetMerger returns the jobs merger component
func (ch *componentsHandler) GetMerger() api.JobsMerger {
	return ch.merger
}

// GetServer returns the server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// Start starts the inner components
func (ch *componentsHandler) Start() {
	ch.server.Start()
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	_ = ch.server.Close()
	_ = ch.store.Close()
}
