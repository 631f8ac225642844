package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/ValentinKolb/mlsrelay/lib/store/lstore"
	"github.com/ValentinKolb/mlsrelay/rpc/common"
	"github.com/ValentinKolb/mlsrelay/rpc/serializer"
	"github.com/ValentinKolb/mlsrelay/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server backed by a fresh in-memory store
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	st := lstore.NewLocalStore()

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		store:      st,
		adapter:    NewStoreServerAdapter(),
		metrics:    newServerMetrics(st, transport),
	}
}

// RPCServer serves one store over one transport
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	store      store.IStore
	adapter    IRPCServerAdapter
	metrics    *serverMetrics
}

// Serve starts the RPC server and blocks until ctx is cancelled or the server fails
// This function will also initialize the loggers and start the metrics endpoint if configured
func (s *RPCServer) Serve(ctx context.Context) error {
	// Init logger
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", s.config.String())

	// Configure the transport layer
	s.transport.RegisterHandler(s.handle, s.reject)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.transport.Listen(gctx, s.config)
	})

	if s.config.MetricsEndpoint != "" {
		g.Go(func() error {
			return s.serveMetrics(gctx)
		})
	}

	return g.Wait()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handle decodes one request frame, dispatches it and encodes the response
func (s *RPCServer) handle(req []byte) []byte {
	start := time.Now()

	var msg common.Message
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		s.metrics.decodeError()
		Logger.Debugf("failed to deserialize request: %v", err)
		return s.encode(common.NewErrorResponse(store.RetCInvalidOperation,
			fmt.Sprintf("failed to deserialize request: %v", err)))
	}

	resp := s.adapter.Handle(&msg, s.store)
	s.metrics.observe(msg.MsgType, resp, start)
	return s.encode(resp)
}

// reject builds the response for a frame the transport refused
func (s *RPCServer) reject(err error) []byte {
	s.metrics.frameRejected()
	return s.encode(common.NewErrorResponse(store.RetCInvalidOperation, err.Error()))
}

// encode serializes a response, falling back to a plain Error response
func (s *RPCServer) encode(resp *common.Message) []byte {
	data, err := s.serializer.Serialize(*resp)
	if err == nil {
		return data
	}
	Logger.Errorf("failed to serialize %s response: %v", resp.MsgType, err)
	data, err = s.serializer.Serialize(*common.NewErrorResponse(store.RetCInternalError, "failed to serialize response"))
	if err != nil {
		Logger.Errorf("failed to serialize error response: %v", err)
		return nil
	}
	return data
}

// serveMetrics serves the /metrics endpoint until ctx is cancelled
func (s *RPCServer) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.handler())

	srv := &http.Server{
		Addr:              s.config.MetricsEndpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			metricsLogger.Warningf("failed to stop metrics endpoint: %v", err)
		}
	}()

	metricsLogger.Infof("Serving metrics on http://%s/metrics", s.config.MetricsEndpoint)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint failed: %w", err)
	}
	return nil
}
