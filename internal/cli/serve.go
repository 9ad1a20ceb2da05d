package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	qerrors "github.com/matzehuels/depquery/pkg/errors"
	"github.com/matzehuels/depquery/pkg/observability"
	"github.com/matzehuels/depquery/pkg/pipeline"
)

// queryIDHeader carries the id assigned to each request.
const queryIDHeader = "X-Query-Id"

// serveFlags holds the flags of the serve command.
type serveFlags struct {
	addr   string
	root   string
	global bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer selector queries over HTTP",
		Long: `Serve queries against one install tree over HTTP.

  GET /query?q=<selector>   matching records as JSON (add &links=1 to keep links)
  GET /healthz              liveness probe

The tree is walked again for every request, so answers follow installs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := c.Config.Serve.Addr
			if cmd.Flags().Changed("addr") {
				addr = flags.addr
			}
			root := flags.root
			if flags.global && root == "" {
				root = globalPrefix(c.Config)
			}
			srv := &server{
				runner: pipeline.NewRunner(c.Logger),
				base: pipeline.Options{
					Root:      root,
					Global:    flags.global,
					Workers:   c.Config.Workers,
					KeepLinks: c.Config.KeepLinks,
				},
				logger: c.Logger,
			}
			return srv.listen(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "listen address (default from config: 127.0.0.1:8080)")
	cmd.Flags().StringVarP(&flags.root, "root", "C", "", "project directory, or global prefix with --global")
	cmd.Flags().BoolVarP(&flags.global, "global", "g", false, "serve the global install prefix")

	return cmd
}

// server answers queries against one root.
type server struct {
	runner *pipeline.Runner
	base   pipeline.Options
	logger *log.Logger
}

// Handler returns the HTTP routes.
func (s *server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(queryID)
	r.Get("/healthz", s.handleHealth)
	r.Get("/query", s.handleQuery)
	return r
}

func (s *server) listen(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("serving queries", "addr", addr, "root", s.base.Root, "global", s.base.Global)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

// queryIDKey is the context key for the request's query id.
const queryIDKey ctxKey = 1

// queryID assigns every request a uuid, echoed in the X-Query-Id header.
func queryID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(queryIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), queryIDKey, id)))
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := ctx.Value(queryIDKey).(string)
	qlog := startQuery(s.logger, log.InfoLevel, id)

	opts := s.base
	opts.Selector = r.URL.Query().Get("q")
	if r.URL.Query().Get("links") == "1" {
		opts.KeepLinks = true
	}

	hooks := observability.Server()
	hooks.OnRequest(ctx, id, opts.Selector)

	status := http.StatusOK
	defer func() { hooks.OnResponse(ctx, id, status, qlog.elapsed()) }()

	result, err := s.runner.Execute(ctx, opts)
	if err != nil {
		status = qerrors.HTTPStatus(err)
		qlog.failed(err)
		writeJSON(w, status, errorBody{Code: string(qerrors.GetCode(err)), Message: qerrors.UserMessage(err)})
		return
	}

	data, err := pipeline.Render(ctx, result, pipeline.FormatJSON)
	if err != nil {
		status = http.StatusInternalServerError
		qlog.failed(err)
		writeJSON(w, status, errorBody{Code: string(qerrors.ErrCodeInternal), Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	qlog.done(result.Stats)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
