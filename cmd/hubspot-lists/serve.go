package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	hsclient "github.com/Sternrassler/hubspot-lists-client/pkg/client"
	"github.com/Sternrassler/hubspot-lists-client/pkg/lists"
	"github.com/Sternrassler/hubspot-lists-client/pkg/logging"
	"github.com/Sternrassler/hubspot-lists-client/pkg/metrics"
	"github.com/Sternrassler/hubspot-lists-client/pkg/pagination"
)

// proxyTimeout bounds one proxied operation.
const proxyTimeout = 30 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP proxy",
		Long:  "Expose the list operations over HTTP together with /health, /ready and /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, redisClient, cleanup, err := opts.newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := &http.Server{
				Addr:              ":" + port,
				Handler:           newProxyHandler(c, redisClient, logging.NewLogger("proxy")),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				opts.logger.Info().
					Str("addr", srv.Addr).
					Str("base_url", opts.baseURL).
					Bool("redis", redisClient != nil).
					Msg("Starting HubSpot lists proxy")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			opts.logger.Info().Msg("Shutting down proxy")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&port, "port", getEnv("PORT", "8080"), "Listen port (env PORT)")

	return cmd
}

// proxy serves the list operations over HTTP.
type proxy struct {
	client *lists.Client
	redis  *redis.Client
	logger zerolog.Logger
}

func newProxyHandler(c *lists.Client, redisClient *redis.Client, logger zerolog.Logger) http.Handler {
	p := &proxy{client: c, redis: redisClient, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", p.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /lists/{id}/contacts", p.contactsHandler)
	mux.HandleFunc("POST /lists/{id}/add", p.batchHandler(lists.ActionAddBatch))
	mux.HandleFunc("POST /lists/{id}/remove", p.batchHandler(lists.ActionRemoveBatch))

	return p.logRequests(mux)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while the configured Redis is unreachable.
func (p *proxy) readyHandler(w http.ResponseWriter, r *http.Request) {
	if p.redis != nil {
		if err := p.redis.Ping(r.Context()).Err(); err != nil {
			p.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (p *proxy) contactsHandler(w http.ResponseWriter, r *http.Request) {
	listID, ok := parseListID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := &lists.RequestOptions{}
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		opts.PageSize = n
	}
	if v := q.Get("vidOffset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "vidOffset must be an integer")
			return
		}
		opts.Offset = lists.Offset(n)
	}

	ctx, cancel := context.WithTimeout(r.Context(), proxyTimeout)
	defer cancel()

	if q.Get("all") == "true" {
		contacts, err := pagination.NewWalker(p.client, pagination.Config{PageSize: opts.PageSize}).All(ctx, listID)
		if err != nil {
			p.writeListError(w, err)
			return
		}
		writeResponse(w, http.StatusOK, map[string]any{"contacts": contacts, "has-more": false})
		return
	}

	page, err := p.client.GetContacts(ctx, listID, opts)
	if err != nil {
		p.writeListError(w, err)
		return
	}
	writeResponse(w, http.StatusOK, page)
}

func (p *proxy) batchHandler(action lists.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listID, ok := parseListID(w, r)
		if !ok {
			return
		}

		var payload lists.BatchPayload
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid batch payload: "+err.Error())
			return
		}
		if payload.Len() == 0 {
			writeError(w, http.StatusBadRequest, "vids or emails are required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), proxyTimeout)
		defer cancel()

		var err error
		if action == lists.ActionRemoveBatch {
			ok, err = p.client.RemoveBatch(ctx, &payload, listID)
		} else {
			ok, err = p.client.AddBatch(ctx, &payload, listID)
		}
		if err != nil {
			p.writeListError(w, err)
			return
		}

		status := http.StatusOK
		if !ok {
			status = http.StatusUnprocessableEntity
		}
		writeResponse(w, status, map[string]any{"listId": listID, "action": action.String(), "ok": ok})
	}
}

// writeListError maps client errors to proxy responses.
func (p *proxy) writeListError(w http.ResponseWriter, err error) {
	var apiErr *lists.APIError
	switch {
	case errors.Is(err, lists.ErrInvalidListID), errors.Is(err, lists.ErrNilPayload):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hsclient.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		writeError(w, apiErr.StatusCode, err.Error())
	default:
		p.logger.Error().
			Err(err).
			Str("error_class", string(hsclient.ClassOf(err))).
			Msg("HubSpot request failed")
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func parseListID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "list id must be a positive integer")
		return 0, false
	}
	return id, true
}

func writeResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeResponse(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (p *proxy) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		p.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Proxy request")
	})
}
