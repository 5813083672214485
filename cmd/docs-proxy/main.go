// docs-proxy exposes a local HTTP proxy in front of the Doclane
// platform API. Requests to /api/* are forwarded through the full
// client pipeline (throttle, response cache, auth refresh, retry) so
// local tooling gets resilient access without reimplementing it.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/doclane/doclane-go/pkg/cache"
	"github.com/doclane/doclane-go/pkg/client"
	"github.com/doclane/doclane-go/pkg/logging"
)

func main() {
	root := &cobra.Command{
		Use:   "docs-proxy",
		Short: "Local resilient proxy for the Doclane platform API",
	}
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the proxy server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	// Configuration from environment
	baseURL := getEnv("DOCLANE_API_URL", "https://api.doclane.io")
	apiToken := getEnv("DOCLANE_API_TOKEN", "")
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "docs-proxy/0.1.0")
	logLevel := getEnv("LOG_LEVEL", "info")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Output: os.Stderr,
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", redisURL, err)
	}
	logger.Info().Str("redis", redisURL).Msg("Connected to Redis")

	c, err := client.New(client.Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	c.SetAuthToken(apiToken)

	// Pipeline order matters: throttle paces attempts before they go
	// out, the cache answers 304s before retry sees them, retry runs
	// last. The proxy uses a static token, so no auth interceptor: a
	// 401 surfaces to the caller instead of triggering a refresh.
	c.AddInterceptor(client.NewLoggingInterceptor())
	c.AddInterceptor(client.NewThrottleInterceptor(20, 5))
	c.AddInterceptor(cache.NewInterceptor(cache.NewStore(redisClient)))
	c.AddInterceptor(client.NewRetryInterceptor(client.DefaultRetryConfig()))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/", proxyHandler(c))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("upstream", baseURL).
		Str("user_agent", userAgent).
		Msg("Starting docs-proxy")

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// proxyHandler forwards /api/<path> to the platform as /<path> through
// the client pipeline and maps typed failures back to HTTP statuses.
func proxyHandler(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		if path == "" {
			path = "/"
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		data, err := c.RequestData(ctx, client.Endpoint{
			Path:         path,
			Method:       r.Method,
			Query:        r.URL.Query(),
			RequiresAuth: true,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// writeError translates a typed client error into a proxy response.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	status := statusForKind(apiErr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"kind":%q,"message":%q}`, apiErr.Kind, apiErr.Message)
}

// statusForKind picks the proxy's response status for a typed error.
// Upstream HTTP failures keep their original status; local and
// connectivity failures map to gateway-style statuses.
func statusForKind(e *client.Error) int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	switch e.Kind {
	case client.KindTimeout:
		return http.StatusGatewayTimeout
	case client.KindNoConnection, client.KindServerUnreachable, client.KindSSL:
		return http.StatusBadGateway
	case client.KindCancelled:
		return 499 // client closed request
	case client.KindInvalidURL, client.KindEncoding:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
