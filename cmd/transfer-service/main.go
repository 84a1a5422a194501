package main

import (
	"database/sql"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	_ "github.com/lib/pq"
	"github.com/oklog/oklog/pkg/group"

	"github.com/SantiagoGigli/transfer-service/pkg/auth"
	"github.com/SantiagoGigli/transfer-service/pkg/endpoint"
	"github.com/SantiagoGigli/transfer-service/pkg/fx"
	"github.com/SantiagoGigli/transfer-service/pkg/repository"
	"github.com/SantiagoGigli/transfer-service/pkg/service"
	"github.com/SantiagoGigli/transfer-service/pkg/transport"
)

func main() {
	fs := flag.NewFlagSet("transfer-service", flag.ExitOnError)
	var (
		httpAddr   = fs.String("http-addr", ":"+strconv.Itoa(envInt("HTTP_PORT", 5000)), "HTTP listen address")
		dbHost     = fs.String("db-host", envString("DB_HOST", "localhost"), "postgresql host")
		dbPort     = fs.Int("db-port", envInt("DB_PORT", 5432), "postgresql port")
		dbName     = fs.String("db-name", envString("DB_NAME", "transfersdb"), "postgresql database name")
		dbUser     = fs.String("db-user", envString("DB_USER", "postgres"), "postgresql user")
		dbPassword = fs.String("db-password", envString("DB_PASSWORD", "postgres"), "postgresql password")
		fxURL      = fs.String("fx-url", envString("FX_URL", fx.DefaultBaseURL), "currency conversion API base URL")
		fxAPIKey   = fs.String("fx-api-key", envString("APIKEY", ""), "currency conversion API key")
		fxFallback = fs.Bool("fx-fallback", envBool("FX_FALLBACK", false), "settle with the unconverted amount when conversion fails")
		authUser   = fs.String("auth-user", envString("AUTH_USER", "Test"), "expected value of the user header")
		authPass   = fs.String("auth-pass", envString("AUTH_PASS", "12345"), "expected value of the pass header")
	)
	fs.Usage = usageFor(fs, os.Args[0]+" [flags]")
	_ = fs.Parse(os.Args[1:])

	// Logging domain.
	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = level.NewFilter(logger, level.AllowDebug())
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = log.With(logger, "caller", log.DefaultCaller)
	}
	_ = level.Info(logger).Log("msg", "transfer service started")
	defer func() {
		_ = level.Info(logger).Log("msg", "transfer service ended")
	}()

	var db *sql.DB
	{
		var err error
		DSN := &url.URL{
			Scheme:   "postgresql",
			RawQuery: "sslmode=disable",
			Host:     *dbHost + ":" + strconv.Itoa(*dbPort),
			Path:     *dbName,
			User:     url.UserPassword(*dbUser, *dbPassword),
		}
		db, err = sql.Open("postgres", DSN.String())
		if err != nil {
			_ = level.Error(logger).Log("db", err)
			os.Exit(1)
		}
	}
	defer db.Close()

	// Build the layers of the service "onion" from the inside out. First, the
	// business logic service; then, the set of endpoints that wrap the service;
	// and finally, a series of concrete transport adapters. The adapters, like
	// the HTTP handler, are the bridge between Go kit and the interfaces that
	// the transports expect. Note that we're not binding them to ports or
	// anything yet; we'll do that next.
	var (
		converter     = fx.NewClient(*fxURL, *fxAPIKey, &http.Client{Timeout: 10 * time.Second}, logger)
		repo          = repository.New(db, logger)
		svc           = service.New(repo, converter, service.Config{FallbackOnConversionError: *fxFallback}, logger)
		endpoints     = endpoint.New(svc, logger)
		authenticator = auth.NewStatic(*authUser, *authPass)
		httpHandler   = transport.NewHTTPHandler(endpoints, authenticator, logger)
	)

	// Now we're to the part of the func main where we want to start actually
	// running things, like servers bound to listeners to receive connections.
	//
	// The method is the same for each component: add a new actor to the group
	// struct, which is a combination of 2 anonymous functions: the first
	// function actually runs the component, and the second function should
	// interrupt the first function and cause it to return. It's in these
	// functions that we actually bind the Go kit server/handler structs to the
	// concrete transports and run them.
	//
	// Putting each component into its own block is mostly for aesthetics: it
	// clearly demarcates the scope in which each listener/socket may be used.
	var g group.Group
	{
		// The HTTP listener mounts the Go kit HTTP handler we created.
		httpListener, err := net.Listen("tcp", *httpAddr)
		if err != nil {
			_ = level.Error(logger).Log("transport", "HTTP", "during", "Listen", "err", err)
			os.Exit(1)
		}
		g.Add(func() error {
			_ = level.Info(logger).Log("transport", "HTTP", "addr", *httpAddr)
			return http.Serve(httpListener, httpHandler)
		}, func(error) {
			httpListener.Close()
		})
	}
	{
		// This function just sits and waits for ctrl-C.
		cancelInterrupt := make(chan struct{})
		g.Add(func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-c:
				return fmt.Errorf("received signal %s", sig)
			case <-cancelInterrupt:
				return nil
			}
		}, func(error) {
			close(cancelInterrupt)
		})
	}
	// Run!
	_ = level.Error(logger).Log("exit", g.Run())
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func envString(env, fallback string) string {
	e := os.Getenv(env)
	if e == "" {
		return fallback
	}
	return e
}

func envInt(env string, fallback int) int {
	e := os.Getenv(env)
	if e == "" {
		return fallback
	}
	v, err := strconv.Atoi(e)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(env string, fallback bool) bool {
	e := os.Getenv(env)
	if e == "" {
		return fallback
	}
	v, err := strconv.ParseBool(e)
	if err != nil {
		return fallback
	}
	return v
}
