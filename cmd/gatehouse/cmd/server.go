package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/gatehouse/api"
	"github.com/jmcleod/gatehouse/credential"
	"github.com/jmcleod/gatehouse/session"
	"github.com/jmcleod/gatehouse/store"
	"github.com/jmcleod/gatehouse/store/boltstore"
	"github.com/jmcleod/gatehouse/store/jsonstore"
	"github.com/jmcleod/gatehouse/user"
)

var (
	port           int
	dataDir        string
	storeBackend   string
	sessionTimeout time.Duration
	bcryptCost     int
	tlsCert        string
	tlsKey         string
)

const sweepInterval = 5 * time.Minute

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the authentication server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		var userStore store.Store
		switch storeBackend {
		case "json":
			userStore = jsonstore.New(filepath.Join(dataDir, "users.json"),
				jsonstore.WithLogger(logger))
		case "bolt":
			bs, err := boltstore.Open(filepath.Join(dataDir, "users.db"), nil)
			if err != nil {
				return fmt.Errorf("failed to open user store: %w", err)
			}
			defer bs.Close()
			userStore = bs
		default:
			return fmt.Errorf("unknown store backend %q (want json or bolt)", storeBackend)
		}

		hasher, err := credential.NewHasher(bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to initialize password hasher: %w", err)
		}

		engine := session.NewEngine(userStore, hasher, sessionTimeout,
			session.WithLogger(logger),
			session.WithSweepInterval(sweepInterval))
		defer engine.Close()

		users := user.NewManager(userStore, engine, hasher, logger)
		a := api.New(users, engine, api.WithLogger(logger))

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		useTLS := tlsCert != "" && tlsKey != ""
		if useTLS {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			server.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if useTLS {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		logger.Info("server started",
			"port", port, "data_dir", dataDir, "store", storeBackend,
			"session_timeout", sessionTimeout.String(), "tls", useTLS)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&storeBackend, "store", "json", "User store backend: json or bolt")
	serverCmd.Flags().DurationVar(&sessionTimeout, "session-timeout", 4*time.Hour, "Idle timeout for login sessions")
	serverCmd.Flags().IntVar(&bcryptCost, "bcrypt-cost", credential.DefaultCost, "bcrypt work factor for password hashing")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
