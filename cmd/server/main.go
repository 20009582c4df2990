package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Gustavouu/unclic-manager-sub000/internal/app"
	"github.com/Gustavouu/unclic-manager-sub000/internal/booking"
	"github.com/Gustavouu/unclic-manager-sub000/internal/businessconfig"
	"github.com/Gustavouu/unclic-manager-sub000/internal/config"
	"github.com/Gustavouu/unclic-manager-sub000/internal/drafts"
	"github.com/Gustavouu/unclic-manager-sub000/internal/gcal"
	"github.com/Gustavouu/unclic-manager-sub000/internal/logging"
	"github.com/Gustavouu/unclic-manager-sub000/internal/metrics"
	"github.com/Gustavouu/unclic-manager-sub000/internal/notify"
	"github.com/Gustavouu/unclic-manager-sub000/internal/server"
	"github.com/Gustavouu/unclic-manager-sub000/internal/store"
	"github.com/Gustavouu/unclic-manager-sub000/internal/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "scheduler",
		Short:        "Appointment scheduling service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(slotsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	for _, dir := range []store.Direction{store.Up, store.Down} {
		short := "Apply pending migrations"
		if dir == store.Down {
			short = "Roll back the last migration"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   string(dir),
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if cfg.DatabaseURL == "" {
					return fmt.Errorf("DATABASE_URL required")
				}
				if err := store.Migrate(cfg.DatabaseURL, dir); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", dir)
				return nil
			},
		})
	}
	return cmd
}

func slotsCmd() *cobra.Command {
	var businessID, date, professionalID string
	var duration int

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the bookable slots of a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.LogLevel, cfg.Env)
			ctx := cmd.Context()

			rdb := newRedis(cfg)
			defer rdb.Close()
			appts, _, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := booking.NewService(appts, businessconfig.NewStore(rdb, cfg.DefaultSettings()), nil,
				booking.WithLogger(logger))
			state, settings, err := svc.LoadCalendar(ctx, businessID)
			if err != nil {
				return err
			}
			day, err := time.ParseInLocation("2006-01-02", date, settings.Location())
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", date, err)
			}
			slots, err := svc.Slots(ctx, businessID, state, day, professionalID, duration)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(slots) == 0 {
				fmt.Fprintln(out, "no bookable slots")
				return nil
			}
			for _, s := range slots {
				mark := "free"
				if !s.Available {
					mark = "busy: " + s.Reason
				}
				fmt.Fprintf(out, "%s\t%s\n", s.Label, mark)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&businessID, "business", "", "business id")
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD in the business timezone")
	cmd.Flags().StringVar(&professionalID, "professional", "", "mark slots where this professional is busy")
	cmd.Flags().IntVar(&duration, "duration", 0, "appointment length in minutes, used with --professional")
	_ = cmd.MarkFlagRequired("business")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
}

// openStore picks Postgres when DATABASE_URL is set and the in-memory store
// otherwise. The returned probe is nil for the in-memory store.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (booking.AppointmentStore, func(context.Context) error, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, appointments are kept in memory")
		return store.NewMemory(), nil, func() {}, nil
	}
	pool, err := store.Open(ctx, store.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return store.NewPostgres(pool), store.ReadyCheck(pool), pool.Close, nil
}

func runServer(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.LogLevel, cfg.Env)
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  "scheduler",
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSamplingRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	appts, dbReady, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb := newRedis(cfg)
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	notifier := notify.Multi{notify.NewLog(logger)}
	if brokers := notify.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		w := notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaNotifyTopic)
		defer w.Close()
		notifier = append(notifier, notify.NewKafka(w, logger))
		logger.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaNotifyTopic).Msg("publishing notices to kafka")
	}

	opts := []booking.Option{
		booking.WithLogger(logger),
		booking.WithMetrics(metrics.NewSchedulingMetrics(reg)),
	}
	conn := gcal.NewConnector(gcal.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		CalendarID:   cfg.GoogleCalendarID,
	}, rdb)
	if conn != nil {
		opts = append(opts, booking.WithMirror(gcal.NewMirror(conn, logger)))
	}

	settings := businessconfig.NewStore(rdb, cfg.DefaultSettings())
	a := &app.App{
		Booking:  booking.NewService(appts, settings, notifier, opts...),
		Settings: settings,
		Drafts:   drafts.NewStore(rdb, cfg.DraftTTL),
		Calendar: conn,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:   logger,
		Ready: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			if dbReady != nil {
				return dbReady(ctx)
			}
			return nil
		},
	}

	router := a.Router(app.AuthConfig{StaticTokens: cfg.Tokens(), JWTSecret: cfg.JWTSecret})
	return server.Run(ctx, cfg.Addr(), router, cfg.ShutdownTimeout, logger)
}
