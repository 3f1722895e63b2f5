package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/google/uuid"
	"github.com/superfeelapi/goLiveBridge/app/goLiveBridge/handlers"
	"github.com/superfeelapi/goLiveBridge/business/bridge"
	"github.com/superfeelapi/goLiveBridge/business/callcontrol"
	"github.com/superfeelapi/goLiveBridge/business/events"
	"github.com/superfeelapi/goLiveBridge/business/language"
	"github.com/superfeelapi/goLiveBridge/business/record"
	"github.com/superfeelapi/goLiveBridge/foundation/config"
	"github.com/superfeelapi/goLiveBridge/foundation/external/admin"
	"github.com/superfeelapi/goLiveBridge/foundation/external/gemini"
	"github.com/superfeelapi/goLiveBridge/foundation/external/google"
	"github.com/superfeelapi/goLiveBridge/foundation/external/mqtt"
	"github.com/superfeelapi/goLiveBridge/foundation/external/telephony"
	"github.com/superfeelapi/goLiveBridge/foundation/logger"
	"github.com/superfeelapi/goLiveBridge/foundation/pubsub"
	"github.com/superfeelapi/goLiveBridge/foundation/redis"
	"github.com/superfeelapi/goLiveBridge/foundation/state"
	"github.com/superfeelapi/goLiveBridge/foundation/storage"
	"go.uber.org/zap"
)

const service = "goLiveBridge"

var (
	version   string
	buildTime string
)

func main() {
	// =================================================================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			Host            string        `conf:"default:0.0.0.0:8081"`
			Path            string        `conf:"default:/ws"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
		}
		Audio struct {
			TelephonyRate   int `conf:"default:8000"`
			ModelInputRate  int `conf:"default:16000"`
			ModelOutputRate int `conf:"default:24000"`
			InputBufferMs   int `conf:"default:100"`
			OutputBufferMs  int `conf:"default:100"`
		}
		Gemini struct {
			ProjectID      string
			Location       string  `conf:"default:us-central1"`
			Model          string  `conf:"default:gemini-live-2.5-flash-native-audio"`
			Voice          string  `conf:"default:Aoede"`
			Temperature    float64 `conf:"default:1.0"`
			CredentialPath string  `conf:"noprint"`
			APIKey         string  `conf:"mask"`
			ExtractModel   string  `conf:"default:gemini-2.0-flash"`
		}
		Call struct {
			AgentsFile        string        `conf:"default:/etc/goLiveBridge/agents.yaml"`
			DefaultAgent      string        `conf:"default:demo"`
			Greeting          string        `conf:"default:Hello"`
			StartTimeout      time.Duration `conf:"default:10s"`
			SetupGrace        time.Duration `conf:"default:10s"`
			ImplicitEndMinAge time.Duration `conf:"default:30s"`
			DrainTimeout      time.Duration `conf:"default:5s"`
			SettleDelay       time.Duration `conf:"default:500ms"`
			FinalizeTimeout   time.Duration `conf:"default:2m"`
		}
		Telephony struct {
			ControlURL   string
			ControlToken string `conf:"mask"`
		}
		Admin struct {
			BaseURL      string        `conf:"default:http://127.0.0.1:3100"`
			Push         bool          `conf:"default:true"`
			ConfigTTL    time.Duration `conf:"default:1m"`
			KnowledgeTTL time.Duration `conf:"default:15m"`
		}
		Storage struct {
			Directory string `conf:"default:/data"`
			Enabled   bool   `conf:"default:true"`
		}
		Redis struct {
			Address  string
			Password string `conf:"mask"`
			Channel  string `conf:"default:liveBridge"`
		}
		MQTT struct {
			Broker      string
			TopicPrefix string `conf:"default:liveBridge"`
			QoS         int    `conf:"default:1"`
		}
		Sinks struct {
			RetryBackoff time.Duration `conf:"default:30s"`
		}
		Logger struct {
			LogDirectory   string `conf:"noprint"`
			Debug          bool   `conf:"default:false"`
			LogTranscripts bool   `conf:"default:false"`
		}
	}{
		Version: conf.Version{
			Build: version,
			Desc:  buildTime,
		},
	}

	// Configuration Parsing
	help, err := conf.Parse("BRIDGE", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			os.Exit(0)
		}
		fmt.Println("parsing config:", err)
		os.Exit(1)
	}

	// =================================================================================================================
	// Version Checking Support

	displayVersion := flag.Bool("version", false, "Display version and exit")
	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		fmt.Printf("Build time:\t%s\n", buildTime)
		os.Exit(0)
	}

	// =================================================================================================================
	// Application Logger

	log, err := logger.New(cfg.Logger.LogDirectory, service, cfg.Logger.Debug)
	if err != nil {
		fmt.Println("constructing logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	// =================================================================================================================
	// Validation

	switch {
	case cfg.Gemini.ProjectID == "":
		log.Errorw("startup", "ERROR", "gemini project id is required")
		os.Exit(1)
	case !strings.HasPrefix(cfg.Web.Path, "/"):
		log.Errorw("startup", "ERROR", "web path must begin with /", "path", cfg.Web.Path)
		os.Exit(1)
	case cfg.Audio.TelephonyRate <= 0 || cfg.Audio.ModelInputRate <= 0 || cfg.Audio.ModelOutputRate <= 0:
		log.Errorw("startup", "ERROR", "sample rates must be positive")
		os.Exit(1)
	case cfg.Audio.InputBufferMs <= 0 || cfg.Audio.OutputBufferMs <= 0:
		log.Errorw("startup", "ERROR", "buffer windows must be positive")
		os.Exit(1)
	}

	// =================================================================================================================
	// Configuration Stringify

	out, err := conf.String(&cfg)
	if err != nil {
		log.Errorw("startup", "ERROR", err)
	}
	log.Infow("startup", "config", out)

	// =================================================================================================================
	// Agent Profiles

	agents, err := config.Load(cfg.Call.AgentsFile)
	if err != nil {
		log.Errorw("startup", "ERROR", err)
		os.Exit(1)
	}
	log.Infow("startup", "agents", len(agents.Agents))

	// =================================================================================================================
	// Credentials

	ctx := context.Background()

	tokenSource, err := google.TokenSource(ctx, cfg.Gemini.CredentialPath)
	if err != nil {
		log.Errorw("startup", "ERROR", err)
		os.Exit(1)
	}

	// =================================================================================================================
	// Sinks

	st := state.NewState()
	st.Backoff = cfg.Sinks.RetryBackoff

	var (
		eventsRedis events.RedisPublisher
		recordRedis record.Publisher
	)
	if cfg.Redis.Address != "" {
		redisClient, err := redis.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Channel, log)
		if err != nil {
			log.Errorw("startup", "ERROR", err)
		} else {
			defer redisClient.Close()
			eventsRedis = redisClient
			recordRedis = redisClient
		}
	}

	var mqttPublisher mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.New(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: fmt.Sprintf("%s-%s", service, uuid.NewString()[:8]),
			QoS:      byte(cfg.MQTT.QoS),
		})
		if err != nil {
			log.Errorw("startup", "ERROR", err)
		} else {
			defer client.Close()
			mqttPublisher = client
		}
	}

	broker := pubsub.NewBroker()

	dispatcher := events.Run(events.Settings{
		Broker:      broker,
		MQTT:        mqttPublisher,
		Redis:       eventsRedis,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		State:       st,
		Logger:      log,
	})
	defer dispatcher.Shutdown()

	// =================================================================================================================
	// Post-call Pipeline

	adminClient := admin.New(admin.Settings{
		BaseURL:      cfg.Admin.BaseURL,
		Push:         cfg.Admin.Push,
		ConfigTTL:    cfg.Admin.ConfigTTL,
		KnowledgeTTL: cfg.Admin.KnowledgeTTL,
		Logger:       log,
	})

	var extractor record.Extractor
	if cfg.Gemini.APIKey != "" {
		e, err := google.NewExtractor(ctx, cfg.Gemini.APIKey, cfg.Gemini.ExtractModel)
		if err != nil {
			log.Errorw("startup", "ERROR", err)
		} else {
			extractor = e
		}
	}

	finalizer := record.New(record.Settings{
		Store:     storage.New(cfg.Storage.Directory, cfg.Storage.Enabled),
		Admin:     adminClient,
		Extractor: extractor,
		Redis:     recordRedis,
		State:     st,
		Logger:    log,
	})

	var control bridge.Controller
	if cfg.Telephony.ControlURL != "" {
		control = telephony.New(cfg.Telephony.ControlURL, cfg.Telephony.ControlToken)
	}

	// =================================================================================================================
	// Session Settings

	model := gemini.DefaultConfig()
	model.URL = gemini.ServiceURL(cfg.Gemini.Location)
	model.Model = gemini.ModelURI(cfg.Gemini.ProjectID, cfg.Gemini.Location, cfg.Gemini.Model)
	model.Voice = cfg.Gemini.Voice
	model.Temperature = cfg.Gemini.Temperature
	model.TokenSource = tokenSource

	callPolicy := callcontrol.DefaultPolicy()
	callPolicy.SetupGrace = cfg.Call.SetupGrace
	callPolicy.ImplicitEndMinAge = cfg.Call.ImplicitEndMinAge

	session := bridge.Settings{
		Config: bridge.Config{
			TelephonyRate:   cfg.Audio.TelephonyRate,
			ModelInputRate:  cfg.Audio.ModelInputRate,
			ModelOutputRate: cfg.Audio.ModelOutputRate,
			InputBufferMs:   cfg.Audio.InputBufferMs,
			OutputBufferMs:  cfg.Audio.OutputBufferMs,
			StartTimeout:    cfg.Call.StartTimeout,
			DrainTimeout:    cfg.Call.DrainTimeout,
			SettleDelay:     cfg.Call.SettleDelay,
			FinalizeTimeout: cfg.Call.FinalizeTimeout,
			Greeting:        cfg.Call.Greeting,
			LogTranscripts:  cfg.Logger.LogTranscripts,
			Model:           model,
			CallControl:     callPolicy,
			Language:        language.DefaultPolicy(),
		},
		Dial:      dialer(log),
		Control:   control,
		Finalizer: finalizer,
		Prompts:   adminClient,
		Broker:    broker,
		Logger:    log,
	}

	// =================================================================================================================
	// Start Server

	shutdownCtx, cancelSessions := context.WithCancel(ctx)
	defer cancelSessions()

	mux := http.NewServeMux()
	mux.Handle("/", handlers.Bridge{
		Path:         cfg.Web.Path,
		DefaultAgent: cfg.Call.DefaultAgent,
		Agents:       agents,
		Session:      session,
		Logger:       log,
	})

	server := http.Server{
		Addr:        cfg.Web.Host,
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return shutdownCtx },
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Infow("startup", "status", "server started", "host", cfg.Web.Host, "path", cfg.Web.Path)
		serverErrors <- server.ListenAndServe()
	}()

	// Blocking main and waiting for error or shutdown.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Errorw("shutdown", "ERROR", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig.String())
		defer log.Infow("shutdown", "status", "shutdown complete")

		ctx, cancel := context.WithTimeout(ctx, cfg.Web.ShutdownTimeout)
		defer cancel()

		cancelSessions()

		if err := server.Shutdown(ctx); err != nil {
			log.Errorw("shutdown", "ERROR", err)
			server.Close()
		}
	}
}

// dialer opens a fresh model link per call.
func dialer(log *zap.SugaredLogger) func(gemini.Config) bridge.ModelLink {
	return func(c gemini.Config) bridge.ModelLink {
		return gemini.New(c, log)
	}
}
