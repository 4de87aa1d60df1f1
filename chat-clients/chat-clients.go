package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/datastore"
	"cloud.google.com/go/logging"
	"contrib.go.opencensus.io/exporter/stackdriver"
	"github.com/go-redis/redis/v7"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/trace"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"github.com/selectL-L/sancho/lib/envreader"
	"github.com/selectL-L/sancho/lib/handler"
	log "github.com/selectL-L/sancho/lib/logger"
	"github.com/selectL-L/sancho/lib/reminders"
	"github.com/selectL-L/sancho/lib/skills"
)

type environment struct {
	config         *envConfig
	log            *log.Logger
	configReloader func() (*envConfig, error)
}

type envConfig struct {
	projectID          string
	botName            string
	logName            string
	podName            string
	serverPort         string
	redisAddr          string
	slackToken         string
	slackSigningSecret string
	skillLimit         int
	reminderPoll       time.Duration
	traceProbability   float64
	debug              bool
	local              bool
}

// GetEnvironmentalConfig assembles config from the environment plus an
// optional sancho.yaml for the tunables. Secrets only ever come from the
// environment.
func GetEnvironmentalConfig() (*envConfig, error) {
	v := viper.New()
	v.SetConfigName("sancho")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/sancho/")
	v.AddConfigPath(".")
	v.SetDefault("bot-name", "sancho")
	v.SetDefault("log-name", "sancho-chat-clients")
	v.SetDefault("server-port", ":7070")
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("skill-limit", skills.DefaultLimit)
	v.SetDefault("reminder-poll-seconds", 15)
	v.SetDefault("trace-probability", 0.1)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	configReader := &envreader.EnvReader{}
	config := &envConfig{
		projectID:          configReader.GetEnv("PROJECT_ID"),
		slackToken:         configReader.GetEnv("SLACK_BOT_TOKEN"),
		slackSigningSecret: configReader.GetEnv("SLACK_SIGNING_SECRET"),
		podName:            configReader.GetEnvOpt("POD_NAME"),
		debug:              configReader.GetEnvBoolOpt("DEBUG"),
		local:              configReader.GetEnvBoolOpt("LOCAL"),
		botName:            v.GetString("bot-name"),
		logName:            v.GetString("log-name"),
		serverPort:         v.GetString("server-port"),
		redisAddr:          v.GetString("redis-addr"),
		skillLimit:         v.GetInt("skill-limit"),
		reminderPoll:       time.Duration(v.GetInt("reminder-poll-seconds")) * time.Second,
		traceProbability:   v.GetFloat64("trace-probability"),
	}
	if configReader.Errors {
		return nil, fmt.Errorf("could not gather environment variables. Failed variables: %v", configReader.MissingKeys)
	}
	return config, nil
}

func (env *environment) ReloadConfig() error {
	config, err := env.configReloader()
	if err != nil {
		return err
	}
	env.config = config
	return nil
}

func main() {
	log.Printf("hello.")
	ctx := context.Background()
	env := &environment{configReloader: func() (*envConfig, error) { return GetEnvironmentalConfig() }}
	err := env.ReloadConfig()
	if err != nil {
		log.Fatalf("ERROR OCCURED BEFORE LOGGING: %s", err)
	}
	// Stackdriver Logger
	env.log = log.New(
		env.config.projectID,
		log.WithDefaultSeverity(logging.Error),
		log.WithDebug(env.config.debug),
		log.WithLocal(env.config.local),
		log.WithLogName(env.config.logName),
		log.WithPrefix(env.config.podName+": "),
	)
	env.log.Info("Logger up and running!")
	defer log.Println("Shutting down logger.")
	defer env.log.Close()

	// keep config up to date
	go func() {
		ticker := time.NewTicker(time.Second * 60)
		defer ticker.Stop()
		for range ticker.C {
			err := env.ReloadConfig()
			if err != nil {
				env.log.Criticalf("Could not reload config: %v", err)
			}
		}
	}()

	// Stackdriver Trace exporter
	if !env.config.local {
		exporter, err := stackdriver.NewExporter(stackdriver.Options{
			ProjectID: env.config.projectID,
		})
		if err != nil {
			log.Fatalf("could not configure Stackdriver Exporter: %s", err)
		}
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(env.config.traceProbability)})
		trace.RegisterExporter(exporter)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: env.config.redisAddr,
	})
	if err := redisClient.Ping().Err(); err != nil {
		env.log.Errorf("redis not reachable at %s, caching disabled: %s", env.config.redisAddr, err)
	}

	// Cloud Datastore Client
	var dsClient *datastore.Client
	if env.config.local {
		dsClient, err = datastore.NewClient(ctx, env.config.projectID, option.WithoutAuthentication(), option.WithGRPCDialOption(grpc.WithInsecure()))
	} else {
		dsClient, err = datastore.NewClient(ctx, env.config.projectID)
	}
	if err != nil {
		log.Fatalf("Could not configure Datastore Client: %s", err)
	}

	skillStore := skills.NewStore(dsClient, redisClient, env.log, skills.WithLimit(env.config.skillLimit))
	reminderStore := reminders.NewStore(dsClient, redisClient, env.log)

	slackChatClient := NewSlackChatClient(env.log, redisClient, skillStore, reminderStore, env.config)

	reminderScheduler := reminders.NewScheduler(
		reminderStore,
		env.config.reminderPoll,
		slackChatClient.DeliverReminder,
		env.log,
	)
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	go reminderScheduler.Run(schedulerCtx)

	// Define inbound Routes
	r := mux.NewRouter()
	r.Handle("/roll", handler.Handler{Env: slackChatClient, H: RESTRollHandler})
	r.Handle("/slack/slash/roll", handler.Handler{Env: slackChatClient, H: SlackSlashRollHandler})
	r.Handle("/healthz", handler.Handler{Env: env, H: rootHandler})
	r.Handle("/", handler.Handler{Env: env, H: rootHandler})

	// Add OpenCensus HTTP Handler Wrapper
	openCensusWrapper := &ochttp.Handler{Handler: r}

	// Define a server with timeouts
	srv := &http.Server{
		Addr:         env.config.serverPort,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      openCensusWrapper,
	}
	srv.RegisterOnShutdown(slackChatClient.Init(ctx))

	// Run our server in a goroutine so that it doesn't block.
	go func() {
		err := srv.ListenAndServe()
		if err != nil {
			log.Printf("ListenAndServe error: %+v", err)
		}
	}()

	// We'll accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+/)
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	// Block until we receive our signal.
	<-c
	stopScheduler()

	// Create a deadline to wait for.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()

	// Doesn't block if no connections, but will otherwise wait
	// until the timeout deadline.
	go func() {
		srv.Shutdown(shutdownCtx)
	}()
	<-shutdownCtx.Done()
	log.Println("shut down")
}

func rootHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	env := e.(*environment)
	trace.ApplyConfig(trace.Config{DefaultSampler: trace.NeverSample()})
	defer trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(env.config.traceProbability)})
	fmt.Fprint(w, "200")
	return nil
}
