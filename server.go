package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swipeserver/api"
	log "swipeserver/cloudlog"
	"swipeserver/collabauth"
	"swipeserver/config"
	"swipeserver/conversation"
	"swipeserver/hub"
	"swipeserver/match"
	"swipeserver/notify"
	"swipeserver/profile"
	"swipeserver/remotejob"
	"swipeserver/storage"

	"cloud.google.com/go/pubsub"
	firebase "firebase.google.com/go"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	projectID, err := cfg.ResolveProjectID()
	if err != nil {
		log.Fatalf("Error resolving project: %v", err)
	}
	opts := cfg.ClientOptions()

	if cfg.CloudLogging {
		if err := log.Init(ctx, projectID, cfg.LogName, opts...); err != nil {
			log.Fatalf("Error initializing cloud logging: %v", err)
		}
		defer log.Close()
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		log.Fatalf("Error initializing firebase: %v", err)
	}
	fsClient, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("Error connecting to firestore: %v", err)
	}
	db := storage.New(fsClient)
	defer db.Close()

	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("Error initializing auth: %v", err)
	}

	var sender notify.Sender
	switch cfg.PushProvider {
	case config.PushFCM:
		msgClient, err := app.Messaging(ctx)
		if err != nil {
			log.Fatalf("Error initializing messaging: %v", err)
		}
		sender = notify.NewFCMSender(msgClient)
	default:
		sender = notify.NewExpoSender(cfg.ExpoPushURL, &http.Client{Timeout: 10 * time.Second})
	}
	notifier := notify.NewDispatcher(sender)

	var psClient *pubsub.Client
	if cfg.PubSubTopic != "" {
		psClient, err = pubsub.NewClient(ctx, projectID, opts...)
		if err != nil {
			log.Fatalf("Error connecting to pubsub: %v", err)
		}
		defer psClient.Close()
	}
	events := remotejob.NewPublisher(psClient, cfg.PubSubTopic)
	defer events.Close()

	conversations := conversation.NewService(db, notifier, events, cfg.ConversationPrefix)
	server := api.NewServer(api.Deps{
		Verifier:      collabauth.NewVerifier(authClient),
		Profiles:      profile.NewService(db, collabauth.NewAccounts(authClient), cfg.AllowedEmailDomains),
		Matches:       match.NewEngine(db, notifier, events, cfg.ConversationPrefix),
		Conversations: conversations,
		Live:          hub.NewConnector(conversations, cfg.ConversationPrefix, originChecker(cfg.CORSOrigins)),
		CORSOrigins:   cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Println("Starting server at: http://" + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error serving: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down: %v", err)
	}
}

// originChecker allows websocket upgrades from the CORS origins. A wildcard
// gives nil, which lets the connector accept every origin.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := map[string]bool{}
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
