package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"topicrank/internal/config"
	"topicrank/internal/scheduler"
	"topicrank/internal/store"
	"topicrank/pkg/provider"
	"topicrank/pkg/scoring"
	"topicrank/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildEngine(cfg *config.Config, db store.Store) *scoring.Engine {
	citations := provider.NewOpenAlex(cfg.Providers.OpenAlex.BaseURL, cfg.Providers.OpenAlex.Mailto)
	attention := provider.NewWikipedia(
		cfg.Providers.Wikipedia.APIURL,
		cfg.Providers.Wikipedia.MetricsURL,
		cfg.Providers.Wikipedia.Project,
		cfg.Providers.Wikipedia.UserAgent,
	)

	computer := scoring.NewComputer(citations, attention, cfg.Scoring.Policy(), cfg.Scoring.Weights)
	return scoring.NewEngine(db, computer)
}

func runScore(topicID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	engine := buildEngine(cfg, db)
	ctx := context.Background()

	if topicID != "" {
		topic, err := engine.ScoreTopic(ctx, topicID)
		if err != nil {
			return fmt.Errorf("score topic: %w", err)
		}
		fmt.Printf("%s: impact=%.4f activity=%.4f (raw)\n", topic.Name, topic.Impact, topic.Activity)
		return nil
	}

	if err := engine.ScoreAll(ctx); err != nil {
		return fmt.Errorf("score all: %w", err)
	}
	return nil
}

func runTopicsAdd(name, category, openalexID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	topic := &store.Topic{Name: name, Category: category}
	if openalexID != "" {
		topic.OpenAlexID = &openalexID
	}

	if err := db.CreateTopic(context.Background(), topic); err != nil {
		return err
	}
	fmt.Printf("added topic %s (%s)\n", topic.Name, topic.ID)
	return nil
}

func runTopicsList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	topics, err := db.ListTopics(context.Background(), store.ListOpts{})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(topics)
	}

	if len(topics) == 0 {
		fmt.Println("no topics (add one first: topicrank topics add <name>)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IMPACT\tACTIVITY\tNAME\tCATEGORY\tSCORED")
	for _, t := range topics {
		scored := "never"
		if t.Metrics != nil && t.Metrics.ScoredAt != nil {
			scored = t.Metrics.ScoredAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%.2f\t%.2f\t%s\t%s\t%s\n",
			t.Impact, t.Activity, t.Name, t.Category, scored)
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	engine := buildEngine(cfg, db)
	srv := server.New(db, engine, port)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	engine := buildEngine(cfg, db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(engine, cfg.Schedule.Cron)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	// Start HTTP server.
	srv := server.New(db, engine, port)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}
