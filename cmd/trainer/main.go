package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/fantasygrid/gameday/internal/cutoff"
	"github.com/fantasygrid/gameday/internal/features"
	"github.com/fantasygrid/gameday/internal/matchup"
	"github.com/fantasygrid/gameday/internal/model"
	"github.com/fantasygrid/gameday/internal/repository"
	"github.com/fantasygrid/gameday/internal/scoring"
	"github.com/fantasygrid/gameday/pkg/config"
	"github.com/fantasygrid/gameday/pkg/database"
	"github.com/fantasygrid/gameday/pkg/logger"
)

// trainer keeps model artifacts fresh: on each cron tick it retrains every
// configured ruleset through the latest fully ingested week.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	store := repository.New(db.DB)
	rulesets, err := scoring.LoadRulesets(context.Background(), store)
	if err != nil {
		log.WithError(err).Fatal("Failed to load scoring rulesets")
	}

	analyzer := matchup.NewAnalyzer(store, nil)
	policy := cutoff.NewPolicy(store)
	models := model.NewModelStore(store, features.NewBuilder(store, analyzer), policy, cfg.ModelDir)

	trainAll := func() {
		season := seasonFor(time.Now())
		for _, name := range cfg.TrainRulesets {
			rs, err := rulesets.Get(name)
			if err != nil {
				log.WithField("ruleset", name).WithError(err).Error("Unknown ruleset in TRAIN_RULESETS")
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			art, err := models.EnsureFor(ctx, rs, season, 19)
			cancel()
			if err != nil {
				log.WithField("ruleset", name).WithError(err).Error("Training failed")
				continue
			}
			log.WithFields(logrus.Fields{
				"ruleset": name,
				"cutoff":  art.Week,
				"season":  art.Season,
			}).Info("Artifact current")
		}
	}

	log.WithFields(logrus.Fields{
		"schedule": cfg.TrainCron,
		"rulesets": cfg.TrainRulesets,
	}).Info("Trainer starting")

	// Train once at startup so a fresh deployment is serviceable
	// immediately, then follow the schedule.
	trainAll()

	c := cron.New()
	if _, err := c.AddFunc(cfg.TrainCron, trainAll); err != nil {
		log.WithError(err).Fatal("Invalid TRAIN_CRON expression")
	}
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Trainer shutting down")
	<-c.Stop().Done()
}

// seasonFor maps a wall-clock date to the NFL season it belongs to: weeks
// from August onward are the year's season, earlier months belong to the
// prior season's playoffs and offseason.
func seasonFor(now time.Time) int {
	if now.Month() >= time.August {
		return now.Year()
	}
	return now.Year() - 1
}
