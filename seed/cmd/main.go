package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/medhist/annotation-iam/migrate"
	"github.com/medhist/annotation-iam/seed"
)

func main() {
	log := logrus.New()
	opts := migrate.OptionsFromEnv("SEED")
	opts.Logger = log
	if err := seed.Run(opts); err != nil {
		log.WithError(err).Error("seed failed")
		os.Exit(1)
	}
	log.Info("seed completed successfully")
}
