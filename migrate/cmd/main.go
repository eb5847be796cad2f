package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/medhist/annotation-iam/migrate"
)

func main() {
	log := logrus.New()
	opts := migrate.OptionsFromEnv("MIGRATE")
	opts.Logger = log
	if err := migrate.Run(opts); err != nil {
		log.WithError(err).Error("migrate failed")
		os.Exit(1)
	}
	log.Info("migrate completed successfully")
}
