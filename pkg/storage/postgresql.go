package storage

import (
	"fmt"

	"github.com/hackday-sre/cluster-manager/pkg/config"
	"github.com/hackday-sre/cluster-manager/pkg/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDatabase(c config.Postgresql) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.Host, c.Username, c.Password, c.DatabaseName, c.Port)

	databaseConfig := gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), &databaseConfig)
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Event{},
		&model.Team{},

		&model.Cluster{},
		&model.ClusterDatabaseUser{},
		&model.ClusterIPAccessEntry{},
	)
	if err != nil {
		return nil, err
	}

	// The one live cluster per team guarantee has to hold across processes, so
	// it is enforced here rather than with in-memory locks. Deleted and errored
	// records are excluded so a team can provision again after cleanup.
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_live_cluster_per_team
		ON clusters (event_id, team_id)
		WHERE status NOT IN ('deleted', 'error')`).Error
	if err != nil {
		return nil, err
	}

	return db, nil
}
