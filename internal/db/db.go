package db

import (
	"fmt"
	"time"

	"github.com/rnrnshn/alx-polly/internal/config"
	"github.com/rnrnshn/alx-polly/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init opens the configured database, migrates it and stores the handle in DB.
func Init(cfg config.Config) *gorm.DB {
	conn, err := Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	logrus.WithField("driver", cfg.DatabaseType).Info("Database connection established")

	if err := Migrate(conn); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}
	logrus.Info("Database migration completed")

	DB = conn
	return conn
}

// Open connects without migrating. Timestamps are kept in UTC and driver
// errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DatabasePostgres:
		dialector = postgres.Open(dsn)
	case config.DatabaseSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if driver == config.DatabaseSQLite {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		// One writer at a time; also keeps in-memory databases alive.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	return conn, nil
}

// Migrate creates or updates every table, and on postgres installs the
// get_poll_results aggregate function.
func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&models.Profile{},
		&models.Poll{},
		&models.PollOption{},
		&models.Vote{},
		&models.PollShare{},
	)
	if err != nil {
		return err
	}

	if IsPostgres(conn) {
		if err := conn.Exec(pollResultsFunction).Error; err != nil {
			return fmt.Errorf("failed to create get_poll_results: %w", err)
		}
	}
	return nil
}

func IsPostgres(conn *gorm.DB) bool {
	return conn.Dialector.Name() == "postgres"
}

// Counts every option of the poll, including those without votes, and the
// share of all the poll's votes rounded to two decimals.
const pollResultsFunction = `
CREATE OR REPLACE FUNCTION get_poll_results(p_poll_id text)
RETURNS TABLE (option_id text, option_text text, vote_count bigint, percentage numeric)
LANGUAGE sql STABLE AS $$
    WITH total AS (
        SELECT COUNT(*)::numeric AS n FROM votes WHERE poll_id = p_poll_id
    )
    SELECT o.id::text,
           o.text::text,
           COUNT(v.id) AS vote_count,
           CASE WHEN t.n > 0 THEN ROUND(COUNT(v.id) * 100.0 / t.n, 2) ELSE 0 END AS percentage
    FROM poll_options o
    CROSS JOIN total t
    LEFT JOIN votes v ON v.option_id = o.id
    WHERE o.poll_id = p_poll_id
    GROUP BY o.id, o.text, o.display_order, o.created_at, t.n
    ORDER BY o.display_order ASC, o.created_at ASC;
$$;
`
