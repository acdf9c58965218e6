package database

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// dialect 不同数据库驱动的SQL差异
type dialect struct {
	driverName   string
	insertIgnore string
	schema       []string
}

var mysqlDialect = dialect{
	driverName:   "mysql",
	insertIgnore: "INSERT IGNORE INTO",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			round_key VARCHAR(64) UNIQUE NOT NULL COMMENT '外部轮次ID',
			drawn_numbers VARCHAR(128) NOT NULL COMMENT '开奖号码',
			played_at BIGINT NOT NULL COMMENT '开奖时间(ms)',
			created_at BIGINT NOT NULL COMMENT '记录时间(ms)',
			INDEX idx_played_at (played_at),
			INDEX idx_created_at (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='开奖轮次表'`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			target_round VARCHAR(64) NOT NULL COMMENT '目标轮次',
			method VARCHAR(32) NOT NULL COMMENT '生成方法',
			numbers VARCHAR(128) NOT NULL COMMENT '预测号码',
			hits INT DEFAULT NULL COMMENT '命中数',
			accuracy DOUBLE DEFAULT NULL COMMENT '命中率',
			predicted_at BIGINT NOT NULL COMMENT '预测时间(ms)',
			verified_at BIGINT DEFAULT NULL COMMENT '验证时间(ms)',
			INDEX idx_target_round (target_round),
			INDEX idx_method (method),
			INDEX idx_predicted_at (predicted_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='预测记录表'`,
	},
}

var sqliteDialect = dialect{
	driverName:   "sqlite",
	insertIgnore: "INSERT OR IGNORE INTO",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			round_key     TEXT UNIQUE NOT NULL,
			drawn_numbers TEXT NOT NULL,
			played_at     INTEGER NOT NULL,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_created ON rounds(created_at)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			target_round TEXT NOT NULL,
			method       TEXT NOT NULL,
			numbers      TEXT NOT NULL,
			hits         INTEGER,
			accuracy     REAL,
			predicted_at INTEGER NOT NULL,
			verified_at  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_target ON predictions(target_round)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_method ON predictions(method)`,
	},
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "mysql":
		return mysqlDialect, nil
	case "sqlite", "":
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
