package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"keno-bot/internal/config"
	"keno-bot/internal/logger"
)

// Store 轮次与预测记录存储（MySQL或SQLite）
type Store struct {
	db      *sql.DB
	dialect dialect
}

// NewStore 创建新的数据库连接并自动建表
func NewStore(cfg *config.Database) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if d.driverName == "sqlite" {
		// 单连接：SQLite只允许一个写者，且:memory:库随连接存在
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, dialect: d}
	if err := store.createTablesIfNotExists(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Infof("Database opened (driver=%s)", d.driverName)
	return store, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTablesIfNotExists() error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

// SaveRound 保存轮次，已存在时忽略；返回是否新插入
func (s *Store) SaveRound(round *Round) (bool, error) {
	if round.RoundKey == "" {
		return false, fmt.Errorf("round key is required")
	}
	if round.PlayedAt.IsZero() {
		round.PlayedAt = time.Now()
	}
	now := time.Now()

	query := s.dialect.insertIgnore + ` rounds (round_key, drawn_numbers, played_at, created_at) VALUES (?, ?, ?, ?)`
	result, err := s.db.Exec(query, round.RoundKey, FormatNumbers(round.DrawnNumbers),
		round.PlayedAt.UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to save round: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		round.ID = id
	}
	round.CreatedAt = now
	logger.Debugf("Saved round: %s", round.RoundKey)
	return true, nil
}

// HasRound 检查轮次是否已存在
func (s *Store) HasRound(roundKey string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM rounds WHERE round_key = ?", roundKey).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check round: %w", err)
	}
	return count > 0, nil
}

// CountRounds 轮次总数
func (s *Store) CountRounds() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rounds").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rounds: %w", err)
	}
	return count, nil
}

// GetRecentRounds 获取最近limit轮，按时间先后（最旧在前）返回
func (s *Store) GetRecentRounds(limit int) ([]Round, error) {
	query := `SELECT id, round_key, drawn_numbers, played_at, created_at
			  FROM rounds
			  ORDER BY played_at DESC, id DESC
			  LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent rounds: %w", err)
	}
	defer rows.Close()

	var rounds []Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, *round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading round rows: %w", err)
	}

	for i, j := 0, len(rounds)-1; i < j; i, j = i+1, j-1 {
		rounds[i], rounds[j] = rounds[j], rounds[i]
	}
	return rounds, nil
}

// GetRoundByKey 根据轮次ID获取轮次
func (s *Store) GetRoundByKey(roundKey string) (*Round, error) {
	row := s.db.QueryRow(`SELECT id, round_key, drawn_numbers, played_at, created_at
			  FROM rounds WHERE round_key = ?`, roundKey)

	round, err := scanRound(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, err
	}
	return round, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRound(row rowScanner) (*Round, error) {
	var (
		round     Round
		drawn     string
		playedAt  int64
		createdAt int64
	)
	if err := row.Scan(&round.ID, &round.RoundKey, &drawn, &playedAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan round: %w", err)
	}

	nums, err := ParseNumbers(drawn)
	if err != nil {
		return nil, fmt.Errorf("invalid drawn numbers for round %s: %w", round.RoundKey, err)
	}
	round.DrawnNumbers = nums
	round.PlayedAt = time.UnixMilli(playedAt)
	round.CreatedAt = time.UnixMilli(createdAt)
	return &round, nil
}

// SavePrediction 保存预测记录
func (s *Store) SavePrediction(prediction *Prediction) error {
	if prediction.PredictedAt.IsZero() {
		prediction.PredictedAt = time.Now()
	}

	result, err := s.db.Exec(`INSERT INTO predictions (target_round, method, numbers, predicted_at) VALUES (?, ?, ?, ?)`,
		prediction.TargetRound, prediction.Method, FormatNumbers(prediction.Numbers), prediction.PredictedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	prediction.ID = id
	logger.Debugf("Saved %s prediction for round: %s", prediction.Method, prediction.TargetRound)
	return nil
}

// VerifyPrediction 写入预测验证结果
func (s *Store) VerifyPrediction(id int64, hits int, accuracy float64) error {
	_, err := s.db.Exec(`UPDATE predictions SET hits = ?, accuracy = ?, verified_at = ? WHERE id = ?`,
		hits, accuracy, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to verify prediction: %w", err)
	}
	return nil
}

const predictionColumns = `id, target_round, method, numbers, hits, accuracy, predicted_at, verified_at`

// GetUnverifiedPredictions 获取目标轮次尚未验证的预测
func (s *Store) GetUnverifiedPredictions(targetRound string) ([]Prediction, error) {
	return s.queryPredictions(`SELECT `+predictionColumns+` FROM predictions
			  WHERE target_round = ? AND hits IS NULL
			  ORDER BY id`, targetRound)
}

// GetLatestPredictions 获取最新的预测记录（最新在前）
func (s *Store) GetLatestPredictions(limit int) ([]Prediction, error) {
	return s.queryPredictions(`SELECT `+predictionColumns+` FROM predictions
			  ORDER BY predicted_at DESC, id DESC
			  LIMIT ?`, limit)
}

func (s *Store) queryPredictions(query string, args ...interface{}) ([]Prediction, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []Prediction
	for rows.Next() {
		var (
			p           Prediction
			numbers     string
			hits        sql.NullInt64
			accuracy    sql.NullFloat64
			predictedAt int64
			verifiedAt  sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.TargetRound, &p.Method, &numbers, &hits, &accuracy, &predictedAt, &verifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		if p.Numbers, err = ParseNumbers(numbers); err != nil {
			return nil, fmt.Errorf("invalid numbers for prediction %d: %w", p.ID, err)
		}
		if hits.Valid {
			h := int(hits.Int64)
			p.Hits = &h
		}
		if accuracy.Valid {
			a := accuracy.Float64
			p.Accuracy = &a
		}
		p.PredictedAt = time.UnixMilli(predictedAt)
		if verifiedAt.Valid {
			v := time.UnixMilli(verifiedAt.Int64)
			p.VerifiedAt = &v
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading prediction rows: %w", err)
	}
	return predictions, nil
}

// GetMethodStats 按生成方法统计已验证的预测
func (s *Store) GetMethodStats() ([]MethodStats, error) {
	rows, err := s.db.Query(`SELECT method, COUNT(*), AVG(accuracy), MAX(hits)
			  FROM predictions
			  WHERE hits IS NOT NULL
			  GROUP BY method
			  ORDER BY method`)
	if err != nil {
		return nil, fmt.Errorf("failed to query method stats: %w", err)
	}
	defer rows.Close()

	var stats []MethodStats
	for rows.Next() {
		var st MethodStats
		if err := rows.Scan(&st.Method, &st.TotalVerified, &st.AverageAccuracy, &st.BestHits); err != nil {
			return nil, fmt.Errorf("failed to scan method stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// CleanOldData 清理超过保留期的数据
func (s *Store) CleanOldData(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()

	res, err := s.db.Exec("DELETE FROM rounds WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean rounds: %w", err)
	}
	removed, _ := res.RowsAffected()

	res, err = s.db.Exec("DELETE FROM predictions WHERE predicted_at < ?", cutoff)
	if err != nil {
		return removed, fmt.Errorf("failed to clean predictions: %w", err)
	}
	n, _ := res.RowsAffected()
	return removed + n, nil
}
