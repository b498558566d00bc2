package database

import (
	"context"
	"database/sql"

	"github.com/jok6r1/src-diplom/internal/logger"
)

// Idempotent DDL for the three persisted tables. Order matters:
// traffic_with_anomalies references users, so users must exist first.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(50) NOT NULL UNIQUE,
		email VARCHAR(100) NOT NULL UNIQUE,
		password_hash VARCHAR(100) NOT NULL,
		is_active BOOLEAN DEFAULT TRUE,
		role VARCHAR(50) DEFAULT 'user',
		refresh_token TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS traffic_with_anomalies (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id INT,
		ip VARCHAR(45) NOT NULL,
		timestamp DATETIME NOT NULL,
		fl_byt_s DOUBLE,
		fl_pck_s DOUBLE,
		packet_count INT,
		fwd_max_pack_size DOUBLE,
		fwd_avg_packet DOUBLE,
		bck_max_pack_size DOUBLE,
		bck_avg_packet DOUBLE,
		fw_iat_std DOUBLE,
		fw_iat_min DOUBLE,
		bck_iat_std DOUBLE,
		bck_iat_min DOUBLE,
		anomaly_ae DOUBLE,
		anomaly_lstm DOUBLE,
		anomaly_consensus DOUBLE,
		FOREIGN KEY (user_id) REFERENCES users(id),
		INDEX idx_traffic_user (user_id),
		INDEX idx_traffic_ip (ip),
		INDEX idx_traffic_timestamp (timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS h_ip (
		id INT AUTO_INCREMENT PRIMARY KEY,
		ip VARCHAR(45) NOT NULL
	)`,
}

// EnsureSchema runs the idempotent CREATE TABLE statements at process start,
// before any endpoint accepts traffic. Statement errors are logged and skipped
// rather than aborting the process: the tables may already exist in an
// incompatible shape, which is a known operational risk and not silently
// corrected here.
func EnsureSchema(ctx context.Context, db *sql.DB) {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Log.Errorw("schema statement failed", "error", err)
		}
	}
	logger.Log.Info("database schema ensured")
}
