package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jok6r1/src-diplom/internal/logger"
	"github.com/jok6r1/src-diplom/internal/model"
)

// TrafficRepo provides persistence for flow samples in the
// `traffic_with_anomalies` table. Rows are written once by InsertBatch and
// never updated or deleted.
type TrafficRepo struct{ DB *sql.DB }

func NewTrafficRepo(db *sql.DB) *TrafficRepo { return &TrafficRepo{DB: db} }

// TimeFilter selects a time window for per-user queries. It is resolved once
// at the HTTP boundary instead of threading raw query strings through the
// stack.
type TimeFilter struct {
	Kind TimeFilterKind
	At   time.Time
}

type TimeFilterKind int

const (
	// TimeFilterNone applies the default window of the last 60 minutes.
	TimeFilterNone TimeFilterKind = iota
	// TimeFilterAfter matches rows strictly after At.
	TimeFilterAfter
	// TimeFilterAtOrAfter matches rows at or after At.
	TimeFilterAtOrAfter
)

// SkipReason records why one candidate of a batch was not stored.
type SkipReason struct {
	Index  int
	IP     string
	Reason string
}

// BatchResult is the internal outcome of an ingestion batch. The wire
// response collapses it to success-or-failure, but the skip reasons are kept
// here (and logged) so callers inside the process retain visibility.
type BatchResult struct {
	Inserted int
	Skipped  []SkipReason
	Stored   []model.TrafficRecord
}

const trafficColumns = `id, user_id, ip, timestamp, fl_byt_s, fl_pck_s, packet_count,
fwd_max_pack_size, fwd_avg_packet, bck_max_pack_size, bck_avg_packet,
fw_iat_std, fw_iat_min, bck_iat_std, bck_iat_min,
anomaly_ae, anomaly_lstm, anomaly_consensus`

const insertTraffic = `INSERT INTO traffic_with_anomalies (
user_id, ip, timestamp, fl_byt_s, fl_pck_s, packet_count,
fwd_max_pack_size, fwd_avg_packet, bck_max_pack_size, bck_avg_packet,
fw_iat_std, fw_iat_min, bck_iat_std, bck_iat_min,
anomaly_ae, anomaly_lstm, anomaly_consensus
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

// InsertBatch stores a batch of candidates inside one transaction. Each item
// is validated and inserted independently: a missing mandatory field or a
// per-row insert error is logged and skipped without aborting the batch.
// Only a failure of the transaction itself (begin or commit) discards the
// whole batch. This best-effort policy is deliberate; partial success is
// normal and silent to the caller.
func (r *TrafficRepo) InsertBatch(ctx context.Context, candidates []model.Candidate) (BatchResult, error) {
	var res BatchResult

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}

	for i, c := range candidates {
		rec, reason := c.Validate()
		if reason != "" {
			logger.Log.Warnw("skipping record", "index", i, "ip", c.IP, "reason", reason)
			res.Skipped = append(res.Skipped, SkipReason{Index: i, IP: c.IP, Reason: reason})
			continue
		}
		out, err := tx.ExecContext(ctx, insertTraffic,
			rec.UserID, rec.IP, rec.Timestamp,
			rec.ByteRate, rec.PacketRate, rec.PacketCount,
			rec.FwdMaxPackSize, rec.FwdAvgPacket, rec.BckMaxPackSize, rec.BckAvgPacket,
			rec.FwIATStd, rec.FwIATMin, rec.BckIATStd, rec.BckIATMin,
			nullableFloat(rec.AnomalyAE), nullableFloat(rec.AnomalyLSTM), rec.AnomalyConsensus,
		)
		if err != nil {
			logger.Log.Errorw("insert failed, skipping record", "index", i, "ip", rec.IP, "error", err)
			res.Skipped = append(res.Skipped, SkipReason{Index: i, IP: rec.IP, Reason: err.Error()})
			continue
		}
		if id, err := out.LastInsertId(); err == nil {
			rec.ID = uint64(id)
		}
		res.Inserted++
		res.Stored = append(res.Stored, rec)
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return BatchResult{}, err
	}
	return res, nil
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

// ByUser returns a user's flow samples newest-first. With TimeFilterNone the
// window defaults to the last 60 minutes.
func (r *TrafficRepo) ByUser(ctx context.Context, userID int64, f TimeFilter) ([]model.TrafficRecord, error) {
	query := "SELECT " + trafficColumns + " FROM traffic_with_anomalies WHERE user_id = ?"
	args := []interface{}{userID}
	switch f.Kind {
	case TimeFilterAfter:
		query += " AND timestamp > ?"
		args = append(args, f.At)
	case TimeFilterAtOrAfter:
		query += " AND timestamp >= ?"
		args = append(args, f.At)
	default:
		query += " AND timestamp >= NOW() - INTERVAL 60 MINUTE"
	}
	query += " ORDER BY timestamp DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByIP returns all flow samples for an IP, newest-first, with no time filter.
func (r *TrafficRepo) ByIP(ctx context.Context, ip string) ([]model.TrafficRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+trafficColumns+" FROM traffic_with_anomalies WHERE ip = ? ORDER BY timestamp DESC", ip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ByID returns a single flow sample or ErrNotFound.
func (r *TrafficRepo) ByID(ctx context.Context, id uint64) (model.TrafficRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+trafficColumns+" FROM traffic_with_anomalies WHERE id = ?", id)
	if err != nil {
		return model.TrafficRecord{}, err
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return model.TrafficRecord{}, err
	}
	if len(recs) == 0 {
		return model.TrafficRecord{}, ErrNotFound
	}
	return recs[0], nil
}

// Recent returns flow samples from the last `minutes` minutes, optionally
// restricted to one IP, newest-first. The interval is a bound parameter, not
// interpolated into the statement.
func (r *TrafficRepo) Recent(ctx context.Context, minutes int, ip string) ([]model.TrafficRecord, error) {
	query := "SELECT " + trafficColumns + " FROM traffic_with_anomalies WHERE timestamp >= NOW() - INTERVAL ? MINUTE"
	args := []interface{}{minutes}
	if ip != "" {
		query += " AND ip = ?"
		args = append(args, ip)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecentSeconds returns flow samples from the last `seconds` seconds,
// newest-first. Backs the live "who's active" view.
func (r *TrafficRepo) RecentSeconds(ctx context.Context, seconds int) ([]model.TrafficRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+trafficColumns+" FROM traffic_with_anomalies WHERE timestamp >= NOW() - INTERVAL ? SECOND ORDER BY timestamp DESC",
		seconds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Latest returns every row sharing the single maximum timestamp in the table.
// An empty table yields an empty slice, not an error.
func (r *TrafficRepo) Latest(ctx context.Context) ([]model.TrafficRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+trafficColumns+" FROM traffic_with_anomalies WHERE timestamp = (SELECT MAX(timestamp) FROM traffic_with_anomalies)")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// scanRecords maps rows onto TrafficRecord, tolerating NULLs in every numeric
// column. NULL collapses to 0 except the autoencoder and LSTM scores, which
// keep their null-ness.
func scanRecords(rows *sql.Rows) ([]model.TrafficRecord, error) {
	out := make([]model.TrafficRecord, 0)
	for rows.Next() {
		var (
			rec        model.TrafficRecord
			byteRate   sql.NullFloat64
			packetRate sql.NullFloat64
			pktCount   sql.NullInt64
			fwdMax     sql.NullFloat64
			fwdAvg     sql.NullFloat64
			bckMax     sql.NullFloat64
			bckAvg     sql.NullFloat64
			fwStd      sql.NullFloat64
			fwMin      sql.NullFloat64
			bckStd     sql.NullFloat64
			bckMin     sql.NullFloat64
			ae         sql.NullFloat64
			lstm       sql.NullFloat64
			consensus  sql.NullFloat64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.IP, &rec.Timestamp,
			&byteRate, &packetRate, &pktCount,
			&fwdMax, &fwdAvg, &bckMax, &bckAvg,
			&fwStd, &fwMin, &bckStd, &bckMin,
			&ae, &lstm, &consensus); err != nil {
			return nil, err
		}
		rec.ByteRate = byteRate.Float64
		rec.PacketRate = packetRate.Float64
		rec.PacketCount = pktCount.Int64
		rec.FwdMaxPackSize = fwdMax.Float64
		rec.FwdAvgPacket = fwdAvg.Float64
		rec.BckMaxPackSize = bckMax.Float64
		rec.BckAvgPacket = bckAvg.Float64
		rec.FwIATStd = fwStd.Float64
		rec.FwIATMin = fwMin.Float64
		rec.BckIATStd = bckStd.Float64
		rec.BckIATMin = bckMin.Float64
		if ae.Valid {
			v := ae.Float64
			rec.AnomalyAE = &v
		}
		if lstm.Valid {
			v := lstm.Float64
			rec.AnomalyLSTM = &v
		}
		rec.AnomalyConsensus = consensus.Float64
		out = append(out, rec)
	}
	return out, rows.Err()
}
