package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// TrafficRecord represents one flow sample as stored in the
// `traffic_with_anomalies` table. A row is written once by the ingestion
// endpoint and never updated. The json tags mirror the column names so the
// raw-row endpoints (recent window, by id, latest snapshot) expose rows the
// same way the store names them.
//
// AnomalyAE and AnomalyLSTM are nullable: an absent autoencoder score means
// "not scored", which is distinct from "scored zero". The consensus score is
// always present.
type TrafficRecord struct {
	ID               uint64    `json:"id"`
	UserID           int64     `json:"user_id"`
	IP               string    `json:"ip"`
	Timestamp        time.Time `json:"timestamp"`
	ByteRate         float64   `json:"fl_byt_s"`
	PacketRate       float64   `json:"fl_pck_s"`
	PacketCount      int64     `json:"packet_count"`
	FwdMaxPackSize   float64   `json:"fwd_max_pack_size"`
	FwdAvgPacket     float64   `json:"fwd_avg_packet"`
	BckMaxPackSize   float64   `json:"bck_max_pack_size"`
	BckAvgPacket     float64   `json:"bck_avg_packet"`
	FwIATStd         float64   `json:"fw_iat_std"`
	FwIATMin         float64   `json:"fw_iat_min"`
	BckIATStd        float64   `json:"bck_iat_std"`
	BckIATMin        float64   `json:"bck_iat_min"`
	AnomalyAE        *float64  `json:"anomaly_ae"`
	AnomalyLSTM      *float64  `json:"anomaly_lstm"`
	AnomalyConsensus float64   `json:"anomaly_consensus"`
}

// LooseNumber is a float64 that tolerates sloppy upstream encodings: JSON
// numbers, numeric strings, null and garbage all decode without error, with
// anything non-numeric collapsing to 0. The upstream agent is not under our
// control, and a single bad field must not reject a whole record.
type LooseNumber float64

func (n *LooseNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = LooseNumber(f)
	return nil
}

// Candidate is one inbound item of an ingestion batch, before validation.
// Mandatory fields use pointers so "absent" is distinguishable from a zero
// value; optional numerics use LooseNumber and default to 0.
type Candidate struct {
	UserID           *int64      `json:"user_id"`
	IP               string      `json:"ip"`
	Timestamp        string      `json:"timestamp"`
	ByteRate         *float64    `json:"fl_byt_s"`
	PacketRate       *float64    `json:"fl_pck_s"`
	PacketCount      LooseNumber `json:"packet_count"`
	FwdMaxPackSize   LooseNumber `json:"fwd_max_pack_size"`
	FwdAvgPacket     LooseNumber `json:"fwd_avg_packet"`
	BckMaxPackSize   LooseNumber `json:"bck_max_pack_size"`
	BckAvgPacket     LooseNumber `json:"bck_avg_packet"`
	FwIATStd         LooseNumber `json:"fw_iat_std"`
	FwIATMin         LooseNumber `json:"fw_iat_min"`
	BckIATStd        LooseNumber `json:"bck_iat_std"`
	BckIATMin        LooseNumber `json:"bck_iat_min"`
	AnomalyAE        *float64    `json:"anomaly_ae"`
	AnomalyLSTM      *float64    `json:"anomaly_lstm"`
	AnomalyConsensus *float64    `json:"anomaly_consensus"`
}

// timestampLayouts covers the formats the reporting agent has been observed to
// emit (numpy datetime64 strings, ISO-8601 with and without zone).
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an agent-supplied timestamp string. The second return
// value is false when no known layout matches.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Validate checks the mandatory fields of a candidate and coerces it into a
// TrafficRecord ready for insertion. On failure it returns a non-empty reason
// and the caller is expected to skip the record, not abort the batch.
func (c Candidate) Validate() (TrafficRecord, string) {
	if c.UserID == nil {
		return TrafficRecord{}, "missing user_id"
	}
	if c.IP == "" {
		return TrafficRecord{}, "missing ip"
	}
	ts, ok := ParseTimestamp(c.Timestamp)
	if !ok {
		return TrafficRecord{}, "missing or malformed timestamp"
	}
	if c.ByteRate == nil {
		return TrafficRecord{}, "missing fl_byt_s"
	}
	if c.PacketRate == nil {
		return TrafficRecord{}, "missing fl_pck_s"
	}

	rec := TrafficRecord{
		UserID:         *c.UserID,
		IP:             c.IP,
		Timestamp:      ts,
		ByteRate:       *c.ByteRate,
		PacketRate:     *c.PacketRate,
		PacketCount:    int64(c.PacketCount),
		FwdMaxPackSize: float64(c.FwdMaxPackSize),
		FwdAvgPacket:   float64(c.FwdAvgPacket),
		BckMaxPackSize: float64(c.BckMaxPackSize),
		BckAvgPacket:   float64(c.BckAvgPacket),
		FwIATStd:       float64(c.FwIATStd),
		FwIATMin:       float64(c.FwIATMin),
		BckIATStd:      float64(c.BckIATStd),
		BckIATMin:      float64(c.BckIATMin),
		AnomalyAE:      c.AnomalyAE, // null means "not scored"
	}
	if c.AnomalyLSTM != nil {
		rec.AnomalyLSTM = c.AnomalyLSTM
	} else {
		zero := 0.0
		rec.AnomalyLSTM = &zero
	}
	if c.AnomalyConsensus != nil {
		rec.AnomalyConsensus = *c.AnomalyConsensus
	}
	return rec, ""
}

// DecodeCandidate unmarshals a single raw batch item. Kept separate so that a
// malformed item can be skipped without failing the rest of the batch.
func DecodeCandidate(raw json.RawMessage) (Candidate, error) {
	var c Candidate
	err := json.Unmarshal(raw, &c)
	return c, err
}

// ----- nested response shape -----

// The dashboard renders flow samples as a nested object rather than flat
// columns. Null scores become 0 in this shape, except the LSTM score which
// passes through as null so the chart can show a gap instead of a zero line.

type SizeStats struct {
	MaxPacketSize float64 `json:"maxPacketSize"`
	AvgPacketSize float64 `json:"avgPacketSize"`
}

type IATStats struct {
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
}

type InterArrival struct {
	Forward  IATStats `json:"forward"`
	Backward IATStats `json:"backward"`
}

type NetworkMetrics struct {
	ByteRate         float64      `json:"byteRate"`
	PacketRate       float64      `json:"packetRate"`
	PacketCount      int64        `json:"packetCount"`
	Forward          SizeStats    `json:"forward"`
	Backward         SizeStats    `json:"backward"`
	InterArrivalTime InterArrival `json:"interArrivalTime"`
}

type AnomalyScores struct {
	Autoencoder float64  `json:"autoencoder"`
	LSTM        *float64 `json:"lstm"`
	Consensus   float64  `json:"consensus"`
}

type TrafficView struct {
	ID             uint64         `json:"id"`
	UserID         int64          `json:"user_id"`
	IP             string         `json:"ip"`
	Timestamp      string         `json:"timestamp"`
	NetworkMetrics NetworkMetrics `json:"networkMetrics"`
	Anomalies      AnomalyScores  `json:"anomalies"`
}

// View reshapes a flat record into the nested dashboard shape.
func (r TrafficRecord) View() TrafficView {
	var ae float64
	if r.AnomalyAE != nil {
		ae = *r.AnomalyAE
	}
	return TrafficView{
		ID:        r.ID,
		UserID:    r.UserID,
		IP:        r.IP,
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		NetworkMetrics: NetworkMetrics{
			ByteRate:    r.ByteRate,
			PacketRate:  r.PacketRate,
			PacketCount: r.PacketCount,
			Forward: SizeStats{
				MaxPacketSize: r.FwdMaxPackSize,
				AvgPacketSize: r.FwdAvgPacket,
			},
			Backward: SizeStats{
				MaxPacketSize: r.BckMaxPackSize,
				AvgPacketSize: r.BckAvgPacket,
			},
			InterArrivalTime: InterArrival{
				Forward:  IATStats{StdDev: r.FwIATStd, Min: r.FwIATMin},
				Backward: IATStats{StdDev: r.BckIATStd, Min: r.BckIATMin},
			},
		},
		Anomalies: AnomalyScores{
			Autoencoder: ae,
			LSTM:        r.AnomalyLSTM,
			Consensus:   r.AnomalyConsensus,
		},
	}
}

// Views reshapes a slice of records, preserving order.
func Views(recs []TrafficRecord) []TrafficView {
	out := make([]TrafficView, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.View())
	}
	return out
}
