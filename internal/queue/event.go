package queue

// AnomalyDetectedEvent is published when an ingested flow sample carries a
// consensus score at or above the alert threshold. It contains enough
// information for downstream consumers to log or notify without querying the
// primary database.
type AnomalyDetectedEvent struct {
	RecordID    uint64   `json:"record_id"`
	UserID      int64    `json:"user_id"`
	IP          string   `json:"ip"`
	Timestamp   string   `json:"timestamp"`
	ByteRate    float64  `json:"fl_byt_s"`
	PacketRate  float64  `json:"fl_pck_s"`
	Autoencoder *float64 `json:"anomaly_ae"`
	LSTM        *float64 `json:"anomaly_lstm"`
	Consensus   float64  `json:"anomaly_consensus"`
	DetectedAt  string   `json:"detected_at"`
}
