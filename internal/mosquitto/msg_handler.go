package mosquitto

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"lps/internal/position"
	s "lps/internal/storage"
)

// RangeMsg is one range report published by a probe. Distance wins over
// AvgRssi when both are present.
type RangeMsg struct {
	Anchor   string   `json:"anchor"`
	Distance *float64 `json:"distance,omitempty"`
	AvgRssi  *float64 `json:"avg_rssi,omitempty"`
	TxPower  *float64 `json:"tx_power,omitempty"`
}

// PathLoss is the log-distance path loss model used to turn RSSI into range.
type PathLoss struct {
	TxPower  float64 // RSSI at 1 m, dBm
	Exponent float64
}

// DefaultPathLoss matches indoor BLE beacons.
var DefaultPathLoss = PathLoss{TxPower: -43.40, Exponent: 2.4}

// Distance converts an RSSI reading into metres.
func (p PathLoss) Distance(txPower, rssi float64) float64 {
	return math.Pow(10, (txPower-rssi)/(10*p.Exponent))
}

// Metrics counts received range reports by anchor and result.
type Metrics interface {
	ObserveRange(anchor, result string)
}

type MqqtMsgHandler struct {
	storage  *s.Storage
	anchors  map[string]bool
	pathLoss PathLoss
	metrics  Metrics
	log      *slog.Logger
}

// NewHandler builds a handler accepting ranges for the given anchor IDs only.
func NewHandler(storage *s.Storage, anchorIDs []string, pathLoss PathLoss, metrics Metrics, log *slog.Logger) *MqqtMsgHandler {
	anchors := make(map[string]bool, len(anchorIDs))
	for _, id := range anchorIDs {
		anchors[id] = true
	}
	if pathLoss.Exponent == 0 {
		pathLoss = DefaultPathLoss
	}
	return &MqqtMsgHandler{storage: storage, anchors: anchors, pathLoss: pathLoss, metrics: metrics, log: log}
}

func (h *MqqtMsgHandler) HandleMsg(msg []byte) error {
	var rangeMsg RangeMsg
	if err := json.Unmarshal(msg, &rangeMsg); err != nil {
		h.observe("unknown", "malformed")
		h.log.Error("failed to parse MQTT message", "err", err)
		return err
	}

	if !h.anchors[rangeMsg.Anchor] {
		h.observe("unknown", "ignored")
		h.log.Warn("range for unknown anchor ignored", "anchor", rangeMsg.Anchor)
		return nil
	}

	var rssi, distance float64
	switch {
	case rangeMsg.Distance != nil:
		distance = *rangeMsg.Distance
	case rangeMsg.AvgRssi != nil:
		rssi = *rangeMsg.AvgRssi
		txPower := h.pathLoss.TxPower
		if rangeMsg.TxPower != nil {
			txPower = *rangeMsg.TxPower
		}
		distance = h.pathLoss.Distance(txPower, rssi)
	default:
		h.observe(rangeMsg.Anchor, "malformed")
		return fmt.Errorf("range message for %q carries neither distance nor avg_rssi", rangeMsg.Anchor)
	}

	if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		h.observe(rangeMsg.Anchor, "rejected")
		return fmt.Errorf("%w: anchor %q reported %v", position.ErrInvalidMeasurement, rangeMsg.Anchor, distance)
	}

	h.storage.Set(rangeMsg.Anchor, rssi, distance)
	h.observe(rangeMsg.Anchor, "stored")
	h.log.Debug("stored range",
		"anchor", rangeMsg.Anchor,
		"rssi", rssi,
		"distance", distance,
	)

	return nil
}

func (h *MqqtMsgHandler) observe(anchor, result string) {
	if h.metrics != nil {
		h.metrics.ObserveRange(anchor, result)
	}
}
