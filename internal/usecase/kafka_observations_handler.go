package usecase

import (
	"context"
	"encoding/json"
	"time"

	drepo "RWAPrice/internal/domain/repository"
	pkgkafka "RWAPrice/pkg/kafka"
	xutil "RWAPrice/pkg/util"
)

// KafkaObservationsHandler consumes observation messages and appends them to
// the knowledge base.
type KafkaObservationsHandler struct {
	topic   string
	pricer  *Pricer
	metrics drepo.Metrics
}

func NewKafkaObservationsHandler(topic string, pricer *Pricer, metrics drepo.Metrics) *KafkaObservationsHandler {
	return &KafkaObservationsHandler{topic: topic, pricer: pricer, metrics: metrics}
}

func (h *KafkaObservationsHandler) Topic() string { return h.topic }

// incoming message schema: {source_name, data, timestamp}
func (h *KafkaObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		SourceName string      `json:"source_name"`
		Data       interface{} `json:"data"`
		Timestamp  string      `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordIngest("invalid")
		return err
	}

	ts := xutil.ParseTimeDefault(m.Timestamp, time.Now().UTC())
	h.metrics.RecordLatency("observe_e2e", time.Since(ts).Seconds())

	start := time.Now()
	err := h.pricer.IngestObservation(ctx, m.SourceName, m.Data, ts)
	h.metrics.RecordLatency("knowledge_ingest", time.Since(start).Seconds())
	return err
}

var _ pkgkafka.MessageHandler = (*KafkaObservationsHandler)(nil)
