package output

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/chrisdamba/ridetopo/internal/models"
)

// PointMessage is the Kafka payload announcing a completed point.
type PointMessage struct {
	RunID    string              `json:"runId"`
	Topology string              `json:"topology"`
	Kind     string              `json:"kind"`
	LAvg     float64             `json:"lAvg"`
	Summary  models.PointSummary `json:"summary"`
}

type KafkaOutput struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaOutput(config *models.Config) (*KafkaOutput, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // Must be true for SyncProducer
	saramaConfig.Net.DialTimeout = 30 * time.Second
	saramaConfig.Net.ReadTimeout = 30 * time.Second
	saramaConfig.Net.WriteTimeout = 30 * time.Second

	brokerList := strings.Split(config.KafkaBrokerList, ",")

	producer, err := sarama.NewSyncProducer(brokerList, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}

	log.Infof("Sarama producer created successfully with brokers %v", brokerList)
	return NewKafkaOutputWithProducer(producer, config.KafkaTopic), nil
}

func NewKafkaOutputWithProducer(producer sarama.SyncProducer, topic string) *KafkaOutput {
	return &KafkaOutput{producer: producer, topic: topic}
}

func (k *KafkaOutput) WritePoint(_ context.Context, p *models.PointResult) error {
	if k.producer == nil {
		return fmt.Errorf("Kafka producer is closed")
	}
	msg, err := json.Marshal(PointMessage{
		RunID:    p.RunID,
		Topology: p.Topology,
		Kind:     p.Kind,
		LAvg:     p.LAvg,
		Summary:  p.Summary,
	})
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%s/%d", p.Topology, p.Summary.Index)),
		Value: sarama.ByteEncoder(msg),
	})
	if err != nil {
		log.Errorf("Failed to send message to topic %s: %v", k.topic, err)
		return err
	}
	return nil
}

func (k *KafkaOutput) Close() error {
	if k.producer != nil {
		err := k.producer.Close()
		k.producer = nil
		return err
	}
	return nil
}
