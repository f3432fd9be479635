package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dbehnke/convcode/pkg/logger"
)

// Config holds job-event publisher configuration.
type Config struct {
	Enabled     bool
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

// Publisher handles job-lifecycle event publishing.
type Publisher struct {
	config Config
	log    *logger.Logger
}

// JobSubmittedEvent marks a job entering the run queue.
type JobSubmittedEvent struct {
	JobID     uint      `json:"job_id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// JobCompletedEvent marks a job finishing, successfully or not.
type JobCompletedEvent struct {
	JobID     uint      `json:"job_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	NumErrs   uint64    `json:"num_errs,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a new job-event publisher.
func New(config Config, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &Publisher{
		config: config,
		log:    log.WithComponent("events"),
	}
}

// Start starts the publisher.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.log.Info("Job event publisher disabled")
		return nil
	}

	p.log.Info("Starting job event publisher",
		logger.String("broker", p.config.Broker),
		logger.String("client_id", p.config.ClientID))

	// TODO: wire an actual MQTT connection once a broker is available to
	// integration-test against. Until then this is a logging stub: every
	// publish call still runs through serialization and topic formatting
	// so callers can be written and tested against the real interface.
	p.log.Warn("broker connection not yet implemented - events will not be published")

	return nil
}

// Stop stops the publisher.
func (p *Publisher) Stop() {
	if !p.config.Enabled {
		return
	}
	p.log.Info("Stopping job event publisher")
}

// PublishJobSubmitted publishes a job-submitted event.
func (p *Publisher) PublishJobSubmitted(event JobSubmittedEvent) error {
	if !p.config.Enabled {
		return nil
	}
	return p.publish(p.formatTopic("jobs/submitted"), event)
}

// PublishJobCompleted publishes a job-completed event.
func (p *Publisher) PublishJobCompleted(event JobCompletedEvent) error {
	if !p.config.Enabled {
		return nil
	}
	return p.publish(p.formatTopic("jobs/completed"), event)
}

func (p *Publisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.Error("Failed to serialize event",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}

	p.log.Debug("Would publish job event",
		logger.String("topic", topic),
		logger.Int("payload_size", len(payload)))

	return nil
}

func (p *Publisher) formatTopic(suffix string) string {
	prefix := strings.TrimSuffix(p.config.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return fmt.Sprintf("%s/%s", prefix, suffix)
}
