// Package messaging publishes completed analytics results to an AMQP
// broker for downstream consumers.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"gutpulse-engine/pkg/metrics"
	"gutpulse-engine/pkg/scoring"
	"gutpulse-engine/pkg/version"
)

// AnalyticsMessage is the payload published after a session analysis.
type AnalyticsMessage struct {
	SessionID string                       `json:"session_id"`
	PatientID string                       `json:"patient_id,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
	Analytics scoring.SessionAnalytics     `json:"analytics"`
	Vagal     *scoring.VagalReadinessScore `json:"vagal_readiness,omitempty"`
	OnBody    bool                         `json:"on_body"`
}

// AMQPConfig holds AMQP client configuration
type AMQPConfig struct {
	URL       string
	QueueName string
}

// AMQPClient handles the AMQP connection and message publishing
type AMQPClient struct {
	logger    *logrus.Logger
	config    AMQPConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
}

// NewAMQPClient creates a new AMQP client
func NewAMQPClient(logger *logrus.Logger, config AMQPConfig) *AMQPClient {
	return &AMQPClient{
		logger: logger,
		config: config,
	}
}

// Connect establishes the connection and declares the durable queue.
func (c *AMQPClient) Connect() error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.connected {
		return nil
	}
	if c.config.URL == "" || c.config.QueueName == "" {
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	conn, err := amqp.Dial(c.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		c.config.QueueName,
		true,  // Durable
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	c.conn = conn
	c.channel = channel
	c.connected = true

	c.logger.WithField("queue", c.config.QueueName).Info("Connected to AMQP server")
	return nil
}

// PublishAnalytics sends one analytics message to the queue,
// reconnecting first if the connection dropped.
func (c *AMQPClient) PublishAnalytics(msg AnalyticsMessage) error {
	c.connMutex.RLock()
	connected := c.connected && c.conn != nil && !c.conn.IsClosed()
	c.connMutex.RUnlock()

	if !connected {
		c.connMutex.Lock()
		c.connected = false
		c.connMutex.Unlock()
		if err := c.Connect(); err != nil {
			return err
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode analytics message: %w", err)
	}

	c.connMutex.RLock()
	defer c.connMutex.RUnlock()

	err = c.channel.Publish(
		"",                 // Exchange
		c.config.QueueName, // Routing key
		false,              // Mandatory
		false,              // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    msg.Timestamp,
			AppId:        version.UserAgent(),
			Body:         body,
		},
	)
	if err != nil {
		c.logger.WithError(err).WithField("session_id", msg.SessionID).Error("Failed to publish analytics")
		return fmt.Errorf("failed to publish analytics: %w", err)
	}

	metrics.ResultPublished()
	c.logger.WithFields(logrus.Fields{
		"session_id": msg.SessionID,
		"queue":      c.config.QueueName,
	}).Debug("Analytics published")
	return nil
}

// Close shuts down the channel and connection.
func (c *AMQPClient) Close() {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
}
