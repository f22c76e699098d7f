package gateway

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"github.com/Shopify/sarama"

	"github.com/gred-clermont/gomero/gomero"
)

var (
	// producer
	kafkaProducer sarama.AsyncProducer

	// the kafka topic for activity logging
	kafkaActivityTopicName string
)

// KafkaMaxMessageSize is the max message size in bytes for a Kafka message.
const KafkaMaxMessageSize = 980 * 1024

// KafkaConfig holds the [kafka] section of the client TOML configuration.
// With no servers configured, activity publishing is disabled.
type KafkaConfig struct {
	Servers       []string `toml:"servers"`
	TopicActivity string   `toml:"topic_activity"`
	BufferSize    int      `toml:"buffer_size"`
}

// KafkaActivityTopic returns the topic name used for publishing activity.
func KafkaActivityTopic() string {
	return kafkaActivityTopicName
}

// Initialize sets up the activity producer.  A no-op when no servers are
// configured.
func (kc KafkaConfig) Initialize(hostID string) error {
	if len(kc.Servers) == 0 {
		return nil
	}
	if kc.TopicActivity != "" {
		kafkaActivityTopicName = kc.TopicActivity
	} else {
		kafkaActivityTopicName = "gomeroactivity-" + hostID
	}
	reg, err := regexp.Compile(`[^a-zA-Z0-9\\._\\-]+`)
	if err != nil {
		return err
	}
	kafkaActivityTopicName = reg.ReplaceAllString(kafkaActivityTopicName, "-")

	config := sarama.NewConfig()
	config.Producer.MaxMessageBytes = KafkaMaxMessageSize
	if kc.BufferSize > 0 {
		config.ChannelBufferSize = kc.BufferSize
	}
	if kafkaProducer, err = sarama.NewAsyncProducer(kc.Servers, config); err != nil {
		return err
	}

	go func() {
		for err := range kafkaProducer.Errors() {
			gomero.Errorf("error on kafka send: %v\n", err)
		}
	}()
	gomero.Infof("Kafka topic for activity: %s\n", kafkaActivityTopicName)
	return nil
}

// KafkaShutdown makes sure that the kafka queue is flushed before stopping.
func KafkaShutdown() {
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			gomero.Errorf("Kafka producer had error on close: %v\n", err)
		} else {
			gomero.Infof("Successfully shut down kafka producer.\n")
		}
	}
}

// LogActivity publishes an activity record.  A no-op unless kafka is
// configured.
func LogActivity(activity map[string]interface{}) {
	if kafkaProducer != nil {
		go func() {
			jsonmsg, err := json.Marshal(activity)
			if err != nil {
				gomero.Errorf("unable to marshal activity for kafka logging: %v\n", err)
				return
			}
			if err := kafkaProduceMsg(jsonmsg, kafkaActivityTopicName); err != nil {
				gomero.Errorf("unable to publish activity: %v\n", err)
			}
		}()
	}
}

// kafkaProduceMsg sends a message to kafka.
func kafkaProduceMsg(value []byte, topicName string) (err error) {
	if kafkaProducer == nil {
		return nil
	}
	timeKey := sarama.StringEncoder(strconv.FormatInt(time.Now().UnixNano(), 10))
	msg := &sarama.ProducerMessage{Topic: topicName, Value: sarama.ByteEncoder(value), Key: timeKey}
	kafkaProducer.Input() <- msg
	return nil
}
