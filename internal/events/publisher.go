package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

// Publisher writes domain events onto Redis streams. It satisfies the
// booking package's EventPublisher interface.
type Publisher struct {
	pub message.Publisher
}

// NewRedisPublisher creates a publisher on top of an existing Redis client.
func NewRedisPublisher(client *redis.Client) (*Publisher, error) {
	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, err
	}
	return &Publisher{pub: pub}, nil
}

// NewPublisher wraps any watermill publisher; used by tests with the
// in-process pub/sub.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) Publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return p.pub.Publish(topic, msg)
}

func (p *Publisher) Close() error {
	return p.pub.Close()
}
