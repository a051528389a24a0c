package capture

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/stufflog/record"
	"github.com/ceyewan/stufflog/xerrors"
)

// publisher 把编码后的事件发往消息系统，done 在发送完成后异步调用
type publisher interface {
	Publish(ctx context.Context, topic string, data []byte, done func(error))
	Flush(timeout time.Duration) bool
	Close() error
}

// codec 事件编码
type codec interface {
	Marshal(v any) ([]byte, error)
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

func newCodec(name string) (codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return jsonCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	default:
		return nil, xerrors.Configf("unsupported capture codec %q", name)
	}
}

// brokerBackend 把事件以 Report 的形式发布到 NATS、Redis Stream 或 Kafka
type brokerBackend struct {
	name  string
	pub   publisher
	topic string
	codec codec
	meta  reportMeta
}

func newBrokerBackend(name string, pub publisher, topic string, cfg *Config, meta reportMeta) (*brokerBackend, error) {
	c, err := newCodec(cfg.optionString("codec"))
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	return &brokerBackend{name: name, pub: pub, topic: topic, codec: c, meta: meta}, nil
}

func (b *brokerBackend) Name() string { return b.name }

func (b *brokerBackend) CaptureMessage(msg string, opts MessageOptions, cb record.Callback) string {
	return b.publish(b.meta.message(msg, opts), cb)
}

func (b *brokerBackend) CaptureException(fault error, opts ExceptionOptions, cb record.Callback) string {
	return b.publish(b.meta.exception(fault, opts), cb)
}

func (b *brokerBackend) publish(rep *Report, cb record.Callback) string {
	data, err := b.codec.Marshal(rep)
	if err != nil {
		notify(cb, xerrors.Serialization(err, "encode report"), "")
		return ""
	}

	b.pub.Publish(context.Background(), b.topic, data, func(err error) {
		if cb == nil {
			return
		}
		if err != nil {
			cb(xerrors.Wrapf(err, "publish to %s", b.name), "")
			return
		}
		cb(nil, rep.EventID)
	})
	return rep.EventID
}

func (b *brokerBackend) Flush(timeout time.Duration) bool { return b.pub.Flush(timeout) }

func (b *brokerBackend) Close() error { return b.pub.Close() }

// topicFromPath 主题优先取 DSN 路径，其次 Options["topic"]
func topicFromPath(u *url.URL, cfg *Config) string {
	if t := strings.Trim(u.Path, "/"); t != "" {
		return t
	}
	return topicFromOptions(cfg)
}

func topicFromOptions(cfg *Config) string {
	if t := cfg.optionString("topic"); t != "" {
		return t
	}
	return DefaultTopic
}

func clientName(cfg *Config) string {
	if n := cfg.optionString("client_id"); n != "" {
		return n
	}
	return "stufflog"
}

// NATS

type natsPublisher struct {
	conn *nats.Conn
}

func dialNATS(u *url.URL, cfg *Config) (*natsPublisher, error) {
	server := (&url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host}).String()
	conn, err := nats.Connect(server, nats.Name(clientName(cfg)))
	if err != nil {
		return nil, xerrors.Wrapf(err, "capture: connect nats %s", u.Host)
	}
	return &natsPublisher{conn: conn}, nil
}

func (p *natsPublisher) Publish(_ context.Context, topic string, data []byte, done func(error)) {
	// Publish 只写入客户端缓冲区，不等待服务端
	err := p.conn.Publish(topic, data)
	go done(err)
}

func (p *natsPublisher) Flush(timeout time.Duration) bool {
	return p.conn.FlushTimeout(timeout) == nil
}

func (p *natsPublisher) Close() error {
	p.conn.Close()
	return nil
}

// Redis Stream

type redisPublisher struct {
	client *redis.Client
	wg     sync.WaitGroup
}

func dialRedis(cfg *Config) (*redisPublisher, error) {
	opts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		return nil, xerrors.Configf("invalid redis DSN: %v", err)
	}
	opts.ClientName = clientName(cfg)
	return &redisPublisher{client: redis.NewClient(opts)}, nil
}

func (p *redisPublisher) Publish(ctx context.Context, topic string, data []byte, done func(error)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		err := p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: topic,
			Values: map[string]any{"payload": data},
		}).Err()
		done(err)
	}()
}

func (p *redisPublisher) Flush(timeout time.Duration) bool {
	return waitTimeout(&p.wg, timeout)
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

// Kafka

type kafkaPublisher struct {
	client *kgo.Client
}

func dialKafka(u *url.URL, cfg *Config) (*kafkaPublisher, error) {
	seeds := cfg.optionStrings("brokers")
	if len(seeds) == 0 {
		seeds = splitList(u.Host)
	}
	if len(seeds) == 0 {
		return nil, xerrors.Config("kafka DSN has no brokers")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ClientID(clientName(cfg)),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "capture: create kafka client")
	}
	return &kafkaPublisher{client: client}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic string, data []byte, done func(error)) {
	p.client.Produce(ctx, &kgo.Record{Topic: topic, Value: data}, func(_ *kgo.Record, err error) {
		done(err)
	})
}

func (p *kafkaPublisher) Flush(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.client.Flush(ctx) == nil
}

func (p *kafkaPublisher) Close() error {
	p.client.Close()
	return nil
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
