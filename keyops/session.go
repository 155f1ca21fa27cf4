/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package keyops

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrNoSession = errors.New("no broker session")

// Channel is the set of broker channel operations keyops needs. Publish is
// always mandatory and returns only after the broker confirmed (or refused)
// the message.
type Channel interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error)
	Get(queue string) (amqp.Delivery, bool, error)
	Consume(queue, tag string) (<-chan amqp.Delivery, error)
	Ack(tag uint64) error
	Cancel(tag string) error
	Close() error
}

// Session is the one broker connection and channel of a process. Every
// channel operation, from the API goroutines as well as from the cluster
// listener, is serialized by mu.
type Session struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     Channel
	AppId  string
	Logger *log.Logger
}

func NewSession(ch Channel, appid string) *Session {
	return &Session{
		ch:     ch,
		AppId:  appid,
		Logger: log.Default(),
	}
}

// Dial opens the connection and the channel, and puts the channel in
// confirm mode. No retries; the caller decides what a failure means.
func Dial(conf *BrokerConf, username, appname string) (*Session, error) {
	scheme := "amqp"
	if conf.TLS {
		scheme = "amqps"
	}
	uri := amqp.URI{
		Scheme:   scheme,
		Host:     conf.Host,
		Port:     conf.Port,
		Username: username,
		Password: conf.Password,
		Vhost:    conf.Vhost,
	}

	cfg := amqp.Config{
		Heartbeat:  conf.Heartbeat,
		Vhost:      conf.Vhost,
		Properties: amqp.NewConnectionProperties(),
	}
	cfg.Properties.SetClientConnectionName(appname)

	if conf.TLS {
		tlsconf, err := conf.tlsConfig()
		if err != nil {
			return nil, err
		}
		cfg.TLSClientConfig = tlsconf
	}

	conn, err := amqp.DialConfig(uri.String(), cfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", conf.Address(), err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	s := NewSession(&amqpChannel{
		ch:      ch,
		returns: ch.NotifyReturn(make(chan amqp.Return, 16)),
	}, appname)
	s.conn = conn
	return s, nil
}

var exitFunc = os.Exit

// MustDial terminates the process if the broker cannot be reached. It is
// expected to be restarted by its supervisor.
func MustDial(conf *BrokerConf, username, appname string) *Session {
	s, err := Dial(conf, username, appname)
	if err == nil {
		log.Printf("MustDial: ready to start sending to RabbitMQ at %s", conf.Address())
		return s
	}

	switch classifyError(err) {
	case PublishChannelError:
		log.Printf("MustDial: AMQP channel error: %v", err)
	default:
		log.Printf("Error: MustDial: AMQP error: %v", err)
	}
	exitFunc(1)
	return nil
}

func (bc *BrokerConf) tlsConfig() (*tls.Config, error) {
	tlsconf := &tls.Config{
		ServerName: bc.Host,
		MinVersion: tls.VersionTLS12,
	}
	if bc.CaFile != "" {
		pem, err := os.ReadFile(bc.CaFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file %s: %w", bc.CaFile, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", bc.CaFile)
		}
		tlsconf.RootCAs = pool
	}
	if bc.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(bc.CertFile, bc.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		tlsconf.Certificates = []tls.Certificate{cert}
	}
	return tlsconf, nil
}

func (s *Session) logger() *log.Logger {
	if s == nil || s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

// Publish sends body as a mandatory, confirmed text message. The returned
// bool is true only if the broker acked the message and did not return it
// as unroutable.
func (s *Session) Publish(ctx context.Context, exchange, key, body string) (bool, error) {
	if s == nil || s.ch == nil {
		return false, ErrNoSession
	}

	msg := amqp.Publishing{
		ContentType: "text/plain",
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now(),
		AppId:       s.AppId,
		Body:        []byte(body),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Publish(ctx, exchange, key, msg)
}

func (s *Session) Get(queue string) (amqp.Delivery, bool, error) {
	if s == nil || s.ch == nil {
		return amqp.Delivery{}, false, ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Get(queue)
}

func (s *Session) Consume(queue, tag string) (<-chan amqp.Delivery, error) {
	if s == nil || s.ch == nil {
		return nil, ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Consume(queue, tag)
}

func (s *Session) Ack(tag uint64) error {
	if s == nil || s.ch == nil {
		return ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Ack(tag)
}

func (s *Session) Cancel(tag string) error {
	if s == nil || s.ch == nil {
		return ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Cancel(tag)
}

// Close is only called at process teardown.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.ch != nil {
		err = s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil {
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.conn = nil
	}
	return err
}

type amqpChannel struct {
	ch      *amqp.Channel
	returns chan amqp.Return
}

func (c *amqpChannel) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error) {
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, true, false, msg)
	if err != nil {
		return false, err
	}
	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return false, err
	}
	if c.returned(msg.MessageId) {
		return false, nil
	}
	return acked, nil
}

// returned drains pending basic.return notifications and reports whether
// one of them was for msgid. The broker always sends the basic.return for a
// mandatory message before its basic.ack.
func (c *amqpChannel) returned(msgid string) bool {
	found := false
	for {
		select {
		case ret, ok := <-c.returns:
			if !ok {
				return found
			}
			if ret.MessageId == msgid {
				found = true
			}
		default:
			return found
		}
	}
}

func (c *amqpChannel) Get(queue string) (amqp.Delivery, bool, error) {
	return c.ch.Get(queue, false)
}

func (c *amqpChannel) Consume(queue, tag string) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(queue, tag, false, false, false, false, nil)
}

func (c *amqpChannel) Ack(tag uint64) error {
	return c.ch.Ack(tag, false)
}

func (c *amqpChannel) Cancel(tag string) error {
	return c.ch.Cancel(tag, false)
}

func (c *amqpChannel) Close() error {
	return c.ch.Close()
}

// classifyError maps a broker error onto the publish status that names its
// class. Channel level errors are the ones the broker reports as
// recoverable, plus operations on an already closed channel.
func classifyError(err error) PublishStatus {
	var aerr *amqp.Error
	switch {
	case err == nil:
		return PublishOK
	case errors.Is(err, ErrNoSession):
		return PublishBrokerError
	case errors.As(err, &aerr):
		if aerr.Recover || aerr.Code == amqp.ChannelError {
			return PublishChannelError
		}
		return PublishBrokerError
	}
	return PublishFailed
}

// publishOutcome folds the result of Session.Publish into a status and logs
// failures with the severity of their class.
func publishOutcome(lg *log.Logger, acked bool, err error, what string) PublishStatus {
	if err == nil {
		if acked {
			return PublishOK
		}
		lg.Printf("Error: broker did not accept %s", what)
		return PublishRejected
	}

	status := classifyError(err)
	switch status {
	case PublishChannelError:
		lg.Printf("Error: AMQP channel error: %v (%s)", err, what)
	case PublishBrokerError:
		lg.Printf("Error: AMQP error: %v (%s)", err, what)
	default:
		lg.Printf("Error: exception during AMQP send: %v (%s)", err, what)
	}
	return status
}
