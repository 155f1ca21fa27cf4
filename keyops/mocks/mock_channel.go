/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package mocks

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

// MockChannel is a mock implementation of the keyops.Channel interface
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (bool, error) {
	args := m.Called(ctx, exchange, key, msg)
	return args.Bool(0), args.Error(1)
}

func (m *MockChannel) Get(queue string) (amqp.Delivery, bool, error) {
	args := m.Called(queue)
	return args.Get(0).(amqp.Delivery), args.Bool(1), args.Error(2)
}

func (m *MockChannel) Consume(queue, tag string) (<-chan amqp.Delivery, error) {
	args := m.Called(queue, tag)
	if ch := args.Get(0); ch != nil {
		return ch.(<-chan amqp.Delivery), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChannel) Ack(tag uint64) error {
	return m.Called(tag).Error(0)
}

func (m *MockChannel) Cancel(tag string) error {
	return m.Called(tag).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}
