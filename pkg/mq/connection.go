package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName 领域事件与 change.<table> 行变更共用的 topic exchange
	ExchangeName    = "events"
	DLQExchangeName = "events.dlq"

	// traceHeader 在消息头中传递 trace_id
	traceHeader = "x-trace-id"

	heartbeat = 10 * time.Second
)

// NewConnection dials RabbitMQ; name shows up as connection_name in the management UI.
func NewConnection(url, name string) (*amqp091.Connection, error) {
	props := amqp091.NewConnectionProperties()
	props.SetClientConnectionName("carecircle/" + name)

	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ as %s: %w", name, err)
	}
	return conn, nil
}

// DeclareTopology declares the events exchange and its dead letter exchange.
func DeclareTopology(ch *amqp091.Channel) error {
	for _, name := range []string{ExchangeName, DLQExchangeName} {
		if err := ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", name, err)
		}
	}
	return nil
}
