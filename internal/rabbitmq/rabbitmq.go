package rabbitmq

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

type Config struct {
	URL             string
	Exchange        string
	Queue           string
	DeadLetterQueue string
	PrefetchCount   int
}

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     Config
}

func New(cfg Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
	}, nil
}

// SetupQueues declares the event exchange, the service queue and its dead
// letter pair. Rejected deliveries (requeue=false) land in the dead letter
// queue for inspection.
func (r *RabbitMQ) SetupQueues() error {
	if err := r.Channel.ExchangeDeclare(
		r.Cfg.DeadLetterQueue+"_exchange",
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	if err := r.Channel.QueueBind(
		r.Cfg.DeadLetterQueue,
		"",
		r.Cfg.DeadLetterQueue+"_exchange",
		false,
		nil,
	); err != nil {
		return err
	}

	if err := r.Channel.ExchangeDeclare(
		r.Cfg.Exchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    r.Cfg.DeadLetterQueue + "_exchange",
			"x-dead-letter-routing-key": "",
		},
	); err != nil {
		return err
	}

	if err := r.Channel.QueueBind(
		r.Cfg.Queue,
		"",
		r.Cfg.Exchange,
		false,
		nil,
	); err != nil {
		return err
	}

	if r.Cfg.PrefetchCount > 0 {
		if err := r.Channel.Qos(r.Cfg.PrefetchCount, 0, false); err != nil {
			return err
		}
	}

	return nil
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}
