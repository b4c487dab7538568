package messaging

type consumeConfig struct {
	workers int
	queue   string
	autoAck bool
}

type ConsumeOption func(*consumeConfig)

func buildConsumeConfig(opts []ConsumeOption) consumeConfig {
	c := consumeConfig{workers: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	c.workers = max(c.workers, 1)
	return c
}

// Workers sets how many deliveries of one subscription run in parallel.
func Workers(n int) ConsumeOption {
	return func(c *consumeConfig) { c.workers = n }
}

// Queue joins a queue group: each event reaches one member of the group.
func Queue(name string) ConsumeOption {
	return func(c *consumeConfig) { c.queue = name }
}

// AutoAck settles every delivery from the handler's result.
func AutoAck() ConsumeOption {
	return func(c *consumeConfig) { c.autoAck = true }
}
