package metrics

import "time"

// Recorder counts payment steps and observes round-trip latencies.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
