package production

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/comalice/formchart/internal/core"
)

// ChannelPublisher forwards transition infos to a channel. Publish never
// blocks: when the channel is full the info is dropped and counted.
type ChannelPublisher struct {
	ch      chan<- core.TransitionInfo
	dropped atomic.Int64
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- core.TransitionInfo) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(info core.TransitionInfo) error {
	select {
	case p.ch <- info:
	default:
		p.dropped.Add(1)
	}
	return nil
}

// Dropped is the number of infos discarded because the channel was full.
func (p *ChannelPublisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close closes the output channel. Publish must not be called afterwards.
func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}

// MetricsPublisher counts fired and ignored events.
type MetricsPublisher struct {
	transitions *prometheus.CounterVec
	ignored     *prometheus.CounterVec
}

// NewMetricsPublisher creates the counters and registers them with reg.
func NewMetricsPublisher(reg prometheus.Registerer) (*MetricsPublisher, error) {
	p := &MetricsPublisher{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formchart_transitions_total",
				Help: "Total number of fired transitions",
			},
			[]string{"machine", "event", "target"},
		),
		ignored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formchart_ignored_events_total",
				Help: "Total number of events that selected no transition",
			},
			[]string{"machine", "event"},
		),
	}
	for _, c := range []prometheus.Collector{p.transitions, p.ignored} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *MetricsPublisher) Publish(info core.TransitionInfo) error {
	if info.Fired {
		p.transitions.WithLabelValues(info.MachineID, info.Event.Type, info.Target).Inc()
		return nil
	}
	p.ignored.WithLabelValues(info.MachineID, info.Event.Type).Inc()
	return nil
}

// Publishers fans an info out to every publisher in order. All are called
// even if one fails; the errors are joined.
type Publishers []core.Publisher

func (ps Publishers) Publish(info core.TransitionInfo) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(info); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
