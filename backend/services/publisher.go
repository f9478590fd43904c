package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"netmon-dashboard/backend/config"
	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

// EventPublisher republishes generated events to NATS as JSON on
// <prefix>.packets, <prefix>.alerts.<severity> and <prefix>.samples.
type EventPublisher struct {
	nc      *nats.Conn
	prefix  string
	publish func(subject string, data []byte) error
	failed  atomic.Int64
}

// NewEventPublisher connects to the configured NATS server.
func NewEventPublisher(cfg config.NATSConfig) (*EventPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("netmon-dashboard"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}
	system.Info("Connected to NATS server at %s", cfg.URL)

	return &EventPublisher{
		nc:      nc,
		prefix:  strings.TrimSuffix(cfg.SubjectPrefix, "."),
		publish: nc.Publish,
	}, nil
}

func (p *EventPublisher) PublishPacket(pkt models.Packet) {
	p.send(p.prefix+".packets", pkt)
}

func (p *EventPublisher) PublishAlert(alert models.SecurityAlert) {
	p.send(p.prefix+".alerts."+strings.ToLower(string(alert.Severity)), alert)
}

func (p *EventPublisher) PublishSample(sample models.TrafficSample) {
	p.send(p.prefix+".samples", sample)
}

// Failed returns the number of events that could not be published.
func (p *EventPublisher) Failed() int64 {
	return p.failed.Load()
}

// send is called from event delivery, so it only buffers; nats flushes asynchronously.
func (p *EventPublisher) send(subject string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = p.publish(subject, data)
	}
	if err != nil {
		if p.failed.Add(1) == 1 {
			system.Warn("NATS publish to %s failed: %v", subject, err)
		}
	}
}

// Close drains and closes the NATS connection.
func (p *EventPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			system.Warn("NATS drain failed: %v", err)
		}
		system.Info("NATS connection drained and closed")
	}
}
