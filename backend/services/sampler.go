package services

import (
	"strings"
	"sync"
	"time"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

const (
	DefaultSampleInterval = time.Second
	DefaultSampleHistory  = 60

	// sampleWindow is how far back a sample looks from its own wall-clock time.
	sampleWindow = time.Second
)

// ComputeTrafficSample summarizes the packets whose timestamp falls within
// the second before now. Buffer order is irrelevant.
func ComputeTrafficSample(packets []models.Packet, now time.Time) models.TrafficSample {
	sample := models.TrafficSample{
		Timestamp: now.Format("15:04:05"),
		SampledAt: now,
	}

	cutoff := now.Add(-sampleWindow)
	for _, p := range packets {
		if p.Timestamp.Before(cutoff) {
			continue
		}
		sample.PacketsPerSecond++
		sample.BytesPerSecond += p.Size

		switch strings.ToUpper(p.Protocol) {
		case models.ProtocolTCP:
			sample.TCPCount++
		case models.ProtocolUDP:
			sample.UDPCount++
		case models.ProtocolICMP:
			sample.ICMPCount++
		case models.ProtocolHTTP, models.ProtocolHTTPS:
			sample.HTTPCount++
		}
	}
	return sample
}

// SamplerOption configures a TrafficSampler.
type SamplerOption func(*TrafficSampler)

func WithSampleInterval(d time.Duration) SamplerOption {
	return func(s *TrafficSampler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSampleHistory bounds the number of retained samples.
func WithSampleHistory(n int) SamplerOption {
	return func(s *TrafficSampler) {
		if n > 0 {
			s.history = n
		}
	}
}

func WithSamplerClock(now func() time.Time) SamplerOption {
	return func(s *TrafficSampler) { s.now = now }
}

// TrafficSampler turns the packet buffer into a bounded per-second series.
type TrafficSampler struct {
	source   func() []models.Packet
	interval time.Duration
	history  int
	now      func() time.Time

	mu      sync.RWMutex
	samples []models.TrafficSample // oldest first
	gen     uint64                 // bumped by Reset

	subscribers Registry[models.TrafficSample]
	loop        *tickerLoop
}

// NewTrafficSampler creates a stopped sampler reading packets from source.
func NewTrafficSampler(source func() []models.Packet, opts ...SamplerOption) *TrafficSampler {
	s := &TrafficSampler{
		source:   source,
		interval: DefaultSampleInterval,
		history:  DefaultSampleHistory,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.samples = make([]models.TrafficSample, 0, s.history)
	s.loop = newTickerLoop(s.interval, func() { s.SampleNow() })
	return s
}

// OnSample registers a subscriber called after each sample is appended.
func (s *TrafficSampler) OnSample(handler func(models.TrafficSample)) {
	s.subscribers.Subscribe(handler)
}

func (s *TrafficSampler) Start() {
	if s.loop.start() {
		system.Info("Traffic sampler started (interval: %s, history: %d)", s.interval, s.history)
	}
}

// Stop halts sampling and returns once no further sample can be appended.
func (s *TrafficSampler) Stop() {
	if s.loop.stop() {
		system.Info("Traffic sampler stopped")
	}
}

func (s *TrafficSampler) Running() bool {
	return s.loop.running()
}

// SampleNow computes one sample from the current packets and appends it.
// A sample whose packets were read before a concurrent Reset is discarded.
func (s *TrafficSampler) SampleNow() models.TrafficSample {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	sample := ComputeTrafficSample(s.source(), s.now())

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return sample
	}
	s.samples = append(s.samples, sample)
	if over := len(s.samples) - s.history; over > 0 {
		s.samples = append(s.samples[:0], s.samples[over:]...)
	}
	s.mu.Unlock()

	s.subscribers.Publish(sample)
	return sample
}

// Samples returns a copy of the series, oldest first.
func (s *TrafficSampler) Samples() []models.TrafficSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TrafficSample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Reset empties the series without stopping the sampler.
func (s *TrafficSampler) Reset() {
	s.mu.Lock()
	s.samples = s.samples[:0]
	s.gen++
	s.mu.Unlock()
}
