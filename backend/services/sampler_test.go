package services

import (
	"testing"
	"time"

	"netmon-dashboard/backend/models"
)

func TestComputeTrafficSampleWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 13, 14, 15, 0, time.Local)
	packets := []models.Packet{
		{Protocol: "TCP", Size: 100, Timestamp: now.Add(-100 * time.Millisecond)},
		{Protocol: "http", Size: 200, Timestamp: now.Add(-5 * time.Second)},
		{Protocol: "Https", Size: 300, Timestamp: now.Add(-500 * time.Millisecond)},
		{Protocol: "UDP", Size: 150, Timestamp: now.Add(-1001 * time.Millisecond)},
		{Protocol: "icmp", Size: 250, Timestamp: now.Add(-time.Second)},
	}

	s := ComputeTrafficSample(packets, now)

	if s.PacketsPerSecond != 3 {
		t.Errorf("pps = %d, want 3", s.PacketsPerSecond)
	}
	if s.BytesPerSecond != 650 {
		t.Errorf("bps = %d, want 650", s.BytesPerSecond)
	}
	if s.TCPCount != 1 || s.UDPCount != 0 || s.ICMPCount != 1 || s.HTTPCount != 1 {
		t.Errorf("counts tcp/udp/icmp/http = %d/%d/%d/%d", s.TCPCount, s.UDPCount, s.ICMPCount, s.HTTPCount)
	}
	if s.Timestamp != "13:14:15" {
		t.Errorf("timestamp = %q", s.Timestamp)
	}
	if !s.SampledAt.Equal(now) {
		t.Errorf("sampled at %v, want %v", s.SampledAt, now)
	}
}

func TestComputeTrafficSampleEmpty(t *testing.T) {
	s := ComputeTrafficSample(nil, time.Now())
	if s.PacketsPerSecond != 0 || s.BytesPerSecond != 0 {
		t.Fatalf("expected zero sample, got %+v", s)
	}
}

func TestTrafficSamplerKeepsLastSixty(t *testing.T) {
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	sampler := NewTrafficSampler(
		func() []models.Packet { return nil },
		WithSamplerClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)

	var published int
	sampler.OnSample(func(models.TrafficSample) { published++ })

	for i := 0; i < 75; i++ {
		sampler.SampleNow()
	}

	samples := sampler.Samples()
	if len(samples) != DefaultSampleHistory {
		t.Fatalf("len = %d, want %d", len(samples), DefaultSampleHistory)
	}
	if published != 75 {
		t.Errorf("published %d samples, want 75", published)
	}
	for i := 1; i < len(samples); i++ {
		if !samples[i].SampledAt.After(samples[i-1].SampledAt) {
			t.Fatalf("series not oldest-first at %d", i)
		}
	}
	if want := time.Date(2024, 5, 1, 0, 0, 16, 0, time.UTC); !samples[0].SampledAt.Equal(want) {
		t.Errorf("oldest sample at %v, want %v", samples[0].SampledAt, want)
	}

	sampler.Reset()
	if len(sampler.Samples()) != 0 {
		t.Fatal("series not empty after reset")
	}
}

func TestTrafficSamplerTicks(t *testing.T) {
	sampler := NewTrafficSampler(func() []models.Packet { return nil }, WithSampleInterval(2*time.Millisecond))
	sampler.Start()
	defer sampler.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for len(sampler.Samples()) < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	sampler.Stop()

	n := len(sampler.Samples())
	if n < 3 {
		t.Fatalf("expected at least 3 samples, got %d", n)
	}
	time.Sleep(10 * time.Millisecond)
	if len(sampler.Samples()) != n {
		t.Fatal("sample appended after stop")
	}
}
