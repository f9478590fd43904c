package services

import (
	"math"
	"testing"

	"netmon-dashboard/backend/models"
)

func packetsOf(protocols ...string) []models.Packet {
	out := make([]models.Packet, len(protocols))
	for i, p := range protocols {
		out[i] = models.Packet{Protocol: p}
	}
	return out
}

func TestComputeProtocolStatsEmpty(t *testing.T) {
	stats := ComputeProtocolStats(nil)
	if stats == nil || len(stats) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", stats)
	}
}

func TestComputeProtocolStatsOrdering(t *testing.T) {
	stats := ComputeProtocolStats(packetsOf("UDP", "TCP", "DNS", "TCP", "DNS", "ICMP", "TCP"))

	want := []struct {
		protocol string
		count    int
	}{
		{"TCP", 3},
		{"DNS", 2},
		{"UDP", 1}, // ties keep first-occurrence order
		{"ICMP", 1},
	}
	if len(stats) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(stats), len(want), stats)
	}
	for i, w := range want {
		if stats[i].Protocol != w.protocol || stats[i].Count != w.count {
			t.Errorf("row %d = %s/%d, want %s/%d", i, stats[i].Protocol, stats[i].Count, w.protocol, w.count)
		}
	}

	var sum float64
	for _, s := range stats {
		sum += s.Percentage
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("percentages sum to %v", sum)
	}
	if math.Abs(stats[0].Percentage-300.0/7) > 1e-9 {
		t.Errorf("TCP percentage = %v", stats[0].Percentage)
	}
}

func TestComputeProtocolStatsColors(t *testing.T) {
	stats := ComputeProtocolStats(packetsOf("TCP", "UDP", "HTTP", "HTTPS", "DNS", "ICMP", "SCTP"))

	want := map[string]string{
		"TCP":   "#3b82f6",
		"UDP":   "#10b981",
		"HTTP":  "#f59e0b",
		"HTTPS": "#ef4444",
		"DNS":   "#8b5cf6",
		"ICMP":  "#06b6d4",
		"SCTP":  "#6b7280",
	}
	for _, s := range stats {
		if s.Color != want[s.Protocol] {
			t.Errorf("%s color = %s, want %s", s.Protocol, s.Color, want[s.Protocol])
		}
	}
}
