package services

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"netmon-dashboard/backend/models"
)

// scriptedSource returns queued values in order, then falls back to
// defaultInt / defaultFloat.
type scriptedSource struct {
	mu           sync.Mutex
	ints         []int
	floats       []float64
	defaultInt   func(n int) int
	defaultFloat float64
}

func (s *scriptedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) > 0 {
		v := s.ints[0]
		s.ints = s.ints[1:]
		return v
	}
	if s.defaultInt != nil {
		return s.defaultInt(n)
	}
	return 0
}

func (s *scriptedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) > 0 {
		v := s.floats[0]
		s.floats = s.floats[1:]
		return v
	}
	return s.defaultFloat
}

// threeTCPSource yields exactly three TCP packets per tick and never an alert.
func threeTCPSource() *scriptedSource {
	return &scriptedSource{
		defaultInt: func(n int) int {
			if n == maxPacketsPerTick {
				return 2
			}
			return 0
		},
		defaultFloat: 1,
	}
}

type collector struct {
	mu      sync.Mutex
	packets []models.Packet
	alerts  []models.SecurityAlert
	order   []string
}

func (c *collector) attach(s *Simulator) {
	s.OnPacket(func(p models.Packet) {
		c.mu.Lock()
		c.packets = append(c.packets, p)
		c.order = append(c.order, "packet")
		c.mu.Unlock()
	})
	s.OnAlert(func(a models.SecurityAlert) {
		c.mu.Lock()
		c.alerts = append(c.alerts, a)
		c.order = append(c.order, "alert")
		c.mu.Unlock()
	})
}

func (c *collector) packetCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.packets)
}

func TestSimulatorScriptedTCPTicks(t *testing.T) {
	sim := NewSimulator(WithRandomSource(threeTCPSource()))
	c := &collector{}
	c.attach(sim)

	for i := 0; i < 10; i++ {
		sim.tick()
	}

	if len(c.packets) != 30 {
		t.Fatalf("expected 30 packets, got %d", len(c.packets))
	}
	if len(c.alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(c.alerts))
	}
	for i, p := range c.packets {
		if want := "packet_" + strconv.Itoa(i+1); p.ID != want {
			t.Errorf("packet %d: id %s, want %s", i, p.ID, want)
		}
		if p.Protocol != models.ProtocolTCP {
			t.Errorf("packet %s: protocol %s, want TCP", p.ID, p.Protocol)
		}
	}
}

func TestSimulatorTCPFlagDuplicatesAreDropped(t *testing.T) {
	src := &scriptedSource{
		// count, protocol, src ip, dst ip, port, size, flag draws, flags
		ints:         []int{0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 1},
		defaultFloat: 1,
	}
	sim := NewSimulator(WithRandomSource(src))
	c := &collector{}
	c.attach(sim)

	sim.tick()

	if len(c.packets) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(c.packets))
	}
	p := c.packets[0]
	if !slices.Equal(p.Flags, []string{models.FlagSYN, models.FlagACK}) {
		t.Errorf("flags = %v, want [SYN ACK]", p.Flags)
	}
	if p.SourceIP != "192.168.1.1" || p.DestinationIP != "192.168.1.1" {
		t.Errorf("unexpected addresses %s -> %s", p.SourceIP, p.DestinationIP)
	}
	if p.Port != 80 || p.Size != minPacketSize {
		t.Errorf("port/size = %d/%d, want 80/%d", p.Port, p.Size, minPacketSize)
	}
}

func TestSimulatorAlertAfterPackets(t *testing.T) {
	src := &scriptedSource{
		// 2 packets of UDP, then alert template 1 from 8.8.8.8
		ints:   []int{1, 1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 1, 5, 7, 0},
		floats: []float64{0},
	}
	sim := NewSimulator(WithRandomSource(src))
	c := &collector{}
	c.attach(sim)

	sim.tick()

	if !slices.Equal(c.order, []string{"packet", "packet", "alert"}) {
		t.Fatalf("delivery order = %v", c.order)
	}
	a := c.alerts[0]
	if a.ID != "alert_1" || a.Type != models.AlertPortScan || a.Severity != models.SeverityMedium {
		t.Errorf("unexpected alert %+v", a)
	}
	if a.Description != "Sequential port scanning activity detected" {
		t.Errorf("description = %q", a.Description)
	}
	if a.SourceIP != "8.8.8.8" {
		t.Errorf("source ip = %s, want 8.8.8.8", a.SourceIP)
	}
	if a.PacketCount != minAlertPackets {
		t.Errorf("packet count = %d, want %d", a.PacketCount, minAlertPackets)
	}
	for _, p := range c.packets {
		if p.Flags != nil {
			t.Errorf("non-TCP packet %s has flags %v", p.ID, p.Flags)
		}
	}
}

func TestSimulatorRandomizedInvariants(t *testing.T) {
	sim := NewSimulator(WithSeed(7), WithAlertProbability(0.2))
	c := &collector{}
	c.attach(sim)

	const ticks = 2000
	prev := 0
	for i := 0; i < ticks; i++ {
		sim.tick()
		n := c.packetCount() - prev
		if n < 1 || n > maxPacketsPerTick {
			t.Fatalf("tick %d produced %d packets", i, n)
		}
		prev += n
	}

	var lastSeq uint64
	for _, p := range c.packets {
		seq := models.Sequence(p.ID)
		if seq <= lastSeq {
			t.Fatalf("packet id %s not increasing after %d", p.ID, lastSeq)
		}
		lastSeq = seq

		ports, ok := protocolPorts[p.Protocol]
		if !ok {
			t.Fatalf("unknown protocol %q", p.Protocol)
		}
		if !slices.Contains(ports, p.Port) {
			t.Errorf("port %d not valid for %s", p.Port, p.Protocol)
		}
		if p.Size < 64 || p.Size > 1564 {
			t.Errorf("size %d out of range", p.Size)
		}
		checkAddress(t, p.SourceIP)
		checkAddress(t, p.DestinationIP)

		if p.Protocol == models.ProtocolTCP {
			if len(p.Flags) < 1 || len(p.Flags) > 3 {
				t.Errorf("packet %s has %d flags", p.ID, len(p.Flags))
			}
			seen := map[string]bool{}
			for _, f := range p.Flags {
				if !slices.Contains(models.TCPFlags, f) || seen[f] {
					t.Errorf("packet %s has bad flags %v", p.ID, p.Flags)
				}
				seen[f] = true
			}
		} else if len(p.Flags) != 0 {
			t.Errorf("non-TCP packet %s has flags", p.ID)
		}
	}

	if len(c.alerts) == 0 {
		t.Fatalf("expected some alerts at probability 0.2 over %d ticks", ticks)
	}
	for i, a := range c.alerts {
		if want := "alert_" + strconv.Itoa(i+1); a.ID != want {
			t.Errorf("alert id %s, want %s", a.ID, want)
		}
		idx := slices.IndexFunc(alertTemplates, func(tmpl alertTemplate) bool { return tmpl.Type == a.Type })
		if idx < 0 {
			t.Fatalf("unknown alert type %s", a.Type)
		}
		if alertTemplates[idx].Severity != a.Severity || alertTemplates[idx].Description != a.Description {
			t.Errorf("alert %s does not match its template", a.ID)
		}
		if a.PacketCount < 100 || a.PacketCount > 1099 {
			t.Errorf("alert packet count %d out of range", a.PacketCount)
		}
		checkAddress(t, a.SourceIP)
	}
}

func checkAddress(t *testing.T, ip string) {
	t.Helper()
	for _, prefix := range ipPrefixes {
		if rest, ok := strings.CutPrefix(ip, prefix); ok {
			octet, err := strconv.Atoi(rest)
			if err != nil || octet < 1 || octet > 254 {
				t.Errorf("address %s has bad host octet", ip)
			}
			return
		}
	}
	t.Errorf("address %s has unknown prefix", ip)
}

func TestSimulatorStartStopIdempotent(t *testing.T) {
	sim := NewSimulator(WithSeed(1), WithTickInterval(time.Millisecond))
	c := &collector{}
	c.attach(sim)

	sim.Start()
	sim.Start()
	if !sim.Running() {
		t.Fatal("expected simulator to be running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.packetCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.packetCount() == 0 {
		t.Fatal("no packets generated while running")
	}

	sim.Stop()
	sim.Stop()
	if sim.Running() {
		t.Fatal("expected simulator to be stopped")
	}

	afterStop := c.packetCount()
	time.Sleep(30 * time.Millisecond)
	if got := c.packetCount(); got != afterStop {
		t.Fatalf("packets delivered after stop: %d -> %d", afterStop, got)
	}

	// Restart continues the counters rather than replaying ids.
	sim.Start()
	for c.packetCount() == afterStop && time.Now().Before(deadline.Add(2*time.Second)) {
		time.Sleep(5 * time.Millisecond)
	}
	sim.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.packets) <= afterStop {
		t.Fatal("no packets after restart")
	}
	last := models.Sequence(c.packets[afterStop-1].ID)
	next := models.Sequence(c.packets[afterStop].ID)
	if next != last+1 {
		t.Fatalf("after restart got %s following packet_%d", c.packets[afterStop].ID, last)
	}
}

func TestSimulatorNoDeliveryAfterStopReturns(t *testing.T) {
	sim := NewSimulator(WithSeed(3), WithTickInterval(time.Millisecond), WithAlertProbability(1))

	var stopped atomic.Bool
	var late atomic.Int64
	sim.OnPacket(func(models.Packet) {
		if stopped.Load() {
			late.Add(1)
		}
		// widen the window in which Stop races a tick
		time.Sleep(100 * time.Microsecond)
	})
	sim.OnAlert(func(models.SecurityAlert) {
		if stopped.Load() {
			late.Add(1)
		}
	})

	for i := 0; i < 20; i++ {
		stopped.Store(false)
		sim.Start()
		time.Sleep(3 * time.Millisecond)
		sim.Stop()
		stopped.Store(true)
		time.Sleep(2 * time.Millisecond)
	}

	if n := late.Load(); n != 0 {
		t.Fatalf("%d events delivered after Stop returned", n)
	}
}
