package services

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"time"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

const (
	DefaultTickInterval     = 100 * time.Millisecond
	DefaultAlertProbability = 0.02

	maxPacketsPerTick = 5
	minPacketSize     = 64
	packetSizeSpread  = 1500
	maxFlagsPerPacket = 3
	minAlertPackets   = 100
	alertPacketSpread = 1000
)

// ipPrefixes are combined with a host octet in 1..254.
var ipPrefixes = []string{
	"192.168.1.",
	"10.0.0.",
	"172.16.0.",
	"203.0.113.",
	"198.51.100.",
	"8.8.8.",
	"1.1.1.",
}

var protocolPorts = map[string][]int{
	models.ProtocolTCP:   {80, 443, 22, 21, 25, 53, 110, 143, 993, 995},
	models.ProtocolUDP:   {53, 67, 68, 123, 161, 162, 514, 1194},
	models.ProtocolHTTP:  {80, 8080, 3000, 5000},
	models.ProtocolHTTPS: {443, 8443},
	models.ProtocolDNS:   {53},
	models.ProtocolICMP:  {0},
}

type alertTemplate struct {
	Type        models.AlertType
	Severity    models.Severity
	Description string
}

var alertTemplates = []alertTemplate{
	{models.AlertDOSAttack, models.SeverityHigh, "High volume of packets detected from single source"},
	{models.AlertPortScan, models.SeverityMedium, "Sequential port scanning activity detected"},
	{models.AlertUnusualTraffic, models.SeverityLow, "Unusual traffic pattern on non-standard port"},
	{models.AlertSuspiciousProtocol, models.SeverityMedium, "Suspicious protocol usage detected"},
}

// RandomSource is the subset of *rand.Rand the simulator draws from.
type RandomSource interface {
	IntN(n int) int
	Float64() float64
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithRandomSource replaces the random source, e.g. with a seeded or scripted one.
func WithRandomSource(rng RandomSource) SimulatorOption {
	return func(s *Simulator) { s.rng = rng }
}

// WithSeed makes the generated sequence reproducible. A zero seed is ignored.
func WithSeed(seed uint64) SimulatorOption {
	return func(s *Simulator) {
		if seed != 0 {
			s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		}
	}
}

func WithTickInterval(d time.Duration) SimulatorOption {
	return func(s *Simulator) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithAlertProbability(p float64) SimulatorOption {
	return func(s *Simulator) { s.alertProb = p }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) { s.now = now }
}

// Simulator emits randomized packets and occasional alerts on a fixed cadence.
// Each instance owns its counters; they are never reset.
type Simulator struct {
	interval  time.Duration
	alertProb float64
	now       func() time.Time

	mu            sync.Mutex // serializes ticks; guards rng and counters
	rng           RandomSource
	packetCounter uint64
	alertCounter  uint64

	packets Registry[models.Packet]
	alerts  Registry[models.SecurityAlert]

	loop *tickerLoop
}

// NewSimulator creates a stopped simulator.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		interval:  DefaultTickInterval,
		alertProb: DefaultAlertProbability,
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loop = newTickerLoop(s.interval, s.tick)
	return s
}

// OnPacket registers a packet subscriber.
func (s *Simulator) OnPacket(handler func(models.Packet)) {
	s.packets.Subscribe(handler)
}

// OnAlert registers an alert subscriber.
func (s *Simulator) OnAlert(handler func(models.SecurityAlert)) {
	s.alerts.Subscribe(handler)
}

// Start begins ticking. Calling Start on a running simulator does nothing.
func (s *Simulator) Start() {
	if s.loop.start() {
		system.Info("Traffic simulator started (interval: %s)", s.interval)
	}
}

// Stop halts ticking and returns once no further event can be delivered.
// Calling Stop on a stopped simulator does nothing. Must not be called from a subscriber.
func (s *Simulator) Stop() {
	if s.loop.stop() {
		system.Info("Traffic simulator stopped")
	}
}

func (s *Simulator) Running() bool {
	return s.loop.running()
}

// tick generates and delivers one batch: 1..5 packets in generation order,
// then at most one alert.
func (s *Simulator) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.rng.IntN(maxPacketsPerTick) + 1
	for range n {
		s.packets.Publish(s.generatePacket())
	}

	if s.rng.Float64() < s.alertProb {
		s.alerts.Publish(s.generateAlert())
	}
}

func (s *Simulator) generatePacket() models.Packet {
	protocol := models.Protocols[s.rng.IntN(len(models.Protocols))]
	ports := protocolPorts[protocol]

	s.packetCounter++
	p := models.Packet{
		ID:            fmt.Sprintf("packet_%d", s.packetCounter),
		Timestamp:     s.now(),
		SourceIP:      s.randomIP(),
		DestinationIP: s.randomIP(),
		Protocol:      protocol,
		Port:          ports[s.rng.IntN(len(ports))],
		Size:          s.rng.IntN(packetSizeSpread) + minPacketSize,
	}
	if protocol == models.ProtocolTCP {
		p.Flags = s.randomTCPFlags()
	}
	return p
}

// randomTCPFlags draws 1..3 times and keeps the first occurrence of each
// flag; a repeated draw is dropped, not retried.
func (s *Simulator) randomTCPFlags() []string {
	draws := s.rng.IntN(maxFlagsPerPacket) + 1
	flags := make([]string, 0, draws)
	for range draws {
		flag := models.TCPFlags[s.rng.IntN(len(models.TCPFlags))]
		if !slices.Contains(flags, flag) {
			flags = append(flags, flag)
		}
	}
	return flags
}

func (s *Simulator) generateAlert() models.SecurityAlert {
	tmpl := alertTemplates[s.rng.IntN(len(alertTemplates))]

	s.alertCounter++
	return models.SecurityAlert{
		ID:          fmt.Sprintf("alert_%d", s.alertCounter),
		Timestamp:   s.now(),
		Type:        tmpl.Type,
		Severity:    tmpl.Severity,
		SourceIP:    s.randomIP(),
		Description: tmpl.Description,
		PacketCount: s.rng.IntN(alertPacketSpread) + minAlertPackets,
	}
}

func (s *Simulator) randomIP() string {
	prefix := ipPrefixes[s.rng.IntN(len(ipPrefixes))]
	return prefix + strconv.Itoa(s.rng.IntN(254)+1)
}
