package services

import (
	"sync"
	"time"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

const (
	DefaultPacketBufferSize = 1000
	DefaultAlertBufferSize  = 100

	recentAlertWindow = 24 * time.Hour
)

// MonitorOption configures a NetworkMonitor.
type MonitorOption func(*monitorOptions)

type monitorOptions struct {
	packetCapacity int
	alertCapacity  int
	samplerOpts    []SamplerOption
	now            func() time.Time
}

// WithBufferSizes overrides the packet and alert buffer capacities.
func WithBufferSizes(packets, alerts int) MonitorOption {
	return func(o *monitorOptions) {
		if packets > 0 {
			o.packetCapacity = packets
		}
		if alerts > 0 {
			o.alertCapacity = alerts
		}
	}
}

func WithSamplerOptions(opts ...SamplerOption) MonitorOption {
	return func(o *monitorOptions) { o.samplerOpts = append(o.samplerOpts, opts...) }
}

// WithMonitorClock overrides the clock used for the recent alert window.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(o *monitorOptions) { o.now = now }
}

// NetworkMonitor owns the simulator, the rolling buffers and the traffic
// sampler, and exposes start/stop/clear plus read-only snapshots.
type NetworkMonitor struct {
	sim     *Simulator
	sampler *TrafficSampler
	now     func() time.Time

	// ctrlMu serializes lifecycle commands. It is never taken by event
	// delivery, so stopping cannot deadlock against an in-flight tick.
	ctrlMu     sync.Mutex
	monitoring bool

	mu      sync.RWMutex
	packets *RollingBuffer[models.Packet]
	alerts  *RollingBuffer[models.SecurityAlert]
}

// NewNetworkMonitor wires sim into fresh buffers. The simulator must not be
// shared with another monitor.
func NewNetworkMonitor(sim *Simulator, opts ...MonitorOption) *NetworkMonitor {
	o := monitorOptions{
		packetCapacity: DefaultPacketBufferSize,
		alertCapacity:  DefaultAlertBufferSize,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	m := &NetworkMonitor{
		sim:     sim,
		now:     o.now,
		packets: NewRollingBuffer[models.Packet](o.packetCapacity),
		alerts:  NewRollingBuffer[models.SecurityAlert](o.alertCapacity),
	}
	m.sampler = NewTrafficSampler(m.Packets, o.samplerOpts...)

	sim.OnPacket(m.addPacket)
	sim.OnAlert(m.addAlert)
	return m
}

func (m *NetworkMonitor) addPacket(p models.Packet) {
	m.mu.Lock()
	m.packets.Push(p)
	m.mu.Unlock()
}

func (m *NetworkMonitor) addAlert(a models.SecurityAlert) {
	m.mu.Lock()
	m.alerts.Push(a)
	m.mu.Unlock()
}

// OnAlert registers a subscriber for generated alerts. It runs after the
// alert is buffered and must not block.
func (m *NetworkMonitor) OnAlert(handler func(models.SecurityAlert)) {
	m.sim.OnAlert(handler)
}

// OnPacket registers a subscriber for generated packets. It must not block.
func (m *NetworkMonitor) OnPacket(handler func(models.Packet)) {
	m.sim.OnPacket(handler)
}

// OnSample registers a subscriber for traffic samples.
func (m *NetworkMonitor) OnSample(handler func(models.TrafficSample)) {
	m.sampler.OnSample(handler)
}

// StartMonitoring starts the simulator and the sampler. It does nothing when
// already monitoring.
func (m *NetworkMonitor) StartMonitoring() {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()

	if m.monitoring {
		return
	}
	m.sim.Start()
	m.sampler.Start()
	m.monitoring = true
	system.Info("Network monitoring started")
}

// StopMonitoring stops both timers. When it returns no packet, alert or
// sample will be added until the next start.
func (m *NetworkMonitor) StopMonitoring() {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()

	if !m.monitoring {
		return
	}
	m.sim.Stop()
	m.sampler.Stop()
	m.monitoring = false
	system.Info("Network monitoring stopped")
}

// ClearData empties the buffers and the traffic series. Counters and the
// running state are left alone.
func (m *NetworkMonitor) ClearData() {
	m.mu.Lock()
	m.packets.Clear()
	m.alerts.Clear()
	m.mu.Unlock()

	m.sampler.Reset()
	system.Info("Network monitor data cleared")
}

func (m *NetworkMonitor) IsMonitoring() bool {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()
	return m.monitoring
}

// Packets returns the buffered packets, newest first.
func (m *NetworkMonitor) Packets() []models.Packet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.packets.Items()
}

// Alerts returns the buffered alerts, newest first.
func (m *NetworkMonitor) Alerts() []models.SecurityAlert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alerts.Items()
}

// RecentAlerts returns buffered alerts raised within the last 24 hours.
func (m *NetworkMonitor) RecentAlerts() []models.SecurityAlert {
	cutoff := m.now().Add(-recentAlertWindow)

	alerts := m.Alerts()
	recent := alerts[:0]
	for _, a := range alerts {
		if !a.Timestamp.Before(cutoff) {
			recent = append(recent, a)
		}
	}
	return recent
}

// ProtocolStats derives the distribution from the current packet buffer.
func (m *NetworkMonitor) ProtocolStats() []models.ProtocolStats {
	return ComputeProtocolStats(m.Packets())
}

// TrafficData returns the sample series, oldest first.
func (m *NetworkMonitor) TrafficData() []models.TrafficSample {
	return m.sampler.Samples()
}

func (m *NetworkMonitor) TotalPackets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.packets.Len()
}

func (m *NetworkMonitor) TotalAlerts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alerts.Len()
}

// Status summarizes the monitor for the dashboard cards.
func (m *NetworkMonitor) Status() models.MonitorStatus {
	m.mu.RLock()
	status := models.MonitorStatus{
		TotalPackets:  m.packets.Len(),
		TotalAlerts:   m.alerts.Len(),
		ProtocolCount: len(ComputeProtocolStats(m.packets.Items())),
	}
	m.mu.RUnlock()

	status.IsMonitoring = m.IsMonitoring()
	return status
}
