package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Protocol labels produced by the simulator.
const (
	ProtocolTCP   = "TCP"
	ProtocolUDP   = "UDP"
	ProtocolICMP  = "ICMP"
	ProtocolHTTP  = "HTTP"
	ProtocolHTTPS = "HTTPS"
	ProtocolDNS   = "DNS"
)

// Protocols lists every protocol in generation order.
var Protocols = []string{ProtocolTCP, ProtocolUDP, ProtocolICMP, ProtocolHTTP, ProtocolHTTPS, ProtocolDNS}

// TCP flag labels.
const (
	FlagSYN = "SYN"
	FlagACK = "ACK"
	FlagFIN = "FIN"
	FlagRST = "RST"
	FlagPSH = "PSH"
	FlagURG = "URG"
)

var TCPFlags = []string{FlagSYN, FlagACK, FlagFIN, FlagRST, FlagPSH, FlagURG}

// AlertType names the kind of a synthetic security alert.
type AlertType string

const (
	AlertDOSAttack          AlertType = "DOS_ATTACK"
	AlertPortScan           AlertType = "PORT_SCAN"
	AlertUnusualTraffic     AlertType = "UNUSUAL_TRAFFIC"
	AlertSuspiciousProtocol AlertType = "SUSPICIOUS_PROTOCOL"
)

// Severity of an alert. CRITICAL is valid but no template emits it.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities from LOW (1) to CRITICAL (4); unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// ISOMillis is the UTC layout for packet and alert timestamps on the wire.
const ISOMillis = "2006-01-02T15:04:05.000Z"

// Packet is one synthetic traffic event. Immutable once delivered.
type Packet struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	SourceIP      string    `json:"sourceIp"`
	DestinationIP string    `json:"destinationIp"`
	Protocol      string    `json:"protocol"`
	Port          int       `json:"port"`
	Size          int       `json:"size"`
	Flags         []string  `json:"flags,omitempty"` // TCP only
}

func (p Packet) MarshalJSON() ([]byte, error) {
	type plain Packet
	return json.Marshal(struct {
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
		plain
	}{p.ID, p.Timestamp.UTC().Format(ISOMillis), plain(p)})
}

// SecurityAlert is a randomly triggered, labelled alert event.
type SecurityAlert struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        AlertType `json:"type"`
	Severity    Severity  `json:"severity"`
	SourceIP    string    `json:"sourceIp"`
	Description string    `json:"description"`
	PacketCount int       `json:"packetCount,omitempty"`
}

func (a SecurityAlert) MarshalJSON() ([]byte, error) {
	type plain SecurityAlert
	return json.Marshal(struct {
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
		plain
	}{a.ID, a.Timestamp.UTC().Format(ISOMillis), plain(a)})
}

// ProtocolStats is one row of the protocol distribution.
type ProtocolStats struct {
	Protocol   string  `json:"protocol"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// TrafficSample summarizes the packets seen during the last second.
type TrafficSample struct {
	Timestamp        string    `json:"timestamp"` // wall clock, 15:04:05
	PacketsPerSecond int       `json:"packetsPerSecond"`
	BytesPerSecond   int       `json:"bytesPerSecond"`
	TCPCount         int       `json:"tcpCount"`
	UDPCount         int       `json:"udpCount"`
	ICMPCount        int       `json:"icmpCount"`
	HTTPCount        int       `json:"httpCount"` // HTTP + HTTPS
	SampledAt        time.Time `json:"-"`
}

// MonitorStatus backs the dashboard's summary cards.
type MonitorStatus struct {
	IsMonitoring  bool `json:"isMonitoring"`
	TotalPackets  int  `json:"totalPackets"`
	TotalAlerts   int  `json:"totalAlerts"`
	ProtocolCount int  `json:"protocolCount"`
}

// Sequence returns the numeric suffix of an id such as "packet_42", or 0.
func Sequence(id string) uint64 {
	i := strings.LastIndexByte(id, '_')
	if i < 0 {
		return 0
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
