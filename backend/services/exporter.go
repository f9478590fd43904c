package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"netmon-dashboard/backend/models"
)

const (
	filenameTimeForm = "2006-01-02T15-04-05"

	packetCSVHeader = "ID,Timestamp,Source IP,Destination IP,Protocol,Port,Size (bytes),Flags"
	alertCSVHeader  = "ID,Timestamp,Type,Severity,Source IP,Description,Packet Count"

	pcapSnapLen = 65536
)

func isoTimestamp(t time.Time) string {
	return t.UTC().Format(models.ISOMillis)
}

// ExportPacketsCSV renders packets as CSV, one row per packet in the given order.
func ExportPacketsCSV(packets []models.Packet) string {
	rows := make([]string, 0, len(packets)+1)
	rows = append(rows, packetCSVHeader)
	for _, p := range packets {
		rows = append(rows, strings.Join([]string{
			p.ID,
			isoTimestamp(p.Timestamp),
			p.SourceIP,
			p.DestinationIP,
			p.Protocol,
			strconv.Itoa(p.Port),
			strconv.Itoa(p.Size),
			strings.Join(p.Flags, "|"),
		}, ","))
	}
	return strings.Join(rows, "\n")
}

// ExportAlertsCSV renders alerts as CSV. Descriptions are always quoted.
func ExportAlertsCSV(alerts []models.SecurityAlert) string {
	rows := make([]string, 0, len(alerts)+1)
	rows = append(rows, alertCSVHeader)
	for _, a := range alerts {
		count := ""
		if a.PacketCount != 0 {
			count = strconv.Itoa(a.PacketCount)
		}
		rows = append(rows, strings.Join([]string{
			a.ID,
			isoTimestamp(a.Timestamp),
			string(a.Type),
			string(a.Severity),
			a.SourceIP,
			`"` + a.Description + `"`,
			count,
		}, ","))
	}
	return strings.Join(rows, "\n")
}

type packetExport struct {
	ExportDate   string          `json:"exportDate"`
	TotalPackets int             `json:"totalPackets"`
	Packets      []models.Packet `json:"packets"`
}

type alertExport struct {
	ExportDate  string                 `json:"exportDate"`
	TotalAlerts int                    `json:"totalAlerts"`
	Alerts      []models.SecurityAlert `json:"alerts"`
}

// ExportPacketsJSON wraps packets in an export document indented by two spaces.
func ExportPacketsJSON(packets []models.Packet, now time.Time) ([]byte, error) {
	if packets == nil {
		packets = []models.Packet{}
	}
	data, err := json.MarshalIndent(packetExport{
		ExportDate:   isoTimestamp(now),
		TotalPackets: len(packets),
		Packets:      packets,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode packet export: %w", err)
	}
	return data, nil
}

// ExportAlertsJSON wraps alerts in an export document indented by two spaces.
func ExportAlertsJSON(alerts []models.SecurityAlert, now time.Time) ([]byte, error) {
	if alerts == nil {
		alerts = []models.SecurityAlert{}
	}
	data, err := json.MarshalIndent(alertExport{
		ExportDate:  isoTimestamp(now),
		TotalAlerts: len(alerts),
		Alerts:      alerts,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode alert export: %w", err)
	}
	return data, nil
}

// GenerateFilename builds "{prefix}_{YYYY-MM-DDTHH-MM-SS}.{ext}" from the UTC time.
func GenerateFilename(prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.UTC().Format(filenameTimeForm), ext)
}

var (
	pcapSrcMAC = net.HardwareAddr{0x02, 0x00, 0x5e, 0x00, 0x00, 0x01}
	pcapDstMAC = net.HardwareAddr{0x02, 0x00, 0x5e, 0x00, 0x00, 0x02}
)

// WritePacketsPCAP renders packets as synthetic Ethernet frames in a pcap
// stream. Packets are given newest first and written oldest first.
func WritePacketsPCAP(w io.Writer, packets []models.Packet) error {
	writer := pcapgo.NewWriter(w)
	if err := writer.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}

	for i := len(packets) - 1; i >= 0; i-- {
		p := packets[i]
		frame, err := buildFrame(p)
		if err != nil {
			return fmt.Errorf("failed to build frame for %s: %w", p.ID, err)
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     p.Timestamp,
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := writer.WritePacket(ci, frame); err != nil {
			return fmt.Errorf("failed to write packet %s: %w", p.ID, err)
		}
	}
	return nil
}

// buildFrame serializes p as Ethernet/IPv4 plus a transport header and zero
// payload, sized to p.Size where the headers allow.
func buildFrame(p models.Packet) ([]byte, error) {
	src := net.ParseIP(p.SourceIP).To4()
	dst := net.ParseIP(p.DestinationIP).To4()
	if src == nil || dst == nil {
		return nil, fmt.Errorf("invalid IPv4 address pair %q -> %q", p.SourceIP, p.DestinationIP)
	}

	eth := &layers.Ethernet{
		SrcMAC:       pcapSrcMAC,
		DstMAC:       pcapDstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version: 4,
		TTL:     64,
		SrcIP:   src,
		DstIP:   dst,
	}

	seq := models.Sequence(p.ID)
	srcPort := 49152 + uint16(seq%16384)
	headerLen := 14 + 20

	var transport gopacket.SerializableLayer
	switch p.Protocol {
	case models.ProtocolTCP, models.ProtocolHTTP, models.ProtocolHTTPS:
		ip.Protocol = layers.IPProtocolTCP
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(srcPort),
			DstPort: layers.TCPPort(p.Port),
			Seq:     uint32(seq),
			Window:  65535,
		}
		applyTCPFlags(tcp, p.Flags)
		if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		transport = tcp
		headerLen += 20
	case models.ProtocolUDP, models.ProtocolDNS:
		ip.Protocol = layers.IPProtocolUDP
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(srcPort),
			DstPort: layers.UDPPort(p.Port),
		}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			return nil, err
		}
		transport = udp
		headerLen += 8
	case models.ProtocolICMP:
		ip.Protocol = layers.IPProtocolICMPv4
		transport = &layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
			Id:       uint16(seq),
			Seq:      1,
		}
		headerLen += 8
	default:
		return nil, fmt.Errorf("unsupported protocol %q", p.Protocol)
	}

	payload := gopacket.Payload(make([]byte, max(p.Size-headerLen, 0)))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, transport, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func applyTCPFlags(tcp *layers.TCP, flags []string) {
	for _, f := range flags {
		switch f {
		case models.FlagSYN:
			tcp.SYN = true
		case models.FlagACK:
			tcp.ACK = true
		case models.FlagFIN:
			tcp.FIN = true
		case models.FlagRST:
			tcp.RST = true
		case models.FlagPSH:
			tcp.PSH = true
		case models.FlagURG:
			tcp.URG = true
		}
	}
}
