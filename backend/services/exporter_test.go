package services

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"netmon-dashboard/backend/models"
)

var exportTime = time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC)

func samplePackets() []models.Packet {
	// newest first, as the monitor returns them
	return []models.Packet{
		{ID: "packet_3", Timestamp: exportTime, SourceIP: "8.8.8.8", DestinationIP: "1.1.1.1", Protocol: "ICMP", Port: 0, Size: 64},
		{ID: "packet_2", Timestamp: exportTime.Add(-time.Second), SourceIP: "10.0.0.2", DestinationIP: "8.8.8.8", Protocol: "DNS", Port: 53, Size: 120},
		{ID: "packet_1", Timestamp: exportTime.Add(-2 * time.Second), SourceIP: "192.168.1.10", DestinationIP: "203.0.113.5", Protocol: "TCP", Port: 443, Size: 1500, Flags: []string{"SYN", "ACK"}},
	}
}

func TestExportPacketsCSV(t *testing.T) {
	got := ExportPacketsCSV(samplePackets())
	want := strings.Join([]string{
		"ID,Timestamp,Source IP,Destination IP,Protocol,Port,Size (bytes),Flags",
		"packet_3,2024-01-02T03:04:05.678Z,8.8.8.8,1.1.1.1,ICMP,0,64,",
		"packet_2,2024-01-02T03:04:04.678Z,10.0.0.2,8.8.8.8,DNS,53,120,",
		"packet_1,2024-01-02T03:04:03.678Z,192.168.1.10,203.0.113.5,TCP,443,1500,SYN|ACK",
	}, "\n")
	if got != want {
		t.Fatalf("csv mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestExportEmptyCSV(t *testing.T) {
	if got := ExportPacketsCSV(nil); got != packetCSVHeader {
		t.Errorf("packets csv = %q", got)
	}
	if got := ExportAlertsCSV(nil); got != alertCSVHeader {
		t.Errorf("alerts csv = %q", got)
	}
}

func TestExportAlertsCSV(t *testing.T) {
	alerts := []models.SecurityAlert{
		{ID: "alert_2", Timestamp: exportTime, Type: models.AlertDOSAttack, Severity: models.SeverityHigh,
			SourceIP: "8.8.8.8", Description: "High volume of packets detected from single source", PacketCount: 512},
		{ID: "alert_1", Timestamp: exportTime, Type: models.AlertPortScan, Severity: models.SeverityMedium,
			SourceIP: "10.0.0.9", Description: "Sequential port scanning activity detected"},
	}

	got := ExportAlertsCSV(alerts)
	want := strings.Join([]string{
		"ID,Timestamp,Type,Severity,Source IP,Description,Packet Count",
		`alert_2,2024-01-02T03:04:05.678Z,DOS_ATTACK,HIGH,8.8.8.8,"High volume of packets detected from single source",512`,
		`alert_1,2024-01-02T03:04:05.678Z,PORT_SCAN,MEDIUM,10.0.0.9,"Sequential port scanning activity detected",`,
	}, "\n")
	if got != want {
		t.Fatalf("csv mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestExportEmptyJSON(t *testing.T) {
	data, err := ExportPacketsJSON(nil, exportTime)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	want := "{\n  \"exportDate\": \"2024-01-02T03:04:05.678Z\",\n  \"totalPackets\": 0,\n  \"packets\": []\n}"
	if string(data) != want {
		t.Fatalf("json = %s", data)
	}

	data, err = ExportAlertsJSON(nil, exportTime)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	want = "{\n  \"exportDate\": \"2024-01-02T03:04:05.678Z\",\n  \"totalAlerts\": 0,\n  \"alerts\": []\n}"
	if string(data) != want {
		t.Fatalf("json = %s", data)
	}
}

func TestExportPacketsJSON(t *testing.T) {
	data, err := ExportPacketsJSON(samplePackets(), exportTime)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var doc struct {
		ExportDate   string           `json:"exportDate"`
		TotalPackets int              `json:"totalPackets"`
		Packets      []map[string]any `json:"packets"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc.TotalPackets != 3 || len(doc.Packets) != 3 {
		t.Fatalf("totals = %d/%d", doc.TotalPackets, len(doc.Packets))
	}
	if _, ok := doc.Packets[0]["flags"]; ok {
		t.Error("ICMP packet should omit flags")
	}
	if doc.Packets[2]["sourceIp"] != "192.168.1.10" || doc.Packets[2]["destinationIp"] != "203.0.113.5" {
		t.Errorf("unexpected field names: %v", doc.Packets[2])
	}
	if !bytes.Contains(data, []byte("\n  \"packets\": [\n    {")) {
		t.Error("expected two-space indentation")
	}
}

func TestExportJSONTimestampsMatchCSV(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)
	packets := samplePackets()
	packets[0].Timestamp = packets[0].Timestamp.In(zone).Add(123_456)

	data, err := ExportPacketsJSON(packets[:1], exportTime)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !bytes.Contains(data, []byte(`"timestamp": "2024-01-02T03:04:05.678Z"`)) {
		t.Fatalf("packet timestamp not in UTC millis: %s", data)
	}
	if !strings.Contains(ExportPacketsCSV(packets[:1]), ",2024-01-02T03:04:05.678Z,") {
		t.Fatal("csv and json timestamps differ")
	}

	alert := models.SecurityAlert{ID: "alert_1", Timestamp: exportTime.In(zone), Type: models.AlertPortScan, Severity: models.SeverityHigh}
	data, err = ExportAlertsJSON([]models.SecurityAlert{alert}, exportTime)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !bytes.Contains(data, []byte(`"timestamp": "2024-01-02T03:04:05.678Z"`)) {
		t.Fatalf("alert timestamp not in UTC millis: %s", data)
	}
	var doc struct {
		Alerts []models.SecurityAlert `json:"alerts"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || !doc.Alerts[0].Timestamp.Equal(exportTime) {
		t.Fatalf("timestamp did not decode back: %v %+v", err, doc.Alerts)
	}
}

func TestGenerateFilename(t *testing.T) {
	if got := GenerateFilename("network_packets", "csv", exportTime); got != "network_packets_2024-01-02T03-04-05.csv" {
		t.Fatalf("filename = %s", got)
	}
	local := exportTime.In(time.FixedZone("UTC+9", 9*3600))
	if got := GenerateFilename("security_alerts", "json", local); got != "security_alerts_2024-01-02T03-04-05.json" {
		t.Fatalf("filename from zoned time = %s", got)
	}
}

func TestWritePacketsPCAP(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePacketsPCAP(&buf, samplePackets()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	r, err := pcapgo.NewReader(&buf)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if r.LinkType() != layers.LinkTypeEthernet {
		t.Fatalf("link type = %v", r.LinkType())
	}

	var frames []gopacket.Packet
	var infos []gopacket.CaptureInfo
	for {
		data, ci, err := r.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read packet: %v", err)
		}
		frames = append(frames, gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default))
		infos = append(infos, ci)
	}
	if len(frames) != 3 {
		t.Fatalf("read %d frames, want 3", len(frames))
	}

	// oldest first: TCP, DNS, ICMP
	tcp, ok := frames[0].Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !ok {
		t.Fatal("first frame has no TCP layer")
	}
	if !tcp.SYN || !tcp.ACK || tcp.FIN || tcp.DstPort != 443 {
		t.Errorf("tcp header = %+v", tcp)
	}
	if infos[0].Length != 1500 {
		t.Errorf("tcp frame length = %d, want 1500", infos[0].Length)
	}
	if !infos[0].Timestamp.Equal(exportTime.Add(-2 * time.Second)) {
		t.Errorf("tcp timestamp = %v", infos[0].Timestamp)
	}

	udp, ok := frames[1].Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok || udp.DstPort != 53 {
		t.Errorf("second frame is not UDP/53")
	}
	ip, _ := frames[1].Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if ip == nil || ip.SrcIP.String() != "10.0.0.2" {
		t.Errorf("second frame source = %v", ip)
	}

	if frames[2].Layer(layers.LayerTypeICMPv4) == nil {
		t.Error("third frame has no ICMP layer")
	}
	if infos[2].Length != 64 {
		t.Errorf("icmp frame length = %d, want 64", infos[2].Length)
	}
}

func TestWritePacketsPCAPRejectsBadAddress(t *testing.T) {
	bad := []models.Packet{{ID: "packet_1", SourceIP: "not-an-ip", DestinationIP: "1.1.1.1", Protocol: "UDP", Port: 53, Size: 100}}
	if err := WritePacketsPCAP(io.Discard, bad); err == nil {
		t.Fatal("expected an error for an invalid address")
	}
}
