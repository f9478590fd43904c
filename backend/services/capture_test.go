package services

import (
	"os"
	"testing"
	"time"

	"github.com/google/gopacket/pcapgo"

	"netmon-dashboard/backend/models"
)

func TestCaptureServiceRecordsPackets(t *testing.T) {
	dir := t.TempDir()
	svc := NewCaptureService(dir)

	svc.HandlePacket(models.Packet{ID: "packet_0", SourceIP: "10.0.0.1", DestinationIP: "10.0.0.2", Protocol: "UDP", Port: 53, Size: 80})

	name, err := svc.StartCapture(time.Minute)
	if err != nil {
		t.Fatalf("start capture: %v", err)
	}
	if _, err := svc.StartCapture(time.Minute); err != ErrCaptureInProgress {
		t.Fatalf("second start err = %v", err)
	}

	for i, proto := range []string{"TCP", "UDP", "ICMP"} {
		svc.HandlePacket(models.Packet{
			ID:            "packet_" + string(rune('1'+i)),
			Timestamp:     time.Now(),
			SourceIP:      "192.168.1.5",
			DestinationIP: "8.8.8.8",
			Protocol:      proto,
			Port:          53,
			Size:          100,
		})
	}
	// let the writer drain
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, _ := os.Stat(dir + "/" + name); st != nil && st.Size() >= 24+3*(16+100) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := svc.StopCapture(); err != nil {
		t.Fatalf("stop capture: %v", err)
	}
	if svc.IsCapturing() {
		t.Fatal("still capturing after stop")
	}
	if err := svc.StopCapture(); err != ErrNoCapture {
		t.Fatalf("second stop err = %v", err)
	}

	status := svc.GetStatus()
	if status.Packets != 3 || status.CurrentFile != name {
		t.Fatalf("status = %+v", status)
	}

	f, err := os.Open(dir + "/" + name)
	if err != nil {
		t.Fatalf("open capture: %v", err)
	}
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	if err != nil {
		t.Fatalf("read capture: %v", err)
	}
	count := 0
	for {
		if _, _, err := r.ReadPacketData(); err != nil {
			break
		}
		count++
	}
	if count != 3 {
		t.Fatalf("capture holds %d packets, want 3", count)
	}

	files, err := svc.GetCaptureFiles()
	if err != nil || len(files) != 1 || files[0] != name {
		t.Fatalf("files = %v (%v)", files, err)
	}
	if err := svc.DeleteCaptureFile("../" + name); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
	if err := svc.DeleteCaptureFile(name); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
