package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"netmon-dashboard/backend/models"
	"netmon-dashboard/backend/system"
)

const (
	DefaultCaptureDuration = time.Minute
	MaxCaptureDuration     = 30 * time.Minute
)

var ErrCaptureInProgress = errors.New("capture already in progress")
var ErrNoCapture = errors.New("no capture in progress")

// CaptureStatus holds the current status of the capture service
type CaptureStatus struct {
	IsCapturing bool      `json:"is_capturing"`
	StartTime   time.Time `json:"start_time"`
	Duration    string    `json:"duration"`
	CurrentFile string    `json:"current_file"`
	Packets     int64     `json:"packets"`
}

// CaptureService records the generated packet stream into pcap files for a
// bounded duration.
type CaptureService struct {
	dir string

	mu      sync.Mutex
	status  CaptureStatus
	packets chan models.Packet
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewCaptureService(dir string) *CaptureService {
	if dir == "" {
		dir = filepath.Join(".", "captures")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		system.Warn("Failed to create capture directory: %v", err)
	}
	return &CaptureService{dir: dir}
}

// HandlePacket is a packet subscriber. It drops packets when not capturing
// or when the writer falls behind.
func (s *CaptureService) HandlePacket(p models.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.IsCapturing {
		return
	}
	select {
	case s.packets <- p:
	default:
	}
}

// StartCapture begins writing packets to a new file for duration and
// returns the file name.
func (s *CaptureService) StartCapture(duration time.Duration) (string, error) {
	if duration <= 0 {
		duration = DefaultCaptureDuration
	}
	if duration > MaxCaptureDuration {
		duration = MaxCaptureDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsCapturing {
		return "", ErrCaptureInProgress
	}

	filename := fmt.Sprintf("capture_%s.pcap", time.Now().Format("20060102-150405.000"))
	f, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to create capture file: %w", err)
	}
	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write pcap header: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	s.packets = make(chan models.Packet, 256)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.status = CaptureStatus{
		IsCapturing: true,
		StartTime:   time.Now(),
		CurrentFile: filename,
	}

	go s.run(ctx, f, w, s.packets, s.done)

	system.Info("Started capture %s for %v", filename, duration)
	return filename, nil
}

func (s *CaptureService) run(ctx context.Context, f *os.File, w *pcapgo.Writer, packets <-chan models.Packet, done chan<- struct{}) {
	defer close(done)

	var written int64
	defer func() {
		if err := f.Close(); err != nil {
			system.Warn("Failed to close capture file: %v", err)
		}
		s.mu.Lock()
		s.status.IsCapturing = false
		s.status.Duration = time.Since(s.status.StartTime).Round(time.Second).String()
		s.status.Packets = written
		s.mu.Unlock()
		system.Info("Capture finished: %d packets", written)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-packets:
			frame, err := buildFrame(p)
			if err != nil {
				system.Warn("Capture skipped %s: %v", p.ID, err)
				continue
			}
			ci := gopacket.CaptureInfo{
				Timestamp:     p.Timestamp,
				CaptureLength: len(frame),
				Length:        len(frame),
			}
			if err := w.WritePacket(ci, frame); err != nil {
				system.Error("Capture write failed: %v", err)
				return
			}
			written++
		}
	}
}

// StopCapture ends the running capture and waits for the file to be closed.
func (s *CaptureService) StopCapture() error {
	s.mu.Lock()
	if !s.status.IsCapturing {
		s.mu.Unlock()
		return ErrNoCapture
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (s *CaptureService) IsCapturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.IsCapturing
}

func (s *CaptureService) GetStatus() CaptureStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsCapturing {
		s.status.Duration = time.Since(s.status.StartTime).Round(time.Second).String()
	}
	return s.status
}

// GetCaptureFiles lists pcap files, newest first.
func (s *CaptureService) GetCaptureFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	type fileInfo struct {
		name string
		mod  time.Time
	}
	files := make([]fileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pcap" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{e.Name(), info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].name > files[j].name
		}
		return files[i].mod.After(files[j].mod)
	})

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

// CaptureFilePath resolves filename inside the capture directory, rejecting
// anything that would escape it.
func (s *CaptureService) CaptureFilePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid filename")
	}
	return filepath.Join(s.dir, filename), nil
}

func (s *CaptureService) DeleteCaptureFile(filename string) error {
	path, err := s.CaptureFilePath(filename)
	if err != nil {
		return err
	}
	s.mu.Lock()
	busy := s.status.IsCapturing && s.status.CurrentFile == filename
	s.mu.Unlock()
	if busy {
		return ErrCaptureInProgress
	}
	return os.Remove(path)
}

func (s *CaptureService) GetCaptureDir() string {
	return s.dir
}
