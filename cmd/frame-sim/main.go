// Command frame-sim connects to a go-dtu collector as a fake radio bridge.
// It builds synthetic statistics records for a configured inverter, splits
// them into radio-sized fragments, frames and sends them on an interval.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shibida/go-dtu/internal/parser"
	"github.com/shibida/go-dtu/internal/profile"
	"github.com/shibida/go-dtu/internal/protocol"
)

// BridgeSimulator simulates a radio bridge forwarding one inverter.
type BridgeSimulator struct {
	serverAddr   string
	bridgeSerial uint64
	inverter     uint64
	profile      *profile.Profile
	recordSize   int
	interval     time.Duration
	verbose      bool

	codec *protocol.FrameCodec
	conn  net.Conn // Persistent connection

	step int // advances per record so values drift like a real plant
}

// NewBridgeSimulator creates a simulator for the given inverter serial.
func NewBridgeSimulator(serverAddr string, bridgeSerial, inverterSerial uint64, interval time.Duration, verbose bool) (*BridgeSimulator, error) {
	prof, err := profile.ForSerial(inverterSerial)
	if err != nil {
		return nil, err
	}

	// Size the record the same way the collector does.
	stats := parser.NewStatisticsParser()
	stats.SetByteAssignment(prof.Assignments)

	return &BridgeSimulator{
		serverAddr:   serverAddr,
		bridgeSerial: bridgeSerial,
		inverter:     inverterSerial,
		profile:      prof,
		recordSize:   stats.GetExpectedByteCount(),
		interval:     interval,
		verbose:      verbose,
		codec:        protocol.NewFrameCodec(),
	}, nil
}

// connect establishes the connection to the collector.
func (sim *BridgeSimulator) connect(ctx context.Context) error {
	if sim.verbose {
		log.Printf("🔗 Connecting to collector at %s", sim.serverAddr)
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", sim.serverAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", sim.serverAddr, err)
	}

	sim.conn = conn

	if sim.verbose {
		log.Printf("✅ Connected to collector")
	}

	return nil
}

// disconnect closes the connection to the collector.
func (sim *BridgeSimulator) disconnect() {
	if sim.conn != nil {
		sim.conn.Close()
		sim.conn = nil
		if sim.verbose {
			log.Printf("🔌 Disconnected from collector")
		}
	}
}

// isConnected checks if we have an active connection.
func (sim *BridgeSimulator) isConnected() bool {
	return sim.conn != nil
}

// fieldValue picks a plausible engineering value for one table row. Values
// wander a little between records to look like a live plant.
func (sim *BridgeSimulator) fieldValue(row *parser.ByteAssignment) float64 {
	wiggle := func(base, amp float64) float64 {
		return base + amp*(rand.Float64()*2-1)
	}

	switch row.Field {
	case parser.FieldUDC:
		return wiggle(33.0, 1.5)
	case parser.FieldIDC:
		return wiggle(6.0, 0.5)
	case parser.FieldPDC:
		return wiggle(200.0, 20)
	case parser.FieldYieldDay:
		return float64(sim.step * 5) // Wh, grows through the day
	case parser.FieldYieldTotal:
		return 1250.0 + float64(sim.step)*0.005 // kWh
	case parser.FieldUAC, parser.FieldUACPhase1N, parser.FieldUACPhase2N, parser.FieldUACPhase3N:
		return wiggle(230.0, 1.0)
	case parser.FieldUACPhase12, parser.FieldUACPhase23, parser.FieldUACPhase31:
		return wiggle(400.0, 1.5)
	case parser.FieldIAC, parser.FieldIACPhase1, parser.FieldIACPhase2, parser.FieldIACPhase3:
		return wiggle(1.6, 0.2)
	case parser.FieldPAC:
		return wiggle(380.0, 30)
	case parser.FieldFrequency:
		return wiggle(50.0, 0.02)
	case parser.FieldTemperature:
		return wiggle(28.0, 1.0)
	case parser.FieldPowerFactor:
		return 0.998
	case parser.FieldReactivePower:
		return wiggle(0, 2)
	default:
		return 0
	}
}

// buildRecord renders one complete statistics record for the profile,
// writing the raw big-endian value of every byte-backed table row.
func (sim *BridgeSimulator) buildRecord() []byte {
	record := make([]byte, sim.recordSize)
	for i := range sim.profile.Assignments {
		row := &sim.profile.Assignments[i]
		if row.Divisor == parser.CalcSentinel {
			continue
		}

		raw := int64(sim.fieldValue(row) * float64(row.Divisor))
		if raw < 0 {
			raw += 1 << (8 * row.Bytes)
		}
		for b := int(row.Bytes) - 1; b >= 0; b-- {
			record[int(row.Start)+b] = byte(raw)
			raw >>= 8
		}
	}
	sim.step++
	return record
}

// send writes one frame and reads back whatever the collector answers.
func (sim *BridgeSimulator) send(data []byte, label string) error {
	if !sim.isConnected() {
		return fmt.Errorf("not connected to collector")
	}

	if err := sim.conn.SetWriteDeadline(time.Now().Add(3 * time.Second)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if _, err := sim.conn.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", label, err)
	}

	if sim.verbose {
		log.Printf("📤 Sent %s (%d bytes): %s", label, len(data), hex.EncodeToString(data))
	}

	return nil
}

// readAck drains one response frame, if the collector sends one.
func (sim *BridgeSimulator) readAck() {
	if err := sim.conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		return
	}

	buf := make([]byte, 64)
	n, err := sim.conn.Read(buf)
	if err == nil && n > 0 && sim.verbose {
		log.Printf("📥 Received ack (%d bytes): %s", n, hex.EncodeToString(buf[:n]))
	}
}

// sendHeartbeat announces the bridge to the collector.
func (sim *BridgeSimulator) sendHeartbeat() error {
	data, err := sim.codec.Encode(&protocol.Frame{
		Serial:  sim.bridgeSerial,
		Command: protocol.CommandHeartbeat,
		Payload: []byte("1.0-sim"),
	})
	if err != nil {
		return err
	}
	if err := sim.send(data, "heartbeat"); err != nil {
		return err
	}
	sim.readAck()
	return nil
}

// sendStatistics fragments one synthetic record and sends the frames.
func (sim *BridgeSimulator) sendStatistics() error {
	record := sim.buildRecord()
	frames, err := protocol.SplitStatistics(sim.inverter, record)
	if err != nil {
		return err
	}

	for _, frame := range frames {
		data, err := sim.codec.Encode(frame)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("statistics fragment %d/%d", frame.FragmentIndex(), len(frames))
		if err := sim.send(data, label); err != nil {
			return err
		}
	}

	// Only the final fragment is acknowledged.
	sim.readAck()
	return nil
}

// Run starts the bridge simulator.
func (sim *BridgeSimulator) Run(ctx context.Context) error {
	log.Printf("🔌 Starting bridge simulator")
	log.Printf("   Bridge Serial:   %012x", sim.bridgeSerial)
	log.Printf("   Inverter Serial: %012x (%s, %d byte records)", sim.inverter, sim.profile.Name, sim.recordSize)
	log.Printf("   Collector:       %s", sim.serverAddr)
	log.Printf("   Send Interval:   %v", sim.interval)
	log.Printf("")

	if err := sim.connect(ctx); err != nil {
		return err
	}
	defer sim.disconnect()

	log.Printf("🚀 Sending bridge heartbeat...")
	if err := sim.sendHeartbeat(); err != nil {
		return err
	}

	ticker := time.NewTicker(sim.interval)
	defer ticker.Stop()

	recordCount := 0
	startTime := time.Now()

	log.Printf("📡 Sending a statistics record every %v", sim.interval)
	log.Printf("Press Ctrl+C to stop...")
	log.Printf("")

	for {
		select {
		case <-ctx.Done():
			elapsed := time.Since(startTime)
			log.Printf("")
			log.Printf("🛑 Bridge simulator stopped")
			log.Printf("   Records sent: %d", recordCount)
			log.Printf("   Runtime: %v", elapsed.Round(time.Second))
			return ctx.Err()

		case <-ticker.C:
			if !sim.isConnected() {
				log.Printf("🔗 Connection lost, reconnecting...")
				if err := sim.connect(ctx); err != nil {
					log.Printf("❌ Failed to reconnect: %v", err)
					continue
				}
				if err := sim.sendHeartbeat(); err != nil {
					log.Printf("❌ Heartbeat failed: %v", err)
					sim.disconnect()
					continue
				}
			}

			if err := sim.sendStatistics(); err != nil {
				log.Printf("❌ Error sending record: %v", err)
				sim.disconnect()
				continue
			}

			recordCount++
			if !sim.verbose && recordCount%10 == 0 {
				elapsed := time.Since(startTime)
				log.Printf("📊 Sent %d records in %v", recordCount, elapsed.Round(time.Second))
			}
		}
	}
}

func main() {
	var (
		serverAddr   = flag.String("server", "localhost:10081", "collector address (host:port)")
		inverter     = flag.String("serial", "114100002222", "Inverter serial (12 hex digits)")
		bridgeSerial = flag.String("bridge", "114100007777", "Bridge serial (12 hex digits)")
		interval     = flag.Duration("interval", 5*time.Second, "Interval between statistics records")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		fmt.Printf("Bridge simulator for go-dtu\n\n")
		fmt.Printf("Connects to a go-dtu collector as a fake radio bridge and feeds it\n")
		fmt.Printf("synthetic statistics records for one inverter. Useful for exercising\n")
		fmt.Printf("the MQTT topics, the HTTP API and Home Assistant discovery without\n")
		fmt.Printf("hardware.\n\n")
		fmt.Printf("Usage:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExample:\n")
		fmt.Printf("  %s -server localhost:10081 -serial 114100002222 -interval 5s -verbose\n", os.Args[0])
		os.Exit(0)
	}

	if _, _, err := net.SplitHostPort(*serverAddr); err != nil {
		log.Fatalf("❌ Invalid collector address '%s': %v", *serverAddr, err)
	}

	inverterSerial, err := profile.ParseSerial(*inverter)
	if err != nil {
		log.Fatalf("❌ Invalid inverter serial: %v", err)
	}
	bridge, err := profile.ParseSerial(*bridgeSerial)
	if err != nil {
		log.Fatalf("❌ Invalid bridge serial: %v", err)
	}

	sim, err := NewBridgeSimulator(*serverAddr, bridge, inverterSerial, *interval, *verbose)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("\n⚠️  Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := sim.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("❌ Simulator error: %v", err)
	}
}
