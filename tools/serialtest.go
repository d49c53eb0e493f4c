package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"serialplotter/acquisition"
	"serialplotter/generator"
	"serialplotter/serial"
)

var (
	yellow = color.New(color.FgYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func main() {
	mode := flag.String("mode", "send", "Mode: send, receive, or loopback")
	device := flag.String("device", "/dev/ttyS0", "Serial device")
	baud := flag.Int("baud", serial.DefaultBaudRate, "Baud rate")
	wave := flag.String("wave", "sine", "Waveform for send mode: a registered waveform or replay")
	listWaves := flag.Bool("list-waves", false, "List registered waveforms and exit")
	amplitude := flag.Float64("amplitude", 100, "Waveform amplitude")
	offset := flag.Float64("offset", 0, "Waveform offset")
	period := flag.Float64("period", 2, "Waveform period in seconds")
	rate := flag.Float64("rate", 50, "Samples per second")
	jitter := flag.Float64("jitter", 0, "Interval jitter percent")
	sampleFile := flag.String("file", "", "Values to replay, one per line")
	count := flag.Int("count", 0, "Number of samples to send (0 = until interrupted)")
	flag.Parse()

	if *listWaves {
		fmt.Println("Registered waveforms:")
		for _, name := range generator.List() {
			w, _ := generator.Get(name)
			fmt.Printf("  %-10s - %s\n", name, w.Description())
		}
		fmt.Printf("  %-10s - %s\n", generator.ModeReplay, "Values read from -file, one per line")
		return
	}

	cfg := serial.PortConfig{
		Device:      *device,
		BaudRate:    *baud,
		DataBits:    8,
		StopBits:    1,
		Parity:      "none",
		ReadTimeout: serial.DefaultReadTimeout,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "send":
		gen, err := generator.New(generator.Config{
			Mode:             generator.Mode(*wave),
			Amplitude:        *amplitude,
			Offset:           *offset,
			PeriodSec:        *period,
			SamplesPerSecond: *rate,
			JitterPercent:    *jitter,
			SampleFile:       *sampleFile,
			Loop:             true,
		})
		if err != nil {
			log.Fatalf("Invalid generator settings: %v", err)
		}
		sendTest(ctx, cfg, gen, *count)
	case "receive":
		receiveTest(ctx, cfg)
	case "loopback":
		loopbackTest(cfg)
	default:
		log.Fatal("Invalid mode. Use: send, receive, or loopback")
	}
}

func sendTest(ctx context.Context, cfg serial.PortConfig, gen *generator.Generator, count int) {
	port, err := serial.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open port: %v", err)
	}
	defer port.Close()

	fmt.Printf("Sending %s samples on %s at %d baud\n", gen.Mode(), cfg.Device, cfg.BaudRate)
	fmt.Println("Press Ctrl+C to stop")

	n, err := gen.Emit(ctx, port, count)
	if err != nil {
		log.Printf("Send stopped: %v", err)
	}
	if err := port.Flush(); err != nil {
		log.Printf("Flush error: %v", err)
	}
	fmt.Printf("\nSent %d samples\n", n)
}

func receiveTest(ctx context.Context, cfg serial.PortConfig) {
	port, err := serial.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open port: %v", err)
	}
	defer port.Close()

	fmt.Printf("Listening on %s at %d baud\n", cfg.Device, cfg.BaudRate)
	fmt.Println("Press Ctrl+C to stop")

	buf := make([]byte, acquisition.DefaultBufferSize)
	total := 0

	for ctx.Err() == nil {
		n, err := port.Read(buf)
		if err != nil && !serial.IsTimeout(err) {
			log.Printf("Read error: %v", err)
			return
		}
		if n == 0 {
			continue
		}

		values := acquisition.Decode(buf[:n])
		total += len(values)
		for _, v := range values {
			fmt.Printf("[%s] %s\n", yellow("%s", time.Now().Format("15:04:05.000")), green("%g", v))
		}
		if len(values) == 0 {
			fmt.Printf("[%s] %s\n", yellow("%s", time.Now().Format("15:04:05.000")), red("%d bytes without samples: %q", n, buf[:n]))
		}
	}
	fmt.Printf("\nReceived %d samples\n", total)
}

func loopbackTest(cfg serial.PortConfig) {
	port, err := serial.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open port: %v", err)
	}
	defer port.Close()

	fmt.Printf("Loopback test on %s at %d baud\n", cfg.Device, cfg.BaudRate)
	fmt.Println("Connect pins 2 and 3 (TX and RX) with a jumper")

	for i := 0; i < 5; i++ {
		want := float64(i) * 1.25
		fmt.Printf("Sending: %g\n", want)

		if _, err := port.Write(generator.FormatLine(want)); err != nil {
			log.Printf("Write error: %v", err)
			continue
		}

		time.Sleep(100 * time.Millisecond)
		buf := make([]byte, 256)
		n, err := port.Read(buf)
		switch {
		case err != nil:
			fmt.Println(red("  ✗ No data received (error: %v)", err))
		case n == 0:
			fmt.Println(red("  ✗ No data received (timeout)"))
		default:
			values := acquisition.Decode(buf[:n])
			if len(values) == 1 && values[0] == want {
				fmt.Println(green("  ✓ Loopback OK: %g", values[0]))
			} else {
				fmt.Println(yellow("  ? Received different: %q", buf[:n]))
			}
		}

		time.Sleep(1 * time.Second)
	}
}
