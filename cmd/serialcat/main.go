package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Station-Manager/webserial"
)

func main() {
	os.Exit(run())
}

func run() int {
	device := flag.String("device", "/dev/ttyUSB0", "serial device path")
	baud := flag.Int("baud", 115200, "baud rate")
	dataBits := flag.Int("databits", 8, "data bits (7 or 8)")
	parity := flag.String("parity", "N", "parity (N,E,O)")
	stopBits := flag.Int("stopbits", 1, "stop bits (1 or 2)")
	exportDir := flag.String("export-dir", ".", "directory :save writes to")
	list := flag.Bool("list", false, "list serial ports and exit")
	lang := flag.String("lang", "en", "message language (en, ru)")
	verbose := flag.Bool("verbose", false, "log to stderr")

	flag.Parse()

	if *list {
		ports, err := webserial.ListKnownPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list: %v\n", err)
			return 1
		}
		if len(ports) == 0 {
			fmt.Println("no serial ports found")
		}
		for _, p := range ports {
			fmt.Println(p.Label())
		}
		return 0
	}

	cfg := webserial.PortConfig{
		BaudRate: webserial.BaudRate(*baud),
		DataBits: webserial.DataBits(*dataBits),
		StopBits: webserial.StopBits(*stopBits),
	}

	// map parity
	switch strings.ToUpper(*parity) {
	case "N":
		cfg.Parity = webserial.ParityNone
	case "E":
		cfg.Parity = webserial.ParityEven
	case "O":
		cfg.Parity = webserial.ParityOdd
	default:
		fmt.Fprintf(os.Stderr, "unsupported parity %q (use N,E,O)\n", *parity)
		return 2
	}

	logger := zerolog.Nop()
	if *verbose {
		l, closer, err := webserial.NewLogger(webserial.LogConfig{Level: "debug", Format: "console"})
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: %v\n", err)
			return 1
		}
		defer closer.Close()
		logger = l
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := webserial.NewSession(
		webserial.WithLogger(logger),
		webserial.WithLanguage(webserial.MatchLanguage(*lang)),
		webserial.WithObserver(webserial.NewMultiObserver(
			webserial.ObserverFunc(printEvent),
			stopOnDisconnect(cancel),
		)),
	)

	port, err := webserial.RequestPort(*device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "port: %v\n", err)
		return 1
	}
	if err := session.Connect(port, cfg); err != nil {
		// already printed as a notification
		return 1
	}
	defer session.Close()

	downloader := webserial.DirDownloader{Dir: *exportDir}
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "stdin error: %v\n", err)
		}
	}()

	fmt.Fprintln(os.Stderr, "Type text to send. Commands: :pause :clear :save :status :quit")
	for {
		select {
		case <-ctx.Done():
			return 0
		case line, ok := <-lines:
			if !ok {
				return 0
			}
			if !runCommand(ctx, session, downloader, line) {
				return 0
			}
		}
	}
}

// stopOnDisconnect cancels the console loop once the session is
// Disconnected, whether by end of stream, a read error or :quit.
func stopOnDisconnect(cancel context.CancelFunc) webserial.Observer {
	return webserial.ObserverFunc(func(_ context.Context, ev webserial.Event) {
		if st, ok := ev.(webserial.StatusChanged); ok && st.State == webserial.StateDisconnected {
			cancel()
		}
	})
}

// runCommand handles one input line and reports whether to keep going.
// Failures are already printed by printEvent.
func runCommand(ctx context.Context, session *webserial.Session, dl webserial.Downloader, line string) bool {
	switch strings.TrimSpace(line) {
	case ":quit":
		return false
	case ":pause":
		session.TogglePause()
	case ":clear":
		session.Clear()
	case ":save":
		_ = session.ExportToFile(ctx, dl)
	case ":status":
		snap := session.Snapshot()
		fmt.Fprintf(os.Stderr, "state=%s paused=%v bytes=%d\n", snap.State, snap.Paused, snap.BytesReceived)
	default:
		_ = session.Send(ctx, line)
	}
	return session.State() == webserial.StateConnected
}

func printEvent(_ context.Context, ev webserial.Event) {
	switch e := ev.(type) {
	case webserial.DataUpdated:
		if e.Appended != "" {
			fmt.Print(e.Appended)
		}
	case webserial.Notification:
		fmt.Fprintf(os.Stderr, "[%s] %s\n", e.Level, e.Message)
	}
}
