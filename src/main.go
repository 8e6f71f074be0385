package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jinjor/whisper/src/audio"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		backend    = flag.String("backend", "oto", "output backend: oto|malgo")
		sockFile   = flag.String("sock", "/tmp/whisper.sock", "unix socket of the control surface (empty to disable)")
		midiPort   = flag.Int("midi-port", 0, "index of the MIDI IN port (-1 to disable)")
		keys       = flag.Bool("keys", false, "play from the computer keyboard")
		gate       = flag.Duration("gate", 400*time.Millisecond, "note length when playing from the keyboard")
		seed       = flag.Int64("seed", 1, "seed of the noise sources")
	)
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	config := audio.DefaultConfig()
	config.SampleRate = *sampleRate
	config.Backend = audio.Backend(*backend)
	config.Seed = *seed
	a, err := audio.NewAudio(config)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer a.Close()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func(ctx context.Context) {
		select {
		case sig := <-signalCh:
			log.Printf("Caught signal %s: shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Start(ctx)
	})
	if *sockFile != "" {
		g.Go(func() error {
			return withIPCConnection(ctx, *sockFile, func(conn net.Conn) error {
				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return receiveCommands(ctx, conn, a.CommandCh)
				})
				g.Go(func() error {
					return sendReports(ctx, conn, a)
				})
				g.Go(func() error {
					// unblocks receiveCommands once the reports stop
					<-ctx.Done()
					if err := conn.SetReadDeadline(time.Now()); err != nil {
						log.Printf("error while interrupting reads: %v", err)
					}
					return nil
				})
				return g.Wait()
			})
		})
	}
	if *midiPort >= 0 {
		g.Go(func() error {
			return audio.ListenToMidiIn(ctx, *midiPort, a.AddMidiEvent)
		})
	}
	if *keys {
		g.Go(func() error {
			return playKeys(ctx, cancel, a, *gate)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

var errDisconnected = errors.New("control surface disconnected")

// withIPCConnection serves one control surface at a time until ctx is done.
func withIPCConnection(ctx context.Context, sockFile string, f func(net.Conn) error) error {
	os.Remove(sockFile)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", sockFile)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing IPC...")
		os.Remove(sockFile)
	}()
	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Printf("error while closing listener: %v", err)
		}
	}()
	log.Printf("start listening %s...\n", sockFile)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := withConn(ctx, conn, f); err != nil {
			return err
		}
	}
}

func withConn(ctx context.Context, conn net.Conn, f func(net.Conn) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		// unblocks reads and writes on shutdown
		<-ctx.Done()
		if err := conn.Close(); err != nil {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	err := f(conn)
	if errors.Is(err, errDisconnected) {
		log.Println(err)
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func receiveCommands(ctx context.Context, conn net.Conn, commandCh chan<- []string) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF {
			break loop
		}
		if err != nil {
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		command, err := parseCommand(string(line))
		if err != nil {
			log.Printf("failed to parse command %q: %v\n", line, err)
			line = line[:0]
			continue
		}
		log.Printf("received: %s\n", string(line))
		line = line[:0]
		if len(command) > 0 {
			commandCh <- command
		}
	}
	log.Println("receiveCommands() ended.")
	return errDisconnected
}

func parseCommand(line string) ([]string, error) {
	items := strings.Fields(line)
	for i, item := range items {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		items[i] = escaped
	}
	return items, nil
}

func sendReports(ctx context.Context, conn net.Conn, audio *audio.Audio) error {
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
	audio.Changes.Add("params")
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() ended.")
			return nil
		case <-t.C:
		}
		if audio.Changes.Has("params") {
			audio.Changes.Delete("params")
			if _, err := conn.Write([]byte("params " + string(audio.ToJSON()) + "\n")); err != nil {
				return fmt.Errorf("%w: %v", errDisconnected, err)
			}
		}
		result := audio.GetFFT()
		if result == nil {
			continue
		}
		s := "fft"
		for _, value := range result {
			s += " " + strconv.FormatFloat(value, 'f', 6, 64)
		}
		if _, err := conn.Write([]byte(s + "\n")); err != nil {
			return fmt.Errorf("%w: %v", errDisconnected, err)
		}
	}
}
