package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

)

func main() {
	out := flag.String("out", ".", "output directory")
	notes := flag.String("notes", "48,60,72", "comma separated MIDI notes")
	hold := flag.Float64("hold", 1, "seconds each note is held")
	tail := flag.Float64("tail", 1, "seconds of release after each note")
	sampleRate := flag.Int("sample-rate", 48000, "sample rate")
	attack := flag.Float64("attack", 0.01, "attack duration in seconds")
	release := flag.Float64("release", 0.5, "release duration in seconds")
	seed := flag.Int64("seed", 1, "seed of the noise sources")
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	kinds, err := parseKinds(flag.Args())
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	phrase, err := parseNotes(*notes)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	o := &options{
		sampleRate: *sampleRate,
		notes:      phrase,
		hold:       *hold,
		tail:       *tail,
		attack:     *attack,
		release:    *release,
		seed:       *seed,
	}
	if err := o.validate(); err != nil {
		log.Fatalf("error: %v\n", err)
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, kind := range kinds {
		kind := kind
		g.Go(func() error {
			file := filepath.Join(*out, kind.String()+".wav")
			if err := renderFile(file, kind, o); err != nil {
				return err
			}
			log.Printf("saved %s\n", file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully rendered all sources.")
}
