// Command ultbench drives the cooperative scheduler through a churn
// workload (many threads created, yielding repeatedly, then destroyed)
// under each of the three policies, captures a CPU profile with
// runtime/pprof, and prints a short summary of it using
// github.com/google/pprof/profile — the same profile.Parse/profile.Write
// round trip pprof's own tooling uses, rather than hand-rolling a sample
// reader.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/google/pprof/profile"

	"defs"
	"ult"
)

func main() {
	threads := flag.Int("threads", 32, "number of worker threads to create per policy")
	yields := flag.Int("yields", 8, "number of times each worker yields before exiting")
	out := flag.String("profile", "", "optional path to write the raw pprof profile to")
	flag.Parse()

	var buf bytes.Buffer
	if err := pprof.StartCPUProfile(&buf); err != nil {
		log.Fatalf("ultbench: %v", err)
	}

	for _, alg := range []defs.Algorithm{defs.RoundRobin, defs.Priority, defs.FCFS} {
		runPolicy(alg, *threads, *yields)
	}

	pprof.StopCPUProfile()

	if *out != "" {
		if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
			log.Fatalf("ultbench: writing profile: %v", err)
		}
	}

	prof, err := profile.Parse(bytes.NewReader(buf.Bytes()))
	if err != nil {
		log.Fatalf("ultbench: parsing profile: %v", err)
	}
	summarize(prof)
}

func runPolicy(alg defs.Algorithm, threads, yields int) {
	var s ult.Scheduler
	s.Init(alg)

	for i := 0; i < threads; i++ {
		priority := i % 8
		s.Create(func(args [6]uint64) {
			n := int(args[0])
			for j := 0; j < n; j++ {
				s.Yield()
			}
		}, [6]uint64{uint64(yields)}, priority)
	}

	s.Schedule()
	fmt.Printf("%-10s ran %d threads to completion\n", alg, threads)
}

// summarize prints the sample types a pprof.StartCPUProfile capture
// produced, the same top-level information `pprof -tree` starts from.
func summarize(p *profile.Profile) {
	fmt.Printf("duration: %dns\n", p.DurationNanos)
	for _, st := range p.SampleType {
		fmt.Printf("sample type: %s (%s)\n", st.Type, st.Unit)
	}
	fmt.Printf("samples: %d\n", len(p.Sample))
}
