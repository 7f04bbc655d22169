// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Command ftlsimctl drives a simulated NAND FTL from a synthetic trace
// or a built-in profile and reports timing and garbage-collection
// statistics, the reference driver for the ftlsim packages.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
	"golang.org/x/sys/unix"
	"go.uber.org/automaxprocs/maxprocs"

	ftlsim "github.com/dswarbrick/ftlsim"
	"github.com/dswarbrick/ftlsim/config"
	"github.com/dswarbrick/ftlsim/ftl"
	"github.com/dswarbrick/ftlsim/utils"
)

// sizeDefaultPartitions asks the kernel for this process's current CPU
// affinity mask and uses its popcount as the default partition count,
// the same way a real NVMe driver sizes its submission queue count to
// the host's visible CPUs.
func sizeDefaultPartitions() uint32 {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 1
	}
	n := set.Count()
	if n == 0 {
		return 1
	}
	return uint32(n)
}

func main() {
	undo, err := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	if err != nil {
		fmt.Fprintln(os.Stderr, "ftlsimctl: automaxprocs:", err)
	}
	defer undo()

	fmt.Printf("ftlsimctl -- NAND FTL simulator (%s on %s/%s, GOMAXPROCS=%d)\n",
		runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.GOMAXPROCS(0))

	hybrid := flag.Bool("hybrid", false, "run the hybrid SLC/QLC profile instead of the conventional one")
	profilePath := flag.String("profile", "", "path to a YAML profile (overrides -hybrid)")
	partitions := flag.Uint("partitions", 0, "namespace partition count (0 = size from CPU affinity)")
	nops := flag.Int("nops", 100000, "number of synthetic read/write commands to issue")
	writeFrac := flag.Float64("write-frac", 0.7, "fraction of synthetic commands that are writes")
	dumpStats := flag.Bool("stats", false, "dump per-partition stats as TOML after the run")
	seed := flag.Int64("seed", 1, "PRNG seed for the synthetic trace")
	flag.Parse()

	var profile config.Profile
	switch {
	case *profilePath != "":
		p, err := config.Load(*profilePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ftlsimctl:", err)
			os.Exit(1)
		}
		profile = *p
	case *hybrid:
		profile = config.Hybrid()
	default:
		profile = config.Conventional()
	}

	if *partitions > 0 {
		profile.Partitions = uint32(*partitions)
	} else if profile.Partitions == 0 {
		profile.Partitions = sizeDefaultPartitions()
	}

	fmt.Printf("profile %q: capacity=%s partitions=%d mode=%v\n",
		profile.Name, utils.FormatBytes(profile.CapacityBytes), profile.Partitions, profile.Input.Mode)

	ns := ftl.New(profile)
	runTrace(ns, *nops, *writeFrac, *seed)

	if *dumpStats {
		dumpPartitionStats(ns)
	}
}

// runTrace issues a synthetic, uniformly-random LPN trace against ns and
// prints the final simulated timestamp, standing in for a real
// dispatcher replaying a captured host I/O trace.
func runTrace(ns *ftl.Namespace, nops int, writeFrac float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	var now uint64
	total := ns.TotalLPNs()

	for i := 0; i < nops; i++ {
		lpn := ftlsim.LPN(uint64(rng.Int63()) % total)
		cmdType := ftl.CmdRead
		if rng.Float64() < writeFrac {
			cmdType = ftl.CmdWrite
		}

		end, err := ns.ProcessCommand(ftl.Command{Type: cmdType, LPN: lpn, Stime: now})
		if err != nil {
			continue
		}
		now = end
	}

	fmt.Printf("issued %d commands, final simulated time = %d ns (%.3f ms)\n", nops, now, float64(now)/1e6)
}

// statsReport is the TOML-serializable shape of one run's stats dump.
type statsReport struct {
	Partitions []ftl.Stats `toml:"partition"`
}

func dumpPartitionStats(ns *ftl.Namespace) {
	report := statsReport{}
	for _, p := range ns.Partitions {
		report.Partitions = append(report.Partitions, p.Stats())
	}
	enc := toml.NewEncoder(os.Stdout)
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(os.Stderr, "ftlsimctl: toml encode:", err)
	}
}
