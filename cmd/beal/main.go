// Copyright 2026 The BealSearch Authors
// This file is part of BealSearch.
//
// BealSearch is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// BealSearch is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with BealSearch. If not, see <http://www.gnu.org/licenses/>.

// beal is the command-line client of the Beal counterexample sieve.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"gopkg.in/urfave/cli.v1"

	"github.com/BealFoundation/BealSearch/params"
	"github.com/BealFoundation/BealSearch/search"
)

const clientIdentifier = "beal"

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""

	app = cli.NewApp()

	maxBaseFlag = cli.UintFlag{
		Name:  "maxb",
		Usage: "Largest base swept for a and b (and the implied c)",
		Value: uint(params.DefaultMaxBase),
	}
	maxPowFlag = cli.UintFlag{
		Name:  "maxp",
		Usage: "Largest exponent swept for x and y (and the implied z)",
		Value: uint(params.DefaultMaxPow),
	}
	moduliFlag = cli.StringFlag{
		Name:  "moduli",
		Usage: "Comma-separated sieve moduli (default: the ten largest 32-bit primes)",
	}
	threadsFlag = cli.IntFlag{
		Name:  "threads",
		Usage: "Number of sweep goroutines (0 = all CPUs)",
	}
	fromFlag = cli.UintFlag{
		Name:  "from",
		Usage: "First a partition to sweep",
		Value: uint(params.DefaultFrom),
	}
	toFlag = cli.UintFlag{
		Name:  "to",
		Usage: "Last a partition to sweep (0 = maxb)",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	metricsFlag = cli.BoolFlag{
		Name:  "metrics",
		Usage: "Enable throughput metrics collection",
	}
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	listenFlag = cli.StringFlag{
		Name:  "listen",
		Usage: "Manager listen address",
		Value: params.DefaultManagerAddr,
	}
	connectFlag = cli.StringFlag{
		Name:  "connect",
		Usage: "Manager address to join",
		Value: params.DefaultManagerAddr,
	}
	pollFlag = cli.DurationFlag{
		Name:  "poll",
		Usage: "Wait between polls of a drained manager",
		Value: 10 * time.Second,
	}
)

var searchCommand = cli.Command{
	Action:    localSearch,
	Name:      "search",
	Usage:     "Sweep a range of partitions locally",
	ArgsUsage: "",
	Flags:     []cli.Flag{threadsFlag, fromFlag, toFlag},
	Category:  "SEARCH COMMANDS",
	Description: `
Builds one residue table per sieve modulus and sweeps the partitions
a = from..to across the configured number of goroutines. Quadruples that
survive every modulus are printed; survival is a necessary condition only,
so every printed quadruple still needs exact big-integer verification.`,
}

func init() {
	app.Name = clientIdentifier
	app.Usage = "modular sieve search for Beal conjecture counterexamples"
	app.Version = version()
	app.Flags = []cli.Flag{
		maxBaseFlag,
		maxPowFlag,
		moduliFlag,
		verbosityFlag,
		metricsFlag,
		configFileFlag,
	}
	app.Commands = []cli.Command{
		searchCommand,
		managerCommand,
		workerCommand,
		dumpConfigCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		log.Root().SetHandler(log.LvlFilterHandler(
			log.Lvl(ctx.GlobalInt(verbosityFlag.Name)),
			log.StreamHandler(os.Stderr, log.TerminalFormat(true))))
		if ctx.GlobalBool(metricsFlag.Name) {
			metrics.Enabled = true
		}
		return nil
	}
}

func version() string {
	if gitCommit != "" {
		return "1.0.0-" + gitCommit[:8]
	}
	return "1.0.0"
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func localSearch(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	from, to, err := partitionRange(ctx, cfg.Search.MaxBase)
	if err != nil {
		return err
	}

	s, err := search.New(cfg.Search)
	if err != nil {
		return err
	}
	defer s.Close()

	abort := make(chan struct{})
	go abortOnInterrupt(func() { close(abort) })

	found := make(chan search.Result, 64)
	runErr := make(chan error, 1)
	go func() {
		runErr <- s.Run(ctx.Int(threadsFlag.Name), from, to, abort, found)
		close(found)
	}()

	total := int(to - from + 1)
	done := 0
	for res := range found {
		done++
		for _, p := range res.Hits {
			fmt.Printf("%d^%d + %d^%d survives all moduli (needs exact verification)\n",
				p.A, p.X, p.B, p.Y)
		}
		if done%100 == 0 || done == total {
			log.Info("Sweep progress", "done", done, "total", total, "rate", s.Rate())
		}
	}
	return <-runErr
}

// partitionRange resolves the from/to flags against the configured bounds.
func partitionRange(ctx *cli.Context, maxb uint32) (uint32, uint32, error) {
	from := uint32(ctx.Uint(fromFlag.Name))
	to := uint32(ctx.Uint(toFlag.Name))
	if to == 0 {
		to = maxb
	}
	if from < 1 || from > to || to > maxb {
		return 0, 0, fmt.Errorf("invalid partition range [%d, %d] with maxb %d", from, to, maxb)
	}
	return from, to, nil
}

// abortOnInterrupt runs fn on the first SIGINT or SIGTERM.
func abortOnInterrupt(fn func()) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)
	<-sigc
	log.Info("Got interrupt, shutting down")
	fn()
}
