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

package main

import (
	"net"

	"gopkg.in/urfave/cli.v1"

	"github.com/BealFoundation/BealSearch/manager"
	"github.com/BealFoundation/BealSearch/worker"
)

var managerCommand = cli.Command{
	Action:    runManager,
	Name:      "manager",
	Usage:     "Serve search partitions to remote workers",
	ArgsUsage: "",
	Flags:     []cli.Flag{listenFlag, fromFlag},
	Category:  "SEARCH COMMANDS",
	Description: `
Listens for workers and hands out single-a partitions of the configured
search. A partition is re-issued until some worker completes it, so worker
crashes cost time, not coverage.`,
}

var workerCommand = cli.Command{
	Action:    runWorker,
	Name:      "worker",
	Usage:     "Join a distributed search as a sweep worker",
	ArgsUsage: "",
	Flags:     []cli.Flag{connectFlag, pollFlag},
	Category:  "SEARCH COMMANDS",
	Description: `
Connects to a manager, claims partitions and submits the sieve survivors.
The search bounds and moduli come from the manager, not from local flags.`,
}

func runManager(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet(listenFlag.Name) {
		cfg.Manager.Listen = ctx.String(listenFlag.Name)
	}
	if ctx.IsSet(fromFlag.Name) {
		cfg.Manager.From = uint32(ctx.Uint(fromFlag.Name))
	}

	m, err := manager.New(manager.Config{
		MaxBase: cfg.Search.MaxBase,
		MaxPow:  cfg.Search.MaxPow,
		Moduli:  cfg.Search.Moduli,
		From:    cfg.Manager.From,
	})
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.Manager.Listen)
	if err != nil {
		return err
	}
	go abortOnInterrupt(m.Close)
	return m.Serve(ln)
}

func runWorker(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.IsSet(connectFlag.Name) {
		cfg.Worker.Manager = ctx.String(connectFlag.Name)
	}
	if ctx.IsSet(pollFlag.Name) {
		cfg.Worker.Poll = ctx.Duration(pollFlag.Name)
	}

	w, err := worker.New(worker.Config{
		Manager: cfg.Worker.Manager,
		Poll:    cfg.Worker.Poll,
	})
	if err != nil {
		return err
	}
	abort := make(chan struct{})
	go abortOnInterrupt(func() { close(abort) })
	return w.Run(abort)
}
