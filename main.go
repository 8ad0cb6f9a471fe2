// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/hexmire/subtail/infrastructure/config"
	"github.com/hexmire/subtail/infrastructure/os/signal"
	"github.com/hexmire/subtail/util/panics"
	"github.com/hexmire/subtail/version"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		fmt.Println(version.Version())
		return nil
	}

	defer panics.HandlePanic(log, nil)

	interrupt := signal.InterruptListener()

	daemon, err := newSubtaild(cfg)
	if err != nil {
		return err
	}
	daemon.start(cfg)

	<-interrupt
	daemon.stop()
	daemon.waitForShutdown()

	return nil
}
