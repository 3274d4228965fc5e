package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/viper"
	"vaultconnector/engine/actors"
	"vaultconnector/engine/chain"
	"vaultconnector/engine/connector"
	"vaultconnector/engine/library"
)

const (
	escrowAddress  = "0x00000000000000000000000000000000000e5c00"
	lendingAddress = "0x0000000000000000000000000000000000010a00"
)

func main() {
	// Various aspects of this application require global and local settings. To keep things
	// clean and tidy we put these settings in a Viper configuration.
	conf := viper.New()
	actors.InitConfig(conf)
	actors.SetConfig(conf)
	deadlock.Opts.DeadlockTimeout = conf.GetDuration("deadlockTimeout")

	config, err := connector.LoadConfig(conf)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	host := chain.New()
	c, err := connector.New(host, config)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	terminateChan := make(chan struct{})
	actors.SetTerminateChan(terminateChan)
	if conf.GetBool("persistState") {
		if err := c.Start(context.Background()); err != nil {
			library.LogCLI(err.Error(), 0)
			os.Exit(1)
		}
	}
	d, err := deploy(c)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	if conf.GetBool("firstRun") {
		if err := d.run(context.Background()); err != nil {
			library.LogCLI(fmt.Sprintf("demo scenario failed: %s", err), 1)
		}
		conf.Set("firstRun", false)
		if err := conf.WriteConfig(); err != nil {
			library.LogCLI(err.Error(), 2)
		}
	}
	interrupt := make(chan struct{})
	go cliListener(d, interrupt)
	<-interrupt
	close(terminateChan)
	actors.GetWaitGroup().Wait()
	fmt.Println("Bye")
}
