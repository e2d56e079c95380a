package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gissleh/ircbot"
	"github.com/gissleh/ircbot/handlers"
	"github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
)

var flagConfig = flag.String("config", "", "A YAML config file")
var flagNick = flag.String("nick", "Test", "The client nick")
var flagAlts = flag.String("alts", "Test2,Test3,Test4,Test5", "Alternative nicks to use")
var flagUser = flag.String("user", "test", "The client user/ident")
var flagPass = flag.String("pass", "", "The server password")
var flagServer = flag.String("server", "localhost:6667", "The server to connect to")
var flagSsl = flag.Bool("ssl", false, "Whether to connect securely")
var flagSkipVerify = flag.Bool("skip-verify", false, "Skip SSL verification")
var flagDebug = flag.Bool("debug", false, "Log every event")

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flag.Parse()

	logger := log15.New("module", "ircrepl")
	level := log15.LvlInfo
	if *flagDebug {
		level = log15.LvlDebug
	}
	logger.SetHandler(log15.LvlFilterHandler(level, log15.StderrHandler))

	config := ircbot.Config{
		Nick:                *flagNick,
		User:                *flagUser,
		Alternatives:        strings.Split(*flagAlts, ","),
		Password:            *flagPass,
		Server:              *flagServer,
		TLS:                 *flagSsl,
		SkipSSLVerification: *flagSkipVerify,
	}
	if *flagConfig != "" {
		var err error
		config, err = ircbot.LoadConfig(*flagConfig)
		if err != nil {
			logger.Crit("Failed to load config", "err", err)
			os.Exit(1)
		}
	}
	config.Logger = logger
	config.Registerer = prometheus.DefaultRegisterer

	client, err := ircbot.New(ctx, config)
	if err != nil {
		logger.Crit("Invalid config", "err", err)
		os.Exit(1)
	}

	client.AddListener(handlers.CTCP)
	client.AddListener(handlers.Input)
	if *flagDebug {
		client.AddListener(handlers.Debug(logger))
	}

	target := ""
	client.AddListener(func(event *ircbot.Event, client *ircbot.Client) error {
		switch event.Name() {
		case "input.target":
			target = strings.TrimSpace(event.Text())
			logger.Info("Set target", "target", target)
		case "listener.exception":
			if event.Original().Kind() == "input" {
				fmt.Fprintln(os.Stderr, event.Err())
			}
		case "packet.privmsg", "packet.notice", "ctcp.action":
			fmt.Printf("[%s] <%s> %s\n", event.Target(), event.Nick(), event.Text())
		case "dcc.send", "dcc.chat":
			fmt.Printf("[dcc] %s offers %s\n", event.Nick(), event.DCC())
		case "client.disconnect":
			cancel()
		}

		return nil
	})

	connectCtx, connectCancel := context.WithTimeout(ctx, time.Minute)
	err = client.Connect(connectCtx, "")
	connectCancel()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to connect: %s\n", err)
		os.Exit(1)
	}

	go func() {
		exitSignal := make(chan os.Signal, 1)
		signal.Notify(exitSignal, os.Interrupt, syscall.SIGTERM)

		select {
		case <-exitSignal:
			_ = client.Quit("Goodnight.")
		case <-ctx.Done():
		}
	}()

	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				_ = client.Quit("EOF")
				return
			}

			client.Emit(handlers.NewInput(strings.TrimRight(line, "\r\n"), target))
		}
	}()

	<-ctx.Done()
	client.Destroy()
}
