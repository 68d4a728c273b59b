package main

import (
	"context"
	"fmt"
	"github.com/allape/colorfwd/config"
	"github.com/allape/colorfwd/factory"
	"github.com/allape/colorfwd/forwarder"
	"github.com/allape/colorfwd/sensor"
	"github.com/allape/colorfwd/server"
	"github.com/allape/gogger"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

var l = gogger.New("main")

func main() {
	err := run()
	if err != nil {
		l.Error().Println(err)
		os.Exit(1)
	}
}

func run() error {
	conf, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("get config: %w", err)
	}

	s, err := factory.SensorFromConfig(conf)
	if err != nil {
		return fmt.Errorf("sensor from config: %w", err)
	}

	p, err := factory.PublisherFromConfig(conf)
	if err != nil {
		return fmt.Errorf("publisher from config: %w", err)
	}
	defer func() {
		_ = p.Close()
	}()

	fwd, err := forwarder.New(s, p)
	if err != nil {
		return fmt.Errorf("new forwarder: %w", err)
	}
	defer func() {
		err := fwd.Close()
		if err != nil {
			l.Error().Println("close forwarder:", err)
		}
	}()

	fwd.OnFrameArrived(func(frame sensor.Frame) {
		err := fwd.Forward(frame.RawLen(), frame)
		if err != nil {
			l.Error().Println("forward frame:", err)
		}
	})

	desc, err := conf.Sensor.Description()
	if err != nil {
		return err
	}

	options := server.Options{
		Addr:        conf.Server.Addr,
		Path:        conf.Server.Path,
		Cors:        conf.Server.Cors,
		Description: desc,
		Stats:       p,
	}
	if stream, ok := p.(http.Handler); ok {
		options.Stream = stream
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	l.Info().Println("started")

	err = server.New(options).Run(ctx)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	l.Info().Println("exiting")

	return nil
}
