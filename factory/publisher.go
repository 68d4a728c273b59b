package factory

import (
	"fmt"
	"github.com/allape/colorfwd/config"
	"github.com/allape/colorfwd/publisher"
	"github.com/allape/colorfwd/publisher/serialport"
	"github.com/allape/colorfwd/publisher/websocket"
	"io"
)

const DefaultBaud = 115200

type Publisher interface {
	publisher.Publisher
	publisher.StatsReporter
	io.Closer
}

func PublisherFromConfig(conf config.Config) (Publisher, error) {
	switch conf.Publisher.Type {
	case config.PublisherWebsocket:
		l.Info().Println("publisher driver is websocket:", conf.Server.Addr+conf.Server.Path)
		return websocket.New(&websocket.Options{
			Cors: conf.Server.Cors,
		}), nil
	case config.PublisherSerialPort:
		if conf.Publisher.Src == "" {
			return nil, fmt.Errorf("publisher source is empty")
		}
		baud, err := conf.Publisher.Ext.GetBaud(DefaultBaud)
		if err != nil {
			return nil, err
		}
		l.Info().Println("publisher driver is serial port:", conf.Publisher.Src, baud)
		return serialport.New(conf.Publisher.Src, baud), nil
	}

	return nil, fmt.Errorf("unknown publisher driver: %s", conf.Publisher.Type)
}
