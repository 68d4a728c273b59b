package config

import (
	"errors"
	"fmt"
	"github.com/allape/colorfwd/envar"
	"github.com/allape/colorfwd/sensor"
	"github.com/allape/gogger"
	"github.com/pelletier/go-toml/v2"
	"os"
)

var l = gogger.New("config")

const DefaultConfigPath = "colorfwd.toml"

type SensorDriverType string

const (
	SensorDummy SensorDriverType = "dummy"
	SensorShell SensorDriverType = "shell"
)

type PublisherDriverType string

const (
	PublisherWebsocket  PublisherDriverType = "websocket"
	PublisherSerialPort PublisherDriverType = "serialport"
)

type Server struct {
	Addr string `toml:"addr"`
	Path string `toml:"path"`
	Cors bool   `toml:"cors"`
}

type Sensor struct {
	Type          SensorDriverType `toml:"type"`
	Src           Command          `toml:"src"`
	SetupCommands []Command        `toml:"setup_commands"`
	Width         int              `toml:"width"`
	Height        int              `toml:"height"`
	Format        string           `toml:"format"`
	FrameRate     float64          `toml:"frame_rate"`
	Ext           TagString        `toml:"ext"`
}

func (s Sensor) Description() (sensor.Description, error) {
	format, err := sensor.ParsePixelFormat(s.Format)
	if err != nil {
		return sensor.Description{}, err
	}
	desc := sensor.Description{Width: s.Width, Height: s.Height, Format: format}
	return desc, desc.Validate()
}

type Publisher struct {
	Type PublisherDriverType `toml:"type"`
	Src  string              `toml:"src"`
	Ext  SerialPortExt       `toml:"ext"`
}

type Config struct {
	Server    Server    `toml:"server"`
	Sensor    Sensor    `toml:"sensor"`
	Publisher Publisher `toml:"publisher"`
}

func Default() Config {
	return Config{
		Server: Server{
			Addr: ":8080",
			Path: "/frames",
		},
		Sensor: Sensor{
			Type:      SensorDummy,
			Width:     1920,
			Height:    1080,
			Format:    string(sensor.BGRA),
			FrameRate: 30,
		},
		Publisher: Publisher{
			Type: PublisherWebsocket,
		},
	}
}

func (c Config) Validate() error {
	if _, err := c.Sensor.Description(); err != nil {
		return fmt.Errorf("sensor: %w", err)
	}
	if c.Sensor.FrameRate <= 0 {
		return fmt.Errorf("sensor: invalid frame rate: %f", c.Sensor.FrameRate)
	}
	if c.Publisher.Type == PublisherWebsocket && c.Server.Path == "" {
		return errors.New("server: websocket path is empty")
	}
	return nil
}

func Parse(data []byte) (Config, error) {
	config := Default()

	err := toml.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}

	return config, config.Validate()
}

// GetConfig reads the file named by the first argument, COLORFWD_CONFIG,
// or DefaultConfigPath. A missing default file yields Default().
func GetConfig() (Config, error) {
	configFile := envar.Getenv(envar.ColorfwdConfig, "")
	explicit := configFile != ""
	if len(os.Args) > 1 {
		configFile = os.Args[1]
		explicit = true
	}
	if configFile == "" {
		configFile = DefaultConfigPath
	}

	l.Info().Println("reading config file:", configFile)

	configData, err := os.ReadFile(configFile)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			l.Warn().Println("config file not found, using defaults")
			config := Default()
			return config, config.Validate()
		}
		return Default(), err
	}

	config, err := Parse(configData)
	if err != nil {
		return config, err
	}

	l.Verbose().Println("use config:", config)

	return config, nil
}
