package factory

import (
	"fmt"
	"github.com/allape/colorfwd/config"
	"github.com/allape/colorfwd/sensor"
	"github.com/allape/colorfwd/sensor/dummy"
	"github.com/allape/colorfwd/sensor/shell"
)

func SensorFromConfig(conf config.Config) (sensor.Sensor, error) {
	desc, err := conf.Sensor.Description()
	if err != nil {
		return nil, err
	}

	switch conf.Sensor.Type {
	case config.SensorDummy:
		text := "colorfwd"
		if !conf.Sensor.Src.Empty() {
			text = conf.Sensor.Src[0]
		}
		l.Info().Println("sensor driver is dummy:", text)
		return dummy.NewSensor(text, &dummy.Options{
			Width:       desc.Width,
			Height:      desc.Height,
			Format:      desc.Format,
			FrameRate:   conf.Sensor.FrameRate,
			Unavailable: conf.Sensor.Ext.Get("unavailable") == "true",
		}), nil
	case config.SensorShell:
		if conf.Sensor.Src.Empty() {
			return nil, fmt.Errorf("sensor source is empty")
		}
		l.Info().Println("sensor driver is shell:", conf.Sensor.Src)
		return shell.NewSensor(conf.Sensor.Src, &shell.Options{
			Width:         desc.Width,
			Height:        desc.Height,
			Format:        desc.Format,
			SetupCommands: conf.Sensor.SetupCommands,
		}), nil
	}

	return nil, fmt.Errorf("unknown sensor driver: %s", conf.Sensor.Type)
}
