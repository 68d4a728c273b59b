package config

import (
	"os/exec"
	"reflect"
	"strconv"
)

// Command is an argv, e.g. ["ffmpeg", "-i", "/dev/video0", "-f", "rawvideo", "-"].
type Command []string

func (c Command) Empty() bool {
	return len(c) == 0
}

func (c Command) ToCommand() (*exec.Cmd, error) {
	if len(c) == 0 {
		return nil, nil
	}

	return exec.Command(c[0], c[1:]...), nil
}

// TagString holds driver specific options in struct tag syntax, e.g. `unavailable:"true"`.
type TagString reflect.StructTag

func (d TagString) Get(key string) string {
	return reflect.StructTag(d).Get(key)
}

type ExtMap map[string]any

type SerialPortExt ExtMap

func (e SerialPortExt) GetBaud(defaultValue int) (int, error) {
	v, ok := e["baud"]
	if !ok {
		return defaultValue, nil
	}

	switch baud := v.(type) {
	case string:
		return strconv.Atoi(baud)
	case int64:
		return int(baud), nil
	}

	return defaultValue, nil
}
