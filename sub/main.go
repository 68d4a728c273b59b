package main

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/allape/colorfwd/sensor"
	"github.com/allape/colorfwd/server"
	"github.com/allape/colorfwd/subscriber"
	"github.com/allape/gogger"
	"image/jpeg"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

var l = gogger.New("sub")

const (
	DefaultURL = "ws://127.0.0.1:8080/frames"
	Snapshot   = "frame.jpg"
)

func main() {
	streamURL := DefaultURL
	if len(os.Args) > 1 {
		streamURL = os.Args[1]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	desc, err := FetchDescription(ctx, streamURL)
	if err != nil {
		l.Warn().Println("no frame description, snapshot disabled:", err)
	}

	s, err := subscriber.Dial(ctx, streamURL)
	if err != nil {
		l.Error().Println(err)
		os.Exit(1)
	}

	var locker sync.Mutex
	var latest []byte
	count := 0

	s.SetCallback(func(frame []byte) {
		locker.Lock()
		defer locker.Unlock()
		latest = frame
		count++
	})

	err = s.Start()
	if err != nil {
		l.Error().Println(err)
		os.Exit(1)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-s.Done():
			l.Warn().Println("stream ended:", s.Err())
			break loop
		case <-ticker.C:
			locker.Lock()
			l.Info().Printf("%d fps, %d bytes per frame", count, len(latest))
			count = 0
			locker.Unlock()
		}
	}

	_ = s.Stop()

	locker.Lock()
	frame := latest
	locker.Unlock()

	if frame == nil || desc == nil {
		return
	}

	err = SaveSnapshot(Snapshot, *desc, frame)
	if err != nil {
		l.Error().Println("save snapshot:", err)
		os.Exit(1)
	}
	l.Info().Println("saved", Snapshot)
}

// FetchDescription asks the /status endpoint next to streamURL for the frame layout.
func FetchDescription(ctx context.Context, streamURL string) (*sensor.Description, error) {
	u, err := url.Parse(streamURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	default:
		u.Scheme = "http"
	}
	u.Path = "/status"

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status: %s", resp.Status)
	}

	var status server.Status
	err = json.NewDecoder(resp.Body).Decode(&status)
	if err != nil {
		return nil, err
	}

	err = status.Sensor.Validate()
	if err != nil {
		return nil, err
	}

	return &status.Sensor, nil
}

func SaveSnapshot(name string, desc sensor.Description, frame []byte) error {
	img, err := sensor.Image(desc, frame)
	if err != nil {
		return err
	}

	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}
