package publisher

// Publisher transmits a frame payload to the network. Delivery is
// at-most-once and unacknowledged: failures are the publisher's concern.
type Publisher interface {
	SendByteArray(payload []byte)
}

type Func func(payload []byte)

func (f Func) SendByteArray(payload []byte) {
	f(payload)
}

type Stats struct {
	Clients int    `json:"clients"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// StatsReporter is implemented by publishers that count their traffic.
type StatsReporter interface {
	Stats() Stats
}
