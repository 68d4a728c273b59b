package sensor

import (
	"fmt"
)

// RawFrame is a Frame backed by a byte slice owned by the frame.
type RawFrame struct {
	desc Description
	data []byte
}

func NewRawFrame(desc Description, data []byte) (*RawFrame, error) {
	if len(data) != desc.Size() {
		return nil, fmt.Errorf("wrong frame length (exp: %d, got %d)", desc.Size(), len(data))
	}
	return &RawFrame{desc: desc, data: data}, nil
}

func (f *RawFrame) Description() Description {
	return f.desc
}

func (f *RawFrame) RawLen() int {
	return len(f.data)
}

func (f *RawFrame) CopyRawFrameDataTo(dst []byte) error {
	if len(dst) < len(f.data) {
		return fmt.Errorf("%w: %d < %d", ErrBufferTooSmall, len(dst), len(f.data))
	}
	copy(dst, f.data)
	return nil
}
