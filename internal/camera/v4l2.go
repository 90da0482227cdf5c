// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package camera

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultDevice is the first video device on Linux.
const DefaultDevice = "/dev/video0"

// V4L2 ABI values from linux/videodev2.h. vidiocQueryCap is _IOR('V', 0, struct v4l2_capability).
const (
	vidiocQueryCap   = 0x80685600
	capVideoCapture  = 0x00000001
	capDeviceCaps    = 0x80000000
	capabilitySizeOf = 104
)

// v4l2Capability mirrors struct v4l2_capability.
type v4l2Capability struct {
	Driver       [16]byte
	Card         [32]byte
	BusInfo      [32]byte
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
	Reserved     [3]uint32
}

// canCapture reports whether the opened node provides video capture. Drivers that report per
// node capabilities are judged by those, since Capabilities covers the whole physical device.
func (c v4l2Capability) canCapture() bool {
	caps := c.Capabilities
	if caps&capDeviceCaps != 0 {
		caps = c.DeviceCaps
	}
	return caps&capVideoCapture != 0
}

func queryCapability(fd int) (v4l2Capability, error) {
	var capability v4l2Capability
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), vidiocQueryCap, uintptr(unsafe.Pointer(&capability)))
	if errno != 0 {
		return capability, errno
	}
	return capability, nil
}

// V4L2Provider opens a Video4Linux device node.
type V4L2Provider struct {
	device string
}

// NewV4L2Provider returns a provider for the given device node. An empty device selects
// DefaultDevice.
func NewV4L2Provider(device string) *V4L2Provider {
	if device == "" {
		device = DefaultDevice
	}
	return &V4L2Provider{device: device}
}

// Open opens the device node. It fails unless the node is a character device that answers
// VIDIOC_QUERYCAP with the video capture capability.
func (p *V4L2Provider) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fd, err := unix.Open(p.device, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrCameraUnavailable, p.device, err)
	}

	var stat unix.Stat_t
	if err = unix.Fstat(fd, &stat); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: failed to stat %s: %w", ErrCameraUnavailable, p.device, err)
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFCHR {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %s is not a character device", ErrCameraUnavailable, p.device)
	}

	capability, err := queryCapability(fd)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %s is not a video device: %w", ErrCameraUnavailable, p.device, err)
	}
	if !capability.canCapture() {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %s does not support video capture", ErrCameraUnavailable, p.device)
	}
	return &deviceStream{device: p.device, fd: fd}, nil
}

type deviceStream struct {
	device string
	fd     int
	once   sync.Once
}

func (s *deviceStream) Device() string {
	return s.device
}

func (s *deviceStream) Close() error {
	var err error
	s.once.Do(func() {
		err = unix.Close(s.fd)
	})
	return err
}
