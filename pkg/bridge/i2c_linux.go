// Copyright 2020 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

//go:build linux

package bridge

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/binkynet/SketchKit/pkg/util"
)

const (
	// From /usr/include/linux/i2c-dev.h
	i2cSlave = 0x0703
)

type i2cBus struct {
	location string
	devices  map[uint8]*i2cDevice
	queue    chan func()
}

// NewI2CBus returns accessors the the I2C bus at the given location.
func NewI2CBus(location string) (I2CBus, error) {
	if _, err := os.Stat(location); err != nil {
		return nil, maskAny(err)
	}
	b := &i2cBus{
		location: location,
		devices:  make(map[uint8]*i2cDevice),
		queue:    make(chan func()),
	}
	go b.queueProcessor(context.Background())
	return b, nil
}

// Execute an option on the bus.
func (b *i2cBus) Execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	l := util.SpinLock{}
	done := false
	var result error

	req := func() {
		err := b.execute(ctx, address, op)

		l.Lock()
		result = err
		done = true
		l.Unlock()
	}

	select {
	case b.queue <- req:
		// Request is on the queue
	case <-ctx.Done():
		return ctx.Err()
	}

	// Wait until result is available
	for {
		l.Lock()
		isDone := done
		l.Unlock()

		if isDone {
			return result
		}
		runtime.Gosched()
	}
}

// Process bus requests from the queue until the given context is canceled.
func (b *i2cBus) queueProcessor(ctx context.Context) {
	// Ensure we're always using the same OS thread
	runtime.LockOSThread()

	for {
		select {
		case req, ok := <-b.queue:
			if !ok {
				return
			}
			req()
		case <-ctx.Done():
			return
		}
	}
}

// Execute an option on the bus.
func (b *i2cBus) execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	label := strconv.Itoa(int(address))
	i2cExecuteCounters.WithLabelValues(label).Inc()

	dev, err := b.openDevice(address)
	if err != nil {
		i2cExecuteErrorCounters.WithLabelValues(label).Inc()
		return fmt.Errorf("openDevice(%d) failed: %w", address, err)
	}
	if err := op(ctx, dev); err != nil {
		// Device call failed, reopen on next use
		dev.closeFile()
		delete(b.devices, address)
		i2cExecuteErrorCounters.WithLabelValues(label).Inc()
		return fmt.Errorf("execute operation in i2c bus failed: %w", err)
	}
	return nil
}

// Open a connection to a device at the given address.
func (b *i2cBus) openDevice(address uint8) (*i2cDevice, error) {
	if d, found := b.devices[address]; found {
		return d, nil
	}
	d, err := newI2CDevice(b.location, address)
	if err != nil {
		return nil, err
	}
	b.devices[address] = d
	return d, nil
}

// Close the bus and all devices on it
func (b *i2cBus) Close() error {
	done := false
	l := util.SpinLock{}
	var ae aerr.AggregateError
	b.queue <- func() {
		defer func() {
			l.Lock()
			done = true
			l.Unlock()
		}()

		for addr, d := range b.devices {
			if err := d.closeFile(); err != nil {
				ae.Add(err)
			}
			delete(b.devices, addr)
		}
	}

	for {
		l.Lock()
		isDone := done
		l.Unlock()
		if isDone {
			close(b.queue)
			return ae.AsError()
		}
		runtime.Gosched()
	}
}

type i2cDevice struct {
	address uint8
	mutex   sync.Mutex
	file    *os.File
}

// newI2CDevice opens the bus device file and selects the given address.
func newI2CDevice(location string, address uint8) (*i2cDevice, error) {
	f, err := os.OpenFile(location, os.O_RDWR, os.ModeDevice)
	if err != nil {
		return nil, maskAny(err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(address)); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "setting address 0x%0x failed", address)
	}
	return &i2cDevice{
		address: address,
		file:    f,
	}, nil
}

func (d *i2cDevice) closeFile() error {
	return d.file.Close()
}

// Read a block of data directly from the device (/dev/...)
func (d *i2cDevice) ReadDevice(data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	n, err := d.file.Read(data)
	if err != nil {
		return errors.Wrapf(err, "read[0x%0x] failed", d.address)
	}
	if n != len(data) {
		return fmt.Errorf("expected to read %d bytes, actual read bytes is %d", len(data), n)
	}
	return nil
}

// Write a block of data directly to the device (/dev/...)
func (d *i2cDevice) WriteDevice(data []byte) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	n, err := d.file.Write(data)
	if err != nil {
		return errors.Wrapf(err, "write[0x%0x] failed", d.address)
	}
	if n != len(data) {
		return fmt.Errorf("expected to write %d bytes, actual written bytes is %d", len(data), n)
	}
	return nil
}
