package frame

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

var (
	serviceUUID = mustParseUUID("7a230001-5475-a6a4-654c-8431f6ad49c4")
	txUUID      = mustParseUUID("7a230002-5475-a6a4-654c-8431f6ad49c4")
	rxUUID      = mustParseUUID("7a230003-5475-a6a4-654c-8431f6ad49c4")
)

func mustParseUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic("invalid uuid " + s + ": " + err.Error())
	}
	return u
}

// Options select which glasses to connect to and how to talk to them.
type Options struct {
	// Name is matched as a prefix of the advertised local name.
	Name string
	// Address, when set, has to match exactly and takes precedence over Name.
	Address     string
	ScanTimeout time.Duration
	AckTimeout  time.Duration
	Payload     int
	Columns     int
}

type bleLink struct {
	dev bluetooth.Device
	tx  bluetooth.DeviceCharacteristic
}

// Write waits for the glasses to confirm each write, so chunks of a long
// script are not dropped when sent back to back.
func (l *bleLink) Write(p []byte) error {
	_, err := l.tx.Write(p)
	return err
}

func (l *bleLink) Close() error {
	return l.dev.Disconnect()
}

// Connect scans for the glasses, connects and stops any running app so the
// device is ready for Lua requests.
func Connect(ctx context.Context, opts Options) (*Device, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("frame: enabling bluetooth failed: %w", err)
	}

	addr, err := scan(ctx, adapter, opts)
	if err != nil {
		return nil, err
	}
	logger.Infof("connecting to %v", addr.String())

	dev, err := adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("frame: connect failed: %w", err)
	}

	services, err := dev.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("frame: service discovery failed: %v", err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{txUUID, rxUUID})
	if err != nil {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("frame: characteristic discovery failed: %w", err)
	}

	l := &bleLink{dev: dev}
	var rx *bluetooth.DeviceCharacteristic
	for i := range chars {
		switch chars[i].UUID() {
		case txUUID:
			l.tx = chars[i]
		case rxUUID:
			rx = &chars[i]
		}
	}
	if rx == nil || l.tx.UUID() != txUUID {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("frame: missing tx/rx characteristics on %v", addr.String())
	}

	d := newDevice(l, opts.Payload, opts.Columns, opts.AckTimeout)
	if err := rx.EnableNotifications(d.receive); err != nil {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("frame: enabling notifications failed: %w", err)
	}

	if err := d.Break(); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("frame: break failed: %w", err)
	}
	logger.Infof("connected to %v", addr.String())

	return d, nil
}

func scan(ctx context.Context, adapter *bluetooth.Adapter, opts Options) (bluetooth.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.ScanTimeout)
	defer cancel()

	var (
		mu    sync.Mutex
		found *bluetooth.Address
	)
	go func() {
		<-ctx.Done()
		_ = adapter.StopScan()
	}()

	logger.Debugf("scanning for name=%q address=%q", opts.Name, opts.Address)
	err := adapter.Scan(func(a *bluetooth.Adapter, res bluetooth.ScanResult) {
		if !matches(opts, res.Address.String(), res.LocalName()) {
			return
		}

		mu.Lock()
		if found == nil {
			addr := res.Address
			found = &addr
			logger.Debugf("found %q at %v, rssi %v", res.LocalName(), addr.String(), res.RSSI)
		}
		mu.Unlock()
		_ = a.StopScan()
	})
	if err != nil {
		return bluetooth.Address{}, fmt.Errorf("frame: scan failed: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if found == nil {
		return bluetooth.Address{}, ErrNotFound
	}
	return *found, nil
}

func matches(opts Options, addr, name string) bool {
	if opts.Address != "" {
		return strings.EqualFold(addr, opts.Address)
	}
	return name != "" && strings.HasPrefix(name, opts.Name)
}
